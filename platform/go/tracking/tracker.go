// Package tracking holds the GPS tracking and device-permission hooks. The
// actual tracking pipeline is an external collaborator; this service only
// signals start/stop around sign-in and sign-out.
package tracking

import (
	"context"

	"go.uber.org/zap"
)

// Tracker starts and stops location tracking for a user session.
type Tracker interface {
	Start(ctx context.Context, userID string) error
	Stop(ctx context.Context, userID string) error
}

// PermissionRequester asks the device/client for the permission set the app
// needs. Results are advisory; denial never blocks access decisions.
type PermissionRequester interface {
	RequestAll(ctx context.Context, userID string) error
}

// LogTracker is the default no-op implementation used until a real tracking
// backend is wired. It records intent so operators can see rider sessions.
type LogTracker struct {
	logger *zap.Logger
}

// NewLogTracker constructs a LogTracker.
func NewLogTracker(logger *zap.Logger) *LogTracker {
	if logger == nil {
		panic("logger is required")
	}
	return &LogTracker{logger: logger}
}

func (t *LogTracker) Start(ctx context.Context, userID string) error {
	t.logger.Info("gps tracking start requested", zap.String("user_id", userID))
	return nil
}

func (t *LogTracker) Stop(ctx context.Context, userID string) error {
	t.logger.Info("gps tracking stop requested", zap.String("user_id", userID))
	return nil
}

func (t *LogTracker) RequestAll(ctx context.Context, userID string) error {
	t.logger.Info("app permissions requested", zap.String("user_id", userID))
	return nil
}

var (
	_ Tracker             = (*LogTracker)(nil)
	_ PermissionRequester = (*LogTracker)(nil)
)
