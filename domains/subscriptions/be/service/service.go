package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainrepo "github.com/bkpos-id/bkpos-saas/domains/subscriptions/be/repo"
	"github.com/bkpos-id/bkpos-saas/platform/go/persistence"
	"github.com/bkpos-id/bkpos-saas/platform/go/requesttrace"
)

// Domain-level error sentinel values.
var (
	ErrOrgNotFound     = errors.New("organization not found")
	ErrPlanUnknown     = errors.New("unknown subscription plan")
	ErrHistoryNotFound = errors.New("subscription history entry not found")
	ErrNoOrganization  = errors.New("user is not a member of any organization")
)

// subscriptionTerm is the length of one billing period.
const subscriptionTerm = 30 * 24 * time.Hour

// Payment status values recorded on ledger rows.
const (
	PaymentFree    = "free"
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// Status is the resolved subscription state for an organization, computed
// from the authoritative latest ledger row.
type Status struct {
	OrganizationID uuid.UUID
	PlanName       string
	PaymentStatus  string
	StartDate      time.Time
	EndDate        time.Time
	DaysRemaining  int
	IsExpired      bool
	IsExpiringSoon bool
}

// HistoryEntry is one ledger row in API form.
type HistoryEntry struct {
	ID            uuid.UUID
	PlanName      string
	Amount        int64
	PaymentStatus string
	PaymentDate   *time.Time
	StartDate     time.Time
	EndDate       time.Time
	CreatedAt     time.Time
}

// Usage pairs consumption counts with the organization's caps.
type Usage struct {
	Users         int
	MaxUsers      int
	UsersRatio    float64
	Products      int
	MaxProducts   int
	ProductsRatio float64
	Riders        int
	MaxRiders     int
	RidersRatio   float64
}

// Service exposes the subscription lifecycle operations.
type Service interface {
	ChangePlan(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID, planName string) (Status, error)
	MyStatus(ctx context.Context, audit requesttrace.AuditInfo) (Status, error)
	StatusForOrg(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID) (Status, error)
	HistoryForOrg(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID) ([]HistoryEntry, error)
	ConfirmPayment(ctx context.Context, audit requesttrace.AuditInfo, entryID uuid.UUID) (HistoryEntry, error)
	UsageForOrg(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID) (Usage, error)
}

type service struct {
	repo   domainrepo.Repository
	logger *zap.Logger
	now    func() time.Time
}

// New builds a subscriptions Service backed by the provided repository.
func New(repo domainrepo.Repository, logger *zap.Logger) Service {
	if repo == nil {
		panic("subscriptions repository is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &service{repo: repo, logger: logger, now: time.Now}
}

// ChangePlan updates the organization's cached plan fields and appends a
// ledger row in one transaction. Free plans are recorded as paid immediately;
// paid plans start a pending row awaiting payment confirmation.
func (s *service) ChangePlan(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID, planName string) (Status, error) {
	plan, err := s.repo.GetPlanByName(ctx, planName)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Status{}, ErrPlanUnknown
		}
		return Status{}, err
	}

	now := s.now().UTC()
	end := now.Add(subscriptionTerm)

	hist := persistence.SubscriptionHistoryRecord{
		ID:            uuid.New(),
		PlanName:      plan.Name,
		Amount:        plan.PriceMonthly,
		PaymentStatus: PaymentPending,
		StartDate:     now,
		EndDate:       end,
	}
	if plan.PriceMonthly == 0 {
		hist.PaymentStatus = PaymentPaid
		hist.PaymentDate = &now
	}

	if _, err := s.repo.ChangePlanWithHistory(ctx, orgID, plan, hist); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Status{}, ErrOrgNotFound
		}
		return Status{}, err
	}

	s.logger.Info("subscription plan changed",
		zap.String("organization_id", orgID.String()),
		zap.String("plan", plan.Name),
		zap.String("payment_status", hist.PaymentStatus),
		zap.Stringp("actor", audit.UserID),
	)

	return s.statusFromHistory(orgID, hist), nil
}

// MyStatus resolves the caller's organization through their profile and
// returns its subscription state.
func (s *service) MyStatus(ctx context.Context, audit requesttrace.AuditInfo) (Status, error) {
	if audit.UserID == nil {
		return Status{}, ErrNoOrganization
	}
	profile, err := s.repo.GetProfile(ctx, *audit.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Status{}, ErrNoOrganization
		}
		return Status{}, err
	}
	if profile.OrganizationID == nil {
		return Status{}, ErrNoOrganization
	}
	return s.StatusForOrg(ctx, audit, *profile.OrganizationID)
}

// StatusForOrg resolves the current state from the latest ledger row. The
// cached fields on the organization row are advisory; a mismatch is logged,
// never returned.
func (s *service) StatusForOrg(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID) (Status, error) { //nolint:revive
	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Status{}, ErrOrgNotFound
		}
		return Status{}, err
	}

	latest, err := s.repo.LatestForOrg(ctx, orgID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			// An organization provisioned before the ledger existed. Fall back
			// to the cached fields.
			return s.statusFromCache(org), nil
		}
		return Status{}, err
	}

	if org.SubscriptionPlan != latest.PlanName {
		s.logger.Warn("cached subscription plan disagrees with ledger",
			zap.String("organization_id", orgID.String()),
			zap.String("cached_plan", org.SubscriptionPlan),
			zap.String("ledger_plan", latest.PlanName),
		)
	}

	return s.statusFromHistory(orgID, latest), nil
}

func (s *service) HistoryForOrg(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID) ([]HistoryEntry, error) { //nolint:revive
	if _, err := s.repo.GetOrganization(ctx, orgID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrOrgNotFound
		}
		return nil, err
	}

	records, err := s.repo.ListForOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, mapHistory(record))
	}
	return entries, nil
}

func (s *service) ConfirmPayment(ctx context.Context, audit requesttrace.AuditInfo, entryID uuid.UUID) (HistoryEntry, error) {
	record, err := s.repo.MarkPaid(ctx, entryID, s.now().UTC())
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return HistoryEntry{}, ErrHistoryNotFound
		}
		return HistoryEntry{}, err
	}

	s.logger.Info("subscription payment confirmed",
		zap.String("entry_id", entryID.String()),
		zap.Stringp("actor", audit.UserID),
	)
	return mapHistory(record), nil
}

func (s *service) UsageForOrg(ctx context.Context, audit requesttrace.AuditInfo, orgID uuid.UUID) (Usage, error) { //nolint:revive
	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Usage{}, ErrOrgNotFound
		}
		return Usage{}, err
	}

	counts, err := s.repo.Usage(ctx, orgID)
	if err != nil {
		return Usage{}, err
	}

	return Usage{
		Users:         counts.Users,
		MaxUsers:      org.MaxUsers,
		UsersRatio:    UsageRatio(counts.Users, org.MaxUsers),
		Products:      counts.Products,
		MaxProducts:   org.MaxProducts,
		ProductsRatio: UsageRatio(counts.Products, org.MaxProducts),
		Riders:        counts.Riders,
		MaxRiders:     org.MaxRiders,
		RidersRatio:   UsageRatio(counts.Riders, org.MaxRiders),
	}, nil
}

func (s *service) statusFromHistory(orgID uuid.UUID, hist persistence.SubscriptionHistoryRecord) Status {
	now := s.now().UTC()
	return Status{
		OrganizationID: orgID,
		PlanName:       hist.PlanName,
		PaymentStatus:  hist.PaymentStatus,
		StartDate:      hist.StartDate,
		EndDate:        hist.EndDate,
		DaysRemaining:  DaysRemaining(hist.EndDate, now),
		IsExpired:      IsExpired(hist.EndDate, now),
		IsExpiringSoon: IsExpiringSoon(hist.EndDate, now),
	}
}

func (s *service) statusFromCache(org persistence.OrganizationRecord) Status {
	status := Status{
		OrganizationID: org.ID,
		PlanName:       org.SubscriptionPlan,
	}
	if org.SubscriptionStartDate != nil {
		status.StartDate = *org.SubscriptionStartDate
	}
	if org.SubscriptionEndDate != nil {
		now := s.now().UTC()
		status.EndDate = *org.SubscriptionEndDate
		status.DaysRemaining = DaysRemaining(status.EndDate, now)
		status.IsExpired = IsExpired(status.EndDate, now)
		status.IsExpiringSoon = IsExpiringSoon(status.EndDate, now)
	}
	return status
}

func mapHistory(record persistence.SubscriptionHistoryRecord) HistoryEntry {
	return HistoryEntry{
		ID:            record.ID,
		PlanName:      record.PlanName,
		Amount:        record.Amount,
		PaymentStatus: record.PaymentStatus,
		PaymentDate:   record.PaymentDate,
		StartDate:     record.StartDate,
		EndDate:       record.EndDate,
		CreatedAt:     record.CreatedAt,
	}
}
