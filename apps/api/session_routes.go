package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	platformauth "github.com/bkpos-id/bkpos-saas/platform/go/auth"
	"github.com/bkpos-id/bkpos-saas/platform/go/authevents"
	"github.com/bkpos-id/bkpos-saas/platform/go/problem"
	"github.com/bkpos-id/bkpos-saas/platform/go/tracking"
)

// sessionRoutes lets clients report auth state transitions. Side effects
// (GPS tracking, permission prompts) run on the event stream so a slow or
// failing hook never delays the response.
func sessionRoutes(stream *authevents.Stream) chi.Router {
	r := chi.NewRouter()

	r.Post("/sign-in", func(w http.ResponseWriter, req *http.Request) {
		creds, ok := platformauth.UserFromContext(req.Context())
		if !ok || creds == nil {
			problem.Write(w, problem.New(problem.TypeUnauthorized, "Authentication required", http.StatusUnauthorized))
			return
		}
		stream.Publish(authevents.Event{Kind: authevents.SignedIn, UserID: creds.Id, At: time.Now().UTC()})
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/sign-out", func(w http.ResponseWriter, req *http.Request) {
		creds, ok := platformauth.UserFromContext(req.Context())
		if !ok || creds == nil {
			problem.Write(w, problem.New(problem.TypeUnauthorized, "Authentication required", http.StatusUnauthorized))
			return
		}
		stream.Publish(authevents.Event{Kind: authevents.SignedOut, UserID: creds.Id, At: time.Now().UTC()})
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

// subscribeSessionHooks wires the tracking side effects. Tracking starts only
// for riders; permission prompts go to every signed-in user.
func subscribeSessionHooks(stream *authevents.Stream, resolver *platformauth.Resolver, tracker tracking.Tracker, permissions tracking.PermissionRequester) {
	stream.Subscribe("gps-tracking", func(ctx context.Context, ev authevents.Event) error {
		switch ev.Kind {
		case authevents.SignedIn:
			caps := resolver.Resolve(ctx, ev.UserID)
			if !caps.IsRider {
				return nil
			}
			return tracker.Start(ctx, ev.UserID)
		case authevents.SignedOut:
			return tracker.Stop(ctx, ev.UserID)
		}
		return nil
	})

	stream.Subscribe("app-permissions", func(ctx context.Context, ev authevents.Event) error {
		if ev.Kind != authevents.SignedIn {
			return nil
		}
		return permissions.RequestAll(ctx, ev.UserID)
	})
}
