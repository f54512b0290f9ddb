// Package problem implements the application/problem+json error body shared by
// every HTTP surface. Remote failures are always mapped to one of these; raw
// errors never reach the wire.
package problem

import (
	"encoding/json"
	"net/http"
)

const (
	TypeValidation   = "https://bkpos.id/problems/validation-error"
	TypeUnauthorized = "https://bkpos.id/problems/unauthorized"
	TypeForbidden    = "https://bkpos.id/problems/forbidden"
	TypeNotFound     = "https://bkpos.id/problems/not-found"
	TypeConflict     = "https://bkpos.id/problems/conflict"
	TypeMigration    = "https://bkpos.id/problems/migration-required"
	TypeProvision    = "https://bkpos.id/problems/provisioning-incomplete"
	TypeInternal     = "https://bkpos.id/problems/internal-error"
)

// Details is an RFC 7807 problem document, extended with a per-field error map
// for validation failures and a retryable hint for partial provisioning.
type Details struct {
	Type      string              `json:"type"`
	Title     string              `json:"title"`
	Status    int                 `json:"status"`
	Detail    string              `json:"detail,omitempty"`
	Errors    map[string][]string `json:"errors,omitempty"`
	Retryable bool                `json:"retryable,omitempty"`
}

// New builds a Details value.
func New(problemType, title string, status int) Details {
	return Details{Type: problemType, Title: title, Status: status}
}

// WithDetail returns a copy carrying the human-readable detail string.
func (d Details) WithDetail(detail string) Details {
	d.Detail = detail
	return d
}

// WithErrors returns a copy carrying the field error map.
func (d Details) WithErrors(errs map[string][]string) Details {
	d.Errors = errs
	return d
}

// Write serializes the problem document to the response.
func Write(w http.ResponseWriter, d Details) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(d.Status)
	_ = json.NewEncoder(w).Encode(d)
}
