package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
)

// SpecValidator loads an OpenAPI document from disk and returns request
// validation middleware for the routes it covers. Contract violations are
// rejected before any handler code runs.
func SpecValidator(path string) (func(http.Handler) http.Handler, error) {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true

	spec, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec %q: %w", path, err)
	}
	if err := spec.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("validate openapi spec %q: %w", path, err)
	}

	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: validateAuthenticationViaSpec,
		},
	}), nil
}

// validateAuthenticationViaSpec enforces bearer token presence for operations
// that declare bearerAuth security; role checks happen in the guard middleware
// after the JWT layer has attached credentials.
func validateAuthenticationViaSpec(ctx context.Context, input *openapi3filter.AuthenticationInput) error {
	if input == nil || input.SecuritySchemeName != "bearerAuth" {
		return nil
	}

	r := input.RequestValidationInput.Request
	if r == nil {
		return fmt.Errorf("no request in validation input")
	}

	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return fmt.Errorf("missing or invalid Authorization header")
	}
	return nil
}
