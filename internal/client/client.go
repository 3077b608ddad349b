// Package client provides a transport-agnostic interface for the presets
// service with HTTP/JSON and gRPC implementations. Both map server errors
// back onto the model sentinels, so callers check errors.Is(err,
// model.ErrNotFound) regardless of transport.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"

	"github.com/alfredjeanlab/presets/internal/model"
	"github.com/alfredjeanlab/presets/internal/rpc"
)

// PresetsClient is the interface that CLI commands and the optimistic sync
// layer use to talk to the presets server.
type PresetsClient interface {
	SavePreset(ctx context.Context, req *SavePresetRequest) (*model.Preset, error)
	GetPreset(ctx context.Context, id string) (*model.Preset, error)
	SetVisibility(ctx context.Context, id string, isPublic bool) (*VisibilityResult, error)
	DeletePreset(ctx context.Context, id string) error
	ListOwned(ctx context.Context, req *ListRequest) (*model.Page, error)
	ListPublic(ctx context.Context, req *ListRequest) (*model.Page, error)
	ToggleReaction(ctx context.Context, presetID string, symbol model.Symbol) (*model.ToggleResult, error)

	Health(ctx context.Context) (string, error)
	Close() error
}

// Request and response types are shared with the gRPC contract.
type (
	SavePresetRequest = rpc.SavePresetRequest
	ListRequest       = rpc.ListPresetsRequest
	VisibilityResult  = rpc.SetVisibilityResponse
)

// Credentials identify the caller. Token wins when both are set; UserID is
// only honoured by servers running without a signing secret.
type Credentials struct {
	Token  string
	UserID string
}

// APIError is an error response from the server. It unwraps to the matching
// model sentinel (or a *model.ValidationError for bad requests).
type APIError struct {
	StatusCode int // HTTP status; gRPC codes are reported as their HTTP equivalent
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

func newAPIError(statusCode int, message string) *APIError {
	e := &APIError{StatusCode: statusCode, Message: message}
	switch statusCode {
	case http.StatusBadRequest:
		e.kind = &model.ValidationError{Errors: []model.FieldError{{Field: "request", Message: message}}}
	case http.StatusUnauthorized:
		e.kind = model.ErrUnauthenticated
	case http.StatusForbidden:
		e.kind = model.ErrPermissionDenied
	case http.StatusNotFound:
		e.kind = model.ErrNotFound
	case http.StatusTooManyRequests:
		e.kind = model.ErrRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e.kind = model.ErrTransient
	}
	return e
}

// httpStatusForCode is the HTTP status the server would have answered with
// for a gRPC code.
func httpStatusForCode(code codes.Code) int {
	switch code {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable, codes.DeadlineExceeded:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// transportError wraps a failure to reach the server. Cancellation is left
// as-is; everything else is transient.
func transportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return model.Transient(err)
}
