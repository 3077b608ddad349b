package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/presets/internal/model"
)

// errorCode classifies err into the status pair both transports report.
func errorCode(err error) (int, codes.Code) {
	switch {
	case isInputError(err):
		return http.StatusBadRequest, codes.InvalidArgument
	case errors.Is(err, model.ErrUnauthenticated):
		return http.StatusUnauthorized, codes.Unauthenticated
	case errors.Is(err, model.ErrPermissionDenied):
		return http.StatusForbidden, codes.PermissionDenied
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, codes.NotFound
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests, codes.ResourceExhausted
	case errors.Is(err, model.ErrTransient),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, codes.Unavailable
	}
	return http.StatusInternalServerError, codes.Internal
}

// publicMessage is the error text sent to callers. Storage causes are logged
// but not exposed.
func publicMessage(err error, code codes.Code) string {
	switch code {
	case codes.InvalidArgument, codes.Unauthenticated:
		return err.Error()
	case codes.PermissionDenied:
		return model.ErrPermissionDenied.Error()
	case codes.NotFound:
		return model.ErrNotFound.Error()
	case codes.ResourceExhausted:
		return model.ErrRateLimited.Error()
	case codes.Unavailable:
		return model.ErrTransient.Error()
	}
	return "internal server error"
}

// grpcError maps an operation error to a gRPC status error.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	_, code := errorCode(err)
	if code == codes.Internal || code == codes.Unavailable {
		slog.Error("request failed", "error", err)
	}
	return status.Error(code, publicMessage(err, code))
}

// writeErr maps an operation error to an HTTP error response.
func writeErr(w http.ResponseWriter, err error) {
	httpCode, code := errorCode(err)
	if code == codes.Internal || code == codes.Unavailable {
		slog.Error("request failed", "error", err)
	}
	writeError(w, httpCode, publicMessage(err, code))
}
