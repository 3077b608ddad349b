package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor logs the method name, duration, and error (if any) for every
// unary RPC call.
func LoggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	duration := time.Since(start)

	if err != nil {
		slog.Error("rpc completed",
			"method", info.FullMethod,
			"duration", duration,
			"code", status.Code(err),
			"error", err,
		)
	} else {
		slog.Info("rpc completed",
			"method", info.FullMethod,
			"duration", duration,
		)
	}

	return resp, err
}

// RecoveryInterceptor catches panics in downstream handlers, logs the stack
// trace, and returns a codes.Internal error instead of crashing the server.
func RecoveryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered in gRPC handler",
				"method", info.FullMethod,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			err = status.Errorf(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// IdentityInterceptor returns a gRPC unary interceptor that resolves the
// caller from the "authorization" or "x-user-id" metadata and attaches it to
// the context. Requests without credentials continue anonymously; methods
// that need a caller reject them. Invalid credentials are rejected here.
func IdentityInterceptor(auth *Authenticator) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		var authorization, userID string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get("authorization"); len(vals) > 0 {
				authorization = vals[0]
			}
			if vals := md.Get("x-user-id"); len(vals) > 0 {
				userID = vals[0]
			}
		}

		id, err := auth.Identify(authorization, userID)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}
		return handler(withIdentity(ctx, id), req)
	}
}

// IdentityMiddleware wraps an http.Handler and attaches the caller resolved
// from the Authorization or X-User-ID header. Invalid credentials get a 401;
// missing ones leave the request anonymous.
func IdentityMiddleware(auth *Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.Identify(r.Header.Get("Authorization"), r.Header.Get("X-User-ID"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// statusRecorder captures the response status for logging. It forwards
// Flush so that the event stream keeps working behind the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LoggingMiddleware logs method, path, status and duration for every HTTP
// request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		}
		if rec.status >= http.StatusInternalServerError {
			slog.Error("http request", attrs...)
		} else {
			slog.Info("http request", attrs...)
		}
	})
}
