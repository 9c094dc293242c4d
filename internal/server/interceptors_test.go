package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func stubHandler(_ context.Context, _ any) (any, error) {
	return "ok", nil
}

func TestAuthInterceptor(t *testing.T) {
	const method = "/elnsync.v1.Sync/Anything"
	for _, tc := range []struct {
		name   string
		token  string
		method string
		md     metadata.MD
		code   codes.Code
	}{
		{"Disabled", "", method, nil, codes.OK},
		{"HealthCheckExempt", "secret", "/grpc.health.v1.Health/Check", nil, codes.OK},
		{"HealthWatchExempt", "secret", "/grpc.health.v1.Health/Watch", nil, codes.OK},
		{"MissingMetadata", "secret", method, nil, codes.Unauthenticated},
		{"MissingHeader", "secret", method, metadata.Pairs("other", "value"), codes.Unauthenticated},
		{"WrongToken", "secret", method, metadata.Pairs("authorization", "Bearer wrong"), codes.Unauthenticated},
		{"InvalidScheme", "secret", method, metadata.Pairs("authorization", "Basic secret"), codes.Unauthenticated},
		{"CorrectToken", "secret", method, metadata.Pairs("authorization", "Bearer secret"), codes.OK},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tc.md)
			}
			resp, err := AuthInterceptor(tc.token)(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tc.method}, stubHandler)
			if got := status.Code(err); got != tc.code {
				t.Fatalf("expected %v, got %v (%v)", tc.code, got, err)
			}
			if tc.code == codes.OK && resp != "ok" {
				t.Fatalf("expected 'ok', got %v", resp)
			}
		})
	}
}

func TestRecoveryInterceptor(t *testing.T) {
	panicking := func(context.Context, any) (any, error) { panic("boom") }
	_, err := RecoveryInterceptor(testLogger())(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/y"}, panicking)
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected Internal, got %v", err)
	}
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	resp, err := LoggingInterceptor(testLogger())(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/y"}, stubHandler)
	if err != nil || resp != "ok" {
		t.Fatalf("expected ok, got %v %v", resp, err)
	}
}

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	for _, tc := range []struct {
		name   string
		token  string
		method string
		path   string
		header string
		status int
	}{
		{"Disabled", "", http.MethodGet, "/v1/schemas", "", http.StatusOK},
		{"NoHeader", "secret", http.MethodGet, "/v1/schemas", "", http.StatusUnauthorized},
		{"WrongToken", "secret", http.MethodGet, "/v1/schemas", "Bearer wrong", http.StatusUnauthorized},
		{"InvalidScheme", "secret", http.MethodGet, "/v1/schemas", "Basic secret", http.StatusUnauthorized},
		{"CorrectToken", "secret", http.MethodGet, "/v1/schemas", "Bearer secret", http.StatusOK},
		{"HealthExempt", "secret", http.MethodGet, "/v1/health", "", http.StatusOK},
		{"HealthPostNotExempt", "secret", http.MethodPost, "/v1/health", "", http.StatusUnauthorized},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			AuthMiddleware(tc.token, ok).ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d; body: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}
