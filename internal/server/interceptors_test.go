package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/configmonkey/internal/metrics"
	"github.com/alfredjeanlab/configmonkey/internal/service"
)

const listDomainsMethod = "/" + RegistryServiceName + "/ListDomains"

// stubHandler is a no-op gRPC handler used in interceptor tests.
func stubHandler(_ context.Context, _ any) (any, error) {
	return "ok", nil
}

func TestAuthInterceptor(t *testing.T) {
	for _, tc := range []struct {
		name   string
		token  string
		method string
		md     metadata.MD
		ok     bool
	}{
		{"Disabled", "", listDomainsMethod, nil, true},
		{"HealthExempt", "secret", healthCheckMethod, nil, true},
		{"MissingMetadata", "secret", listDomainsMethod, nil, false},
		{"MissingAuthHeader", "secret", listDomainsMethod, metadata.Pairs("other", "value"), false},
		{"WrongToken", "secret", listDomainsMethod, metadata.Pairs("authorization", "Bearer wrong"), false},
		{"InvalidScheme", "secret", listDomainsMethod, metadata.Pairs("authorization", "Basic secret"), false},
		{"CorrectToken", "secret", listDomainsMethod, metadata.Pairs("authorization", "Bearer secret"), true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			if tc.md != nil {
				ctx = metadata.NewIncomingContext(ctx, tc.md)
			}
			resp, err := AuthInterceptor(tc.token)(ctx, nil, &grpc.UnaryServerInfo{FullMethod: tc.method}, stubHandler)
			if !tc.ok {
				requireCode(t, err, codes.Unauthenticated)
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp != "ok" {
				t.Fatalf("expected 'ok', got %v", resp)
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, tc := range []struct {
		name   string
		token  string
		method string
		path   string
		header string
		want   int
	}{
		{"Disabled", "", http.MethodGet, "/v1/domains", "", http.StatusOK},
		{"NoHeader", "secret", http.MethodGet, "/v1/domains", "", http.StatusUnauthorized},
		{"WrongToken", "secret", http.MethodGet, "/v1/domains", "Bearer wrong", http.StatusUnauthorized},
		{"InvalidScheme", "secret", http.MethodGet, "/v1/domains", "Basic secret", http.StatusUnauthorized},
		{"CorrectToken", "secret", http.MethodPost, "/v1/domains", "Bearer secret", http.StatusOK},
		{"HealthExempt", "secret", http.MethodGet, "/v1/health", "", http.StatusOK},
		{"MetricsExempt", "secret", http.MethodGet, "/metrics", "", http.StatusOK},
		{"HealthPostNotExempt", "secret", http.MethodPost, "/v1/health", "", http.StatusUnauthorized},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			AuthMiddleware(tc.token, next).ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if tc.want == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), `"code":"unauthorized"`) {
				t.Fatalf("expected unauthorized error body, got %s", rec.Body.String())
			}
		})
	}
}

func TestLogRPC(t *testing.T) {
	var logs bytes.Buffer
	m := metrics.NewCollector()
	s := New(nil, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))), WithMetrics(m))
	info := &grpc.UnaryServerInfo{FullMethod: listDomainsMethod}

	resp, err := s.logRPC(context.Background(), nil, info, stubHandler)
	if err != nil || resp != "ok" {
		t.Fatalf("expected resp=ok err=nil, got resp=%v err=%v", resp, err)
	}

	notFound := grpcError(&service.Error{Kind: service.KindDomainNotFound})
	_, err = s.logRPC(context.Background(), nil, info,
		func(context.Context, any) (any, error) { return nil, notFound })
	if err != notFound {
		t.Fatalf("expected handler error to pass through, got %v", err)
	}

	out := logs.String()
	if !strings.Contains(out, "code=NotFound") || !strings.Contains(out, "reason=domain_not_found") {
		t.Errorf("log output missing code or reason:\n%s", out)
	}
	if got := testutil.ToFloat64(m.GRPCRequests.WithLabelValues("ListDomains", "OK")); got != 1 {
		t.Errorf("OK count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.GRPCRequests.WithLabelValues("ListDomains", "NotFound")); got != 1 {
		t.Errorf("NotFound count = %v, want 1", got)
	}
}

func TestRecoverRPC(t *testing.T) {
	s := New(nil, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	info := &grpc.UnaryServerInfo{FullMethod: listDomainsMethod}

	resp, err := s.recoverRPC(context.Background(), nil, info, stubHandler)
	if err != nil || resp != "ok" {
		t.Fatalf("expected resp=ok err=nil, got resp=%v err=%v", resp, err)
	}

	_, err = s.recoverRPC(context.Background(), nil, info,
		func(context.Context, any) (any, error) { panic("test panic") })
	requireCode(t, err, codes.Internal)
	if got := rpcReason(err); got != service.KindUnknown.Code() {
		t.Errorf("reason = %q, want %q", got, service.KindUnknown.Code())
	}
}

func TestRPCReason(t *testing.T) {
	if got := rpcReason(errors.New("plain")); got != "" {
		t.Errorf("plain error reason = %q", got)
	}
	if got := rpcReason(status.Error(codes.Unauthenticated, "no token")); got != "" {
		t.Errorf("status without details reason = %q", got)
	}
	if got := rpcReason(grpcError(&service.Error{Kind: service.KindNotEmpty})); got != "not_empty" {
		t.Errorf("registry error reason = %q", got)
	}
}
