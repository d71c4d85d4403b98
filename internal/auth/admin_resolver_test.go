package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"club-overview-console/internal/domain"
)

const testYAML = `"10.0.1.5":
  uid: "u-123"
  name: "Maja"
  role: admin
"10.0.1.8":
  uid: "u-789"
  name: "Jonas"
`

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "admins.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestActorResolver_Resolve(t *testing.T) {
	resolver := NewActorResolver(writeYAML(t, testYAML), nil)
	if !resolver.IsLoaded() {
		t.Fatal("resolver not loaded")
	}

	tests := []struct {
		name          string
		remoteAddr    string
		xForwardedFor string
		xRealIP       string
		expected      domain.Actor
		expectedFound bool
	}{
		{
			name:          "Admin by RemoteAddr",
			remoteAddr:    "10.0.1.5:12345",
			expected:      domain.Actor{UID: "u-123", Name: "Maja", Role: domain.RoleAdmin},
			expectedFound: true,
		},
		{
			name:          "Editor by X-Forwarded-For chain",
			remoteAddr:    "192.168.1.1:12345",
			xForwardedFor: "10.0.1.8, 172.16.0.1",
			expected:      domain.Actor{UID: "u-789", Name: "Jonas", Role: domain.RoleEditor},
			expectedFound: true,
		},
		{
			name:          "X-Real-IP",
			remoteAddr:    "192.168.1.1:12345",
			xRealIP:       "10.0.1.5",
			expected:      domain.Actor{UID: "u-123", Name: "Maja", Role: domain.RoleAdmin},
			expectedFound: true,
		},
		{
			name:       "Unknown IP",
			remoteAddr: "192.168.1.1:12345",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xForwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tt.xForwardedFor)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			actor, found := resolver.Resolve(req)
			if found != tt.expectedFound {
				t.Fatalf("Resolve() found = %v, want %v", found, tt.expectedFound)
			}
			if actor != tt.expected {
				t.Errorf("Resolve() = %+v, want %+v", actor, tt.expected)
			}
		})
	}
}

func TestActorResolver_RejectsBadEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing uid", "\"10.0.0.1\":\n  name: x\n"},
		{"unknown role", "\"10.0.0.1\":\n  uid: a\n  role: owner\n"},
		{"not a map", "- 10.0.0.1\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if r := NewActorResolver(writeYAML(t, tt.content), nil); r.IsLoaded() {
				t.Fatal("resolver loaded an invalid file")
			}
		})
	}
}

func TestActorResolver_Reload(t *testing.T) {
	path := writeYAML(t, testYAML)
	r := NewActorResolver(path, nil)
	if r.Len() != 2 {
		t.Fatalf("Len = %d", r.Len())
	}
	if err := os.WriteFile(path, []byte("\"10.0.0.9\":\n  uid: z\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len after reload = %d", r.Len())
	}
	if err := os.WriteFile(path, []byte("::"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(); err == nil || r.Len() != 1 {
		t.Fatalf("bad reload: err=%v len=%d", err, r.Len())
	}
}

func TestMiddleware(t *testing.T) {
	resolver := NewActorResolver(writeYAML(t, testYAML), nil)
	var seen domain.Actor
	h := NewMiddleware(resolver).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFromContext(r.Context())
		if ip, _ := ClientIPFromContext(r.Context()); ip != "10.0.1.8" {
			t.Errorf("client ip = %q", ip)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest("GET", "/api/working", nil)
	req.RemoteAddr = "10.0.1.8:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || seen.UID != "u-789" {
		t.Fatalf("code = %d, actor = %+v", rec.Code, seen)
	}

	req = httptest.NewRequest("GET", "/api/working", nil)
	req.RemoteAddr = "8.8.8.8:5000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown client code = %d", rec.Code)
	}

	missing := NewActorResolver(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	rec = httptest.NewRecorder()
	NewMiddleware(missing).Handler(http.NotFoundHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unloaded resolver code = %d", rec.Code)
	}
}
