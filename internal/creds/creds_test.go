package creds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newVerifier(t *testing.T, handler http.Handler) (*Verifier, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Verifier{
		GitHubBaseURL: srv.URL + "/",
		DockerHubURL:  srv.URL,
		Timeout:       2 * time.Second,
		RetryDelay:    10 * time.Millisecond,
	}, srv
}

func TestVerifyGitHubPAT_Valid(t *testing.T) {
	v, _ := newVerifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user" {
			t.Errorf("path = %q, want /user", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ghp_good" {
			t.Errorf("Authorization = %q, want Bearer ghp_good", got)
		}
		w.Header().Set("X-OAuth-Scopes", "repo, admin:org")
		w.Write([]byte(`{"login": "octocat"}`))
	}))

	res := v.VerifyGitHubPAT(context.Background(), "ghp_good")
	if res.Status != StatusValid {
		t.Fatalf("Status = %q (%s), want valid", res.Status, res.Detail)
	}
	if want := "authenticated as octocat (scopes: repo, admin:org)"; res.Detail != want {
		t.Errorf("Detail = %q, want %q", res.Detail, want)
	}
}

func TestVerifyGitHubPAT_Invalid(t *testing.T) {
	v, _ := newVerifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message": "Bad credentials"}`, http.StatusUnauthorized)
	}))

	res := v.VerifyGitHubPAT(context.Background(), "ghp_bad")
	if res.Status != StatusInvalid {
		t.Errorf("Status = %q (%s), want invalid", res.Status, res.Detail)
	}
}

func TestVerifyGitHubPAT_Missing(t *testing.T) {
	v := &Verifier{}
	res := v.VerifyGitHubPAT(context.Background(), "")
	if res.Status != StatusMissing {
		t.Errorf("Status = %q, want missing", res.Status)
	}
}

func TestVerifyGitHubPAT_NoRetryOnAPIError(t *testing.T) {
	var calls atomic.Int32
	v, _ := newVerifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message": "Bad credentials"}`, http.StatusUnauthorized)
	}))

	v.VerifyGitHubPAT(context.Background(), "ghp_bad")
	if got := calls.Load(); got != 1 {
		t.Errorf("API called %d times, want 1 (HTTP errors are verdicts, not retried)", got)
	}
}

func TestVerifyRunnerAccess(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		want       Status
	}{
		{"accessible", http.StatusOK, `{"total_count": 3, "runners": []}`, StatusValid},
		{"forbidden", http.StatusForbidden, `{"message": "no"}`, StatusInvalid},
		{"org not found", http.StatusNotFound, `{"message": "no"}`, StatusInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := newVerifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/orgs/aspire-org/actions/runners" {
					t.Errorf("path = %q", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))

			res := v.VerifyRunnerAccess(context.Background(), "ghp_good", "aspire-org")
			if res.Status != tt.want {
				t.Errorf("Status = %q (%s), want %q", res.Status, res.Detail, tt.want)
			}
		})
	}
}

func TestVerifyRunnerAccess_NoOwner(t *testing.T) {
	v := &Verifier{}
	res := v.VerifyRunnerAccess(context.Background(), "ghp_x", "")
	if res.Status != StatusMissing {
		t.Errorf("Status = %q, want missing", res.Status)
	}
}

func TestCheckRunnerTokenFormat(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  Status
	}{
		{"empty", "", StatusMissing},
		{"too short", "AABB", StatusInvalid},
		{"wrong prefix", "BHXNMPROZW3VSMUQCJ6SYOTG6MBCW", StatusInvalid},
		{"plausible", "AHXNMPROZW3VSMUQCJ6SYOTG6MBCW", StatusValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if res := CheckRunnerTokenFormat(tt.token); res.Status != tt.want {
				t.Errorf("Status = %q, want %q", res.Status, tt.want)
			}
		})
	}
}

func TestVerifyDockerHub(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		want       Status
	}{
		{"valid", http.StatusOK, StatusValid},
		{"invalid", http.StatusUnauthorized, StatusInvalid},
		{"service trouble", http.StatusBadGateway, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := newVerifier(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/users/login" {
					t.Errorf("path = %q, want /users/login", r.URL.Path)
				}
				if r.Method != http.MethodPost {
					t.Errorf("method = %q, want POST", r.Method)
				}
				w.WriteHeader(tt.statusCode)
			}))

			res := v.VerifyDockerHub(context.Background(), "builder", "dckr_pat_x")
			if res.Status != tt.want {
				t.Errorf("Status = %q (%s), want %q", res.Status, res.Detail, tt.want)
			}
		})
	}
}

func TestVerifyDockerHub_RetriesTransportError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Hijack and drop the connection to force a transport error.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Fatal("server does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Fatalf("hijack: %v", err)
			}
			conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := &Verifier{DockerHubURL: srv.URL, Timeout: 2 * time.Second, RetryDelay: 10 * time.Millisecond}
	res := v.VerifyDockerHub(context.Background(), "builder", "dckr_pat_x")
	if res.Status != StatusValid {
		t.Errorf("Status = %q (%s), want valid after retry", res.Status, res.Detail)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestVerifyDockerHub_MissingInputs(t *testing.T) {
	v := &Verifier{}
	if res := v.VerifyDockerHub(context.Background(), "", "tok"); res.Status != StatusMissing || res.Key != "DOCKER_USERNAME" {
		t.Errorf("no username: got %+v", res)
	}
	if res := v.VerifyDockerHub(context.Background(), "builder", ""); res.Status != StatusMissing || res.Key != "DOCKER_ACCESS_TOKEN" {
		t.Errorf("no token: got %+v", res)
	}
}
