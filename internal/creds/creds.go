// Package creds verifies the captured devcontainer secrets against the
// services they authenticate to: GitHub (PAT and runner-admin scope) and
// Docker Hub.
package creds

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// Status classifies a probe outcome.
type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
	StatusUnknown Status = "unknown" // network or service trouble, not a verdict
	StatusMissing Status = "missing"
)

// Result is the outcome of verifying one credential.
type Result struct {
	Key    string
	Status Status
	Detail string
}

// DefaultDockerHubURL is the Docker Hub v2 API base.
const DefaultDockerHubURL = "https://hub.docker.com/v2"

// Verifier runs credential probes. Zero value is usable; fields exist so
// tests can point probes at local servers.
type Verifier struct {
	// GitHubBaseURL overrides the GitHub API base (must end in a slash).
	GitHubBaseURL string
	// DockerHubURL overrides the Docker Hub v2 base.
	DockerHubURL string
	// HTTPClient is used for Docker Hub probes and as the oauth2 transport base.
	HTTPClient *http.Client
	// Timeout bounds each probe. Default 10s.
	Timeout time.Duration
	// RetryDelay is the fixed wait before the single retry of a probe that
	// failed with a transport error. Default 2s.
	RetryDelay time.Duration
}

func (v *Verifier) timeout() time.Duration {
	if v.Timeout > 0 {
		return v.Timeout
	}
	return 10 * time.Second
}

func (v *Verifier) retryDelay() time.Duration {
	if v.RetryDelay > 0 {
		return v.RetryDelay
	}
	return 2 * time.Second
}

func (v *Verifier) httpClient() *http.Client {
	if v.HTTPClient != nil {
		return v.HTTPClient
	}
	return http.DefaultClient
}

func (v *Verifier) githubClient(ctx context.Context, token string) (*github.Client, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	base := context.WithValue(ctx, oauth2.HTTPClient, v.httpClient())
	client := github.NewClient(oauth2.NewClient(base, src))
	if v.GitHubBaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(v.GitHubBaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("creds: github base url: %w", err)
		}
		client.BaseURL = u
	}
	return client, nil
}

// VerifyGitHubPAT checks that token authenticates against the GitHub API.
// The detail includes the login and granted scopes when available.
func (v *Verifier) VerifyGitHubPAT(ctx context.Context, token string) Result {
	if token == "" {
		return Result{Key: "GH_PAT", Status: StatusMissing, Detail: "not set"}
	}
	client, err := v.githubClient(ctx, token)
	if err != nil {
		return Result{Key: "GH_PAT", Status: StatusUnknown, Detail: err.Error()}
	}

	var (
		user *github.User
		resp *github.Response
	)
	err = v.withRetry(ctx, func(ctx context.Context) error {
		var apiErr error
		user, resp, apiErr = client.Users.Get(ctx, "")
		return apiErr
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return Result{Key: "GH_PAT", Status: StatusInvalid, Detail: "401 from api.github.com"}
		}
		return Result{Key: "GH_PAT", Status: StatusUnknown, Detail: fmt.Sprintf("probe failed: %v", err)}
	}

	detail := fmt.Sprintf("authenticated as %s", user.GetLogin())
	if scopes := resp.Header.Get("X-OAuth-Scopes"); scopes != "" {
		detail += " (scopes: " + scopes + ")"
	}
	return Result{Key: "GH_PAT", Status: StatusValid, Detail: detail}
}

// VerifyRunnerAccess checks that the PAT can administer self-hosted runners
// for owner, which is what GITHUB_RUNNER_TOKEN will be used for. The runner
// registration token itself is single-use and cannot be probed.
func (v *Verifier) VerifyRunnerAccess(ctx context.Context, token, owner string) Result {
	if owner == "" {
		return Result{Key: "GITHUB_OWNER", Status: StatusMissing, Detail: "not set"}
	}
	if token == "" {
		return Result{Key: "GITHUB_OWNER", Status: StatusUnknown, Detail: "no PAT to probe with"}
	}
	client, err := v.githubClient(ctx, token)
	if err != nil {
		return Result{Key: "GITHUB_OWNER", Status: StatusUnknown, Detail: err.Error()}
	}

	var runners *github.Runners
	err = v.withRetry(ctx, func(ctx context.Context) error {
		var apiErr error
		runners, _, apiErr = client.Actions.ListOrganizationRunners(ctx, owner, nil)
		return apiErr
	})
	if err != nil {
		var ghErr *github.ErrorResponse
		if asGitHubError(err, &ghErr) {
			switch ghErr.Response.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return Result{Key: "GITHUB_OWNER", Status: StatusInvalid,
					Detail: fmt.Sprintf("PAT cannot list runners for %s (%d)", owner, ghErr.Response.StatusCode)}
			case http.StatusNotFound:
				return Result{Key: "GITHUB_OWNER", Status: StatusInvalid,
					Detail: fmt.Sprintf("org %s not found or not visible", owner)}
			}
		}
		return Result{Key: "GITHUB_OWNER", Status: StatusUnknown, Detail: fmt.Sprintf("probe failed: %v", err)}
	}
	return Result{Key: "GITHUB_OWNER", Status: StatusValid,
		Detail: fmt.Sprintf("%s: %d registered runner(s)", owner, runners.TotalCount)}
}

// CheckRunnerTokenFormat validates GITHUB_RUNNER_TOKEN offline. Registration
// tokens are opaque, single-use strings starting with 'A'; presence and shape
// are all that can be checked.
func CheckRunnerTokenFormat(token string) Result {
	switch {
	case token == "":
		return Result{Key: "GITHUB_RUNNER_TOKEN", Status: StatusMissing, Detail: "not set"}
	case len(token) < 20 || !strings.HasPrefix(token, "A"):
		return Result{Key: "GITHUB_RUNNER_TOKEN", Status: StatusInvalid,
			Detail: "does not look like a runner registration token"}
	default:
		return Result{Key: "GITHUB_RUNNER_TOKEN", Status: StatusValid, Detail: "format ok (token is single-use, not probed)"}
	}
}

// VerifyDockerHub checks username+token against the Docker Hub login
// endpoint.
func (v *Verifier) VerifyDockerHub(ctx context.Context, username, token string) Result {
	const key = "DOCKER_ACCESS_TOKEN"
	if username == "" {
		return Result{Key: "DOCKER_USERNAME", Status: StatusMissing, Detail: "not set"}
	}
	if token == "" {
		return Result{Key: key, Status: StatusMissing, Detail: "not set"}
	}

	base := v.DockerHubURL
	if base == "" {
		base = DefaultDockerHubURL
	}
	body, err := json.Marshal(map[string]string{"username": username, "password": token})
	if err != nil {
		return Result{Key: key, Status: StatusUnknown, Detail: err.Error()}
	}

	var statusCode int
	err = v.withRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimSuffix(base, "/")+"/users/login", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := v.httpClient().Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		statusCode = resp.StatusCode
		return nil
	})
	if err != nil {
		return Result{Key: key, Status: StatusUnknown, Detail: fmt.Sprintf("probe failed: %v", err)}
	}

	switch {
	case statusCode == http.StatusOK:
		return Result{Key: key, Status: StatusValid, Detail: fmt.Sprintf("login ok for %s", username)}
	case statusCode == http.StatusUnauthorized:
		return Result{Key: key, Status: StatusInvalid, Detail: "401 from hub.docker.com"}
	default:
		return Result{Key: key, Status: StatusUnknown, Detail: fmt.Sprintf("unexpected status %d", statusCode)}
	}
}

// withRetry runs fn once, and once more after a fixed delay if it failed.
// HTTP error responses (which go-github surfaces as *github.ErrorResponse)
// are verdicts, not transport trouble, so they are not retried.
func (v *Verifier) withRetry(ctx context.Context, fn func(context.Context) error) error {
	attempt := func() error {
		actx, cancel := context.WithTimeout(ctx, v.timeout())
		defer cancel()
		return fn(actx)
	}

	err := attempt()
	if err == nil {
		return nil
	}
	var ghErr *github.ErrorResponse
	if asGitHubError(err, &ghErr) {
		return err
	}
	select {
	case <-ctx.Done():
		return err
	case <-time.After(v.retryDelay()):
	}
	return attempt()
}

func asGitHubError(err error, target **github.ErrorResponse) bool {
	return errors.As(err, target)
}
