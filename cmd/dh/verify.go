package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/creds"
	"github.com/zulandar/dockhand/internal/envfile"
	"github.com/zulandar/dockhand/internal/models"
)

func newVerifyCmd() *cobra.Command {
	var (
		configPath string
		offline    bool
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify captured credentials against GitHub and Docker Hub",
		Long: `Probes each captured credential against its real service: the GitHub PAT
against the API, runner access against the org runner endpoint, and the
Docker Hub token against hub.docker.com. --offline only checks that the
required keys are present.

Outcomes are recorded in the state store. The command fails when any
credential is missing or invalid; "unknown" (network trouble) does not fail.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, configPath, offline, timeout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	cmd.Flags().BoolVar(&offline, "offline", false, "only check that required keys are set")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "per-probe timeout")
	return cmd
}

func runVerify(cmd *cobra.Command, configPath string, offline bool, timeout time.Duration) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	envPath := filepath.Join(cfg.Workspace, cfg.EnvFile)

	f, err := envfile.Load(envPath)
	if err != nil {
		return fmt.Errorf("no %s yet; run 'dh env setup' first (%w)", envPath, err)
	}

	var results []creds.Result
	if offline {
		for _, k := range envfile.RequiredKeys {
			r := creds.Result{Key: k, Status: creds.StatusValid, Detail: "set"}
			if f.Get(k) == "" {
				r.Status = creds.StatusMissing
				r.Detail = "not set"
			}
			results = append(results, r)
		}
	} else {
		results = onlineProbes(cmd, cfg, f, timeout)
	}

	gdb, err := openState(cfg)
	if err == nil {
		now := time.Now()
		for _, r := range results {
			gdb.Create(&models.CredentialCheck{
				Key:       r.Key,
				Status:    string(r.Status),
				Detail:    r.Detail,
				CheckedAt: now,
			})
		}
	}

	failed := 0
	for _, r := range results {
		label := "PASS"
		switch r.Status {
		case creds.StatusInvalid, creds.StatusMissing:
			label = "FAIL"
			failed++
		case creds.StatusUnknown:
			label = "WARN"
		}
		fmt.Fprintf(out, "[%s] %-22s %s\n", label, r.Key, r.Detail)
	}

	if failed > 0 {
		return fmt.Errorf("%d credential(s) failed verification", failed)
	}
	fmt.Fprintln(out, "\nAll credentials verified")
	return nil
}

func onlineProbes(cmd *cobra.Command, cfg *config.Config, f *envfile.File, timeout time.Duration) []creds.Result {
	ctx := cmd.Context()
	v := &creds.Verifier{Timeout: timeout}

	pat := f.Get("GH_PAT")
	owner := f.Get("GITHUB_OWNER")
	runnerToken := f.Get("GITHUB_RUNNER_TOKEN")
	dockerUser := f.Get("DOCKER_USERNAME")
	dockerToken := f.Get("DOCKER_ACCESS_TOKEN")

	var results []creds.Result

	if pat == "" {
		results = append(results, creds.Result{Key: "GH_PAT", Status: creds.StatusMissing, Detail: "not set"})
	} else {
		results = append(results, v.VerifyGitHubPAT(ctx, pat))
	}

	if owner == "" {
		results = append(results, creds.Result{Key: "GITHUB_OWNER", Status: creds.StatusMissing, Detail: "not set"})
	} else if pat == "" {
		results = append(results, creds.Result{Key: "GITHUB_OWNER", Status: creds.StatusUnknown, Detail: "cannot probe without GH_PAT"})
	} else {
		results = append(results, v.VerifyRunnerAccess(ctx, pat, owner))
	}

	// Registration tokens are single-use, so only the format is checked.
	if runnerToken == "" {
		results = append(results, creds.Result{Key: "GITHUB_RUNNER_TOKEN", Status: creds.StatusMissing, Detail: "not set"})
	} else {
		results = append(results, creds.CheckRunnerTokenFormat(runnerToken))
	}

	switch {
	case dockerUser == "" && dockerToken == "":
		results = append(results,
			creds.Result{Key: "DOCKER_USERNAME", Status: creds.StatusMissing, Detail: "not set"},
			creds.Result{Key: "DOCKER_ACCESS_TOKEN", Status: creds.StatusMissing, Detail: "not set"})
	case dockerUser == "":
		results = append(results,
			creds.Result{Key: "DOCKER_USERNAME", Status: creds.StatusMissing, Detail: "not set"},
			creds.Result{Key: "DOCKER_ACCESS_TOKEN", Status: creds.StatusUnknown, Detail: "cannot probe without DOCKER_USERNAME"})
	case dockerToken == "":
		results = append(results,
			creds.Result{Key: "DOCKER_USERNAME", Status: creds.StatusUnknown, Detail: "cannot probe without DOCKER_ACCESS_TOKEN"},
			creds.Result{Key: "DOCKER_ACCESS_TOKEN", Status: creds.StatusMissing, Detail: "not set"})
	default:
		hub := v.VerifyDockerHub(ctx, dockerUser, dockerToken)
		results = append(results,
			creds.Result{Key: "DOCKER_USERNAME", Status: hub.Status, Detail: hub.Detail},
			hub)
	}

	return results
}
