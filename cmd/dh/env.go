package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/envfile"
	"golang.org/x/term"
)

func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage the devcontainer secrets file (.env)",
	}

	cmd.AddCommand(newEnvSetupCmd())
	cmd.AddCommand(newEnvShowCmd())
	cmd.AddCommand(newEnvInitCmd())
	return cmd
}

func newEnvSetupCmd() *cobra.Command {
	var (
		configPath     string
		fromFile       string
		nonInteractive bool
	)

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Capture secrets into the .env file",
		Long: `Writes the five required secrets (GH_PAT, GITHUB_OWNER,
GITHUB_RUNNER_TOKEN, DOCKER_ACCESS_TOKEN, DOCKER_USERNAME) to the .env file
with mode 600 and adds it to .gitignore.

Values come from, in order: --from-file, the process environment, then an
interactive masked prompt. --non-interactive skips the prompt and fails if
any required value is still missing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvSetup(cmd, configPath, fromFile, nonInteractive)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	cmd.Flags().StringVar(&fromFile, "from-file", "", "read initial values from an existing env file")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "never prompt; fail on missing values")
	return cmd
}

func runEnvSetup(cmd *cobra.Command, configPath, fromFile string, nonInteractive bool) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	envPath := filepath.Join(cfg.Workspace, cfg.EnvFile)

	f := envfile.New()

	// Seed from an existing .env so setup can be re-run to fill gaps.
	if existing, err := envfile.Load(envPath); err == nil {
		for _, k := range existing.Keys() {
			f.Set(k, existing.Get(k))
		}
	}

	if fromFile != "" {
		imported, err := envfile.Load(fromFile)
		if err != nil {
			return err
		}
		for _, k := range imported.Keys() {
			f.Set(k, imported.Get(k))
		}
		fmt.Fprintf(out, "Imported %d value(s) from %s\n", len(imported.Keys()), fromFile)
	}

	for _, k := range envfile.RequiredKeys {
		if f.Get(k) == "" {
			if v := os.Getenv(k); v != "" {
				f.Set(k, v)
			}
		}
	}

	if !nonInteractive {
		if err := promptMissing(cmd, f); err != nil {
			return err
		}
	}

	if missing := f.Missing(); len(missing) > 0 {
		return fmt.Errorf("missing required value(s): %s", strings.Join(missing, ", "))
	}

	if err := f.Write(envPath); err != nil {
		return err
	}
	if err := envfile.EnsureGitIgnored(filepath.Dir(envPath), filepath.Base(envPath)); err != nil {
		return err
	}

	fmt.Fprintf(out, "Wrote %s (mode 600, git-ignored)\n", envPath)
	return nil
}

// promptMissing asks for each absent required key. Secrets are read masked
// when stdin is a terminal; otherwise a plain line read keeps piped input
// working.
func promptMissing(cmd *cobra.Command, f *envfile.File) error {
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(cmd.InOrStdin())

	for _, k := range envfile.RequiredKeys {
		if f.Get(k) != "" {
			continue
		}
		fmt.Fprintf(out, "%s: ", k)
		value, err := readSecret(cmd, reader, k)
		if err != nil {
			return fmt.Errorf("read %s: %w", k, err)
		}
		f.Set(k, strings.TrimSpace(value))
	}
	return nil
}

func readSecret(cmd *cobra.Command, reader *bufio.Reader, key string) (string, error) {
	// Owner and username aren't secret; echo them.
	masked := key != "GITHUB_OWNER" && key != "DOCKER_USERNAME"

	if stdin, ok := cmd.InOrStdin().(*os.File); ok && masked && term.IsTerminal(int(stdin.Fd())) {
		b, err := term.ReadPassword(int(stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		return string(b), err
	}

	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return line, nil
}

func newEnvShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show which secrets are set (values are never printed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvShow(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	return cmd
}

func runEnvShow(cmd *cobra.Command, configPath string) error {
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

	for _, k := range envfile.RequiredKeys {
		state := "SET"
		if f.Get(k) == "" {
			state = "UNSET"
		}
		fmt.Fprintf(out, "%-22s %s\n", k, state)
	}
	for _, k := range f.SortedExtraKeys() {
		fmt.Fprintf(out, "%-22s SET (extra)\n", k)
	}

	mode, err := envfile.Mode(envPath)
	if err == nil && mode != 0o600 {
		fmt.Fprintf(out, "\nWARNING: %s has mode %o, want 600\n", envPath, mode)
	}
	if !envfile.IsGitIgnored(filepath.Dir(envPath), filepath.Base(envPath)) {
		fmt.Fprintf(out, "WARNING: %s is not listed in .gitignore\n", filepath.Base(envPath))
	}
	return nil
}

func newEnvInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Load .env values into the environment report (lifecycle hook step)",
		Long: `Used by lifecycle hooks: loads the .env file if present, tightens its
mode to 600, and reports what was loaded. Never fails: a missing .env just
means the container runs without captured secrets.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	return cmd
}

func runEnvInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	envPath := filepath.Join(cfg.Workspace, cfg.EnvFile)

	f, err := envfile.Load(envPath)
	if err != nil {
		fmt.Fprintf(out, "No %s found; continuing without secrets\n", envPath)
		return nil
	}
	f.LoadIntoEnv()
	fmt.Fprintf(out, "Loaded %d value(s) from %s\n", len(f.Keys()), envPath)
	if missing := f.Missing(); len(missing) > 0 {
		fmt.Fprintf(out, "Still missing: %s\n", strings.Join(missing, ", "))
	}
	return nil
}
