package dockercli

import "context"

// Devcontainer wraps the devcontainer CLI.
type Devcontainer struct {
	Runner *Runner
	// Bin overrides the devcontainer binary name, for tests.
	Bin string
}

func (d *Devcontainer) bin() string {
	if d.Bin != "" {
		return d.Bin
	}
	return "devcontainer"
}

// Up brings the devcontainer up for workspace.
func (d *Devcontainer) Up(ctx context.Context, workspace string, removeExisting bool) error {
	args := []string{"up", "--workspace-folder", workspace}
	if removeExisting {
		args = append(args, "--remove-existing-container")
	}
	return d.Runner.Run(ctx, d.bin(), args...)
}

// Build builds the devcontainer image for workspace without starting it.
func (d *Devcontainer) Build(ctx context.Context, workspace string, noCache bool) error {
	args := []string{"build", "--workspace-folder", workspace}
	if noCache {
		args = append(args, "--no-cache")
	}
	return d.Runner.Run(ctx, d.bin(), args...)
}
