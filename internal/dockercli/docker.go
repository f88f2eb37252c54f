package dockercli

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Docker wraps the docker CLI.
type Docker struct {
	Runner *Runner
	// Bin overrides the docker binary name, for tests.
	Bin string
}

func (d *Docker) bin() string {
	if d.Bin != "" {
		return d.Bin
	}
	return "docker"
}

// BuildOpts parameterizes a buildx build.
type BuildOpts struct {
	Dockerfile string
	ContextDir string
	Tag        string
	NoCache    bool
	// CacheRef, when set, adds registry cache hints (--cache-from/--cache-to).
	CacheRef  string
	BuildArgs map[string]string
	// SecretEnvs passes environment variables as build secrets
	// (--secret id=NAME,env=NAME), keeping them out of image layers.
	SecretEnvs []string
}

// BuildxBuild runs docker buildx build with cache hints.
func (d *Docker) BuildxBuild(ctx context.Context, opts BuildOpts) error {
	args := []string{"buildx", "build", "--load"}
	if opts.Tag != "" {
		args = append(args, "-t", opts.Tag)
	}
	if opts.Dockerfile != "" {
		args = append(args, "-f", opts.Dockerfile)
	}
	if opts.NoCache {
		args = append(args, "--no-cache")
	}
	if opts.CacheRef != "" {
		args = append(args, "--cache-from", "type=registry,ref="+opts.CacheRef)
		args = append(args, "--cache-to", "type=registry,ref="+opts.CacheRef+",mode=max")
	}

	keys := make([]string, 0, len(opts.BuildArgs))
	for k := range opts.BuildArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--build-arg", k+"="+opts.BuildArgs[k])
	}
	for _, name := range opts.SecretEnvs {
		args = append(args, "--secret", "id="+name+",env="+name)
	}

	dir := opts.ContextDir
	if dir == "" {
		dir = "."
	}
	args = append(args, dir)
	return d.Runner.Run(ctx, d.bin(), args...)
}

// Ping checks that the docker daemon is reachable.
func (d *Docker) Ping(ctx context.Context) error {
	_, err := d.Runner.Output(ctx, d.bin(), "info", "--format", "{{.ServerVersion}}")
	return err
}

// VolumeNames lists existing named volumes.
func (d *Docker) VolumeNames(ctx context.Context) ([]string, error) {
	out, err := d.Runner.Output(ctx, d.bin(), "volume", "ls", "--format", "{{.Name}}")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// VolumeRemove deletes a named volume.
func (d *Docker) VolumeRemove(ctx context.Context, name string, force bool) error {
	args := []string{"volume", "rm"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, name)
	return d.Runner.Run(ctx, d.bin(), args...)
}

// ContainerID resolves a container name to an ID, or "" when not running.
func (d *Docker) ContainerID(ctx context.Context, name string) (string, error) {
	out, err := d.Runner.Output(ctx, d.bin(), "ps", "-aq", "--filter", "name="+name)
	if err != nil {
		return "", err
	}
	return strings.SplitN(out, "\n", 2)[0], nil
}

// Inspect returns the raw inspect JSON for a container or image.
func (d *Docker) Inspect(ctx context.Context, target string) (string, error) {
	return d.Runner.Output(ctx, d.bin(), "inspect", target)
}

// Logs streams a container's logs.
func (d *Docker) Logs(ctx context.Context, container string, follow bool, tail int) error {
	args := []string{"logs"}
	if follow {
		args = append(args, "-f")
	}
	if tail > 0 {
		args = append(args, "--tail", fmt.Sprint(tail))
	}
	args = append(args, container)
	return d.Runner.Run(ctx, d.bin(), args...)
}

// ContainerRemove stops and removes a container.
func (d *Docker) ContainerRemove(ctx context.Context, name string, force bool) error {
	args := []string{"rm"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, name)
	return d.Runner.Run(ctx, d.bin(), args...)
}

// Prune removes dangling build cache and images.
func (d *Docker) Prune(ctx context.Context) error {
	if err := d.Runner.Run(ctx, d.bin(), "builder", "prune", "-f"); err != nil {
		return err
	}
	return d.Runner.Run(ctx, d.bin(), "image", "prune", "-f")
}
