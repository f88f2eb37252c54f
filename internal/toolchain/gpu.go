package toolchain

import (
	"os"
	"os/exec"
)

// GPUProbe detects whether the host exposes a GPU to the container. Fields
// exist so tests can point the probe at fake paths.
type GPUProbe struct {
	NvidiaSmi string // binary name to look up, default "nvidia-smi"
	DRIPath   string // device directory, default "/dev/dri"
}

// Detect reports whether a GPU is available and how it was found.
func (p GPUProbe) Detect() (bool, string) {
	smi := p.NvidiaSmi
	if smi == "" {
		smi = "nvidia-smi"
	}
	if _, err := exec.LookPath(smi); err == nil {
		return true, "nvidia-smi on PATH"
	}

	dri := p.DRIPath
	if dri == "" {
		dri = "/dev/dri"
	}
	if entries, err := os.ReadDir(dri); err == nil && len(entries) > 0 {
		return true, dri + " present"
	}
	return false, "no GPU detected"
}
