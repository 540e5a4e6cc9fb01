package hardware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"profiled/pkg/types"
)

// Default binaries and image used by the built-in strategies.
const (
	DefaultSMIBin    = "nvidia-smi"
	DefaultDockerBin = "docker"
	DefaultCUDAImage = "nvidia/cuda:12.1-runtime-ubuntu22.04"
)

var smiQueryArgs = []string{
	"--query-gpu=name,memory.total,memory.used,memory.free",
	"--format=csv,noheader,nounits",
}

var errNoAccelerators = errors.New("no accelerators reported")

// Runner executes an external command and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec. Failures include a stderr tail.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		tail := strings.TrimSpace(stderr.String())
		if len(tail) > 512 {
			tail = tail[len(tail)-512:]
		}
		if tail != "" {
			return out, fmt.Errorf("%s: %w: %s", name, err, tail)
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Strategy is one way of discovering the accelerator inventory.
type Strategy interface {
	Name() string
	Query(ctx context.Context) ([]types.Accelerator, error)
}

// SMIStrategy queries nvidia-smi on the host.
type SMIStrategy struct {
	Runner Runner
	Bin    string
}

func (s SMIStrategy) Name() string { return "nvidia-smi" }

func (s SMIStrategy) Query(ctx context.Context) ([]types.Accelerator, error) {
	bin := s.Bin
	if bin == "" {
		bin = DefaultSMIBin
	}
	return runSMI(ctx, s.Runner, bin, smiQueryArgs...)
}

// ContainerSMIStrategy runs nvidia-smi inside a throwaway CUDA container,
// for hosts where the gateway itself cannot reach the driver.
type ContainerSMIStrategy struct {
	Runner    Runner
	DockerBin string
	Image     string
}

func (s ContainerSMIStrategy) Name() string { return "docker" }

func (s ContainerSMIStrategy) Query(ctx context.Context) ([]types.Accelerator, error) {
	bin, image := s.DockerBin, s.Image
	if bin == "" {
		bin = DefaultDockerBin
	}
	if image == "" {
		image = DefaultCUDAImage
	}
	args := append([]string{"run", "--rm", "--gpus=all", image, DefaultSMIBin}, smiQueryArgs...)
	return runSMI(ctx, s.Runner, bin, args...)
}

func runSMI(ctx context.Context, r Runner, bin string, args ...string) ([]types.Accelerator, error) {
	if r == nil {
		r = ExecRunner{}
	}
	out, err := r.Run(ctx, bin, args...)
	if err != nil {
		return nil, err
	}
	gpus := ParseSMI(out)
	if len(gpus) == 0 {
		return nil, errNoAccelerators
	}
	return gpus, nil
}

// ParseSMI parses `name, total, used, free` CSV lines (MiB, no units). The
// memory fields are taken from the end of the line so names containing commas
// survive. Malformed lines and negative values are skipped.
func ParseSMI(out []byte) []types.Accelerator {
	var gpus []types.Accelerator
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 4 {
			continue
		}
		n := len(parts)
		name := strings.TrimSpace(strings.Join(parts[:n-3], ","))
		var mem [3]int
		ok := name != ""
		for i, f := range parts[n-3:] {
			v, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil || v < 0 {
				ok = false
				break
			}
			mem[i] = v
		}
		if !ok {
			continue
		}
		gpus = append(gpus, types.Accelerator{Name: name, TotalMB: mem[0], UsedMB: mem[1], FreeMB: mem[2]})
	}
	return gpus
}
