package workload

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"profiled/pkg/types"
)

const (
	DefaultComposeService = "vllm"
	DefaultStopGrace      = 5 * time.Second
)

// ComposeConfig configures a ComposeController. Zero values take defaults.
type ComposeConfig struct {
	DockerBin   string
	ComposeFile string
	ProjectDir  string
	Service     string
	StopGrace   time.Duration
	Runner      CommandRunner
	Waiter      *Waiter
	Logger      *zerolog.Logger
}

// ComposeController drives a docker compose service whose engine reads the
// profile from its environment.
type ComposeController struct {
	bin     string
	file    string
	dir     string
	service string
	grace   time.Duration
	runner  CommandRunner
	waiter  *Waiter
	log     zerolog.Logger
}

func NewComposeController(cfg ComposeConfig) *ComposeController {
	c := &ComposeController{
		bin:     cfg.DockerBin,
		file:    cfg.ComposeFile,
		dir:     cfg.ProjectDir,
		service: cfg.Service,
		grace:   cfg.StopGrace,
		runner:  cfg.Runner,
		waiter:  cfg.Waiter,
		log:     zerolog.Nop(),
	}
	if c.bin == "" {
		c.bin = "docker"
	}
	if c.service == "" {
		c.service = DefaultComposeService
	}
	if c.grace < 0 {
		c.grace = 0
	} else if c.grace == 0 {
		c.grace = DefaultStopGrace
	}
	if c.runner == nil {
		c.runner = ExecRunner{}
	}
	if cfg.Logger != nil {
		c.log = cfg.Logger.With().Str("component", "compose").Str("service", c.service).Logger()
	}
	return c
}

func (c *ComposeController) command(env []string, args ...string) Command {
	full := []string{"compose"}
	if c.file != "" {
		full = append(full, "-f", c.file)
	}
	full = append(full, args...)
	return Command{Name: c.bin, Args: full, Env: env, Dir: c.dir}
}

// Stop stops the service and then waits the grace period so the engine can
// release GPU memory. The grace period also follows a failed stop command.
func (c *ComposeController) Stop(ctx context.Context) error {
	cmd := c.command(nil, "stop", c.service)
	c.log.Info().Str("cmd", cmd.String()).Msg("stopping workload")
	stderr, err := c.runner.Run(ctx, cmd)
	if serr := sleepCtx(ctx, c.grace); serr != nil {
		return serr
	}
	if err != nil {
		return &ControlError{Op: "stop", Err: err, Stderr: stderr}
	}
	return nil
}

// Start brings the service up with the profile rendered into its environment.
func (c *ComposeController) Start(ctx context.Context, p types.Profile) error {
	cmd := c.command(ProfileEnv(p), "up", "-d", c.service)
	c.log.Info().Str("cmd", cmd.String()).Str("profile", p.ID).Str("model", p.ModelID).Msg("starting workload")
	if stderr, err := c.runner.Run(ctx, cmd); err != nil {
		return &ControlError{Op: "start", Err: err, Stderr: stderr}
	}
	return nil
}

func (c *ComposeController) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	if c.waiter == nil {
		return nil
	}
	return c.waiter.WaitUntilReady(ctx, timeout)
}

// ProfileEnv renders the engine environment for p.
func ProfileEnv(p types.Profile) []string {
	return []string{
		"MODEL_ID=" + p.ModelID,
		"VLLM_MAXLEN=" + strconv.Itoa(p.MaxModelLen),
		"VLLM_TP=" + strconv.Itoa(p.TensorParallelSize),
		"VLLM_UTIL=" + strconv.FormatFloat(p.GPUMemoryUtilization, 'f', -1, 64),
		"VLLM_SWAP_SPACE=" + strconv.Itoa(p.SwapSpaceGB),
		"VLLM_DTYPE=" + strings.TrimSpace(p.DType),
	}
}
