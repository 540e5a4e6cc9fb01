package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"profiled/internal/config"
	"profiled/internal/hardware"
	"profiled/internal/manager"
	"profiled/internal/workload"
)

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func buildProber(cfg config.Config, log *zerolog.Logger) *hardware.Prober {
	strategies := []hardware.Strategy{
		hardware.SMIStrategy{Runner: hardware.ExecRunner{}, Bin: cfg.Hardware.SMIBin},
	}
	if !cfg.Hardware.DisableContainerProbe {
		strategies = append(strategies, hardware.ContainerSMIStrategy{
			Runner:    hardware.ExecRunner{},
			DockerBin: cfg.Compose.DockerBin,
			Image:     cfg.Hardware.CUDAImage,
		})
	}
	return hardware.New(hardware.Config{
		Strategies:      strategies,
		StrategyTimeout: seconds(cfg.Hardware.TimeoutSeconds),
		Logger:          log,
	})
}

func buildController(cfg config.Config, w *workload.Waiter, log *zerolog.Logger) workload.Controller {
	if cfg.Backend == config.BackendProcess {
		return workload.NewProcessController(workload.ProcessConfig{
			Bin:       cfg.Process.Bin,
			Host:      cfg.Process.Host,
			Port:      cfg.Process.Port,
			ExtraArgs: cfg.Process.ExtraArgs,
			StopGrace: seconds(cfg.StopGraceSeconds),
			Waiter:    w,
			Logger:    log,
		})
	}
	return workload.NewComposeController(workload.ComposeConfig{
		DockerBin:   cfg.Compose.DockerBin,
		ComposeFile: cfg.Compose.File,
		ProjectDir:  cfg.Compose.ProjectDir,
		Service:     cfg.Compose.Service,
		StopGrace:   seconds(cfg.StopGraceSeconds),
		Waiter:      w,
		Logger:      log,
	})
}

// buildManager wires the orchestrator from cfg. ctx bounds the manager lifetime.
func buildManager(ctx context.Context, cfg config.Config, log *zerolog.Logger) *manager.Manager {
	endpoint := workload.NewEndpoint(workload.EndpointConfig{
		BaseURL:  cfg.EndpointURL,
		APIKey:   cfg.EndpointAPIKey,
		RetryMax: cfg.EndpointRetries,
		Logger:   log,
	})
	waiter := workload.NewWaiter(endpoint, seconds(cfg.ReadyIntervalSeconds), log)
	return manager.NewWithConfig(manager.ManagerConfig{
		ProfilesPath: cfg.ProfilesPath,
		Prober:       buildProber(cfg, log),
		Controller:   buildController(cfg, waiter, log),
		Reconciler:   workload.NewReconciler(endpoint, seconds(cfg.StatusTimeoutSeconds)),
		ReadyTimeout: seconds(cfg.ReadyTimeoutSeconds),
		Publisher:    manager.LogPublisher{Log: *log},
		Logger:       log,
		BaseContext:  ctx,
	})
}
