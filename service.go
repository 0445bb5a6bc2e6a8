package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/kardianos/service"
)

// program implements service.Interface
type program struct {
	configPath string
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	svcLogger  service.Logger
}

func (p *program) Start(s service.Service) error {
	p.svcLogger, _ = s.Logger(nil)
	if p.svcLogger != nil {
		p.svcLogger.Info("Tareeqa hardware service starting")
	}

	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})

	go p.run()
	return nil
}

func (p *program) run() {
	defer close(p.done)
	runDaemon(p.ctx, p.configPath)
	if p.svcLogger != nil {
		p.svcLogger.Info("Tareeqa hardware service stopped")
	}
}

func (p *program) Stop(s service.Service) error {
	if p.cancel != nil {
		p.cancel()
	}

	select {
	case <-p.done:
	case <-time.After(30 * time.Second):
		if p.svcLogger != nil {
			p.svcLogger.Warning("Tareeqa hardware service stopped with timeout")
		}
	}
	return nil
}

// getServiceConfig returns the service definition for the current platform.
func getServiceConfig() *service.Config {
	var workingDir string
	switch runtime.GOOS {
	case "windows":
		workingDir = filepath.Join(os.Getenv("ProgramData"), "Tareeqa")
	default:
		workingDir = "/var/lib/tareeqa"
	}

	return &service.Config{
		Name:             "TareeqaHardware",
		DisplayName:      "Tareeqa Hardware Bridge",
		Description:      "Connects barcode scanners, receipt printers and cash drawers to the Tareeqa point of sale over a loopback API.",
		WorkingDirectory: workingDir,
		Arguments:        []string{"-service", "run"},
		Option: service.KeyValue{
			// Windows service options
			"StartType":              "automatic",
			"OnFailure":              "restart",
			"OnFailureDelayDuration": "5s",

			// Linux systemd options
			"Restart":    "on-failure",
			"RestartSec": 5,
			"KillSignal": "SIGTERM",

			// macOS launchd options
			"RunAtLoad": true,
			"KeepAlive": true,
		},
	}
}

// setupServiceDirectories creates the data and log directories the service
// account needs before first start.
func setupServiceDirectories() error {
	var dirs []string
	switch runtime.GOOS {
	case "windows":
		baseDir := filepath.Join(os.Getenv("ProgramData"), "Tareeqa")
		dirs = []string{
			baseDir,
			filepath.Join(baseDir, "hardware"),
			filepath.Join(baseDir, "hardware", "logs"),
		}
	default:
		dirs = []string{
			"/var/lib/tareeqa/hardware",
			"/var/log/tareeqa",
			"/etc/tareeqa",
		}
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// handleServiceCommand processes -service install/uninstall/start/stop/run.
func handleServiceCommand(cmd, configPath string) {
	prg := &program{configPath: configPath}
	s, err := service.New(prg, getServiceConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create service: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case "install":
		if err := setupServiceDirectories(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to set up service directories: %v\n", err)
			os.Exit(1)
		}
		if err := s.Install(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to install service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service installed")
	case "uninstall":
		if err := s.Uninstall(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to uninstall service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service uninstalled")
	case "start":
		if err := s.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to start service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service started")
	case "stop":
		if err := s.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to stop service: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Service stopped")
	case "run":
		if err := s.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Service run failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown service command %q (want install, uninstall, start, stop or run)\n", cmd)
		os.Exit(1)
	}
}
