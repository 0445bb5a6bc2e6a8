// Tareeqa hardware bridge: the daemon that connects barcode scanners,
// ESC/POS receipt printers and cash drawers to the Tareeqa point of sale.
// The till front-end talks to it over a loopback HTTP API and a WebSocket
// event stream; the hardware packages are importable on their own for hosts
// that embed the bridge instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/kardianos/service"

	"github.com/Shehab101tf/tareeqa0-sub002/events"
	"github.com/Shehab101tf/tareeqa0-sub002/hardware"
	"github.com/Shehab101tf/tareeqa0-sub002/logger"
	"github.com/Shehab101tf/tareeqa0-sub002/spooler"
	"github.com/Shehab101tf/tareeqa0-sub002/storage"
)

// Version information (set at build time via -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// journalRetention bounds how much history the journal keeps.
const journalRetention = 90 * 24 * time.Hour

var consoleQuiet bool

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	generateConfig := flag.Bool("generate-config", false, "Generate default config file and exit")
	serviceCmd := flag.String("service", "", "Service control: install, uninstall, start, stop, run")
	showVersion := flag.Bool("version", false, "Show version information and exit")
	quiet := flag.Bool("quiet", false, "Suppress console log output")
	flag.BoolVar(quiet, "q", false, "Shorthand for -quiet")
	flag.Parse()

	consoleQuiet = *quiet

	if *showVersion {
		fmt.Printf("Tareeqa Hardware Bridge %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Printf("Go Version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return
	}

	if *generateConfig {
		path := *configPath
		if path == "" {
			path = configFileName
		}
		if err := WriteDefaultConfig(path); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at %s\n", path)
		return
	}

	if *serviceCmd != "" {
		handleServiceCommand(*serviceCmd, *configPath)
		return
	}

	if !service.Interactive() {
		handleServiceCommand("run", *configPath)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runDaemon(ctx, *configPath)
}

// runDaemon assembles the whole stack and runs it until ctx is canceled.
// Both the interactive path and the service wrapper land here.
func runDaemon(ctx context.Context, configFlag string) {
	isService := !service.Interactive()

	// configuration first; the log directory and level come from it
	cfg, cfgPath, err := LoadConfig(configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(logger.LevelFromString(cfg.Logging.Level), cfg.logDirectory(isService), 1000)
	appLogger.SetRotationPolicy(logger.RotationPolicy{
		Enabled:    true,
		MaxSizeMB:  10,
		MaxAgeDays: 7,
		MaxFiles:   5,
	})
	if consoleQuiet {
		appLogger.SetConsoleOutput(false)
	}
	defer appLogger.Close()

	appLogger.Info("Tareeqa hardware bridge starting",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit)
	if cfgPath != "" {
		appLogger.Info("Loaded configuration", "path", cfgPath)
	} else {
		appLogger.Warn("No config.toml found, using defaults")
	}

	// route the library packages' logs through the app logger
	hardware.SetLogger(appLogger)
	spooler.SetLogger(appLogger)
	storage.SetLogger(appLogger)

	regCfg, err := cfg.registryConfig()
	if err != nil {
		appLogger.Error("Invalid printer configuration", "error", err.Error())
		os.Exit(1)
	}

	dbPath, err := cfg.databasePath(isService)
	if err != nil {
		appLogger.Warn("Data directory unavailable, keeping history in memory", "error", err.Error())
		dbPath = ""
	}
	journal, err := storage.Open(dbPath)
	if err != nil {
		appLogger.Warn("Journal database unavailable, keeping history in memory", "path", dbPath, "error", err.Error())
		if journal, err = storage.Open(""); err != nil {
			appLogger.Error("Failed to open journal", "error", err.Error())
			os.Exit(1)
		}
	}

	bus := events.NewBus()
	registry := hardware.New(regCfg, bus)

	go journalPump(ctx, journal, bus, appLogger)
	go journalMaintenance(ctx, journal, appLogger)

	devices := registry.Detect()
	if cfg.Detection.Autoconnect {
		autoconnect(registry, devices, appLogger)
	}

	if interval := cfg.Detection.IntervalSeconds; interval > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(interval) * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					found := registry.Detect()
					if cfg.Detection.Autoconnect {
						autoconnect(registry, found, appLogger)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	var web *webServer
	if cfg.Web.Enabled {
		web = newWebServer(cfg, appLogger, registry, journal, bus)
		web.start()
	}

	<-ctx.Done()
	appLogger.Info("Shutdown requested")

	if web != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := web.shutdown(shutdownCtx); err != nil {
			appLogger.Warn("Web API shutdown incomplete", "error", err.Error())
		}
		cancel()
	}
	registry.DisconnectAll()
	bus.Stop()
	if err := journal.Close(); err != nil {
		appLogger.Warn("Journal close failed", "error", err.Error())
	}
	appLogger.Info("Tareeqa hardware bridge stopped")
}

// autoconnect opens the first scanner and the first printer in the detected
// list, the usual till layout of one of each. Failures are logged and the
// next candidate of the same kind is tried.
func autoconnect(registry *hardware.Registry, devices []hardware.Device, appLogger *logger.Logger) {
	var haveScanner, havePrinter bool
	for _, dev := range devices {
		switch {
		case dev.Kind == hardware.KindScanner && !haveScanner:
			if err := registry.Connect(dev.ID); err != nil {
				appLogger.Warn("Autoconnect failed", "device_id", dev.ID, "error", err.Error())
				continue
			}
			haveScanner = true
		case dev.Kind == hardware.KindPrinter && !havePrinter:
			if err := registry.Connect(dev.ID); err != nil {
				appLogger.Warn("Autoconnect failed", "device_id", dev.ID, "error", err.Error())
				continue
			}
			havePrinter = true
		}
	}
}

// journalPump copies scan and job events from the bus into the journal.
// Write failures are logged and dropped; history never stalls the hardware.
func journalPump(ctx context.Context, journal *storage.Journal, bus *events.Bus, appLogger *logger.Logger) {
	sub := bus.Subscribe("journal", 256)
	defer bus.Unsubscribe("journal")

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			recordEvent(journal, ev, appLogger)
		case <-ctx.Done():
			return
		}
	}
}

func recordEvent(journal *storage.Journal, ev events.Event, appLogger *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch ev.Type {
	case events.EventBarcodeScanned:
		scan, ok := ev.Data.(hardware.Scan)
		if !ok {
			return
		}
		err := journal.RecordScan(ctx, storage.ScanRecord{
			DeviceID:  scan.DeviceID,
			Barcode:   scan.Barcode,
			Format:    scan.Format,
			Valid:     scan.Valid,
			ScannedAt: scan.Timestamp,
		})
		if err != nil {
			appLogger.Warn("Journal scan write failed", "error", err.Error())
		}
	case events.EventJobCompleted, events.EventJobFailed:
		job, ok := ev.Data.(spooler.Job)
		if !ok {
			return
		}
		err := journal.RecordJob(ctx, storage.JobRecord{
			JobID:      job.ID,
			DeviceID:   job.DeviceID,
			Kind:       job.Kind,
			Priority:   job.Priority,
			Status:     job.Status,
			Error:      job.Error,
			CreatedAt:  job.CreatedAt,
			FinishedAt: ev.Timestamp,
		})
		if err != nil {
			appLogger.Warn("Journal job write failed", "error", err.Error())
		}
	}
}

// journalMaintenance prunes old history once at startup and then daily.
func journalMaintenance(ctx context.Context, journal *storage.Journal, appLogger *logger.Logger) {
	prune := func() {
		pruneCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := journal.Prune(pruneCtx, time.Now().Add(-journalRetention)); err != nil {
			appLogger.Warn("Journal prune failed", "error", err.Error())
		}
	}

	prune()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			prune()
		case <-ctx.Done():
			return
		}
	}
}
