package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"forcefocus/internal/config"
	"forcefocus/internal/daemon"
	"forcefocus/internal/database"
	"forcefocus/internal/input"
	"forcefocus/internal/monitor"
	"forcefocus/internal/realtime"
	"forcefocus/internal/remote"
	"forcefocus/internal/reporter"
	"forcefocus/internal/session"
	"forcefocus/internal/visibility"
	"forcefocus/internal/web"
	"forcefocus/pkg/detector"
	"forcefocus/pkg/integrations/x11"
	"forcefocus/pkg/utils"
)

func newServeCmd(configPath *string) *cobra.Command {
	var foreground bool
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the agent with its web API (detaches unless --foreground)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if port > 0 {
				if err := cfg.SetWebPort(port); err != nil {
					return err
				}
			}

			dm := daemon.New(cfg.Daemon.PIDFile, cfg.Daemon.LogFile)
			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}
			if running {
				return fmt.Errorf("daemon is already running (PID: %d)", pid)
			}

			if !foreground && !daemon.IsChild() {
				childPID, err := daemon.Spawn(os.Args[1:])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Daemon started successfully (PID: %d)\n", childPID)
				fmt.Fprintf(cmd.OutOrStdout(), "Web API available at: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
				fmt.Fprintf(cmd.OutOrStdout(), "Logs: %s\n", dm.LogFile())
				return nil
			}

			if daemon.IsChild() {
				closer, err := dm.RedirectLog()
				if err == nil {
					defer closer.Close()
				}
			}
			return runAgent(cfg, *configPath, dm)
		},
	}
	cmd.Flags().BoolVar(&foreground, "foreground", false, "stay attached to the terminal")
	cmd.Flags().IntVar(&port, "port", 0, "override the web API port")
	return cmd
}

func runAgent(cfg *config.Config, configPath string, dm *daemon.Daemon) error {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	det, err := detector.New()
	if err != nil {
		return fmt.Errorf("failed to initialize window detector: %w", err)
	}
	defer det.Close()

	if err := dm.WritePID(); err != nil {
		return err
	}
	defer dm.RemovePID()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := database.NewRepository(db)
	store := database.NewSessionStore(db)

	// A nil backend makes every session local.
	var backend session.Backend
	var feedback web.FeedbackSender
	if cfg.Remote.Enabled {
		client := remote.New(cfg.Remote.BaseURL, cfg.Remote.Token, cfg.Remote.Timeout)
		backend, feedback = client, client
	}

	collector := input.NewCollector(time.Now())
	manager := session.NewManager(backend, store)
	hub := realtime.NewHub(manager.Active)
	defer hub.Close()

	monitorSvc := monitor.NewService(cfg.Monitor.PollInterval, cfg.EngineRules(), det, collector, repo, hub)
	manager.AddListener(monitorSvc)
	manager.AddListener(hub)

	if info, ok, err := manager.Restore(ctx); err != nil {
		log.Printf("Failed to restore session: %v", err)
	} else if ok {
		log.Printf("Resuming session %s", info.SessionID)
	}

	// XWayland still exposes the X input state to the poller.
	if os.Getenv("DISPLAY") != "" {
		poller := x11.NewInputPoller(collector, cfg.Monitor.InputPoll)
		go func() {
			if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Input listener stopped: %v", err)
			}
		}()
	} else {
		log.Printf("No X display, idle time is measured from agent start")
	}

	visible := visibility.NewDetector(det, cfg.VisibilityFilter())
	handler := web.NewHandler(web.Deps{
		Config:        cfg,
		Sessions:      manager,
		Monitor:       monitorSvc,
		Inputs:        collector,
		Focus:         det,
		Visible:       visible,
		Feedback:      feedback,
		Reports:       reporter.New(cfg, repo),
		Interventions: repo,
		Processes:     utils.ListProcesses,
		Stream:        hub,
	})
	webServer := web.NewServer(cfg, handler.Routes(), 0)

	if watcher := startConfigWatcher(ctx, configPath, monitorSvc); watcher != nil {
		defer watcher.Close()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := webServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Printf("Web server error: %v", err)
			cancel()
		}
	}()

	go func() {
		if err := monitorSvc.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Monitor error: %v", err)
			cancel()
		}
	}()

	log.Println("Starting forcefocus agent with web API...")
	log.Printf("Web API available at: http://%s", webServer.GetAddress())
	log.Printf("Configuration:\n%s", cfg.String())

	select {
	case <-sigChan:
		log.Println("Received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel()
	monitorSvc.Stop()

	if err := webServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down web server: %v", err)
	}

	log.Println("Daemon stopped successfully")
	return nil
}

// startConfigWatcher reloads scoring rules when the config file changes. It
// returns nil when there is no file to watch.
func startConfigWatcher(ctx context.Context, configPath string, monitorSvc *monitor.Service) *config.Watcher {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	watcher := config.NewWatcher(path, func(newCfg *config.Config, err error) {
		if err != nil {
			log.Printf("Ignoring invalid config change: %v", err)
			return
		}
		monitorSvc.SetRules(newCfg.EngineRules())
		log.Printf("Scoring rules reloaded from %s; they apply from the next session", path)
	})
	if err := watcher.Start(ctx); err != nil {
		log.Printf("Config watcher disabled: %v", err)
		return nil
	}
	return watcher
}
