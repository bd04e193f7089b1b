package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"forcefocus/internal/config"
	"forcefocus/internal/daemon"
	"forcefocus/internal/database"
	"forcefocus/internal/models"
	"forcefocus/internal/remote"
	"forcefocus/internal/reporter"
	"forcefocus/internal/visibility"
	"forcefocus/pkg/detector"
	"forcefocus/pkg/utils"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "forcefocus",
		Short:         "Focus session agent that watches for distraction and idling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/forcefocus/config.yaml)")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newStopCmd(&configPath))
	root.AddCommand(newStatusCmd(&configPath))
	root.AddCommand(newWindowsCmd(&configPath))
	root.AddCommand(newSessionCmd(&configPath))
	root.AddCommand(newFeedbackCmd(&configPath))
	root.AddCommand(newReportCmd(&configPath))
	root.AddCommand(newClearCmd(&configPath))
	root.AddCommand(newVersionCmd())
	return root
}

func newStopCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			dm := daemon.New(cfg.Daemon.PIDFile, cfg.Daemon.LogFile)

			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}
			if !running {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stopping daemon (PID: %d)...\n", pid)
			if err := dm.Stop(); err != nil {
				return fmt.Errorf("failed to stop daemon: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Daemon stopped successfully")
			return nil
		},
	}
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show agent status, active session and current window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			dm := daemon.New(cfg.Daemon.PIDFile, cfg.Daemon.LogFile)

			running, pid, err := dm.IsRunning()
			if err != nil {
				return fmt.Errorf("failed to check daemon status: %w", err)
			}

			if !running {
				fmt.Fprintln(out, "Status: Not running")
			} else {
				fmt.Fprintf(out, "Status: Running (PID: %d)\n", pid)
				fmt.Fprintf(out, "Poll Interval: %v\n", cfg.Monitor.PollInterval)
				fmt.Fprintf(out, "Web API: http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)

				var score struct {
					SessionID string `json:"session_id"`
					Score     int    `json:"score"`
					Trigger   string `json:"trigger"`
				}
				if err := newAgentClient(cfg).call(cmd.Context(), "GET", "/api/score", nil, &score); err == nil && score.SessionID != "" {
					fmt.Fprintf(out, "Deviation Score: %d (%s)\n", score.Score, score.Trigger)
				}
			}

			// The persisted record is readable even when the agent is down
			if db, err := database.Connect(cfg.Database.Path); err == nil {
				defer db.Close()
				if err := db.Initialize(); err == nil {
					if info, err := database.NewSessionStore(db).LoadActiveSession(); err == nil && info != nil {
						printSession(cmd, *info)
					}
				}
			}

			det, err := detector.New()
			if err != nil {
				fmt.Fprintf(out, "\nCould not detect current window: %v\n", err)
				return nil
			}
			defer det.Close()

			if w, err := det.GetFocusedWindow(); err == nil && w != nil {
				fmt.Fprintf(out, "\nCurrent Window:\n")
				fmt.Fprintf(out, "  App: %s\n", w.AppName)
				fmt.Fprintf(out, "  Title: %s\n", w.Title)
				fmt.Fprintf(out, "  Display: %s\n", w.DisplayServer)
			}
			return nil
		},
	}
}

func newWindowsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "windows",
		Short: "List on-screen windows and whether each is actually visible",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			det, err := detector.New()
			if err != nil {
				return err
			}
			defer det.Close()

			entries, err := visibility.NewDetector(det, cfg.VisibilityFilter()).VisibleWindows()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no windows")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "VISIBLE\tSIZE\tTITLE")
			for _, e := range entries {
				fmt.Fprintf(tw, "%v\t%dx%d\t%s\n", e.IsActuallyVisible, e.Rect.Width(), e.Rect.Height(), e.Title)
			}
			return tw.Flush()
		},
	}
}

func newSessionCmd(configPath *string) *cobra.Command {
	sess := &cobra.Command{Use: "session", Short: "Start or end a focus session on the running agent"}

	var taskID string
	var goal time.Duration
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a focus session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			body := map[string]interface{}{"goal_duration": int(goal / time.Second)}
			if taskID != "" {
				body["task_id"] = taskID
			}

			var info models.ActiveSessionInfo
			if err := newAgentClient(cfg).call(cmd.Context(), "POST", "/api/sessions/start", body, &info); err != nil {
				return err
			}
			printSession(cmd, info)
			return nil
		},
	}
	startCmd.Flags().StringVar(&taskID, "task", "", "backend task id (optional)")
	startCmd.Flags().DurationVar(&goal, "goal", 25*time.Minute, "goal duration")

	var score int
	endCmd := &cobra.Command{
		Use:   "end",
		Short: "End the active focus session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			body := map[string]int{"user_evaluation_score": score}
			if err := newAgentClient(cfg).call(cmd.Context(), "POST", "/api/sessions/end", body, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session ended")
			return nil
		},
	}
	endCmd.Flags().IntVar(&score, "score", 0, "self-evaluation score")

	sess.AddCommand(startCmd, endCmd)
	return sess
}

func newFeedbackCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <event-id> <is_work|distraction_ignored>",
		Short: "Send feedback about an intervention",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if id, err := strconv.ParseUint(args[0], 10, 64); err != nil || id == 0 {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			kind := remote.FeedbackType(args[1])
			if !kind.Valid() {
				return fmt.Errorf("invalid feedback type %q (valid: %s, %s)", args[1], remote.FeedbackIsWork, remote.FeedbackDistractionIgnored)
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			body := map[string]string{"event_id": args[0], "feedback_type": string(kind)}
			if err := newAgentClient(cfg).call(cmd.Context(), "POST", "/api/feedback", body, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Feedback submitted")
			return nil
		},
	}
}

func newReportCmd(configPath *string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:       "report [day|week|month]",
		Short:     "Summarize interventions for a period",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"day", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			periodType := "day"
			if len(args) > 0 {
				periodType = args[0]
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			db, err := database.Connect(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()
			if err := db.Initialize(); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}

			rep := reporter.New(cfg, database.NewRepository(db))
			report, err := rep.GenerateReport(periodType)
			if err != nil {
				return err
			}

			if jsonOutput {
				s, err := rep.FormatReportJSON(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), s)
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), rep.FormatReportText(report))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	return cmd
}

func newClearCmd(configPath *string) *cobra.Command {
	var yes bool
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete recorded interventions",
		Long:  "Delete all recorded interventions, or only those older than --older-than.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan < 0 {
				return fmt.Errorf("--older-than cannot be negative")
			}

			if !yes {
				prompt := "This will delete all intervention data. Are you sure? (yes/no): "
				if olderThan > 0 {
					prompt = fmt.Sprintf("This will delete interventions older than %s. Are you sure? (yes/no): ", utils.FormatDuration(olderThan))
				}
				fmt.Fprint(cmd.OutOrStdout(), prompt)
				var response string
				fmt.Fscanln(cmd.InOrStdin(), &response)
				if response = strings.ToLower(strings.TrimSpace(response)); response != "yes" && response != "y" {
					fmt.Fprintln(cmd.OutOrStdout(), "Operation cancelled")
					return nil
				}
			}

			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			db, err := database.Connect(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			if err := db.Initialize(); err != nil {
				return err
			}
			repo := database.NewRepository(db)

			if olderThan > 0 {
				deleted, err := repo.DeleteOldInterventions(time.Now().Add(-olderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d intervention(s)\n", deleted)
				return nil
			}

			if err := repo.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database cleared successfully")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "only delete interventions older than this (e.g. 720h)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "forcefocus %s\n", version)
		},
	}
}

func printSession(cmd *cobra.Command, info models.ActiveSessionInfo) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nActive Session:\n")
	fmt.Fprintf(out, "  ID: %s\n", info.SessionID)
	if info.TaskID != nil {
		fmt.Fprintf(out, "  Task: %s\n", *info.TaskID)
	}
	fmt.Fprintf(out, "  Started: %s\n", info.StartTime.Local().Format("2006-01-02 15:04:05"))
	if info.IsLocal() {
		fmt.Fprintln(out, "  Mode: offline (local id)")
	}
}
