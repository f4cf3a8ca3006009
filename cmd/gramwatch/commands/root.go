package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gramwatch-backend/internal/monitor"
	"gramwatch-backend/internal/notify"
	"gramwatch-backend/internal/scrapers/instagram"
	"gramwatch-backend/lib/configutil"
	"gramwatch-backend/lib/restyutil"
	"gramwatch-backend/lib/serviceutil"
	"gramwatch-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

// Config is the optional gramwatch.json5 file. flags and environment
// variables override whatever it sets.
type Config struct {
	TargetUser    string                `json:"target_user"`
	Targets       []string              `json:"targets"`
	OutputDir     string                `json:"output_dir"`
	HistoryLimit  int                   `json:"history_limit"`
	SessionDir    string                `json:"session_dir"`
	TrackPictures bool                  `json:"track_pictures"`
	Smtp          *notify.SmtpConfig    `json:"smtp"`
	Webhook       *notify.WebhookConfig `json:"webhook"`
}

var (
	targetUser    *string
	outputDir     *string
	historyKeep   *int
	trackPictures *bool
	verbose       *bool
)

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging and http exchange dumps.")
	outputDir = rootCmd.PersistentFlags().StringP("output-dir", "o", "", "The directory artifacts are written to.")

	targetUser = rootCmd.Flags().StringP("target-user", "u", "", "The handle to monitor, with or without the leading @.")
	historyKeep = rootCmd.Flags().Int("history-keep", 0, "How many history entries to retain.")
	trackPictures = rootCmd.Flags().Bool("track-pictures", false, "Archive and byte-compare profile pictures.")
}

var rootCmd = &cobra.Command{
	Use:   "gramwatch [--target-user <handle>]",
	Short: "gramwatch monitors Instagram profiles for changes and writes json artifacts.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		handle := *targetUser
		if handle == "" && len(args) > 0 {
			handle = args[0]
		}
		if handle == "" {
			handle = os.Getenv("TARGET_USER")
		}
		if handle == "" {
			handle = cfg.TargetUser
		}
		if handle == "" {
			fmt.Fprintln(os.Stderr, "no target user given, pass --target-user or set TARGET_USER")
			os.Exit(1)
		}

		m, err := monitor.New(monitorConfig(cfg, ""))
		if err != nil {
			serviceutil.Fatal("failed to initialize monitor", err)
		}

		result, err := m.Run(cmd.Context(), handle)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		reportRun(cmd.Context(), cfg, handle, result)
	},
}

func ExecuteContext(ctx context.Context) {
	cobra.OnInitialize(initTelemetry)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initTelemetry() {
	telemetry.InitSlog(*verbose)

	err := telemetry.SetupFromEnv(context.Background(), "gramwatch")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("setup telemetry", err)
	}
	if err == nil {
		telemetry.InstrumentPerfStats(context.Background())
	}

	if *verbose {
		instagram.SetRestyInstrumentOutput(
			restyutil.NewFilesystemOutput(".dev/resty/instagram"),
		)
	}
}

func loadConfig() Config {
	configutil.LoadDotenv()

	cfg, err := configutil.ReadConfig[Config]("gramwatch.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to read config", err)
	}
	return cfg
}

// monitorConfig merges the file config, the flags and the environment
// into the monitor's config. subdir is nonempty for batch runs where
// every handle gets its own directory under the output root.
func monitorConfig(cfg Config, subdir string) monitor.Config {
	out := monitor.Config{
		OutputDir:     cfg.OutputDir,
		HistoryLimit:  cfg.HistoryLimit,
		SessionDir:    cfg.SessionDir,
		TrackPictures: cfg.TrackPictures,
		Credentials: monitor.Credentials{
			Username: os.Getenv("INSTAGRAM_SESSION_USERNAME"),
			Password: os.Getenv("INSTAGRAM_SESSION_PASSWORD"),
		},
		// ephemeral runners get a fresh login every time, persisting
		// session cookies there would leak them into build artifacts
		Ephemeral: os.Getenv("CI") == "true",
	}

	if *outputDir != "" {
		out.OutputDir = *outputDir
	}
	if *historyKeep > 0 {
		out.HistoryLimit = *historyKeep
	}
	if *trackPictures {
		out.TrackPictures = true
	}
	if subdir != "" {
		if out.OutputDir == "" {
			out.OutputDir = "."
		}
		out.OutputDir = filepath.Join(out.OutputDir, subdir)
	}
	return out
}

// reportRun logs the outcome and fans it out to the configured
// notification channels when the run detected changes.
func reportRun(ctx context.Context, cfg Config, handle string, result monitor.RunResult) {
	if result.Snapshot.Degraded() {
		slog.Warn("profile data unavailable, wrote degraded snapshot", "handle", handle)
	} else {
		slog.Info(
			"monitoring pass complete",
			"handle", handle,
			"method", result.Snapshot.Method,
			"followers", result.Snapshot.Followers,
		)
	}
	for _, entry := range result.Changes.Entries {
		slog.Info("change detected", "handle", handle, "change", entry)
	}

	if !result.Changes.HasChanges {
		return
	}

	var notifiers []notify.Notifier
	if cfg.Smtp != nil {
		notifiers = append(notifiers, notify.NewEmailNotifier(*cfg.Smtp))
	}
	if cfg.Webhook != nil {
		notifiers = append(notifiers, notify.NewWebhookNotifier(*cfg.Webhook))
	}
	if len(notifiers) > 0 {
		notify.Broadcast(ctx, notifiers, handle, result)
	}
}
