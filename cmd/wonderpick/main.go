package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/wonderpick/internal/config"
	"github.com/TobiSchelling/wonderpick/internal/database"
	"github.com/TobiSchelling/wonderpick/internal/logging"
	"github.com/TobiSchelling/wonderpick/internal/metrics"
	"github.com/TobiSchelling/wonderpick/internal/recommend"
	"github.com/TobiSchelling/wonderpick/internal/records"
	"github.com/TobiSchelling/wonderpick/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "wonderpick",
	Short:        "Suggest the best wonder position from past rounds",
	Long:         "wonderpick recommends which of five positions to pick, based on recorded (start, result) rounds, and records the outcome you report.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logging.Init(logging.Config{Level: level, Format: cfg.Logging.Format})
		if path != "" {
			logging.Debug().Str("path", path).Msg("config loaded")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "wonderpick", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/wonderpick/",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Fprintf(out, "Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Fprintf(out, "Created config: %s\n", target)
		fmt.Fprintln(out, "Edit it to choose the storage backend and server port.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show storage status and recorded rounds per start position",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		ctx := cmd.Context()
		fmt.Fprintf(out, "Backend: %s\n", cfg.Storage.Backend)

		var byStart map[int]int
		total := 0
		var last *string
		if db, ok := store.(*database.DB); ok {
			fmt.Fprintf(out, "Database: %s\n\n", db.Path())
			stats, err := db.GetStats(ctx)
			if err != nil {
				return fmt.Errorf("getting stats: %w", err)
			}
			byStart, total, last = stats.ByStart, stats.TotalRecords, stats.LastRecorded
		} else {
			fmt.Fprintf(out, "File: %s\n\n", cfg.JSONPath())
			recs, err := store.ReadAll(ctx)
			if err != nil {
				return fmt.Errorf("reading records: %w", err)
			}
			byStart = make(map[int]int)
			for _, r := range recs {
				byStart[r.Start]++
			}
			total = len(recs)
		}

		fmt.Fprintf(out, "Rounds recorded: %d\n", total)
		if last != nil {
			fmt.Fprintf(out, "Last recorded: %s\n", *last)
		}
		fmt.Fprintln(out, "\nBy start position:")
		for p := recommend.MinPosition; p <= recommend.MaxPosition; p++ {
			fmt.Fprintf(out, "  %d: %d\n", p, byStart[p])
		}
		return nil
	},
}

// --- suggest command ---

var (
	suggestStart int
	suggestJSON  bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Recommend a position for a start position",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		history, err := store.ReadAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading records: %w", err)
		}
		res, err := recommend.Recommend(history, suggestStart)
		if err != nil {
			return err
		}

		if suggestJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printResult(cmd.OutOrStdout(), suggestStart, res)
		return nil
	},
}

func init() {
	suggestCmd.Flags().IntVarP(&suggestStart, "start", "s", 0, "Starting position (1-5)")
	suggestCmd.Flags().BoolVar(&suggestJSON, "json", false, "Print the result as JSON")
	suggestCmd.MarkFlagRequired("start")
}

// --- record command ---

var recordStart, recordResult int

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record the observed result of a round",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		rec := recommend.Record{Start: recordStart, Result: recordResult}
		if err := store.Append(cmd.Context(), rec); err != nil {
			return fmt.Errorf("recording round: %w", err)
		}
		logging.Info().Int("start", rec.Start).Int("result", rec.Result).Str("source", metrics.SourceCLI).Msg("record appended")
		fmt.Fprintf(out, "Recorded: start %d -> result %d\n", rec.Start, rec.Result)
		return nil
	},
}

func init() {
	recordCmd.Flags().IntVarP(&recordStart, "start", "s", 0, "Starting position (1-5)")
	recordCmd.Flags().IntVarP(&recordResult, "result", "r", 0, "Position that turned out favorable (1-5)")
	recordCmd.MarkFlagRequired("start")
	recordCmd.MarkFlagRequired("result")
}

// --- history command ---

var (
	historyStart int
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded rounds, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if historyStart != 0 {
			if err := recommend.ValidatePosition(historyStart); err != nil {
				return err
			}
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		ctx := cmd.Context()
		if db, ok := store.(*database.DB); ok {
			rows, err := db.GetRecords(ctx, historyStart, historyLimit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No rounds recorded yet. Add one with: wonderpick record")
				return nil
			}
			for _, r := range rows {
				fmt.Fprintf(out, "  [%d] %s  start %d -> result %d\n", r.ID, r.RecordedAt, r.Start, r.Result)
			}
			return nil
		}

		recs, err := store.ReadAll(ctx)
		if err != nil {
			return err
		}
		shown := 0
		for i := len(recs) - 1; i >= 0; i-- {
			r := recs[i]
			if historyStart != 0 && r.Start != historyStart {
				continue
			}
			fmt.Fprintf(out, "  [%d] start %d -> result %d\n", i+1, r.Start, r.Result)
			shown++
			if historyLimit > 0 && shown >= historyLimit {
				break
			}
		}
		if shown == 0 {
			fmt.Fprintln(out, "No rounds recorded yet. Add one with: wonderpick record")
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyStart, "start", "s", 0, "Only rounds from this start position")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum rounds to show (0 for all)")
}

// --- play command ---

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Interactive round: choose, reveal, and report the outcome",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		return runPlay(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), store, metrics.New())
	},
}

// --- import command ---

var importCmd = &cobra.Command{
	Use:   "import [wonder.json]",
	Short: "Append all rounds from a wonder.json file to the configured store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		recs, err := records.LoadFile(args[0])
		if err != nil {
			return err
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		n, err := importRecords(cmd.Context(), store, recs)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Imported %d round(s) from %s\n", n, args[0])
		return nil
	},
}

func importRecords(ctx context.Context, store records.Store, recs []recommend.Record) (int, error) {
	if db, ok := store.(*database.DB); ok {
		return db.ImportRecords(ctx, recs)
	}
	for i, r := range recs {
		if err := store.Append(ctx, r); err != nil {
			return i, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return len(recs), nil
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		server.Version = version
		srv, err := server.New(store, metrics.New())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, port)
		fmt.Fprintf(out, "Starting server at http://%s\n", addr)
		fmt.Fprintln(out, "Press Ctrl+C to stop")
		return server.Serve(ctx, srv, addr)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on (overrides config)")
}

// openStore opens the configured backend. The returned func releases it.
func openStore() (records.Store, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendJSON:
		return records.NewFileStore(cfg.JSONPath()), func() error { return nil }, nil
	default:
		dataDir := cfg.GetDataDir()
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating data directory: %w", err)
		}
		db, err := database.Open(cfg.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	}
}
