package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"site-file-enricher/internal/config"
	"site-file-enricher/lib/configutil"
	"site-file-enricher/lib/serviceutil"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

const DEFAULT_CONFIG = "enricher.json5"

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "enricher",
	Short: "enricher fills in a procurement spreadsheet with the facts published on the records it links to.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initSlog(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output.")
	rootCmd.PersistentFlags().StringVarP(
		&configPath, "config", "c", "",
		fmt.Sprintf("The configuration file, %s is searched for in the parent directories by default.", DEFAULT_CONFIG),
	)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initSlog(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger.With("run", uuid.NewString()))
}

func loadConfig() config.Config {
	path := configPath
	if path == "" {
		found, err := configutil.FindRecursively(DEFAULT_CONFIG)
		if err != nil {
			slog.Debug("no configuration file found, using defaults")
			return config.Default()
		}
		path = found
	}

	cfg, err := config.Load(path)
	if err != nil {
		serviceutil.Fatal("failed to load configuration", err)
	}
	slog.Debug("loaded configuration", "path", path)
	return cfg
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
