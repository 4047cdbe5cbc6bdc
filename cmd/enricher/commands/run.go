package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"site-file-enricher/internal/components/chrono"
	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/internal/config"
	"site-file-enricher/internal/enricher"
	"site-file-enricher/internal/join"
	"site-file-enricher/internal/sheet"
	"site-file-enricher/internal/writer"
	"site-file-enricher/lib/serviceutil"
	libtelemetry "site-file-enricher/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var runFlags struct {
	input    string
	output   string
	baseName string
	cert     string
	capacity int
	dryRun   bool
	dumpHTTP string
}

func init() {
	flags := runCmd.Flags()
	flags.StringVarP(&runFlags.input, "input", "i", "", "The xlsx or tsv document to enrich.")
	flags.StringVarP(&runFlags.output, "output", "o", "", "The directory the enriched files are written to.")
	flags.StringVar(&runFlags.baseName, "base-name", "", "The name of the output files, they are prefixed with their index.")
	flags.StringVar(&runFlags.cert, "cert", "", "The PEM file with the root certificates of the remote site.")
	flags.IntVar(&runFlags.capacity, "capacity", 0, "The amount of rows per output file.")
	flags.BoolVar(&runFlags.dryRun, "dry-run", false, "Keep the output in memory instead of writing files.")
	flags.StringVar(&runFlags.dumpHTTP, "dump-http", "", "A directory to keep a text copy of every http exchange in.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run --input <document> [--output <dir>] [--cert <ca.pem>]",
	Short: "Enriches every row of a document with the facts of the record it links to.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		applyRunFlags(cmd, &cfg)

		err := cfg.Validate()
		if err != nil {
			serviceutil.Fatal("invalid configuration", err)
		}
		err = run(cmd.Context(), cfg)
		if err != nil {
			serviceutil.Fatal("enrichment failed", err)
		}
	},
}

// applyRunFlags overrides the configuration with every flag that was given.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input = runFlags.input
	}
	if flags.Changed("output") {
		cfg.Output = runFlags.output
	}
	if flags.Changed("base-name") {
		cfg.BaseName = runFlags.baseName
	}
	if flags.Changed("cert") {
		cfg.TLS.TrustAnchor = runFlags.cert
	}
	if flags.Changed("capacity") {
		cfg.CapacityPerFile = runFlags.capacity
	}
	if flags.Changed("dump-http") {
		cfg.HTTPDumpDir = runFlags.dumpHTTP
	}
}

func newReader(cfg config.Config, fields []string, tel telemetry.API) sheet.Reader {
	switch strings.ToLower(filepath.Ext(cfg.Input)) {
	case ".tsv", ".txt":
		return sheet.NewTSVReader(cfg.Input, cfg.TSVColumns, fields, tel)
	default:
		return sheet.NewXLSXReader(cfg.Input, cfg.Columns, fields, tel)
	}
}

func logProgress(e enricher.Event) {
	if e.Err != nil {
		slog.Warn("record failed", "done", e.Done, "total", e.Total, "url", e.URL, "err", e.Err)
		return
	}
	slog.Info("record done", "done", e.Done, "total", e.Total, "url", e.URL, "matched", e.Matched)
}

func run(ctx context.Context, cfg config.Config) error {
	if cfg.Otlp.Traces.Enabled() || cfg.Otlp.Metrics.Enabled() {
		t, err := libtelemetry.Setup(ctx, "site-file-enricher", cfg.Otlp)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		defer t.Shutdown(context.Background())
		libtelemetry.InstrumentPerfStats(ctx, time.Second*15)
	}

	tel := telemetry.SlogAPI{}
	clock := chrono.StandardImpl{}
	nav, dispatch, err := cfg.Navigator(clock, tel)
	if err != nil {
		return err
	}
	reader := newReader(cfg, cfg.FieldNames(dispatch), tel)

	var pager writer.Pager
	if runFlags.dryRun {
		pager = &writer.MemoryPager{}
	} else {
		if cfg.Output != "" {
			err = os.MkdirAll(cfg.Output, 0755)
			if err != nil {
				return err
			}
		}
		pager = writer.XLSXPager{Dir: cfg.Output, BaseName: cfg.OutputBaseName()}
	}

	e := enricher.New(
		reader,
		nav,
		join.NewEngine(join.RatioScorer{}, tel),
		pager,
		enricher.Options{
			CapacityPerFile: cfg.CapacityPerFile,
			Progress:        logProgress,
		},
		tel,
	)

	start := clock.Now()
	summary, err := e.Run(ctx)
	renderSummary(cfg, reader, summary, clock.Now().Sub(start))
	return err
}

func renderSummary(cfg config.Config, reader sheet.Reader, summary enricher.Summary, elapsed time.Duration) {
	t := newTable()
	t.SetTitle("Enrichment of %s", filepath.Base(cfg.Input))
	t.AppendRows([]table.Row{
		{"Input rows", reader.RowCount()},
		{"Records", summary.Records},
		{"Succeeded", summary.Succeeded},
		{"Failed", summary.Failed},
		{"Rows matched", summary.RowsMatched},
		{"Output files", summary.Files},
		{"Elapsed", elapsed.Round(time.Second)},
	})
	t.Render()
}
