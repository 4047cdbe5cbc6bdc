package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"site-file-enricher/internal/components/telemetry"
	"site-file-enricher/internal/config"
	"site-file-enricher/internal/extract"
	"site-file-enricher/internal/model"
	"site-file-enricher/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var extractKind string

func init() {
	extractCmd.Flags().StringVar(&extractKind, "kind", "", "The kind of document, xml or html. Guessed from the file extension by default.")
	rootCmd.AddCommand(extractCmd)
}

func extractorFor(cfg config.Config, path string, tel telemetry.API) (extract.Extractor, error) {
	kind := extractKind
	if kind == "" {
		kind = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch kind {
	case "xml":
		return cfg.TreeExtractor(tel), nil
	case "html", "htm":
		return cfg.TabularExtractor(tel), nil
	}
	return nil, fmt.Errorf("unknown document kind %q", kind)
}

func formatPrice(price int64) string {
	if price == model.NO_PRICE {
		return ""
	}
	return fmt.Sprintf("%d.%02d", price/100, price%100)
}

var extractCmd = &cobra.Command{
	Use:   "extract <document>",
	Short: "Prints the facts found in a downloaded xml contract or html print form.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		tel := telemetry.SlogAPI{}

		extractor, err := extractorFor(cfg, args[0], tel)
		if err != nil {
			serviceutil.Fatal("failed to pick extractor", err)
		}
		document, err := os.ReadFile(args[0])
		if err != nil {
			serviceutil.Fatal("failed to read document", err)
		}

		facts := extractor.Extract(cmd.Context(), document, args[0])

		t := newTable()
		t.AppendHeader(table.Row{"Order", "Product", "Price", "OKPD", "KTRU", "Field", "Value", "Source"})
		for _, f := range facts {
			t.AppendRow(table.Row{
				f.Order,
				f.ProductName,
				formatPrice(f.UnitPrice),
				model.Deref(f.OKPD),
				model.Deref(f.KTRU),
				f.Field.Name,
				model.Deref(f.Field.Value),
				f.Source,
			})
		}
		t.AppendFooter(table.Row{"", "", "", "", "", "Facts", len(facts)})
		t.Render()
	},
}
