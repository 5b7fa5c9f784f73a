package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/edinet-screener/internal/edinet"
	"github.com/sells-group/edinet-screener/internal/fetcher"
	"github.com/sells-group/edinet-screener/internal/xbrl"
)

const (
	modeTargeted      = "targeted"
	modeComprehensive = "comprehensive"
)

var (
	extractMode            string
	extractPeriodEnd       string
	extractNonConsolidated bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract financial facts from a local XBRL instance or filing archive",
	Long:  "Reads an .xbrl instance, or the instance inside a filing ZIP archive, and prints the extracted facts as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("extract"); err != nil {
			return err
		}
		return runExtract(cmd.OutOrStdout(), args[0])
	},
}

func init() {
	extractCmd.Flags().StringVar(&extractMode, "mode", modeTargeted, "extraction mode: targeted or comprehensive")
	extractCmd.Flags().StringVar(&extractPeriodEnd, "period-end", "", "period end date (YYYY-MM-DD); defaults to the latest duration context")
	extractCmd.Flags().BoolVar(&extractNonConsolidated, "non-consolidated", false, "use the non-consolidated scope in targeted mode")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(out io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "read %s", path)
	}
	if fetcher.IsZIP(data) {
		name, body, err := fetcher.ReadZIPMember(data, 0, edinet.PickInstance)
		if err != nil {
			return eris.Wrapf(err, "read instance from %s", path)
		}
		zap.L().Debug("instance selected", zap.String("member", name))
		data = body
	}

	doc, err := xbrl.ParseDocumentBytes(data)
	if err != nil {
		return err
	}
	extractor, err := newExtractor()
	if err != nil {
		return err
	}

	var result any
	switch strings.ToLower(extractMode) {
	case modeTargeted:
		periodEnd := extractPeriodEnd
		if periodEnd == "" {
			strategy, err := xbrl.ParseScopeStrategy(cfg.XBRL.ScopeStrategy)
			if err != nil {
				return err
			}
			periodEnd = xbrl.ResolveContexts(doc, strategy).Latest(xbrl.Duration)
			if periodEnd == "" {
				return eris.New("no duration context found; pass --period-end")
			}
		}
		result = struct {
			PeriodEnd string `json:"period_end"`
			Scope     string `json:"scope"`
			xbrl.Record
		}{
			PeriodEnd: periodEnd,
			Scope:     scopeOf(!extractNonConsolidated).String(),
			Record:    extractor.Targeted(doc, periodEnd, !extractNonConsolidated),
		}
	case modeComprehensive:
		result = extractor.Comprehensive(doc)
	default:
		return eris.Errorf("unknown mode %q (valid: %s, %s)", extractMode, modeTargeted, modeComprehensive)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(result), "encode result")
}

func scopeOf(consolidated bool) xbrl.Scope {
	if consolidated {
		return xbrl.Consolidated
	}
	return xbrl.NonConsolidated
}
