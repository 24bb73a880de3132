package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/vhnguyen/sslsweep/internal/report"
	errs "github.com/vhnguyen/sslsweep/internal/shared/errors"
	"github.com/vhnguyen/sslsweep/internal/ssllabs"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Flatten combined scan results into a wide CSV and optional PDF",
	Long: `Read the combined result stream produced by scan, flatten every
host's JSON payload into dotted key-path columns, and write one wide CSV
whose header is the union of all columns. Optionally render a PDF digest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inPath, _ := cmd.Flags().GetString("input")
		outPath, _ := cmd.Flags().GetString("out")
		pdfPath, _ := cmd.Flags().GetString("pdf")

		if inPath == "" {
			inPath = filepath.Join(resultsDir, report.CombinedFileName)
		}
		if outPath == "" {
			outPath = filepath.Join(resultsDir, "ssl_results_full.csv")
		}

		entries, err := readCombined(inPath)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errs.ErrNoEntries
		}

		if err := writeWorkbook(entries, outPath); err != nil {
			return err
		}
		fmt.Printf("%s flattened %d host(s) into %s\n", colorSuccess("[ok]"), len(entries), outPath)

		if pdfPath != "" {
			if err := writePDF(entries, pdfPath); err != nil {
				return err
			}
			fmt.Printf("%s PDF digest written to %s\n", colorSuccess("[ok]"), pdfPath)
		}
		return nil
	},
}

func readCombined(path string) ([]report.CombinedEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open combined results: %w", err)
	}
	defer f.Close()
	return report.ParseCombined(f)
}

func writeWorkbook(entries []report.CombinedEntry, outPath string) error {
	var wb report.Workbook
	for _, entry := range entries {
		if entry.Raw == nil {
			wb.Add(map[string]string{"Domain": entry.Host, "Message": entry.Message})
			continue
		}
		var decoded interface{}
		if err := json.Unmarshal(entry.Raw, &decoded); err != nil {
			wb.Add(map[string]string{"Domain": entry.Host, "Message": string(entry.Raw)})
			continue
		}
		row := report.Flatten(decoded)
		row["Domain"] = entry.Host
		wb.Add(row)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	defer out.Close()
	return wb.WriteCSV(out)
}

func writePDF(entries []report.CombinedEntry, pdfPath string) error {
	rows := make([]report.Summary, 0, len(entries))
	info := report.RunInfo{Title: "TLS Assessment Report", GeneratedAt: time.Now(), Total: len(entries)}

	for _, entry := range entries {
		if entry.Raw == nil {
			rows = append(rows, report.NoHTTPS(entry.Host))
			info.NoHTTPS++
			continue
		}
		var res ssllabs.AssessmentResult
		if err := json.Unmarshal(entry.Raw, &res); err != nil {
			rows = append(rows, report.NoHTTPS(entry.Host))
			info.NoHTTPS++
			continue
		}
		if res.Host == "" {
			res.Host = entry.Host
		}
		rows = append(rows, report.FromResult(&res))
		if res.Status == ssllabs.StatusReady {
			info.Ready++
		} else {
			info.Errors++
		}
	}

	data, err := report.PDFBytes(rows, info)
	if err != nil {
		return err
	}
	if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func init() {
	exportCmd.Flags().String("input", "", "combined results file (default <results-dir>/ssl_results.txt)")
	exportCmd.Flags().String("out", "", "flattened CSV path (default <results-dir>/ssl_results_full.csv)")
	exportCmd.Flags().String("pdf", "", "also write a PDF digest to this path")
}
