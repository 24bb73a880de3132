package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vhnguyen/sslsweep/internal/assess"
	"github.com/vhnguyen/sslsweep/internal/cache"
	"github.com/vhnguyen/sslsweep/internal/hostlist"
	"github.com/vhnguyen/sslsweep/internal/pipeline"
	"github.com/vhnguyen/sslsweep/internal/report"
	errs "github.com/vhnguyen/sslsweep/internal/shared/errors"
	"github.com/vhnguyen/sslsweep/internal/ssllabs"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Assess each live HTTPS host through the SSL Labs API",
	Long: `Run one assessment per host, strictly serially: probe TCP 443,
submit or attach to the remote assessment, poll until READY/ERROR or the
polling ceiling, and append the result to the run outputs immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		hostsFile, _ := cmd.Flags().GetString("hosts")
		outDir, _ := cmd.Flags().GetString("out")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		if hostsFile == "" {
			return fmt.Errorf("--hosts is required")
		}
		if outDir == "" {
			outDir = resultsDir
		}

		hosts, err := hostlist.ReadFile(hostsFile)
		if err != nil {
			return err
		}
		if len(hosts) == 0 {
			return errs.ErrNoHosts
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rows, err := runScan(ctx, hosts, outDir, noCache)
		if err != nil {
			return err
		}

		printScanSummary(rows, outDir)
		return nil
	},
}

func runScan(ctx context.Context, hosts []string, outDir string, noCache bool) ([]report.Summary, error) {
	settings := loadScanSettings()

	writer, err := report.NewWriter(outDir)
	if err != nil {
		return nil, err
	}
	defer writer.Close()

	var store pipeline.CacheStore
	if !noCache {
		cacheDir := settings.CacheDir
		if cacheDir == "" {
			cacheDir = filepath.Join(resultsDir, ".cache")
		}
		if s, err := cache.Open(cacheDir, logger); err != nil {
			logger.Warnw("local cache unavailable, continuing without it", "error", err)
		} else {
			defer s.Close()
			store = s
		}
	}

	client := ssllabs.NewClient(settings.APIBaseURL, settings.APITimeout, logger)
	poller := assess.NewPoller(client, assess.SystemClock{}, settings.pollerConfig(), logger)

	progress := newProgressPrinter(len(hosts), "scanning")
	progress.Start()
	defer progress.Stop()

	runner := &pipeline.Runner{
		Gate:        settings.prober(),
		Assessor:    poller,
		Cache:       store,
		Writer:      writer,
		Logger:      logger,
		OnHostStart: progress.SetCurrent,
		OnHostDone: func(host string, summary report.Summary) {
			progress.HostDone(summary.Status == ssllabs.StatusReady)
		},
	}

	return runner.Run(ctx, hosts)
}

func printScanSummary(rows []report.Summary, outDir string) {
	ready, failed, unreachable := 0, 0, 0
	for _, row := range rows {
		switch {
		case row.Grade == report.NoHTTPSGrade:
			unreachable++
		case row.Status == ssllabs.StatusReady:
			ready++
		default:
			failed++
		}
	}

	fmt.Println(colorSuccess("Scan complete."))
	fmt.Printf("%s %d ready, %d other, %d without HTTPS\n",
		colorInfo("Hosts:"), ready, failed, unreachable)
	fmt.Printf("%s %s\n", colorInfo("Summary:"), filepath.Join(outDir, report.SummaryFileName))
	fmt.Printf("%s %s\n", colorInfo("Full results:"), filepath.Join(outDir, report.CombinedFileName))
	fmt.Printf("%s %s\n", colorInfo("Per-host JSON:"), filepath.Join(outDir, report.ReportsDirName))
	for _, row := range rows {
		status := row.Status
		if row.Grade == report.NoHTTPSGrade {
			status = report.NoHTTPSGrade
		}
		fmt.Printf("  %-40s %s\n", row.Host, formatStatusWithColor(status))
	}
}

func init() {
	scanCmd.Flags().String("hosts", "", "file with hosts to assess, one per line")
	scanCmd.Flags().String("out", "", "output directory (default results dir)")
	scanCmd.Flags().Bool("no-cache", false, "skip the local assessment cache")
}
