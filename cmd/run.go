package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vhnguyen/sslsweep/internal/discover"
	"github.com/vhnguyen/sslsweep/internal/hostlist"
	"github.com/vhnguyen/sslsweep/internal/report"
	errs "github.com/vhnguyen/sslsweep/internal/shared/errors"
)

var runCmd = &cobra.Command{
	Use:   "run [domain ...]",
	Short: "Full pipeline: discover, scan and export into a timestamped directory",
	Long: `Chain the three stages into one timestamped run directory under the
results dir: enumerate subdomains of the target domains, assess every live
HTTPS host, then flatten the results and render the PDF digest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domainsFile, _ := cmd.Flags().GetString("domains")
		hostsFile, _ := cmd.Flags().GetString("hosts")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		runDir := filepath.Join(resultsDir, "results_"+time.Now().Format("20060102_150405"))
		if err := os.MkdirAll(runDir, 0o755); err != nil {
			return fmt.Errorf("create run directory: %w", err)
		}
		fmt.Printf("%s run directory: %s\n", colorInfo("[*]"), runDir)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// Stage 1: host list, either discovered or supplied.
		var hosts []string
		switch {
		case hostsFile != "":
			var err error
			if hosts, err = hostlist.ReadFile(hostsFile); err != nil {
				return err
			}
		default:
			domains := append([]string(nil), args...)
			if domainsFile != "" {
				fromFile, err := hostlist.ReadFile(domainsFile)
				if err != nil {
					return err
				}
				domains = append(domains, fromFile...)
			}
			if len(domains) == 0 {
				return errs.ErrNoDomains
			}

			settings := loadDiscoverSettings()
			harvester := discover.NewHarvester(
				discover.DefaultSources(settings.FetchTimeout), settings.RPS, logger)
			for _, domain := range domains {
				subs := harvester.Enumerate(ctx, domain)
				hosts = append(hosts, subs...)
				fmt.Printf("%s %s: %d subdomain(s)\n", colorInfo("[+]"), domain, len(subs))
			}
			hosts = dedupe(hosts)
		}
		if len(hosts) == 0 {
			return errs.ErrNoHosts
		}
		if err := writeLines(filepath.Join(runDir, "subdomains.txt"), hosts); err != nil {
			return err
		}

		// Stage 2: serial assessment into the run directory.
		rows, err := runScan(ctx, hosts, runDir, noCache)
		if err != nil {
			return err
		}
		printScanSummary(rows, runDir)

		// Stage 3: flattened workbook + PDF digest.
		entries, err := readCombined(filepath.Join(runDir, report.CombinedFileName))
		if err != nil {
			return err
		}
		if err := writeWorkbook(entries, filepath.Join(runDir, "ssl_results_full.csv")); err != nil {
			return err
		}
		if err := writePDF(entries, filepath.Join(runDir, "ssl_results.pdf")); err != nil {
			return err
		}

		fmt.Printf("%s all stages complete, see %s\n", colorSuccess("[ok]"), runDir)
		return nil
	},
}

func dedupe(hosts []string) []string {
	seen := make(map[string]struct{}, len(hosts))
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

func writeLines(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	for _, line := range lines {
		if _, err := fmt.Fprintln(f, line); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

func init() {
	runCmd.Flags().String("domains", "", "file with target domains, one per line")
	runCmd.Flags().String("hosts", "", "skip discovery and assess these hosts")
	runCmd.Flags().Bool("no-cache", false, "skip the local assessment cache")
}
