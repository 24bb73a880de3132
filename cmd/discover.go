package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vhnguyen/sslsweep/internal/discover"
	"github.com/vhnguyen/sslsweep/internal/hostlist"
	errs "github.com/vhnguyen/sslsweep/internal/shared/errors"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [domain ...]",
	Short: "Enumerate subdomains of target domains from public sources",
	Long: `Query crt.sh, HackerTarget and ThreatCrowd for subdomains of each
target domain, union the findings, drop wildcards and names outside the
target domain, and write the sorted result one host per line.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		domainsFile, _ := cmd.Flags().GetString("domains")
		outPath, _ := cmd.Flags().GetString("out")

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

		if outPath == "" {
			outPath = filepath.Join(resultsDir, "subdomains.txt")
		}

		settings := loadDiscoverSettings()
		harvester := discover.NewHarvester(
			discover.DefaultSources(settings.FetchTimeout), settings.RPS, logger)

		out, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer out.Close()

		total := 0
		for _, domain := range domains {
			subs := harvester.Enumerate(cmd.Context(), domain)
			for _, s := range subs {
				if _, err := fmt.Fprintln(out, s); err != nil {
					return fmt.Errorf("write output file: %w", err)
				}
			}
			total += len(subs)
			fmt.Printf("%s %s: %d subdomain(s)\n", colorInfo("[+]"), domain, len(subs))
		}

		fmt.Printf("%s %d subdomain(s) written to %s\n", colorSuccess("[ok]"), total, outPath)
		if total == 0 {
			fmt.Println(colorWarn("no subdomains found; check the target domains or source availability"))
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().String("domains", "", "file with target domains, one per line")
	discoverCmd.Flags().String("out", "", "output file (default <results-dir>/subdomains.txt)")
}
