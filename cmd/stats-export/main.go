// stats-export computes global completion statistics and writes them to an xlsx workbook.
//
// Usage:
//
//	go run ./cmd/stats-export -out=statistics.xlsx [-as-of=2024-06-30] [-dedup]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mmdatafocus/contacts_backend/config"
	"github.com/mmdatafocus/contacts_backend/models/reports"
	"github.com/mmdatafocus/contacts_backend/utils"
)

func main() {
	out := flag.String("out", "", "Output file (default statistics-<week>.xlsx)")
	asOf := flag.String("as-of", "", "Reference date YYYY-MM-DD (default now)")
	dedup := flag.Bool("dedup", config.StatsDedupPersonWeek(), "Count at most one report per person per week")
	weeks := flag.Int("weeks", 0, "Week buckets to include (0 = all)")
	flag.Parse()

	now := time.Now().UTC()
	if *asOf != "" {
		d, err := utils.ParseDate(*asOf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid --as-of: %v\n", err)
			os.Exit(1)
		}
		// end of that day, so reports filed on it count
		now = d.Add(24*time.Hour - time.Second)
	}
	filename := *out
	if filename == "" {
		filename = fmt.Sprintf("statistics-%s.xlsx", reports.WeekKey(now))
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	opts := reports.OptionsFromEnv()
	opts.DedupPersonWeek = *dedup
	if *weeks > 0 {
		opts.WeekLimit = *weeks
	} else {
		opts.WeekLimit = reports.AllWeeks
	}
	service := reports.NewStatisticsService(reports.NewGormStore(nil), opts)

	stats, err := service.ComputeGlobalStatistics(context.Background(), now)
	if err != nil {
		fmt.Fprintf(os.Stderr, "compute statistics: %v\n", err)
		os.Exit(1)
	}
	if err := reports.SaveStatisticsWorkbook(filename, stats); err != nil {
		fmt.Fprintf(os.Stderr, "write workbook: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s: accounts=%d persons=%d completion=%s%%\n",
		filename, stats.TotalAccounts, stats.TotalPersons, stats.ReportCompletionRate)
	if stats.OrphanWarning != nil {
		fmt.Fprintln(os.Stderr, stats.OrphanWarning.Message)
	}
}
