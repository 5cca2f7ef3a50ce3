// orphan-cleanup reports, and optionally deletes, reports whose person no longer exists.
//
// Usage:
//
//	go run ./cmd/orphan-cleanup                              # count only
//	go run ./cmd/orphan-cleanup -dry-run=false -confirm=DELETE
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/contacts_backend/config"
	"github.com/mmdatafocus/contacts_backend/models"
)

func main() {
	dryRun := flag.Bool("dry-run", true, "Count orphaned reports only (no writes)")
	confirm := flag.String("confirm", "", "Type DELETE to proceed when dry-run=false")
	flag.Parse()

	if !*dryRun && strings.TrimSpace(*confirm) != "DELETE" {
		fmt.Fprintln(os.Stderr, "set --confirm=DELETE to proceed")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := context.Background()
	count, err := models.CountOrphanReports(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "count failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("orphaned reports: %d\n", count)
	if *dryRun || count == 0 {
		return
	}

	deleted, err := models.DeleteOrphanReports(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "delete failed: %v\n", err)
		os.Exit(1)
	}
	config.GetLogger().WithField("deleted", deleted).Warn("orphaned reports deleted")
	fmt.Printf("deleted orphaned reports: %d\n", deleted)
}
