// seed-admin creates the administrator account, or resets its name, password and role when it exists.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin -password=...
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
	username := flag.String("username", "admin", "Administrator username")
	name := flag.String("name", "Administrator", "Display name")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "Password (default from ADMIN_PASSWORD)")
	migrate := flag.Bool("migrate", false, "Run AutoMigrate before seeding")
	flag.Parse()

	if strings.TrimSpace(*password) == "" {
		fmt.Fprintln(os.Stderr, "--password (or ADMIN_PASSWORD) is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	if *migrate {
		models.MigrateTable()
	}

	user, created, err := models.SeedAdmin(context.Background(), &models.NewUser{
		Username: strings.TrimSpace(*username),
		Name:     strings.TrimSpace(*name),
		Password: *password,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed admin user: %v\n", err)
		os.Exit(1)
	}
	if created {
		fmt.Printf("Created admin user: id=%d username=%q\n", user.ID, user.Username)
		return
	}
	fmt.Printf("Updated admin user: id=%d username=%q\n", user.ID, user.Username)
}
