// migrate-to-postgres copies stored layouts from SQLite to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/layouts.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user roomgen \
//	    -pg-password roomgen \
//	    -pg-database roomgen
package main

import (
	"context"
	"flag"
	"log"

	"github.com/lawnchairsociety/roomgen/internal/database"
)

func main() {
	sqlitePath := flag.String("sqlite", "data/layouts.db", "Path to SQLite database")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "roomgen", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "roomgen", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "roomgen", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Show what would be copied without making changes")
	flag.Parse()

	log.Println("SQLite to PostgreSQL Layout Migration")
	log.Println("=====================================")

	log.Printf("Opening SQLite database: %s", *sqlitePath)
	src, err := database.OpenSQLite(*sqlitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer src.Close()

	pg := database.DefaultPostgresConfig()
	pg.Host = *pgHost
	pg.Port = *pgPort
	pg.User = *pgUser
	pg.Password = *pgPassword
	pg.Database = *pgDatabase
	pg.SSLMode = *pgSSLMode

	// Open runs the schema migrations, so the target is ready afterwards
	log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", *pgUser, *pgHost, *pgPort, *pgDatabase)
	dst, err := database.Open(database.Config{Driver: "postgres", Postgres: pg})
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	defer dst.Close()

	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
	}

	res, err := database.CopyLayouts(context.Background(), src, dst, *dryRun)
	if err != nil {
		log.Fatalf("Migration failed after %d layouts: %v", res.Copied, err)
	}

	log.Println("=====================================")
	log.Printf("Migration complete! Layouts copied: %d, already present: %d", res.Copied, res.Skipped)
	if *dryRun {
		log.Println("(DRY RUN - No actual changes were made)")
	}
}
