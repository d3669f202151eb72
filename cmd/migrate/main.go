package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/equihome/launchpad/internal/config"
	"github.com/equihome/launchpad/internal/repository/dynamo"
	"github.com/equihome/launchpad/internal/storage"
)

func main() {
	backend := flag.String("backend", "", "dynamodb or postgres (default: storage.type from config)")
	dir := flag.String("dir", "migrations", "directory of .sql files for postgres")
	listOnly := flag.Bool("list", false, "list existing launchpad tables and exit")
	flag.Parse()

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *backend == "" {
		*backend = cfg.Storage.Type
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch *backend {
	case "dynamodb":
		migrateDynamo(ctx, cfg)
	case "postgres":
		migratePostgres(ctx, cfg, *dir, *listOnly)
	default:
		log.Fatalf("nothing to migrate for backend %q (want dynamodb or postgres)", *backend)
	}
}

func migrateDynamo(ctx context.Context, cfg *config.Config) {
	awsCfg, err := storage.LoadAWSConfig(ctx, storage.AWSOptions{
		Region:  cfg.Storage.AWSRegion,
		Profile: cfg.Storage.GetAWSProfile(),
	})
	if err != nil {
		log.Fatal(err)
	}
	client := storage.NewDynamoDBClient(awsCfg, cfg.Storage.Endpoint)
	if err := dynamo.EnsureTables(ctx, client, cfg.Storage.TablePrefix); err != nil {
		log.Fatalf("ensure tables: %v", err)
	}
	log.Println("DynamoDB tables ready")
}

func migratePostgres(ctx context.Context, cfg *config.Config, dir string, listOnly bool) {
	if cfg.Storage.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", cfg.Storage.DatabaseURL)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	if listOnly {
		rows, err := db.QueryContext(ctx, "SELECT tablename FROM pg_tables WHERE schemaname='public' AND tablename LIKE 'launchpad_%' ORDER BY tablename")
		if err != nil {
			log.Fatal(err)
		}
		defer rows.Close()
		n := 0
		for rows.Next() {
			var t string
			if err := rows.Scan(&t); err != nil {
				log.Fatal(err)
			}
			fmt.Println(" ", t)
			n++
		}
		fmt.Printf("Total: %d tables\n", n)
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	var okCount, errCount int
	for _, f := range files {
		path := filepath.Join(dir, f)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read %s: %v", path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		fmt.Printf("  %s ... ", f)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			fmt.Printf("BEGIN ERROR: %v\n", err)
			errCount++
			continue
		}
		if _, err := tx.ExecContext(ctx, string(data)); err != nil {
			tx.Rollback()
			fmt.Printf("ERROR: %v\n", err)
			errCount++
			continue
		}
		if err := tx.Commit(); err != nil {
			fmt.Printf("COMMIT ERROR: %v\n", err)
			errCount++
			continue
		}
		fmt.Println("OK")
		okCount++
	}
	log.Printf("Done: %d OK, %d errors", okCount, errCount)
	if errCount > 0 {
		os.Exit(1)
	}
}
