// Command migrate manages the database schema.
//
//	migrate [flags] <command> [args]
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/rt44/backend/internal/infrastructure/config"
	"github.com/rt44/backend/internal/infrastructure/logger"
	"github.com/rt44/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

func main() {
	var (
		dir      string
		logLevel string
	)
	flag.StringVar(&dir, "dir", "migrations", "migrations directory used by create and list")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	log := logger.New(config.LogConfig{Level: logLevel, Format: "console", Output: "stdout"})
	defer func() { _ = log.Sync() }()

	// create and list only touch the filesystem
	switch args[0] {
	case "create":
		if len(args) < 2 {
			log.Fatal("create requires a name")
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(dir, args[1], description)
		if err != nil {
			log.Fatal("Failed to create migration", zap.Error(err))
		}
		fmt.Printf("created %s\ncreated %s\n", mf.UpPath, mf.DownPath)
		return
	case "list":
		list, err := migration.ListMigrations(os.DirFS(dir))
		if err != nil {
			log.Fatal("Failed to list migrations", zap.Error(err))
		}
		for _, m := range list {
			fmt.Println(m.Base())
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to reach database", zap.String("host", cfg.Database.Host), zap.Error(err))
	}

	m, err := migration.New(db, log)
	if err != nil {
		log.Fatal("Failed to create migrator", zap.Error(err))
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	if err := run(m, args); err != nil {
		log.Error("Migration command failed", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}

func run(m *migration.Migrator, args []string) error {
	intArg := func() (int, error) {
		if len(args) < 2 {
			return 0, fmt.Errorf("%s requires a number", args[0])
		}
		return strconv.Atoi(args[1])
	}

	switch args[0] {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		n, err := intArg()
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "goto":
		n, err := intArg()
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("version cannot be negative")
		}
		return m.GoTo(uint(n))
	case "force":
		n, err := intArg()
		if err != nil {
			return err
		}
		return m.Force(n)
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version: %d dirty: %t\n", v, dirty)
		return nil
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `RT 44 schema migrations

Usage: migrate [flags] <command> [args]

Commands:
  up                 apply all pending migrations
  down               roll back all migrations
  step N             apply N migrations (negative rolls back)
  goto V             migrate to version V
  version            print the current version
  force V            mark version V as applied (repair a dirty state)
  create NAME [DESC] add the next numbered migration pair to -dir
  list               list migrations in -dir

Database settings come from config.toml and RT_DATABASE_* variables.

Flags:
`)
	flag.PrintDefaults()
}
