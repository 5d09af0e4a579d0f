// Command migrate applies, inspects and rolls back the database schema.
//
//	migrate up              apply pending SQL migrations (postgres)
//	migrate down <version>  revert one SQL migration (postgres)
//	migrate auto            run GORM AutoMigrate (postgres or sqlite)
//	migrate status          print the schema plan and pending migrations
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"blogicum/internal/config"
	"blogicum/internal/database"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage: migrate <up|down <version>|auto|status>")

type command struct {
	name    string
	version int
}

func parseArgs(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errUsage
	}
	cmd := command{name: strings.ToLower(strings.TrimSpace(args[0]))}
	switch cmd.name {
	case "up", "auto", "status":
		if len(args) > 1 {
			return command{}, errUsage
		}
	case "down":
		if len(args) != 2 {
			return command{}, fmt.Errorf("usage: migrate down <version>")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil || v <= 0 {
			return command{}, fmt.Errorf("invalid version %q", args[1])
		}
		cmd.version = v
	default:
		return command{}, errUsage
	}
	return cmd, nil
}

// checkDriver rejects the SQL-script commands on sqlite before a connection is opened.
func (c command) checkDriver(cfg *config.Config) error {
	if cfg.UsesSQLite() && (c.name == "up" || c.name == "down") {
		return fmt.Errorf("migrate %s: %w", c.name, database.ErrSQLMigrationsUnsupported)
	}
	return nil
}

func (c command) execute(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	switch c.name {
	case "up":
		n, err := database.RunMigrations(ctx, db)
		if err != nil {
			return fmt.Errorf("sql migrations failed after %d applied: %w", n, err)
		}
		log.Printf("sql migrations applied: %d", n)
	case "down":
		if err := database.RollbackMigration(ctx, db, c.version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Printf("rolled back migration %06d", c.version)
	case "auto":
		auto := *cfg
		auto.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, &auto); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("driver=%s mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d",
			db.Dialector.Name(), status.Mode, status.Environment, status.RunSQL, status.RunAuto,
			len(status.AppliedVersions), len(status.PendingMigrations))
		for _, m := range status.PendingMigrations {
			log.Printf("pending: %s", m.String())
		}
	}
	return nil
}

func run(args []string) error {
	cmd, err := parseArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cmd.checkDriver(cfg); err != nil {
		return err
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Printf("close database: %v", err)
		}
	}()

	return cmd.execute(context.Background(), db, cfg)
}

func main() {
	flag.Parse()
	if err := run(flag.Args()); err != nil {
		log.Fatal(err)
	}
}
