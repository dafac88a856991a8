package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/marketplace-escrow/pkg/config"
	"github.com/angelmondragon/marketplace-escrow/pkg/db"
	"github.com/angelmondragon/marketplace-escrow/pkg/logger"
	"github.com/angelmondragon/marketplace-escrow/pkg/migrate"
)

const serviceName = "migrate"

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|status|version|to|create|validate")
	dir := flag.String("dir", "", "migrations directory; empty uses the embedded set (create defaults to "+migrate.DefaultDir+")")
	name := flag.String("name", "", "migration name for -cmd=create")
	target := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=to")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *cmd, *dir, *name, *target); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", *cmd, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd, dir, name, target string) error {
	// offline commands work on files only
	switch cmd {
	case "create":
		if name == "" {
			return errors.New("missing -name")
		}
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		source, err := migrate.Source(dir)
		if err != nil {
			return err
		}
		if err := migrate.ValidateFS(source); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": cmd})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	source, err := migrate.Source(dir)
	if err != nil {
		return err
	}
	runner, err := migrate.NewRunner(sqlDB, source)
	if err != nil {
		return err
	}

	switch cmd {
	case "up":
		applied, err := runner.Up(ctx)
		logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
		return err
	case "down":
		version, err := runner.Down(ctx)
		if err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "version", version), "migration rolled back")
		return nil
	case "version":
		version, err := runner.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Println(version)
		return nil
	case "to":
		version, err := strconv.ParseInt(target, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid -version %q (expected YYYYMMDDHHMMSS): %w", target, err)
		}
		if err := runner.To(ctx, version); err != nil {
			return err
		}
		logg.Info(logg.WithField(ctx, "version", version), "schema at target version")
		return nil
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		return printStatus(statuses)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printStatus(statuses []migrate.MigrationStatus) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tAPPLIED AT\tFILE")
	for _, st := range statuses {
		applied := "pending"
		if st.Applied {
			applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", st.Version, applied, st.Path)
	}
	return w.Flush()
}
