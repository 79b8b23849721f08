package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/printdock/printdock-backend/pkg/config"
	"github.com/printdock/printdock-backend/pkg/db"
	"github.com/printdock/printdock-backend/pkg/logger"
	"github.com/printdock/printdock-backend/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	logg = logger.ForService("migrate", cfg.App)
	ctx = logg.WithFields(ctx, map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
	})

	source := migrate.Embedded()
	if *dir != "" {
		source = os.DirFS(*dir)
		ctx = logg.WithField(ctx, "dir", *dir)
	}

	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.SourceDir
		}
		if *name == "" {
			exitf("missing -name for create")
		}
		created, err := migrate.Create(target, *name, time.Now())
		if err != nil {
			exitf("create migration: %v", err)
		}
		fmt.Println("created migration:", created)
		return
	case "validate":
		if err := migrate.Validate(source); err != nil {
			exitf("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	runner, err := migrate.NewRunner(migrate.RunnerParams{DB: sqlDB, FS: source, Logger: logg})
	requireResource(ctx, logg, "migration runner", err)
	logg.Info(ctx, "migrate ready")

	if err := run(ctx, runner, *cmd, *version); err != nil {
		logg.Error(ctx, "migrate.command_failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, runner *migrate.Runner, cmd, version string) error {
	switch cmd {
	case "up":
		_, err := runner.Up(ctx)
		return err
	case "down":
		return runner.Down(ctx)
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		for _, st := range statuses {
			applied := "-"
			if !st.AppliedAt.IsZero() {
				applied = st.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-8s %-25s %s\n", st.State, applied, path.Base(st.Source.Path))
		}
		return nil
	case "version":
		if version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		target, err := strconv.ParseInt(version, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
		}
		return runner.To(ctx, target)
	default:
		return fmt.Errorf("unknown -cmd value %q", cmd)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
