package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/assettrack-backend/internal/users"
	"github.com/angelmondragon/assettrack-backend/pkg/config"
	"github.com/angelmondragon/assettrack-backend/pkg/db"
	"github.com/angelmondragon/assettrack-backend/pkg/logger"
	"github.com/angelmondragon/assettrack-backend/pkg/migrate"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

// adminPasswordEnv supplies the seed-admin password so it never lands in
// shell history. When unset a random one is generated and printed once.
const adminPasswordEnv = "ASSETTRACK_SEED_ADMIN_PASSWORD"

type options struct {
	cmd     string
	dir     string
	name    string
	version string

	adminEmail    string
	adminUsername string
	adminName     string
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "command: up|down|status|version|create|validate|seed-admin")
	flag.StringVar(&opts.dir, "dir", "", "migrations directory on disk (default: migrations embedded in the binary; create writes to "+migrate.DefaultDir+")")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.StringVar(&opts.adminEmail, "email", "", "admin email (for seed-admin)")
	flag.StringVar(&opts.adminUsername, "username", "", "admin username (for seed-admin)")
	flag.StringVar(&opts.adminName, "full-name", "Administrator", "admin display name (for seed-admin)")
	flag.Parse()

	if err := run(context.Background(), opts, logg); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func (o options) source() migrate.Source {
	if o.dir != "" {
		return migrate.FromDir(o.dir)
	}
	return migrate.Embedded()
}

func run(ctx context.Context, opts options, logg *logger.Logger) (err error) {
	// Commands that only touch files.
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		path, err := migrate.CreateSQLMigration(dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil

	case "validate":
		if err := opts.source().Validate(); err != nil {
			return err
		}
		fmt.Printf("migrations in %s are valid\n", opts.source())
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"cmd":    opts.cmd,
		"source": opts.source().String(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql database: %w", err)
	}
	logg.Info(ctx, "migrate ready")

	switch opts.cmd {
	case "up", "down", "status":
		return migrate.Run(ctx, sqlDB, opts.source(), opts.cmd)

	case "version":
		if opts.version == "" {
			return errors.New("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, opts.source(), opts.version)

	case "seed-admin":
		return seedAdmin(ctx, opts, cfg, dbClient, logg)

	default:
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
}

func seedAdmin(ctx context.Context, opts options, cfg *config.Config, dbClient *db.Client, logg *logger.Logger) error {
	if opts.adminEmail == "" || opts.adminUsername == "" {
		return errors.New("seed-admin needs -email and -username")
	}
	res, err := users.BootstrapAdmin(ctx, users.NewRepository(dbClient.DB()), users.NewPrincipalInput{
		FullName: opts.adminName,
		Email:    opts.adminEmail,
		Username: opts.adminUsername,
		Password: os.Getenv(adminPasswordEnv),
	}, cfg.Password)
	if err != nil {
		return err
	}
	if !res.Created {
		logg.Info(ctx, "admin already present, nothing seeded")
		return nil
	}
	logg.Info(logg.WithField(ctx, "user_id", res.User.ID.String()), "admin seeded")
	if res.GeneratedPassword != "" {
		fmt.Printf("generated password for %s: %s\n", res.User.Username, res.GeneratedPassword)
	}
	return nil
}
