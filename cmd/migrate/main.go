package main

import (
	"database/sql"
	"flag"
	"log"
	"os"

	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/logger"
	"github.com/Domenick1991/busbooking/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	down := flag.Bool("down", false, "roll back every applied migration")
	flag.Parse()

	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Log, "busbooking-migrate")
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.Database.Driver != config.DriverPostgres {
		zl.Fatal("migrations only apply to the postgres driver", zap.String("driver", cfg.Database.Driver))
	}

	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		zl.Fatal("open database", zap.Error(err))
	}

	migrator, err := migrations.New(db)
	if err != nil {
		zl.Fatal("init migrator", zap.Error(err))
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			zl.Warn("close migrator", zap.Error(err))
		}
	}()

	if *down {
		err = migrator.Down()
	} else {
		err = migrator.Up()
	}
	if err != nil {
		zl.Error("migrate", zap.Bool("down", *down), zap.Error(err))
		return
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		zl.Error("read schema version", zap.Error(err))
		return
	}
	zl.Info("migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))
}
