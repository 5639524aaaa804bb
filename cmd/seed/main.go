// Command seed manages the database from the command line:
//
//	seed init [-csv data.csv]    create the schema and load the CSV
//	seed reset [-csv data.csv]   drop every table and load again
//	seed hash-password <plain>   print a bcrypt hash for OPERATOR_PASSWORD_HASH
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/cinema-recommender/internal/config"
	"github.com/iliyamo/cinema-recommender/internal/database"
	"github.com/iliyamo/cinema-recommender/internal/logging"
	"github.com/iliyamo/cinema-recommender/internal/middleware"
	"github.com/iliyamo/cinema-recommender/internal/repository"
	"github.com/iliyamo/cinema-recommender/internal/seed"
	"github.com/iliyamo/cinema-recommender/internal/utils"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: seed init|reset [-csv path] | seed hash-password <plain>")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]

	if cmd == "hash-password" {
		if len(args) != 1 {
			usage()
		}
		hash, err := utils.HashPassword(args[0], bcrypt.DefaultCost)
		if err != nil {
			logging.Fatal().Err(err).Msg("hash password")
		}
		fmt.Println(hash)
		return
	}
	if cmd != "init" && cmd != "reset" {
		usage()
	}

	if err := config.LoadDotEnv(); err != nil {
		logging.Fatal().Err(err).Msg("Failed to read .env")
	}
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Caller: cfg.Log.Caller})

	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	csvPath := fs.String("csv", cfg.DataCSV, "CSV with title,director,price,name,age rows")
	_ = fs.Parse(args)

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Cache.Enabled {
		rdb, err = config.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logging.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable; response cache not purged")
		} else {
			defer rdb.Close()
		}
	}
	cache := middleware.NewResponseCache(cfg.Cache, rdb)

	in := &seed.Initializer{Schema: seed.RepoSchema(repository.NewSchemaRepo(db)), Path: *csvPath}
	run := in.Initialize
	if cmd == "reset" {
		run = in.Reset
	}
	report, err := seedAndPurge(ctx, run, cache)
	if err != nil {
		logging.Error().Err(err).Str("csv", *csvPath).Msg(cmd + " failed")
		db.Close()
		os.Exit(1)
	}
	for _, s := range report.Skipped {
		fmt.Println(s)
	}
	fmt.Println("Database successfully initialized")
}

// purger drops cached API responses.
type purger interface {
	Purge(ctx context.Context) error
}

// seedAndPurge runs init or reset and, when it succeeds, purges the
// response cache so the API stops serving the previous catalog.  A failed
// purge is logged and does not fail the command.
func seedAndPurge(ctx context.Context, run func(context.Context) (seed.Report, error), cache purger) (seed.Report, error) {
	report, err := run(ctx)
	if err != nil {
		return seed.Report{}, err
	}
	if err := cache.Purge(ctx); err != nil {
		logging.Warn().Err(err).Msg("purge response cache")
	}
	return report, nil
}
