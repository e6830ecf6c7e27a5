package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ltyyb/surveybot/src/actions"
	_ "github.com/ltyyb/surveybot/src/ai/providers"
	sharedconfig "github.com/ltyyb/surveybot/src/config"
	shareddata "github.com/ltyyb/surveybot/src/data"
	"github.com/ltyyb/surveybot/src/logging"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()
	logging.Init(os.Getenv("LOG_LEVEL"), "surveybot", os.Getenv("LOG_PRETTY") == "1")
	log := logging.For("main")

	dsn, err := shareddata.GetMySQLDSN()
	if err != nil {
		log.Fatal().Err(err).Msg("db config")
	}
	db, err := shareddata.ConnectMySQL(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	if err := shareddata.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	base := sharedconfig.LoadBase(db)
	rdb, err := shareddata.ConnectRedis(ctx, base.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis")
	}
	if rdb == nil {
		log.Info().Msg("no REDIS_URL, lifecycle events off and rate limiting in process")
	} else {
		defer rdb.Close()
	}

	manager, err := actions.StartAll(ctx, db, rdb)
	if err != nil {
		log.Fatal().Err(err).Msg("actions start")
	}

	// Wait for termination
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	manager.Stop(stopCtx)
	cancel()
}
