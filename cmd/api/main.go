package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-userview/internal/auth"
	"github.com/ovaphlow/pitchfork/service-userview/internal/router"
	viewrepo "github.com/ovaphlow/pitchfork/service-userview/internal/userview/repo"
	"github.com/ovaphlow/pitchfork/service-userview/pkg/database"
	"github.com/ovaphlow/pitchfork/service-userview/pkg/utilities"
)

type serverConfig struct {
	Addr string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8431"`
}

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	logCfg, err := utilities.ConfigFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	lg, err := utilities.Init(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-userview")

	var srvCfg serverConfig
	if err := env.Parse(&srvCfg); err != nil {
		sugar.Fatalf("parse server env: %v", err)
	}
	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("%v", err)
	}
	verifier, err := auth.NewVerifier(authCfg)
	if err != nil {
		sugar.Fatalf("auth: %v", err)
	}

	// init db
	dbCfg, err := database.ConfigFromEnv()
	if err != nil {
		sugar.Fatalf("%v", err)
	}
	db, err := database.Open(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	if dbCfg.EnsureSchema {
		ctx, cancel := context.WithTimeout(context.Background(), dbCfg.OpTimeout())
		err := viewrepo.NewSchema(db).EnsureTables(ctx)
		cancel()
		if err != nil {
			sugar.Fatalf("ensure schema: %v", err)
		}
		sugar.Infow("schema ensured", "driver", dbCfg.Driver)
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           router.RegisterRoutes(sugar, db, verifier),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", srvCfg.Addr)

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for cleanup
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
