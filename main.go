package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/yeremiapane/storefront-orders/bus"
	"github.com/yeremiapane/storefront-orders/config"
	"github.com/yeremiapane/storefront-orders/database"
	"github.com/yeremiapane/storefront-orders/router"
	"github.com/yeremiapane/storefront-orders/services"
	"github.com/yeremiapane/storefront-orders/session"
	"github.com/yeremiapane/storefront-orders/utils"
)

func main() {
	app := &cli.App{
		Name:     "storefront-orders",
		Usage:    "multi-tenant storefront ordering and tracking API",
		Metadata: map[string]interface{}{},
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			utils.InitLogger(cfg.LogLevel, cfg.LogJSON)
			c.App.Metadata["config"] = cfg
			return nil
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "create or update the schema",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "seed-tenant", Usage: "also seed a demo tenant with this slug"},
					&cli.StringFlag{Name: "admin-password", Usage: "admin password for the seeded tenant", EnvVars: []string{"SEED_ADMIN_PASSWORD"}},
				},
				Action: migrate,
			},
			{
				Name:      "hash-password",
				Usage:     "print the bcrypt hash for an admin password",
				ArgsUsage: "<password>",
				Action:    hashPassword,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func loadedConfig(c *cli.Context) config.Config {
	return c.App.Metadata["config"].(config.Config)
}

func serve(c *cli.Context) error {
	cfg := loadedConfig(c)
	if cfg.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	log := utils.InfoLogger.WithField("component", "storefront")
	events := bus.New(cfg.BusBuffer, log)
	sessions := session.NewStore(cfg.SessionTTL)
	janitor := services.NewSessionJanitor(sessions, cfg.SessionSweepInterval, log)

	r := router.SetupRouter(router.Dependencies{
		Config:   cfg,
		DB:       db,
		Bus:      events,
		Sessions: sessions,
		Tokens:   utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Log:      log,
	})
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		utils.InfoLogger.Infof("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return janitor.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		utils.InfoLogger.Info("shutting down")
		events.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func migrate(c *cli.Context) error {
	cfg := loadedConfig(c)
	db, err := config.InitDB(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	utils.InfoLogger.Info("AutoMigrate completed.")

	if slug := c.String("seed-tenant"); slug != "" {
		tenant, err := database.SeedDemo(c.Context, db, slug, c.String("admin-password"))
		if err != nil {
			return err
		}
		utils.InfoLogger.WithField("tenant_id", tenant.ID).Info("seed completed")
	}
	return nil
}

func hashPassword(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: storefront-orders hash-password <password>", 2)
	}
	hash, err := services.HashPassword(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
