package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hospitaldigital/hospital-api/pkg/config"
	"github.com/hospitaldigital/hospital-api/pkg/db"
	"github.com/hospitaldigital/hospital-api/pkg/recovery"
	"github.com/hospitaldigital/hospital-api/pkg/server"
	"github.com/hospitaldigital/hospital-api/pkg/server/endpoints"
	"github.com/hospitaldigital/hospital-api/pkg/token"
)

func defaultBindAddress() string {
	if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
		return addr
	}
	return "0.0.0.0"
}

func defaultPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "8000"
}

func defaultPortInt() int {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			return p
		}
	}
	return 8000
}

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the hospital records API server",
	Long: `Run the hospital records API server.

Running the server requires the SECRET_KEY and DATABASE_URL environment
variables. SECRET_KEY can be generated with "hospitalctl secret-key generate".

By default, database migrations are run on startup. Use --no-migrate to skip.`,
	Run: func(cmd *cobra.Command, args []string) {
		if os.Getenv("SECRET_KEY") == "" {
			fmt.Fprintln(os.Stderr, "SECRET_KEY environment variable is required")
			os.Exit(1)
		}
		if os.Getenv("DATABASE_URL") == "" {
			fmt.Fprintln(os.Stderr, "DATABASE_URL environment variable is required")
			os.Exit(1)
		}

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			log.Println("Running database migrations...")
			if err := runMigrations(); err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
				os.Exit(1)
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
			os.Exit(1)
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(os.Stderr, "Invalid configuration:", err)
			os.Exit(1)
		}

		logger := newLogger()
		defer func() { _ = logger.Sync() }()

		database, err := db.Connect(db.Config{})
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to connect to DB:", err)
			os.Exit(1)
		}

		issuer, err := token.NewIssuer(cfg.SecretKey, cfg.Algorithm, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to create token issuer:", err)
			os.Exit(1)
		}

		host, _ := cmd.Flags().GetString("bind-address")
		port, _ := cmd.Flags().GetString("port")
		s := server.NewServer(cfg, database, issuer, logger, host, port)

		if cfg.RecoveryEnabled() {
			svc, err := recovery.New(context.Background(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				logger.Warn("password recovery disabled, redis unreachable", zap.Error(err))
			} else {
				s.WithRecovery(svc)
			}
		}

		endpoints.RegisterAll(s)

		logger.Info("starting server", zap.String("host", host), zap.String("port", port))
		log.Fatal(s.Start())
	},
}

func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	if level, err := zap.ParseAtomicLevel(os.Getenv("HOSPITAL_LOG_LEVEL")); err == nil {
		cfg.Level = level
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringP("port", "p", defaultPort(), "server listen port")
	serverCmd.Flags().StringP("bind-address", "b", defaultBindAddress(), "server bind address")
	serverCmd.Flags().Bool("no-migrate", false, "skip running database migrations on start")
}
