// Package main is the entrypoint for the comms-transport chat service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/morezero/comms-transport/internal/config"
	"github.com/morezero/comms-transport/internal/server"
	"github.com/morezero/comms-transport/pkg/audit"
)

const usage = `Usage: comms-transport [command]
       comms-transport serve              Start the service (COMMS routes, error events, HTTP health).
       comms-transport migrate            Run error audit migrations.
       comms-transport ensure-db [name]   Create the audit database if missing (default name: comms_audit_test).
       comms-transport clear              Truncate recorded error replies; schema is preserved.
       comms-transport healthcheck [addr] Query the gRPC health service (default 127.0.0.1:$GRPC_PORT).

Commands:
  serve            (default) Serve chat.chatgroup.command.create and chat.chatgroup.query.get.
  migrate          Run audit migrations only (does not start the service).
  ensure-db [name] Create database on the same host as DATABASE_URL.
  clear            Truncate audit data.
  healthcheck      Exit non-zero unless the running service reports SERVING.

Environment: COMMS_URL, COMMS_CODEC (json or proto), SERVICE_DOMAIN, ERROR_DOMAIN, QUEUE_GROUP,
ENVELOPE_VERSION, ENVELOPE_ACCEPT, ERROR_EVENT_SUBJECT, AUDIT_ENABLED, DATABASE_URL, HTTP_PORT,
GRPC_PORT, LOG_LEVEL.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if err := runMigrate(); err != nil {
			log.Fatalf("comms-transport migrate: %v", err)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("comms-transport clear: %v", err)
		}
		return
	case "ensure-db":
		dbName := "comms_audit_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("comms-transport ensure-db: %v", err)
		}
		return
	case "healthcheck":
		addr := ""
		if len(args) > 1 {
			addr = args[1]
		}
		if err := runHealthcheck(addr); err != nil {
			log.Fatalf("comms-transport healthcheck: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("comms-transport: %v", err)
	}
}

func loadDBConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMigrate() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := audit.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := audit.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runClear() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := audit.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := audit.Clear(ctx, pool); err != nil {
		return fmt.Errorf("clear audit: %w", err)
	}
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	targetURL, err := withDatabase(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	if err := audit.EnsureDatabase(context.Background(), targetURL); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}

func runHealthcheck(addr string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	target, err := healthTarget(addr, cfg.GRPCPort)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HealthCheckTimeout)
	defer cancel()
	if err := server.CheckHealth(ctx, target, grpc.WithTransportCredentials(insecure.NewCredentials())); err != nil {
		return err
	}
	fmt.Printf("%s is serving.\n", target)
	return nil
}

// healthTarget is addr, or the local gRPC port when addr is empty.
func healthTarget(addr string, port int) (string, error) {
	if addr != "" {
		return addr, nil
	}
	if port <= 0 {
		return "", errors.New("GRPC_PORT is disabled; pass an address")
	}
	return fmt.Sprintf("127.0.0.1:%d", port), nil
}

// withDatabase replaces the database name of databaseURL. The query (e.g. sslmode) is kept.
func withDatabase(databaseURL, dbName string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	u.Path = "/" + dbName
	return u.String(), nil
}
