package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	serverrun "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/cmd/server"
	cfgpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/config"
	pebblestore "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/storage/pebble"
	logpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// Respect REALTIME_LOG_LEVEL for both CLI and server start output
	level := os.Getenv("REALTIME_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "realtime",
		Short: "Realtime delivery engine CLI",
		Long:  "Realtime is a single-binary event delivery engine. This CLI manages the server and basic operations.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start realtime server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			httpAddr, _ := cmd.Flags().GetString("http")
			configPath, _ := cmd.Flags().GetString("config")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			mode := pebblestore.FsyncModeAlways
			switch fsyncMode {
			case "never":
				mode = pebblestore.FsyncModeNever
			case "interval":
				mode = pebblestore.FsyncModeInterval
			case "always":
				mode = pebblestore.FsyncModeAlways
			default:
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfgpkg.FromEnv(&cfg)
			if logLevel != "" {
				_ = os.Setenv("REALTIME_LOG_LEVEL", logLevel)
			}
			if logFormat != "" {
				_ = os.Setenv("REALTIME_LOG_FORMAT", logFormat)
			}
			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:       dataDir,
				HTTPAddr:      httpAddr,
				Fsync:         mode,
				FsyncInterval: time.Duration(fsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("http", ":8080", "HTTP listen address")
	serverStartCmd.Flags().String("config", os.Getenv("REALTIME_CONFIG"), "Config file path (JSON or YAML)")
	serverStartCmd.Flags().String("fsync", "always", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms (default 5)")
	serverStartCmd.Flags().String("log-level", os.Getenv("REALTIME_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("REALTIME_LOG_FORMAT"), "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// tenant create
	tenantCmd := &cobra.Command{Use: "tenant", Short: "Tenant operations"}
	tenantCreateCmd := &cobra.Command{
		Use:   "create",
		Short: "Create tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			maxConns, _ := cmd.Flags().GetInt("max-connections")
			body := map[string]any{"tenant": name, "maxConnections": maxConns}
			b, _ := json.Marshal(body)
			resp, err := http.Post(apiURL()+"/v1/tenants/create", "application/json", bytes.NewReader(b))
			if err != nil {
				return err
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			fmt.Println("status:", resp.Status)
			return nil
		},
	}
	tenantCreateCmd.Flags().String("name", "default", "Tenant name")
	tenantCreateCmd.Flags().Int("max-connections", 0, "Per-tenant connection cap (0 uses server default)")
	tenantCmd.AddCommand(tenantCreateCmd)
	rootCmd.AddCommand(tenantCmd)

	// publish
	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an event to a channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			channel, _ := cmd.Flags().GetString("channel")
			evType, _ := cmd.Flags().GetString("type")
			entityKind, _ := cmd.Flags().GetString("entity-kind")
			entityID, _ := cmd.Flags().GetString("entity-id")
			propertyID, _ := cmd.Flags().GetInt64("property-id")
			data, _ := cmd.Flags().GetString("data")
			invalidate, _ := cmd.Flags().GetBool("invalidate")

			ev := map[string]any{
				"tenantId":   tenant,
				"type":       evType,
				"entityKind": entityKind,
				"entityId":   entityID,
			}
			if propertyID != 0 {
				ev["propertyId"] = propertyID
			}
			if data != "" {
				var md map[string]any
				if err := json.Unmarshal([]byte(data), &md); err != nil {
					return fmt.Errorf("invalid --data json: %w", err)
				}
				ev["metadata"] = md
			}
			body := map[string]any{"channel": channel, "event": ev, "invalidate": invalidate}
			b, _ := json.Marshal(body)
			req, err := http.NewRequest(http.MethodPost, apiURL()+"/v1/events/publish", bytes.NewReader(b))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Tenant-ID", tenant)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			out, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			fmt.Println("status:", resp.Status)
			fmt.Println(string(out))
			return nil
		},
	}
	publishCmd.Flags().String("tenant", "default", "Tenant id")
	publishCmd.Flags().String("channel", "", "Business domain channel")
	publishCmd.Flags().String("type", "", "Event type, e.g. task.updated")
	publishCmd.Flags().String("entity-kind", "", "Entity kind")
	publishCmd.Flags().String("entity-id", "", "Entity id")
	publishCmd.Flags().Int64("property-id", 0, "Property scope (0 for tenant-wide)")
	publishCmd.Flags().String("data", "", "Event metadata as a JSON object")
	publishCmd.Flags().Bool("invalidate", false, "Also broadcast cache invalidation keys")
	rootCmd.AddCommand(publishCmd)

	// stats
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show engine stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(apiURL() + "/v1/stats")
			if err != nil {
				return err
			}
			out, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			fmt.Println(string(out))
			return nil
		},
	}
	rootCmd.AddCommand(statsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("REALTIME_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
