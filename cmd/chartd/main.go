package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chartd/internal/common/fsutil"
	"chartd/internal/config"
	"chartd/internal/controller"
	"chartd/internal/event"
	"chartd/internal/httpapi"
	"chartd/internal/records"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chartd:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	// Flags with environment variable defaults
	cfg := config.Config{Addr: ":8080", LogLevel: "info"}
	if v := os.Getenv("CHARTD_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("CHARTD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	var cfgPath string

	root := &cobra.Command{
		Use:           "chartd",
		Short:         "Patient records served through MVC controllers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error (defaults CHARTD_LOG_LEVEL or info)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cfgPath == "" {
			return nil
		}
		fileCfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", cfgPath, err)
		}
		cfg = mergeConfig(fileCfg, cfg, cmd)
		return nil
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serveHTTP(ctx, cfg, newLogger(cfg.LogLevel))
		},
	}
	var origins, methods, headers string
	serve.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address, e.g. :8080 (defaults CHARTD_ADDR)")
	serve.Flags().StringVar(&cfg.DataFile, "data-file", "", "JSON snapshot file for records (empty keeps data in memory)")
	serve.Flags().Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", 1<<20, "Maximum request body size")
	serve.Flags().Int64Var(&cfg.DispatchTimeout, "dispatch-timeout", 0, "Per-dispatch timeout in seconds (0 disables)")
	serve.Flags().BoolVar(&cfg.RequireClinician, "require-clinician", false, "Reject records requests without an X-Clinician header")
	serve.Flags().BoolVar(&cfg.CORSEnabled, "cors-enabled", false, "Enable CORS")
	serve.Flags().StringVar(&origins, "cors-origins", "", "Comma-separated allowed origins")
	serve.Flags().StringVar(&methods, "cors-methods", "GET,POST,PUT,OPTIONS", "Comma-separated allowed methods")
	serve.Flags().StringVar(&headers, "cors-headers", "Content-Type,X-Clinician,X-Log-Level", "Comma-separated allowed headers")
	serve.PreRun = func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("cors-origins") || len(cfg.CORSOrigins) == 0 {
			cfg.CORSOrigins = splitCSV(origins)
		}
		if cmd.Flags().Changed("cors-methods") || len(cfg.CORSMethods) == 0 {
			cfg.CORSMethods = splitCSV(methods)
		}
		if cmd.Flags().Changed("cors-headers") || len(cfg.CORSHeaders) == 0 {
			cfg.CORSHeaders = splitCSV(headers)
		}
	}

	routes := &cobra.Command{
		Use:   "routes",
		Short: "List dispatchable controllers and their actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := buildRegistry(records.NewStore(""), cfg, zerolog.Nop())
			out := cmd.OutOrStdout()
			for _, r := range reg.Routes() {
				fmt.Fprintf(out, "%s\t%s\n", r.Controller, strings.Join(r.Actions, ","))
			}
			return nil
		},
	}

	actionName := &cobra.Command{
		Use:     "action-name TOKEN...",
		Short:   "Print the action method name for route tokens",
		Example: "  chartd action-name edit-patient-record view.notes",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, a := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", a, controller.MethodFromAction(a))
			}
			return nil
		},
	}

	root.AddCommand(serve, routes, actionName)
	return root
}

// mergeConfig overlays explicitly set flags on top of file values.
func mergeConfig(file, flags config.Config, cmd *cobra.Command) config.Config {
	out := file
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if out.Addr == "" || changed("addr") {
		out.Addr = flags.Addr
	}
	if out.LogLevel == "" || changed("log-level") {
		out.LogLevel = flags.LogLevel
	}
	if changed("data-file") {
		out.DataFile = flags.DataFile
	}
	if out.MaxBodyBytes == 0 || changed("max-body-bytes") {
		out.MaxBodyBytes = flags.MaxBodyBytes
	}
	if changed("dispatch-timeout") {
		out.DispatchTimeout = flags.DispatchTimeout
	}
	if changed("require-clinician") {
		out.RequireClinician = flags.RequireClinician
	}
	if changed("cors-enabled") {
		out.CORSEnabled = flags.CORSEnabled
	}
	return out
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Str("service", "chartd").Logger()
}

// buildRegistry wires the records controllers and listeners.
func buildRegistry(store *records.Store, cfg config.Config, log zerolog.Logger) *controller.Registry {
	reg := controller.NewRegistry(event.NewSharedManager(), controller.WithLogger(log))
	records.Register(reg, store, cfg.RequireClinician, log)
	return reg
}

func serveHTTP(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	dataPath, err := cfg.DataPath()
	if err != nil {
		return err
	}
	store := records.NewStore(dataPath)
	if dataPath != "" {
		if !fsutil.PathExists(dataPath) {
			log.Info().Str("data_file", dataPath).Msg("data file not found; starting empty")
		}
		if err := store.Load(); err != nil {
			return fmt.Errorf("load records: %w", err)
		}
	}
	reg := buildRegistry(store, cfg, log)

	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetDispatchTimeoutSeconds(cfg.DispatchTimeout)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, cfg.CORSMethods, cfg.CORSHeaders)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Strs("controllers", reg.Names()).Msg("chartd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	// Graceful shutdown (Ctrl+C / SIGTERM)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
		return err
	}
	log.Info().Msg("chartd stopped")
	return nil
}

// splitCSV splits a comma-separated list, trimming blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
