// Package main provides the sparqled binary entry point.
// sparqled binds a SPARQL endpoint's prefixes, VoID term lists and example
// queries to a query editor, and serves them over HTTP.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/c360studio/semstreams/pkg/retry"
	"github.com/spf13/cobra"

	"github.com/c360studio/sparqled/autocomplete"
	"github.com/c360studio/sparqled/config"
	"github.com/c360studio/sparqled/editor"
	"github.com/c360studio/sparqled/examples"
	"github.com/c360studio/sparqled/metrics"
	"github.com/c360studio/sparqled/server"
	"github.com/c360studio/sparqled/sparql"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "sparqled"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	endpoint   string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "SPARQL editor endpoint binder",
		Long: `sparqled reads a SPARQL endpoint's declared prefixes (sh:prefix),
VoID class and property statistics, and example queries
(sh:SPARQLExecutable), and binds them to a query editor.

It can serve the editor page and its JSON API, or run the individual
steps from the command line.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVarP(&flags.endpoint, "endpoint", "e", "", "SPARQL endpoint URL")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		serveCmd(flags),
		prefixesCmd(flags),
		examplesCmd(flags),
		termsCmd(flags),
		injectCmd(flags),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// env holds what every command needs.
type env struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	client  *sparql.Client
}

// setup loads configuration, configures logging and creates the client.
func setup(flags *globalFlags, stderr io.Writer) (*env, error) {
	logger := newLogger(flags.logLevel, stderr)

	cfg, err := loadConfig(flags.configPath, logger)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.endpoint != "" {
		cfg.Endpoint.URL = flags.endpoint
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.LogLevel != "" && flags.logLevel == "info" {
		logger = newLogger(cfg.LogLevel, stderr)
	}
	slog.SetDefault(logger)

	m := metrics.New()
	client, err := newClient(cfg, m, logger)
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, logger: logger, metrics: m, client: client}, nil
}

func newLogger(level string, w io.Writer) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	if path == "" {
		return config.NewLoader(logger).Load()
	}
	fileCfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	cfg := config.DefaultConfig()
	cfg.Merge(fileCfg)
	return cfg, nil
}

func newClient(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*sparql.Client, error) {
	retryCfg := sparql.DefaultRetryConfig()
	retryCfg.MaxAttempts = cfg.Endpoint.RetryAttempts
	if retryCfg.MaxAttempts > 1 {
		retryCfg = withBackoff(retryCfg)
	}

	client, err := sparql.NewClient(cfg.Endpoint.URL,
		sparql.WithTimeout(cfg.Endpoint.Timeout),
		sparql.WithUserAgent(cfg.Endpoint.UserAgent+"/"+Version),
		sparql.WithMaxResponseSize(cfg.Endpoint.MaxResponseBytes),
		sparql.WithRetryConfig(retryCfg),
		sparql.WithMetrics(m),
		sparql.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create SPARQL client: %w", err)
	}
	return client, nil
}

func withBackoff(cfg retry.Config) retry.Config {
	cfg.InitialDelay = 200 * time.Millisecond
	cfg.MaxDelay = 5 * time.Second
	cfg.Multiplier = 2
	cfg.AddJitter = true
	return cfg
}

// newBinder creates a binder from configuration and waits for the initial
// fetches.
func (e *env) newBinder(ctx context.Context) (*editor.Binder, *examples.LocalSource, error) {
	opts := []editor.Option{
		editor.WithLogger(e.logger),
		editor.WithMetrics(e.metrics),
		editor.WithDefaults(e.cfg.Prefixes.Defaults),
		editor.WithRemotePrefixes(e.cfg.LoadRemotePrefixes()),
		editor.WithInlineCount(e.cfg.InlineCount()),
		editor.WithTermCache(e.cfg.TermCacheSize(), e.cfg.TermCacheTTL()),
	}

	var local *examples.LocalSource
	if e.cfg.Examples.LocalDir != "" {
		var err error
		local, err = examples.NewLocalSource(e.cfg.Examples.LocalDir, e.cfg.Examples.LocalGlob, e.logger)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, editor.WithLocalExamples(local))
	}

	b := editor.New(ctx, e.client, opts...)
	b.Wait()
	return b, local, nil
}

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor page and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if addr != "" {
				e.cfg.Server.Addr = addr
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			binder, local, err := e.newBinder(ctx)
			if err != nil {
				return err
			}

			if local != nil && e.cfg.Examples.Watch {
				watcher, err := examples.NewWatcher(local, 0, e.logger)
				if err != nil {
					return fmt.Errorf("create example watcher: %w", err)
				}
				if err := watcher.Start(ctx); err != nil {
					return fmt.Errorf("start example watcher: %w", err)
				}
				defer watcher.Stop()
				go applyReloads(watcher, binder, e.logger)
			}

			opts := []server.Option{
				server.WithBasePath(e.cfg.Server.BasePath),
				server.WithLogger(e.logger),
			}
			if e.cfg.MetricsEnabled() {
				opts = append(opts, server.WithMetrics(e.metrics))
			}

			return server.New(binder, opts...).ListenAndServe(ctx, e.cfg.Server.Addr, nil)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func applyReloads(w *examples.Watcher, b *editor.Binder, logger *slog.Logger) {
	for ev := range w.Events() {
		if ev.Error != nil {
			logger.Warn("Failed to reload local examples", "error", ev.Error)
			continue
		}
		b.SetLocalExamples(ev.Examples)
		logger.Info("Reloaded local examples",
			"changed", len(ev.Paths),
			"count", len(ev.Examples))
	}
}

func prefixesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "prefixes",
		Short: "List the merged prefix table",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			binder, _, err := e.newBinder(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, entry := range binder.Table().Entries() {
				fmt.Fprintf(tw, "%s:\t%s\n", entry.Prefix, entry.Namespace)
			}
			return tw.Flush()
		},
	}
}

func examplesCmd(flags *globalFlags) *cobra.Command {
	var (
		show int
		id   string
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "examples",
		Short: "List example queries, or print one with --show or --id",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			binder, _, err := e.newBinder(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if show >= 0 || id != "" {
				buf := editor.NewBuffer("", nil)
				var ex examples.Example
				if id != "" {
					ex, err = binder.UseExampleID(buf, id)
				} else {
					ex, err = binder.UseExample(buf, show)
				}
				if err != nil {
					return err
				}
				if ex.Description != "" {
					fmt.Fprintf(out, "%s\n\n", ex.Description)
				}
				fmt.Fprintln(out, buf.Value())
				return nil
			}

			list := binder.Panel().Inline()
			if all {
				list = binder.OpenExamples()
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No examples published by this endpoint.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for i, ex := range list {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", i, ex.ID, truncate(examples.PlainText(ex.Comment), 80))
			}
			if !all && binder.Panel().Len() > len(list) {
				fmt.Fprintf(tw, "\t(%d more, use --all)\n", binder.Panel().Len()-len(list))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&show, "show", -1, "Print the example at this index with its prefixes declared")
	cmd.Flags().StringVar(&id, "id", "", "Print the example with this ID with its prefixes declared")
	cmd.Flags().BoolVar(&all, "all", false, "List every example, not only the inline ones")
	cmd.MarkFlagsMutuallyExclusive("show", "id")
	return cmd
}

func termsCmd(flags *globalFlags) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:       "terms {class|property}",
		Short:     "List the endpoint's VoID classes or properties",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"class", "property"},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			binder, _, err := e.newBinder(cmd.Context())
			if err != nil {
				return err
			}

			name := autocomplete.ClassProviderName
			if args[0] == "property" {
				name = autocomplete.PropertyProviderName
			}
			provider, ok := binder.Registry().Get(name)
			if !ok {
				return fmt.Errorf("provider %s not registered", name)
			}

			for _, term := range autocomplete.Filter(provider.Get(cmd.Context(), token), token) {
				fmt.Fprintln(cmd.OutOrStdout(), term)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "filter", "", "Only list terms containing this text")
	return cmd
}

func injectCmd(flags *globalFlags) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "inject [file]",
		Short: "Declare the prefixes a query uses (reads stdin without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read query: %w", err)
			}

			e, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			binder, _, err := e.newBinder(cmd.Context())
			if err != nil {
				return err
			}

			buf := editor.NewBuffer(string(data), nil)
			if all {
				binder.AddAllPrefixes(buf)
			} else {
				added := binder.InjectPrefixes(buf)
				e.logger.Debug("Declared prefixes", "added", added)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), buf.Value())
			return err
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Declare every known prefix")
	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
