// Command sqlport exports query results from relational databases into
// files, stdout or object storage.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/sqlport/pkg/config"
	"github.com/ajitpratap0/sqlport/pkg/errors"
	"github.com/ajitpratap0/sqlport/pkg/logger"
	"github.com/ajitpratap0/sqlport/pkg/metrics"
	"github.com/ajitpratap0/sqlport/pkg/observability"
	"github.com/ajitpratap0/sqlport/pkg/profile"
)

var version = "dev"

// app holds state shared by the subcommands.
type app struct {
	configFile string
	v          *viper.Viper
	settings   *config.Settings
	shutdown   []func(context.Context) error
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintln(stderr, "sqlport:", err)
		return errors.ExitCode(err)
	}
	return errors.ExitOK
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "sqlport",
		Short: "Export query results from relational databases",
		Long: `sqlport runs SQL queries against PostgreSQL, MySQL, SQLite, Snowflake or
BigQuery and streams the results as CSV, JSON, HTML, text tables, XLSX,
SQLite, Parquet or Avro to a file, stdout, S3 or GCS.

Connections are described by named profiles that can inherit from each
other.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "Settings file (default: sqlport.yaml in the user config dir or .)")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("log-encoding", "console", "Log encoding (console, json)")
	pf.String("profiles", config.DefaultProfilesFile(), "Profiles file (YAML, or HCL with a .hcl extension)")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	pf.Bool("trace", false, "Write OpenTelemetry spans to stderr")

	root.AddCommand(
		a.exportCommand(),
		a.runCommand(),
		a.profilesCommand(),
		a.schemaCommand(),
		a.shellCommand(),
		a.formatsCommand(),
		versionCommand(),
	)
	return root
}

// setup loads settings and starts logging, metrics and tracing.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.v = config.NewViper(a.configFile)
	pf := cmd.Root().PersistentFlags()
	for key, flag := range map[string]string{
		"log.level":       "log-level",
		"log.encoding":    "log-encoding",
		"profiles_file":   "profiles",
		"metrics_addr":    "metrics-addr",
		"tracing.enabled": "trace",
	} {
		if err := a.v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flag").WithDetail("flag", flag)
		}
	}

	settings, err := config.LoadSettings(a.v)
	if err != nil {
		return err
	}
	a.settings = settings

	if err := logger.Init(logger.Config{Level: settings.Log.Level, Encoding: settings.Log.Encoding, Output: cmd.ErrOrStderr()}); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to initialize logger")
	}
	if used := a.v.ConfigFileUsed(); used != "" {
		logger.Debug("settings loaded", zap.String("file", used))
	}

	shutdown, err := observability.Init(observability.TracingConfig{
		Enabled:        settings.Tracing.Enabled,
		ServiceName:    "sqlport",
		ServiceVersion: version,
		SamplingRate:   settings.Tracing.SamplingRate,
		Output:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.shutdown = append(a.shutdown, shutdown)

	if settings.MetricsAddr != "" {
		mctx, cancel := context.WithCancel(context.Background())
		if _, err := metrics.Serve(mctx, settings.MetricsAddr); err != nil {
			cancel()
			return err
		}
		a.shutdown = append(a.shutdown, func(context.Context) error {
			cancel()
			return nil
		})
	}
	return nil
}

func (a *app) close() {
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](context.Background()); err != nil {
			logger.Warn("shutdown failed", zap.Error(err))
		}
	}
	_ = logger.Sync()
}

// profiles loads the profile tree from the configured file.
func (a *app) profiles() (*profile.Tree, error) {
	nodes, err := config.LoadProfiles(a.settings.ProfilesFile)
	if err != nil {
		return nil, err
	}
	tree, err := profile.Build(nodes)
	if err != nil {
		return nil, errors.Annotate(err, errors.ErrorTypeProfile, map[string]interface{}{"file": a.settings.ProfilesFile})
	}
	return tree, nil
}
