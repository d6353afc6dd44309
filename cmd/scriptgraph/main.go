// Command scriptgraph writes one scraping script per source URL and merges
// them into a single script printed on stdout.
//
// Usage:
//
//	scriptgraph --prompt "List every plan with its price" \
//	    --source https://a.example/pricing --source https://b.example/pricing
//
// With --mcp it serves the script_creator_multi tool over stdio instead.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/leofalp/scriptgraph/config"
	"github.com/leofalp/scriptgraph/graphs"
	"github.com/leofalp/scriptgraph/internal/mcpserver"
	"github.com/leofalp/scriptgraph/providers/observability"
	slogobs "github.com/leofalp/scriptgraph/providers/observability/slog"
	zerologobs "github.com/leofalp/scriptgraph/providers/observability/zerolog"
)

var version = "dev"

// errNoScript marks a run that returned the failure sentinel.
var errNoScript = errors.New("no script generated")

type cliOptions struct {
	prompt     string
	sources    []string
	configFile string
	envFile    string
	logFormat  string
	logLevel   string
	mcp        bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errNoScript) {
			fmt.Fprintln(os.Stderr, "scriptgraph:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := pflag.NewFlagSet("scriptgraph", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	var cli cliOptions
	flags.StringVarP(&cli.prompt, "prompt", "p", "", "what the generated script must extract")
	flags.StringArrayVarP(&cli.sources, "source", "s", nil, "source URL, repeatable")
	flags.StringVarP(&cli.configFile, "config", "c", "", "YAML configuration file")
	flags.StringVar(&cli.envFile, "env-file", "", "env file to load (default .env when present)")
	flags.StringVar(&cli.logFormat, "log-format", "text", "log format: text, json or zerolog")
	flags.StringVar(&cli.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.BoolVar(&cli.mcp, "mcp", false, "serve the script_creator_multi MCP tool over stdio")

	flags.String("model", "", "model name")
	flags.String("base-url", "", "OpenAI-compatible API base URL")
	flags.String("library", "", "scraping library the scripts use")
	flags.Int("chunk-size", 0, "max bytes of page content sent to the model")
	flags.Int("max-concurrency", 0, "max sources processed at once (0 = no bound)")
	flags.String("failure-policy", "", "partial or abort")
	flags.Duration("timeout", 0, "timeout of the whole run")
	flags.Bool("verbose", false, "log model requests and replies")

	if err := flags.Parse(args); err != nil {
		return err
	}

	loaderOptions := []config.LoaderOption{config.WithFlags(flags)}
	if cli.configFile != "" {
		loaderOptions = append(loaderOptions, config.WithConfigFile(cli.configFile))
	}
	if cli.envFile != "" {
		loaderOptions = append(loaderOptions, config.WithEnvFile(cli.envFile))
	}
	cfg, err := config.Load(loaderOptions...)
	if err != nil {
		return err
	}

	observer, logger := newObserver(stderr, cli.logFormat, cli.logLevel)
	graphOptions := []graphs.Option{graphs.WithObserver(observer)}
	if cfg.Verbose && logger != nil {
		graphOptions = append(graphOptions, graphs.WithLogger(logger))
	}

	if cli.mcp {
		return mcpserver.New(cfg, graphOptions...).Run(ctx, version)
	}

	if cli.prompt == "" {
		return errors.New("--prompt is required")
	}

	multi, err := graphs.NewScriptCreatorMultiGraph(cli.prompt, cli.sources, cfg, nil, graphOptions...)
	if err != nil {
		return err
	}

	result, err := multi.Execute(ctx)
	if err != nil {
		return err
	}

	for _, failure := range result.Failures {
		fmt.Fprintf(stderr, "source %d failed: %s: %v\n", failure.Index, failure.URL, failure.Err)
	}
	if result.MergeError != nil {
		fmt.Fprintf(stderr, "merge failed: %v\n", result.MergeError)
	}
	if result.Cost != nil {
		fmt.Fprintf(stderr, "estimated cost: %s\n", result.Cost)
	}

	fmt.Fprintln(stdout, result.MergedScript)
	if result.MergedScript == graphs.FailedScript {
		return errNoScript
	}
	return nil
}

// newObserver builds the observer for format. The slog logger is returned
// for the model-call logging middleware; it is nil for zerolog.
func newObserver(w io.Writer, format, level string) (observability.Provider, *slog.Logger) {
	slogLevel := slogobs.GetLogLevelFromEnv()
	if level != "" {
		slogLevel = slogobs.ParseLogLevel(level)
	}

	if format == "zerolog" {
		return zerologobs.NewWriter(w, zerologLevel(slogLevel)), nil
	}

	logger := slogobs.NewLogger(w, format, slogLevel)
	return slogobs.New(logger), logger
}

func zerologLevel(level slog.Level) string {
	switch {
	case level < slog.LevelDebug:
		return "trace"
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}
