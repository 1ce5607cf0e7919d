// Command rxdemo runs the scenario catalog on the real-time scheduler and
// logs every emission.
//
// Usage:
//
//	rxdemo [-config rxdemo.yaml] [-scenario name]... [-list]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/KasperOmsK/rxfn/internal/config"
	"github.com/KasperOmsK/rxfn/internal/scenario"
)

type scenarioFlag []string

func (f *scenarioFlag) String() string { return strings.Join(*f, ",") }

func (f *scenarioFlag) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	var names scenarioFlag
	configPath := flag.String("config", "", "Path to configuration file (defaults apply when empty)")
	list := flag.Bool("list", false, "List the scenarios and exit")
	flag.Var(&names, "scenario", "Scenario to run; repeatable, overrides run.scenarios")
	flag.Parse()

	if *list {
		listScenarios(os.Stdout)
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rxdemo: %v\n", err)
			os.Exit(2)
		}
		cfg = loaded
	}
	if len(names) > 0 {
		cfg.Run.Scenarios = names
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rxdemo: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func listScenarios(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tGROUP\tDESCRIPTION")
	for _, s := range scenario.Catalog() {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Name, s.Group, s.Description)
	}
	_ = tw.Flush()
}
