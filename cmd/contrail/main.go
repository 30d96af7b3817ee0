package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/wsilva/contrail/internal/api"
	"github.com/wsilva/contrail/internal/config"
	"github.com/wsilva/contrail/internal/pipeline"
	"github.com/wsilva/contrail/internal/storage/sqlite"
	"github.com/wsilva/contrail/pkg/logger"
)

// Build flags
var version = ""
var commit = ""
var date = ""

func main() {
	// Signal-based context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cmd := newCommand()
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *ffcli.Command {
	fs := flag.NewFlagSet("contrail", flag.ExitOnError)
	return &ffcli.Command{
		ShortUsage: "contrail [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(),
			newStageCommand("tas", "annotate trajectories with wind and true airspeed",
				func(p *pipeline.Pipeline) stageFunc { return p.RunTAS }),
			newStageCommand("enrich", "join aircraft metadata onto flights",
				func(p *pipeline.Pipeline) stageFunc { return p.RunEnrich }),
			newStageCommand("perf", "evaluate the aircraft performance model",
				func(p *pipeline.Pipeline) stageFunc { return p.RunPerf }),
			newStageCommand("cocip", "evaluate the contrail model per flight",
				func(p *pipeline.Pipeline) stageFunc { return p.RunCocip }),
			newSummaryCommand(),
			newStageCommand("run", "run all pipeline stages in sequence",
				func(p *pipeline.Pipeline) stageFunc { return p.Run }),
			newServeCommand(),
		},
	}
}

func newVersionCommand() *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "contrail version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if bi, ok := debug.ReadBuildInfo(); ok {
					v = bi.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			fields := []string{v}
			if commit != "" {
				fields = append(fields, commit)
			}
			if date != "" {
				fields = append(fields, date)
			}
			fmt.Println(strings.Join(fields, " "))
			return nil
		},
	}
}

type stageFunc func(context.Context) error

func newStageCommand(name, help string, stage func(*pipeline.Pipeline) stageFunc) *ffcli.Command {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	return &ffcli.Command{
		Name:       name,
		ShortUsage: fmt.Sprintf("contrail %s [-config path]", name),
		ShortHelp:  help,
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			cfg, log, store, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			defer store.Close()

			p, err := pipeline.New(cfg, store, log)
			if err != nil {
				return err
			}
			return stage(p)(ctx)
		},
	}
}

func newSummaryCommand() *ffcli.Command {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	compare := fs.String("compare", "", "comma-separated result CSVs to compare against")
	topN := fs.Int("top", 10, "number of common top flights for the comparison")
	return &ffcli.Command{
		Name:       "summary",
		ShortUsage: "contrail summary [-config path] [-compare a.csv,b.csv] [-top n]",
		ShortHelp:  "aggregate energy forcing per flight and callsign",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			cfg, log, store, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			defer store.Close()

			p, err := pipeline.New(cfg, store, log)
			if err != nil {
				return err
			}
			if err := p.RunSummary(ctx); err != nil {
				return err
			}
			if *compare == "" {
				return nil
			}
			return p.RunConvergence(ctx, strings.Split(*compare, ","), *topN)
		},
	}
}

func newServeCommand() *ffcli.Command {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	return &ffcli.Command{
		Name:       "serve",
		ShortUsage: "contrail serve [-config path]",
		ShortHelp:  "serve stored run summaries over HTTP",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			cfg, log, store, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()
			defer store.Close()

			router := api.NewRouter(store, log)
			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:      router.Routes(),
				ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
				WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
				IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("Starting results API server",
					logger.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			log.Info("Server stopped")
			return nil
		},
	}
}

func setup(configPath string) (*config.Config, *logger.Logger, *sqlite.Store, error) {
	cfg, err := config.LoadWithFallback(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := sqlite.New(cfg.Storage.SQLitePath, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, store, nil
}
