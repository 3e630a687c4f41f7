package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/petasbytes/biome-agent/internal/biome"
	"github.com/petasbytes/biome-agent/internal/config"
	"github.com/petasbytes/biome-agent/internal/jobs"
	"github.com/petasbytes/biome-agent/internal/notify"
	"github.com/petasbytes/biome-agent/internal/provider"
	"github.com/petasbytes/biome-agent/internal/runner"
	"github.com/petasbytes/biome-agent/internal/telemetry"
	"github.com/petasbytes/biome-agent/memory"
	"github.com/petasbytes/biome-agent/tools"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// shutdownGrace bounds how long exit waits for pollers to deliver their
// cancellation notices.
const shutdownGrace = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var cfgFile string

	root := &cobra.Command{
		Use:          "agent",
		Short:        "Chat with Claude about the data sources in a Biome app",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	root.Flags().StringVar(&cfgFile, "config", "", "config file (json, yaml or toml); defaults to ./agent.* when present")
	root.Flags().String("biome-url", "", "Biome service base URL (overrides biome.url)")
	root.Flags().String("metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
	_ = v.BindPFlag("biome.url", root.Flags().Lookup("biome-url"))
	_ = v.BindPFlag("metrics.addr", root.Flags().Lookup("metrics-addr"))
	return root
}

func run(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	// Basic env check (SDK also reads API key)
	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return errors.New("missing ANTHROPIC_API_KEY; export it before running")
	}
	if err := telemetry.ConfigureLogging(os.Stderr, cfg.Log.Level); err != nil {
		return err
	}
	log := telemetry.Log()
	telemetry.Configure(telemetry.Settings{Observe: cfg.Telemetry.Observe, EventsDir: cfg.Telemetry.EventsDir})

	client, err := biome.New(cfg.Biome.URL, &http.Client{Timeout: cfg.Biome.HTTPTimeout})
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	queue := notify.NewQueue()
	channel := notify.Fanout{&notify.Writer{W: out}, queue}
	registry := jobs.NewRegistry(&jobs.Poller{
		Client:   client,
		Channel:  channel,
		Interval: cfg.Jobs.PollInterval,
		Timeout:  cfg.Jobs.Timeout,
		Metrics:  jobs.NewMetrics(promReg),
		Log:      log,
	}, cfg.Jobs.MaxPollers)

	if cfg.Metrics.Addr != "" {
		stopMetrics := serveMetrics(cfg.Metrics.Addr, promReg, log)
		defer stopMetrics()
	}

	r := runner.New(provider.NewAnthropicClient(), tools.Registry(&tools.Biome{
		Service: client,
		Jobs:    registry,
		Channel: channel,
		Limits: tools.SearchLimits{
			MaxResults: cfg.Tools.SearchMaxResults,
			MaxLinks:   cfg.Tools.SearchMaxLinks,
		},
	}))
	r.MaxTokens = cfg.Agent.MaxTokens
	r.TokenBudget = cfg.Agent.TokenBudget
	r.Out = out

	// Load prior conversation if exists
	persisted, err := memory.LoadConversation(cfg.Agent.Transcript)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load persisted conversation: %v\n", err)
	}
	s := newSession(r, provider.ResolveModel(cfg.Agent.Model), queue, cfg.Agent.Transcript, persisted)

	// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("biome_url", client.BaseURL()).Info("agent started")
	fmt.Fprintf(out, "Chat with Claude about %s (Ctrl-C to quit)\n", client.BaseURL())

	// stdin reader goroutine -> lines into channel
	scanner := bufio.NewScanner(in)
	inputCh := make(chan string)
	go func() {
		for scanner.Scan() {
			inputCh <- scanner.Text()
		}
		close(inputCh)
	}()

outer:
	for {
		fmt.Fprint(out, "\u001b[94mYou\u001b[0m: ")
		var (
			user string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nExiting...")
			break outer
		case user, ok = <-inputCh:
			if !ok {
				break outer
			}
		}
		if err := s.turn(ctx, user); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: stdin read error: %v\n", err)
	}

	if pending := registry.Outstanding(); len(pending) > 0 {
		log.WithField("jobs", pending).Warn("stopping pollers for unfinished jobs")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := registry.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("pollers did not stop in time")
	}
	// Cancellation notices land in the transcript too.
	s.deliver()
	s.save()
	return nil
}
