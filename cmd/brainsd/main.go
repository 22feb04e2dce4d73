// Command brainsd is the plugin host's launcher. Adapted from the
// teacher's cmd/main.go: env-var configuration, sequential service
// construction, and signal-driven graceful shutdown are kept; the
// database/Kubernetes/auth wiring is replaced with Shell/PluginManager
// construction, and subcommands (absent from the teacher) are added via
// cobra, grounded on the pack's cobra root-command usage.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rizom-ai/brains-sub000/internal/config"
	"github.com/rizom-ai/brains-sub000/internal/eval"
	"github.com/rizom-ai/brains-sub000/internal/logger"
	"github.com/rizom-ai/brains-sub000/internal/plugin"
	"github.com/rizom-ai/brains-sub000/internal/shell"
	"github.com/rizom-ai/brains-sub000/internal/testkit"
)

func main() {
	root := &cobra.Command{
		Use:   "brainsd",
		Short: "Plugin host for the personal knowledge-management runtime",
	}

	root.AddCommand(newServeCmd(), newEvalCmd(), newPluginsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newShell builds a Shell with its external collaborators. Real
// deployments supply concrete EntityService/AIService/etc
// implementations (spec.md §1 "Out of scope" — the host never
// implements these itself); this launcher defaults to the in-memory
// testkit fakes so `serve`/`eval`/`plugins` run standalone without any
// external dependency wired up yet.
func newShell(cfg *config.Config) *shell.Shell {
	collab := shell.Collaborators{
		Entities:      testkit.NewFakeEntityService(),
		AI:            testkit.NewFakeAIService(),
		Content:       testkit.NewFakeContentService(),
		MCP:           testkit.NewFakeMCPTransport(),
		Conversations: testkit.NewFakeConversationStore(),
		Permissions:   testkit.NewFakePermissionService("user"),
	}
	return shell.New(cfg, collab)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the plugin host: initialize plugins and serve metrics/API routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Initialize(cfg.LogLevel, cfg.LogPretty)

			s := newShell(cfg)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if err := s.Start(ctx); err != nil {
				return fmt.Errorf("starting plugin host: %w", err)
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			srv := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           mux,
				ReadTimeout:       15 * time.Second,
				ReadHeaderTimeout: 5 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       120 * time.Second,
			}

			go func() {
				logger.Log.Info().Str("addr", cfg.HTTPAddr).Msg("metrics server listening")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Log.Fatal().Err(err).Msg("metrics server failed")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			sig := <-quit
			logger.Log.Info().Str("signal", sig.String()).Msg("shutting down")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Log.Error().Err(err).Msg("metrics server forced to shutdown")
			}
			if err := s.Shutdown(shutdownCtx); err != nil {
				logger.Log.Error().Err(err).Msg("error during plugin shutdown")
			}
			return nil
		},
	}
}

func newEvalCmd() *cobra.Command {
	var suitePath string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run an evaluation suite against the current plugin set",
		RunE: func(cmd *cobra.Command, args []string) error {
			if suitePath == "" {
				return fmt.Errorf("--suite is required")
			}

			cfg := config.Load()
			logger.Initialize(cfg.LogLevel, cfg.LogPretty)

			data, err := os.ReadFile(suitePath)
			if err != nil {
				return fmt.Errorf("reading suite file: %w", err)
			}
			suite, err := eval.LoadSuite(data)
			if err != nil {
				return fmt.Errorf("parsing suite: %w", err)
			}

			s := newShell(cfg)
			if err := s.Start(cmd.Context()); err != nil {
				return fmt.Errorf("starting plugin host: %w", err)
			}

			agent := testkit.NewFakeAIService()
			runner := eval.NewRunner(s.EvalHandlers, agentAdapter{agent})
			results := runner.Run(cmd.Context(), suite)

			failed := 0
			for _, r := range results {
				if r.Passed {
					fmt.Printf("PASS  %s\n", r.Name)
					continue
				}
				failed++
				fmt.Printf("FAIL  %s\n", r.Name)
				for _, f := range r.Failures {
					fmt.Printf("        %s\n", f)
				}
			}
			fmt.Printf("\n%d/%d tests passed\n", len(results)-failed, len(results))
			if failed > 0 {
				return fmt.Errorf("%d test(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&suitePath, "suite", "", "path to a YAML evaluation suite")
	return cmd
}

// agentAdapter satisfies eval.AgentQuerier with a conversationID-less
// AIService.Query, since the fake agent used by the eval CLI has no
// conversation state to key off of.
type agentAdapter struct {
	ai *testkit.FakeAIService
}

func (a agentAdapter) Query(ctx context.Context, conversationID, prompt string) (string, error) {
	return a.ai.Query(ctx, prompt)
}

func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "Initialize plugins and print their final lifecycle status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Initialize(cfg.LogLevel, cfg.LogPretty)

			s := newShell(cfg)
			if err := s.Start(cmd.Context()); err != nil {
				return fmt.Errorf("starting plugin host: %w", err)
			}

			for _, id := range s.Manager.ListIDs() {
				info, ok := s.Manager.Get(id)
				if !ok {
					continue
				}
				status := info.Status
				line := fmt.Sprintf("%-30s %s", id, status)
				if status == plugin.StatusError && info.Err != nil {
					line += fmt.Sprintf(" (%s)", info.Err)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
