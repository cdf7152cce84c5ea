// Package main is the entry point for the fingate binary.
// It provides a CLI for running the gated financial advisory pipeline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fingate-ai/fingate/internal/governance"
	"github.com/fingate-ai/fingate/pkg/agent"
	"github.com/fingate-ai/fingate/pkg/config"
	"github.com/fingate-ai/fingate/pkg/domain"
	"github.com/fingate-ai/fingate/pkg/knowledge"
	"github.com/fingate-ai/fingate/pkg/logging"
	"github.com/fingate-ai/fingate/pkg/pdp"
	"github.com/fingate-ai/fingate/pkg/perimeter"
	"github.com/fingate-ai/fingate/pkg/provision"
	"github.com/fingate-ai/fingate/pkg/server"
	"github.com/fingate-ai/fingate/pkg/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newRootCmd creates the root command for fingate
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fingate",
		Short: "Authorization perimeters for an AI financial advisor",
		Long: `fingate runs an AI financial advisory pipeline behind four
authorization perimeters: prompt filtering, data protection, external
access control, and response enforcement. Every stage consults a policy
decision point and fails closed.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (YAML)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newProvisionCmd())

	return rootCmd
}

// loadConfig resolves configuration from flags and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
		if err := cfg.Logging.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func newLoggerFromConfig(cfg *config.Config) *slog.Logger {
	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})
	slog.SetDefault(logger)
	return logger
}

// buildClient constructs the decision point client for the configured mode.
// Remote clients are wrapped with retry and a circuit breaker; the embedded
// engine needs neither, it cannot suffer transport faults.
func buildClient(ctx context.Context, cfg *config.Config) (pdp.Client, error) {
	switch cfg.PDP.Mode {
	case config.PDPModeEmbedded:
		modules, err := loadPolicyDir(cfg.PDP.PolicyDir)
		if err != nil {
			return nil, err
		}
		return pdp.NewEmbeddedEngine(ctx, pdp.EmbeddedOptions{Modules: modules})
	default:
		if cfg.PDP.Token == "" {
			return nil, fmt.Errorf("%w: set FINGATE_PDP_TOKEN for the remote decision point", domain.ErrMissingCredential)
		}
		client := pdp.NewHTTPClient(pdp.HTTPClientConfig{
			Endpoint:     cfg.PDP.Endpoint,
			Token:        cfg.PDP.Token,
			CheckTimeout: cfg.PDP.Timeout,
		})
		retried := pdp.WithRetry(client, governance.DefaultRetryConfig())
		return pdp.WithBreaker(retried, governance.DefaultCircuitBreakerConfig()), nil
	}
}

// loadPolicyDir reads every .rego file in dir. An empty dir selects the
// built-in modules.
func loadPolicyDir(dir string) (map[string]string, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read policy dir %s: %w", dir, err)
	}
	modules := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".rego") {
			continue
		}
		//nolint:gosec // Policy directory is controlled by admin/operator
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read policy module %s: %w", entry.Name(), err)
		}
		modules[entry.Name()] = string(data)
	}
	if len(modules) == 0 {
		return nil, fmt.Errorf("policy dir %s contains no .rego modules", dir)
	}
	return modules, nil
}

func buildModel(cfg *config.Config) (agent.Model, error) {
	switch cfg.Model.Provider {
	case "anthropic":
		if cfg.Model.APIKey == "" {
			return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY", domain.ErrMissingCredential)
		}
		return agent.NewAnthropicModel(cfg.Model.APIKey, cfg.Model.Name), nil
	default:
		return agent.NewScriptedModel(), nil
	}
}

// buildPipeline wires the full stack: decision point client, perimeter
// guard, knowledge store, model, orchestrator.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *telemetry.Metrics) (*agent.Orchestrator, *knowledge.MemoryStore, error) {
	client, err := buildClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	store := knowledge.NewSeededStore()
	if docs := cfg.Knowledge.DomainDocuments(); docs != nil {
		store.Replace(docs)
	}

	model, err := buildModel(cfg)
	if err != nil {
		return nil, nil, err
	}

	guard := perimeter.NewGuard(client, logger, metrics)
	orchestrator := agent.NewOrchestrator(model, guard, store, agent.SimulatedExecutor{}, logger, metrics)
	return orchestrator, store, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP query API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLoggerFromConfig(cfg)
			ctx := cmd.Context()

			shutdown, err := telemetry.SetupProvider(ctx, telemetry.Config{
				ServiceName: "fingate",
				Endpoint:    cfg.Telemetry.OTLPEndpoint,
				Insecure:    cfg.Telemetry.Insecure,
			})
			if err != nil {
				return fmt.Errorf("telemetry setup: %w", err)
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error("telemetry shutdown failed", "error", err)
				}
			}()

			metrics := telemetry.NewMetrics()
			orchestrator, store, err := buildPipeline(ctx, cfg, logger, metrics)
			if err != nil {
				return err
			}

			directory := server.NewSeededDirectory()
			if users := cfg.Users.DomainUsers(); users != nil {
				directory.Replace(users)
			}

			// A config file makes knowledge documents and the user
			// directory hot-reloadable.
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				provider, err := config.NewFileProvider(path, logger)
				if err != nil {
					return err
				}
				defer func() { _ = provider.Close() }()
				go watchConfig(provider, store, directory, logger)
			}

			srv := server.New(cfg.Server.ListenAddress, orchestrator, directory, logger, metrics)
			if err := srv.Start(); err != nil {
				return fmt.Errorf("start server: %w", err)
			}

			waitForShutdown(srv, cfg, logger)
			return nil
		},
	}
}

func watchConfig(provider *config.FileProvider, store *knowledge.MemoryStore, directory *server.MemoryDirectory, logger *slog.Logger) {
	updates := provider.Subscribe()
	for cfg := range updates {
		if docs := cfg.Knowledge.DomainDocuments(); docs != nil {
			store.Replace(docs)
			logger.Info("knowledge documents reloaded", "count", len(docs))
		}
		if users := cfg.Users.DomainUsers(); users != nil {
			directory.Replace(users)
			logger.Info("user directory reloaded", "count", len(users))
		}
	}
}

func waitForShutdown(srv *server.Server, cfg *config.Config, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	logger.Info("shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [query]",
		Short: "Run a single query through the pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLoggerFromConfig(cfg)
			ctx := cmd.Context()

			orchestrator, _, err := buildPipeline(ctx, cfg, logger, nil)
			if err != nil {
				return err
			}

			user, err := userFromFlags(cmd)
			if err != nil {
				return err
			}

			result, err := orchestrator.Run(ctx, user, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "state: %s\n", result.State)
			if result.RejectedBy != "" {
				fmt.Fprintf(out, "rejected by: %s (%s)\n", result.RejectedBy, result.RefusalReason)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, result.Response.Text)
			if result.Response.Disclaimer != "" {
				fmt.Fprintln(out)
				fmt.Fprintln(out, result.Response.Disclaimer)
			}
			return nil
		},
	}
	addUserFlags(cmd)
	return cmd
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Issue one permission check against the decision point",
		Long: `check sends a single subject/action/resource evaluation and prints
the decision. Exits non-zero on a deny, so it composes in scripts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			newLoggerFromConfig(cfg)
			ctx := cmd.Context()

			client, err := buildClient(ctx, cfg)
			if err != nil {
				return err
			}

			user, err := userFromFlags(cmd)
			if err != nil {
				return err
			}
			action, _ := cmd.Flags().GetString("action")
			resourceType, _ := cmd.Flags().GetString("resource")
			attrs, _ := cmd.Flags().GetStringToString("attr")

			decision, checkErr := client.Check(ctx, pdp.CheckRequest{
				Subject:            user,
				Action:             action,
				ResourceType:       resourceType,
				ResourceAttributes: attrs,
			})

			encoded, err := json.MarshalIndent(decision, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

			if checkErr != nil {
				return fmt.Errorf("decision point unreachable: %w", checkErr)
			}
			if !decision.Allowed {
				return fmt.Errorf("denied: %s", decision.Reason)
			}
			return nil
		},
	}
	addUserFlags(cmd)
	cmd.Flags().String("action", "receive", "Action to check")
	cmd.Flags().String("resource", "financial_advice", "Resource type to check")
	cmd.Flags().StringToString("attr", nil, "Resource attributes (key=value)")
	return cmd
}

func newProvisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Push the access-control vocabulary to the decision point",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLoggerFromConfig(cfg)

			provisioner, err := provision.NewProvisioner(cfg.PDP.Endpoint, cfg.PDP.Token, logger)
			if err != nil {
				return err
			}
			return provisioner.Apply(cmd.Context(), provision.DefaultVocabulary())
		},
	}
}

func addUserFlags(cmd *cobra.Command) {
	cmd.Flags().String("user", "user@example.com", "Subject identifier")
	cmd.Flags().String("role", "premium_user", "Subject role")
	cmd.Flags().Bool("opted-in", true, "Whether the subject opted in to AI advice")
	cmd.Flags().String("clearance", "standard", "Subject clearance level (standard, elevated)")
}

func userFromFlags(cmd *cobra.Command) (domain.UserContext, error) {
	id, _ := cmd.Flags().GetString("user")
	role, _ := cmd.Flags().GetString("role")
	optedIn, _ := cmd.Flags().GetBool("opted-in")
	clearanceRaw, _ := cmd.Flags().GetString("clearance")

	clearance, ok := domain.ParseClearanceLevel(clearanceRaw)
	if !ok {
		return domain.UserContext{}, fmt.Errorf("invalid clearance level %q", clearanceRaw)
	}
	return domain.NewUserContext(id, role, optedIn, clearance, nil), nil
}
