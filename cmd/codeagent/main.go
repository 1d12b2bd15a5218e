package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/martinemde/codeagent/agentloop"
	"github.com/martinemde/codeagent/config"
	"github.com/martinemde/codeagent/repl"
	"github.com/martinemde/codeagent/unifiedllm"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "codeagent",
	Short:         "codeagent is an interactive coding assistant",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runInteractive,
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, _ := cmd.Flags().GetString("provider")
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPROVIDER\tCONTEXT\tALIASES")
		for _, m := range unifiedllm.ListModels(provider) {
			fmt.Fprintf(w, "%s\t%s\t%d\t%v\n", m.ID, m.Provider, m.ContextWindow, m.Aliases)
		}
		return w.Flush()
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools offered to the model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := agentloop.NewCoreToolRegistry(agentloop.NewLocalExecutionEnvironment(""))
		if err != nil {
			return err
		}
		for _, spec := range registry.Catalog() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", spec.Name, spec.Description)
		}
		return nil
	},
}

func loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	v, err := config.NewViper(configFile)
	if err != nil {
		return nil, err
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := initLogger(cfg.Logging); err != nil {
		return nil, err
	}
	log.Debug().Str("config", v.ConfigFileUsed()).Msg("loaded configuration")
	return cfg, nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	narrator := repl.NewNarrator(out, repl.ColorEnabled(cfg.Color, out), cfg.NarrationWidth)
	agent, err := newAgent(cfg, client, narrator)
	if err != nil {
		return err
	}

	session := repl.New(agent,
		repl.WithInput(cmd.InOrStdin()),
		repl.WithOutput(out),
		repl.WithTranscripts(cfg.TranscriptDir),
	)
	return session.Run(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Path to config file (default ./config.yaml or ~/.codeagent/config.yaml)")
	pf.String("log-level", "warn", "Log level (trace, debug, info, warn, error)")
	pf.String("log-format", "text", "Log format (json, text)")
	pf.String("log-file", "", "Also write logs to this file")
	pf.Bool("with-caller", false, "Log caller")
	pf.String("provider", "", "LLM provider (anthropic, openai, or any gollm provider); derived from the model when empty")

	f := rootCmd.Flags()
	f.String("model", unifiedllm.DefaultModel, "Model ID or alias")
	f.String("base-url", "", "Override the provider endpoint")
	f.Int("max-tokens", 4000, "Maximum tokens per model response")
	f.Int("max-retries", 0, "Retries for transient provider errors")
	f.Int("max-rounds", 0, "Maximum tool rounds per message (0 = unlimited)")
	f.Int("max-parallel-tools", 0, "Maximum tools run at once within a round (0 = unlimited)")
	f.Duration("round-timeout", 0, "Timeout for one model call plus its tools (0 = none)")
	f.Duration("command-timeout", config.DefaultCommandTimeout, "Timeout for shell commands")
	f.Duration("fetch-timeout", config.DefaultFetchTimeout, "Timeout for web fetches")
	f.String("working-dir", "", "Directory tools operate in (default current directory)")
	f.String("transcript-dir", "", "Save a YAML transcript of each message here")
	f.String("instructions", "", "Extra instructions appended to the system prompt")
	f.String("color", "auto", "Colorize tool narration (auto, always, never)")
	f.Int("narration-width", 100, "Characters of tool output shown in narration")
	f.Int("result-char-limit", 0, "Truncate tool results sent to the model (0 = off)")

	rootCmd.AddCommand(modelsCmd, toolsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
