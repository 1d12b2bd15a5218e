package main

import (
	"github.com/martinemde/codeagent/agentloop"
	"github.com/martinemde/codeagent/config"
	"github.com/martinemde/codeagent/repl"
	"github.com/martinemde/codeagent/unifiedllm"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// newClient registers the adapter for the configured provider.
func newClient(cfg *config.Config) (*unifiedllm.Client, error) {
	var adapter unifiedllm.ProviderAdapter
	switch cfg.Provider {
	case "anthropic":
		opts := []unifiedllm.AnthropicOption{unifiedllm.WithAnthropicMaxTokens(cfg.MaxTokens)}
		if cfg.BaseURL != "" {
			opts = append(opts, unifiedllm.WithAnthropicBaseURL(cfg.BaseURL))
		}
		adapter = unifiedllm.NewAnthropicAdapter(cfg.APIKey, opts...)
	case "openai":
		adapter = unifiedllm.NewOpenAIAdapter(cfg.APIKey, cfg.BaseURL, cfg.MaxTokens)
	default:
		gollmAdapter, err := unifiedllm.NewGollmAdapter(cfg.Provider,
			unifiedllm.WithGollmAPIKey(cfg.APIKey),
			unifiedllm.WithGollmModel(cfg.Model),
			unifiedllm.WithGollmMaxTokens(cfg.MaxTokens),
		)
		if err != nil {
			return nil, err
		}
		adapter = gollmAdapter
	}

	return unifiedllm.NewClient(
		unifiedllm.WithProvider(cfg.Provider, adapter),
		unifiedllm.WithDefaultProvider(cfg.Provider),
		unifiedllm.WithMiddleware(
			unifiedllm.LoggingMiddleware(),
			unifiedllm.RetryMiddleware(unifiedllm.DefaultRetryPolicy(cfg.MaxRetries)),
		),
	), nil
}

// newAgent wires the environment, tools, model client and narration.
func newAgent(cfg *config.Config, client *unifiedllm.Client, narrator *repl.Narrator) (*agentloop.Agent, error) {
	env := agentloop.NewLocalExecutionEnvironment(cfg.WorkingDir,
		agentloop.WithCommandTimeout(cfg.CommandTimeout),
		agentloop.WithFetchTimeout(cfg.FetchTimeout),
	)
	registry, err := agentloop.NewCoreToolRegistry(env)
	if err != nil {
		return nil, errors.Wrap(err, "build tool registry")
	}

	model := agentloop.NewLLMModelClient(client, cfg.Model,
		agentloop.WithProvider(cfg.Provider),
		agentloop.WithMaxTokens(cfg.MaxTokens),
	)

	prompt := agentloop.BuildSystemPrompt(env, registry.Catalog(), agentloop.PromptOptions{
		Provider:         cfg.Provider,
		Model:            cfg.Model,
		UserInstructions: cfg.Instructions,
	})

	agentCfg := agentloop.DefaultAgentConfig()
	agentCfg.MaxRounds = cfg.MaxRounds
	agentCfg.MaxParallelTools = cfg.MaxParallelTools
	agentCfg.RoundTimeout = cfg.RoundTimeout
	agentCfg.ResultCharLimit = cfg.ResultCharLimit
	agentCfg.LoopDetectionWindow = cfg.LoopDetectionWindow

	log.Debug().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Str("working_dir", env.WorkingDirectory()).
		Strs("tools", registry.Names()).
		Msg("agent configured")

	return agentloop.NewAgent(model, registry,
		agentloop.WithAgentConfig(agentCfg),
		agentloop.WithSystemPrompt(prompt),
		agentloop.WithEventHandlers(narrator.Handle),
	), nil
}
