package agentloop

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/martinemde/codeagent/unifiedllm"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// LoopState is the state of one chat call.
type LoopState string

const (
	StateAwaitingModel  LoopState = "awaiting_model"
	StateExecutingTools LoopState = "executing_tools"
	StateDone           LoopState = "done"
)

// ErrRoundLimit is returned when the model keeps requesting tools past
// the configured round ceiling.
var ErrRoundLimit = errors.New("tool round limit reached")

// AgentConfig holds the loop's optional limits.
type AgentConfig struct {
	MaxRounds           int           `json:"max_rounds"`         // tool rounds per chat; 0 = unlimited
	MaxParallelTools    int           `json:"max_parallel_tools"` // 0 = all requests of a round at once
	RoundTimeout        time.Duration `json:"round_timeout"`      // model call plus tools; 0 = none
	ResultCharLimit     int           `json:"result_char_limit"`  // 0 = results sent unmodified
	EmptyResultText     string        `json:"empty_result_text"`
	LoopDetectionWindow int           `json:"loop_detection_window"` // 0 disables the warning
}

// DefaultAgentConfig returns the default configuration.
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		EmptyResultText:     "Tool executed successfully",
		LoopDetectionWindow: 6,
	}
}

// RunResult is the outcome of a completed chat call.
type RunResult struct {
	Text       string
	Transcript []Turn
	Rounds     int
	Usage      unifiedllm.Usage
}

// Agent drives the orchestration loop: ask the model, run the tools it
// requests behind a barrier, feed the results back, and repeat until the
// model answers without tool requests. Every call starts a fresh
// transcript; nothing is remembered between calls.
type Agent struct {
	model        ModelClient
	tools        *ToolRegistry
	systemPrompt string
	config       AgentConfig
	emitter      *EventEmitter
	logger       zerolog.Logger
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithAgentConfig replaces the default configuration.
func WithAgentConfig(cfg AgentConfig) AgentOption {
	return func(a *Agent) { a.config = cfg }
}

// WithSystemPrompt sets the system prompt sent with every round.
func WithSystemPrompt(prompt string) AgentOption {
	return func(a *Agent) { a.systemPrompt = prompt }
}

// WithEventHandlers subscribes handlers to loop events.
func WithEventHandlers(handlers ...EventHandler) AgentOption {
	return func(a *Agent) { a.emitter = NewEventEmitter(handlers...) }
}

// WithLogger sets the logger. The global zerolog logger is used otherwise.
func WithLogger(logger zerolog.Logger) AgentOption {
	return func(a *Agent) { a.logger = logger }
}

// NewAgent creates an Agent. Without WithSystemPrompt the prompt is built
// from the registry's environment and catalog.
func NewAgent(model ModelClient, tools *ToolRegistry, opts ...AgentOption) *Agent {
	a := &Agent{
		model:  model,
		tools:  tools,
		config: DefaultAgentConfig(),
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.systemPrompt == "" && tools.Environment() != nil {
		a.systemPrompt = BuildSystemPrompt(tools.Environment(), tools.Catalog(), PromptOptions{})
	}
	return a
}

// SystemPrompt returns the prompt sent with every round.
func (a *Agent) SystemPrompt() string {
	return a.systemPrompt
}

// Chat runs one user message to completion and returns the text of every
// assistant turn concatenated in order.
func (a *Agent) Chat(ctx context.Context, userText string) (string, error) {
	res, err := a.Run(ctx, userText)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// Run is Chat with the transcript and usage of the call. On error the
// partial output is discarded and the result is nil.
func (a *Agent) Run(ctx context.Context, userText string) (*RunResult, error) {
	chatID := uuid.NewString()
	logger := a.logger.With().Str("chat_id", chatID).Logger()

	conv := NewConversation(userText)
	catalog := a.tools.Catalog()

	var (
		output  strings.Builder
		usage   unifiedllm.Usage
		reply   AssistantTurn
		pending []ToolRequest
		rounds  int

		// roundCtx spans one model call and the tools it requests.
		roundCtx    context.Context
		cancelRound context.CancelFunc = func() {}
	)
	defer func() { cancelRound() }()

	a.emit(EventChatStart, chatID, 0, map[string]interface{}{"text": userText})
	logger.Debug().Int("tools", len(catalog)).Msg("chat started")

	state := StateAwaitingModel
	for state != StateDone {
		switch state {
		case StateAwaitingModel:
			if err := ctx.Err(); err != nil {
				return nil, a.fail(logger, chatID, rounds, err)
			}

			a.emit(EventRoundStart, chatID, rounds+1, nil)
			cancelRound()
			roundCtx, cancelRound = a.roundContext(ctx)
			turn, err := a.model.Send(roundCtx, conv.Snapshot(), a.systemPrompt, catalog)
			if err != nil {
				var te *TransportError
				if !errors.As(err, &te) {
					err = &TransportError{Err: err}
				}
				return nil, a.fail(logger, chatID, rounds, err)
			}

			reply = turn
			usage = usage.Add(turn.Usage)
			if text := turn.Text(); text != "" {
				output.WriteString(text)
				a.emit(EventAssistantText, chatID, rounds+1, map[string]interface{}{"text": text})
			}

			pending = turn.ToolRequests()
			if len(pending) == 0 {
				if err := conv.Append(NewAssistantTurn(reply)); err != nil {
					return nil, a.fail(logger, chatID, rounds, err)
				}
				state = StateDone
				continue
			}
			state = StateExecutingTools

		case StateExecutingTools:
			if a.config.MaxRounds > 0 && rounds >= a.config.MaxRounds {
				a.emit(EventRoundLimit, chatID, rounds, map[string]interface{}{"max_rounds": a.config.MaxRounds})
				return nil, a.fail(logger, chatID, rounds, errors.Wrapf(ErrRoundLimit, "after %d rounds", rounds))
			}
			rounds++

			results := a.executeRound(roundCtx, logger, chatID, rounds, pending)
			cancelRound()

			if err := conv.Append(NewAssistantTurn(reply)); err != nil {
				return nil, a.fail(logger, chatID, rounds, err)
			}
			if err := conv.Append(NewToolResultsTurn(results)); err != nil {
				return nil, a.fail(logger, chatID, rounds, err)
			}
			a.checkForLoop(logger, chatID, rounds, conv)
			state = StateAwaitingModel
		}
	}

	logger.Debug().
		Int("rounds", rounds).
		Int("input_tokens", usage.InputTokens).
		Int("output_tokens", usage.OutputTokens).
		Msg("chat finished")
	a.emit(EventChatEnd, chatID, rounds, map[string]interface{}{"text": output.String()})

	return &RunResult{
		Text:       output.String(),
		Transcript: conv.Snapshot(),
		Rounds:     rounds,
		Usage:      usage,
	}, nil
}

// executeRound runs every request of one round and waits for all of them.
// Results are indexed by request position, so their order never depends on
// completion order.
func (a *Agent) executeRound(ctx context.Context, logger zerolog.Logger, chatID string, round int, reqs []ToolRequest) []ToolResult {
	results := make([]ToolResult, len(reqs))

	var g errgroup.Group
	if a.config.MaxParallelTools > 0 {
		g.SetLimit(a.config.MaxParallelTools)
	}
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = a.runTool(ctx, logger, chatID, round, req)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *Agent) runTool(ctx context.Context, logger zerolog.Logger, chatID string, round int, req ToolRequest) ToolResult {
	a.emit(EventToolCallStart, chatID, round, map[string]interface{}{
		"id":    req.ID,
		"name":  req.Name,
		"input": string(req.Input),
	})

	start := time.Now()
	outcome := a.tools.Execute(ctx, req.Name, req.Input)
	elapsed := time.Since(start)

	result := ToolResult{RequestID: req.ID}
	if outcome.Success {
		content := outcome.Result
		if content == "" && a.config.EmptyResultText != "" {
			content = a.config.EmptyResultText
		}
		result.Content = TruncateOutput(content, a.config.ResultCharLimit)
		logger.Debug().Str("tool", req.Name).Str("id", req.ID).Dur("elapsed", elapsed).Msg("tool succeeded")
	} else {
		result.Content = "Error: " + outcome.Error
		result.IsError = true
		logger.Debug().Str("tool", req.Name).Str("id", req.ID).Dur("elapsed", elapsed).Str("error", outcome.Error).Msg("tool failed")
	}

	a.emit(EventToolCallEnd, chatID, round, map[string]interface{}{
		"id":      req.ID,
		"name":    req.Name,
		"success": outcome.Success,
		"result":  outcome.Result,
		"error":   outcome.Error,
	})
	return result
}

func (a *Agent) checkForLoop(logger zerolog.Logger, chatID string, round int, conv *Conversation) {
	window := a.config.LoopDetectionWindow
	if window <= 0 || !DetectLoop(conv.Snapshot(), window) {
		return
	}
	logger.Warn().Int("round", round).Int("window", window).Msg("model is repeating the same tool calls")
	a.emit(EventLoopDetection, chatID, round, map[string]interface{}{"window": window})
}

func (a *Agent) roundContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RoundTimeout > 0 {
		return context.WithTimeout(ctx, a.config.RoundTimeout)
	}
	return context.WithCancel(ctx)
}

func (a *Agent) fail(logger zerolog.Logger, chatID string, round int, err error) error {
	logger.Error().Err(err).Int("round", round).Msg("chat failed")
	a.emit(EventError, chatID, round, map[string]interface{}{"error": err.Error()})
	return err
}

func (a *Agent) emit(kind EventKind, chatID string, round int, data map[string]interface{}) {
	a.emitter.Emit(Event{Kind: kind, ChatID: chatID, Round: round, Data: data})
}
