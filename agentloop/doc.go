// Package agentloop implements the coding agent's orchestration loop.
//
// One call to Agent.Chat turns a single user message into a possibly
// multi-round exchange with the model. Each round the model may request
// any number of tools; the loop runs them concurrently, waits for all of
// them, records the results, and asks again until the model answers with
// text only. The text of every assistant turn is concatenated and returned.
//
// # Architecture
//
//   - Agent: the state machine (AwaitingModel, ExecutingTools, Done).
//   - Conversation: the append-only transcript of one chat call. It
//     enforces turn alternation and request/result pairing.
//   - ToolRegistry: an immutable catalog of tools. Execute never fails;
//     unknown tools, invalid input, errors and panics become a failed
//     ToolOutcome.
//   - ModelClient: one model call per round. LLMModelClient sends through
//     a unifiedllm.Client; failures come back as *TransportError.
//   - ExecutionEnvironment: where the built-in tools touch the filesystem,
//     spawn processes and fetch URLs.
//   - EventEmitter: an observability side channel used for console
//     narration and logging.
//
// # Quick Start
//
//	env := agentloop.NewLocalExecutionEnvironment("/path/to/project")
//	registry, err := agentloop.NewCoreToolRegistry(env)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	model := agentloop.NewLLMModelClient(client, unifiedllm.DefaultModel, agentloop.WithMaxTokens(4000))
//	agent := agentloop.NewAgent(model, registry)
//
//	text, err := agent.Chat(ctx, "Create a hello.py file")
package agentloop
