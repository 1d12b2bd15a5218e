package agentloop

import (
	"fmt"

	"github.com/martinemde/codeagent/unifiedllm"
)

// StateError reports an attempt to append a turn that would break the
// transcript's alternation or request/result pairing. It indicates a bug
// in the caller and is never recovered by the loop.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return "conversation state: " + e.Reason
}

// Conversation is the append-only transcript of one chat call. It starts
// with a single user turn and then alternates assistant and tool result
// turns. It is owned by a single loop and is not safe for concurrent use.
type Conversation struct {
	turns []Turn
}

// NewConversation seeds a transcript with the user's message.
func NewConversation(userText string) *Conversation {
	return &Conversation{turns: []Turn{NewUserTurn(userText)}}
}

// Append adds one turn after checking it may follow the current last turn.
func (c *Conversation) Append(turn Turn) error {
	if len(c.turns) == 0 {
		return &StateError{Reason: "transcript has no user turn; use NewConversation"}
	}
	last := c.turns[len(c.turns)-1]

	switch turn.Kind {
	case TurnUser:
		return &StateError{Reason: "a transcript holds exactly one user turn"}

	case TurnAssistant:
		if turn.Assistant == nil {
			return &StateError{Reason: "assistant turn has no content"}
		}
		if last.Kind == TurnAssistant {
			return &StateError{Reason: "assistant turn cannot follow another assistant turn"}
		}
		seen := make(map[string]bool)
		for _, req := range turn.Assistant.ToolRequests() {
			if seen[req.ID] {
				return &StateError{Reason: fmt.Sprintf("duplicate tool request id %q", req.ID)}
			}
			seen[req.ID] = true
		}

	case TurnToolResults:
		if turn.ToolResults == nil {
			return &StateError{Reason: "tool result turn has no content"}
		}
		if last.Kind != TurnAssistant {
			return &StateError{Reason: "tool results must follow an assistant turn"}
		}
		if err := matchResults(last.Assistant.ToolRequests(), turn.ToolResults.Results); err != nil {
			return err
		}

	default:
		return &StateError{Reason: fmt.Sprintf("unknown turn kind %q", turn.Kind)}
	}

	c.turns = append(c.turns, turn)
	return nil
}

// matchResults checks results pair 1:1 with requests by ID.
func matchResults(requests []ToolRequest, results []ToolResult) error {
	if len(requests) == 0 {
		return &StateError{Reason: "tool results follow an assistant turn with no tool requests"}
	}

	outstanding := make(map[string]bool, len(requests))
	for _, req := range requests {
		outstanding[req.ID] = true
	}
	for _, res := range results {
		if !outstanding[res.RequestID] {
			return &StateError{Reason: fmt.Sprintf("result %q does not match an outstanding request", res.RequestID)}
		}
		delete(outstanding, res.RequestID)
	}
	if len(outstanding) > 0 {
		return &StateError{Reason: fmt.Sprintf("%d tool request(s) have no result", len(outstanding))}
	}
	return nil
}

// Snapshot returns a copy of the transcript in append order.
func (c *Conversation) Snapshot() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Messages converts the transcript into provider messages.
func (c *Conversation) Messages() []unifiedllm.Message {
	return ConvertHistoryToMessages(c.turns)
}
