package agentloop

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/martinemde/codeagent/unifiedllm"
)

// TurnKind discriminates between turn types.
type TurnKind string

const (
	TurnUser        TurnKind = "user"
	TurnAssistant   TurnKind = "assistant"
	TurnToolResults TurnKind = "tool_results"
)

// Turn is a single entry in the transcript.
type Turn struct {
	Kind        TurnKind         `json:"kind" yaml:"kind"`
	Timestamp   time.Time        `json:"timestamp" yaml:"timestamp"`
	User        *UserTurn        `json:"user,omitempty" yaml:"user,omitempty"`
	Assistant   *AssistantTurn   `json:"assistant,omitempty" yaml:"assistant,omitempty"`
	ToolResults *ToolResultsTurn `json:"tool_results,omitempty" yaml:"tool_results,omitempty"`
}

// UserTurn holds the user's message.
type UserTurn struct {
	Text string `json:"text" yaml:"text"`
}

// BlockKind discriminates assistant content blocks.
type BlockKind string

const (
	BlockText        BlockKind = "text"
	BlockToolRequest BlockKind = "tool_request"
)

// ContentBlock is one block of an assistant turn.
type ContentBlock struct {
	Kind        BlockKind    `json:"kind" yaml:"kind"`
	Text        string       `json:"text,omitempty" yaml:"text,omitempty"`
	ToolRequest *ToolRequest `json:"tool_request,omitempty" yaml:"tool_request,omitempty"`
}

// ToolRequest is a model-issued request to run one tool.
type ToolRequest struct {
	ID    string          `json:"id" yaml:"id"`
	Name  string          `json:"name" yaml:"name"`
	Input json.RawMessage `json:"input" yaml:"-"`
}

// MarshalYAML renders the raw input as a JSON string so dumps stay readable.
func (r ToolRequest) MarshalYAML() (interface{}, error) {
	return struct {
		ID    string `yaml:"id"`
		Name  string `yaml:"name"`
		Input string `yaml:"input"`
	}{r.ID, r.Name, string(r.Input)}, nil
}

// TextBlock creates a text ContentBlock.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: BlockText, Text: text}
}

// ToolRequestBlock creates a tool request ContentBlock.
func ToolRequestBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Kind: BlockToolRequest, ToolRequest: &ToolRequest{ID: id, Name: name, Input: input}}
}

// AssistantTurn holds one model response. Blocks are kept in the order
// the model produced them.
type AssistantTurn struct {
	Blocks     []ContentBlock   `json:"blocks" yaml:"blocks"`
	Usage      unifiedllm.Usage `json:"usage" yaml:"-"`
	ResponseID string           `json:"response_id,omitempty" yaml:"response_id,omitempty"`
}

// Text concatenates the text blocks in order.
func (a AssistantTurn) Text() string {
	var sb strings.Builder
	for _, b := range a.Blocks {
		if b.Kind == BlockText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// ToolRequests returns the tool request blocks in order.
func (a AssistantTurn) ToolRequests() []ToolRequest {
	var reqs []ToolRequest
	for _, b := range a.Blocks {
		if b.Kind == BlockToolRequest && b.ToolRequest != nil {
			reqs = append(reqs, *b.ToolRequest)
		}
	}
	return reqs
}

// ToolResult is the outcome of one tool request as recorded in the transcript.
type ToolResult struct {
	RequestID string `json:"request_id" yaml:"request_id"`
	Content   string `json:"content" yaml:"content"`
	IsError   bool   `json:"is_error" yaml:"is_error"`
}

// ToolResultsTurn holds the results of one round, one per request.
type ToolResultsTurn struct {
	Results []ToolResult `json:"results" yaml:"results"`
}

// NewUserTurn creates a Turn wrapping user input.
func NewUserTurn(text string) Turn {
	return Turn{Kind: TurnUser, Timestamp: time.Now(), User: &UserTurn{Text: text}}
}

// NewAssistantTurn creates a Turn wrapping an assistant response.
func NewAssistantTurn(a AssistantTurn) Turn {
	return Turn{Kind: TurnAssistant, Timestamp: time.Now(), Assistant: &a}
}

// NewToolResultsTurn creates a Turn wrapping tool results.
func NewToolResultsTurn(results []ToolResult) Turn {
	return Turn{Kind: TurnToolResults, Timestamp: time.Now(), ToolResults: &ToolResultsTurn{Results: results}}
}

// ConvertHistoryToMessages converts the turn-based history into LLM
// messages. Assistant blocks keep their order and a round's results travel
// as one tool message.
func ConvertHistoryToMessages(history []Turn) []unifiedllm.Message {
	messages := make([]unifiedllm.Message, 0, len(history))
	for _, turn := range history {
		switch turn.Kind {
		case TurnUser:
			messages = append(messages, unifiedllm.UserMessage(turn.User.Text))
		case TurnAssistant:
			msg := unifiedllm.Message{Role: unifiedllm.RoleAssistant}
			for _, b := range turn.Assistant.Blocks {
				switch b.Kind {
				case BlockText:
					msg.Content = append(msg.Content, unifiedllm.TextPart(b.Text))
				case BlockToolRequest:
					msg.Content = append(msg.Content,
						unifiedllm.ToolCallPart(b.ToolRequest.ID, b.ToolRequest.Name, b.ToolRequest.Input))
				}
			}
			messages = append(messages, msg)
		case TurnToolResults:
			results := make([]unifiedllm.ToolResultData, 0, len(turn.ToolResults.Results))
			for _, r := range turn.ToolResults.Results {
				results = append(results, unifiedllm.ToolResultData{
					ToolCallID: r.RequestID,
					Content:    r.Content,
					IsError:    r.IsError,
				})
			}
			messages = append(messages, unifiedllm.ToolResultsMessage(results...))
		}
	}
	return messages
}

// assistantTurnFromMessage converts a model reply, keeping block order.
func assistantTurnFromMessage(resp *unifiedllm.Response) AssistantTurn {
	turn := AssistantTurn{Usage: resp.Usage, ResponseID: resp.ID}
	for _, part := range resp.Message.Content {
		switch part.Kind {
		case unifiedllm.ContentText:
			turn.Blocks = append(turn.Blocks, TextBlock(part.Text))
		case unifiedllm.ContentToolCall:
			input := part.ToolCall.Arguments
			if len(input) == 0 {
				input = json.RawMessage(`{}`)
			}
			turn.Blocks = append(turn.Blocks, ToolRequestBlock(part.ToolCall.ID, part.ToolCall.Name, input))
		}
	}
	return turn
}
