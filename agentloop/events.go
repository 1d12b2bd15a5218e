package agentloop

import (
	"sync"
	"time"
)

// EventKind identifies the type of agent event.
type EventKind string

const (
	EventChatStart     EventKind = "chat_start"
	EventChatEnd       EventKind = "chat_end"
	EventRoundStart    EventKind = "round_start"
	EventAssistantText EventKind = "assistant_text"
	EventToolCallStart EventKind = "tool_call_start"
	EventToolCallEnd   EventKind = "tool_call_end"
	EventLoopDetection EventKind = "loop_detection"
	EventRoundLimit    EventKind = "round_limit"
	EventError         EventKind = "error"
)

// Event is a typed notification from the agent loop. Events are an
// observability side channel; nothing in the loop depends on them.
type Event struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	ChatID    string                 `json:"chat_id"`
	Round     int                    `json:"round"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventHandler receives events. Handlers are called one at a time.
type EventHandler func(Event)

// EventEmitter fans events out to handlers. Tools of one round emit from
// several goroutines; the emitter serializes delivery.
type EventEmitter struct {
	handlers []EventHandler
	mu       sync.Mutex
}

// NewEventEmitter creates an emitter with the given handlers.
func NewEventEmitter(handlers ...EventHandler) *EventEmitter {
	return &EventEmitter{handlers: handlers}
}

// Emit delivers an event to every handler.
func (e *EventEmitter) Emit(ev Event) {
	if e == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, h := range e.handlers {
		h(ev)
	}
}

// ChannelHandler forwards events to ch without blocking; events are
// dropped when ch is full so a slow consumer never stalls the loop.
func ChannelHandler(ch chan<- Event) EventHandler {
	return func(ev Event) {
		select {
		case ch <- ev:
		default:
		}
	}
}
