package repl

import (
	"fmt"
	"io"
	"os"

	"github.com/martinemde/codeagent/agentloop"
	"github.com/mattn/go-isatty"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
)

// Narrator prints a console trace of tool activity. Register Handle with
// agentloop.WithEventHandlers.
type Narrator struct {
	out   io.Writer
	color bool
	width int
}

// NewNarrator creates a Narrator writing to out. width bounds the success
// preview; zero prints results in full.
func NewNarrator(out io.Writer, color bool, width int) *Narrator {
	return &Narrator{out: out, color: color, width: width}
}

// Handle renders tool start and end events and ignores the rest.
func (n *Narrator) Handle(ev agentloop.Event) {
	switch ev.Kind {
	case agentloop.EventToolCallStart:
		fmt.Fprintf(n.out, "%s(%s)\n",
			n.paint(ansiCyan, "🔧 Tool:")+" "+n.paint(ansiYellow, str(ev.Data["name"])),
			n.paint(ansiGreen, str(ev.Data["input"])))

	case agentloop.EventToolCallEnd:
		if ok, _ := ev.Data["success"].(bool); ok {
			fmt.Fprintf(n.out, "%s %s\n", n.paint(ansiGreen, "✅ Success:"), agentloop.Preview(str(ev.Data["result"]), n.width))
		} else {
			fmt.Fprintf(n.out, "%s %s\n", n.paint(ansiRed, "❌ Error:"), str(ev.Data["error"]))
		}
	}
}

func (n *Narrator) paint(code, s string) string {
	if !n.color {
		return s
	}
	return code + s + ansiReset
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// ColorEnabled resolves a color mode (auto, always, never) for w. Auto
// enables color only when w is a terminal.
func ColorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
