// Package repl is the interactive front end: it reads one line at a time,
// hands it to the agent and prints the answer.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/martinemde/codeagent/agentloop"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	banner    = "🤖 Coding Agent started! Type 'exit' to quit."
	prompt    = "You: "
	goodbye   = "👋 Goodbye!"
	thinking  = "Agent: 🤔 Let me help you with that..."
	separator = 50
)

// Runner runs one user message through the agent.
type Runner interface {
	Run(ctx context.Context, text string) (*agentloop.RunResult, error)
}

// Session is the read-eval-print loop.
type Session struct {
	runner      Runner
	in          io.Reader
	out         io.Writer
	transcripts *TranscriptWriter
}

// Option configures a Session.
type Option func(*Session)

// WithInput reads user lines from r instead of stdin.
func WithInput(r io.Reader) Option {
	return func(s *Session) { s.in = r }
}

// WithOutput writes to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Session) { s.out = w }
}

// WithTranscripts saves each successful chat under dir.
func WithTranscripts(dir string) Option {
	return func(s *Session) {
		if dir != "" {
			s.transcripts = NewTranscriptWriter(dir)
		}
	}
}

// New creates a Session.
func New(runner Runner, opts ...Option) *Session {
	s := &Session{runner: runner, in: os.Stdin, out: os.Stdout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads lines until "exit" (any case), end of input, or ctx is done,
// including while waiting for input. A failed chat is reported and the
// prompt resumes.
func (s *Session) Run(ctx context.Context) error {
	fmt.Fprint(s.out, banner+"\n\n")

	stop := make(chan struct{})
	defer close(stop)
	lines, readErr := s.readLines(stop)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.out, prompt)

		var (
			raw string
			ok  bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return ctx.Err()
		case raw, ok = <-lines:
		}
		if !ok {
			if err := <-readErr; err != nil {
				return errors.Wrap(err, "read input")
			}
			fmt.Fprint(s.out, "\n"+goodbye+"\n")
			return nil
		}

		line := strings.TrimSpace(raw)
		if strings.EqualFold(line, "exit") {
			fmt.Fprintln(s.out, goodbye)
			return nil
		}
		if line == "" {
			continue
		}

		fmt.Fprint(s.out, "\n"+thinking+"\n\n")
		fmt.Fprintln(s.out, s.respond(ctx, line))
		fmt.Fprint(s.out, "\n"+strings.Repeat("-", separator)+"\n\n")
	}
}

// readLines scans input on its own goroutine so Run can give up on a
// blocked read when ctx is cancelled. lines is closed at end of input,
// after the scanner error (nil at EOF) is sent on the second channel.
func (s *Session) readLines(stop <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		readErr <- scanner.Err()
	}()
	return lines, readErr
}

// respond runs one message and renders the reply or the failure.
func (s *Session) respond(ctx context.Context, line string) string {
	res, err := s.runner.Run(ctx, line)
	if err != nil {
		return "Sorry, I encountered an error: " + err.Error()
	}

	if s.transcripts != nil {
		if path, err := s.transcripts.Write(line, res); err != nil {
			log.Warn().Err(err).Msg("could not save transcript")
		} else {
			log.Debug().Str("path", path).Msg("transcript saved")
		}
	}
	return res.Text
}
