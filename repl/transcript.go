package repl

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/martinemde/codeagent/agentloop"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TranscriptWriter saves the transcript of each completed chat as YAML.
type TranscriptWriter struct {
	dir string
	now func() time.Time
	seq int
}

// NewTranscriptWriter writes files into dir, creating it on first use.
func NewTranscriptWriter(dir string) *TranscriptWriter {
	return &TranscriptWriter{dir: dir, now: time.Now}
}

type transcriptFile struct {
	Input        string           `yaml:"input"`
	Output       string           `yaml:"output"`
	Rounds       int              `yaml:"rounds"`
	InputTokens  int              `yaml:"input_tokens"`
	OutputTokens int              `yaml:"output_tokens"`
	Turns        []agentloop.Turn `yaml:"turns"`
}

// Write stores one chat and returns the file path.
func (w *TranscriptWriter) Write(input string, res *agentloop.RunResult) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", errors.Wrap(err, "create transcript directory")
	}

	w.seq++
	name := fmt.Sprintf("chat-%s-%03d.yaml", w.now().Format("20060102-150405"), w.seq)
	path := filepath.Join(w.dir, name)

	data, err := yaml.Marshal(transcriptFile{
		Input:        input,
		Output:       res.Text,
		Rounds:       res.Rounds,
		InputTokens:  res.Usage.InputTokens,
		OutputTokens: res.Usage.OutputTokens,
		Turns:        res.Transcript,
	})
	if err != nil {
		return "", errors.Wrap(err, "encode transcript")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", errors.Wrap(err, "write transcript")
	}
	return path, nil
}
