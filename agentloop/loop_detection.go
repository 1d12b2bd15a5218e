package agentloop

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// toolCallSignature identifies a call by tool name and a digest of its
// input, so identical calls with identical input compare equal.
func toolCallSignature(name string, input json.RawMessage) string {
	sum := sha256.Sum256(input)
	return fmt.Sprintf("%s:%x", name, sum[:8])
}

// recentSignatures returns the signatures of the last n tool requests in
// the transcript, oldest first. Fewer are returned when the transcript has
// fewer requests.
func recentSignatures(history []Turn, n int) []string {
	var sigs []string
	for _, turn := range history {
		if turn.Kind != TurnAssistant || turn.Assistant == nil {
			continue
		}
		for _, req := range turn.Assistant.ToolRequests() {
			sigs = append(sigs, toolCallSignature(req.Name, req.Input))
		}
	}
	if len(sigs) > n {
		sigs = sigs[len(sigs)-n:]
	}
	return sigs
}

// DetectLoop reports whether the last window tool requests consist of one
// block of 1, 2 or 3 calls repeated end to end.
func DetectLoop(history []Turn, window int) bool {
	if window < 2 {
		return false
	}
	sigs := recentSignatures(history, window)
	if len(sigs) < window {
		return false
	}
	for period := 1; period <= 3 && period < window; period++ {
		if window%period == 0 && hasPeriod(sigs, period) {
			return true
		}
	}
	return false
}

func hasPeriod(sigs []string, period int) bool {
	for i := period; i < len(sigs); i++ {
		if sigs[i] != sigs[i-period] {
			return false
		}
	}
	return true
}
