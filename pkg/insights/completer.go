// Package insights generates the AI "coach" narrative: sessions are grouped
// upstream, memoized narratives are reused by session identity, and exactly
// one model call covers everything new in a batch.
package insights

import (
	"context"
	"strings"
)

// Completer is the generative-AI capability: one prompt in, one text
// completion out. Completions are expected by convention to be JSON,
// optionally fenced in code-block markers; nothing is enforced by the
// provider, so consumers must parse defensively.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	ModelName() string
}

// StripCodeFences removes a leading/trailing markdown code fence so the
// payload can be fed to the JSON decoder.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
