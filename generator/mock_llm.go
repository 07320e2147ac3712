package generator

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockLLM answers without calling a model, for local dry runs of the pipeline.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	task := prompt.User
	if i := strings.LastIndex(task, "---\n\n"); i >= 0 {
		task = task[i+len("---\n\n"):]
	}
	firstLine, _, _ := strings.Cut(strings.TrimSpace(task), "\n")

	switch {
	case strings.Contains(task, "# "+HeadingRevised):
		var sb strings.Builder
		fmt.Fprintf(&sb, "# %s\n\n1. Address the review findings.\n\n", HeadingActionItems)
		fmt.Fprintf(&sb, "# %s\n\n- Restate the point\n- Expand it\n\n", HeadingOutline)
		fmt.Fprintf(&sb, "# %s\n\nRevised text produced offline.\n", HeadingRevised)
		return sb.String(), nil
	case strings.Contains(task, "JSON array"):
		return "[]", nil
	default:
		return fmt.Sprintf("Placeholder text produced offline for:\n\n> %s\n", firstLine), nil
	}
}

// ScriptedLLM replays canned answers and records every prompt it sees.
// Respond is called with the zero-based call number.
type ScriptedLLM struct {
	Respond func(call int, prompt Prompt) (string, error)

	mu      sync.Mutex
	prompts []Prompt
}

func (s *ScriptedLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	s.mu.Lock()
	call := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	return s.Respond(call, prompt)
}

// Prompts returns a copy of the prompts received so far.
func (s *ScriptedLLM) Prompts() []Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Prompt(nil), s.prompts...)
}
