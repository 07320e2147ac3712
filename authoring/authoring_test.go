package authoring

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_report_author/document"
	"auto_report_author/generator"
)

const instruction = "Write a technical report on CGP for compiler engineers."

var chapterRe = regexp.MustCompile(`Write chapter (\d+) of`)

func testOutline(n int) []document.ChapterSpec {
	titles := []string{"Fusion", "Fission", "Synthesis", "Outlook"}
	out := make([]document.ChapterSpec, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, document.ChapterSpec{ID: fmt.Sprintf("ch%d", i+1), Title: titles[i]})
	}
	return out
}

// chapterNumber reports which chapter a draft prompt asks for, or 0.
func chapterNumber(p generator.Prompt) int {
	m := chapterRe.FindStringSubmatch(p.User)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func bodyFor(n int) string {
	return fmt.Sprintf("Body of chapter %d.", n)
}

// drafter answers every draft prompt with bodyFor(chapter).
func drafter() *generator.ScriptedLLM {
	return &generator.ScriptedLLM{Respond: func(_ int, p generator.Prompt) (string, error) {
		return bodyFor(chapterNumber(p)), nil
	}}
}

func revisionAnswer(body string) string {
	return "# Action Items\n\n1. Fix it.\n\n# Outline\n\n- point\n\n# Revised Chapter\n\n" + body + "\n"
}

func newSession(t *testing.T, llm generator.LLMClient, capacity int, store Checkpointer) *Session {
	t.Helper()
	inv, err := generator.NewInvoker(llm, generator.RetryPolicy{MaxAttempts: 3}, nil)
	require.NoError(t, err)
	agent, err := generator.NewAgent(inv, generator.NewBudget(capacity, 4), nil)
	require.NoError(t, err)
	s, err := NewSession(agent, instruction, store, nil)
	require.NoError(t, err)
	return s
}

func tempStore(t *testing.T) *document.Store {
	t.Helper()
	return document.NewStore(filepath.Join(t.TempDir(), "report.md"))
}

func draftedDoc(t *testing.T, n int) *document.Document {
	t.Helper()
	doc, err := document.New("CGP Report", testOutline(n))
	require.NoError(t, err)
	doc.InstructionDigest = document.DigestInstruction(instruction)
	for i := range doc.Sections {
		require.NoError(t, doc.SetBody(doc.Sections[i].ID, bodyFor(i+1), document.StatusDrafted))
	}
	return doc
}

func TestNewSessionValidates(t *testing.T) {
	_, err := NewSession(nil, instruction, nil, nil)
	require.Error(t, err)

	inv, err := generator.NewInvoker(generator.MockLLM{}, generator.RetryPolicy{MaxAttempts: 1}, nil)
	require.NoError(t, err)
	agent, err := generator.NewAgent(inv, generator.NewBudget(1000, 4), nil)
	require.NoError(t, err)
	_, err = NewSession(agent, "   ", nil, nil)
	require.Error(t, err)
}

func TestStepErrorMatchesPhase(t *testing.T) {
	cause := fmt.Errorf("x: %w", generator.ErrGenerationUnavailable)
	err := error(&StepError{Phase: PhaseRevise, SectionID: "ch1", Err: cause})

	assert.ErrorIs(t, err, ErrRevisionFailed)
	assert.ErrorIs(t, err, generator.ErrGenerationUnavailable)
	assert.NotErrorIs(t, err, ErrChapterDraftFailed)
	assert.NotErrorIs(t, err, ErrAmendmentFailed)
	assert.Contains(t, err.Error(), "revise ch1")
}
