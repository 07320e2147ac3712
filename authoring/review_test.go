package authoring

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_report_author/document"
	"auto_report_author/generator"
)

const critique = `Here is my review:
[
  {"section_id": "ch1", "description": "too vague", "suggested_action": "add an example"},
  {"section_id": "ghost", "description": "not a section", "suggested_action": "none"}
]`

func TestReviewWholeDraft(t *testing.T) {
	llm := &generator.ScriptedLLM{Respond: func(int, generator.Prompt) (string, error) {
		return critique, nil
	}}
	s := newSession(t, llm, 100000, nil)
	doc := draftedDoc(t, 2)
	before := doc.Clone()

	findings, err := s.Review(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []document.ReviewFinding{
		{SectionID: "ch1", Description: "too vague", SuggestedAction: "add an example"},
	}, findings)

	if diff := cmp.Diff(before, doc); diff != "" {
		t.Fatalf("review modified the document (-want +got):\n%s", diff)
	}

	prompts := llm.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0].User, bodyFor(1))
	assert.Contains(t, prompts[0].User, bodyFor(2))
	assert.Contains(t, prompts[0].User, "JSON array")
}

func TestReviewSectionBySectionWhenDraftDoesNotFit(t *testing.T) {
	doc, err := document.New("CGP Report", testOutline(3))
	require.NoError(t, err)
	for i := range doc.Sections {
		body := fmt.Sprintf("chapter-%d ", i+1) + strings.Repeat("y", 2000)
		require.NoError(t, doc.SetBody(doc.Sections[i].ID, body, document.StatusDrafted))
	}

	llm := &generator.ScriptedLLM{Respond: func(_ int, p generator.Prompt) (string, error) {
		if strings.Contains(p.User, "Bind every finding to section id ch2.") {
			return `[{"section_id": "ch2", "description": "repeats chapter one", "suggested_action": "cut it"}]`, nil
		}
		return "[]", nil
	}}
	s := newSession(t, llm, 1400, nil)

	findings, err := s.Review(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "ch2", findings[0].SectionID)

	prompts := llm.Prompts()
	require.Len(t, prompts, 3)
	budget := generator.NewBudget(1400, 4)
	for _, p := range prompts {
		assert.LessOrEqual(t, budget.Cost(p), 1400)
	}
}

func TestReviewPreconditions(t *testing.T) {
	s := newSession(t, generator.MockLLM{}, 100000, nil)

	planned, err := document.New("CGP Report", testOutline(2))
	require.NoError(t, err)
	_, err = s.Review(context.Background(), planned)
	assert.ErrorIs(t, err, ErrNothingToReview)

	_, err = s.Review(context.Background(), &document.Document{Title: "empty"})
	assert.ErrorIs(t, err, ErrNothingToReview)

	mixed := planned.Clone()
	require.NoError(t, mixed.SetBody("ch1", "text", document.StatusDrafted))
	_, err = s.Review(context.Background(), mixed)
	assert.ErrorIs(t, err, ErrDraftIncomplete)
}

func TestReviewFailureIsReported(t *testing.T) {
	llm := &generator.ScriptedLLM{Respond: func(int, generator.Prompt) (string, error) {
		return "", fmt.Errorf("test: %w", generator.ErrGenerationRejected)
	}}
	s := newSession(t, llm, 100000, nil)

	_, err := s.Review(context.Background(), draftedDoc(t, 2))
	assert.ErrorIs(t, err, generator.ErrGenerationRejected)
	assert.Len(t, llm.Prompts(), 1)
}

func TestReviewRetriesUnreadableCritique(t *testing.T) {
	llm := &generator.ScriptedLLM{Respond: func(call int, _ generator.Prompt) (string, error) {
		if call == 0 {
			return "Looks good to me [mostly].", nil
		}
		return "Reviewed [all sections]:\n" + `[{"section_id": "ch2", "description": "weak ending", "suggested_action": "close the argument"}]`, nil
	}}
	s := newSession(t, llm, 100000, nil)

	findings, err := s.Review(context.Background(), draftedDoc(t, 2))
	require.NoError(t, err)
	assert.Equal(t, []document.ReviewFinding{
		{SectionID: "ch2", Description: "weak ending", SuggestedAction: "close the argument"},
	}, findings)
	assert.Len(t, llm.Prompts(), 2)
}

func TestReviewFailsOnPersistentProse(t *testing.T) {
	llm := &generator.ScriptedLLM{Respond: func(int, generator.Prompt) (string, error) {
		return "The draft reads well overall.", nil
	}}
	s := newSession(t, llm, 100000, nil)

	_, err := s.Review(context.Background(), draftedDoc(t, 2))
	require.Error(t, err)
	assert.ErrorIs(t, err, generator.ErrMalformedOutput)
	var step *StepError
	require.ErrorAs(t, err, &step)
	assert.Equal(t, PhaseReview, step.Phase)
	assert.Len(t, llm.Prompts(), 3)
}

func TestMarkReviewed(t *testing.T) {
	doc := draftedDoc(t, 2)
	marked, err := MarkReviewed(doc, []document.ReviewFinding{{SectionID: "ch2", Description: "d"}})
	require.NoError(t, err)

	assert.Equal(t, document.StatusDrafted, marked.Sections[0].Status)
	assert.Equal(t, document.StatusReviewed, marked.Sections[1].Status)
	assert.Equal(t, document.StatusDrafted, doc.Sections[1].Status)
}
