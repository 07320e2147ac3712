package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_report_author/document"
)

func TestNewClientProviders(t *testing.T) {
	c, err := NewClient(LLMSettings{Provider: ProviderMock})
	require.NoError(t, err)
	assert.IsType(t, MockLLM{}, c)

	c, err = NewClient(LLMSettings{Provider: ProviderOpenAI, Model: "gpt-4o-mini", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAILLM{}, c)

	c, err = NewClient(LLMSettings{Provider: ProviderAnthropic, Model: "claude-sonnet-4-5", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &AnthropicLLM{}, c)

	_, err = NewClient(LLMSettings{Provider: ProviderDeepSeek, Model: "deepseek-chat", APIKey: "k"})
	assert.Error(t, err)

	_, err = NewClient(LLMSettings{Provider: ProviderOpenAI, Model: "gpt-4o-mini"})
	assert.Error(t, err)

	_, err = NewClient(LLMSettings{Provider: "palm"})
	assert.Error(t, err)
}

func TestClassifyStatus(t *testing.T) {
	cause := errors.New("boom")
	for _, status := range []int{429, 408, 500, 503, 529} {
		assert.ErrorIs(t, classifyStatus("p", status, cause), ErrGenerationUnavailable, "status %d", status)
	}
	for _, status := range []int{400, 401, 403, 404, 422} {
		err := classifyStatus("p", status, cause)
		assert.ErrorIs(t, err, ErrGenerationRejected, "status %d", status)
		assert.ErrorIs(t, err, cause)
	}
}

func TestClassifyTransport(t *testing.T) {
	assert.ErrorIs(t, classifyTransport(context.Background(), "p", errors.New("dial tcp: refused")), ErrGenerationUnavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := classifyTransport(ctx, "p", context.Canceled)
	assert.False(t, IsTransient(err))
}

func TestMockLLMFollowsTaskShape(t *testing.T) {
	ctx := context.Background()
	section := document.Section{ID: "ch1", Title: "One", Body: "text", Status: document.StatusDrafted}

	out, err := MockLLM{}.Complete(ctx, Prompt{User: RevisionTask([]document.ChapterSpec{{ID: "ch1", Title: "One"}}, 0, section, nil)})
	require.NoError(t, err)
	body, err := ExtractRevisedChapter(out)
	require.NoError(t, err)
	assert.NotEmpty(t, body)

	out, err = MockLLM{}.Complete(ctx, Prompt{User: CritiqueTask([]string{"ch1"}, FindingsSchema())})
	require.NoError(t, err)
	assert.Equal(t, "[]", out)

	out, err = MockLLM{}.Complete(ctx, Prompt{User: DraftTask([]document.ChapterSpec{{ID: "ch1", Title: "One"}}, 0)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Placeholder"))
}
