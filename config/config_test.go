package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auto_report_author/document"
	"auto_report_author/generator"
)

const minimal = `title: CGP Report
instruction: Write a technical report on CGP.
outline:
  - id: ch1
    title: Fusion
    brief: What fusion does.
  - id: ch2
    title: Fission
llm:
  provider: mock
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, minimal)
	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, DefaultDocument), cfg.Document)
	assert.Equal(t, filepath.Join(dir, DefaultFindings), cfg.Findings)
	assert.Equal(t, DefaultServerAddr, cfg.ServerAddr)
	assert.Equal(t, []document.ChapterSpec{
		{ID: "ch1", Title: "Fusion", Brief: "What fusion does."},
		{ID: "ch2", Title: "Fission"},
	}, cfg.Outline)

	assert.Equal(t, generator.NewBudget(generator.DefaultCapacity, generator.DefaultCharsPerToken), cfg.ContextBudget())
	assert.Equal(t, generator.DefaultRetryPolicy(), cfg.RetryPolicy())
	assert.Equal(t, generator.ProviderMock, cfg.Settings().Provider)
}

func TestLoadTrimsOutline(t *testing.T) {
	cfg, err := Load(writeConfig(t, `title: "  CGP Report "
instruction: Write a technical report on CGP.
outline:
  - {id: " ch1", title: "Fusion  ", brief: " What fusion does. "}
llm:
  provider: mock
`))
	require.NoError(t, err)
	assert.Equal(t, "CGP Report", cfg.Title)
	assert.Equal(t, []document.ChapterSpec{{ID: "ch1", Title: "Fusion", Brief: "What fusion does."}}, cfg.Outline)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, minimal+`budget:
  capacity_tokens: 900
  chars_per_token: 3.5
retry:
  max_attempts: 5
  base_delay: 500ms
  max_delay: 4s
document: out/cgp.md
server_addr: 127.0.0.1:9000
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 900, cfg.ContextBudget().Capacity)
	assert.Equal(t, 3.5, cfg.ContextBudget().CharsPerToken)
	assert.Equal(t, generator.RetryPolicy{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second}, cfg.RetryPolicy())
	assert.Equal(t, filepath.Join(filepath.Dir(path), "out", "cgp.md"), cfg.Document)
	assert.Equal(t, "127.0.0.1:9000", cfg.ServerAddr)
}

func TestLoadInstructionFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "brief.md"), []byte("Brief from a file."), 0o644))
	content := `title: T
instruction_file: brief.md
outline:
  - {id: a, title: A}
llm: {provider: mock}
`
	path := filepath.Join(dir, "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Brief from a file.", cfg.Instruction)
}

func TestLoadReadsKeyFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	const envName = "AUTO_REPORT_CONFIG_TEST_KEY"
	t.Cleanup(func() { os.Unsetenv(envName) })
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(envName+"=sk-from-dotenv\n"), 0o644))
	content := `title: T
instruction: I
outline:
  - {id: a, title: A}
llm:
  provider: openai
  model: gpt-4o-mini
  api_key_env: ` + envName + "\n"
	path := filepath.Join(dir, "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-dotenv", cfg.Settings().APIKey)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no title", "instruction: I\noutline: [{id: a, title: A}]\nllm: {provider: mock}\n", "title"},
		{"no instruction", "title: T\noutline: [{id: a, title: A}]\nllm: {provider: mock}\n", "instruction"},
		{"empty outline", "title: T\ninstruction: I\nllm: {provider: mock}\n", "outline"},
		{"duplicate id", "title: T\ninstruction: I\noutline: [{id: a, title: A}, {id: a, title: B}]\nllm: {provider: mock}\n", "duplicate"},
		{"no provider", "title: T\ninstruction: I\noutline: [{id: a, title: A}]\n", "llm.provider"},
		{"missing key", "title: T\ninstruction: I\noutline: [{id: a, title: A}]\nllm: {provider: anthropic, api_key_env: AUTO_REPORT_UNSET_KEY}\n", "AUTO_REPORT_UNSET_KEY"},
		{"bad retry", "title: T\ninstruction: I\noutline: [{id: a, title: A}]\nllm: {provider: mock}\nretry: {max_attempts: -1}\n", "max_attempts"},
		{"bad yaml", "title: [unterminated\n", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
