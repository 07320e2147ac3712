package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc(t *testing.T) *Document {
	t.Helper()
	doc, err := New("CGP Report", outline())
	require.NoError(t, err)
	doc.InstructionDigest = DigestInstruction("write the report")
	require.NoError(t, doc.SetBody("ch1", "Fusion merges concerns.\n\n### Detail\n\nMore text.", StatusDrafted))
	require.NoError(t, doc.SetBody("ch2", "Fission splits them.", StatusDrafted))
	return doc
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	store := NewStore(path)
	assert.False(t, store.Exists())

	doc := sampleDoc(t)
	require.NoError(t, store.Save(doc))
	assert.True(t, store.Exists())

	got, err := store.Load()
	require.NoError(t, err)
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStorePicksUpHumanEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	store := NewStore(path)
	require.NoError(t, store.Save(sampleDoc(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	edited := strings.Replace(string(data), "Fission splits them.", "Fission splits them apart, by hand.", 1)
	require.NoError(t, os.WriteFile(path, []byte(edited), 0o644))

	got, err := store.Load()
	require.NoError(t, err)
	s, err := got.Section("ch2")
	require.NoError(t, err)
	assert.Equal(t, "Fission splits them apart, by hand.", s.Body)
}

func TestStoreKeepsBodyStableWithPaddedTitle(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "report.md"))
	doc, err := New("CGP Report", []ChapterSpec{{ID: "ch1", Title: "  Fusion "}})
	require.NoError(t, err)
	require.NoError(t, doc.SetBody("ch1", "Fusion merges concerns.", StatusDrafted))

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(doc))
		doc, err = store.Load()
		require.NoError(t, err)
	}
	s, err := doc.Section("ch1")
	require.NoError(t, err)
	assert.Equal(t, "Fusion merges concerns.", s.Body)
}

func TestMarshalLayout(t *testing.T) {
	data, err := Marshal(sampleDoc(t))
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "---\n"))
	assert.Contains(t, text, "<!-- section:ch1 -->\n## Fusion\n\nFusion merges concerns.")
	assert.Contains(t, text, "<!-- section:ch3 -->\n## Synthesis\n")
	assert.Less(t, strings.Index(text, "section:ch1"), strings.Index(text, "section:ch2"))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no frontmatter", "# just markdown\n"},
		{"unterminated", "---\ntitle: x\n"},
		{"bad status", "---\ntitle: x\nsections:\n  - id: a\n    title: A\n    status: bogus\n---\n"},
		{"unknown body", "---\ntitle: x\nsections: []\n---\n<!-- section:ghost -->\n## Ghost\n\ntext\n"},
		{"duplicate marker", "---\ntitle: x\nsections:\n  - id: a\n    title: A\n    status: drafted\n---\n<!-- section:a -->\none\n<!-- section:a -->\ntwo\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestFindingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "findings.yaml")

	none, err := LoadFindings(path)
	require.NoError(t, err)
	assert.Empty(t, none)

	findings := []ReviewFinding{
		{SectionID: "ch1", Description: "too abstract", SuggestedAction: "add an example"},
		{SectionID: "ch2", Description: "repeats ch1", SuggestedAction: "cut the recap"},
		{SectionID: "ch1", Description: "no conclusion", SuggestedAction: "summarize"},
	}
	require.NoError(t, SaveFindings(path, findings))

	got, err := LoadFindings(path)
	require.NoError(t, err)
	assert.Equal(t, findings, got)
	assert.Len(t, ForSection(got, "ch1"), 2)
	assert.Empty(t, ForSection(got, "ch3"))
}
