package skills

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillnet/internal/provider"
)

func TestSkillName(t *testing.T) {
	tests := []struct {
		handle string
		want   string
	}{
		{"JaneDoe", "janedoe"},
		{"@JaneDoe", "janedoe"},
		{"jane_doe", "jane-doe"},
		{"jane.doe!", "jane-doe-"},
		{"abc123", "abc123"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SkillName(tt.handle), "SkillName(%q)", tt.handle)
	}
}

func testProfile() *Profile {
	return &Profile{
		PersonName:         "Jane Doe",
		Handle:             "jane_doe",
		CoreExpertise:      []string{"distributed systems", "observability"},
		UniqueInsights:     []string{"treat retries as a budget"},
		CommunicationStyle: "terse, example-driven",
		AgentInstructions:  "Answer like a pragmatic SRE.",
		SamplePosts:        []string{"postmortems are love letters to future you"},
	}
}

func TestRender(t *testing.T) {
	content, err := Render(testProfile())
	require.NoError(t, err)

	assert.True(t, len(content) > 0)
	assert.Contains(t, content, "---\nname: jane-doe\n")
	assert.Contains(t, content, `x_handle: jane_doe`)
	assert.Contains(t, content, "# Jane Doe (@jane_doe)")
	assert.Contains(t, content, "- distributed systems")
	assert.Contains(t, content, "## Instructions for the Agent\nAnswer like a pragmatic SRE.")
	assert.Contains(t, content, "- postmortems are love letters to future you")
}

func TestWriterSave(t *testing.T) {
	w := &Writer{Dir: t.TempDir()}
	dir, err := w.Save(testProfile())
	require.NoError(t, err)

	assert.Equal(t, "jane-doe", filepath.Base(dir))
	data, err := os.ReadFile(filepath.Join(dir, "SKILL.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Jane Doe")
}

func TestBuildCorpusOrdersHighlightsFirst(t *testing.T) {
	corpus := buildCorpus(
		[]provider.Post{{Text: "pinned wisdom"}},
		[]provider.Post{{Text: "recent take"}, {Text: "   "}},
	)
	assert.Contains(t, corpus, "[highlight] pinned wisdom")
	assert.Less(t,
		strings.Index(corpus, "pinned wisdom"),
		strings.Index(corpus, "recent take"))
	assert.NotContains(t, corpus, "\n\n\n\n")
}

func TestParseProfileJSONWithCodeFence(t *testing.T) {
	p, err := parseProfileJSON("```json\n{\"person_name\":\"Jane\",\"x_handle\":\"jane\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Jane", p.PersonName)
	assert.Equal(t, "jane", p.Handle)
}
