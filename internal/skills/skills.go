// Package skills turns analyzed account content into persona skill
// definitions: one directory per account holding a SKILL.md with YAML
// front matter.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is the structured persona extracted from an account's posts.
type Profile struct {
	PersonName         string   `json:"person_name"`
	Handle             string   `json:"x_handle"`
	CoreExpertise      []string `json:"core_expertise"`
	UniqueInsights     []string `json:"unique_insights"`
	CommunicationStyle string   `json:"communication_style"`
	AgentInstructions  string   `json:"agent_instructions"`
	SamplePosts        []string `json:"sample_posts"`
}

var skillNameRe = regexp.MustCompile(`[^a-z0-9-]`)

// SkillName derives the directory/skill name from a handle: lowercase,
// letters, digits, and hyphens only.
func SkillName(handle string) string {
	name := strings.ToLower(strings.TrimPrefix(handle, "@"))
	return skillNameRe.ReplaceAllString(name, "-")
}

// frontMatter is the YAML header of a SKILL.md file.
type frontMatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Metadata    metadata `yaml:"metadata"`
}

type metadata struct {
	Handle        string   `yaml:"x_handle"`
	PersonName    string   `yaml:"person_name"`
	Version       string   `yaml:"version"`
	CoreExpertise []string `yaml:"core_expertise,flow"`
}

// Render produces the full SKILL.md content for a profile.
func Render(p *Profile) (string, error) {
	name := SkillName(p.Handle)
	fm := frontMatter{
		Name:        name,
		Description: fmt.Sprintf("Expertise, communication style, and unique insights of %s (@%s)", p.PersonName, p.Handle),
		Metadata: metadata{
			Handle:        p.Handle,
			PersonName:    p.PersonName,
			Version:       "1.0.0",
			CoreExpertise: p.CoreExpertise,
		},
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshal front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(head)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s (@%s)\n\n", p.PersonName, p.Handle)

	b.WriteString("## Core Expertise\n")
	for _, item := range p.CoreExpertise {
		fmt.Fprintf(&b, "- %s\n", item)
	}

	b.WriteString("\n## Unique Insights\n")
	for _, item := range p.UniqueInsights {
		fmt.Fprintf(&b, "- %s\n", item)
	}

	fmt.Fprintf(&b, "\n## Communication Style\n%s\n", p.CommunicationStyle)
	fmt.Fprintf(&b, "\n## Instructions for the Agent\n%s\n", p.AgentInstructions)

	b.WriteString("\n## Sample Posts\n")
	for _, post := range p.SamplePosts {
		fmt.Fprintf(&b, "- %s\n", post)
	}
	return b.String(), nil
}

// Writer persists rendered skills under a root directory, one subdirectory
// per skill.
type Writer struct {
	Dir string
}

// Save writes the profile's SKILL.md and returns the skill directory path.
func (w *Writer) Save(p *Profile) (string, error) {
	content, err := Render(p)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(w.Dir, SkillName(p.Handle))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create skill dir: %w", err)
	}
	path := filepath.Join(dir, "SKILL.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return dir, nil
}
