package llm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PromptTemplates is a system prompt plus a user prompt that may reference
// {comments} and {transcript}.
type PromptTemplates struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// RenderUser substitutes the placeholders of the user prompt.
func (t PromptTemplates) RenderUser(comments, transcript string) string {
	return strings.NewReplacer("{comments}", comments, "{transcript}", transcript).Replace(t.User)
}

// PromptFile groups the templates of every generator.
type PromptFile struct {
	Dialogue  PromptTemplates `yaml:"dialogue"`
	Questions PromptTemplates `yaml:"questions"`
}

// DefaultDialogueTemplates are used in template mode when no file is given.
var DefaultDialogueTemplates = PromptTemplates{
	System: "You write podcast scripts. Produce a natural two-person conversation between a host and a guest expert, grounded strictly in the material you are given.",
	User:   "Write a podcast dialogue that explains the transcript above and answers the most common questions raised in the comments. Label every turn with the speaker name.",
}

// DefaultQuestionTemplates drive question extraction.
var DefaultQuestionTemplates = PromptTemplates{
	System: "You read a video transcript and its audience comments and identify the questions viewers asked or would likely ask. Reply with a numbered list and nothing else.",
	User:   "Each question must be self-contained, specific to the video, and answerable from the transcript. Merge duplicates.",
}

// DefaultPromptFile returns the compiled-in templates.
func DefaultPromptFile() *PromptFile {
	return &PromptFile{Dialogue: DefaultDialogueTemplates, Questions: DefaultQuestionTemplates}
}

// LoadPromptFile reads a YAML prompts file. A missing path yields the
// defaults; blank entries in the file fall back to them individually.
func LoadPromptFile(path string) (*PromptFile, error) {
	pf := DefaultPromptFile()
	if path == "" {
		return pf, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pf, nil
		}
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	var loaded PromptFile
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse prompts file %s: %w", path, err)
	}
	merge(&pf.Dialogue, loaded.Dialogue)
	merge(&pf.Questions, loaded.Questions)
	return pf, nil
}

// LoadTemplateFiles builds templates from standalone markdown files; either
// path may be empty to keep the default for that half.
func LoadTemplateFiles(base PromptTemplates, systemPath, userPath string) (PromptTemplates, error) {
	out := base
	if systemPath != "" {
		b, err := os.ReadFile(systemPath)
		if err != nil {
			return out, fmt.Errorf("read system prompt: %w", err)
		}
		out.System = strings.TrimSpace(string(b))
	}
	if userPath != "" {
		b, err := os.ReadFile(userPath)
		if err != nil {
			return out, fmt.Errorf("read user prompt: %w", err)
		}
		out.User = strings.TrimSpace(string(b))
	}
	return out, nil
}

func merge(dst *PromptTemplates, src PromptTemplates) {
	if strings.TrimSpace(src.System) != "" {
		dst.System = strings.TrimSpace(src.System)
	}
	if strings.TrimSpace(src.User) != "" {
		dst.User = strings.TrimSpace(src.User)
	}
}
