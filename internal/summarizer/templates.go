package summarizer

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

//go:embed prompts/*.tmpl
var defaultPrompts embed.FS

// Template names, also the file names looked up in the prompts directory.
const (
	ExtractTemplate   = "extract.tmpl"
	SummarizeTemplate = "summarize.tmpl"
)

// ExtractData fills the extraction prompt.
type ExtractData struct {
	Project         string
	Tool            string
	Log             string
	PreviousContext string
}

// SummarizeData fills the archival prompt.
type SummarizeData struct {
	Sessions  string
	MaxTokens int
}

// Templates holds the parsed prompt templates.
type Templates struct {
	extract   *template.Template
	summarize *template.Template
}

// LoadTemplates parses the built-in prompts, replacing each with the file of
// the same name in dir when one exists.
func LoadTemplates(dir string) (*Templates, error) {
	extract, err := loadTemplate(dir, ExtractTemplate)
	if err != nil {
		return nil, err
	}
	summarize, err := loadTemplate(dir, SummarizeTemplate)
	if err != nil {
		return nil, err
	}
	return &Templates{extract: extract, summarize: summarize}, nil
}

func loadTemplate(dir, name string) (*template.Template, error) {
	var (
		source []byte
		err    error
	)
	if dir != "" {
		source, err = os.ReadFile(filepath.Join(dir, name))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read prompt %s: %w", name, err)
		}
	}
	if source == nil {
		source, err = defaultPrompts.ReadFile("prompts/" + name)
		if err != nil {
			return nil, err
		}
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt %s: %w", name, err)
	}
	return tmpl, nil
}

// WriteDefaults copies the built-in prompts into dir without overwriting
// files a user already customised. It returns the files written.
func WriteDefaults(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var written []string
	for _, name := range []string{ExtractTemplate, SummarizeTemplate} {
		target := filepath.Join(dir, name)
		if _, err := os.Stat(target); err == nil {
			continue
		}
		data, err := defaultPrompts.ReadFile("prompts/" + name)
		if err != nil {
			return written, err
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			return written, err
		}
		written = append(written, target)
	}
	return written, nil
}

func (t *Templates) renderExtract(data ExtractData) (string, error) {
	return render(t.extract, data)
}

func (t *Templates) renderSummarize(data SummarizeData) (string, error) {
	return render(t.summarize, data)
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
