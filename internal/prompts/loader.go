// Package prompts loads the language-model prompt templates.
// Templates live in JSON files keyed by prompt name and are embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Prompt files and keys
const (
	ClassifierFile = "classifier.json"
	GateKey        = "gate-verdict"
	ExtractKey     = "extract-jd-analysis"

	ComposeFile = "compose.json"
	EmailKey    = "application-email"
)

var placeholderRe = regexp.MustCompile(`\{\{\.(\w+)\}\}`)

// catalog holds every embedded prompt file, parsed on first use.
var catalog = sync.OnceValues(func() (map[string]map[string]string, error) {
	entries, err := promptFiles.ReadDir(".")
	if err != nil {
		return nil, err
	}
	files := make(map[string]map[string]string, len(entries))
	for _, e := range entries {
		raw, err := promptFiles.ReadFile(e.Name())
		if err != nil {
			return nil, err
		}
		var keyed map[string]string
		if err := json.Unmarshal(raw, &keyed); err != nil {
			return nil, fmt.Errorf("parse prompt file %s: %w", e.Name(), err)
		}
		files[e.Name()] = keyed
	}
	return files, nil
})

func file(filename string) (map[string]string, error) {
	files, err := catalog()
	if err != nil {
		return nil, err
	}
	keyed, ok := files[filename]
	if !ok {
		return nil, fmt.Errorf("unknown prompt file %s", filename)
	}
	return keyed, nil
}

// Get returns the prompt stored under key in filename.
func Get(filename, key string) (string, error) {
	keyed, err := file(filename)
	if err != nil {
		return "", err
	}
	prompt, ok := keyed[key]
	if !ok {
		return "", fmt.Errorf("prompt %q not found in %s", key, filename)
	}
	return prompt, nil
}

// MustGet is Get for prompts the binary cannot run without.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(err)
	}
	return prompt
}

// Format replaces {{.Key}} placeholders with values from data.
// Placeholders with no entry in data are left untouched.
func Format(template string, data map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := data[key]; ok {
			return v
		}
		return m
	})
}

// Render loads a prompt and fills it, failing if any placeholder is left unresolved.
func Render(filename, key string, data map[string]string) (string, error) {
	tmpl, err := Get(filename, key)
	if err != nil {
		return "", err
	}
	var missing []string
	for _, name := range Placeholders(tmpl) {
		if _, ok := data[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt %s/%s: unresolved placeholders %s", filename, key, strings.Join(missing, ", "))
	}
	return Format(tmpl, data), nil
}

// Placeholders returns the distinct placeholder names in s, sorted.
func Placeholders(s string) []string {
	var names []string
	for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
		names = append(names, m[1])
	}
	slices.Sort(names)
	return slices.Compact(names)
}

// List returns the prompt keys in a file, sorted.
func List(filename string) ([]string, error) {
	keyed, err := file(filename)
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(keyed)), nil
}
