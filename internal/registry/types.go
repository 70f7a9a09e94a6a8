package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/vango-dev/marketplace/internal/errors"
)

// Category classifies a plugin in the catalog.
type Category string

const (
	CategoryAIAssistant    Category = "ai-assistant"
	CategoryCodeGeneration Category = "code-generation"
	CategoryDebugging      Category = "debugging"
	CategoryTesting        Category = "testing"
	CategoryDevOps         Category = "devops"
	CategoryDocumentation  Category = "documentation"
	CategoryLinting        Category = "linting"
	CategoryFormatting     Category = "formatting"
	CategorySecurity       Category = "security"
	CategoryUtility        Category = "utility"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryAIAssistant,
	CategoryCodeGeneration,
	CategoryDebugging,
	CategoryTesting,
	CategoryDevOps,
	CategoryDocumentation,
	CategoryLinting,
	CategoryFormatting,
	CategorySecurity,
	CategoryUtility,
}

// ParseCategory validates s against the known categories.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", errors.New(errors.CodeInvalidConfigValue).
		WithDetailf("Unknown category %q", s).
		WithSuggestion("Valid categories: " + joinCategories())
}

func joinCategories() string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// Metadata describes a plugin. Installed plugins keep a snapshot of it
// with Version set to the installed version.
type Metadata struct {
	Name        string   `json:"name" yaml:"name"`
	Namespace   string   `json:"namespace" yaml:"namespace"`
	Version     string   `json:"version" yaml:"version"`
	Description string   `json:"description" yaml:"description"`
	Author      string   `json:"author" yaml:"author"`
	License     string   `json:"license" yaml:"license"`
	Homepage    string   `json:"homepage" yaml:"homepage"`
	Repository  string   `json:"repository" yaml:"repository"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
	Category    Category `json:"category" yaml:"category"`
	Featured    bool     `json:"featured" yaml:"featured"`
	Downloads   int64    `json:"downloads" yaml:"downloads"`
	Rating      float64  `json:"rating" yaml:"rating"`
}

// Identity returns the metadata's (namespace, name) pair.
func (m Metadata) Identity() Identity {
	return Identity{Namespace: m.Namespace, Name: m.Name}
}

// SettingType is the declared type of a plugin setting.
type SettingType string

const (
	SettingString  SettingType = "string"
	SettingNumber  SettingType = "number"
	SettingBoolean SettingType = "boolean"
	SettingArray   SettingType = "array"
	SettingObject  SettingType = "object"
)

// SettingSpec declares one configurable setting of a plugin.
type SettingSpec struct {
	Type        SettingType `json:"type" yaml:"type"`
	Default     any         `json:"default,omitempty" yaml:"default,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Options     []string    `json:"options,omitempty" yaml:"options,omitempty"`
}

// Validate checks that value matches the declared type and options.
// Values are expected in their encoding/json shapes (float64, []any, ...).
func (s SettingSpec) Validate(value any) error {
	ok := false
	switch s.Type {
	case SettingString:
		var str string
		str, ok = value.(string)
		if ok && len(s.Options) > 0 {
			ok = false
			for _, opt := range s.Options {
				if opt == str {
					ok = true
					break
				}
			}
			if !ok {
				return fmt.Errorf("%q is not one of %s", str, strings.Join(s.Options, ", "))
			}
		}
	case SettingNumber:
		switch value.(type) {
		case float64, float32, int, int64:
			ok = true
		}
	case SettingBoolean:
		_, ok = value.(bool)
	case SettingArray:
		_, ok = value.([]any)
	case SettingObject:
		_, ok = value.(map[string]any)
	default:
		ok = true
	}
	if !ok {
		return fmt.Errorf("expected %s, got %T", s.Type, value)
	}
	return nil
}

// Command is a command a plugin contributes once installed.
type Command struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Usage       string `json:"usage,omitempty" yaml:"usage,omitempty"`
}

// Entry is a catalog entry: a plugin's metadata plus its published versions.
type Entry struct {
	Metadata      Metadata               `json:"metadata" yaml:"metadata"`
	DisplayName   string                 `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Versions      []string               `json:"versions" yaml:"versions"`
	LatestVersion string                 `json:"latestVersion" yaml:"latestVersion"`
	PublishedAt   time.Time              `json:"publishedAt" yaml:"publishedAt"`
	Capabilities  []string               `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Settings      map[string]SettingSpec `json:"settings,omitempty" yaml:"settings,omitempty"`
	Commands      []Command              `json:"commands,omitempty" yaml:"commands,omitempty"`
}

// Identity returns the entry's (namespace, name) pair.
func (e *Entry) Identity() Identity {
	return e.Metadata.Identity()
}

// HasVersion reports whether v is one of the entry's published versions.
func (e *Entry) HasVersion(v string) bool {
	for _, known := range e.Versions {
		if known == v {
			return true
		}
	}
	return false
}

// Title returns the display name, falling back to the identity.
func (e *Entry) Title() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Identity().String()
}

// clone returns a deep copy so callers cannot mutate registry state.
func (e *Entry) clone() *Entry {
	c := *e
	c.Metadata.Keywords = append([]string(nil), e.Metadata.Keywords...)
	c.Versions = append([]string(nil), e.Versions...)
	c.Capabilities = append([]string(nil), e.Capabilities...)
	c.Commands = append([]Command(nil), e.Commands...)
	if e.Settings != nil {
		c.Settings = make(map[string]SettingSpec, len(e.Settings))
		for k, v := range e.Settings {
			c.Settings[k] = v
		}
	}
	return &c
}
