package registry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/marketplace/internal/errors"
)

func widgetEntry() *Entry {
	return &Entry{
		Metadata: Metadata{
			Namespace:   "acme",
			Name:        "widget",
			Description: "A widget for testing",
			Keywords:    []string{"gadget", "Tooling"},
			Category:    CategoryUtility,
			Featured:    true,
			Downloads:   1500,
			Rating:      4.2,
		},
		Versions:      []string{"1.0", "1.1", "2.0"},
		LatestVersion: "2.0",
		PublishedAt:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func entry(ns, name string, category Category, featured bool) *Entry {
	return &Entry{
		Metadata: Metadata{
			Namespace:   ns,
			Name:        name,
			Description: "plugin " + name,
			Category:    category,
			Featured:    featured,
		},
		Versions: []string{"0.1.0"},
	}
}

func TestRegister(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Register(widgetEntry()))
	assert.Equal(t, 1, r.Len())

	t.Run("duplicate identity", func(t *testing.T) {
		err := r.Register(widgetEntry())
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeDuplicateIdentity))
		assert.Equal(t, 1, r.Len(), "failed registration must not change the catalog")
	})

	t.Run("invalid entries", func(t *testing.T) {
		cases := map[string]func(e *Entry){
			"empty namespace":      func(e *Entry) { e.Metadata.Namespace = "" },
			"slash in name":        func(e *Entry) { e.Metadata.Name = "a/b" },
			"rating above five":    func(e *Entry) { e.Metadata.Rating = 5.5 },
			"no versions":          func(e *Entry) { e.Versions = nil; e.LatestVersion = "" },
			"latest not published": func(e *Entry) { e.LatestVersion = "3.0" },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				e := widgetEntry()
				e.Metadata.Namespace = "other"
				mutate(e)
				err := New(nil).Register(e)
				assert.True(t, errors.HasCode(err, errors.CodeInvalidEntry), "got %v", err)
			})
		}
	})

	t.Run("latest derived from versions", func(t *testing.T) {
		e := entry("acme", "derived", CategoryTesting, false)
		e.Versions = []string{"1.2.0", "1.10.0", "1.9.3"}
		require.NoError(t, r.Register(e))

		got, ok := r.FindByIdentity("acme", "derived")
		require.True(t, ok)
		assert.Equal(t, "1.10.0", got.LatestVersion)
		assert.Equal(t, "1.10.0", got.Metadata.Version)
	})
}

func TestFindByIdentity(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Register(widgetEntry()))

	got, ok := r.FindByIdentity("acme", "widget")
	require.True(t, ok)
	assert.Equal(t, "2.0", got.LatestVersion)

	_, ok = r.FindByIdentity("acme", "Widget")
	assert.False(t, ok, "lookup is exact")
	_, ok = r.FindByIdentity("acme", "missing")
	assert.False(t, ok)

	got.Versions[0] = "mutated"
	again, _ := r.FindByIdentity("acme", "widget")
	assert.Equal(t, "1.0", again.Versions[0], "callers must not be able to mutate the registry")
}

func TestSearch(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Register(widgetEntry()))
	for i := 0; i < 12; i++ {
		require.NoError(t, r.Register(entry("bulk", fmt.Sprintf("tool-%02d", i), CategoryDevOps, false)))
	}

	tests := []struct {
		name      string
		query     string
		page      int
		perPage   int
		wantTotal int
		wantLen   int
		wantFirst string
	}{
		{"empty query", "", 1, 10, 0, 0, ""},
		{"whitespace query", "   ", 1, 10, 0, 0, ""},
		{"no match", "nothing-like-this", 1, 10, 0, 0, ""},
		{"name match", "widget", 1, 10, 1, 1, "acme/widget"},
		{"case-insensitive keyword", "TOOLING", 1, 10, 1, 1, "acme/widget"},
		{"description match", "for testing", 1, 10, 1, 1, "acme/widget"},
		{"leading space kept", " widget", 1, 10, 1, 1, "acme/widget"},
		{"trailing space kept", "bulk ", 1, 10, 0, 0, ""},
		{"namespace match", "bulk", 1, 10, 12, 10, "bulk/tool-00"},
		{"second page", "bulk", 2, 10, 12, 2, "bulk/tool-10"},
		{"page past end", "bulk", 5, 10, 12, 0, ""},
		{"defaults for bad paging", "bulk", 0, 0, 12, 10, "bulk/tool-00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Search(tt.query, tt.page, tt.perPage)
			assert.Equal(t, tt.wantTotal, res.Total)
			require.Len(t, res.Entries, tt.wantLen)
			assert.NotNil(t, res.Entries)
			if tt.wantFirst != "" {
				assert.Equal(t, tt.wantFirst, res.Entries[0].Identity().String())
			}
		})
	}

	res := r.Search("bulk", 1, 5)
	assert.Equal(t, 3, res.Pages())
	assert.Equal(t, 0, r.Search("", 1, 5).Pages())
}

func TestFeaturedAndByCategory(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.Register(entry("a", "one", CategoryTesting, true)))
	require.NoError(t, r.Register(entry("a", "two", CategorySecurity, false)))
	require.NoError(t, r.Register(entry("a", "three", CategoryTesting, true)))

	featured := r.Featured()
	require.Len(t, featured, 2)
	assert.Equal(t, "one", featured[0].Metadata.Name)
	assert.Equal(t, "three", featured[1].Metadata.Name)

	inTesting := r.ByCategory(CategoryTesting)
	require.Len(t, inTesting, 2)
	assert.Empty(t, r.ByCategory(CategoryLinting))

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "two", all[1].Metadata.Name)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" Security ")
	require.NoError(t, err)
	assert.Equal(t, CategorySecurity, c)

	_, err = ParseCategory("games")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidConfigValue))
}

func TestLoad_Builtin(t *testing.T) {
	r, err := Load(context.Background(), nil, EmbeddedSource{})
	require.NoError(t, err)
	assert.Equal(t, 5, r.Len())

	cc, ok := r.FindByIdentity("anthropics", "claude-code")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", cc.LatestVersion)
	assert.Equal(t, []string{"0.1.0", "0.5.0", "0.9.0", "1.0.0"}, cc.Versions)
	assert.Equal(t, "Claude Code", cc.Title())
	assert.Contains(t, cc.Settings, "maxTurns")

	featured := r.Featured()
	require.Len(t, featured, 1)
	assert.Equal(t, "claude-code", featured[0].Metadata.Name)

	res := r.Search("claude", 1, 10)
	assert.Equal(t, 5, res.Total, "every built-in plugin mentions claude")
}

func TestLoad_DuplicateAcrossSources(t *testing.T) {
	_, err := Load(context.Background(), nil, EmbeddedSource{}, EmbeddedSource{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeDuplicateIdentity))

	me := errors.FromError(err, "")
	assert.Equal(t, "Plugin anthropics/claude-code is already registered (source builtin)", me.Detail)
	assert.Contains(t, me.FormatCompact(), "(source builtin)")
}

func TestSettingSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    SettingSpec
		value   any
		wantErr bool
	}{
		{"string", SettingSpec{Type: SettingString}, "x", false},
		{"string wrong type", SettingSpec{Type: SettingString}, 1.0, true},
		{"string option", SettingSpec{Type: SettingString, Options: []string{"A", "AA"}}, "AA", false},
		{"string bad option", SettingSpec{Type: SettingString, Options: []string{"A", "AA"}}, "AAA", true},
		{"number", SettingSpec{Type: SettingNumber}, 50.0, false},
		{"number wrong type", SettingSpec{Type: SettingNumber}, "50", true},
		{"boolean", SettingSpec{Type: SettingBoolean}, true, false},
		{"array", SettingSpec{Type: SettingArray}, []any{"Read"}, false},
		{"object", SettingSpec{Type: SettingObject}, map[string]any{"k": "v"}, false},
		{"object wrong type", SettingSpec{Type: SettingObject}, []any{}, true},
		{"untyped accepts anything", SettingSpec{}, 3.0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
