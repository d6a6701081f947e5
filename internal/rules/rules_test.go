package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	_, err := New(File{Rules: []Rule{{Pattern: "grocery", Action: "delete_memory"}}})
	require.Error(t, err)

	_, err = New(File{Rules: []Rule{{Pattern: "  ", Action: ActionStore}}})
	require.Error(t, err)
}

func TestMatchFirstWins(t *testing.T) {
	table, err := New(File{Rules: []Rule{
		{Pattern: "grocery", Action: ActionStore, Category: "general"},
		{Pattern: "grocery list", Action: ActionRecall, Category: "general"},
	}})
	require.NoError(t, err)

	r, ok := table.Match("Add milk to the GROCERY LIST")
	require.True(t, ok)
	assert.Equal(t, "grocery", r.Pattern, "first configured rule wins even when a later one also matches")
	assert.Equal(t, ActionStore, r.Action)

	_, ok = table.Match("nothing relevant here")
	assert.False(t, ok)
}

func TestEmptyCategoryDefaultsToAuto(t *testing.T) {
	table, err := New(File{Rules: []Rule{{Pattern: "link", Action: ActionStore}}})
	require.NoError(t, err)
	r, ok := table.Match("save this link")
	require.True(t, ok)
	assert.Equal(t, CategoryAuto, r.Category)
}

func TestMappings(t *testing.T) {
	table, err := New(File{
		Persons:    map[string]string{"Ravi": "work", "Amma": "sensitive"},
		WorkTopics: []string{"Quarterly Review"},
		Preferences: map[string]string{
			"tone": "brief",
		},
	})
	require.NoError(t, err)

	domain, ok := table.PersonDomain("lunch with ravi tomorrow")
	require.True(t, ok)
	assert.Equal(t, "work", domain)

	_, ok = table.PersonDomain("lunch alone")
	assert.False(t, ok)

	assert.True(t, table.HasWorkTopic("prep for the quarterly review"))
	assert.False(t, table.HasWorkTopic("prep for dinner"))

	tone, ok := table.Preference("tone")
	require.True(t, ok)
	assert.Equal(t, "brief", tone)
}

func TestLoadFile(t *testing.T) {
	t.Run("missing path degrades to empty table", func(t *testing.T) {
		table, err := LoadFile("")
		require.NoError(t, err)
		assert.Equal(t, 0, table.Len())

		table, err = LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, 0, table.Len())
	})

	t.Run("parses yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		content := `
rules:
  - pattern: "grocery"
    action: store_memory
    category: general
  - pattern: "what links"
    action: recall_memory
    category: link
persons:
  ravi: work
work_topics:
  - standup
keywords:
  high_priority:
    - landlord
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		table, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 2, table.Len())

		r, ok := table.Match("what links did I save")
		require.True(t, ok)
		assert.Equal(t, ActionRecall, r.Action)
		assert.Equal(t, "link", r.Category)

		assert.Equal(t, []string{"landlord"}, table.Keywords().HighPriority)
	})

	t.Run("rejects bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("rules: [pattern"), 0o644))
		_, err := LoadFile(path)
		require.Error(t, err)
	})
}
