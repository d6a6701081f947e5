// Package rules holds the configuration-driven rule table: ordered
// pattern rules for store/recall routing, person and work-topic mappings,
// keyword extensions for the categorizer, and free-form preferences.
// A Table is loaded once at startup and is read-only afterwards.
package rules

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action is what a matched rule forces the engine to do with a message.
type Action string

const (
	ActionStore  Action = "store_memory"
	ActionRecall Action = "recall_memory"
)

// CategoryAuto leaves category resolution to the categorizer.
const CategoryAuto = "auto"

// Rule maps a case-insensitive substring pattern to an action and an
// optional concrete category. Rules are evaluated in configured order;
// the first match wins.
type Rule struct {
	Pattern  string `yaml:"pattern"`
	Action   Action `yaml:"action"`
	Category string `yaml:"category"`
}

// Keywords extends the categorizer's built-in keyword sets.
type Keywords struct {
	HighPriority []string `yaml:"high_priority"`
	Sensitive    []string `yaml:"sensitive"`
	Work         []string `yaml:"work"`
}

// File is the on-disk YAML shape of a rule table.
type File struct {
	Rules       []Rule            `yaml:"rules"`
	Persons     map[string]string `yaml:"persons"` // name -> domain
	WorkTopics  []string          `yaml:"work_topics"`
	Keywords    Keywords          `yaml:"keywords"`
	Preferences map[string]string `yaml:"preferences"`
}

type person struct {
	name, domain string
}

// Table is the loaded, normalized rule set.
type Table struct {
	rules      []Rule
	persons    []person // sorted by name so lookups are deterministic
	workTopics []string
	keywords   Keywords
	prefs      map[string]string
}

// Empty returns a table with no rules or mappings. The categorizer falls
// back to its hard-coded defaults when every lookup misses.
func Empty() *Table {
	return &Table{prefs: map[string]string{}}
}

// New builds a table from a parsed file, lowercasing all patterns and keys.
func New(f File) (*Table, error) {
	t := Empty()
	for i, r := range f.Rules {
		if r.Action != ActionStore && r.Action != ActionRecall {
			return nil, fmt.Errorf("rule %d (%q): unknown action %q", i, r.Pattern, r.Action)
		}
		if strings.TrimSpace(r.Pattern) == "" {
			return nil, fmt.Errorf("rule %d: empty pattern", i)
		}
		if r.Category == "" {
			r.Category = CategoryAuto
		}
		r.Pattern = strings.ToLower(r.Pattern)
		t.rules = append(t.rules, r)
	}
	for name, domain := range f.Persons {
		t.persons = append(t.persons, person{name: strings.ToLower(name), domain: strings.ToLower(domain)})
	}
	sort.Slice(t.persons, func(i, j int) bool { return t.persons[i].name < t.persons[j].name })
	for _, topic := range f.WorkTopics {
		t.workTopics = append(t.workTopics, strings.ToLower(topic))
	}
	t.keywords = Keywords{
		HighPriority: lowerAll(f.Keywords.HighPriority),
		Sensitive:    lowerAll(f.Keywords.Sensitive),
		Work:         lowerAll(f.Keywords.Work),
	}
	for k, v := range f.Preferences {
		t.prefs[k] = v
	}
	return t, nil
}

// LoadFile reads a YAML rule file. An empty path or a missing file degrades
// to an empty table rather than an error.
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return Empty(), nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return New(f)
}

// Match returns the first rule whose pattern occurs in text.
func (t *Table) Match(text string) (Rule, bool) {
	lower := strings.ToLower(text)
	for _, r := range t.rules {
		if strings.Contains(lower, r.Pattern) {
			return r, true
		}
	}
	return Rule{}, false
}

// PersonDomain looks up the domain of the first configured person named in
// text.
func (t *Table) PersonDomain(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range t.persons {
		if strings.Contains(lower, p.name) {
			return p.domain, true
		}
	}
	return "", false
}

// HasWorkTopic reports whether text mentions a configured work topic.
func (t *Table) HasWorkTopic(text string) bool {
	lower := strings.ToLower(text)
	for _, topic := range t.workTopics {
		if strings.Contains(lower, topic) {
			return true
		}
	}
	return false
}

// Keywords returns the configured keyword extensions.
func (t *Table) Keywords() Keywords { return t.keywords }

// Preference returns a behavior preference by key.
func (t *Table) Preference(key string) (string, bool) {
	v, ok := t.prefs[key]
	return v, ok
}

// Len reports how many pattern rules are loaded.
func (t *Table) Len() int { return len(t.rules) }

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}
