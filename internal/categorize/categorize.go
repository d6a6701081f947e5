// Package categorize assigns domain, priority, record type, category and
// extracted links to a message. Categorization is pure text-pattern
// evaluation: deterministic, side-effect-free, no external calls.
package categorize

import (
	"regexp"
	"strings"

	"github.com/remembot/remembot/internal/memory"
	"github.com/remembot/remembot/internal/rules"
)

// Result is the metadata attached to a memory record before storage.
type Result struct {
	Domain     memory.Domain
	Priority   memory.Priority
	RecordType memory.RecordType
	Category   string
	Links      []string
}

// Hard-coded fallback keyword sets, extended by the configured rule table.
var (
	defaultHighPriority = []string{"amma", "appa", "mom", "dad", "urgent", "asap", "landlord"}
	defaultSensitive    = []string{"doctor", "dentist", "hospital", "clinic", "medicine", "prescription", "therapy", "insurance"}
	defaultWork         = []string{"meeting", "client", "project", "deadline", "office", "standup", "sprint", "invoice"}
	taskTriggers        = []string{"remember", "remind", "need to", "must", "pay", "renew", "follow up", "call"}
)

var urlRe = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)

// Categorizer evaluates the fixed heuristics plus the configured mappings.
type Categorizer struct {
	table *rules.Table
}

// New builds a categorizer over the given rule table. A nil table behaves
// like an empty one: only the hard-coded defaults fire.
func New(table *rules.Table) *Categorizer {
	if table == nil {
		table = rules.Empty()
	}
	return &Categorizer{table: table}
}

// Categorize resolves metadata for text. matched is the explicit rule the
// classifier fired, if any; a concrete rule category short-circuits
// category resolution. Evaluation order: priority first (independent of
// everything else), then domain (sensitive beats work beats personal),
// then record type with URL detection as the final override, then
// category.
func (c *Categorizer) Categorize(text string, matched *rules.Rule) Result {
	t := memory.Normalize(text)
	kw := c.table.Keywords()

	res := Result{
		Domain:     memory.DomainPersonal,
		Priority:   memory.PriorityNormal,
		RecordType: memory.TypeMemory,
	}

	if containsAny(t, defaultHighPriority) || containsAny(t, kw.HighPriority) {
		res.Priority = memory.PriorityHigh
	}

	personDomain, hasPerson := c.table.PersonDomain(t)
	switch {
	case containsAny(t, defaultSensitive), containsAny(t, kw.Sensitive),
		hasPerson && personDomain == string(memory.DomainSensitive):
		res.Domain = memory.DomainSensitive
	case containsAny(t, defaultWork), containsAny(t, kw.Work), c.table.HasWorkTopic(t),
		hasPerson && personDomain == string(memory.DomainWork):
		res.Domain = memory.DomainWork
	}

	if containsAny(t, taskTriggers) {
		res.RecordType = memory.TypeTask
	}
	if links := urlRe.FindAllString(text, -1); len(links) > 0 {
		res.RecordType = memory.TypeLink
		res.Links = links
	}

	res.Category = c.category(res, matched)
	return res
}

// category resolves the closed-taxonomy category. A concrete rule match
// wins outright; otherwise priority, domain and record type are consulted
// in that order, defaulting to general.
func (c *Categorizer) category(res Result, matched *rules.Rule) string {
	if matched != nil && matched.Category != rules.CategoryAuto && matched.Category != "" {
		return matched.Category
	}
	switch {
	case res.Priority == memory.PriorityHigh:
		return memory.CategoryHighPriority
	case res.Domain == memory.DomainSensitive:
		return memory.CategoryPersonalSecure
	case res.Domain == memory.DomainWork:
		return memory.CategoryWork
	case res.RecordType == memory.TypeLink:
		return memory.CategoryLink
	case res.RecordType == memory.TypeTask:
		return memory.CategoryReminder
	default:
		return memory.CategoryGeneral
	}
}

func containsAny(t string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}
