// Package intent maps raw message text to one of the assistant's fixed
// intents. Classification is a pure function of the text and the loaded
// rule table: the same input always yields the same result.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/remembot/remembot/internal/memory"
	"github.com/remembot/remembot/internal/rules"
)

// Intent is the classified purpose of an inbound message.
type Intent int

const (
	SmallTalk Intent = iota
	DateTimeQuery
	AddReminder
	ListReminders
	PendingQuery
	Recall
	Store
)

func (i Intent) String() string {
	switch i {
	case DateTimeQuery:
		return "datetime_query"
	case AddReminder:
		return "add_reminder"
	case ListReminders:
		return "list_reminders"
	case PendingQuery:
		return "pending_query"
	case Recall:
		return "recall"
	case Store:
		return "store"
	default:
		return "small_talk"
	}
}

// Result carries the classified intent, the explicit rule that fired (if
// any), and an explicit "last N" result count (0 when absent).
type Result struct {
	Intent Intent
	Rule   *rules.Rule
	Limit  int
}

// Trigger sets, checked in the precedence order of Classify. All matching
// is against normalized (lowercased, whitespace-collapsed) text.
var (
	dateTimeTriggers     = []string{"date", "today", "time", "now"}
	reminderAddTriggers  = []string{"remind me", "add reminder", "set reminder"}
	reminderListTriggers = []string{"upcoming reminders", "pending reminders", "what reminders", "any reminders"}
	pendingTriggers      = []string{"pending", "to-do", "todo", "issues", "problems"}
	questionTriggers     = []string{"when", "what", "did i", "do i have", "tell me", "show me", "?"}
	agendaTriggers       = []string{"i have to", "need to", "follow up"}
	storeTriggers        = []string{"i had", "i went", "i have to", "need to", "follow up", "meeting", "must", "pay", "renew", "call", "remember"}
)

var (
	lastNRe = regexp.MustCompile(`\blast (\d+)\b`)
	urlRe   = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
)

// DefaultMinStoreLength is the shortest normalized text stored by default
// when no other intent matches.
const DefaultMinStoreLength = 6

// Classifier resolves intents with a fixed trigger precedence plus the
// configured rule table.
type Classifier struct {
	table       *rules.Table
	minStoreLen int
}

// NewClassifier builds a classifier over the given rule table.
func NewClassifier(table *rules.Table, minStoreLen int) *Classifier {
	if table == nil {
		table = rules.Empty()
	}
	if minStoreLen <= 0 {
		minStoreLen = DefaultMinStoreLength
	}
	return &Classifier{table: table, minStoreLen: minStoreLen}
}

// Classify resolves text to an intent. Precedence, first match wins:
// date/time query, add reminder, list reminders, pending query, explicit
// rule, recall, store, small talk. Reminder triggers are checked before
// the date/time words they may embed, so "remind me today" is a reminder,
// not a clock query.
func (c *Classifier) Classify(text string) Result {
	t := memory.Normalize(text)

	hasReminderTrigger := containsAny(t, reminderAddTriggers) || containsAny(t, reminderListTriggers)

	if containsAny(t, dateTimeTriggers) && !hasReminderTrigger {
		return Result{Intent: DateTimeQuery}
	}
	if containsAny(t, reminderAddTriggers) {
		return Result{Intent: AddReminder}
	}
	if containsAny(t, reminderListTriggers) {
		return Result{Intent: ListReminders}
	}
	if containsAny(t, pendingTriggers) {
		return Result{Intent: PendingQuery}
	}

	if r, ok := c.table.Match(t); ok {
		res := Result{Rule: &r, Limit: lastN(t)}
		if r.Action == rules.ActionRecall {
			res.Intent = Recall
		} else {
			res.Intent = Store
		}
		return res
	}

	if n := lastN(t); n > 0 {
		return Result{Intent: Recall, Limit: n}
	}
	if containsAny(t, questionTriggers) && !containsAny(t, agendaTriggers) {
		return Result{Intent: Recall}
	}
	if containsAny(t, storeTriggers) || urlRe.MatchString(t) || len(t) >= c.minStoreLen {
		return Result{Intent: Store}
	}
	return Result{Intent: SmallTalk}
}

func containsAny(t string, triggers []string) bool {
	for _, trigger := range triggers {
		if strings.Contains(t, trigger) {
			return true
		}
	}
	return false
}

func lastN(t string) int {
	m := lastNRe.FindStringSubmatch(t)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
