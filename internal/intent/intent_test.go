package intent

import (
	"testing"

	"github.com/remembot/remembot/internal/rules"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(rules.Empty(), 0)

	tests := []struct {
		name string
		text string
		want Intent
	}{
		{"date question", "What is the date today?", DateTimeQuery},
		{"time question", "What is the time now", DateTimeQuery},
		{"reminder with date word wins over datetime", "remind me today", AddReminder},
		{"reminder add", "Remind me to pay rent on 5 Jan", AddReminder},
		{"reminder add explicit", "add reminder: dentist on 14 Feb", AddReminder},
		{"reminder list", "any reminders this week", ListReminders},
		{"reminder list question form", "what reminders do I have", ListReminders},
		{"pending query", "anything pending?", PendingQuery},
		{"issues query", "any open issues", PendingQuery},
		{"recall question word", "When did I go to the dentist", Recall},
		{"recall question mark", "dentist visit?", Recall},
		{"agenda statement is not recall", "What do I have to finish this week", Store},
		{"fact statement", "I went to the dentist yesterday", Store},
		{"task statement", "I have to call Ravi about the invoice", Store},
		{"url", "https://go.dev/blog/slices", Store},
		{"long unmatched text stored by default", "dinner at the beach", Store},
		{"short unmatched text", "hey", SmallTalk},
		{"very short text", "ok", SmallTalk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			if got.Intent != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.text, got.Intent, tt.want)
			}
		})
	}
}

func TestClassifyLastN(t *testing.T) {
	c := NewClassifier(rules.Empty(), 0)

	got := c.Classify("show me my last 3 links")
	if got.Intent != Recall {
		t.Fatalf("intent = %v, want Recall", got.Intent)
	}
	if got.Limit != 3 {
		t.Errorf("limit = %d, want 3", got.Limit)
	}

	// Without an explicit count the limit stays unset and the engine
	// default applies.
	got = c.Classify("show me my links")
	if got.Limit != 0 {
		t.Errorf("limit = %d, want 0", got.Limit)
	}
}

func TestClassifyRuleTable(t *testing.T) {
	table, err := rules.New(rules.File{Rules: []rules.Rule{
		{Pattern: "grocery", Action: rules.ActionRecall, Category: "general"},
		{Pattern: "expense", Action: rules.ActionStore, Category: "work"},
	}})
	if err != nil {
		t.Fatal(err)
	}
	c := NewClassifier(table, 0)

	got := c.Classify("grocery items from the market")
	if got.Intent != Recall {
		t.Errorf("recall rule: intent = %v, want Recall", got.Intent)
	}
	if got.Rule == nil || got.Rule.Pattern != "grocery" {
		t.Errorf("recall rule: rule = %+v, want grocery", got.Rule)
	}

	got = c.Classify("logged a new expense entry")
	if got.Intent != Store {
		t.Errorf("store rule: intent = %v, want Store", got.Intent)
	}
	if got.Rule == nil || got.Rule.Category != "work" {
		t.Errorf("store rule: rule = %+v, want category work", got.Rule)
	}
}

func TestClassifyIsPure(t *testing.T) {
	c := NewClassifier(rules.Empty(), 0)
	for _, text := range []string{"What is the time now", "I went home", "hey"} {
		first := c.Classify(text)
		second := c.Classify(text)
		if first.Intent != second.Intent || first.Limit != second.Limit {
			t.Errorf("Classify(%q) not idempotent: %+v then %+v", text, first, second)
		}
	}
}
