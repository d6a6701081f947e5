// Package assistant orchestrates one inbound message end to end:
// classify, then either answer from the clock, manage reminders, recall
// prior records, or categorize and store the message. Every external call
// runs under a timeout with a single bounded retry, and every failure
// path degrades to a user-visible reply rather than an error.
package assistant

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/remembot/remembot/internal/categorize"
	"github.com/remembot/remembot/internal/clock"
	"github.com/remembot/remembot/internal/intent"
	"github.com/remembot/remembot/internal/memory"
	"github.com/remembot/remembot/internal/recall"
	"github.com/remembot/remembot/internal/rules"
)

// Completer provides the prompted completion capability used for answer
// synthesis. A nil Completer falls back to plain record listings.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Canned replies.
const (
	replyNoted          = "Noted."
	replyNoRecord       = "I don’t have any record of that yet."
	replyRecallHeader   = "Here’s what I have:"
	replySaveFailed     = "Sorry, I couldn’t save that just now. Please try again."
	replyReminderFailed = "Sorry, I couldn’t save that reminder. Please try again."
	replyListFailed     = "Sorry, I couldn’t fetch your reminders right now."
	replyClarifyDate    = "I couldn’t work out a date from that. When should I remind you?"
	replyNoReminders    = "You have no upcoming reminders."
	replySmallTalk      = "I can remember things for you. Tell me a fact and I’ll keep it, ask me about it later, or say “remind me” with a date."
)

const answerSystemPrompt = `You answer questions about the user's own saved notes, using only the records provided. Each record carries the time it was saved and may be marked as a correction. When records conflict, trust the most recent one; corrections supersede the records they correct. Never present two conflicting answers. If the records do not answer the question, say you have no record of it. Keep replies to a sentence or two.`

// Correction trigger words. Matched on word boundaries so "on" does not
// fire inside "monday".
var correctionTriggers = []string{"was", "actually", "not", "instead", "on"}

// DefaultCallTimeout bounds each external capability call.
const DefaultCallTimeout = 10 * time.Second

// Config wires an Assistant. Store, Engine, Classifier and Categorizer
// are required; Embedder, Completer and Clock are optional.
type Config struct {
	Store       memory.Store
	Engine      *recall.Engine
	Classifier  *intent.Classifier
	Categorizer *categorize.Categorizer
	Embedder    recall.Embedder
	Completer   Completer
	Clock       clock.Clock
	CallTimeout time.Duration
	Logger      zerolog.Logger
}

// Assistant is the decision-and-recall engine. Each HandleMessage call is
// an independent request-response unit; the only cross-request state is
// the per-owner lock that serializes messages from the same owner, so a
// recall never races ahead of a concurrent store.
type Assistant struct {
	store       memory.Store
	engine      *recall.Engine
	classifier  *intent.Classifier
	categorizer *categorize.Categorizer
	embedder    recall.Embedder
	completer   Completer
	clk         clock.Clock
	timeout     time.Duration
	log         zerolog.Logger

	mu     sync.Mutex
	owners map[string]*sync.Mutex
}

// New builds an Assistant from cfg, applying defaults for the clock and
// call timeout.
func New(cfg Config) *Assistant {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.System()
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Assistant{
		store:       cfg.Store,
		engine:      cfg.Engine,
		classifier:  cfg.Classifier,
		categorizer: cfg.Categorizer,
		embedder:    cfg.Embedder,
		completer:   cfg.Completer,
		clk:         clk,
		timeout:     timeout,
		log:         cfg.Logger,
		owners:      make(map[string]*sync.Mutex),
	}
}

// ownerLock returns the mutex serializing one owner's message stream.
func (a *Assistant) ownerLock(owner string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.owners[owner]
	if !ok {
		l = &sync.Mutex{}
		a.owners[owner] = l
	}
	return l
}

// HandleMessage processes one inbound message and returns the reply text.
// An empty return means nothing should be sent.
func (a *Assistant) HandleMessage(ctx context.Context, chatID int64, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	owner := strconv.FormatInt(chatID, 10)

	l := a.ownerLock(owner)
	l.Lock()
	defer l.Unlock()

	res := a.classifier.Classify(text)
	a.log.Debug().Int64("chat_id", chatID).Str("intent", res.Intent.String()).Msg("classified message")

	switch res.Intent {
	case intent.DateTimeQuery:
		return a.dateTimeReply(text)
	case intent.AddReminder:
		return a.addReminder(ctx, owner, text)
	case intent.ListReminders:
		return a.listReminders(ctx, owner)
	case intent.PendingQuery:
		return a.pending(ctx, owner, text, res.Limit)
	case intent.Recall:
		return a.answer(ctx, owner, text, res.Limit)
	case intent.Store:
		return a.storeFact(ctx, owner, text, res.Rule)
	default:
		return replySmallTalk
	}
}

// dateTimeReply answers date/time questions from the clock alone; no
// external capability and no persistence.
func (a *Assistant) dateTimeReply(text string) string {
	t := memory.Normalize(text)
	now := a.clk.Now()
	if strings.Contains(t, "date") {
		return clock.DateReply(now)
	}
	if strings.Contains(t, "time") || containsWord(t, "now") {
		return clock.TimeReply(now)
	}
	return clock.DateReply(now)
}

func (a *Assistant) addReminder(ctx context.Context, owner, text string) string {
	due, err := a.resolveDueDate(text)
	if err != nil {
		return replyClarifyDate
	}

	rem := &memory.Reminder{
		Owner:     owner,
		Title:     text,
		DueDate:   due,
		CreatedAt: a.clk.Now().UTC(),
	}
	err = a.do(ctx, "insert reminder", func(c context.Context) error {
		return a.store.InsertReminder(c, rem)
	})
	if err != nil {
		a.log.Error().Err(err).Str("owner", owner).Msg("reminder insert failed")
		return replyReminderFailed
	}
	return fmt.Sprintf("Reminder added for %s.", clock.DueDate(due))
}

// resolveDueDate recognizes a calendar date in the reminder text.
func (a *Assistant) resolveDueDate(text string) (time.Time, error) {
	due, ok := clock.ParseDueDate(text, a.clk.Now())
	if !ok {
		return time.Time{}, ErrUnresolvableDate
	}
	return due, nil
}

func (a *Assistant) listReminders(ctx context.Context, owner string) string {
	rems, err := a.openReminders(ctx, owner)
	if err != nil {
		a.log.Error().Err(err).Str("owner", owner).Msg("reminder listing failed")
		return replyListFailed
	}
	if len(rems) == 0 {
		return replyNoReminders
	}
	return formatReminders(rems)
}

// pending answers a generic "anything pending?" question: open reminders
// if there are any, otherwise a normal recall of the text.
func (a *Assistant) pending(ctx context.Context, owner, text string, limit int) string {
	rems, err := a.openReminders(ctx, owner)
	if err == nil && len(rems) > 0 {
		return formatReminders(rems)
	}
	return a.answer(ctx, owner, text, limit)
}

func (a *Assistant) openReminders(ctx context.Context, owner string) ([]memory.Reminder, error) {
	var rems []memory.Reminder
	err := a.do(ctx, "list reminders", func(c context.Context) error {
		var err error
		rems, err = a.store.ListOpenReminders(c, owner, clock.Today(a.clk.Now()))
		return err
	})
	return rems, err
}

// answer runs recall and synthesizes a reply. A failed search and an
// empty result read the same to the user; only the logs differ.
func (a *Assistant) answer(ctx context.Context, owner, text string, limit int) string {
	var results []memory.Memory
	err := a.do(ctx, "recall", func(c context.Context) error {
		var err error
		results, err = a.engine.Recall(c, owner, text, limit)
		return err
	})
	if err != nil {
		a.log.Warn().Err(err).Str("owner", owner).Msg("recall degraded to empty reply")
		return replyNoRecord
	}
	if len(results) == 0 {
		return replyNoRecord
	}

	if a.completer != nil {
		if reply, err := a.synthesize(ctx, text, results); err == nil {
			return reply
		} else {
			a.log.Warn().Err(err).Msg("answer synthesis failed, listing records instead")
		}
	}
	return formatRecords(results)
}

// synthesize asks the completion capability to answer from the retrieved
// records under the newest-wins instruction.
func (a *Assistant) synthesize(ctx context.Context, query string, records []memory.Memory) (string, error) {
	var b strings.Builder
	b.WriteString(query)
	b.WriteString("\n\nSaved records:\n")
	for _, m := range records {
		b.WriteString("- [")
		b.WriteString(m.CreatedAtHuman)
		b.WriteString("]")
		if m.IsOverride {
			b.WriteString(" (correction)")
		}
		b.WriteString(" ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}

	var reply string
	err := a.do(ctx, "complete", func(c context.Context) error {
		var err error
		reply, err = a.completer.Complete(c, answerSystemPrompt, b.String())
		return err
	})
	return reply, err
}

// storeFact categorizes and persists a declarative message. The record is
// written whole or not at all: if the embedding capability is configured
// but fails, nothing is stored.
func (a *Assistant) storeFact(ctx context.Context, owner, text string, rule *rules.Rule) string {
	cat := a.categorizer.Categorize(text, rule)
	now := a.clk.Now()

	m := &memory.Memory{
		Owner:             owner,
		Content:           text,
		NormalizedContent: memory.Normalize(text),
		Category:          cat.Category,
		Domain:            cat.Domain,
		Priority:          cat.Priority,
		RecordType:        cat.RecordType,
		Links:             cat.Links,
		CreatedAt:         now.UTC(),
		CreatedAtHuman:    clock.Human(now),
		IsOverride:        a.isCorrection(ctx, owner, text),
	}

	if a.embedder != nil {
		var vec []float32
		err := a.do(ctx, "embed", func(c context.Context) error {
			var err error
			vec, err = a.embedder.Embed(c, text)
			return err
		})
		if err != nil {
			a.log.Warn().Err(err).Str("owner", owner).Msg("embedding failed, record not stored")
			return replySaveFailed
		}
		m.Embedding = vec
	}

	err := a.do(ctx, "insert memory", func(c context.Context) error {
		return a.store.InsertMemory(c, m)
	})
	if err != nil {
		a.log.Error().Err(err).Str("owner", owner).Msg("memory insert failed")
		return replySaveFailed
	}
	a.log.Info().Str("owner", owner).Str("category", m.Category).Bool("override", m.IsOverride).Msg("memory stored")
	return replyNoted
}

// isCorrection reports whether text supersedes an earlier record: it must
// carry a correction trigger word and share a topic keyword with at least
// one stored record. The earlier record is never edited; the new one is
// flagged instead.
func (a *Assistant) isCorrection(ctx context.Context, owner, text string) bool {
	t := memory.Normalize(text)
	triggered := false
	for _, w := range correctionTriggers {
		if containsWord(t, w) {
			triggered = true
			break
		}
	}
	if !triggered {
		return false
	}

	keywords := topicKeywords(t)
	for _, kw := range keywords {
		var prior []memory.Memory
		err := a.do(ctx, "correction lookup", func(c context.Context) error {
			var err error
			prior, err = a.store.SearchMemories(c, owner, []string{kw}, 1)
			return err
		})
		if err != nil {
			a.log.Warn().Err(err).Msg("correction lookup failed, storing as plain record")
			return false
		}
		if len(prior) > 0 {
			return true
		}
	}
	return false
}

// topicKeywords is the correction topic probe: content keywords minus the
// correction trigger words themselves, capped to keep lookups bounded.
func topicKeywords(normalized string) []string {
	var out []string
	for _, kw := range recall.ExtractKeywords(normalized) {
		trigger := false
		for _, w := range correctionTriggers {
			if kw == w {
				trigger = true
				break
			}
		}
		if !trigger {
			out = append(out, kw)
		}
		if len(out) == 5 {
			break
		}
	}
	return out
}

// do runs one external call under the call timeout with a single bounded
// retry on failure.
func (a *Assistant) do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempt := func() error {
		cctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		return fn(cctx)
	}

	err := attempt()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return &TransientError{Op: op, Err: err}
	}
	a.log.Debug().Err(err).Str("op", op).Msg("retrying after failure")
	if err = attempt(); err != nil {
		return &TransientError{Op: op, Err: err}
	}
	return nil
}

func formatRecords(records []memory.Memory) string {
	var b strings.Builder
	b.WriteString(replyRecallHeader)
	for _, m := range records {
		fmt.Fprintf(&b, "\n- %s: %s", m.CreatedAtHuman, m.Content)
	}
	return b.String()
}

func formatReminders(rems []memory.Reminder) string {
	var b strings.Builder
	b.WriteString("Here are your upcoming reminders:")
	for _, r := range rems {
		fmt.Fprintf(&b, "\n- %s: %s", clock.DueDate(r.DueDate), r.Title)
	}
	return b.String()
}

func containsWord(normalized, word string) bool {
	for _, w := range strings.Fields(normalized) {
		if strings.Trim(w, ".,!?;:") == word {
			return true
		}
	}
	return false
}
