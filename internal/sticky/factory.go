// Package sticky turns accepted opportunity candidates into persisted sticky
// notes and manages their status lifecycle.
package sticky

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/fingerprint"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/opportunity"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// Follow-up offsets.
const (
	urgentFollowUp    = 2 * 24 * time.Hour
	importantFollowUp = 10 * 24 * time.Hour
	defaultFollowUp   = 21 * 24 * time.Hour

	urgentThreshold    = 0.8
	importantThreshold = 0.8
)

// Source identifies the input a batch of notes was generated from.
type Source struct {
	Type    string
	ID      string
	Content string
}

// Factory creates sticky notes. It is the only writer of sticky note rows.
type Factory struct {
	store     storage.StickyStore
	threshold float64
	now       func() time.Time
}

// Option configures a Factory.
type Option func(*Factory)

// WithThreshold overrides the acceptance threshold.
func WithThreshold(t float64) Option {
	return func(f *Factory) { f.threshold = t }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) { f.now = now }
}

// NewFactory returns a factory writing to store.
func NewFactory(store storage.StickyStore, opts ...Option) *Factory {
	f := &Factory{
		store:     store,
		threshold: opportunity.DefaultAcceptanceThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DisplayCategory picks the note category shown to the user.
func DisplayCategory(c opportunity.Candidate) types.StickyCategory {
	switch {
	case c.Urgency > urgentThreshold:
		return types.CategoryUrgent
	case c.Category == opportunity.Competitive:
		return types.CategoryCompetitive
	case c.Category == opportunity.Timing:
		return types.CategoryTiming
	default:
		return types.CategoryOpportunity
	}
}

// FollowUpDate returns when the user should revisit the note.
func FollowUpDate(c opportunity.Candidate, now time.Time) time.Time {
	switch {
	case c.Urgency > urgentThreshold:
		return now.Add(urgentFollowUp)
	case c.Importance > importantThreshold:
		return now.Add(importantFollowUp)
	default:
		return now.Add(defaultFollowUp)
	}
}

var categoryLabels = map[opportunity.Category]string{
	opportunity.Funding:        "Funding",
	opportunity.Budget:         "Budget",
	opportunity.Expansion:      "Expansion",
	opportunity.Timing:         "Timing",
	opportunity.DecisionMakers: "Decision maker",
	opportunity.Competitive:    "Competitive",
	opportunity.Urgency:        "Urgent",
	opportunity.Opportunity:    "Opportunity",
}

// Summary formats the extracted text of a note: a category label, the
// matched text and any extracted details.
func Summary(c opportunity.Candidate) string {
	label, ok := categoryLabels[c.Category]
	if !ok {
		label = string(c.Category)
	}

	var b strings.Builder
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(c.Matched)

	var parts []string
	add := func(name, v string) {
		if v != "" {
			parts = append(parts, name+": "+v)
		}
	}
	d := c.Details
	add("amount", d.Amount)
	add("timeline", d.Timeline)
	add("contact", d.CounterpartyName)
	add("role", d.CounterpartyRole)
	add("company", d.Company)
	add("email", d.ContactEmail)
	add("team size", d.TeamSize)
	add("competitor", d.Competitor)
	add("deadline", d.Deadline)
	if len(parts) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")")
	}
	return b.String()
}

// Build converts an accepted candidate into a note without persisting it.
func (f *Factory) Build(src Source, c opportunity.Candidate, seq int, now time.Time) (*types.StickyNote, error) {
	if c.Confidence < f.threshold {
		return nil, fmt.Errorf("%w: confidence %.2f below threshold %.2f", storage.ErrInvalidInput, c.Confidence, f.threshold)
	}
	now = now.UTC()
	return &types.StickyNote{
		ID:               fingerprint.StickyID(src.Type, src.ID, fingerprint.Of(src.Content), seq),
		SourceType:       src.Type,
		SourceID:         src.ID,
		OriginalContent:  src.Content,
		ExtractedText:    Summary(c),
		Category:         DisplayCategory(c),
		ImportanceScore:  c.Importance,
		UrgencyScore:     c.Urgency,
		RelevanceScore:   c.Relevance,
		ConfidenceScore:  c.Confidence,
		Amount:           c.Details.Amount,
		Timeline:         c.Details.Timeline,
		CounterpartyName: c.Details.CounterpartyName,
		CounterpartyRole: c.Details.CounterpartyRole,
		Company:          c.Details.Company,
		ContactEmail:     c.Details.ContactEmail,
		Status:           types.StickyActive,
		FollowUpDate:     FollowUpDate(c, now),
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Create persists one note per candidate. Every candidate must already have
// passed the acceptance gate; a candidate below the threshold fails the whole
// call before anything is written.
//
// Note ids are derived from the source and its content, so creating notes
// for content that already has them returns the stored notes instead of
// adding new ones.
func (f *Factory) Create(ctx context.Context, src Source, cands []opportunity.Candidate) ([]*types.StickyNote, error) {
	now := f.now()
	notes := make([]*types.StickyNote, 0, len(cands))
	for i, c := range cands {
		note, err := f.Build(src, c, i, now)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}

	for i, note := range notes {
		created, err := f.store.CreateSticky(ctx, note)
		if err != nil {
			return nil, fmt.Errorf("create sticky %s: %w", note.ID, err)
		}
		if created {
			continue
		}
		existing, err := f.store.GetSticky(ctx, note.ID)
		if err != nil {
			return nil, fmt.Errorf("load existing sticky %s: %w", note.ID, err)
		}
		notes[i] = existing
	}
	return notes, nil
}

// LinkMemory records the parallel memory entry of a note.
func (f *Factory) LinkMemory(ctx context.Context, noteID, memoryID string) error {
	if noteID == "" || memoryID == "" {
		return fmt.Errorf("%w: note and memory ids are required", storage.ErrInvalidInput)
	}
	return f.store.SetStickyMemory(ctx, noteID, memoryID)
}

// MarkActionTaken records that the user acted on the note.
func (f *Factory) MarkActionTaken(ctx context.Context, id string) (*types.StickyNote, error) {
	return f.transition(ctx, id, types.StickyActionTaken)
}

// MarkFalsePositive records that the user rejected the note.
func (f *Factory) MarkFalsePositive(ctx context.Context, id string) (*types.StickyNote, error) {
	return f.transition(ctx, id, types.StickyFalsePositive)
}

func (f *Factory) transition(ctx context.Context, id string, to types.StickyStatus) (*types.StickyNote, error) {
	note, err := f.store.GetSticky(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := types.CheckStickyTransition(note.Status, to); err != nil {
		return nil, err
	}

	at := f.now().UTC()
	if err := f.store.UpdateStickyStatus(ctx, id, note.Status, to, at); err != nil {
		return nil, err
	}
	note.Status = to
	note.UpdatedAt = at
	return note, nil
}

// Get returns a note by id.
func (f *Factory) Get(ctx context.Context, id string) (*types.StickyNote, error) {
	return f.store.GetSticky(ctx, id)
}

// ListActive returns active notes, newest first.
func (f *Factory) ListActive(ctx context.Context, limit int) ([]*types.StickyNote, error) {
	return f.store.ListStickies(ctx, storage.StickyFilter{Status: types.StickyActive, Limit: limit})
}

// ListForSource returns every note generated from one source.
func (f *Factory) ListForSource(ctx context.Context, sourceType, sourceID string) ([]*types.StickyNote, error) {
	return f.store.ListStickies(ctx, storage.StickyFilter{SourceType: sourceType, SourceID: sourceID, Limit: 500})
}
