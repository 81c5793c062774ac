package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strings"

	"golang.org/x/net/html"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/dedup"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/opportunity"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/sticky"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// Normalize strips markup, collapses whitespace and trims content. Text and
// entity content is kept; script and style bodies are dropped.
func Normalize(content string) string {
	if !strings.ContainsAny(content, "<&") {
		return strings.Join(strings.Fields(content), " ")
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(content))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				log.Printf("engine: normalize: %v", z.Err())
			}
			return strings.Join(strings.Fields(b.String()), " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawTag(name) {
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawTag(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func isRawTag(name []byte) bool {
	n := string(name)
	return n == "script" || n == "style"
}

// ProcessInput runs one input through the pipeline. Re-processing the same
// (source type, source id, content) is a no-op that reports
// already_processed; concurrent calls for the same source yield exactly one
// winner.
func (e *Engine) ProcessInput(ctx context.Context, in Input) (*Result, error) {
	if in.SourceType == "" || in.SourceID == "" {
		return nil, fmt.Errorf("%w: source type and source id are required", storage.ErrInvalidInput)
	}

	content := Normalize(in.Content)
	hash := dedup.Hash(content)

	claim, err := e.guard.Claim(ctx, in.SourceType, in.SourceID, hash)
	if err != nil {
		return nil, err
	}
	if !claim.Won {
		return &Result{Processed: false, Reason: ReasonAlreadyProcessed, Stickies: []*types.StickyNote{}}, nil
	}

	// Memory notifications wait for the ledger row so that a run that is
	// rolled back announces nothing.
	pctx, stored := e.memory.Defer(ctx)
	res, err := e.process(pctx, in, content)
	if err == nil {
		err = e.guard.Record(ctx, in.SourceType, in.SourceID, hash, res.StickyCount)
	}
	if err != nil {
		stored.Discard()
		if rerr := e.guard.Release(context.WithoutCancel(ctx), claim); rerr != nil {
			log.Printf("engine: failed to release claim on %s/%s: %v", in.SourceType, in.SourceID, rerr)
		}
		return nil, err
	}

	stored.Flush()
	if res.StickyCount > 0 {
		log.Printf("engine: %d sticky notes from %s/%s", res.StickyCount, in.SourceType, in.SourceID)
		e.emitStickiesGenerated(StickiesGenerated{
			SourceType:  in.SourceType,
			SourceID:    in.SourceID,
			StickyCount: res.StickyCount,
			Stickies:    res.Stickies,
		})
	}
	return res, nil
}

func (e *Engine) process(ctx context.Context, in Input, content string) (*Result, error) {
	hints := hintsFrom(in.Metadata)

	var accepted []opportunity.Candidate
	for _, c := range e.extractor.Extract(content, hints) {
		c := c
		e.adjuster.Adjust(ctx, &c, opportunity.Context{Company: hints.Company, ContactEmail: hints.ContactEmail})
		if e.adjuster.Accept(c) {
			accepted = append(accepted, c)
		}
	}

	notes := []*types.StickyNote{}
	if len(accepted) > 0 {
		created, err := e.stickies.Create(ctx, sticky.Source{Type: in.SourceType, ID: in.SourceID, Content: content}, accepted)
		if err != nil {
			return nil, err
		}
		notes = created
	}

	res := &Result{Processed: len(notes) > 0, StickyCount: len(notes), Stickies: notes}
	if len(notes) == 0 {
		res.Reason = ReasonNoOpportunities
	}
	if content == "" {
		return res, nil
	}

	meta := make(map[string]interface{}, len(in.Metadata)+3)
	for k, v := range in.Metadata {
		meta[k] = v
	}
	meta["source_type"] = in.SourceType
	meta["source_id"] = in.SourceID
	meta["sticky_count"] = len(notes)

	inputID, err := e.memory.StoreMemory(ctx, content, inputCategory(in.SourceType, notes), inputLevel(notes), meta)
	if err != nil {
		return nil, fmt.Errorf("store input memory: %w", err)
	}
	res.MemoryID = inputID

	for _, note := range notes {
		level := types.ImportanceHigh
		if note.Category == types.CategoryUrgent {
			level = types.ImportanceCritical
		}
		memID, err := e.memory.StoreMemory(ctx, note.ExtractedText, string(note.Category), level, map[string]interface{}{
			"sticky_id":   note.ID,
			"source_type": in.SourceType,
			"source_id":   in.SourceID,
			"confidence":  note.ConfidenceScore,
		})
		if err != nil {
			return nil, fmt.Errorf("store sticky memory: %w", err)
		}
		if err := e.stickies.LinkMemory(ctx, note.ID, memID); err != nil {
			return nil, err
		}
		note.MemoryID = memID

		strength := math.Min(note.ConfidenceScore, 1)
		if err := e.memory.Relate(ctx, inputID, memID, types.RelationDerivedOpportunity, strength); err != nil {
			if !errors.Is(err, storage.ErrInvalidInput) {
				return nil, err
			}
			log.Printf("engine: skipped relationship %s -> %s: %v", inputID, memID, err)
		}
	}
	return res, nil
}

// inputCategory files the raw input: business when it produced notes,
// customer for correspondence, general otherwise.
func inputCategory(sourceType string, notes []*types.StickyNote) string {
	if len(notes) > 0 {
		return types.MemoryCategoryBusiness
	}
	if sourceType == "email" || strings.HasPrefix(sourceType, "crm") {
		return types.MemoryCategoryCustomer
	}
	return types.MemoryCategoryGeneral
}

func inputLevel(notes []*types.StickyNote) int {
	if len(notes) == 0 {
		return types.ImportanceLow
	}
	for _, n := range notes {
		if n.Category == types.CategoryUrgent || n.ImportanceScore > 0.8 {
			return types.ImportanceHigh
		}
	}
	return types.ImportanceMedium
}

func hintsFrom(meta map[string]interface{}) opportunity.Hints {
	str := func(key string) string {
		if v, ok := meta[key].(string); ok {
			return strings.TrimSpace(v)
		}
		return ""
	}
	return opportunity.Hints{
		Company:      str(MetaCompany),
		ContactEmail: str(MetaContactEmail),
		ContactName:  str(MetaContactName),
	}
}
