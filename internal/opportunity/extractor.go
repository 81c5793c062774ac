package opportunity

import (
	"log"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Candidate is a detected opportunity before it is accepted as a sticky note.
type Candidate struct {
	Category Category `json:"category"`
	Matched  string   `json:"matched"`
	Context  string   `json:"context"`
	Details  Details  `json:"details"`

	Importance float64 `json:"importance"`
	Urgency    float64 `json:"urgency"`
	Relevance  float64 `json:"relevance"`
	Confidence float64 `json:"confidence"`
}

// Hints carries caller-supplied facts that take precedence over text extraction.
type Hints struct {
	Company      string
	ContactEmail string
	ContactName  string
}

func (h Hints) details() Details {
	return Details{
		Company:          h.Company,
		ContactEmail:     h.ContactEmail,
		CounterpartyName: h.ContactName,
	}
}

const (
	// contextRadius is the window kept around a regular pattern match.
	contextRadius = 100

	// hesitationRadius is the window kept around a hesitation marker.
	hesitationRadius = 200

	hesitationConfidence = 0.6
	hesitationImportance = 0.6
)

// DefaultHesitationMarker signals an uncertain but promising remark.
const DefaultHesitationMarker = "hmmm"

// DefaultPositivePhrases must follow the marker for the heuristic to fire.
var DefaultPositivePhrases = []string{
	"might be interesting",
	"worth looking into",
	"could be something",
	"worth exploring",
	"keep an eye on",
	"potential",
}

// Extractor applies a classification table and the hesitation heuristic.
type Extractor struct {
	table   Table
	order   []Category
	marker  *regexp.Regexp
	phrases []string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTable replaces the classification table. Categories are evaluated in
// CategoryOrder first, then any extra categories in the given order.
func WithTable(t Table, extra ...Category) Option {
	return func(e *Extractor) {
		e.table = t
		e.order = append(append([]Category{}, CategoryOrder...), extra...)
	}
}

// WithHesitation overrides the hesitation marker and positive phrases.
// Empty values keep the defaults.
func WithHesitation(marker string, phrases []string) Option {
	return func(e *Extractor) {
		if marker != "" {
			e.marker = markerPattern(marker)
		}
		if len(phrases) > 0 {
			e.phrases = lowerAll(phrases)
		}
	}
}

// NewExtractor returns an extractor using the default table and vocabulary.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		table:   DefaultTable(),
		order:   CategoryOrder,
		marker:  markerPattern(DefaultHesitationMarker),
		phrases: lowerAll(DefaultPositivePhrases),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// markerPattern matches the marker case-insensitively, allowing its last
// letter to repeat ("hmmm", "hmmmmm").
func markerPattern(marker string) *regexp.Regexp {
	last, _ := utf8.DecodeLastRuneInString(marker)
	tail := regexp.QuoteMeta(string(last)) + "*"
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(marker) + tail + `\b`)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Extract returns every candidate found in text. Empty text yields none.
// A category whose evaluation panics is logged and skipped.
func (e *Extractor) Extract(text string, hints Hints) []Candidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []Candidate
	for _, cat := range e.order {
		set, ok := e.table[cat]
		if !ok {
			continue
		}
		out = append(out, e.evaluate(cat, set, text, hints)...)
	}

	if c, ok := e.hesitation(text, hints); ok {
		out = append(out, c)
	}
	return out
}

// evaluate runs one table row. Overlapping matches within the category
// collapse into the first one.
func (e *Extractor) evaluate(cat Category, set MatcherSet, text string, hints Hints) (found []Candidate) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("opportunity: skipping category %s after panic: %v", cat, r)
			found = nil
		}
	}()

	var (
		spans   [][2]int
		details Details
		haveDet bool
	)
	for _, re := range set.Patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if overlaps(spans, loc[0], loc[1]) {
				continue
			}
			spans = append(spans, [2]int{loc[0], loc[1]})

			if !haveDet {
				details = hints.details()
				if set.Details != nil {
					details = details.merge(set.Details(text))
				}
				haveDet = true
			}

			found = append(found, Candidate{
				Category:   cat,
				Matched:    strings.TrimSpace(text[loc[0]:loc[1]]),
				Context:    window(text, loc[0], loc[1], contextRadius),
				Details:    details,
				Importance: set.Base.Importance,
				Urgency:    set.Base.Urgency,
				Relevance:  set.Base.Relevance,
				Confidence: set.Base.Confidence,
			})
		}
	}
	return found
}

// hesitation looks for the marker followed anywhere later by a positive phrase.
func (e *Extractor) hesitation(text string, hints Hints) (Candidate, bool) {
	for _, loc := range e.marker.FindAllStringIndex(text, -1) {
		rest := strings.ToLower(text[loc[1]:])
		for _, phrase := range e.phrases {
			if !strings.Contains(rest, phrase) {
				continue
			}
			return Candidate{
				Category:   Opportunity,
				Matched:    text[loc[0]:loc[1]],
				Context:    window(text, loc[0], loc[1], hesitationRadius),
				Details:    hints.details().merge(commonDetails(text)),
				Importance: hesitationImportance,
				Urgency:    defaultScore,
				Relevance:  defaultScore,
				Confidence: hesitationConfidence,
			}, true
		}
	}
	return Candidate{}, false
}

func overlaps(spans [][2]int, start, end int) bool {
	for _, s := range spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}

// window returns text[start-radius : end+radius], clamped to the string and
// widened to rune boundaries.
func window(text string, start, end, radius int) string {
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return strings.TrimSpace(text[lo:hi])
}
