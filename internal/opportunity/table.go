// Package opportunity turns free text into scored opportunity candidates.
//
// Classification is table driven: every Category maps to a MatcherSet of
// ordered regex patterns, a detail extractor and base scores. Adding a
// category means adding a table row; Extract never changes.
package opportunity

import "regexp"

// Category is the detection category of a candidate.
type Category string

// Detection categories
const (
	Funding        Category = "funding"
	Budget         Category = "budget"
	Expansion      Category = "expansion"
	Timing         Category = "timing"
	DecisionMakers Category = "decision_makers"
	Competitive    Category = "competitive"
	Urgency        Category = "urgency"

	// Opportunity is emitted only by the hesitation heuristic.
	Opportunity Category = "opportunity"
)

// CategoryOrder is the fixed evaluation order of the default table.
var CategoryOrder = []Category{
	Funding,
	Budget,
	Expansion,
	Timing,
	DecisionMakers,
	Competitive,
	Urgency,
}

// Default score for any dimension the base table leaves unspecified.
const defaultScore = 0.5

// Scores holds the four scoring dimensions of a candidate.
type Scores struct {
	Importance float64
	Urgency    float64
	Relevance  float64
	Confidence float64
}

// DetailExtractor pulls structured fields from the full input text.
type DetailExtractor func(text string) Details

// MatcherSet is one row of the classification table.
type MatcherSet struct {
	Patterns []*regexp.Regexp
	Details  DetailExtractor
	Base     Scores
}

// Table maps each category to its matchers.
type Table map[Category]MatcherSet

// base fills unspecified dimensions with the default score.
func base(importance, urgency, confidence float64) Scores {
	s := Scores{Importance: defaultScore, Urgency: defaultScore, Relevance: defaultScore, Confidence: confidence}
	if importance > 0 {
		s.Importance = importance
	}
	if urgency > 0 {
		s.Urgency = urgency
	}
	return s
}

// DefaultTable returns the built-in classification table.
func DefaultTable() Table {
	return Table{
		Funding: {
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\braising\s+(?:a\s+)?\$?[\d.,]+\s*(?:million|billion|[kmb]\b)?`),
				regexp.MustCompile(`(?i)\b(?:series\s+[a-e]|seed|pre-seed)\s+(?:round|funding|raise)\b`),
				regexp.MustCompile(`(?i)\b(?:funding|investment)\s+round\b`),
				regexp.MustCompile(`(?i)\b(?:just\s+)?(?:raised|closed)\s+(?:a\s+)?\$[\d.,]+\s*(?:million|billion|[kmb]\b)?`),
				regexp.MustCompile(`(?i)\b(?:new|lead)\s+investors?\b`),
			},
			Details: fundingDetails,
			Base:    base(0.9, 0, 0.8),
		},
		Budget: {
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\bbudget\s+(?:of|is|for)\s+\$?[\d.,]+\s*(?:million|billion|[kmb]\b)?`),
				regexp.MustCompile(`(?i)\b(?:approved|allocated|set aside)\s+(?:a\s+)?budget\b`),
				regexp.MustCompile(`(?i)\bbudget\s+(?:was\s+|has been\s+)?(?:approved|allocated|signed off)\b`),
				regexp.MustCompile(`(?i)\b(?:have|has|got)\s+(?:the\s+)?budget\b`),
			},
			Details: budgetDetails,
			Base:    base(0.8, 0, 0.7),
		},
		Expansion: {
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\bhiring\s+(?:\d+\s+)?(?:more\s+|new\s+)?(?:engineers|developers|people|sales\s*(?:reps|people)|staff|employees)\b`),
				regexp.MustCompile(`(?i)\b(?:expanding|expansion)\s+(?:in)?to\b`),
				regexp.MustCompile(`(?i)\bopening\s+(?:a\s+)?new\s+(?:office|location|region|market)\b`),
				regexp.MustCompile(`(?i)\b(?:growing|doubling|scaling)\s+(?:the\s+|our\s+)?team\b`),
			},
			Details: expansionDetails,
			Base:    base(0.7, 0, 0.6),
		},
		Timing: {
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(?:end|close)\s+of\s+(?:the\s+)?(?:quarter|year|fiscal year)\b`),
				regexp.MustCompile(`(?i)\bnext\s+(?:quarter|fiscal year|budget cycle)\b`),
				regexp.MustCompile(`(?i)\bq[1-4]\s+(?:planning|budget|kickoff|close)\b`),
				regexp.MustCompile(`(?i)\b(?:renewal|contract)\s+(?:is\s+)?(?:up|expires|ends)\b`),
			},
			Details: timingDetails,
			Base:    base(0, 0.8, 0.7),
		},
		DecisionMakers: {
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`\b(?:CEO|CTO|CFO|COO|CRO|CMO)\b`),
				regexp.MustCompile(`(?i)\b(?:VP|vice president|head|director)\s+of\s+[a-z]+`),
				regexp.MustCompile(`(?i)\b(?:decision[- ]maker|final say|signs? off|sign-off)\b`),
				regexp.MustCompile(`(?i)\b(?:co-)?founder\b`),
			},
			Details: decisionMakerDetails,
			Base:    base(0.9, 0, 0.8),
		},
		Competitive: {
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\b(?:switching|moving|migrating)\s+(?:away\s+)?from\s+[\w.-]+`),
				regexp.MustCompile(`(?i)\b(?:unhappy|frustrated|fed up)\s+with\s+[\w.-]+`),
				regexp.MustCompile(`(?i)\bevaluating\s+(?:alternatives|vendors|options|competitors)\b`),
				regexp.MustCompile(`(?i)\bcompetitors?\b`),
			},
			Details: competitiveDetails,
			Base:    base(0.8, 0, 0.7),
		},
		Urgency: {
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\burgent(?:ly)?\b`),
				regexp.MustCompile(`(?i)\b(?:asap|immediately|right away)\b`),
				regexp.MustCompile(`(?i)\b(?:hard\s+)?deadline\b`),
				regexp.MustCompile(`(?i)\bby\s+(?:eod|end of day|tomorrow|tonight)\b`),
			},
			Details: urgencyDetails,
			Base:    base(0, 0.9, 0.8),
		},
	}
}
