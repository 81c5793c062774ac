package opportunity

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byCategory(cands []Candidate, cat Category) []Candidate {
	var out []Candidate
	for _, c := range cands {
		if c.Category == cat {
			out = append(out, c)
		}
	}
	return out
}

func TestExtractFundingScenario(t *testing.T) {
	e := NewExtractor()
	cands := e.Extract("We are raising $6M and closing soon", Hints{Company: "BillCo Inc"})

	require.Len(t, cands, 1)
	c := cands[0]
	assert.Equal(t, Funding, c.Category)
	assert.Equal(t, "raising $6M", c.Matched)
	assert.Equal(t, "$6M", c.Details.Amount)
	assert.Equal(t, "BillCo Inc", c.Details.Company)
	assert.Empty(t, c.Details.Timeline, "closing soon is not a timeline")
	assert.Equal(t, 0.9, c.Importance)
	assert.Equal(t, 0.8, c.Confidence)
	assert.Equal(t, 0.5, c.Urgency)
}

func TestExtractNoOpportunity(t *testing.T) {
	e := NewExtractor()
	assert.Empty(t, e.Extract("Let's grab coffee sometime", Hints{}))
	assert.Empty(t, e.Extract("", Hints{Company: "Acme Corp"}))
	assert.Empty(t, e.Extract("   \n\t ", Hints{}))
}

func TestBaseScoreTable(t *testing.T) {
	cases := []struct {
		text                            string
		cat                             Category
		importance, urgency, confidence float64
	}{
		{"we have an approved budget now", Budget, 0.8, 0.5, 0.7},
		{"they are hiring 20 engineers", Expansion, 0.7, 0.5, 0.6},
		{"let's revisit at the end of the quarter", Timing, 0.5, 0.8, 0.7},
		{"I spoke with their CFO yesterday", DecisionMakers, 0.9, 0.5, 0.8},
		{"they are switching from Salesforce", Competitive, 0.8, 0.5, 0.7},
		{"this is urgent", Urgency, 0.5, 0.9, 0.8},
	}

	e := NewExtractor()
	for _, tc := range cases {
		t.Run(string(tc.cat), func(t *testing.T) {
			got := byCategory(e.Extract(tc.text, Hints{}), tc.cat)
			require.NotEmpty(t, got, tc.text)
			assert.Equal(t, tc.importance, got[0].Importance)
			assert.Equal(t, tc.urgency, got[0].Urgency)
			assert.Equal(t, tc.confidence, got[0].Confidence)
			assert.Equal(t, 0.5, got[0].Relevance)
		})
	}
}

func TestDetailExtraction(t *testing.T) {
	e := NewExtractor()

	exp := byCategory(e.Extract("Acme Corp is hiring 25 engineers next quarter", Hints{}), Expansion)
	require.Len(t, exp, 1)
	assert.Equal(t, "25", exp[0].Details.TeamSize)
	assert.Equal(t, "next quarter", exp[0].Details.Timeline)
	assert.Equal(t, "Acme Corp", exp[0].Details.Company)

	dm := byCategory(e.Extract("Met Jane Smith, our CTO, and she signs off on tooling", Hints{}), DecisionMakers)
	require.NotEmpty(t, dm)
	assert.Equal(t, "Jane Smith", dm[0].Details.CounterpartyName)
	assert.Equal(t, "CTO", dm[0].Details.CounterpartyRole)

	comp := byCategory(e.Extract("They are frustrated with Zendesk pricing", Hints{}), Competitive)
	require.Len(t, comp, 1)
	assert.Equal(t, "Zendesk", comp[0].Details.Competitor)

	urg := byCategory(e.Extract("Need the proposal urgently, by Friday please", Hints{}), Urgency)
	require.Len(t, urg, 1)
	assert.Equal(t, "Friday", urg[0].Details.Deadline)

	fund := byCategory(e.Extract("Ping ceo@billco.io: raising $2.5 million by end of year", Hints{}), Funding)
	require.Len(t, fund, 1)
	assert.Equal(t, "$2.5 million", fund[0].Details.Amount)
	assert.Equal(t, "ceo@billco.io", fund[0].Details.ContactEmail)
	assert.Equal(t, "by end of year", fund[0].Details.Timeline)
}

func TestHintsTakePrecedence(t *testing.T) {
	e := NewExtractor()
	cands := e.Extract("Globex Corp is raising $3M", Hints{Company: "Initech LLC", ContactName: "Bill L"})
	require.Len(t, cands, 1)
	assert.Equal(t, "Initech LLC", cands[0].Details.Company)
	assert.Equal(t, "Bill L", cands[0].Details.CounterpartyName)
}

func TestOverlappingMatchesCollapse(t *testing.T) {
	e := NewExtractor()
	got := byCategory(e.Extract("they closed a Series A funding round", Hints{}), Funding)
	require.Len(t, got, 1)
	assert.Equal(t, "Series A funding", got[0].Matched)

	got = byCategory(e.Extract("our Series A round is a funding round", Hints{}), Funding)
	assert.Len(t, got, 2, "distinct matches each yield a candidate")
}

func TestHesitationHeuristic(t *testing.T) {
	e := NewExtractor()
	text := "Hmmmm, their new analytics team might be interesting for us."
	cands := byCategory(e.Extract(text, Hints{}), Opportunity)
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, "Hmmmm", c.Matched)
	assert.Equal(t, 0.6, c.Confidence)
	assert.Equal(t, 0.6, c.Importance)
	assert.Equal(t, text, c.Context)
}

func TestHesitationNeedsPhraseAfterMarker(t *testing.T) {
	e := NewExtractor()
	assert.Empty(t, byCategory(e.Extract("might be interesting... hmmm", Hints{}), Opportunity))
	assert.Empty(t, byCategory(e.Extract("hmmm, not sure about that", Hints{}), Opportunity))
	assert.Empty(t, byCategory(e.Extract("hmm, worth exploring", Hints{}), Opportunity), "marker needs three m's")
}

func TestHesitationContextWindow(t *testing.T) {
	e := NewExtractor()
	pre := strings.Repeat("a", 300)
	post := strings.Repeat("b", 300)
	text := pre + " hmmm " + post + " worth looking into"

	cands := byCategory(e.Extract(text, Hints{}), Opportunity)
	require.Len(t, cands, 1)
	ctx := cands[0].Context
	assert.Contains(t, ctx, "hmmm")
	assert.LessOrEqual(t, len(ctx), 200+4+200)
	assert.NotContains(t, ctx, "worth looking into")
}

func TestWithHesitationOverride(t *testing.T) {
	e := NewExtractor(WithHesitation("ooh", []string{"Could Work"}))
	cands := byCategory(e.Extract("Oohhh, that could work for Q3", Hints{}), Opportunity)
	require.Len(t, cands, 1)
	assert.Equal(t, "Oohhh", cands[0].Matched)

	assert.Empty(t, byCategory(e.Extract("hmmm, worth exploring", Hints{}), Opportunity))
}

func TestPanickingCategoryIsSkipped(t *testing.T) {
	table := DefaultTable()
	bad := table[Funding]
	bad.Details = func(string) Details { panic("bad extractor") }
	table[Funding] = bad

	e := NewExtractor(WithTable(table))
	cands := e.Extract("We are raising $6M, this is urgent", Hints{})
	assert.Empty(t, byCategory(cands, Funding))
	assert.Len(t, byCategory(cands, Urgency), 1)
}

func TestWithTableExtraCategory(t *testing.T) {
	table := Table{
		"partnership": {
			Patterns: []*regexp.Regexp{regexp.MustCompile(`(?i)\bpartnership\b`)},
			Base:     base(0.7, 0, 0.65),
		},
	}
	e := NewExtractor(WithTable(table, "partnership"))
	cands := e.Extract("open to a partnership", Hints{})
	require.Len(t, cands, 1)
	assert.Equal(t, Category("partnership"), cands[0].Category)
	assert.Equal(t, 0.65, cands[0].Confidence)
}

func TestDetailsCount(t *testing.T) {
	assert.Equal(t, 0, Details{}.Count())
	assert.Equal(t, 3, Details{Amount: "$1M", Company: "X Inc", Deadline: "EOD"}.Count())
}

func TestWindowRuneSafe(t *testing.T) {
	text := "ééééé"
	assert.Equal(t, "ééé", window(text, 4, 6, 1))
}
