package opportunity

import (
	"context"
	"log"
	"strings"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/embedding"
)

// DefaultAcceptanceThreshold is the minimum confidence for a candidate to
// become a sticky note.
const DefaultAcceptanceThreshold = 0.5

// DefaultEnterpriseKeywords mark a company name as enterprise sized.
var DefaultEnterpriseKeywords = []string{"inc", "corp", "llc", "enterprise", "global", "international"}

// Boost multipliers. They compound and are not clamped.
const (
	enterpriseImportanceBoost   = 1.2
	enterpriseConfidenceBoost   = 1.1
	relationshipImportanceBoost = 1.15
	detailConfidenceBoost       = 1.2

	strongRelationship = 3.0 // on a 0-5 scale
	richDetailCount    = 3
)

// RelationshipStrengthLookup returns how strong the relationship with a
// contact is, on a 0-5 scale.
type RelationshipStrengthLookup interface {
	RelationshipStrength(ctx context.Context, email string) (float64, error)
}

// Context is the side information used to adjust a candidate.
type Context struct {
	Company      string
	ContactEmail string
}

// Adjuster refines candidate scores from side context and applies the
// acceptance gate.
type Adjuster struct {
	Lookup              RelationshipStrengthLookup
	EnterpriseKeywords  []string
	AcceptanceThreshold float64
}

// NewAdjuster returns an adjuster with default keywords and threshold.
// lookup may be nil.
func NewAdjuster(lookup RelationshipStrengthLookup) *Adjuster {
	return &Adjuster{
		Lookup:              lookup,
		EnterpriseKeywords:  DefaultEnterpriseKeywords,
		AcceptanceThreshold: DefaultAcceptanceThreshold,
	}
}

// Adjust applies the boosts to c in place. Lookup failures are logged and
// treated as no boost.
func (a *Adjuster) Adjust(ctx context.Context, c *Candidate, sc Context) {
	company := sc.Company
	if company == "" {
		company = c.Details.Company
	}
	if a.isEnterprise(company) {
		c.Importance *= enterpriseImportanceBoost
		c.Confidence *= enterpriseConfidenceBoost
	}

	email := sc.ContactEmail
	if email == "" {
		email = c.Details.ContactEmail
	}
	if email != "" && a.Lookup != nil {
		strength, err := a.Lookup.RelationshipStrength(ctx, email)
		if err != nil {
			log.Printf("opportunity: relationship lookup for %s failed: %v", email, err)
		} else if strength > strongRelationship {
			c.Importance *= relationshipImportanceBoost
		}
	}

	if c.Details.Count() >= richDetailCount {
		c.Confidence *= detailConfidenceBoost
	}
}

// Accept reports whether c passes the acceptance gate.
func (a *Adjuster) Accept(c Candidate) bool {
	return c.Confidence >= a.threshold()
}

func (a *Adjuster) threshold() float64 {
	if a.AcceptanceThreshold <= 0 {
		return DefaultAcceptanceThreshold
	}
	return a.AcceptanceThreshold
}

// isEnterprise matches keywords against whole word tokens of the name, so
// "BillCo Inc" matches "inc" but "Incredible Co" does not.
func (a *Adjuster) isEnterprise(company string) bool {
	if strings.TrimSpace(company) == "" {
		return false
	}
	keywords := a.EnterpriseKeywords
	if keywords == nil {
		keywords = DefaultEnterpriseKeywords
	}
	for _, tok := range embedding.Tokenize(company) {
		for _, kw := range keywords {
			if tok == strings.ToLower(kw) {
				return true
			}
		}
	}
	return false
}
