package opportunity

import (
	"regexp"
	"strings"
)

// Details holds the structured fields pulled from an input. All are optional.
type Details struct {
	Amount           string `json:"amount,omitempty"`
	Timeline         string `json:"timeline,omitempty"`
	CounterpartyName string `json:"counterparty_name,omitempty"`
	CounterpartyRole string `json:"counterparty_role,omitempty"`
	Company          string `json:"company,omitempty"`
	ContactEmail     string `json:"contact_email,omitempty"`
	TeamSize         string `json:"team_size,omitempty"`
	Competitor       string `json:"competitor,omitempty"`
	Deadline         string `json:"deadline,omitempty"`
}

// Count returns the number of non-empty fields.
func (d Details) Count() int {
	n := 0
	for _, v := range []string{
		d.Amount, d.Timeline, d.CounterpartyName, d.CounterpartyRole,
		d.Company, d.ContactEmail, d.TeamSize, d.Competitor, d.Deadline,
	} {
		if v != "" {
			n++
		}
	}
	return n
}

// merge fills empty fields of d from o.
func (d Details) merge(o Details) Details {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&d.Amount, o.Amount)
	fill(&d.Timeline, o.Timeline)
	fill(&d.CounterpartyName, o.CounterpartyName)
	fill(&d.CounterpartyRole, o.CounterpartyRole)
	fill(&d.Company, o.Company)
	fill(&d.ContactEmail, o.ContactEmail)
	fill(&d.TeamSize, o.TeamSize)
	fill(&d.Competitor, o.Competitor)
	fill(&d.Deadline, o.Deadline)
	return d
}

var (
	reAmount     = regexp.MustCompile(`(?i)\$[\d][\d,.]*\s*(?:million|billion|thousand|[kmb]\b)?`)
	reTimeline   = regexp.MustCompile(`(?i)\b(?:(?:by|before|in|within)\s+)?(?:(?:the\s+)?end\s+of\s+(?:the\s+)?(?:quarter|year|month|fiscal year)|q[1-4](?:\s+\d{4})?|next\s+(?:week|month|quarter|year)|this\s+(?:week|month|quarter)|\d+\s+(?:days|weeks|months))\b`)
	reRole       = regexp.MustCompile(`\b(?:CEO|CTO|CFO|COO|CRO|CMO|(?:VP|Vice President|Head|Director)\s+of\s+[A-Z][a-zA-Z]+|(?:[Cc]o-)?[Ff]ounder)\b`)
	reNameRole   = regexp.MustCompile(`\b([A-Z][a-z]+\s+[A-Z][a-z]+),?\s+(?:(?:our|their|the)\s+)?(?:CEO|CTO|CFO|COO|CRO|CMO|VP|Vice President|Head|Director|[Cc]o-?[Ff]ounder|[Ff]ounder)\b`)
	reCompany    = regexp.MustCompile(`\b((?:[A-Z][\w&-]*\s+){0,3}(?:Inc|Corp|Corporation|LLC|Ltd|GmbH|Group|Technologies|Holdings)\b\.?)`)
	reEmail      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	reTeamSize   = regexp.MustCompile(`(?i)\b(\d+)\s+(?:more\s+|new\s+)?(?:engineers|developers|people|employees|hires|reps|salespeople|staff)\b`)
	reCompetitor = regexp.MustCompile(`(?i)\b(?:switching|moving|migrating)\s+(?:away\s+)?from\s+([\w.-]+)|\b(?:unhappy|frustrated|fed up)\s+with\s+([\w.-]+)|\b(?:vs\.?|versus)\s+([\w.-]+)`)
	reDeadline   = regexp.MustCompile(`(?i)\b(?:by|before|no later than)\s+(eod|end of day|tomorrow|tonight|monday|tuesday|wednesday|thursday|friday|\d{1,2}/\d{1,2})\b`)
)

func firstMatch(re *regexp.Regexp, text string) string {
	return strings.TrimSpace(re.FindString(text))
}

func extractAmount(text string) string {
	return strings.TrimRight(firstMatch(reAmount, text), ",. ")
}

func extractCompany(text string) string {
	return strings.TrimSpace(firstMatch(reCompany, text))
}

func extractCompetitor(text string) string {
	m := reCompetitor.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	for _, g := range m[1:] {
		if g != "" {
			return strings.TrimRight(g, ".")
		}
	}
	return ""
}

func extractTeamSize(text string) string {
	if m := reTeamSize.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func extractDeadline(text string) string {
	if m := reDeadline.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func extractNameRole(text string) (name, role string) {
	if m := reNameRole.FindStringSubmatch(text); m != nil {
		name = m[1]
	}
	role = firstMatch(reRole, text)
	return name, role
}

// commonDetails applies to every category.
func commonDetails(text string) Details {
	return Details{
		Company:      extractCompany(text),
		ContactEmail: firstMatch(reEmail, text),
	}
}

func fundingDetails(text string) Details {
	d := commonDetails(text)
	d.Amount = extractAmount(text)
	d.Timeline = firstMatch(reTimeline, text)
	return d
}

func budgetDetails(text string) Details {
	d := commonDetails(text)
	d.Amount = extractAmount(text)
	d.Timeline = firstMatch(reTimeline, text)
	return d
}

func expansionDetails(text string) Details {
	d := commonDetails(text)
	d.TeamSize = extractTeamSize(text)
	d.Timeline = firstMatch(reTimeline, text)
	return d
}

func timingDetails(text string) Details {
	d := commonDetails(text)
	d.Timeline = firstMatch(reTimeline, text)
	return d
}

func decisionMakerDetails(text string) Details {
	d := commonDetails(text)
	d.CounterpartyName, d.CounterpartyRole = extractNameRole(text)
	return d
}

func competitiveDetails(text string) Details {
	d := commonDetails(text)
	d.Competitor = extractCompetitor(text)
	return d
}

func urgencyDetails(text string) Details {
	d := commonDetails(text)
	d.Deadline = extractDeadline(text)
	d.Timeline = firstMatch(reTimeline, text)
	return d
}
