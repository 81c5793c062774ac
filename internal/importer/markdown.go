package importer

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/engine"
)

// DefaultSourceType is used when a note carries no source_type frontmatter.
const DefaultSourceType = "note"

// Note is a single Markdown file parsed into an engine input.
type Note struct {
	// RelativePath is the slash-separated path under the import root.
	RelativePath string

	// Title comes from frontmatter, the first H1 heading, or the file name.
	Title string

	// SourceType and SourceID identify the note to the dedup ledger.
	SourceType string
	SourceID   string

	// Body is the text after the frontmatter with wiki links flattened.
	Body string

	Frontmatter map[string]interface{}
	Tags        []string
	Links       []string  // wiki link targets
	Date        time.Time // zero when the frontmatter has no usable date
}

// reserved frontmatter keys are consumed by Input and not copied as fm_*.
var reserved = map[string]bool{
	"title": true, "tags": true, "date": true,
	"source_type": true, "source_id": true,
	"company": true, "contact_email": true, "contact_name": true,
}

// contactKeys maps frontmatter keys to engine metadata keys.
var contactKeys = map[string]string{
	"company":       engine.MetaCompany,
	"contact_email": engine.MetaContactEmail,
	"contact_name":  engine.MetaContactName,
}

// ParseNote parses one Markdown file. relPath is relative to the import root.
func ParseNote(content []byte, relPath string) (*Note, error) {
	rel := filepath.ToSlash(relPath)

	fm, body, err := splitFrontmatter(strings.ReplaceAll(string(content), "\r\n", "\n"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	flat, links := flattenWikiLinks(body)

	n := &Note{
		RelativePath: rel,
		Title:        firstNonEmpty(stringField(fm, "title"), heading(body), nameOf(rel)),
		SourceType:   firstNonEmpty(stringField(fm, "source_type"), DefaultSourceType),
		SourceID:     firstNonEmpty(stringField(fm, "source_id"), rel),
		Body:         strings.TrimSpace(flat),
		Frontmatter:  fm,
		Tags:         collectTags(fm["tags"], body),
		Links:        links,
		Date:         parseDate(fm["date"]),
	}
	return n, nil
}

// Input converts the note into an engine input.
func (n *Note) Input() engine.Input {
	meta := map[string]interface{}{
		"import_path": n.RelativePath,
		"title":       n.Title,
	}
	if len(n.Tags) > 0 {
		meta["tags"] = n.Tags
	}
	if len(n.Links) > 0 {
		meta["wiki_links"] = n.Links
	}
	if !n.Date.IsZero() {
		meta["date"] = n.Date.UTC().Format(time.RFC3339)
	}
	for fmKey, metaKey := range contactKeys {
		if v := stringField(n.Frontmatter, fmKey); v != "" {
			meta[metaKey] = v
		}
	}
	for k, v := range n.Frontmatter {
		if !reserved[k] {
			meta["fm_"+k] = v
		}
	}

	return engine.Input{
		SourceType: n.SourceType,
		SourceID:   n.SourceID,
		Content:    n.Body,
		Metadata:   meta,
	}
}

// splitFrontmatter separates a leading "---" delimited YAML block from the
// body. Text without a complete block is all body.
func splitFrontmatter(text string) (map[string]interface{}, string, error) {
	fm := map[string]interface{}{}

	rest, ok := strings.CutPrefix(text, "---\n")
	if !ok {
		return fm, text, nil
	}
	var head, body string
	if strings.HasPrefix(rest, "---\n") || rest == "---" {
		head, body = "", strings.TrimPrefix(strings.TrimPrefix(rest, "---"), "\n")
	} else if head, body, ok = strings.Cut(rest, "\n---\n"); !ok {
		if head, ok = strings.CutSuffix(rest, "\n---"); !ok {
			return fm, text, nil
		}
		body = ""
	}

	if err := yaml.Unmarshal([]byte(head), &fm); err != nil {
		return nil, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	if fm == nil {
		fm = map[string]interface{}{}
	}
	return fm, body, nil
}

func stringField(fm map[string]interface{}, key string) string {
	s, _ := fm[key].(string)
	return strings.TrimSpace(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// heading returns the first "# " line of body.
func heading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if title, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return ""
}

// nameOf turns "calls/weekly_sync-notes.md" into "weekly sync notes".
func nameOf(rel string) string {
	name := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' || r == ' ' }), " ")
}

var hashtagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][\w/-]*)`)

// collectTags merges frontmatter tags (a list or a comma separated string)
// with inline #hashtags, keeping the first spelling of each tag.
func collectTags(raw interface{}, body string) []string {
	var all []string
	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				all = append(all, s)
			}
		}
	case string:
		all = strings.Split(v, ",")
	}
	for _, m := range hashtagRe.FindAllStringSubmatch(body, -1) {
		all = append(all, m[1])
	}

	var tags []string
	seen := map[string]bool{}
	for _, t := range all {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		tags = append(tags, t)
	}
	return tags
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02", "Jan 2, 2006"}

func parseDate(raw interface{}) time.Time {
	switch v := raw.(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
