// Package importer feeds folders of Markdown notes (meeting notes, exported
// email threads, CRM notes) through the engine, one ProcessInput per file.
package importer

import (
	"regexp"
	"strings"
)

// wikiLinkRe matches [[target]] and [[target|label]].
var wikiLinkRe = regexp.MustCompile(`\[\[([^\[\]|]+?)(?:\|([^\[\]]+?))?\]\]`)

// flattenWikiLinks rewrites every [[target|label]] as its label (or target
// when unlabelled) and returns the distinct targets in order of first use.
// Targets are compared case-insensitively.
func flattenWikiLinks(body string) (string, []string) {
	var (
		b       strings.Builder
		targets []string
		seen    = map[string]bool{}
		last    int
	)
	for _, m := range wikiLinkRe.FindAllStringSubmatchIndex(body, -1) {
		target := strings.TrimSpace(body[m[2]:m[3]])
		text := target
		if m[4] >= 0 {
			if label := strings.TrimSpace(body[m[4]:m[5]]); label != "" {
				text = label
			}
		}

		b.WriteString(body[last:m[0]])
		b.WriteString(text)
		last = m[1]

		if key := strings.ToLower(target); !seen[key] {
			seen[key] = true
			targets = append(targets, target)
		}
	}
	if last == 0 {
		return body, nil
	}
	b.WriteString(body[last:])
	return b.String(), targets
}
