// internal/engine/filter.go
package engine

import (
	"strings"

	"github.com/dailyrumble/rumble/internal/feed"
)

// QualifyComments filters raw feed comments down to the unique qualifying
// candidate pool. A comment qualifies when its handle is non-blank and its
// text contains keyword case-insensitively (an empty keyword accepts every
// comment). Handles are deduplicated case-insensitively, first seen wins:
// a later duplicate is dropped and the earlier comment's metadata kept.
// The function is pure; output order follows input order.
func QualifyComments(comments []feed.Comment, keyword string) []feed.Comment {
	keyword = strings.ToLower(keyword)
	seen := make(map[string]bool, len(comments))
	var candidates []feed.Comment
	for _, c := range comments {
		handle := strings.TrimSpace(c.Handle)
		if handle == "" {
			continue
		}
		if keyword != "" && !strings.Contains(strings.ToLower(c.Text), keyword) {
			continue
		}
		key := strings.ToLower(handle)
		if seen[key] {
			continue
		}
		seen[key] = true
		candidates = append(candidates, c)
	}
	return candidates
}
