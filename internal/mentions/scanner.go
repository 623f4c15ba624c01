package mentions

import (
	"strings"

	"github.com/canvasreview/pkg/models"
)

// Scanner filters a comment snapshot down to the comments the agent should
// act on. It is a pure filter over the snapshot fetched at batch start:
// replies posted mid-batch are not visible to it, so single-invocation-at-a-
// time per file is an operational requirement, not something enforced here.
type Scanner struct {
	patterns []string // lower-cased mention substrings
	botID    string
}

// NewScanner builds a scanner for the given agent identity. Patterns are
// normalized to lower case once; empty patterns are dropped.
func NewScanner(patterns []string, botID string) *Scanner {
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	return &Scanner{patterns: normalized, botID: botID}
}

// FilterActionable returns the ordered subset of comments the agent should
// reply to. A comment is excluded when any of these holds:
//  1. it is resolved,
//  2. its text contains none of the mention patterns,
//  3. the bot already answered it in this snapshot,
//  4. the bot authored it.
//
// Comments with missing or malformed text are excluded, never errored.
func (s *Scanner) FilterActionable(comments []models.Comment) []models.Comment {
	actionable := make([]models.Comment, 0)
	for _, c := range comments {
		if c.ResolvedAt != nil {
			continue
		}
		if !s.mentionsAgent(c) {
			continue
		}
		if hasBotReply(comments, c.ID, s.botID) {
			continue
		}
		if c.Author.ID == s.botID {
			continue
		}
		actionable = append(actionable, c)
	}
	return actionable
}

// mentionsAgent reports whether the comment text contains any configured
// mention pattern. Substring match, not word-boundary: a pattern embedded
// in a longer word still matches, same as host-style @mentions.
func (s *Scanner) mentionsAgent(c models.Comment) bool {
	body := strings.ToLower(c.Body())
	if body == "" {
		return false
	}
	for _, p := range s.patterns {
		if strings.Contains(body, p) {
			return true
		}
	}
	return false
}

// hasBotReply reports whether the snapshot already contains a bot-authored
// reply threaded under the given comment. This is the idempotency check:
// re-running the pipeline over an unchanged thread produces zero new
// replies.
func hasBotReply(comments []models.Comment, commentID, botID string) bool {
	for _, c := range comments {
		if c.ParentID == commentID && c.Author.ID == botID {
			return true
		}
	}
	return false
}
