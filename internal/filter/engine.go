// Package filter implements the forward/skip decision for fetched posts.
package filter

import (
	"strings"

	"reddit_bot/internal/model"
	"reddit_bot/internal/reddit"
)

// SeenChecker reports whether a post id has already been forwarded.
type SeenChecker interface {
	Contains(id string) bool
}

// ShouldForward decides whether a post qualifies for a channel. A post
// is dropped when it was already forwarded, when its score is below the
// channel's threshold, or when its title contains a blacklisted term.
// The three conditions are independent; ordering only short-circuits.
func ShouldForward(p *reddit.Post, rule model.Rule, seen SeenChecker) bool {
	if seen.Contains(p.ID) {
		return false
	}
	if p.Score < rule.UpvoteThreshold {
		return false
	}
	if TitleBlacklisted(p.Title, rule.Blacklist) {
		return false
	}
	return true
}

// TitleBlacklisted checks a title against blacklist terms using
// case-insensitive substring matching.
func TitleBlacklisted(title string, blacklist []string) bool {
	lower := strings.ToLower(title)
	for _, term := range blacklist {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
