// Package model defines the domain types used across the application.
package model

import "time"

// Channel represents a Telegram destination with its polling rules.
type Channel struct {
	ChatID          int64
	Subreddits      []string
	UpvoteThreshold int
}

// Rule is the filtering rule applied to posts fetched for a channel.
type Rule struct {
	UpvoteThreshold int
	Blacklist       []string
}

// Notification is the outbound payload built for a qualifying post.
type Notification struct {
	Title       string
	URL         string
	Description string
	ImageURL    string
}

// SeenPost tracks a post that has already been forwarded.
type SeenPost struct {
	ID      string
	AddedAt time.Time
}
