package bot

import (
	"fmt"
	"strings"

	"reddit_bot/internal/model"
	"reddit_bot/internal/reddit"
)

// placeholderTitle is used when a post carries an empty title.
const placeholderTitle = "Link to post"

// BuildNotification builds the outbound payload for a qualifying post.
// imageURL is the resolved preview image, empty when the post has none;
// video posts never carry one. Pure, no I/O.
func BuildNotification(p *reddit.Post, imageURL string) model.Notification {
	title := p.Title
	if title == "" {
		title = placeholderTitle
	}

	verb := "Open"
	if p.IsVideo {
		verb = "Watch"
	}

	return model.Notification{
		Title:       title,
		URL:         "https://reddit.com" + p.Permalink,
		Description: fmt.Sprintf("%s on Reddit: https://redd.it/%s", verb, p.ID),
		ImageURL:    imageURL,
	}
}

// RenderText renders a notification as the Telegram message body.
func RenderText(n model.Notification) string {
	var b strings.Builder
	b.WriteString(n.Title)
	b.WriteString("\n")
	b.WriteString(n.URL)
	b.WriteString("\n\n")
	b.WriteString(n.Description)
	return b.String()
}
