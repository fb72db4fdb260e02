package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reddit_bot/internal/scheduler"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Reddit Notify Bot!

I watch the configured subreddits and forward new posts that pass the
upvote threshold and blacklist to their channels.

Use /help for the command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Commands:
/status — channels, subreddits, and forwarded-post count
/check — run a poll cycle now (bot owner only)

Channels, subreddits, thresholds, and the blacklist come from the
config file and are fixed for the lifetime of the process.`)
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	subs := 0
	for _, ch := range b.cfg.Channels {
		subs += len(ch.Subreddits)
	}

	seen := "unknown"
	if ids, err := b.store.LoadAll(ctx); err == nil {
		seen = fmt.Sprintf("%d", len(ids))
	} else {
		b.log.Error("load seen posts for status", "error", err)
	}

	b.reply(chatID, fmt.Sprintf(
		"Up %s\nChannels: %d\nSubreddits: %d\nCheck interval: every %d min\nForwarded posts: %s",
		time.Since(b.startedAt).Round(time.Second),
		len(b.cfg.Channels), subs, b.cfg.CheckIntervalMinutes, seen,
	))
}

func (b *Bot) handleCheck(ctx context.Context, chatID, userID int64) {
	if !b.cfg.IsOwner(userID) {
		b.reply(chatID, "Only the bot owner can run /check.")
		return
	}
	if b.runner == nil {
		b.reply(chatID, "Checking is not available right now.")
		return
	}

	b.reply(chatID, "Running a check now...")

	if err := b.runner.RunNow(ctx); err != nil {
		if errors.Is(err, scheduler.ErrCycleRunning) {
			b.reply(chatID, "A check is already running, try again in a bit.")
			return
		}
		b.log.Error("manual check", "error", err)
		b.reply(chatID, fmt.Sprintf("Check failed: %v", err))
		return
	}

	b.reply(chatID, "Check complete.")
}
