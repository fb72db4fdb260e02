// Package config handles application configuration from environment
// variables and the channels config file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"reddit_bot/internal/model"
)

const defaultUserAgent = "script:RedditNotifyBot:1.0"

// Config holds the application configuration. It is loaded once at
// startup and never mutated afterwards.
type Config struct {
	TelegramBotToken string
	RedditClientID   string
	RedditSecret     string
	RedditUserAgent  string
	OwnerID          int64
	ConfigPath       string
	DatabasePath     string
	SeenPath         string
	LogLevel         string

	CheckIntervalMinutes int
	Blacklist            []string
	Channels             []model.Channel
}

// Load reads configuration from environment variables and the JSON
// channels file. Any error here is fatal: the process must not start
// with a partial configuration.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	cfg := &Config{
		TelegramBotToken: token,
		RedditClientID:   os.Getenv("REDDIT_CLIENT_ID"),
		RedditSecret:     os.Getenv("REDDIT_CLIENT_SECRET"),
		RedditUserAgent:  envOrDefault("REDDIT_USER_AGENT", defaultUserAgent),
		ConfigPath:       envOrDefault("CONFIG_PATH", "./config.json"),
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/bot.db"),
		SeenPath:         envOrDefault("SEEN_PATH", "./data/seen_posts.json"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
	}

	if raw := os.Getenv("OWNER_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OWNER_ID %q: %w", raw, err)
		}
		cfg.OwnerID = id
	}

	if err := cfg.loadChannels(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// channelsFile mirrors the JSON config file layout.
type channelsFile struct {
	CheckIntervalMinutes int                `json:"check_interval_minutes"`
	Blacklist            []string           `json:"blacklist"`
	Channels             map[string]channel `json:"channels"`
}

type channel struct {
	Subreddits      []string `json:"subreddits"`
	UpvoteThreshold int      `json:"upvote_threshold"`
}

func (c *Config) loadChannels() error {
	data, err := os.ReadFile(c.ConfigPath)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file channelsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", c.ConfigPath, err)
	}

	if file.CheckIntervalMinutes <= 0 {
		file.CheckIntervalMinutes = 60
	}
	if len(file.Channels) == 0 {
		return fmt.Errorf("config file %s defines no channels", c.ConfigPath)
	}

	channels := make([]model.Channel, 0, len(file.Channels))
	for key, ch := range file.Channels {
		chatID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid channel id %q in config: %w", key, err)
		}
		if len(ch.Subreddits) == 0 {
			return fmt.Errorf("channel %s has no subreddits", key)
		}
		channels = append(channels, model.Channel{
			ChatID:          chatID,
			Subreddits:      ch.Subreddits,
			UpvoteThreshold: ch.UpvoteThreshold,
		})
	}
	// Map iteration order is random; keep cycles deterministic.
	sort.Slice(channels, func(i, j int) bool { return channels[i].ChatID < channels[j].ChatID })

	c.CheckIntervalMinutes = file.CheckIntervalMinutes
	c.Blacklist = file.Blacklist
	c.Channels = channels
	return nil
}

// RuleFor returns the filtering rule for a channel, combining the
// process-wide blacklist with the channel's own threshold.
func (c *Config) RuleFor(ch model.Channel) model.Rule {
	return model.Rule{
		UpvoteThreshold: ch.UpvoteThreshold,
		Blacklist:       c.Blacklist,
	}
}

// IsOwner checks whether a user ID is the configured bot owner.
func (c *Config) IsOwner(userID int64) bool {
	return c.OwnerID != 0 && userID == c.OwnerID
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
