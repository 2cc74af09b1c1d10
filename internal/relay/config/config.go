// Package config handles configuration for the relay, layering defaults,
// an optional JSON file, a .env file, the process environment and
// command-line flags (later layers win).
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime settings for the relay.
//
// Fields:
//   - BotToken / BotUsername: the bot's API token and public @username.
//   - GateChannel: channel whose members may open links (@name or numeric id).
//   - GateChannelURL: target of the join button; derived from GateChannel
//     when empty.
//   - ArchiveChannelID: private channel holding the archived media.
//   - Uploaders: user ids allowed to create batches and read stats.
//   - RetentionDelay: lifetime of delivered messages.
//   - DatabaseDSN: sqlite file path or a postgres:// DSN.
//   - MetricsAddr: bind address of the /metrics endpoint; empty disables it.
type Config struct {
	BotToken         string
	BotUsername      string
	GateChannel      string
	GateChannelURL   string
	ArchiveChannelID int64
	Uploaders        []int64
	RetentionDelay   time.Duration
	DatabaseDSN      string
	MetricsAddr      string
	LogLevel         string
	LogFormat        string
	PollTimeout      time.Duration
}

// LoadDefaults populates Config with the built-in defaults.
func (c *Config) LoadDefaults() {
	c.RetentionDelay = 600 * time.Second
	c.DatabaseDSN = "files.db"
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.PollTimeout = 30 * time.Second
}

// LoadConfig builds a Config from args (without the program name) and
// environ (os.Environ form).
func LoadConfig(args, environ []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseEnv(cfg, args, environ); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}

	if cfg.GateChannelURL == "" {
		cfg.GateChannelURL = ChannelURL(cfg.GateChannel)
	}
	return cfg, nil
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("bot token is not set"))
	}
	if c.BotUsername == "" {
		errs = append(errs, errors.New("bot username is not set"))
	}
	if c.GateChannel == "" {
		errs = append(errs, errors.New("gate channel is not set"))
	}
	if c.GateChannelURL == "" {
		errs = append(errs, errors.New("gate channel url is not set"))
	}
	if c.ArchiveChannelID == 0 {
		errs = append(errs, errors.New("archive channel id is not set"))
	}
	if c.RetentionDelay <= 0 {
		errs = append(errs, fmt.Errorf("retention delay must be positive, got %s", c.RetentionDelay))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn is not set"))
	}
	return errors.Join(errs...)
}

// EntryPoint is the bot's public address that share links hang off.
func (c *Config) EntryPoint() string {
	return "https://t.me/" + strings.TrimPrefix(c.BotUsername, "@")
}

// ChannelURL derives a public channel link from an @username. Numeric ids
// have no public link and yield "".
func ChannelURL(channel string) string {
	name := strings.TrimPrefix(channel, "@")
	if name == "" {
		return ""
	}
	if _, err := strconv.ParseInt(name, 10, 64); err == nil {
		return ""
	}
	return "https://t.me/" + name
}

// ParseUploaders parses a comma separated list of user ids. Blank entries
// are skipped.
func ParseUploaders(s string) ([]int64, error) {
	var out []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad uploader id %q: %w", part, err)
		}
		out = append(out, id)
	}
	return out, nil
}
