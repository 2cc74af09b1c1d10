package config

import (
	"fmt"
	"strconv"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/dmitrijs2005/filegate/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvConfig names the environment variables the relay reads. Everything is
// read as text so that unset variables can be told apart from zero values.
type EnvConfig struct {
	BotToken         string `env:"BOT_TOKEN"`
	BotUsername      string `env:"BOT_USERNAME"`
	GateChannel      string `env:"GATE_CHANNEL"`
	GateChannelURL   string `env:"GATE_CHANNEL_URL"`
	ArchiveChannelID string `env:"ARCHIVE_CHANNEL_ID"`
	Uploaders        string `env:"ALLOWED_UPLOADERS"`
	RetentionSeconds string `env:"RETENTION_SECONDS"`
	DatabaseDSN      string `env:"DATABASE_DSN"`
	MetricsAddr      string `env:"METRICS_ADDR"`
	LogLevel         string `env:"LOG_LEVEL"`
	LogFormat        string `env:"LOG_FORMAT"`
	PollSeconds      string `env:"POLL_TIMEOUT_SECONDS"`
}

// parseEnv overlays the .env file named by -env-file (if any) and then the
// process environment, which wins over the file.
func parseEnv(config *Config, args, environ []string) error {
	es := env.EnvSet{}

	if path := flagx.StringFlag(args, "env-file"); path != "" {
		fileVars, err := godotenv.Read(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		for k, v := range fileVars {
			es[k] = v
		}
	}

	procVars, err := env.EnvironToEnvSet(environ)
	if err != nil {
		return err
	}
	for k, v := range procVars {
		es[k] = v
	}

	var c EnvConfig
	if err := env.Unmarshal(es, &c); err != nil {
		return err
	}
	return c.apply(config)
}

func (c *EnvConfig) apply(config *Config) error {
	setString(&config.BotToken, c.BotToken)
	setString(&config.BotUsername, c.BotUsername)
	setString(&config.GateChannel, c.GateChannel)
	setString(&config.GateChannelURL, c.GateChannelURL)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)

	if c.ArchiveChannelID != "" {
		id, err := strconv.ParseInt(c.ArchiveChannelID, 10, 64)
		if err != nil {
			return fmt.Errorf("ARCHIVE_CHANNEL_ID: %w", err)
		}
		config.ArchiveChannelID = id
	}
	if c.Uploaders != "" {
		ids, err := ParseUploaders(c.Uploaders)
		if err != nil {
			return fmt.Errorf("ALLOWED_UPLOADERS: %w", err)
		}
		config.Uploaders = ids
	}
	if c.RetentionSeconds != "" {
		d, err := seconds(c.RetentionSeconds)
		if err != nil {
			return fmt.Errorf("RETENTION_SECONDS: %w", err)
		}
		config.RetentionDelay = d
	}
	if c.PollSeconds != "" {
		d, err := seconds(c.PollSeconds)
		if err != nil {
			return fmt.Errorf("POLL_TIMEOUT_SECONDS: %w", err)
		}
		config.PollTimeout = d
	}
	return nil
}

func seconds(s string) (time.Duration, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}
