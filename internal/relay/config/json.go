package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/filegate/internal/flagx"
	"github.com/dmitrijs2005/filegate/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "10m" or a
// number of seconds. Absent fields leave the current value alone.
type JsonConfig struct {
	BotToken         string         `json:"bot_token"`
	BotUsername      string         `json:"bot_username"`
	GateChannel      string         `json:"gate_channel"`
	GateChannelURL   string         `json:"gate_channel_url"`
	ArchiveChannelID int64          `json:"archive_channel_id"`
	Uploaders        []int64        `json:"allowed_uploaders"`
	RetentionDelay   timex.Duration `json:"retention_delay"`
	DatabaseDSN      string         `json:"database_dsn"`
	MetricsAddr      string         `json:"metrics_addr"`
	LogLevel         string         `json:"log_level"`
	LogFormat        string         `json:"log_format"`
	PollTimeout      timex.Duration `json:"poll_timeout"`
}

// parseJson overlays the file named by -c/-config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.StringFlag(args, "c", "config")
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.BotToken, c.BotToken)
	setString(&config.BotUsername, c.BotUsername)
	setString(&config.GateChannel, c.GateChannel)
	setString(&config.GateChannelURL, c.GateChannelURL)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	if c.ArchiveChannelID != 0 {
		config.ArchiveChannelID = c.ArchiveChannelID
	}
	if c.Uploaders != nil {
		config.Uploaders = c.Uploaders
	}
	if c.RetentionDelay.Duration != 0 {
		config.RetentionDelay = c.RetentionDelay.Duration
	}
	if c.PollTimeout.Duration != 0 {
		config.PollTimeout = c.PollTimeout.Duration
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
