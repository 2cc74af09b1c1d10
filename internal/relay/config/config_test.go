package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func writeJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)
	return writeFile(t, "relay.json", b)
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	want := Config{
		RetentionDelay: 600 * time.Second,
		DatabaseDSN:    "files.db",
		LogLevel:       "info",
		LogFormat:      "json",
		PollTimeout:    30 * time.Second,
	}
	assert.Empty(t, cmp.Diff(want, c))
}

func TestLoadConfig_DefaultsOnly(t *testing.T) {
	c, err := LoadConfig(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 600*time.Second, c.RetentionDelay)
	assert.Equal(t, "files.db", c.DatabaseDSN)
	assert.Empty(t, c.GateChannelURL)
	assert.Error(t, c.Validate())
}

func TestLoadConfig_Environment(t *testing.T) {
	environ := []string{
		"BOT_TOKEN=123:abc",
		"BOT_USERNAME=FileGateBot",
		"GATE_CHANNEL=@gatechan",
		"ARCHIVE_CHANNEL_ID=-1003893001355",
		"ALLOWED_UPLOADERS=8295342154, 7025490921",
		"RETENTION_SECONDS=120",
		"DATABASE_DSN=postgres://u:p@db:5432/relay",
		"POLL_TIMEOUT_SECONDS=5",
		"UNRELATED=1",
	}

	c, err := LoadConfig(nil, environ)
	require.NoError(t, err)

	want := &Config{
		BotToken:         "123:abc",
		BotUsername:      "FileGateBot",
		GateChannel:      "@gatechan",
		GateChannelURL:   "https://t.me/gatechan",
		ArchiveChannelID: -1003893001355,
		Uploaders:        []int64{8295342154, 7025490921},
		RetentionDelay:   120 * time.Second,
		DatabaseDSN:      "postgres://u:p@db:5432/relay",
		LogLevel:         "info",
		LogFormat:        "json",
		PollTimeout:      5 * time.Second,
	}
	assert.Empty(t, cmp.Diff(want, c))
	assert.NoError(t, c.Validate())
	assert.Equal(t, "https://t.me/FileGateBot", c.EntryPoint())
}

func TestLoadConfig_Precedence(t *testing.T) {
	jsonPath := writeJSON(t, map[string]any{
		"bot_token":          "from-json",
		"bot_username":       "JsonBot",
		"gate_channel":       "@jsonchan",
		"archive_channel_id": -1,
		"allowed_uploaders":  []int64{1},
		"retention_delay":    "5m",
		"metrics_addr":       ":9100",
	})
	envPath := writeFile(t, "relay.env", []byte("BOT_TOKEN=from-dotenv\nBOT_USERNAME=DotenvBot\nLOG_LEVEL=debug\n"))

	args := []string{
		"-config", jsonPath,
		"-env-file", envPath,
		"-t", "from-flag",
		"-a", "-42",
		"-u", "7,8",
	}
	environ := []string{"BOT_USERNAME=EnvBot"}

	c, err := LoadConfig(args, environ)
	require.NoError(t, err)

	assert.Equal(t, "from-flag", c.BotToken)
	assert.Equal(t, "EnvBot", c.BotUsername)
	assert.Equal(t, "@jsonchan", c.GateChannel)
	assert.Equal(t, "https://t.me/jsonchan", c.GateChannelURL)
	assert.Equal(t, int64(-42), c.ArchiveChannelID)
	assert.Equal(t, []int64{7, 8}, c.Uploaders)
	assert.Equal(t, 5*time.Minute, c.RetentionDelay)
	assert.Equal(t, ":9100", c.MetricsAddr)
	assert.Equal(t, "debug", c.LogLevel)
}

func TestLoadConfig_Errors(t *testing.T) {
	bad := writeFile(t, "bad.json", []byte(`{ not json`))

	tests := []struct {
		name    string
		args    []string
		environ []string
	}{
		{name: "missing json file", args: []string{"-c", filepath.Join(t.TempDir(), "nope.json")}},
		{name: "invalid json", args: []string{"-c", bad}},
		{name: "missing env file", args: []string{"-env-file", filepath.Join(t.TempDir(), "nope.env")}},
		{name: "bad archive id", environ: []string{"ARCHIVE_CHANNEL_ID=abc"}},
		{name: "bad uploaders", environ: []string{"ALLOWED_UPLOADERS=1,x"}},
		{name: "bad retention", environ: []string{"RETENTION_SECONDS=ten"}},
		{name: "bad poll timeout", environ: []string{"POLL_TIMEOUT_SECONDS=1.5"}},
		{name: "bad uploader flag", args: []string{"-u", "1;2"}},
		{name: "bad retention flag", args: []string{"-r", "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.args, tt.environ)
			assert.Error(t, err)
		})
	}
}

func TestParseFlags(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	args := []string{
		"-t", "tok", "-n", "Bot", "-g", "-1001", "-j", "https://t.me/+invite",
		"-a", "-1002", "-u", "5", "-r", "60", "-d", "relay.db", "-m", ":2112", "-l", "warn",
		"-c", "ignored.json",
	}
	require.NoError(t, parseFlags(c, args))

	want := &Config{
		BotToken:         "tok",
		BotUsername:      "Bot",
		GateChannel:      "-1001",
		GateChannelURL:   "https://t.me/+invite",
		ArchiveChannelID: -1002,
		Uploaders:        []int64{5},
		RetentionDelay:   time.Minute,
		DatabaseDSN:      "relay.db",
		MetricsAddr:      ":2112",
		LogLevel:         "warn",
		LogFormat:        "json",
		PollTimeout:      30 * time.Second,
	}
	assert.Empty(t, cmp.Diff(want, c))
}

func TestLoadConfig_SubSecondRetentionKeptWithoutFlag(t *testing.T) {
	jsonPath := writeJSON(t, map[string]any{"retention_delay": "90500ms"})

	c, err := LoadConfig([]string{"-c", jsonPath, "-t", "tok"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 90500*time.Millisecond, c.RetentionDelay)

	c, err = LoadConfig([]string{"-c", jsonPath, "-r", "30"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, c.RetentionDelay)
}

func TestValidate(t *testing.T) {
	c := &Config{
		BotToken:         "t",
		BotUsername:      "b",
		GateChannel:      "@g",
		GateChannelURL:   "https://t.me/g",
		ArchiveChannelID: -1,
		RetentionDelay:   time.Minute,
		DatabaseDSN:      "files.db",
	}
	require.NoError(t, c.Validate())

	c.BotToken = ""
	c.ArchiveChannelID = 0
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot token")
	assert.Contains(t, err.Error(), "archive channel")
}

func TestChannelURL(t *testing.T) {
	assert.Equal(t, "https://t.me/only_hub", ChannelURL("@only_hub"))
	assert.Equal(t, "https://t.me/only_hub", ChannelURL("only_hub"))
	assert.Equal(t, "", ChannelURL("-1001234"))
	assert.Equal(t, "", ChannelURL(""))
}

func TestParseUploaders(t *testing.T) {
	ids, err := ParseUploaders(" 1, 2,,3 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = ParseUploaders("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = ParseUploaders("1,two")
	assert.Error(t, err)
}
