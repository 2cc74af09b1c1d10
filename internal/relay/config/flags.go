package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/filegate/internal/flagx"
)

// parseFlags overlays command-line flags.
//
// Supported flags (short forms):
//
//	-t string   bot token
//	-n string   bot username
//	-g string   gate channel (@name or numeric id)
//	-j string   gate channel join url
//	-a int      archive channel id
//	-u string   comma separated uploader ids
//	-r int      retention delay, seconds
//	-d string   database DSN
//	-m string   metrics bind address
//	-l string   log level
//
// Flags owned by other layers (-c, -config, -env-file) are filtered out
// first.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-t", "-n", "-g", "-j", "-a", "-u", "-r", "-d", "-m", "-l"})

	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.BotToken, "t", config.BotToken, "bot token")
	fs.StringVar(&config.BotUsername, "n", config.BotUsername, "bot username")
	fs.StringVar(&config.GateChannel, "g", config.GateChannel, "gate channel")
	fs.StringVar(&config.GateChannelURL, "j", config.GateChannelURL, "gate channel join url")
	fs.Int64Var(&config.ArchiveChannelID, "a", config.ArchiveChannelID, "archive channel id")
	uploaders := fs.String("u", "", "comma separated uploader ids")
	retention := fs.Int("r", int(config.RetentionDelay/time.Second), "retention delay (in seconds)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *uploaders != "" {
		ids, err := ParseUploaders(*uploaders)
		if err != nil {
			return err
		}
		config.Uploaders = ids
	}
	// -r carries whole seconds; an unset flag must not truncate a
	// sub-second delay loaded from JSON.
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "r" {
			config.RetentionDelay = time.Duration(*retention) * time.Second
		}
	})
	return nil
}
