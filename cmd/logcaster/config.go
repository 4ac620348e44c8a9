package main

import (
	"time"

	"github.com/logcaster/logcaster/internal/buffer"
	"github.com/logcaster/logcaster/internal/workerpool"
)

const (
	defaultBindHost       = "0.0.0.0"
	defaultIngestPort     = 9999
	defaultQueryPort      = 9998
	defaultIRCPort        = 6667
	defaultAPIPort        = 8080
	defaultWorkers        = workerpool.DefaultWorkers
	defaultBufferCapacity = buffer.DefaultCapacity
	defaultPersistDir     = "./logs"
	defaultMaxFileSizeMB  = 10
	defaultFlushInterval  = 1 * time.Second
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Host           string        `mapstructure:"host"`
	IngestPort     int           `mapstructure:"ingest-port"`
	IngestAddr     string        `mapstructure:"ingest-addr"`
	QueryPort      int           `mapstructure:"query-port"`
	QueryAddr      string        `mapstructure:"query-addr"`
	Workers        int           `mapstructure:"workers"`
	BufferCapacity int           `mapstructure:"buffer-capacity"`
	PersistEnabled bool          `mapstructure:"persist-enabled"`
	PersistDir     string        `mapstructure:"persist-dir"`
	MaxFileSizeMB  int           `mapstructure:"max-file-size-mb"`
	FlushInterval  time.Duration `mapstructure:"flush-interval"`
	IRCEnabled     bool          `mapstructure:"irc-enabled"`
	IRCPort        int           `mapstructure:"irc-port"`
	IRCAddr        string        `mapstructure:"irc-addr"`
	APIEnabled     bool          `mapstructure:"api-enabled"`
	APIPort        int           `mapstructure:"api-port"`
	APIAddr        string        `mapstructure:"api-addr"`
	ConfigPath     string        `mapstructure:"-"` // not from config file
}
