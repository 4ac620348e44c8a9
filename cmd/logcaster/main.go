package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	fs := flag.NewFlagSet("logcaster", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr,
			"Usage: %s [-p port] [-P] [-d dir] [-s size_mb] [-i] [-I irc_port] [-h]\n", os.Args[0])
		fs.PrintDefaults()
	}

	var (
		configPath  string
		showVersion bool

		ingestPort = fs.Int("p", defaultIngestPort, "ingest port")
		persist    = fs.Bool("P", false, "enable persistence")
		persistDir = fs.String("d", defaultPersistDir, "persistence directory")
		sizeMB     = fs.Int("s", defaultMaxFileSizeMB, "rotation size in MB")
		ircDefault = fs.Bool("i", false, "enable IRC on the default port")
		ircPort    = fs.Int("I", defaultIRCPort, "enable IRC on the given port")
	)
	fs.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/logcaster/config.yml)")
	fs.BoolVar(&showVersion, "version", false, "print version information")

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(1)
	}

	if showVersion {
		fmt.Printf("LogCaster - Log Ingestion Service\n")
		fmt.Printf("  Version: %s\n", version)
		fmt.Printf("  Commit:  %s\n", commit)
		fmt.Printf("  Built:   %s\n", buildTime)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Flags passed on the command line win over config file and env.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			cfg.IngestPort = *ingestPort
		case "P":
			cfg.PersistEnabled = *persist
		case "d":
			cfg.PersistDir = *persistDir
		case "s":
			cfg.MaxFileSizeMB = *sizeMB
		case "i":
			cfg.IRCEnabled = *ircDefault
		case "I":
			cfg.IRCEnabled = true
			cfg.IRCPort = *ircPort
		}
	})

	if err := validateConfig(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	v := viper.New()
	v.SetEnvPrefix("LOGCASTER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("host", defaultBindHost)
	v.SetDefault("ingest-port", defaultIngestPort)
	v.SetDefault("query-port", defaultQueryPort)
	v.SetDefault("workers", defaultWorkers)
	v.SetDefault("buffer-capacity", defaultBufferCapacity)
	v.SetDefault("persist-enabled", false)
	v.SetDefault("persist-dir", defaultPersistDir)
	v.SetDefault("max-file-size-mb", defaultMaxFileSizeMB)
	v.SetDefault("flush-interval", defaultFlushInterval)
	v.SetDefault("irc-enabled", false)
	v.SetDefault("irc-port", defaultIRCPort)
	v.SetDefault("api-enabled", false)
	v.SetDefault("api-port", defaultAPIPort)

	haveFile := true
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigFile(filepath.Join(home, ".config", "logcaster", "config.yml"))
	} else {
		haveFile = false
	}

	if haveFile {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return cfg, err
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	return cfg, nil
}

func validateConfig(cfg *appConfig) error {
	for _, port := range []struct {
		name  string
		value int
	}{
		{"ingest port", cfg.IngestPort},
		{"query port", cfg.QueryPort},
		{"irc port", cfg.IRCPort},
		{"api port", cfg.APIPort},
	} {
		if port.value <= 0 || port.value > 65535 {
			return fmt.Errorf("invalid %s: %d", port.name, port.value)
		}
	}
	if cfg.IngestPort == cfg.QueryPort {
		return fmt.Errorf("ingest and query ports must differ: %d", cfg.IngestPort)
	}
	if cfg.MaxFileSizeMB <= 0 {
		return fmt.Errorf("invalid rotation size: %d MB", cfg.MaxFileSizeMB)
	}

	if cfg.IngestAddr == "" {
		cfg.IngestAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.IngestPort))
	}
	if cfg.QueryAddr == "" {
		cfg.QueryAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.QueryPort))
	}
	if cfg.IRCAddr == "" {
		cfg.IRCAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.IRCPort))
	}
	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.APIPort))
	}
	return nil
}
