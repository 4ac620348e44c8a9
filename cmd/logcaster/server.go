package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/logcaster/logcaster/internal/buffer"
	"github.com/logcaster/logcaster/internal/httpserver"
	"github.com/logcaster/logcaster/internal/ingest"
	"github.com/logcaster/logcaster/internal/irc"
	"github.com/logcaster/logcaster/internal/persist"
	"github.com/logcaster/logcaster/internal/queryserver"
	"github.com/logcaster/logcaster/internal/workerpool"
)

// runServer wires the components, serves until a shutdown signal, and tears
// everything down in reverse construction order (the deferred Stops).
func runServer(cfg appConfig) error {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	buf := buffer.New(cfg.BufferCapacity)

	persistor := persist.New(persist.Config{
		Enabled:       cfg.PersistEnabled,
		Directory:     cfg.PersistDir,
		MaxFileSize:   int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		FlushInterval: cfg.FlushInterval,
	})
	if err := persistor.Start(); err != nil {
		return fmt.Errorf("failed to start persistence: %w", err)
	}
	defer persistor.Stop()

	pool := workerpool.New(cfg.Workers)
	defer pool.Shutdown()

	var writer ingest.MessageWriter
	if cfg.PersistEnabled {
		writer = persistor
	}
	ingestServer := ingest.NewServer(cfg.IngestAddr, buf, writer, pool)
	if err := ingestServer.Start(); err != nil {
		return fmt.Errorf("failed to start ingest listener: %w", err)
	}
	defer ingestServer.Stop()

	queryServer := queryserver.NewServer(cfg.QueryAddr, buf, pool)
	if err := queryServer.Start(); err != nil {
		return fmt.Errorf("failed to start query listener: %w", err)
	}
	defer queryServer.Stop()

	var ircServer *irc.Server
	if cfg.IRCEnabled {
		ircServer = irc.NewServer(cfg.IRCAddr, buf, pool)
		if err := ircServer.Start(); err != nil {
			return fmt.Errorf("failed to start IRC server: %w", err)
		}
		defer ircServer.Stop()
	}

	if cfg.APIEnabled {
		apiServer := httpserver.NewServer(cfg.APIAddr, buf)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now — not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	printStartupBanner(cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Printf("server: errgroup exited with error: %v", err)
	}

	signal.Stop(sigCh)
	return nil
}

func printStartupBanner(cfg appConfig) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╦  ╔═╗╔═╗╔═╗╔═╗╔═╗╔╦╗╔═╗╦═╗
    ║  ║ ║║ ╦║  ╠═╣╚═╗ ║ ║╣ ╠╦╝
    ╩═╝╚═╝╚═╝╚═╝╩ ╩╚═╝ ╩ ╚═╝╩╚═`)

	var lines []string
	lines = append(lines, "")
	lines = append(lines, logo)
	lines = append(lines, "    "+dim.Render("v"+version))
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator)
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Listeners"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  TCP Ingest     %s", check, cyan.Render(cfg.IngestAddr)))
	lines = append(lines, fmt.Sprintf("    %s  Query          %s", check, cyan.Render(cfg.QueryAddr)))
	if cfg.IRCEnabled {
		lines = append(lines, fmt.Sprintf("    %s  IRC            %s", check, cyan.Render(cfg.IRCAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  IRC            %s", dot, dim.Render("disabled")))
	}
	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  Buffer         %s", check, dim.Render(fmt.Sprintf("%d entries", cfg.BufferCapacity))))
	if cfg.PersistEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Persistence    %s", check,
			dim.Render(fmt.Sprintf("%s (rotate at %d MB)", cfg.PersistDir, cfg.MaxFileSizeMB))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Persistence    %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Runtime"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  Workers        %s", check, dim.Render(fmt.Sprintf("%d", cfg.Workers))))
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(cfg.ConfigPath)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "")
	lines = append(lines, separator)
	lines = append(lines, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}
