// Package persist appends ingested messages to a rotating file set without
// blocking producers. Writes are queued and drained by one writer goroutine.
package persist

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// CurrentFileName is the live append target inside the log directory.
	CurrentFileName = "current.log"

	// DefaultDirectory receives rotated and live files when none is configured.
	DefaultDirectory = "./logs"

	// DefaultMaxFileSize triggers rotation at 10 MB.
	DefaultMaxFileSize = 10 * 1024 * 1024

	// DefaultFlushInterval bounds how long an enqueued message waits for the
	// writer when no new writes arrive to signal it.
	DefaultFlushInterval = 1 * time.Second

	rotatedTimeLayout = "20060102-150405"
)

// Config holds construction parameters for the Persistor.
type Config struct {
	Enabled       bool
	Directory     string
	MaxFileSize   int64
	FlushInterval time.Duration
}

// Persistor drains an in-memory write queue to an append-only file, rotating
// it by size. When disabled, every method is a no-op.
type Persistor struct {
	cfg Config

	mu     sync.Mutex
	queue  []string
	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	stopOnce sync.Once

	// writer-goroutine state, unsynchronized by design
	file *os.File
	size int64
}

// New creates a Persistor. Call Start before Write.
func New(cfg Config) *Persistor {
	if cfg.Directory == "" {
		cfg.Directory = DefaultDirectory
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = DefaultMaxFileSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	return &Persistor{
		cfg:    cfg,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start creates the log directory if missing, opens the current file in
// append mode, and spawns the writer goroutine.
func (p *Persistor) Start() error {
	if !p.cfg.Enabled {
		return nil
	}

	if err := os.MkdirAll(p.cfg.Directory, 0755); err != nil {
		return fmt.Errorf("persist: mkdir %s: %w", p.cfg.Directory, err)
	}
	if err := p.openCurrent(); err != nil {
		return err
	}

	p.wg.Add(1)
	go p.writerLoop()

	return nil
}

// Write enqueues a message for the writer. It never blocks beyond the queue
// mutex and never touches the filesystem on the caller's goroutine.
func (p *Persistor) Write(message string) {
	if !p.cfg.Enabled {
		return
	}

	p.mu.Lock()
	p.queue = append(p.queue, message)
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Stop signals the writer, which drains every queued message before exiting,
// and waits for it. Safe to call more than once.
func (p *Persistor) Stop() {
	if !p.cfg.Enabled {
		return
	}
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

func (p *Persistor) writerLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.notify:
			p.drain()
		case <-ticker.C:
			p.drain()
		case <-p.done:
			p.drain()
			if p.file != nil {
				if err := p.file.Close(); err != nil {
					log.Printf("persist: close: %v", err)
				}
				p.file = nil
			}
			return
		}
	}
}

// drain takes the whole queue in one swap and appends it to the current
// file, rotating afterwards when the size threshold is reached.
func (p *Persistor) drain() {
	p.mu.Lock()
	batch := p.queue
	p.queue = nil
	p.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	if p.file == nil {
		// A previous rotation failed to reopen the current file. Retry now;
		// if it still fails, this batch is dropped.
		if err := p.openCurrent(); err != nil {
			log.Printf("persist: dropping %d messages, no open file: %v", len(batch), err)
			return
		}
	}

	for _, message := range batch {
		n, err := p.file.WriteString(message + "\n")
		p.size += int64(n)
		if err != nil {
			log.Printf("persist: write: %v", err)
		}
	}

	if p.size >= p.cfg.MaxFileSize {
		p.rotate()
	}
}

// rotate closes current.log, renames it with a local-time stamp, and reopens
// a fresh current file. A rename collision within the same second gets a
// monotonic suffix.
func (p *Persistor) rotate() {
	if err := p.file.Close(); err != nil {
		log.Printf("persist: close before rotate: %v", err)
	}
	p.file = nil

	current := filepath.Join(p.cfg.Directory, CurrentFileName)
	target := p.rotatedName(time.Now())
	if err := os.Rename(current, target); err != nil {
		log.Printf("persist: rotate rename: %v", err)
	}

	if err := p.openCurrent(); err != nil {
		log.Printf("persist: reopen after rotate: %v", err)
	}
}

func (p *Persistor) rotatedName(now time.Time) string {
	stamp := now.Local().Format(rotatedTimeLayout)
	name := filepath.Join(p.cfg.Directory, "log-"+stamp+".log")
	for n := 1; ; n++ {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			return name
		}
		name = filepath.Join(p.cfg.Directory, fmt.Sprintf("log-%s-%d.log", stamp, n))
	}
}

func (p *Persistor) openCurrent() error {
	path := filepath.Join(p.cfg.Directory, CurrentFileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("persist: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("persist: stat %s: %w", path, err)
	}
	p.file = f
	p.size = info.Size()
	return nil
}
