package ingest

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/logcaster/logcaster/internal/model"
	"github.com/logcaster/logcaster/internal/workerpool"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []model.LogEntry
}

func (r *recordingSink) Push(message, level, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, model.LogEntry{Message: message, Level: level, Source: source})
}

func (r *recordingSink) snapshot() []model.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.LogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

type recordingWriter struct {
	mu       sync.Mutex
	messages []string
}

func (r *recordingWriter) Write(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func startServer(t *testing.T, sink EntrySink, writer MessageWriter) (*Server, *workerpool.Pool) {
	t.Helper()
	pool := workerpool.New(4)
	s := NewServer("127.0.0.1:0", sink, writer, pool)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		s.Stop()
		pool.Shutdown()
	})
	return s, pool
}

func TestIngestLines(t *testing.T) {
	sink := &recordingSink{}
	s, _ := startServer(t, sink, nil)

	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if _, err := conn.Write([]byte("first\nsecond\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	conn.Close()

	waitFor(t, func() bool { return len(sink.snapshot()) == 2 })
	entries := sink.snapshot()
	if entries[0].Message != "first" || entries[1].Message != "second" {
		t.Fatalf("entries = %v", entries)
	}
}

func TestIngestDefaultsMetadata(t *testing.T) {
	sink := &recordingSink{}
	s, _ := startServer(t, sink, nil)

	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn.Write([]byte("hello\n"))
	conn.Close()

	waitFor(t, func() bool { return len(sink.snapshot()) == 1 })
	e := sink.snapshot()[0]
	if e.Level != "info" || e.Source != "unknown" {
		t.Fatalf("entry metadata = %q/%q, want info/unknown", e.Level, e.Source)
	}
}

func TestIngestTruncatesLongLines(t *testing.T) {
	sink := &recordingSink{}
	s, _ := startServer(t, sink, nil)

	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	long := strings.Repeat("a", 2000)
	conn.Write([]byte(long + "\n"))
	conn.Close()

	waitFor(t, func() bool { return len(sink.snapshot()) == 1 })
	msg := sink.snapshot()[0].Message
	if len(msg) != model.MaxMessageSize {
		t.Fatalf("len(message) = %d, want %d", len(msg), model.MaxMessageSize)
	}
	if !strings.HasSuffix(msg, "...") {
		t.Fatalf("truncated message does not end in ...: %q", msg[len(msg)-8:])
	}
}

func TestIngestMirrorsToWriter(t *testing.T) {
	sink := &recordingSink{}
	writer := &recordingWriter{}
	s, _ := startServer(t, sink, writer)

	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	conn.Write([]byte("persist me\n"))
	conn.Close()

	waitFor(t, func() bool {
		writer.mu.Lock()
		defer writer.mu.Unlock()
		return len(writer.messages) == 1 && writer.messages[0] == "persist me"
	})
}

func TestClientCountReleasedOnClose(t *testing.T) {
	sink := &recordingSink{}
	s, _ := startServer(t, sink, nil)

	conn, err := net.Dial("tcp", s.Addr())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	waitFor(t, func() bool { return s.ClientCount() == 1 })
	conn.Close()
	waitFor(t, func() bool { return s.ClientCount() == 0 })
}
