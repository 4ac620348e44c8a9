package queryserver

import (
	"fmt"
	"strings"

	"github.com/logcaster/logcaster/internal/buffer"
	"github.com/logcaster/logcaster/internal/query"
)

// Store is the slice of the ring buffer the query protocol reads.
type Store interface {
	SearchEnhanced(m buffer.Matcher) []string
	Stats() (total, dropped uint64)
	Size() int
}

const helpText = `Available commands:
  STATS - Show buffer statistics
  COUNT - Show number of logs in buffer
  HELP  - Show this help message
  QUERY <parameters> - Search logs with parameters:

Query parameters:
  keywords=<w1,w2,..> - Multiple keywords (comma-separated)
  operator=<AND|OR>   - Keyword matching logic (default: AND)
  regex=<pattern>     - Regular expression pattern (case-insensitive)
  time_from=<unix_ts> - Start time (Unix timestamp)
  time_to=<unix_ts>   - End time (Unix timestamp)

Example: QUERY keywords=error,timeout operator=AND regex=failed
`

// Handler evaluates one textual command against the store.
type Handler struct {
	store Store
}

// NewHandler creates a command handler over the given store.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// Execute dispatches a single command and returns the full response,
// newline-terminated.
func (h *Handler) Execute(command string) string {
	switch {
	case strings.HasPrefix(command, "QUERY"):
		return h.handleQuery(command)
	case command == "STATS":
		total, dropped := h.store.Stats()
		return fmt.Sprintf("STATS: Total=%d, Dropped=%d, Current=%d\n", total, dropped, h.store.Size())
	case command == "COUNT":
		return fmt.Sprintf("COUNT: %d\n", h.store.Size())
	case command == "HELP":
		return helpText
	default:
		return "ERROR: Unknown command. Use HELP for usage.\n"
	}
}

func (h *Handler) handleQuery(command string) string {
	q, err := query.Parse(command)
	if err != nil {
		return "ERROR: " + err.Error() + "\n"
	}

	results := h.store.SearchEnhanced(q)
	var b strings.Builder
	fmt.Fprintf(&b, "FOUND: %d matches\n", len(results))
	for _, r := range results {
		b.WriteString(r)
		b.WriteByte('\n')
	}
	return b.String()
}
