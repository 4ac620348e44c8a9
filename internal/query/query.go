// Package query implements the textual search grammar accepted on the query
// port and the matcher it compiles to.
package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxKeywords bounds the keyword list of a single query.
const MaxKeywords = 10

// Operator combines keyword clauses.
type Operator int

const (
	OpAnd Operator = iota
	OpOr
)

// Query is a compiled search predicate over (message, timestamp) pairs.
type Query struct {
	Keywords []string
	Regex    *regexp.Regexp
	TimeFrom *time.Time
	TimeTo   *time.Time
	Op       Operator
}

// Parse compiles a "QUERY key=value ..." line. Tokens without '=' and
// unrecognized keys are ignored; a malformed regex or timestamp is an error.
func Parse(line string) (*Query, error) {
	q := &Query{Op: OpAnd}

	fields := strings.Fields(line)
	if len(fields) > 0 && strings.EqualFold(fields[0], "QUERY") {
		fields = fields[1:]
	}

	for _, field := range fields {
		eq := strings.Index(field, "=")
		if eq < 0 {
			continue
		}
		key := strings.ToLower(field[:eq])
		value := field[eq+1:]

		switch key {
		case "keyword", "keywords":
			for _, kw := range strings.Split(value, ",") {
				if kw == "" {
					continue
				}
				if len(q.Keywords) == MaxKeywords {
					break
				}
				q.Keywords = append(q.Keywords, kw)
			}
		case "regex":
			re, err := regexp.Compile("(?i)" + value)
			if err != nil {
				return nil, fmt.Errorf("invalid regex pattern: %w", err)
			}
			q.Regex = re
		case "time_from":
			ts, err := parseUnix(value)
			if err != nil {
				return nil, fmt.Errorf("invalid time_from: %w", err)
			}
			q.TimeFrom = &ts
		case "time_to":
			ts, err := parseUnix(value)
			if err != nil {
				return nil, fmt.Errorf("invalid time_to: %w", err)
			}
			q.TimeTo = &ts
		case "operator":
			if strings.EqualFold(value, "OR") {
				q.Op = OpOr
			}
		}
	}
	return q, nil
}

func parseUnix(value string) (time.Time, error) {
	sec, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0), nil
}

// Matches reports whether an entry satisfies the query. Filters apply in
// order: time window (inclusive on both ends), regex, then keywords under
// the configured operator. A query with no filters accepts everything.
func (q *Query) Matches(message string, timestamp time.Time) bool {
	if q.TimeFrom != nil && timestamp.Before(*q.TimeFrom) {
		return false
	}
	if q.TimeTo != nil && timestamp.After(*q.TimeTo) {
		return false
	}

	if q.Regex != nil && !q.Regex.MatchString(message) {
		return false
	}

	if len(q.Keywords) > 0 {
		if q.Op == OpAnd {
			for _, kw := range q.Keywords {
				if !strings.Contains(message, kw) {
					return false
				}
			}
		} else {
			found := false
			for _, kw := range q.Keywords {
				if strings.Contains(message, kw) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
