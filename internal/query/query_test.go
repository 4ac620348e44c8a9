package query

import (
	"testing"
	"time"
)

func TestParseKeywordsAndOperator(t *testing.T) {
	q, err := Parse("QUERY keywords=err,timeout operator=OR")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.Keywords) != 2 || q.Keywords[0] != "err" || q.Keywords[1] != "timeout" {
		t.Fatalf("keywords = %v", q.Keywords)
	}
	if q.Op != OpOr {
		t.Fatalf("op = %v, want OR", q.Op)
	}
}

func TestParseDefaultsToAnd(t *testing.T) {
	for _, line := range []string{
		"QUERY keyword=x",
		"QUERY keyword=x operator=AND",
		"QUERY keyword=x operator=bogus",
	} {
		q, err := Parse(line)
		if err != nil {
			t.Fatalf("Parse(%q): %v", line, err)
		}
		if q.Op != OpAnd {
			t.Fatalf("Parse(%q): op = %v, want AND", line, q.Op)
		}
	}
}

func TestParseIgnoresJunkTokens(t *testing.T) {
	q, err := Parse("QUERY noequals keywords=a unknown=zzz")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.Keywords) != 1 || q.Keywords[0] != "a" {
		t.Fatalf("keywords = %v", q.Keywords)
	}
}

func TestParseKeywordCap(t *testing.T) {
	q, err := Parse("QUERY keywords=a,b,c,d,e,f,g,h,i,j,k,l")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.Keywords) != MaxKeywords {
		t.Fatalf("keywords = %d, want %d", len(q.Keywords), MaxKeywords)
	}
}

func TestParseBadRegex(t *testing.T) {
	if _, err := Parse("QUERY regex=["); err == nil {
		t.Fatal("expected error for unterminated character class")
	}
}

func TestParseBadTimestamp(t *testing.T) {
	if _, err := Parse("QUERY time_from=yesterday"); err == nil {
		t.Fatal("expected error for non-numeric time_from")
	}
}

func TestMatchEmptyQueryAcceptsAll(t *testing.T) {
	q, _ := Parse("QUERY")
	if !q.Matches("anything at all", time.Now()) {
		t.Fatal("empty query rejected an entry")
	}
}

func TestMatchKeywordAnd(t *testing.T) {
	q, _ := Parse("QUERY keywords=conn,refused")
	if !q.Matches("conn refused by peer", time.Now()) {
		t.Fatal("AND rejected a message containing both keywords")
	}
	if q.Matches("conn reset by peer", time.Now()) {
		t.Fatal("AND accepted a message missing a keyword")
	}
}

func TestMatchKeywordOr(t *testing.T) {
	q, _ := Parse("QUERY keywords=conn,refused operator=OR")
	if !q.Matches("conn reset by peer", time.Now()) {
		t.Fatal("OR rejected a message containing one keyword")
	}
	if q.Matches("all quiet", time.Now()) {
		t.Fatal("OR accepted a message containing no keyword")
	}
}

// Regex and keywords AND together: a message matching the regex but none of
// the OR keywords is rejected.
func TestMatchRegexAndKeywordsCompose(t *testing.T) {
	q, err := Parse("QUERY keywords=err,timeout operator=OR regex=fail")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.Matches("pipeline failed quickly", time.Now()) {
		t.Fatal("accepted despite no keyword matching")
	}
	if !q.Matches("err: pipeline failed", time.Now()) {
		t.Fatal("rejected despite regex and keyword matching")
	}
}

func TestMatchRegexCaseInsensitive(t *testing.T) {
	q, _ := Parse("QUERY regex=PANIC")
	if !q.Matches("kernel panic: out of ideas", time.Now()) {
		t.Fatal("regex should match case-insensitively")
	}
}

func TestMatchTimeWindowInclusive(t *testing.T) {
	from := time.Unix(1000, 0)
	to := time.Unix(2000, 0)
	q, err := Parse("QUERY time_from=1000 time_to=2000")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	for _, tc := range []struct {
		ts   time.Time
		want bool
	}{
		{from, true},
		{to, true},
		{time.Unix(1500, 0), true},
		{from.Add(-time.Second), false},
		{to.Add(time.Second), false},
	} {
		if got := q.Matches("m", tc.ts); got != tc.want {
			t.Fatalf("Matches at %v = %v, want %v", tc.ts.Unix(), got, tc.want)
		}
	}
}

func TestMatchHalfOpenWindows(t *testing.T) {
	q, _ := Parse("QUERY time_from=1000")
	if q.Matches("m", time.Unix(999, 0)) {
		t.Fatal("accepted before from bound")
	}
	if !q.Matches("m", time.Unix(5_000_000, 0)) {
		t.Fatal("rejected with no upper bound")
	}

	q, _ = Parse("QUERY time_to=1000")
	if !q.Matches("m", time.Unix(0, 0)) {
		t.Fatal("rejected with no lower bound")
	}
	if q.Matches("m", time.Unix(1001, 0)) {
		t.Fatal("accepted past to bound")
	}
}
