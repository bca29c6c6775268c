package analysis

import "testing"

func TestNormalizeCollapsesWhitespaceAndPunctuation(t *testing.T) {
	got := Normalize("SELECT  name ,  email FROM users WHERE  id  =  1")
	want := "SELECT name,email FROM users WHERE id = 1"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeStripsBackticks(t *testing.T) {
	got := Normalize("SELECT `name` FROM `users`")
	want := "SELECT name FROM users"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeRewritesOrmAliases(t *testing.T) {
	got := Normalize("SELECT t0.name FROM users t0 JOIN orders t1 ON t0.id = t1.user_id")
	want := "SELECT users.name FROM users users JOIN orders orders ON users.id = orders.user_id"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeReordersInListsNumerically(t *testing.T) {
	got := Normalize("SELECT * FROM users WHERE id IN (3,1,2)")
	want := "SELECT * FROM users WHERE id IN(1,2,3)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestNormalizeReordersInListsLexicographically(t *testing.T) {
	got := Normalize("SELECT * FROM users WHERE status IN ('c','a','b')")
	want := "SELECT * FROM users WHERE status IN('a','b','c')"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSplitTopLevelRespectsQuotedCommas(t *testing.T) {
	parts := splitTopLevel("'a,b', 'c'")
	if len(parts) != 2 || parts[0] != "'a,b'" || parts[1] != "'c'" {
		t.Fatalf("unexpected split: %#v", parts)
	}
}
