package analysis

import "testing"

func TestBindParamsPositionalQuestion(t *testing.T) {
	got, err := BindParams("SELECT * FROM users WHERE id = ? AND name = ?", []interface{}{10, "ann"})
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT * FROM users WHERE id = 10 AND name = 'ann'"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBindParamsInExpansion(t *testing.T) {
	got, err := BindParams("SELECT * FROM users WHERE id IN (?)", []interface{}{[]interface{}{3, 1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT * FROM users WHERE id IN (3,1,2)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBindParamsDollarStyle(t *testing.T) {
	got, err := BindParams("SELECT * FROM users WHERE id = $1 AND status = $2", []interface{}{7, "active"})
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT * FROM users WHERE id = 7 AND status = 'active'"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBindParamsNamedStyle(t *testing.T) {
	got, err := BindParams("SELECT * FROM users WHERE id = :id", map[string]interface{}{"id": 42})
	if err != nil {
		t.Fatal(err)
	}
	want := "SELECT * FROM users WHERE id = 42"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBindParamsNoParamsLeavesSQLUnchanged(t *testing.T) {
	sql := "SELECT * FROM users WHERE active = TRUE"
	got, err := BindParams(sql, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != sql {
		t.Fatalf("got %q, want unchanged %q", got, sql)
	}
}

func TestFormatValueEscapesQuotes(t *testing.T) {
	got := formatValue("O'Brien")
	want := "'O''Brien'"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFormatValueNull(t *testing.T) {
	if got := formatValue(nil); got != "NULL" {
		t.Fatalf("got %q, want NULL", got)
	}
}
