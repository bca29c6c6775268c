package analysis

import "testing"

func TestAnalyzeSelectRowLookupFingerprint(t *testing.T) {
	a := New()
	k, err := a.AnalyzeSelect("SELECT * FROM users WHERE id = ?", []interface{}{10})
	if err != nil {
		t.Fatalf("AnalyzeSelect: %v", err)
	}
	if k.Classification != ClassRowLookup {
		t.Fatalf("classification = %v, want row-lookup", k.Classification)
	}
	if k.Fingerprint != "users:id=10:row-lookup" {
		t.Fatalf("fingerprint = %q, want users:id=10:row-lookup", k.Fingerprint)
	}
}

func TestAnalyzeSelectInExpansionMatchesLiteral(t *testing.T) {
	a := New()
	bound, err := a.AnalyzeSelect("SELECT * FROM users WHERE id IN (?)", []interface{}{[]interface{}{3, 1, 2}})
	if err != nil {
		t.Fatalf("AnalyzeSelect bound: %v", err)
	}
	literal, err := a.AnalyzeSelect("SELECT * FROM users WHERE id IN (1,2,3)", nil)
	if err != nil {
		t.Fatalf("AnalyzeSelect literal: %v", err)
	}
	if bound.Fingerprint != literal.Fingerprint {
		t.Fatalf("fingerprints differ: %q vs %q", bound.Fingerprint, literal.Fingerprint)
	}
}

func TestAnalyzeSelectDeterministic(t *testing.T) {
	a := New()
	k1, err := a.AnalyzeSelect("SELECT name, email FROM users WHERE status = 'active' ORDER BY name LIMIT 10", nil)
	if err != nil {
		t.Fatalf("AnalyzeSelect: %v", err)
	}
	k2, err := a.AnalyzeSelect("select name,  email from users where status='active' order by name limit 10", nil)
	if err != nil {
		t.Fatalf("AnalyzeSelect: %v", err)
	}
	if k1.Fingerprint != k2.Fingerprint {
		t.Fatalf("fingerprints differ for equivalent queries: %q vs %q", k1.Fingerprint, k2.Fingerprint)
	}
}

func TestAnalyzeSelectDistinguishesLimit(t *testing.T) {
	a := New()
	k1, err := a.AnalyzeSelect("SELECT name FROM users WHERE status = 'active' LIMIT 10", nil)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := a.AnalyzeSelect("SELECT name FROM users WHERE status = 'active' LIMIT 20", nil)
	if err != nil {
		t.Fatal(err)
	}
	if k1.Fingerprint == k2.Fingerprint {
		t.Fatalf("expected different fingerprints for different LIMIT values")
	}
}

func TestAnalyzeSelectJoinClassification(t *testing.T) {
	a := New()
	k, err := a.AnalyzeSelect(
		"SELECT orders.id, users.name FROM orders JOIN users ON orders.user_id = users.id WHERE users.status = 'active'",
		nil,
	)
	if err != nil {
		t.Fatalf("AnalyzeSelect: %v", err)
	}
	if k.Classification != ClassJoin {
		t.Fatalf("classification = %v, want join", k.Classification)
	}
	if len(k.Tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(k.Tables))
	}
	if len(k.Tables[0].JoinConditions) != 1 {
		t.Fatalf("join conditions = %d, want 1", len(k.Tables[0].JoinConditions))
	}
}

func TestAnalyzeSelectAggregateClassification(t *testing.T) {
	a := New()
	k, err := a.AnalyzeSelect("SELECT COUNT(*) FROM users WHERE created_at >= '2024-01-01'", nil)
	if err != nil {
		t.Fatalf("AnalyzeSelect: %v", err)
	}
	if k.Classification != ClassAggregate {
		t.Fatalf("classification = %v, want aggregate", k.Classification)
	}
}

func TestAnalyzeSelectSubqueryIsComplex(t *testing.T) {
	a := New()
	k, err := a.AnalyzeSelect("SELECT * FROM users WHERE id IN (SELECT user_id FROM orders)", nil)
	if err != nil {
		t.Fatalf("AnalyzeSelect: %v", err)
	}
	if k.Classification != ClassComplex {
		t.Fatalf("classification = %v, want complex", k.Classification)
	}
	if !k.HasSubquery {
		t.Fatalf("expected hasSubquery = true")
	}
}

func TestAnalyzeWriteUpdate(t *testing.T) {
	a := New()
	w, err := a.AnalyzeWrite("UPDATE users SET email = ? WHERE id = ?", []interface{}{"x@y", 10})
	if err != nil {
		t.Fatalf("AnalyzeWrite: %v", err)
	}
	if w.Table != "users" || w.Operation != WriteUpdate {
		t.Fatalf("unexpected write info: %+v", w)
	}
	if len(w.ModifiedColumns) != 1 || w.ModifiedColumns[0] != "email" {
		t.Fatalf("modified columns = %v", w.ModifiedColumns)
	}
	if len(w.AffectedRows) != 1 || w.AffectedRows[0] != "10" {
		t.Fatalf("affected rows = %v", w.AffectedRows)
	}
}

func TestAnalyzeWriteInsertAlwaysHasNoConditions(t *testing.T) {
	a := New()
	w, err := a.AnalyzeWrite("INSERT INTO users (id, name) VALUES (?, ?)", []interface{}{99, "New"})
	if err != nil {
		t.Fatalf("AnalyzeWrite: %v", err)
	}
	if w.Table != "users" || w.Operation != WriteInsert {
		t.Fatalf("unexpected write info: %+v", w)
	}
	if len(w.Conditions) != 0 {
		t.Fatalf("conditions = %v, want none", w.Conditions)
	}
}

func TestAnalyzeSelectParseFailure(t *testing.T) {
	a := New()
	_, err := a.AnalyzeSelect("SELEC * FROM users", nil)
	if err == nil {
		t.Fatal("expected parse error")
	}
	var analysisErr *Error
	if !asError(err, &analysisErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if analysisErr.Kind != ParseFailed {
		t.Fatalf("kind = %v, want ParseFailed", analysisErr.Kind)
	}
}

func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
