package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andreyvit/partkv"
)

func setupDB(t *testing.T) *partkv.DB {
	t.Helper()
	db, err := partkv.Open("", partkv.Options{InMemory: true, IsTesting: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestPutGet(t *testing.T) {
	db := setupDB(t)
	var buf bytes.Buffer
	if err := runCreate(db, &buf, "users", 100, 10, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "11 partitions of 10 keys, capacity 110") {
		t.Errorf("unexpected create output: %q", buf.String())
	}

	buf.Reset()
	if err := runPut(db, &buf, "users", []string{"alice=admin", "bob=42", `carol={"age":7}`}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Stored 3 keys in users (3 of 110 used)") {
		t.Errorf("unexpected put output: %q", buf.String())
	}

	buf.Reset()
	if err := runGet(db, &buf, "users", []string{"alice"}, false); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "admin\n" {
		t.Errorf("expected admin, got %q", buf.String())
	}

	buf.Reset()
	if err := runGet(db, &buf, "users", []string{"bob", "carol"}, false); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "bob\t42\ncarol\t{\"age\":7}\n" {
		t.Errorf("unexpected get output: %q", buf.String())
	}

	buf.Reset()
	if err := runGet(db, &buf, "users", []string{"bob"}, true); err != nil {
		t.Fatal(err)
	}
	var parsed map[string]any
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed["bob"] != float64(42) {
		t.Errorf("expected bob=42 in JSON, got %v", parsed["bob"])
	}

	err := runGet(db, &buf, "users", []string{"dave"}, false)
	if !errors.Is(err, partkv.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestPutCapacityExceeded(t *testing.T) {
	db := setupDB(t)
	var buf bytes.Buffer
	if err := runCreate(db, &buf, "tiny", 1, 1, true); err != nil {
		t.Fatal(err)
	}
	if err := runPut(db, &buf, "tiny", []string{"a=1"}); err != nil {
		t.Fatal(err)
	}
	err := runPut(db, &buf, "tiny", []string{"b=2", "c=3"})
	if !errors.Is(err, partkv.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	buf.Reset()
	if err := runHas(db, &buf, "tiny", "b"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "0\n" {
		t.Errorf("expected b to be absent, got %q", buf.String())
	}
}

func TestPutInvalidPair(t *testing.T) {
	db := setupDB(t)
	if err := runCreate(db, &bytes.Buffer{}, "c", 0, 0, true); err != nil {
		t.Fatal(err)
	}
	if err := runPut(db, &bytes.Buffer{}, "c", []string{"novalue"}); err == nil {
		t.Error("expected error for a pair without =")
	}
}

func TestResizeAndDelete(t *testing.T) {
	db := setupDB(t)
	var buf bytes.Buffer
	if err := runCreate(db, &buf, "c", 1, 1, true); err != nil {
		t.Fatal(err)
	}
	if err := runPut(db, &buf, "c", []string{"a=1"}); err != nil {
		t.Fatal(err)
	}

	buf.Reset()
	if err := runResize(db, &buf, "c", 3, 1, true, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Resized c: 3 partitions, capacity 3, 1 groups attached, 1 discarded") {
		t.Errorf("unexpected resize output: %q", buf.String())
	}

	if err := runResize(db, &buf, "c", 2, 1, true, true); !errors.Is(err, partkv.ErrInvalidConfiguration) {
		t.Errorf("expected ErrInvalidConfiguration for a shrinking resize, got %v", err)
	}

	buf.Reset()
	if err := runDel(db, &buf, "c", []string{"a", "zzz"}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "Removed 1 values from c\n" {
		t.Errorf("unexpected del output: %q", buf.String())
	}
}

func TestResizeKeepsOldGroup(t *testing.T) {
	db := setupDB(t)
	var buf bytes.Buffer
	if err := runCreate(db, &buf, "c", 1, 1, true); err != nil {
		t.Fatal(err)
	}
	if err := runPut(db, &buf, "c", []string{"a=1"}); err != nil {
		t.Fatal(err)
	}
	if err := runResize(db, &buf, "c", 3, 1, true, false); err != nil {
		t.Fatal(err)
	}

	buf.Reset()
	if err := runHas(db, &buf, "c", "a"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "2\n" {
		t.Errorf("expected a in both groups, got %q", buf.String())
	}

	buf.Reset()
	if err := runCondense(db, &buf, "c", true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "1 groups attached, 1 discarded") {
		t.Errorf("unexpected condense output: %q", buf.String())
	}
}

func TestGrowSmallContainer(t *testing.T) {
	db := setupDB(t)
	var buf bytes.Buffer
	if err := runCreate(db, &buf, "c", 150, 1500, true); err != nil {
		t.Fatal(err)
	}
	if err := runPut(db, &buf, "c", []string{"a=1"}); err != nil {
		t.Fatal(err)
	}

	buf.Reset()
	if err := runGrow(db, &buf, "c", 1500, true, true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Grew c: 2 partitions, capacity 3000, 1 groups attached, 1 discarded") {
		t.Errorf("unexpected grow output: %q", buf.String())
	}

	buf.Reset()
	if err := runGet(db, &buf, "c", []string{"a"}, false); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "1\n" {
		t.Errorf("expected 1, got %q", buf.String())
	}
}

func TestListStatsDrop(t *testing.T) {
	db := setupDB(t)
	var buf bytes.Buffer
	if err := runList(db, &buf, false); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "No containers.\n" {
		t.Errorf("unexpected empty list output: %q", buf.String())
	}

	for _, name := range []string{"b", "a"} {
		if err := runCreate(db, &buf, name, 10, 5, true); err != nil {
			t.Fatal(err)
		}
	}

	buf.Reset()
	if err := runList(db, &buf, true); err != nil {
		t.Fatal(err)
	}
	var entries []partkv.CatalogEntry
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "a" || entries[1].Name != "b" {
		t.Errorf("unexpected entries: %+v", entries)
	}

	buf.Reset()
	if err := runStats(db, &buf, "a", false); err != nil {
		t.Fatal(err)
	}
	for _, check := range []string{"Container:  a", "Used:       0 of 10 (0.0%) [HEALTHY]", "Partitions: 2", "Group 0 (primary)"} {
		if !strings.Contains(buf.String(), check) {
			t.Errorf("expected stats output to contain %q, got:\n%s", check, buf.String())
		}
	}

	buf.Reset()
	if err := runDrop(db, &buf, "a"); err != nil {
		t.Fatal(err)
	}
	if err := runStats(db, &buf, "a", false); !errors.Is(err, partkv.ErrContainerNotFound) {
		t.Errorf("expected ErrContainerNotFound, got %v", err)
	}
}

func TestDump(t *testing.T) {
	db := setupDB(t)
	var buf bytes.Buffer
	if err := runCreate(db, &buf, "c", 10, 5, true); err != nil {
		t.Fatal(err)
	}
	if err := runPut(db, &buf, "c", []string{"k=v"}); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	if err := runDump(db, &buf, nil, true); err != nil {
		t.Fatal(err)
	}
	for _, check := range []string{"c (1 keys, 1 groups, steady)", `c.g0.1: "k" = "v"`} {
		if !strings.Contains(buf.String(), check) {
			t.Errorf("expected dump to contain %q, got:\n%s", check, buf.String())
		}
	}
}

func TestCheck(t *testing.T) {
	db := setupDB(t)
	var buf bytes.Buffer
	if err := runCreate(db, &buf, "full", 1, 1, true); err != nil {
		t.Fatal(err)
	}
	if err := runCreate(db, &buf, "empty", 10, 5, true); err != nil {
		t.Fatal(err)
	}
	if err := runPut(db, &buf, "full", []string{"a=1"}); err != nil {
		t.Fatal(err)
	}

	buf.Reset()
	err := runCheck(db, &buf, nil, partkv.Warning, false)
	if !errors.Is(err, errThresholdExceeded) {
		t.Errorf("expected errThresholdExceeded, got %v", err)
	}
	if !strings.Contains(buf.String(), "✗ full: 100.0% [CRITICAL]") {
		t.Errorf("expected failed mark for full, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "1 passed, 1 failed") {
		t.Errorf("unexpected summary:\n%s", buf.String())
	}

	buf.Reset()
	if err := runCheck(db, &buf, []string{"empty"}, partkv.Warning, true); err != nil {
		t.Fatal(err)
	}
	var results []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &results); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(results) != 1 || results[0]["passed"] != true || results[0]["status"] != "HEALTHY" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    partkv.Status
		wantErr bool
	}{
		{"warning", partkv.Warning, false},
		{"CRITICAL", partkv.Critical, false},
		{"Healthy", partkv.Healthy, false},
		{"bogus", 0, true},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hello", "hello"},
		{"42", "42"},
		{"true", "true"},
		{`"quoted"`, "quoted"},
		{`[1,2]`, "[1,2]"},
		{`{"a":1`, `{"a":1`},
	}
	for _, tt := range tests {
		if got := formatValue(parseValue(tt.input)); got != tt.want {
			t.Errorf("formatValue(parseValue(%q)) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMetricsHandler(t *testing.T) {
	db := setupDB(t)
	if err := runCreate(db, &bytes.Buffer{}, "c", 10, 5, true); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(newMetricsHandler(db, "kv"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	for _, check := range []string{`kv_container_capacity{container="c"} 10`, `kv_container_partitions{container="c"} 2`, "go_goroutines"} {
		if !strings.Contains(body.String(), check) {
			t.Errorf("expected metrics to contain %q", check)
		}
	}
}
