package tools

import (
	"context"
	"testing"

	"github.com/centsible/centsible/internal/model"
)

type staticTool struct{ name string }

func (s staticTool) Name() string        { return s.name }
func (s staticTool) Description() string { return "test tool" }
func (s staticTool) Parameters() []Param { return nil }
func (s staticTool) Execute(context.Context, map[string]any, ToolContext) model.ToolResult {
	return model.Ok("ok")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"record_expense", "query_expenses", "delete_expense"} {
		if err := r.Register(staticTool{name: name}); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	if err := r.Register(staticTool{name: "record_expense"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
	if err := r.Register(staticTool{}); err == nil {
		t.Fatal("empty name registration should fail")
	}

	if _, ok := r.Get("query_expenses"); !ok {
		t.Fatal("Get should find a registered tool")
	}
	if _, ok := r.Get("nonexistent_tool"); ok {
		t.Fatal("Get should miss an unregistered tool")
	}

	contracts := r.Contracts()
	if len(contracts) != 3 {
		t.Fatalf("Contracts: want 3, got %d", len(contracts))
	}
	// Registration order is stable.
	want := []string{"record_expense", "query_expenses", "delete_expense"}
	for i, c := range contracts {
		if c.Name != want[i] {
			t.Fatalf("Contracts[%d] = %s, want %s", i, c.Name, want[i])
		}
	}
	if len(r.All()) != 3 {
		t.Fatalf("All: want 3, got %d", len(r.All()))
	}
}

func TestArgCoercion(t *testing.T) {
	args := map[string]any{
		"s":       " hello ",
		"f":       12.5,
		"i":       7,
		"numstr":  "30.5",
		"badnum":  "many",
		"b":       true,
		"bstr":    "TRUE",
		"list":    []any{"alice", " bob ", 3},
		"csv":     "alice, bob",
		"empties": []any{"", "  "},
	}

	if got := stringArg(args, "s"); got != "hello" {
		t.Fatalf("stringArg: %q", got)
	}
	if got := stringArg(args, "missing"); got != "" {
		t.Fatalf("stringArg missing: %q", got)
	}
	if got, ok := numberArg(args, "f"); !ok || got != 12.5 {
		t.Fatalf("numberArg float: %v %v", got, ok)
	}
	if got, ok := numberArg(args, "i"); !ok || got != 7 {
		t.Fatalf("numberArg int: %v %v", got, ok)
	}
	if got, ok := numberArg(args, "numstr"); !ok || got != 30.5 {
		t.Fatalf("numberArg string: %v %v", got, ok)
	}
	if _, ok := numberArg(args, "badnum"); ok {
		t.Fatal("numberArg should reject non-numeric strings")
	}
	if !boolArg(args, "b") || !boolArg(args, "bstr") || boolArg(args, "missing") {
		t.Fatal("boolArg coercion")
	}
	if got := stringsArg(args, "list"); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Fatalf("stringsArg list: %v", got)
	}
	if got := stringsArg(args, "csv"); len(got) != 2 || got[1] != "bob" {
		t.Fatalf("stringsArg csv: %v", got)
	}
	if got := stringsArg(args, "empties"); len(got) != 0 {
		t.Fatalf("stringsArg empties: %v", got)
	}
}
