package models

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCatalogResolve(t *testing.T) {
	catalog, err := NewCatalog([]Model{
		{ID: "claude-a", BackendID: "backend-a", ContextWindow: 100},
		{ID: "claude-b", ContextWindow: 200},
	}, "claude-a")
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	tests := []struct {
		name        string
		id          string
		wantBackend string
	}{
		{name: "known id", id: "claude-a", wantBackend: "backend-a"},
		{name: "backend defaults to id", id: "claude-b", wantBackend: "claude-b"},
		{name: "unknown id falls back to default", id: "gpt-4o", wantBackend: "backend-a"},
		{name: "empty id falls back to default", id: "", wantBackend: "backend-a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := catalog.Resolve(tt.id).BackendID; got != tt.wantBackend {
				t.Errorf("Resolve(%q).BackendID = %q, want %q", tt.id, got, tt.wantBackend)
			}
		})
	}
}

func TestNewCatalogRejectsInvalidTables(t *testing.T) {
	tests := []struct {
		name      string
		entries   []Model
		defaultID string
	}{
		{name: "empty", entries: nil, defaultID: "x"},
		{name: "missing default", entries: []Model{{ID: "a"}}, defaultID: "b"},
		{name: "duplicate id", entries: []Model{{ID: "a"}, {ID: "a"}}, defaultID: "a"},
		{name: "empty id", entries: []Model{{ID: ""}}, defaultID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewCatalog(tt.entries, tt.defaultID); err == nil {
				t.Error("NewCatalog() error = nil, want error")
			}
		})
	}
}

func TestCatalogIsImmutable(t *testing.T) {
	entries := []Model{{ID: "a", BackendID: "x"}}
	catalog, err := NewCatalog(entries, "a")
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	entries[0].BackendID = "mutated"
	listed := catalog.List()
	listed[0].BackendID = "mutated"

	want := []Model{{ID: "a", BackendID: "x", DisplayName: "a"}}
	if diff := cmp.Diff(want, catalog.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestDefaults(t *testing.T) {
	for _, provider := range []string{"gemini", "anthropic"} {
		t.Run(provider, func(t *testing.T) {
			catalog, err := NewCatalog(Defaults(provider), DefaultID)
			if err != nil {
				t.Fatalf("NewCatalog(Defaults) error = %v", err)
			}
			if catalog.Default().ID != DefaultID {
				t.Errorf("Default().ID = %q, want %q", catalog.Default().ID, DefaultID)
			}
		})
	}
}
