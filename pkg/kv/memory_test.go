package kv

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, found, err := s.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("Get missing = (found=%v, err=%v)", found, err)
	}

	if err := s.Set(ctx, "k", "v1"); err != nil {
		t.Fatal(err)
	}
	if v, found, _ := s.Get(ctx, "k"); !found || v != "v1" {
		t.Fatalf("Get = (%q, %v)", v, found)
	}

	if err := s.Set(ctx, "k", "v2"); err != nil {
		t.Fatal(err)
	}
	if v, _, _ := s.Get(ctx, "k"); v != "v2" {
		t.Fatalf("overwrite: got %q", v)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := s.Get(ctx, "k"); found {
		t.Fatal("deleted key still present")
	}

	// Deleting again is a no-op.
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
}
