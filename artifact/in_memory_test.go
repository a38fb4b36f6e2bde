package artifact

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// Interface compliance (compile-time assertions)
var _ Store = (*InMemoryStore)(nil)

func TestInMemoryStore_SaveGetIsolation(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryStore()
	data := []byte("hello")
	loc, err := svc.Save(ctx, "run1", "critic", data)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if loc != "mem://run1/critic" {
		t.Fatalf("unexpected location %q", loc)
	}
	// mutate original slice
	data[0] = 'H'
	out, err := svc.Get(ctx, "run1", "critic")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(out) != "hello" { // should not reflect mutation
		t.Fatalf("expected 'hello', got %q", string(out))
	}
	// mutate returned slice
	out[0] = 'x'
	out2, _ := svc.Get(ctx, "run1", "critic")
	if string(out2) != "hello" { // original stored should be unchanged
		t.Fatalf("expected isolation, got %q", string(out2))
	}
}

func TestInMemoryStore_OverwriteInPlace(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryStore()
	if _, err := svc.Save(ctx, "run1", "critic", []byte("first")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Save(ctx, "run1", "critic", []byte("second")); err != nil {
		t.Fatal(err)
	}
	out, err := svc.Get(ctx, "run1", "critic")
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "second" {
		t.Fatalf("expected overwrite, got %q", string(out))
	}
	roles, _ := svc.List(ctx, "run1")
	if len(roles) != 1 {
		t.Fatalf("expected 1 role after overwrite, got %d", len(roles))
	}
}

func TestInMemoryStore_RunsDoNotCollide(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryStore()
	if _, err := svc.Save(ctx, "run1", "critic", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Save(ctx, "run2", "critic", []byte("b")); err != nil {
		t.Fatal(err)
	}
	out, err := svc.Get(ctx, "run1", "critic")
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "a" {
		t.Fatalf("runs collided: got %q", string(out))
	}
}

func TestInMemoryStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryStore()
	if _, err := svc.Save(ctx, "run1", "critic", []byte("1")); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Save(ctx, "run1", "fixer", []byte("2")); err != nil {
		t.Fatal(err)
	}
	roles, err := svc.List(ctx, "run1")
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 roles, got %d", len(roles))
	}
	if err := svc.Delete(ctx, "run1", "critic"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, "run1", "critic"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted artifact, got %v", err)
	}
	roles, _ = svc.List(ctx, "run1")
	if len(roles) != 1 {
		t.Fatalf("expected 1 role after delete, got %d", len(roles))
	}
}

func TestInMemoryStore_Concurrency(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			role := fmt.Sprintf("role%d", i%10)
			if _, err := svc.Save(ctx, "run1", role, []byte("data")); err != nil {
				t.Errorf("save err: %v", err)
			}
			_, _ = svc.List(ctx, "run1")
		}()
	}
	wg.Wait()
	roles, err := svc.List(ctx, "run1")
	if err != nil {
		t.Fatal(err)
	}
	if len(roles) == 0 {
		t.Fatalf("expected some artifacts, got 0")
	}
}
