package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// storeContract exercises the behavior every backend must satisfy.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	// Absent key.
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
	}

	// Read-after-write.
	if err := s.Set(ctx, "k1", []byte("v1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "v1" {
		t.Errorf("Get = %q, want v1", got)
	}

	// Overwrite.
	if err := s.Set(ctx, "k1", []byte("v2")); err != nil {
		t.Fatalf("Set (overwrite) failed: %v", err)
	}
	got, err = s.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get after overwrite failed: %v", err)
	}
	if string(got) != "v2" {
		t.Errorf("Get after overwrite = %q, want v2", got)
	}

	// Delete, then delete again (absent key is not an error).
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Errorf("Delete of absent key err = %v, want nil", err)
	}

	// Empty value round-trips.
	if err := s.Set(ctx, "empty", []byte{}); err != nil {
		t.Fatalf("Set empty failed: %v", err)
	}
	got, err = s.Get(ctx, "empty")
	if err != nil {
		t.Fatalf("Get empty failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Get empty = %q, want empty", got)
	}
}

func TestMemory_Contract(t *testing.T) {
	storeContract(t, NewMemory())
}

func TestMemory_CopiesValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	original := []byte("value")
	if err := m.Set(ctx, "k", original); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	original[0] = 'X'

	got, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("stored value mutated: %q", got)
	}

	got[0] = 'Y'
	again, _ := m.Get(ctx, "k")
	if string(again) != "value" {
		t.Errorf("returned value aliases storage: %q", again)
	}
}

func TestMemory_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", n%4)
			for j := 0; j < 100; j++ {
				_ = m.Set(ctx, key, []byte("payload"))
				_, _ = m.Get(ctx, key)
				_ = m.Delete(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}

func TestFile_Contract(t *testing.T) {
	s, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	storeContract(t, s)
}

func TestFile_KeysShardIntoDirectories(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile failed: %v", err)
	}
	ctx := context.Background()

	if err := s.Set(ctx, "httpcache:GET:https://example.com/a", []byte("a")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Set(ctx, "httpcache:GET:https://example.com/b", []byte("b")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get(ctx, "httpcache:GET:https://example.com/a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "a" {
		t.Errorf("Get = %q, want a", got)
	}
}

func TestLevelDB_Contract(t *testing.T) {
	s, err := OpenLevelDB(t.TempDir() + "/db")
	if err != nil {
		t.Fatalf("OpenLevelDB failed: %v", err)
	}
	defer s.Close()
	storeContract(t, s)
}

func TestLevelDB_SurvivesReopen(t *testing.T) {
	path := t.TempDir() + "/db"
	ctx := context.Background()

	s, err := OpenLevelDB(path)
	if err != nil {
		t.Fatalf("OpenLevelDB failed: %v", err)
	}
	if err := s.Set(ctx, "persist", []byte("across restarts")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = OpenLevelDB(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, err := s.Get(ctx, "persist")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != "across restarts" {
		t.Errorf("Get after reopen = %q", got)
	}
}
