package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/ipm-pk/fingerprint/internal/infrastructure/database"
)

// storeFactories builds each PartStore implementation for the shared
// contract tests.
func storeFactories(t *testing.T) map[string]func(t *testing.T) PartStore {
	t.Helper()
	return map[string]func(t *testing.T) PartStore{
		"memory": func(t *testing.T) PartStore {
			return NewMemoryPartStore()
		},
		"sqlite": func(t *testing.T) PartStore {
			db, err := database.Open(database.Config{
				Path:        filepath.Join(t.TempDir(), "parts.db"),
				WALMode:     true,
				BusyTimeout: 5,
			})
			if err != nil {
				t.Fatalf("opening database: %v", err)
			}
			t.Cleanup(func() { db.Close() })

			store, err := NewSQLitePartStore(context.Background(), db.DB)
			if err != nil {
				t.Fatalf("creating part store: %v", err)
			}
			return store
		},
	}
}

func TestPartStore_AddListRemove(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			p1 := Part{Fingerprint: "fp1", PartID: "P1", BatchID: "B1", PartType: "T1"}
			p2 := Part{Fingerprint: "fp2", PartID: "P2", BatchID: "B1", PartType: "T1"}

			if err := store.Add(ctx, "DB1", p1); err != nil {
				t.Fatalf("Add error = %v", err)
			}
			if err := store.Add(ctx, "DB1", p2); err != nil {
				t.Fatalf("Add error = %v", err)
			}
			if err := store.Add(ctx, "DB2", p1); err != nil {
				t.Fatalf("Add error = %v", err)
			}

			names, err := store.Databases(ctx)
			if err != nil {
				t.Fatalf("Databases error = %v", err)
			}
			if len(names) != 2 || names[0] != "DB1" || names[1] != "DB2" {
				t.Errorf("Databases = %v, want [DB1 DB2]", names)
			}

			parts, err := store.List(ctx, "DB1")
			if err != nil {
				t.Fatalf("List error = %v", err)
			}
			if len(parts) != 2 {
				t.Fatalf("List = %d parts, want 2", len(parts))
			}
			if parts[0].PartID != "P1" {
				t.Errorf("first part = %+v, want P1 (insertion order)", parts[0])
			}

			if err := store.Remove(ctx, "DB1", p1); err != nil {
				t.Fatalf("Remove error = %v", err)
			}
			parts, err = store.List(ctx, "DB1")
			if err != nil {
				t.Fatalf("List error = %v", err)
			}
			if len(parts) != 1 || parts[0].PartID != "P2" {
				t.Errorf("after remove: %+v, want only P2", parts)
			}
		})
	}
}

func TestPartStore_MissingDatabase(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			if _, err := store.List(ctx, "nope"); !errors.Is(err, ErrDatabaseNotFound) {
				t.Errorf("List err = %v, want ErrDatabaseNotFound", err)
			}
			if err := store.Remove(ctx, "nope", Part{}); !errors.Is(err, ErrDatabaseNotFound) {
				t.Errorf("Remove err = %v, want ErrDatabaseNotFound", err)
			}
		})
	}
}

func TestPartStore_RemoveMissingPart(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			if err := store.Add(ctx, "DB1", Part{PartID: "P1"}); err != nil {
				t.Fatalf("Add error = %v", err)
			}
			err := store.Remove(ctx, "DB1", Part{PartID: "P2"})
			if !errors.Is(err, ErrPartNotFound) {
				t.Errorf("Remove err = %v, want ErrPartNotFound", err)
			}
		})
	}
}

func TestSQLitePartStore_RemoveDeletesOneRow(t *testing.T) {
	factory := storeFactories(t)["sqlite"]
	store := factory(t)
	ctx := context.Background()

	p := Part{Fingerprint: "fp", PartID: "P1", BatchID: "B1", PartType: "T1"}
	if err := store.Add(ctx, "DB1", p); err != nil {
		t.Fatalf("Add error = %v", err)
	}
	if err := store.Add(ctx, "DB1", p); err != nil {
		t.Fatalf("Add error = %v", err)
	}

	if err := store.Remove(ctx, "DB1", p); err != nil {
		t.Fatalf("Remove error = %v", err)
	}
	parts, err := store.List(ctx, "DB1")
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if len(parts) != 1 {
		t.Errorf("parts after single remove = %d, want 1", len(parts))
	}
}
