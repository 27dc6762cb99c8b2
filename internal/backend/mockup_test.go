package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ipm-pk/fingerprint/internal/status"
)

// newTestMockup returns a ready mockup (reset already executed) over an
// in-memory part store, with deterministic candidate selection.
func newTestMockup(t *testing.T) *Mockup {
	t.Helper()
	m := NewMockup(NewMemoryPartStore(),
		WithMockupDurations(fastDurations()),
		WithMockupPicker(func(int) int { return 0 }),
	)
	if _, err := m.caps[MethodResetSystem].Run(context.Background(), nil); err != nil {
		t.Fatalf("reset_system error = %v", err)
	}
	return m
}

func addPartArgs(partID string) []any {
	return []any{"DB1", true, false, partID, "B1", "T1"}
}

func TestMockup_ResetSystem(t *testing.T) {
	m := NewMockup(NewMemoryPartStore(), WithMockupDurations(fastDurations()))

	if _, err := m.caps[MethodResetSystem].Run(context.Background(), nil); err != nil {
		t.Fatalf("reset_system error = %v", err)
	}

	got := m.Status()
	if got.RunState != status.RunStateSystemReady {
		t.Errorf("RunState = %v, want %v", got.RunState, status.RunStateSystemReady)
	}
	if got.ErrorKind != status.ErrorKindNone {
		t.Errorf("ErrorKind = %v, want %v", got.ErrorKind, status.ErrorKindNone)
	}
}

func TestMockup_AddPart_Stores(t *testing.T) {
	m := newTestMockup(t)
	ctx := context.Background()

	fields, err := m.caps[MethodAddPart].Run(ctx, addPartArgs("P1"))
	if err != nil {
		t.Fatalf("add_part error = %v", err)
	}
	if fields["PartIDsOfDuplicates"] != "" {
		t.Errorf("PartIDsOfDuplicates = %v, want empty", fields["PartIDsOfDuplicates"])
	}

	parts, err := m.parts.List(ctx, "DB1")
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if len(parts) != 1 || parts[0].PartID != "P1" {
		t.Errorf("stored parts = %+v, want one entry P1", parts)
	}
}

func TestMockup_AddPart_IDDuplicate(t *testing.T) {
	m := newTestMockup(t)
	ctx := context.Background()

	if _, err := m.caps[MethodAddPart].Run(ctx, addPartArgs("P1")); err != nil {
		t.Fatalf("first add_part error = %v", err)
	}

	fields, err := m.caps[MethodAddPart].Run(ctx, addPartArgs("P1"))
	if err != nil {
		t.Fatalf("second add_part error = %v", err)
	}
	if fields["PartIDsOfDuplicates"] != "P1" {
		t.Errorf("PartIDsOfDuplicates = %v, want %q", fields["PartIDsOfDuplicates"], "P1")
	}

	got := m.Status()
	if got.RunState != status.RunStateSystemError {
		t.Errorf("RunState = %v, want %v", got.RunState, status.RunStateSystemError)
	}
	if got.ErrorKind != status.ErrorKindIDDuplicateFound {
		t.Errorf("ErrorKind = %v, want %v", got.ErrorKind, status.ErrorKindIDDuplicateFound)
	}

	// The duplicate was not stored.
	parts, err := m.parts.List(ctx, "DB1")
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if len(parts) != 1 {
		t.Errorf("stored parts = %d, want 1", len(parts))
	}

	// Further mutating commands are refused until reset.
	if _, err := m.caps[MethodAddPart].Run(ctx, addPartArgs("P2")); !errors.Is(err, ErrNotReady) {
		t.Errorf("add_part in error state: err = %v, want ErrNotReady", err)
	}

	if _, err := m.caps[MethodResetSystem].Run(ctx, nil); err != nil {
		t.Fatalf("reset_system error = %v", err)
	}
	if _, err := m.caps[MethodAddPart].Run(ctx, addPartArgs("P2")); err != nil {
		t.Errorf("add_part after reset: err = %v", err)
	}
}

func TestMockup_AddPart_FPDuplicate(t *testing.T) {
	m := newTestMockup(t)
	ctx := context.Background()

	// Same identifying fields produce the same pseudo fingerprint; only
	// the fingerprint check is enabled for the second call.
	if _, err := m.caps[MethodAddPart].Run(ctx, []any{"DB1", false, false, "P1", "B1", "T1"}); err != nil {
		t.Fatalf("first add_part error = %v", err)
	}
	if _, err := m.caps[MethodAddPart].Run(ctx, []any{"DB2", false, true, "P1", "B1", "T1"}); err != nil {
		t.Fatalf("second add_part error = %v", err)
	}

	got := m.Status()
	if got.ErrorKind != status.ErrorKindFPDuplicateFound {
		t.Errorf("ErrorKind = %v, want %v", got.ErrorKind, status.ErrorKindFPDuplicateFound)
	}
}

func TestMockup_TracePart_EmptyDatabases(t *testing.T) {
	m := newTestMockup(t)

	fields, err := m.caps[MethodTracePart].Run(context.Background(),
		[]any{"DB1", "", false, "", false, "", false})
	if err != nil {
		t.Fatalf("trace_part error = %v", err)
	}

	if fields["PartID"] != "" {
		t.Errorf("PartID = %v, want empty", fields["PartID"])
	}
	for _, name := range []string{
		"CurrentConfidenceValue1", "CurrentConfidenceValue2",
		"AverageConfidenceValue1", "AverageConfidenceValue2",
	} {
		if fields[name] != 0 {
			t.Errorf("%s = %v, want 0", name, fields[name])
		}
	}

	got := m.Status()
	if got.RunState != status.RunStateSystemReady {
		t.Errorf("RunState = %v, want %v", got.RunState, status.RunStateSystemReady)
	}
	if got.ErrorKind != status.ErrorKindNone {
		t.Errorf("ErrorKind = %v, want %v", got.ErrorKind, status.ErrorKindNone)
	}
}

func TestMockup_TracePart_MovesMatch(t *testing.T) {
	m := newTestMockup(t)
	ctx := context.Background()

	if _, err := m.caps[MethodAddPart].Run(ctx, []any{"source", true, false, "P1", "B1", "T1"}); err != nil {
		t.Fatalf("add_part error = %v", err)
	}

	fields, err := m.caps[MethodTracePart].Run(ctx,
		[]any{"target", "source", false, "", false, "", false})
	if err != nil {
		t.Fatalf("trace_part error = %v", err)
	}
	if fields["PartID"] != "P1" {
		t.Fatalf("PartID = %v, want P1", fields["PartID"])
	}
	if fields["CurrentConfidenceValue1"] == 0 {
		t.Error("CurrentConfidenceValue1 = 0, want non-zero for a match")
	}

	// The matched entry moved from source to target.
	source, err := m.parts.List(ctx, "source")
	if err != nil {
		t.Fatalf("List(source) error = %v", err)
	}
	if len(source) != 0 {
		t.Errorf("source still holds %d parts", len(source))
	}
	target, err := m.parts.List(ctx, "target")
	if err != nil {
		t.Fatalf("List(target) error = %v", err)
	}
	if len(target) != 1 || target[0].PartID != "P1" {
		t.Errorf("target parts = %+v, want one entry P1", target)
	}
}

func TestMockup_TracePart_BatchFilter(t *testing.T) {
	m := newTestMockup(t)
	ctx := context.Background()

	if _, err := m.caps[MethodAddPart].Run(ctx, []any{"db", true, false, "P1", "B1", "T1"}); err != nil {
		t.Fatalf("add_part error = %v", err)
	}

	// Batchwise tracing with a non-matching batch list finds nothing.
	fields, err := m.caps[MethodTracePart].Run(ctx,
		[]any{"db", "", false, "B2;B3", true, "", false})
	if err != nil {
		t.Fatalf("trace_part error = %v", err)
	}
	if fields["PartID"] != "" {
		t.Errorf("PartID = %v, want no match", fields["PartID"])
	}

	// A matching batch list finds the entry.
	fields, err = m.caps[MethodTracePart].Run(ctx,
		[]any{"db", "", false, "B1;B2", true, "", false})
	if err != nil {
		t.Fatalf("trace_part error = %v", err)
	}
	if fields["PartID"] != "P1" {
		t.Errorf("PartID = %v, want P1", fields["PartID"])
	}
}

func TestMockup_InvalidArguments(t *testing.T) {
	m := newTestMockup(t)

	tests := []struct {
		name string
		args []any
	}{
		{"too few", []any{"DB1"}},
		{"wrong type", []any{"DB1", "yes", false, "P1", "B1", "T1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.caps[MethodAddPart].Run(context.Background(), tt.args)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("add_part(%v) err = %v, want ErrInvalidArgument", tt.args, err)
			}
		})
	}
}

// overlapDetectingStore wraps a PartStore and fails the test if two
// capability bodies touch it concurrently. Since every store access in a
// mutating capability happens inside the provider's exclusion lock, any
// overlap means the serialization invariant is broken.
type overlapDetectingStore struct {
	PartStore
	t      *testing.T
	inUse  int32
	inUseM sync.Mutex
}

func (s *overlapDetectingStore) enter() {
	s.inUseM.Lock()
	if s.inUse != 0 {
		s.t.Error("concurrent part store access: critical sections interleaved")
	}
	s.inUse++
	s.inUseM.Unlock()
}

func (s *overlapDetectingStore) leave() {
	s.inUseM.Lock()
	s.inUse--
	s.inUseM.Unlock()
}

func (s *overlapDetectingStore) Databases(ctx context.Context) ([]string, error) {
	s.enter()
	defer s.leave()
	return s.PartStore.Databases(ctx)
}

func (s *overlapDetectingStore) Add(ctx context.Context, database string, part Part) error {
	s.enter()
	defer s.leave()
	return s.PartStore.Add(ctx, database, part)
}

// Issue N concurrent mutating calls and assert their critical sections do
// not interleave (the per-provider exclusion lock totally orders them).
func TestMockup_MutatingCallsSerialized(t *testing.T) {
	store := &overlapDetectingStore{PartStore: NewMemoryPartStore(), t: t}
	m := NewMockup(store, WithMockupDurations(fastDurations()))
	ctx := context.Background()

	if _, err := m.caps[MethodResetSystem].Run(ctx, nil); err != nil {
		t.Fatalf("reset_system error = %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			args := []any{"DB1", false, false, fmt.Sprintf("P%d", n), "B1", "T1"}
			if _, err := m.caps[MethodAddPart].Run(ctx, args); err != nil {
				t.Errorf("add_part error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	parts, err := m.parts.List(ctx, "DB1")
	if err != nil {
		t.Fatalf("List error = %v", err)
	}
	if len(parts) != workers {
		t.Errorf("stored parts = %d, want %d", len(parts), workers)
	}
}

func TestPseudoFingerprint(t *testing.T) {
	// With padding disabled the fingerprint is the plain concatenation,
	// so identical identifying fields collide and different ones do not.
	a := pseudoFingerprint("P1", "B1", "T1")
	b := pseudoFingerprint("P1", "B1", "T1")
	c := pseudoFingerprint("P2", "B1", "T1")

	if a != b {
		t.Errorf("identical inputs: %q != %q", a, b)
	}
	if a == c {
		t.Errorf("different inputs collide: %q", a)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a;b;c", 3},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); len(got) != tt.want {
			t.Errorf("splitList(%q) = %v, want %d elements", tt.in, got, tt.want)
		}
	}
}
