package backend

import (
	"context"
	"math/rand"
	"strings"
	"sync"

	"github.com/ipm-pk/fingerprint/internal/status"
)

// fingerprintSize is the padded length of a simulated fingerprint. Real
// systems use a fixed-size binary feature vector; the simulation derives a
// string from the identifying fields, padded to this length. Zero disables
// padding.
const fingerprintSize = 0

// listSeparator splits the multi-valued TracePart string arguments
// (reference databases, batch IDs, part types).
const listSeparator = ";"

// Mockup simulates a Track & Trace Fingerprint system for marker-free part
// identification. It exhibits the full capability set of a real system
// with simulated acquisition and matching, which allows a controller
// integration to be tested end to end without sensor hardware.
type Mockup struct {
	register  *status.Register
	parts     PartStore
	durations Durations
	logger    Logger

	// mu is the exclusion lock serializing mutating capabilities.
	mu sync.Mutex

	// imageMatching is the active matching algorithm name.
	imageMatching string

	// pick selects one candidate index during TracePart matching.
	// Replaceable for deterministic tests.
	pick func(n int) int

	caps map[string]Capability
}

// MockupOption configures a Mockup provider.
type MockupOption func(*Mockup)

// WithMockupDurations overrides the stock execution estimates.
func WithMockupDurations(d Durations) MockupOption {
	return func(m *Mockup) { m.durations = d }
}

// WithMockupLogger sets the provider logger.
func WithMockupLogger(l Logger) MockupOption {
	return func(m *Mockup) { m.logger = l }
}

// WithMockupPicker replaces the random candidate selection. Tests use this
// to make TracePart deterministic.
func WithMockupPicker(pick func(n int) int) MockupOption {
	return func(m *Mockup) { m.pick = pick }
}

// NewMockup creates a Mockup provider over the given part store with its
// capability table built and ready for linking.
func NewMockup(parts PartStore, opts ...MockupOption) *Mockup {
	m := &Mockup{
		register:      status.NewRegister(),
		parts:         parts,
		durations:     DefaultDurations(),
		logger:        noopLogger{},
		imageMatching: "default",
		pick:          rand.Intn,
	}
	for _, opt := range opts {
		opt(m)
	}

	d := m.durations
	m.caps = map[string]Capability{
		MethodResetSystem: {
			Run:      m.resetSystem,
			Estimate: d.fixedEstimator(MethodResetSystem),
		},
		MethodGetStatus: {
			Run:      m.getStatus,
			Estimate: d.fixedEstimator(MethodGetStatus),
		},
		MethodSetImageMatchingType: {
			Run:      m.setImageMatchingType,
			Estimate: d.fixedEstimator(MethodSetImageMatchingType),
		},
		MethodAddPart: {
			Run:      m.addPart,
			Estimate: d.fixedEstimator(MethodAddPart),
		},
		MethodTracePart: {
			Run:      m.tracePart,
			Estimate: d.fixedEstimator(MethodTracePart),
		},
	}
	return m
}

// Name implements Provider.
func (m *Mockup) Name() string { return "mockup" }

// Status implements Provider.
func (m *Mockup) Status() status.Status { return m.register.Snapshot() }

// Capabilities implements Provider.
func (m *Mockup) Capabilities() map[string]Capability { return m.caps }

// Register exposes the status register for the periodic publisher and
// operator surfaces.
func (m *Mockup) Register() *status.Register { return m.register }

// ready reports whether the device accepts mutating commands.
func (m *Mockup) ready() bool {
	s := m.register.Snapshot()
	return s.RunState == status.RunStateSystemReady && s.ErrorKind == status.ErrorKindNone
}

func (m *Mockup) resetSystem(ctx context.Context, _ []any) (Fields, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Info("mockup: reset_system")
	m.register.Reset()
	if err := sleep(ctx, m.durations.delay(MethodResetSystem, 1)); err != nil {
		return nil, err
	}
	m.register.Set(status.RunStateSystemReady, status.ResultStateUndefined, status.ErrorKindNone, "")
	return Fields{}, nil
}

// getStatus returns the device status fields. It deliberately takes no
// lock so a controller can poll while a command runs.
func (m *Mockup) getStatus(ctx context.Context, _ []any) (Fields, error) {
	m.logger.Debug("mockup: get_status")
	if err := sleep(ctx, m.durations.delay(MethodGetStatus, 1)); err != nil {
		return nil, err
	}
	return Fields(m.register.Snapshot().Variables()), nil
}

func (m *Mockup) setImageMatchingType(ctx context.Context, args []any) (Fields, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}
	m.logger.Info("mockup: set_image_matching_type", "name", name)

	m.register.Set(status.RunStateCommandRunning, status.ResultStateUndefined, status.ErrorKindNone, MethodSetImageMatchingType)
	m.imageMatching = name
	if err := sleep(ctx, m.durations.delay(MethodSetImageMatchingType, 1)); err != nil {
		return nil, err
	}
	m.register.Set(status.RunStateSystemReady, status.ResultStateReady, status.ErrorKindNone, "")
	return Fields{}, nil
}

// ImageMatching returns the active matching algorithm name.
func (m *Mockup) ImageMatching() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.imageMatching
}

// addPart acquires an image of the part, derives its fingerprint, runs the
// requested duplicate checks across all databases and stores the entry.
//
// Arguments: database, check_id_duplicates, check_fp_duplicates, part_id,
// batch_id, part_type.
func (m *Mockup) addPart(ctx context.Context, args []any) (Fields, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	database, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}
	checkID, err := boolArg(args, 1)
	if err != nil {
		return nil, err
	}
	checkFP, err := boolArg(args, 2)
	if err != nil {
		return nil, err
	}
	partID, err := stringArg(args, 3)
	if err != nil {
		return nil, err
	}
	batchID, err := stringArg(args, 4)
	if err != nil {
		return nil, err
	}
	partType, err := stringArg(args, 5)
	if err != nil {
		return nil, err
	}

	m.logger.Info("mockup: add_part",
		"database", database,
		"part_id", partID,
		"batch_id", batchID,
		"part_type", partType,
		"check_id_duplicates", checkID,
		"check_fp_duplicates", checkFP,
	)

	if !m.ready() {
		m.logger.Warn("mockup: add_part refused, system not ready", "status", m.register.Snapshot().RunState)
		return nil, ErrNotReady
	}

	// Image acquisition phase.
	m.register.Set(status.RunStateAcquiringImage, status.ResultStateUndefined, status.ErrorKindNone, MethodAddPart)
	if err := sleep(ctx, m.durations.delay(MethodAddPart, acquirePhase)); err != nil {
		return nil, err
	}

	// Matching phase: derive the pseudo fingerprint and search for
	// duplicates in every database.
	m.register.Set(status.RunStateCommandRunning, status.ResultStateUndefined, status.ErrorKindNone, MethodAddPart)
	fingerprint := pseudoFingerprint(partID, batchID, partType)

	var idDuplicates, fpDuplicates []Part
	if checkID || checkFP {
		names, err := m.parts.Databases(ctx)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			entries, err := m.parts.List(ctx, name)
			if err != nil {
				return nil, err
			}
			for _, entry := range entries {
				if checkID && entry.PartID == partID {
					idDuplicates = append(idDuplicates, entry)
				}
				if checkFP && entry.Fingerprint == fingerprint {
					fpDuplicates = append(fpDuplicates, entry)
				}
			}
		}
	}

	if err := sleep(ctx, m.durations.delay(MethodAddPart, matchPhase)); err != nil {
		return nil, err
	}

	// Duplicates block the insert and leave the device in an error state
	// until the controller resets it.
	if len(idDuplicates) > 0 {
		m.logger.Warn("mockup: add_part found part ID duplicates", "count", len(idDuplicates))
		m.register.Set(status.RunStateSystemError, status.ResultStateReady, status.ErrorKindIDDuplicateFound, "")
		return Fields{"PartIDsOfDuplicates": joinPartIDs(idDuplicates, fpDuplicates)}, nil
	}
	if len(fpDuplicates) > 0 {
		m.logger.Warn("mockup: add_part found fingerprint duplicates", "count", len(fpDuplicates))
		m.register.Set(status.RunStateSystemError, status.ResultStateReady, status.ErrorKindFPDuplicateFound, "")
		return Fields{"PartIDsOfDuplicates": joinPartIDs(idDuplicates, fpDuplicates)}, nil
	}

	part := Part{
		Fingerprint: fingerprint,
		PartID:      partID,
		BatchID:     batchID,
		PartType:    partType,
	}
	if err := m.parts.Add(ctx, database, part); err != nil {
		return nil, err
	}

	m.register.Set(status.RunStateSystemReady, status.ResultStateReady, status.ErrorKindNone, "")
	m.logger.Info("mockup: add_part stored", "database", database, "part_id", partID)
	return Fields{"PartIDsOfDuplicates": ""}, nil
}

// tracePart acquires an image of the part and searches the reference
// databases for a match, moving the matched entry into the target
// database.
//
// Arguments: database, ref_databases (";"-joined), trace_all_databases,
// batch_ids (";"-joined), trace_batchwise, part_types (";"-joined),
// trace_typewise.
func (m *Mockup) tracePart(ctx context.Context, args []any) (Fields, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	database, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}
	refDatabases, err := stringArg(args, 1)
	if err != nil {
		return nil, err
	}
	traceAll, err := boolArg(args, 2)
	if err != nil {
		return nil, err
	}
	batchIDs, err := stringArg(args, 3)
	if err != nil {
		return nil, err
	}
	batchwise, err := boolArg(args, 4)
	if err != nil {
		return nil, err
	}
	partTypes, err := stringArg(args, 5)
	if err != nil {
		return nil, err
	}
	typewise, err := boolArg(args, 6)
	if err != nil {
		return nil, err
	}

	m.logger.Info("mockup: trace_part",
		"database", database,
		"ref_databases", refDatabases,
		"trace_all", traceAll,
		"batchwise", batchwise,
		"typewise", typewise,
	)

	if !m.ready() {
		m.logger.Warn("mockup: trace_part refused, system not ready", "status", m.register.Snapshot().RunState)
		return nil, ErrNotReady
	}

	// Image acquisition phase.
	m.register.Set(status.RunStateAcquiringImage, status.ResultStateUndefined, status.ErrorKindNone, MethodTracePart)
	if err := sleep(ctx, m.durations.delay(MethodTracePart, acquirePhase)); err != nil {
		return nil, err
	}

	// Matching phase: collect the databases to search, keeping the
	// declared order; the target database is appended if absent, and
	// trace_all adds every remaining known database.
	m.register.Set(status.RunStateCommandRunning, status.ResultStateUndefined, status.ErrorKindNone, MethodTracePart)
	batchList := splitList(batchIDs)
	typeList := splitList(partTypes)
	searchOrder := splitList(refDatabases)
	if !contains(searchOrder, database) {
		searchOrder = append(searchOrder, database)
	}
	if traceAll {
		known, err := m.parts.Databases(ctx)
		if err != nil {
			return nil, err
		}
		for _, name := range known {
			if !contains(searchOrder, name) {
				searchOrder = append(searchOrder, name)
			}
		}
	}

	var (
		matched   Part
		matchedDB string
		found     bool
	)
	for _, name := range searchOrder {
		entries, err := m.parts.List(ctx, name)
		if err != nil {
			if name != database {
				m.logger.Warn("mockup: trace_part skipping missing database", "database", name)
			}
			continue
		}

		// Filter by batch and type when requested. The real matching
		// algorithm compares feature vectors; the simulation picks a
		// random candidate among the admissible entries.
		var candidates []Part
		for _, entry := range entries {
			if batchwise && !contains(batchList, entry.BatchID) {
				continue
			}
			if typewise && !contains(typeList, entry.PartType) {
				continue
			}
			candidates = append(candidates, entry)
		}
		if len(candidates) > 0 {
			matched = candidates[m.pick(len(candidates))]
			matchedDB = name
			found = true
			break
		}
	}

	if err := sleep(ctx, m.durations.delay(MethodTracePart, matchPhase)); err != nil {
		return nil, err
	}

	if !found {
		m.register.Set(status.RunStateSystemReady, status.ResultStateReady, status.ErrorKindNone, "")
		m.logger.Info("mockup: trace_part found no part")
		return noMatchResult(), nil
	}

	// Move the matched entry into the target database.
	if err := m.parts.Remove(ctx, matchedDB, matched); err != nil {
		return nil, err
	}
	if err := m.parts.Add(ctx, database, matched); err != nil {
		return nil, err
	}

	m.register.Set(status.RunStateSystemReady, status.ResultStateReady, status.ErrorKindNone, "")
	m.logger.Info("mockup: trace_part matched",
		"part_id", matched.PartID,
		"from", matchedDB,
		"to", database,
	)
	return Fields{
		"ServiceExecutionResult":  0,
		"PartID":                  matched.PartID,
		"BatchID":                 matched.BatchID,
		"PartType":                matched.PartType,
		"CurrentConfidenceValue1": 99,
		"CurrentConfidenceValue2": 100,
		"AverageConfidenceValue1": 97,
		"AverageConfidenceValue2": 98,
	}, nil
}

// noMatchResult is the TracePart result when no fitting entry exists:
// success outcome, empty identifiers, zero confidence values.
func noMatchResult() Fields {
	return Fields{
		"ServiceExecutionResult":  0,
		"PartID":                  "",
		"BatchID":                 "",
		"PartType":                "",
		"CurrentConfidenceValue1": 0,
		"CurrentConfidenceValue2": 0,
		"AverageConfidenceValue1": 0,
		"AverageConfidenceValue2": 0,
	}
}

// pseudoFingerprint derives the simulated fingerprint from the identifying
// fields, each padded to a third of fingerprintSize.
func pseudoFingerprint(partID, batchID, partType string) string {
	third := fingerprintSize / 3
	last := third + fingerprintSize%3
	return pad(partID, third) + pad(batchID, third) + pad(partType, last)
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("-", width-len(s)) + s
}

// splitList splits a ";"-joined protocol string argument; an empty string
// yields an empty list, not one empty element.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSeparator)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// joinPartIDs collects the part IDs of all duplicate entries.
func joinPartIDs(groups ...[]Part) string {
	var ids []string
	for _, group := range groups {
		for _, p := range group {
			ids = append(ids, p.PartID)
		}
	}
	return strings.Join(ids, listSeparator)
}
