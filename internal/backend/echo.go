package backend

import (
	"context"
	"sync"

	"github.com/ipm-pk/fingerprint/internal/status"
)

// Echo is the placeholder Fingerprint system for the first controller
// integration step. Capabilities log their invocation, walk the expected
// status transitions with simulated delays and return canned results; no
// call validation is performed.
type Echo struct {
	register  *status.Register
	durations Durations
	logger    Logger

	// mu is the exclusion lock serializing mutating capabilities.
	mu sync.Mutex

	caps map[string]Capability
}

// EchoOption configures an Echo provider.
type EchoOption func(*Echo)

// WithEchoDurations overrides the stock execution estimates.
func WithEchoDurations(d Durations) EchoOption {
	return func(e *Echo) { e.durations = d }
}

// WithEchoLogger sets the provider logger.
func WithEchoLogger(l Logger) EchoOption {
	return func(e *Echo) { e.logger = l }
}

// NewEcho creates an Echo provider with its capability table built and
// ready for linking.
func NewEcho(opts ...EchoOption) *Echo {
	e := &Echo{
		register:  status.NewRegister(),
		durations: DefaultDurations(),
		logger:    noopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}

	d := e.durations
	e.caps = map[string]Capability{
		MethodResetSystem: {
			Run:      e.resetSystem,
			Estimate: d.fixedEstimator(MethodResetSystem),
		},
		MethodGetStatus: {
			Run:      e.getStatus,
			Estimate: d.fixedEstimator(MethodGetStatus),
		},
		MethodSetImageMatchingType: {
			Run:      e.setImageMatchingType,
			Estimate: d.fixedEstimator(MethodSetImageMatchingType),
		},
		MethodAddPart: {
			Run:      e.addPart,
			Estimate: d.fixedEstimator(MethodAddPart),
		},
		MethodTracePart: {
			Run:      e.tracePart,
			Estimate: d.fixedEstimator(MethodTracePart),
		},
	}
	return e
}

// Name implements Provider.
func (e *Echo) Name() string { return "echo" }

// Status implements Provider.
func (e *Echo) Status() status.Status { return e.register.Snapshot() }

// Capabilities implements Provider.
func (e *Echo) Capabilities() map[string]Capability { return e.caps }

// Register exposes the status register for the periodic publisher and
// operator surfaces.
func (e *Echo) Register() *status.Register { return e.register }

func (e *Echo) resetSystem(ctx context.Context, args []any) (Fields, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Info("echo: reset_system", "args", args)
	e.register.Reset()
	if err := sleep(ctx, e.durations.delay(MethodResetSystem, 1)); err != nil {
		return nil, err
	}
	e.register.Set(status.RunStateSystemReady, status.ResultStateUndefined, status.ErrorKindNone, "")
	return Fields{}, nil
}

func (e *Echo) getStatus(ctx context.Context, args []any) (Fields, error) {
	e.logger.Info("echo: get_status", "args", args)
	if err := sleep(ctx, e.durations.delay(MethodGetStatus, 1)); err != nil {
		return nil, err
	}
	return Fields(e.register.Snapshot().Variables()), nil
}

func (e *Echo) setImageMatchingType(ctx context.Context, args []any) (Fields, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Info("echo: set_image_matching_type", "args", args)
	e.register.Set(status.RunStateCommandRunning, status.ResultStateUndefined, status.ErrorKindNone, MethodSetImageMatchingType)
	if err := sleep(ctx, e.durations.delay(MethodSetImageMatchingType, 1)); err != nil {
		return nil, err
	}
	e.register.Set(status.RunStateSystemReady, status.ResultStateReady, status.ErrorKindNone, "")
	return Fields{}, nil
}

func (e *Echo) addPart(ctx context.Context, args []any) (Fields, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Info("echo: add_part", "args", args)
	e.register.Set(status.RunStateAcquiringImage, status.ResultStateUndefined, status.ErrorKindNone, MethodAddPart)
	if err := sleep(ctx, e.durations.delay(MethodAddPart, acquirePhase)); err != nil {
		return nil, err
	}
	e.register.Set(status.RunStateCommandRunning, status.ResultStateUndefined, status.ErrorKindNone, MethodAddPart)
	if err := sleep(ctx, e.durations.delay(MethodAddPart, matchPhase)); err != nil {
		return nil, err
	}
	e.register.Set(status.RunStateSystemReady, status.ResultStateReady, status.ErrorKindNone, "")
	return Fields{
		"ServiceExecutionResult": 0,
		"PartIDsOfDuplicates":    "",
	}, nil
}

func (e *Echo) tracePart(ctx context.Context, args []any) (Fields, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger.Info("echo: trace_part", "args", args)
	e.register.Set(status.RunStateAcquiringImage, status.ResultStateUndefined, status.ErrorKindNone, MethodTracePart)
	if err := sleep(ctx, e.durations.delay(MethodTracePart, acquirePhase)); err != nil {
		return nil, err
	}
	e.register.Set(status.RunStateCommandRunning, status.ResultStateUndefined, status.ErrorKindNone, MethodTracePart)
	if err := sleep(ctx, e.durations.delay(MethodTracePart, matchPhase)); err != nil {
		return nil, err
	}
	e.register.Set(status.RunStateSystemReady, status.ResultStateReady, status.ErrorKindNone, "")
	return Fields{
		"ServiceExecutionResult":  0,
		"PartID":                  "",
		"BatchID":                 "",
		"PartType":                "",
		"CurrentConfidenceValue1": 99,
		"CurrentConfidenceValue2": 100,
		"AverageConfidenceValue1": 97,
		"AverageConfidenceValue2": 98,
	}, nil
}

// Phase split of the simulated sensing commands: image acquisition takes
// 40% of the estimate, matching the remaining 60%.
const (
	acquirePhase = 0.4
	matchPhase   = 0.6
)
