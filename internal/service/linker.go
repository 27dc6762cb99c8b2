package service

import (
	"fmt"
	"sort"

	"github.com/ipm-pk/fingerprint/internal/backend"
)

// Logger is the logging interface used by the service package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// LinkOptions tunes the linking pass.
type LinkOptions struct {
	// Prefer selects the response mode for operations that declare both a
	// completion-event shape and a sync-result shape. The zero value is
	// ModeSync; deployments normally set ModeAsync (the config default).
	Prefer ResponseMode

	// Logger receives per-operation link diagnostics. Nil means silent.
	Logger Logger
}

// Directory is the immutable set of linked operations, keyed by protocol
// name. Lookups during dispatch are read-only map accesses.
type Directory struct {
	ops   map[string]*OperationDescriptor
	names []string
	// failed records operations excluded at link time, by protocol name.
	failed map[string]error
}

// Lookup returns the descriptor for a protocol operation name.
func (d *Directory) Lookup(name string) (*OperationDescriptor, bool) {
	op, ok := d.ops[name]
	return op, ok
}

// Names returns the linked operation names in sorted order.
func (d *Directory) Names() []string {
	return d.names
}

// Descriptors returns the linked descriptors in sorted name order.
func (d *Directory) Descriptors() []*OperationDescriptor {
	out := make([]*OperationDescriptor, 0, len(d.names))
	for _, n := range d.names {
		out = append(out, d.ops[n])
	}
	return out
}

// Excluded returns the link failures by protocol operation name. Each
// value wraps ErrBinding or ErrClassification.
func (d *Directory) Excluded() map[string]error {
	return d.failed
}

// Link resolves every declared operation against the provider's
// capability table and classifies its response mode.
//
// Failures are per operation: an operation whose method name has no
// capability is excluded with ErrBinding, one that declares no result
// shape is excluded with ErrClassification, and linking continues with
// the rest. An operation declaring both shapes links in the preferred
// mode with a warning.
func Link(def *Definition, provider backend.Provider, opts LinkOptions) *Directory {
	log := opts.Logger
	if log == nil {
		log = noopLogger{}
	}

	caps := provider.Capabilities()
	dir := &Directory{
		ops:    make(map[string]*OperationDescriptor, len(def.Operations)),
		failed: make(map[string]error),
	}

	for _, spec := range def.Operations {
		method := MethodName(spec.Name)

		capability, ok := caps[method]
		if !ok {
			err := fmt.Errorf("%w: %s (method %s) on provider %s",
				ErrBinding, spec.Name, method, provider.Name())
			dir.failed[spec.Name] = err
			log.Error("operation excluded", "operation", spec.Name, "error", err)
			continue
		}

		hasEvent := spec.EventFields != nil
		hasResult := spec.ResultFields != nil

		var mode ResponseMode
		var fields []string
		switch {
		case hasEvent && hasResult:
			mode = opts.Prefer
			fields = spec.EventFields
			if mode == ModeSync {
				fields = spec.ResultFields
			}
			log.Warn("operation declares both result shapes",
				"operation", spec.Name, "using", mode.String())
		case hasEvent:
			mode = ModeAsync
			fields = spec.EventFields
		case hasResult:
			mode = ModeSync
			fields = spec.ResultFields
		default:
			err := fmt.Errorf("%w: %s", ErrClassification, spec.Name)
			dir.failed[spec.Name] = err
			log.Error("operation excluded", "operation", spec.Name, "error", err)
			continue
		}

		dir.ops[spec.Name] = &OperationDescriptor{
			Name:       spec.Name,
			Method:     method,
			Mode:       mode,
			Args:       spec.Args,
			Fields:     fields,
			Capability: capability,
		}
		dir.names = append(dir.names, spec.Name)
		log.Info("operation linked",
			"operation", spec.Name, "method", method, "mode", mode.String())
	}

	sort.Strings(dir.names)
	return dir
}
