package service

import (
	"strings"
	"unicode"

	"github.com/ipm-pk/fingerprint/internal/backend"
)

// ResponseMode is how an operation answers its caller.
type ResponseMode int

// Response modes.
const (
	// ModeSync runs the capability inline and replies with the merged
	// result envelope.
	ModeSync ResponseMode = iota

	// ModeAsync replies immediately with acknowledgment info and delivers
	// the result later through a completion event.
	ModeAsync
)

// String returns the lowercase mode name.
func (m ResponseMode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	default:
		return "unknown"
	}
}

// OperationDescriptor is one linked operation: the protocol declaration
// resolved against a backend capability and classified once. Built by
// Link(), immutable afterwards; the dispatcher never re-evaluates it.
type OperationDescriptor struct {
	// Name is the protocol-facing operation name, e.g. "AddPart".
	Name string

	// Method is the backend capability key, e.g. "add_part".
	Method string

	// Mode is the classified response mode.
	Mode ResponseMode

	// Args names the positional arguments in call order.
	Args []string

	// Fields is the declared result shape for the chosen mode: the
	// completion-event fields for async operations, the sync-result
	// fields for sync ones.
	Fields []string

	// Capability is the resolved backend dispatch entry.
	Capability backend.Capability
}

// MethodName transforms a protocol operation name into its backend
// capability key: an underscore before every interior uppercase letter,
// then lowercased. "SetImageMatchingType" becomes
// "set_image_matching_type". The transform is one-way; nothing in the
// engine reconstructs protocol names from method names.
func MethodName(operation string) string {
	var b strings.Builder
	b.Grow(len(operation) + 4)
	for i, r := range operation {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
