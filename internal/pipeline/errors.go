package pipeline

import (
	"errors"
	"strings"

	"transcode-server/internal/memory"
)

// Kind is one member of the closed processing error taxonomy. Every
// failure a caller can observe carries exactly one Kind.
type Kind string

const (
	KindTimeout           Kind = "processing_timeout"
	KindCanvasLimit       Kind = "canvas_limit"
	KindDecodeFailure     Kind = "decode_failure"
	KindBudgetExceeded    Kind = "client_budget_exceeded"
	KindOOM               Kind = "wasm_oom"
	KindContainerCorrupt  Kind = "container_corrupt"
	KindDecodeUnsupported Kind = "decode_unsupported"
	KindAllLevelsFailed   Kind = "all_quality_levels_failed"
	KindUnknown           Kind = "unknown_processing_error"
)

// Error is a typed processing failure. Stages raise it directly with the
// right Kind at the throw site, so classification does not depend on
// message contents.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

// NewError creates a typed processing error.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

// WrapError attaches a Kind to an underlying error.
func WrapError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, msg: msg, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		if e.msg != "" {
			return e.msg + ": " + e.cause.Error()
		}
		return e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// substringKinds maps message fragments from foreign errors (image
// decoders, libvips) onto the taxonomy. This is the fallback path only;
// our own stages always raise typed errors.
var substringKinds = []struct {
	fragment string
	kind     Kind
}{
	{"timeout", KindTimeout},
	{"deadline", KindTimeout},
	{"canvas", KindCanvasLimit},
	{"out of memory", KindOOM},
	{"cannot allocate", KindOOM},
	{"calloc", KindOOM},
	{"budget", KindBudgetExceeded},
	{"unknown format", KindDecodeUnsupported},
	{"unsupported", KindDecodeUnsupported},
	{"corrupt", KindContainerCorrupt},
	{"truncated", KindContainerCorrupt},
	{"unexpected eof", KindContainerCorrupt},
	{"decode", KindDecodeFailure},
	{"invalid", KindDecodeFailure},
}

// KindOf returns the taxonomy kind for any error. Typed errors win;
// admission-control errors from the memory gate map to
// client_budget_exceeded; anything else is matched by message fragment
// and falls back to unknown_processing_error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	if errors.Is(err, memory.ErrBudgetExceeded) {
		return KindBudgetExceeded
	}

	msg := strings.ToLower(err.Error())
	for _, m := range substringKinds {
		if strings.Contains(msg, m.fragment) {
			return m.kind
		}
	}
	return KindUnknown
}
