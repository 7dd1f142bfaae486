package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates which operation produced the error
type Phase string

const (
	PhaseOpen     Phase = "open"     // library open
	PhaseClose    Phase = "close"    // library close
	PhaseSymbol   Phase = "symbol"   // symbol lookup
	PhaseCreate   Phase = "create"   // resource construction in a slot
	PhaseUse      Phase = "use"      // join/lock/unlock/free on a slot
	PhaseConfig   Phase = "config"   // configuration loading
	PhaseTeardown Phase = "teardown" // end of life release
)

// Kind categorizes the error
type Kind string

const (
	KindLoadFailed     Kind = "load_failed"
	KindCloseFailed    Kind = "close_failed"
	KindSymbolMissing  Kind = "symbol_missing"
	KindCreationFailed Kind = "creation_failed"
	KindInvalidHandle  Kind = "invalid_handle"
	KindNotFound       Kind = "not_found"
	KindInvalidInput   Kind = "invalid_input"
	KindUnsupported    Kind = "unsupported"
)

// Error is the structured error type used throughout the module
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Name     string
	Symbol   string
	Detail   string
	Attempts []string
	Index    int
	HasIndex bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Name != "" {
		b.WriteString(" library ")
		b.WriteString(fmt.Sprintf("%q", e.Name))
	}
	if e.Symbol != "" {
		b.WriteString(" symbol ")
		b.WriteString(fmt.Sprintf("%q", e.Symbol))
	}
	if e.HasIndex {
		b.WriteString(fmt.Sprintf(" slot %d", e.Index))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if len(e.Attempts) > 0 {
		b.WriteString(" (tried ")
		b.WriteString(strings.Join(e.Attempts, ", "))
		b.WriteByte(')')
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a Phase matches on Kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Phase-agnostic sentinels for errors.Is checks.
var (
	ErrLoadFailed     = &Error{Kind: KindLoadFailed}
	ErrCloseFailed    = &Error{Kind: KindCloseFailed}
	ErrSymbolMissing  = &Error{Kind: KindSymbolMissing}
	ErrCreationFailed = &Error{Kind: KindCreationFailed}
	ErrInvalidHandle  = &Error{Kind: KindInvalidHandle}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrInvalidInput   = &Error{Kind: KindInvalidInput}
	ErrUnsupported    = &Error{Kind: KindUnsupported}
)

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return stderrors.Is(err, &Error{Kind: kind})
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Name sets the library name
func (b *Builder) Name(name string) *Builder {
	b.err.Name = name
	return b
}

// Symbol sets the symbol name
func (b *Builder) Symbol(symbol string) *Builder {
	b.err.Symbol = symbol
	return b
}

// Index sets the slot index
func (b *Builder) Index(i int) *Builder {
	b.err.Index = i
	b.err.HasIndex = true
	return b
}

// Attempts records the candidate paths that were tried
func (b *Builder) Attempts(paths ...string) *Builder {
	b.err.Attempts = paths
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string) *Builder {
	b.err.Detail = msg
	return b
}

// Detailf sets a formatted detail message
func (b *Builder) Detailf(format string, args ...any) *Builder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// LoadFailed creates an error for a library that could not be opened under any candidate name
func LoadFailed(name string, attempts []string, lastError string, cause error) *Error {
	return &Error{
		Phase:    PhaseOpen,
		Kind:     KindLoadFailed,
		Name:     name,
		Attempts: attempts,
		Detail:   lastError,
		Cause:    cause,
	}
}

// CloseFailed creates a native unload failure error
func CloseFailed(name string, cause error) *Error {
	return &Error{
		Phase: PhaseClose,
		Kind:  KindCloseFailed,
		Name:  name,
		Cause: cause,
	}
}

// SymbolMissing creates a symbol lookup miss error
func SymbolMissing(symbol string, cause error) *Error {
	return &Error{
		Phase:  PhaseSymbol,
		Kind:   KindSymbolMissing,
		Symbol: symbol,
		Cause:  cause,
	}
}

// CreationFailed creates an error for a resource that could not be constructed in its slot
func CreationFailed(index int, cause error) *Error {
	return &Error{
		Phase:    PhaseCreate,
		Kind:     KindCreationFailed,
		Index:    index,
		HasIndex: true,
		Cause:    cause,
	}
}

// InvalidHandle creates an error for an operation on an empty, stale or out-of-range slot
func InvalidHandle(phase Phase, index int, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindInvalidHandle,
		Index:    index,
		HasIndex: true,
		Detail:   detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
