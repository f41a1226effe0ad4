package rewrite

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the unsupported-construct family a
// TransformError wraps (spec §7). Callers distinguish cases with the
// Is*Err helpers below rather than string-matching Error().
var (
	ErrConnectByNoStartWith        = errors.New("connect by requires a start with clause")
	ErrConnectByNocycle            = errors.New("connect by nocycle is not supported")
	ErrConnectByMultiTable         = errors.New("connect by over more than one table is not supported")
	ErrConnectBySubquery           = errors.New("connect by over a subquery is not supported")
	ErrConnectByRootUnsupported    = errors.New("connect_by_root is not supported")
	ErrSysConnectByPathUnsupported = errors.New("sys_connect_by_path is not supported")
	ErrConnectByPriorMissing       = errors.New("connect by clause has no prior reference")
	ErrInlinePlsqlInWith           = errors.New("inline plsql function or procedure in with clause is not supported")
	ErrUnsupportedConstruct        = errors.New("construct is not supported")
)

// TransformError reports a single unsupported or invalid construct
// encountered while rewriting a parsed tree into PostgreSQL text. Unlike
// ParseError, a TransformError always names which sentinel condition
// applies (via errors.Is/Unwrap) so callers can branch on error kind
// without parsing Message.
type TransformError struct {
	// Feature is a short machine-stable label for the offending
	// construct, e.g. "connect_by_nocycle", "sys_connect_by_path".
	Feature string
	Message string
	// Hint is an optional, human-directed suggestion for a workaround.
	Hint string
	Err  error
}

func (e *TransformError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Feature, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Feature, e.Message)
}

func (e *TransformError) Unwrap() error { return e.Err }

func newTransformError(feature string, sentinel error, hint, format string, args ...any) *TransformError {
	return &TransformError{
		Feature: feature,
		Message: fmt.Sprintf(format, args...),
		Hint:    hint,
		Err:     sentinel,
	}
}

// IsConnectByNoStartWithErr reports whether err is, or wraps, a CONNECT BY
// rewrite rejected for lacking a mandatory START WITH clause.
func IsConnectByNoStartWithErr(err error) bool { return errors.Is(err, ErrConnectByNoStartWith) }

// IsConnectByNocycleErr reports whether err is, or wraps, a CONNECT BY
// NOCYCLE rejection.
func IsConnectByNocycleErr(err error) bool { return errors.Is(err, ErrConnectByNocycle) }

// IsConnectByMultiTableErr reports whether err is, or wraps, a CONNECT BY
// over more than one driving table.
func IsConnectByMultiTableErr(err error) bool { return errors.Is(err, ErrConnectByMultiTable) }

// IsConnectBySubqueryErr reports whether err is, or wraps, a CONNECT BY
// over a FROM-clause subquery.
func IsConnectBySubqueryErr(err error) bool { return errors.Is(err, ErrConnectBySubquery) }

// IsConnectByRootUnsupportedErr reports whether err is, or wraps, a
// CONNECT_BY_ROOT usage rejection.
func IsConnectByRootUnsupportedErr(err error) bool {
	return errors.Is(err, ErrConnectByRootUnsupported)
}

// IsSysConnectByPathUnsupportedErr reports whether err is, or wraps, a
// SYS_CONNECT_BY_PATH usage rejection.
func IsSysConnectByPathUnsupportedErr(err error) bool {
	return errors.Is(err, ErrSysConnectByPathUnsupported)
}

// IsConnectByPriorMissingErr reports whether err is, or wraps, a CONNECT
// BY clause with no PRIOR-qualified operand.
func IsConnectByPriorMissingErr(err error) bool { return errors.Is(err, ErrConnectByPriorMissing) }

// IsInlinePlsqlInWithErr reports whether err is, or wraps, an inline
// PL/SQL function/procedure declared inside a WITH clause.
func IsInlinePlsqlInWithErr(err error) bool { return errors.Is(err, ErrInlinePlsqlInWith) }

// IsUnsupportedConstructErr reports whether err is, or wraps, a generic
// unsupported-construct rejection not covered by a more specific
// sentinel.
func IsUnsupportedConstructErr(err error) bool { return errors.Is(err, ErrUnsupportedConstruct) }
