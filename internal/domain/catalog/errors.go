package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode identifies a correctable schema or input rule violation.
type ErrorCode string

const (
	CodeWrongState          ErrorCode = "wrong_state"
	CodeAttributeNotFound   ErrorCode = "attribute_not_found"
	CodeOptionNotFound      ErrorCode = "option_not_found"
	CodeLookupTypeNotFound  ErrorCode = "lookup_type_not_found"
	CodeDuplicateKey        ErrorCode = "duplicate_key"
	CodeDuplicateCode       ErrorCode = "duplicate_code"
	CodeDuplicatePosition   ErrorCode = "duplicate_position"
	CodeInvalidKey          ErrorCode = "invalid_key"
	CodeCyclicDependency    ErrorCode = "cyclic_dependency"
	CodeScopeMismatch       ErrorCode = "scope_mismatch"
	CodeInvalidDependency   ErrorCode = "invalid_dependency"
	CodeInvalidGroup        ErrorCode = "invalid_group"
	CodeOutOfRange          ErrorCode = "out_of_range"
	CodeMissingAllowList    ErrorCode = "missing_allow_list"
	CodeDuplicateLookupType ErrorCode = "duplicate_lookup_type"
	CodeInvalidInput        ErrorCode = "invalid_input"
	CodeInvalidAxis         ErrorCode = "invalid_axis"
	CodeVariantMismatch     ErrorCode = "variant_mismatch"
	CodeRequiredMissing     ErrorCode = "required_missing"
)

// NotFound reports whether the code describes a missing entity.
func (c ErrorCode) NotFound() bool {
	switch c {
	case CodeAttributeNotFound, CodeOptionNotFound, CodeLookupTypeNotFound:
		return true
	default:
		return false
	}
}

// RuleError is a recoverable domain rule violation. Params carries the keys and
// codes involved so clients can render the failure.
type RuleError struct {
	Code    ErrorCode
	Op      string
	Message string
	Params  map[string]string
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(string(e.Code))
	}
	if len(e.Params) > 0 {
		b.WriteString(" [")
		b.WriteString(formatParams(e.Params))
		b.WriteString("]")
	}
	fmt.Fprintf(&b, " (%s)", e.Code)
	return b.String()
}

// ErrInvalidState is matched by every StateError.
var ErrInvalidState = errors.New("invalid catalog state")

// StateError signals that schema, snapshot and persisted data disagree in a way
// the write paths should have made impossible. It is never a business outcome.
type StateError struct {
	Op      string
	Message string
	Params  map[string]string
}

func (e *StateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if len(e.Params) > 0 {
		msg += " [" + formatParams(e.Params) + "]"
	}
	return msg + " (invalid_state)"
}

func (e *StateError) Is(target error) bool { return target == ErrInvalidState }

// NewRuleError builds a RuleError; kv is a flat list of param name/value pairs.
func NewRuleError(code ErrorCode, op, message string, kv ...string) *RuleError {
	return &RuleError{Code: code, Op: op, Message: message, Params: pairs(kv)}
}

// NewStateError builds a StateError; kv is a flat list of param name/value pairs.
func NewStateError(op, message string, kv ...string) *StateError {
	return &StateError{Op: op, Message: message, Params: pairs(kv)}
}

// RuleCode returns the code of the first RuleError in err's chain, or "".
func RuleCode(err error) ErrorCode {
	var re *RuleError
	if errors.As(err, &re) && re != nil {
		return re.Code
	}
	return ""
}

// IsRule reports whether err is a RuleError, optionally restricted to codes.
func IsRule(err error, codes ...ErrorCode) bool {
	code := RuleCode(err)
	if code == "" {
		return false
	}
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

func pairs(kv []string) map[string]string {
	if len(kv) < 2 {
		return nil
	}
	out := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

func formatParams(p map[string]string) string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+p[k])
	}
	return strings.Join(parts, " ")
}
