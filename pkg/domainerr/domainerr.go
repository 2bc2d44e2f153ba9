// Package domainerr classifies domain failures so callers can map them to
// transport responses without inspecting error strings.
package domainerr

import "errors"

// Kind is the closed set of failure classes raised by the domain packages.
type Kind string

const (
	// KindRuleViolation marks a request that breaks an accounting rule.
	KindRuleViolation Kind = "rule_violation"
	// KindNotFound marks an unresolved id reference.
	KindNotFound Kind = "not_found"
	// KindValidation marks malformed input.
	KindValidation Kind = "validation"
	// KindConflict marks a lost optimistic-concurrency race. Callers may retry.
	KindConflict Kind = "conflict"
)

// Error is a classified sentinel. Domain packages declare their own sentinels
// with the constructors below and wrap them with fmt.Errorf("%w: ...") for detail.
type Error struct {
	Kind Kind
	Code string
}

func (e *Error) Error() string { return e.Code }

func Rule(code string) *Error       { return &Error{Kind: KindRuleViolation, Code: code} }
func NotFound(code string) *Error   { return &Error{Kind: KindNotFound, Code: code} }
func Validation(code string) *Error { return &Error{Kind: KindValidation, Code: code} }
func Conflict(code string) *Error   { return &Error{Kind: KindConflict, Code: code} }

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}

// CodeOf returns the stable code of the first classified error in err's chain.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func IsRuleViolation(err error) bool { return is(err, KindRuleViolation) }
func IsNotFound(err error) bool      { return is(err, KindNotFound) }
func IsValidation(err error) bool    { return is(err, KindValidation) }
func IsConflict(err error) bool      { return is(err, KindConflict) }

func is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
