package login

import (
	"errors"
	"fmt"
)

// ErrInvalidRecord is matched by every validation failure
var ErrInvalidRecord = errors.New("invalid login")

// InvalidReason classifies a validation failure
type InvalidReason int

const (
	EmptyOrigin InvalidReason = iota + 1
	EmptyPassword
	BothTargets
	NoTarget
	DuplicateLogin
	IllegalFieldValue
)

func (r InvalidReason) String() string {
	switch r {
	case EmptyOrigin:
		return "EMPTY_ORIGIN"
	case EmptyPassword:
		return "EMPTY_PASSWORD"
	case BothTargets:
		return "BOTH_TARGETS"
	case NoTarget:
		return "NO_TARGET"
	case DuplicateLogin:
		return "DUPLICATE_LOGIN"
	case IllegalFieldValue:
		return "ILLEGAL_FIELD_VALUE"
	default:
		return "UNKNOWN"
	}
}

// InvalidRecordError carries the reason a record was rejected
type InvalidRecordError struct {
	Reason InvalidReason
	Field  string // set for IllegalFieldValue
	Detail string
}

func (e *InvalidRecordError) Error() string {
	switch e.Reason {
	case EmptyOrigin:
		return "invalid login: origin is empty"
	case EmptyPassword:
		return "invalid login: password is empty"
	case BothTargets:
		return "invalid login: both formSubmitUrl and httpRealm are set"
	case NoTarget:
		return "invalid login: neither formSubmitUrl nor httpRealm is set"
	case DuplicateLogin:
		return "invalid login: login already exists"
	case IllegalFieldValue:
		return fmt.Sprintf("invalid login: illegal field: `%s` %s", e.Field, e.Detail)
	default:
		return "invalid login"
	}
}

// Is makes every InvalidRecordError match ErrInvalidRecord
func (e *InvalidRecordError) Is(target error) bool {
	return target == ErrInvalidRecord
}

func invalid(reason InvalidReason) error {
	return &InvalidRecordError{Reason: reason}
}

func illegal(field, detail string) error {
	return &InvalidRecordError{Reason: IllegalFieldValue, Field: field, Detail: detail}
}

// ReasonOf extracts the reason from err, or 0 if err is not a validation error
func ReasonOf(err error) InvalidReason {
	var ie *InvalidRecordError
	if errors.As(err, &ie) {
		return ie.Reason
	}
	return 0
}
