package boundary

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/illarion/loginstore/internal/core"
	"github.com/illarion/loginstore/internal/login"
)

// Kind classifies an ExternError
type Kind int

const (
	KindUnspecified Kind = iota
	KindMismatchedLock
	KindNoSuchRecord
	KindIDCollision
	KindInvalidRecord
	KindInvalidKey
	KindSyncAuthInvalid
	KindRequestFailed
	KindOperationInterrupted
	KindLocked
	KindClosed
	KindInvalidHandle
)

var kindNames = map[Kind]string{
	KindUnspecified:          "Unspecified",
	KindMismatchedLock:       "MismatchedLock",
	KindNoSuchRecord:         "NoSuchRecord",
	KindIDCollision:          "IdCollision",
	KindInvalidRecord:        "InvalidRecord",
	KindInvalidKey:           "InvalidKey",
	KindSyncAuthInvalid:      "SyncAuthInvalid",
	KindRequestFailed:        "RequestFailed",
	KindOperationInterrupted: "OperationInterrupted",
	KindLocked:               "Locked",
	KindClosed:               "Closed",
	KindInvalidHandle:        "InvalidHandle",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ExternError is the failure half of every boundary call. Reason is only set
// for KindInvalidRecord.
type ExternError struct {
	Kind   Kind
	Reason login.InvalidReason
	msg    atomic.Pointer[string]
}

func newExternError(kind Kind, msg string) *ExternError {
	e := &ExternError{Kind: kind}
	e.msg.Store(&msg)
	return e
}

// TakeMessage transfers the message to the caller. Only the first call sees
// it; every later call returns "".
func (e *ExternError) TakeMessage() string {
	if e == nil {
		return ""
	}
	if p := e.msg.Swap(nil); p != nil {
		return *p
	}
	return ""
}

// errorKinds is checked in order; the first match wins
var errorKinds = []struct {
	target error
	kind   Kind
}{
	{core.ErrMismatchedLock, KindMismatchedLock},
	{core.ErrClosed, KindClosed},
	{core.ErrLocked, KindLocked},
	{core.ErrInvalidKey, KindInvalidKey},
	{core.ErrNoSuchRecord, KindNoSuchRecord},
	{core.ErrIDCollision, KindIDCollision},
	{login.ErrInvalidRecord, KindInvalidRecord},
	{core.ErrSyncAuthInvalid, KindSyncAuthInvalid},
	{core.ErrRequestFailed, KindRequestFailed},
	{core.ErrInterrupted, KindOperationInterrupted},
	{core.ErrHandleClosed, KindInvalidHandle},
}

func toExtern(err error) *ExternError {
	if err == nil {
		return nil
	}
	for _, ek := range errorKinds {
		if errors.Is(err, ek.target) {
			e := newExternError(ek.kind, err.Error())
			if ek.kind == KindInvalidRecord {
				e.Reason = login.ReasonOf(err)
			}
			return e
		}
	}
	return newExternError(KindUnspecified, err.Error())
}
