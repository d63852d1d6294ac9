package realm

import (
	"errors"
	"fmt"
)

// Error is a failure reported by the coordinator.
//
// Every operation failure that has a category carries one:
//   - VALIDATION:    caller error (unregistered type, missing or ambiguous primary key)
//   - COLLISION:     upsert predicate matched more than one record under CollisionFail
//   - RESOLUTION:    a ref could not be resolved inside the transaction (concurrent deletion)
//   - TRANSACTION:   the engine failed to begin or commit, or the operation panicked
//   - DUPLICATE_KEY: insert hit an existing primary key under ConflictFail
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the coordinator operation that failed (add, write, upsert, ...).
	Op string

	// Type is the entity name, when known.
	Type string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes coordinator errors.
type ErrorCode string

const (
	ErrCodeValidation   ErrorCode = "VALIDATION"
	ErrCodeCollision    ErrorCode = "COLLISION"
	ErrCodeResolution   ErrorCode = "RESOLUTION"
	ErrCodeTransaction  ErrorCode = "TRANSACTION"
	ErrCodeDuplicateKey ErrorCode = "DUPLICATE_KEY"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	if e.Type != "" {
		return fmt.Sprintf("%s: %s %s: %s", e.Code, e.Op, e.Type, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	// ErrConfined is returned when a handle is dereferenced by an owner
	// other than the session or transaction that produced it.
	ErrConfined = errors.New("realm: handle used outside its owner")

	// ErrInvalidated is returned when a handle's owner has been closed.
	ErrInvalidated = errors.New("realm: handle owner closed")

	// ErrRefConsumed is returned on the second resolve of a ref.
	ErrRefConsumed = errors.New("realm: ref already resolved")

	// ErrClosed is returned for work submitted after Close.
	ErrClosed = errors.New("realm: coordinator closed")

	// ErrEmptyHandle is returned by operations that need an object but got the zero Handle.
	ErrEmptyHandle = errors.New("realm: empty handle")

	// ErrNestedWrite is returned when a write job submits to its own
	// Coordinator. Use the *Txn-level functions inside a job.
	ErrNestedWrite = errors.New("realm: write submitted from inside a write job")
)

// IsValidationError reports whether err is a VALIDATION error.
// Uses errors.As to handle wrapped errors.
func IsValidationError(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsCollisionError reports whether err is a COLLISION error.
func IsCollisionError(err error) bool {
	return hasCode(err, ErrCodeCollision)
}

// IsResolutionError reports whether err is a RESOLUTION error.
func IsResolutionError(err error) bool {
	return hasCode(err, ErrCodeResolution)
}

// IsTransactionError reports whether err is a TRANSACTION error.
func IsTransactionError(err error) bool {
	return hasCode(err, ErrCodeTransaction)
}

// IsDuplicateKeyError reports whether err is a DUPLICATE_KEY error.
func IsDuplicateKeyError(err error) bool {
	return hasCode(err, ErrCodeDuplicateKey)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

func newError(code ErrorCode, op, typ, message string, cause error) *Error {
	return &Error{Code: code, Op: op, Type: typ, Message: message, Err: cause}
}
