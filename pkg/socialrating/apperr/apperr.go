package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Kind classifies an application error for HTTP mapping
type Kind int

const (
	// KindNotFound means an identifier did not resolve to any row scoped to
	// its parent. Deliberately indistinguishable from a parent mismatch.
	KindNotFound Kind = iota
	// KindForbidden means the object exists but the actor lacks permission
	KindForbidden
	// KindValidation means an entity-level invariant was violated
	KindValidation
	// KindConflict means a uniqueness constraint was violated at creation time
	KindConflict
)

// Error is the application error type carried up from models, the
// permission layer and the resolver to the HTTP boundary.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NotFound returns a not-found error for the given entity type
func NotFound(what string) *Error {
	return &Error{Kind: KindNotFound, Message: what + " not found"}
}

// Forbidden returns a permission-denied error
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

// Validation returns an invariant-violation error
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a uniqueness-violation error
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// FromDB translates a persistence error: duplicate keys become Conflict,
// record misses become NotFound, application errors pass through untouched.
func FromDB(err error, what string) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Conflict(what + " already exists")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(what)
	}
	return err
}

// Abort writes the HTTP response for err and aborts the gin handler chain.
// Unclassified errors become a 500 without leaking details.
func Abort(c *gin.Context, err error) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Kind {
	case KindNotFound:
		status = http.StatusNotFound
	case KindForbidden:
		status = http.StatusForbidden
	case KindValidation:
		status = http.StatusBadRequest
	case KindConflict:
		status = http.StatusConflict
	}

	c.AbortWithStatusJSON(status, gin.H{"error": appErr.Message})
}
