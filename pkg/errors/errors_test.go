package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeUnresolvedPlaceholder, "test message")

	assert.Equal(t, ErrCodeUnresolvedPlaceholder, err.Code)
	assert.Equal(t, "test message", err.Message)
	assert.Equal(t, SeverityError, err.Severity)
	assert.NotNil(t, err.Context)
	assert.False(t, err.Recoverable)
	assert.NotEmpty(t, err.Stack)
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := Wrap(cause, ErrCodeEngine, "engine rejected statement")

	assert.Equal(t, ErrCodeEngine, err.Code)
	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "underlying failure")
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeEngine, "ignored"))
}

func TestWrapInheritsContext(t *testing.T) {
	inner := New(ErrCodeEngine, "inner").WithContext("query", "SELECT 1")
	outer := Wrap(inner, ErrCodeInternal, "outer")

	assert.Equal(t, "SELECT 1", outer.Context["query"])
}

func TestUnresolvedPlaceholderError(t *testing.T) {
	err := UnresolvedPlaceholderError("undefined_var")

	assert.Equal(t, ErrCodeUnresolvedPlaceholder, err.Code)
	assert.Contains(t, err.Message, "undefined_var")
	assert.Equal(t, "undefined_var", err.Context["placeholder"])
}

func TestDuplicateBindingError(t *testing.T) {
	err := DuplicateBindingError("selection")

	assert.Equal(t, ErrCodeDuplicateBinding, err.Code)
	assert.Contains(t, err.Message, "selection")
}

func TestEngineErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		cause    error
		wantCode ErrorCode
	}{
		{
			name:     "generic failure",
			cause:    fmt.Errorf("unexpected response"),
			wantCode: ErrCodeEngine,
		},
		{
			name:     "permission failure",
			cause:    fmt.Errorf("SQL access control error: not authorized"),
			wantCode: ErrCodeEnginePermission,
		},
		{
			name:     "timeout",
			cause:    fmt.Errorf("statement timed out after 300s"),
			wantCode: ErrCodeEngineTimeout,
		},
		{
			name:     "syntax",
			cause:    fmt.Errorf("syntax error line 1 at position 8"),
			wantCode: ErrCodeEngineSyntax,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EngineError("query failed", "SELECT * FROM t", tt.cause)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Contains(t, err.Error(), tt.cause.Error())
		})
	}
}

func TestEngineErrorTruncatesQuery(t *testing.T) {
	long := ""
	for i := 0; i < 300; i++ {
		long += "x"
	}

	err := EngineError("query failed", long, fmt.Errorf("boom"))
	query, ok := err.Context["query"].(string)
	require.True(t, ok)
	assert.LessOrEqual(t, len(query), 203)
}

func TestIsComparison(t *testing.T) {
	err := UnresolvedPlaceholderError("a")
	target := New(ErrCodeUnresolvedPlaceholder, "other")

	assert.True(t, errors.Is(err, target))
	assert.False(t, errors.Is(err, New(ErrCodeDuplicateBinding, "x")))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeDuplicateBinding, GetErrorCode(DuplicateBindingError("n")))
	assert.Equal(t, ErrCodeInternal, GetErrorCode(fmt.Errorf("plain")))
}

func TestIsRecoverable(t *testing.T) {
	err := New(ErrCodeConnectionFailed, "conn").AsRecoverable()
	assert.True(t, IsRecoverable(err))
	assert.False(t, IsRecoverable(fmt.Errorf("plain")))
}
