package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseError(t *testing.T) {
	underlying := errors.New("syntax error")
	err := NewParseError("/src/Foo.cs", 10, 5, underlying)

	assert.Equal(t, ErrorTypeParse, err.Type)
	assert.True(t, errors.Is(err, underlying))
	assert.Equal(t, "parse error at /src/Foo.cs:10:5: syntax error", err.Error())
	assert.False(t, err.Timestamp.IsZero())
}

func TestFixError(t *testing.T) {
	err := NewFixError("SplitBaseClassFix", "/src/Foo.cs", 42, ErrNoBaseInitializer)

	assert.True(t, errors.Is(err, ErrNoBaseInitializer))
	assert.Equal(t, "SplitBaseClassFix failed for /src/Foo.cs@42: no constructor forwards to a base initializer", err.Error())

	var fixErr *FixError
	wrapped := NewMultiError([]error{nil, err})
	assert.True(t, errors.As(wrapped, &fixErr))
	assert.Equal(t, 42, fixErr.Offset)

	inline := NewFixError("RetypeFix", "", 3, ErrStaticOwner)
	assert.Equal(t, "RetypeFix failed at offset 3: owner class is static; no fix is offered", inline.Error())
}

func TestFileError(t *testing.T) {
	err := NewFileError("read", "/x.cs", errors.New("permission denied"))
	assert.Equal(t, ErrorTypePermission, err.Type)

	err = NewFileError("read", "/x.cs", errors.New("no such file"))
	assert.Equal(t, ErrorTypeFileNotFound, err.Type)

	big := NewFileTooLargeError("/big.cs", 100, 10)
	assert.Equal(t, ErrorTypeFileTooLarge, big.Type)
	assert.Contains(t, big.Error(), "size 100 exceeds limit 10")
}

func TestConfigError(t *testing.T) {
	underlying := errors.New("must be positive")
	err := NewConfigError("performance.max_goroutines", "-1", underlying)
	assert.True(t, errors.Is(err, underlying))
	assert.Equal(t, "config error for field performance.max_goroutines (value -1): must be positive", err.Error())
}

func TestMultiError(t *testing.T) {
	assert.Nil(t, NewMultiError(nil).ErrorOrNil())
	assert.Equal(t, "no errors", NewMultiError([]error{nil}).Error())

	e1 := errors.New("a")
	e2 := errors.New("b")
	single := NewMultiError([]error{e1})
	assert.Equal(t, "a", single.Error())

	multi := NewMultiError([]error{e1, nil, e2})
	assert.Len(t, multi.Errors, 2)
	assert.True(t, errors.Is(multi, e2))
	assert.Contains(t, multi.Error(), "2 errors")
}
