package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSignerError_IsMatchesByKind 测试按类别匹配
func TestSignerError_IsMatchesByKind(t *testing.T) {
	err := NewSignerError(ErrorKindUnsupportedChain, "SOL", nil)

	assert.True(t, errors.Is(err, ErrUnsupportedChain))
	assert.False(t, errors.Is(err, ErrInvalidRequest))
	assert.Equal(t, "UnsupportedChain: SOL", err.Error())
}

// TestSignerError_WrappedChain 测试 fmt.Errorf 包装后仍可识别
func TestSignerError_WrappedChain(t *testing.T) {
	base := NewSignerError(ErrorKindSigningTimeout, "30 attempts", context.DeadlineExceeded)
	wrapped := fmt.Errorf("mpc sign: %w", base)

	assert.True(t, errors.Is(wrapped, ErrSigningTimeout))
	assert.True(t, errors.Is(wrapped, context.DeadlineExceeded))
	assert.Equal(t, ErrorKindSigningTimeout, ErrorKindOf(wrapped))

	se, ok := IsSignerError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "30 attempts", se.Detail)
}

// TestErrorKindOf_PlainError 测试非签名错误
func TestErrorKindOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), ErrorKindOf(errors.New("boom")))
	assert.Equal(t, ErrorKind(""), ErrorKindOf(nil))
}

// TestParseSignerType 测试签名器类型解析
func TestParseSignerType(t *testing.T) {
	for _, st := range AllSignerTypes() {
		got, ok := ParseSignerType(st.String())
		assert.True(t, ok)
		assert.Equal(t, st, got)
	}

	got, ok := ParseSignerType(" HSM ")
	assert.True(t, ok)
	assert.Equal(t, SignerTypeHSM, got)

	_, ok = ParseSignerType("ledger")
	assert.False(t, ok)
}
