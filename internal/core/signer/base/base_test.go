package base

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/weisyn/txsigner/pkg/types"
)

// TestValidateRequest 测试结构校验与链支持无关
func TestValidateRequest(t *testing.T) {
	cases := []struct {
		name string
		req  *types.SignRequest
		want bool
	}{
		{"nil", nil, false},
		{"empty", &types.SignRequest{}, false},
		{"missing chain", &types.SignRequest{Transaction: "00"}, false},
		{"missing tx", &types.SignRequest{ChainType: types.ChainBTC}, false},
		{"btc", &types.SignRequest{Transaction: "00", ChainType: types.ChainBTC}, true},
		{"unsupported chain still valid", &types.SignRequest{Transaction: "00", ChainType: "SOL"}, true},
		{"garbage tx still valid", &types.SignRequest{Transaction: "zz", ChainType: "ETH"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidateRequest(tc.req))
			if tc.want {
				assert.NoError(t, CheckRequest(tc.req))
			} else {
				assert.True(t, errors.Is(CheckRequest(tc.req), types.ErrInvalidRequest))
			}
		})
	}
}

// TestSigner_GetSignerType 测试类型标识恒定
func TestSigner_GetSignerType(t *testing.T) {
	b := New(types.SignerTypeHSM)
	for i := 0; i < 3; i++ {
		assert.Equal(t, types.SignerTypeHSM, b.GetSignerType())
	}
	assert.True(t, b.ValidateRequest(&types.SignRequest{Transaction: "00", ChainType: "BTC"}))
}

// TestMaskKeyID 测试密钥标识掩码
func TestMaskKeyID(t *testing.T) {
	assert.Equal(t, "****", MaskKeyID("short"))
	assert.Equal(t, "arn:****-key", MaskKeyID("arn:aws:kms:us-east-1:my-key"))
}
