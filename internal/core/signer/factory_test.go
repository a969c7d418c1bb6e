package signer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	"github.com/weisyn/txsigner/internal/core/signer/hsm"
	"github.com/weisyn/txsigner/internal/core/signer/mpc"
	"github.com/weisyn/txsigner/internal/core/signer/testutil"
	signerif "github.com/weisyn/txsigner/pkg/interfaces/signer"
	"github.com/weisyn/txsigner/pkg/types"
)

const testPrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

// stubHSMClient 不可用的签名端点
type stubHSMClient struct{}

func (stubHSMClient) Sign(context.Context, string, []byte, hsm.SigningAlgorithm) ([]byte, error) {
	return nil, errors.New("not wired")
}

func directEntry(id string) signerconfig.SignerEntry {
	return signerconfig.SignerEntry{ID: id, Type: "direct_key", DirectKey: &signerconfig.DirectKeyConfig{PrivateKey: testPrivateKey}}
}

func hsmEntry(id string) signerconfig.SignerEntry {
	return signerconfig.SignerEntry{ID: id, Type: "hsm", HSM: &signerconfig.HSMConfig{KeyID: "alias/tx-key", Region: "us-east-1"}}
}

func mpcEntry(id, provider string) signerconfig.SignerEntry {
	return signerconfig.SignerEntry{ID: id, Type: "mpc", MPC: &signerconfig.MPCConfig{Provider: provider}}
}

// TestNewSigner_UnsupportedType 测试未知签名器类型
func TestNewSigner_UnsupportedType(t *testing.T) {
	for _, typ := range []string{"", "ledger", "DIRECT_KEY"} {
		_, err := NewSigner(signerconfig.SignerEntry{ID: "x", Type: typ}, Dependencies{})
		require.True(t, errors.Is(err, types.ErrUnsupportedSignerType), typ)
	}
}

// TestNewSigner_EachType 测试每种类型都构造出对应后端
func TestNewSigner_EachType(t *testing.T) {
	deps := Dependencies{HSMClient: stubHSMClient{}, Logger: &testutil.MockLogger{}}

	cases := []struct {
		entry signerconfig.SignerEntry
		want  types.SignerType
	}{
		{directEntry("d"), types.SignerTypeDirectKey},
		{hsmEntry("h"), types.SignerTypeHSM},
		{mpcEntry("m", "simulated"), types.SignerTypeMPC},
	}
	for _, c := range cases {
		s, err := NewSigner(c.entry, deps)
		require.NoError(t, err, c.entry.Type)
		assert.Equal(t, c.want, s.GetSignerType())
		assert.Equal(t, s.GetSignerType(), s.GetSignerType())
	}
}

// TestNewSigner_ConstructionErrors 测试各后端构造期错误类别
func TestNewSigner_ConstructionErrors(t *testing.T) {
	cases := []struct {
		name  string
		entry signerconfig.SignerEntry
		deps  Dependencies
		want  error
	}{
		{"direct missing key", signerconfig.SignerEntry{Type: "direct_key", DirectKey: &signerconfig.DirectKeyConfig{}}, Dependencies{}, types.ErrMissingKey},
		{"direct nil config", signerconfig.SignerEntry{Type: "direct_key"}, Dependencies{}, types.ErrMissingKey},
		{"direct invalid key", signerconfig.SignerEntry{Type: "direct_key", DirectKey: &signerconfig.DirectKeyConfig{PrivateKey: "abc"}}, Dependencies{}, types.ErrInvalidKey},
		{"hsm missing region", signerconfig.SignerEntry{Type: "hsm", HSM: &signerconfig.HSMConfig{KeyID: "k"}}, Dependencies{HSMClient: stubHSMClient{}}, types.ErrMissingHSMParams},
		{"hsm nil config", signerconfig.SignerEntry{Type: "hsm"}, Dependencies{}, types.ErrMissingHSMParams},
		{"hsm no client", hsmEntry("h"), Dependencies{}, types.ErrMissingHSMParams},
		{"mpc nil config", signerconfig.SignerEntry{Type: "mpc"}, Dependencies{}, types.ErrMissingProvider},
		{"mpc fireblocks without credentials", mpcEntry("m", "fireblocks"), Dependencies{}, types.ErrMissingProvider},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := NewSigner(c.entry, c.deps)
			assert.True(t, errors.Is(err, c.want), "got %v", err)
		})
	}
}

// TestNewSigner_InjectedProvider 测试注入的提供方优先于描述
func TestNewSigner_InjectedProvider(t *testing.T) {
	provider := &testutil.MockProvider{ProviderName: "injected"}
	s, err := NewSigner(signerconfig.SignerEntry{ID: "m", Type: "mpc"}, Dependencies{Provider: provider})
	require.NoError(t, err)

	m, ok := s.(*mpc.Signer)
	require.True(t, ok)
	assert.Equal(t, "injected", m.Provider().Name())
}

// TestBuildRegistry 测试按配置顺序构建注册表
func TestBuildRegistry(t *testing.T) {
	opts := &signerconfig.SignerOptions{Signers: []signerconfig.SignerEntry{
		mpcEntry("sim", "simulated"),
		directEntry("dev-key"),
		hsmEntry("vault-hsm"),
	}}

	r, err := BuildRegistry(opts, Dependencies{HSMClient: stubHSMClient{}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.SignerInfo{
		{ID: "sim", Type: types.SignerTypeMPC},
		{ID: "dev-key", Type: types.SignerTypeDirectKey},
		{ID: "vault-hsm", Type: types.SignerTypeHSM},
	}, r.List())
}

// TestBuildRegistry_Errors 测试构建失败
func TestBuildRegistry_Errors(t *testing.T) {
	_, err := BuildRegistry(&signerconfig.SignerOptions{Signers: []signerconfig.SignerEntry{
		directEntry("dup"), directEntry("dup"),
	}}, Dependencies{}, nil)
	assert.True(t, errors.Is(err, types.ErrDuplicateID))

	_, err = BuildRegistry(&signerconfig.SignerOptions{Signers: []signerconfig.SignerEntry{
		directEntry("ok"), {ID: "broken", Type: "hsm"},
	}}, Dependencies{}, nil)
	require.True(t, errors.Is(err, types.ErrMissingHSMParams))
	assert.Contains(t, err.Error(), "signer broken")

	r, err := BuildRegistry(nil, Dependencies{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Size())
}

// closableSigner 记录 Close 次数的签名器
type closableSigner struct {
	*testutil.MockSigner
	closed int
}

func (c *closableSigner) Close() error {
	c.closed++
	return nil
}

// TestBuildRegistry_DuplicateClosesRejected 测试重复 id 时新构造的签名器也被关闭
func TestBuildRegistry_DuplicateClosesRejected(t *testing.T) {
	var built []*closableSigner
	orig := newSigner
	newSigner = func(entry signerconfig.SignerEntry, deps Dependencies) (signerif.Signer, error) {
		s := &closableSigner{MockSigner: testutil.NewMockSigner(types.SignerTypeDirectKey)}
		built = append(built, s)
		return s, nil
	}
	defer func() { newSigner = orig }()

	_, err := BuildRegistry(&signerconfig.SignerOptions{Signers: []signerconfig.SignerEntry{
		directEntry("a"), directEntry("a"),
	}}, Dependencies{}, nil)
	require.True(t, errors.Is(err, types.ErrDuplicateID))

	require.Len(t, built, 2)
	assert.Equal(t, 1, built[0].closed)
	assert.Equal(t, 1, built[1].closed)
}

// closableHSMClient 可关闭的签名端点
type closableHSMClient struct {
	stubHSMClient
	closed int
}

func (c *closableHSMClient) Close() error {
	c.closed++
	return nil
}

// TestBuildRegistry_InjectedHSMClientNotClosed 测试注入的共享签名端点不被签名器关闭
func TestBuildRegistry_InjectedHSMClientNotClosed(t *testing.T) {
	client := &closableHSMClient{}
	r, err := BuildRegistry(&signerconfig.SignerOptions{Signers: []signerconfig.SignerEntry{
		hsmEntry("hsm-1"), hsmEntry("hsm-2"),
	}}, Dependencies{HSMClient: client}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, r.Size())

	require.NoError(t, r.Close())
	assert.Equal(t, 0, client.closed)
}
