package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "txsigner.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// TestLoad_FileAndEnv 测试文件加载与环境变量覆盖
func TestLoad_FileAndEnv(t *testing.T) {
	t.Setenv("TXSIGNER_API_PORT", "9191")
	t.Setenv("TXSIGNER_HSM_REGION", "token-a")

	path := writeConfig(t, `{
		"log": {"level": "debug"},
		"api": {"host": "0.0.0.0", "port": 8080},
		"signers": [
			{"id": "eth-local", "type": "direct_key", "direct_key": {"private_key": "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"}},
			{"id": "btc-hsm", "type": "hsm", "hsm": {"key_id": "btc-key"}},
			{"id": "sim", "type": "mpc", "mpc": {"provider": "simulated"}}
		]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Log)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.NotNil(t, cfg.API)
	assert.Equal(t, "0.0.0.0", cfg.API.Host)
	assert.Equal(t, 9191, cfg.API.Port)

	require.Len(t, cfg.Signers, 3)
	assert.Equal(t, "eth-local", cfg.Signers[0].ID)
	assert.Equal(t, "btc-key", cfg.Signers[1].HSM.KeyID)
	assert.Equal(t, "token-a", cfg.Signers[1].HSM.Region)
	assert.Equal(t, "simulated", cfg.Signers[2].MPC.Provider)
	assert.Equal(t, 1000, cfg.Signers[2].MPC.Poll.IntervalMs)

	p := NewProvider(cfg)
	assert.Len(t, p.GetSigner().Signers, 3)
	assert.Nil(t, p.GetEvent())
}

// TestLoad_ValidationErrors 测试校验失败
func TestLoad_ValidationErrors(t *testing.T) {
	path := writeConfig(t, `{
		"signers": [
			{"id": "a", "type": "ledger"},
			{"id": "a", "type": "direct_key"},
			{"type": "mpc"}
		]
	}`)

	_, err := Load(path)
	require.Error(t, err)

	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))

	fields := make([]string, 0, len(verrs.Errors))
	for _, e := range verrs.Errors {
		var ve *ValidationError
		require.True(t, errors.As(e, &ve))
		fields = append(fields, ve.Field)
	}
	assert.Contains(t, fields, "AppConfig.Signers[0].Type")
	assert.Contains(t, fields, "AppConfig.Signers[2].ID")
	assert.Contains(t, fields, "signers[1].id")
	assert.Contains(t, fields, "signers[2].mpc.provider")
}

// TestLoad_MissingFile 测试配置文件不存在
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

// TestLoad_NoFile 测试只使用默认值
func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Signers)
}
