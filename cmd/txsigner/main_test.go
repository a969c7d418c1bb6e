package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/txsigner/internal/app/version"
	"github.com/weisyn/txsigner/internal/config"
	"github.com/weisyn/txsigner/pkg/types"
)

const testPrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "txsigner.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testConfig(t *testing.T) string {
	return writeConfig(t, fmt.Sprintf(`{
  "log": {"level": "error"},
  "signers": [
    {"id": "dev", "type": "direct_key", "direct_key": {"private_key": "%s", "environment": "development"}},
    {"id": "sim", "type": "mpc", "mpc": {"provider": "simulated", "simulated_latency_ms": 1}}
  ]
}`, testPrivateKey))
}

// execute 执行命令并返回标准输出
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestSignersCmd 测试列出签名器
func TestSignersCmd(t *testing.T) {
	path := testConfig(t)

	out, err := execute(t, "", "signers", "--config", path, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"dev","type":"direct_key"},{"id":"sim","type":"mpc"}]`, out)

	out, err = execute(t, "", "signers", "-c", path, "--type", "mpc")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "sim")
	assert.NotContains(t, out, "dev")

	_, err = execute(t, "", "signers", "-c", path, "--type", "ledger")
	assert.True(t, errors.Is(err, types.ErrInvalidRequest))
}

// TestSignCmd 测试签名子命令
func TestSignCmd(t *testing.T) {
	path := testConfig(t)

	out, err := execute(t, "", "sign", "-c", path, "--signer", "sim", "--chain", "eth", "--tx", "00112233445566778899")
	require.NoError(t, err)

	var resp types.SignResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "mpc_signature_simulated_0011223344556677", resp.Signature)
	assert.Equal(t, types.SignerTypeMPC, resp.SignerType)
}

// TestSignCmd_Stdin 测试从标准输入读取交易
func TestSignCmd_Stdin(t *testing.T) {
	path := testConfig(t)

	out, err := execute(t, "abcdef\n", "sign", "-c", path, "-s", "sim", "--chain", "BTC", "--tx-file", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "mpc_signature_simulated_abcdef")
}

// TestSignCmd_Errors 测试签名错误透传
func TestSignCmd_Errors(t *testing.T) {
	path := testConfig(t)

	_, err := execute(t, "", "sign", "-c", path, "--signer", "ghost", "--chain", "ETH", "--tx", "00")
	assert.True(t, errors.Is(err, types.ErrSignerNotFound))

	_, err = execute(t, "", "sign", "-c", path, "--signer", "dev", "--chain", "SOL", "--tx", "00")
	assert.True(t, errors.Is(err, types.ErrUnsupportedChain))

	_, err = execute(t, "", "sign", "-c", path, "--signer", "dev", "--chain", "ETH")
	assert.Error(t, err)

	_, err = execute(t, "", "sign", "-c", path, "--chain", "ETH", "--tx", "00")
	assert.Error(t, err)
}

// TestEnvFile 测试 --env-file 注入私钥
func TestEnvFile(t *testing.T) {
	require.NoError(t, os.Unsetenv("TXSIGNER_PRIVATE_KEY"))
	t.Cleanup(func() { _ = os.Unsetenv("TXSIGNER_PRIVATE_KEY") })

	dir := t.TempDir()
	envPath := filepath.Join(dir, "signer.env")
	require.NoError(t, os.WriteFile(envPath, []byte("TXSIGNER_PRIVATE_KEY="+testPrivateKey+"\n"), 0o600))
	cfgPath := writeConfig(t, `{"log":{"level":"error"},"signers":[{"id":"dev","type":"direct_key","direct_key":{"environment":"development"}}]}`)

	_, err := execute(t, "", "signers", "-c", cfgPath)
	require.True(t, errors.Is(err, types.ErrMissingKey), "got %v", err)

	out, err := execute(t, "", "signers", "-c", cfgPath, "--env-file", envPath, "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"dev","type":"direct_key"}]`, out)

	_, err = execute(t, "", "signers", "-c", cfgPath, "--env-file", filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

// TestConfigExample 测试示例配置可被加载
func TestConfigExample(t *testing.T) {
	out, err := execute(t, "", "config", "example")
	require.NoError(t, err)
	require.True(t, json.Valid([]byte(out)))

	cfg, err := config.Load(writeConfig(t, out))
	require.NoError(t, err)
	require.Len(t, cfg.Signers, 4)
	assert.Equal(t, "fireblocks", cfg.Signers[2].MPC.Provider)
}

// TestVersionCmd 测试版本输出且不加载配置
func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "", "version", "--config", "/does/not/exist.json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "txsigner v"+version.GetVersion()), out)
	assert.Contains(t, out, "构建环境: ")
}

// TestServe 测试 fx 应用启动、提供服务并在 ctx 结束时退出
func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg, err := config.Load(writeConfig(t, fmt.Sprintf(`{
  "log": {"level": "error"},
  "api": {"host": "127.0.0.1", "port": %d},
  "signers": [{"id": "sim", "type": "mpc", "mpc": {"provider": "simulated", "simulated_latency_ms": 1}}]
}`, port)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runApp(ctx, newApp(cfg)) }()

	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/v1/signers")
	require.NoError(t, err)
	var infos []types.SignerInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	_ = resp.Body.Close()
	assert.Equal(t, []types.SignerInfo{{ID: "sim", Type: types.SignerTypeMPC}}, infos)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}
