package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestGetFullVersion 测试版本输出格式
func TestGetFullVersion(t *testing.T) {
	oldCommit, oldTime, oldEnv := Commit, BuildTime, BuildEnv
	defer func() { Commit, BuildTime, BuildEnv = oldCommit, oldTime, oldEnv }()

	Commit, BuildTime, BuildEnv = "unknown", "unknown", "development"
	out := GetFullVersion()
	assert.True(t, strings.HasPrefix(out, "txsigner v"+Version+"\n"))
	assert.NotContains(t, out, "构建时间")
	assert.Contains(t, out, "平台: "+runtime.GOOS+"/"+runtime.GOARCH)

	Commit, BuildTime, BuildEnv = "abc1234", "2024-03-01T10:00:00Z", "production"
	out = GetFullVersion()
	assert.Contains(t, out, "(abc1234)")
	assert.Contains(t, out, "构建时间: 2024-03-01 10:00:00 UTC")
	assert.True(t, IsProductionBuild())

	BuildTime = "yesterday"
	assert.Contains(t, GetFullVersion(), "构建时间: yesterday")
}
