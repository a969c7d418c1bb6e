package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNew 测试配置创建
func TestNew(t *testing.T) {
	assert.True(t, New(nil).IsEnabled())

	disabled := false
	assert.False(t, New(&EventOptions{Enabled: &disabled}).IsEnabled())

	var nilCfg *Config
	assert.False(t, nilCfg.IsEnabled())
}
