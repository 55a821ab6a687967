package protocolids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestIsApp 测试应用协议判断
func TestIsApp(t *testing.T) {
	assert.True(t, IsApp(Status))
	assert.True(t, IsApp(Kad))
	assert.False(t, IsApp(Noise))
	assert.False(t, IsApp(Yamux))
}

// TestStatusProtocolID 测试状态协议 ID 与线上值一致
func TestStatusProtocolID(t *testing.T) {
	assert.Equal(t, "/dx/status/0.1.0", Status)
}
