package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRun_GenerateListImport 测试生成、列出与导入身份
func TestRun_GenerateListImport(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	require.NoError(t, run(&out, dir, []string{"generate", "alice"}))
	assert.Contains(t, out.String(), "alice")

	// 同名身份不可重复生成
	assert.Error(t, run(&out, dir, []string{"generate", "alice"}))

	require.NoError(t, run(&out, dir, []string{"import", "bob", filepath.Join(dir, "alice.pub")}))

	out.Reset()
	require.NoError(t, run(&out, dir, []string{"list"}))
	lines := out.String()
	assert.Contains(t, lines, "alice")
	assert.Contains(t, lines, "bob")
	assert.Contains(t, lines, "yes")
	assert.Contains(t, lines, "no")
}

// TestRun_BadArgs 测试参数错误
func TestRun_BadArgs(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer

	assert.Error(t, run(&out, dir, nil))
	assert.Error(t, run(&out, dir, []string{"generate"}))
	assert.Error(t, run(&out, dir, []string{"generate", "../x"}))
	assert.Error(t, run(&out, dir, []string{"import", "bob"}))
	assert.Error(t, run(&out, dir, []string{"frobnicate"}))
}
