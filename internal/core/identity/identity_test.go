package identity

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dx/pkg/types"
)

// TestGenerate 测试身份生成与 PeerID 派生
func TestGenerate(t *testing.T) {
	id, err := Generate("alice")
	require.NoError(t, err)

	assert.Equal(t, "alice", id.Name())
	assert.True(t, id.HasPrivateKey())
	assert.Equal(t, types.PeerIDFromPublicKey(id.PublicKey()), id.ID())

	sig, err := id.Sign([]byte("msg"))
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(id.PublicKey(), []byte("msg"), sig))
}

// TestFromPublicKey 测试只读身份
func TestFromPublicKey(t *testing.T) {
	src, err := Generate("bob")
	require.NoError(t, err)

	pubOnly, err := FromPublicKey("bob", src.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, src.ID(), pubOnly.ID())
	assert.False(t, pubOnly.HasPrivateKey())

	_, err = pubOnly.Sign([]byte("x"))
	assert.ErrorIs(t, err, ErrNoPrivateKey)

	_, err = FromPublicKey("bad", []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

// TestTrustStore_GenerateLoadFind 测试生成 → 加载 → 查找
func TestTrustStore_GenerateLoadFind(t *testing.T) {
	dir := t.TempDir()

	alice, err := GenerateIdentity(dir, "alice")
	require.NoError(t, err)
	bob, err := GenerateIdentity(dir, "bob")
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "alice.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	ts, err := LoadTrustStore(dir)
	require.NoError(t, err)
	require.Len(t, ts.Identities(), 2)
	assert.Equal(t, "alice", ts.Identities()[0].Name())

	found, err := ts.Find("alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID(), found.ID())
	assert.True(t, found.HasPrivateKey())

	byID, ok := ts.FindByID(bob.ID())
	require.True(t, ok)
	assert.Equal(t, "bob", byID.Name())

	others := ts.Others("alice")
	require.Len(t, others, 1)
	assert.Equal(t, bob.ID(), others[0].ID())

	_, err = ts.Find("carol")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestTrustStore_PublicOnly 测试仅有 .pub 的身份
func TestTrustStore_PublicOnly(t *testing.T) {
	dir := t.TempDir()
	remote, err := Generate("remote")
	require.NoError(t, err)

	_, err = ImportPublicKey(dir, "remote", remote.PublicKey())
	require.NoError(t, err)

	ts, err := LoadTrustStore(dir)
	require.NoError(t, err)
	got, err := ts.Find("remote")
	require.NoError(t, err)
	assert.Equal(t, remote.ID(), got.ID())
	assert.False(t, got.HasPrivateKey())
}

// TestTrustStore_SkipsBadFiles 测试跳过损坏文件
func TestTrustStore_SkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := GenerateIdentity(dir, "good")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.pub"), []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	ts, err := LoadTrustStore(dir)
	require.NoError(t, err)
	require.Len(t, ts.Identities(), 1)
	assert.Equal(t, "good", ts.Identities()[0].Name())
}

// TestTrustStore_MissingDir 测试目录不存在
func TestTrustStore_MissingDir(t *testing.T) {
	ts, err := LoadTrustStore(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, ts.Identities())
}

// TestGenerateIdentity_Errors 测试生成错误
func TestGenerateIdentity_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := GenerateIdentity(dir, "alice")
	require.NoError(t, err)

	_, err = GenerateIdentity(dir, "alice")
	assert.ErrorIs(t, err, ErrExists)

	_, err = GenerateIdentity(dir, "../escape")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = GenerateIdentity(dir, "")
	assert.ErrorIs(t, err, ErrInvalidName)
}

// TestTrustStore_KeyMismatch 测试私钥与公钥不匹配
func TestTrustStore_KeyMismatch(t *testing.T) {
	dir := t.TempDir()
	a, err := Generate("a")
	require.NoError(t, err)
	b, err := Generate("b")
	require.NoError(t, err)

	require.NoError(t, SavePublicKeyPEM(a.PublicKey(), filepath.Join(dir, "x.pub")))
	require.NoError(t, SavePrivateKeyPEM(b.PrivateKey(), filepath.Join(dir, "x.key")))

	ts, err := LoadTrustStore(dir)
	require.NoError(t, err)
	assert.Empty(t, ts.Identities())
}
