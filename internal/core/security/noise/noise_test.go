package noise

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dx/pkg/types"
)

func genKey(t *testing.T) (ed25519.PrivateKey, types.PeerID) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return priv, types.PeerIDFromPublicKey(pub)
}

type result struct {
	conn *Conn
	err  error
}

func handshakePair(t *testing.T, clientKey, serverKey ed25519.PrivateKey, expected types.PeerID) (result, result) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		a.Close()
		b.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srvCh := make(chan result, 1)
	go func() {
		c, err := SecureInbound(ctx, b, serverKey)
		if err != nil {
			b.Close()
		}
		srvCh <- result{c, err}
	}()

	c, err := SecureOutbound(ctx, a, clientKey, expected)
	if err != nil {
		a.Close()
	}
	return result{c, err}, <-srvCh
}

// TestHandshake_MutualAuth 测试握手后双方得到对端 PeerID
func TestHandshake_MutualAuth(t *testing.T) {
	clientKey, clientID := genKey(t)
	serverKey, serverID := genKey(t)

	cli, srv := handshakePair(t, clientKey, serverKey, serverID)
	require.NoError(t, cli.err)
	require.NoError(t, srv.err)

	assert.Equal(t, serverID, cli.conn.RemotePeer())
	assert.Equal(t, clientID, cli.conn.LocalPeer())
	assert.Equal(t, clientID, srv.conn.RemotePeer())
	assert.Equal(t, serverID, srv.conn.LocalPeer())
	assert.Equal(t, types.PeerIDFromPublicKey(srv.conn.RemotePublicKey()), clientID)
}

// TestHandshake_PeerIDMismatch 测试期望 PeerID 不符
func TestHandshake_PeerIDMismatch(t *testing.T) {
	clientKey, _ := genKey(t)
	serverKey, _ := genKey(t)
	_, otherID := genKey(t)

	cli, _ := handshakePair(t, clientKey, serverKey, otherID)
	assert.ErrorIs(t, cli.err, ErrPeerIDMismatch)
}

// TestConn_ReadWrite 测试加密读写（含跨帧大数据）
func TestConn_ReadWrite(t *testing.T) {
	clientKey, _ := genKey(t)
	serverKey, serverID := genKey(t)

	cli, srv := handshakePair(t, clientKey, serverKey, serverID)
	require.NoError(t, cli.err)
	require.NoError(t, srv.err)

	big := make([]byte, 3*maxPlaintext+7)
	_, err := rand.Read(big)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := cli.conn.Write(big)
		done <- err
	}()

	got := make([]byte, len(big))
	_, err = io.ReadFull(srv.conn, got)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, big, got)

	go func() {
		_, err := srv.conn.Write([]byte("pong"))
		done <- err
	}()
	small := make([]byte, 4)
	_, err = io.ReadFull(cli.conn, small)
	require.NoError(t, err)
	require.NoError(t, <-done)
	assert.Equal(t, "pong", string(small))
}

// TestVerifyPayload 测试 payload 校验
func TestVerifyPayload(t *testing.T) {
	priv, id := genKey(t)
	static := make([]byte, 32)
	_, _ = rand.Read(static)

	payload := generatePayload(priv, static)
	pub, err := verifyPayload(payload, static)
	require.NoError(t, err)
	assert.Equal(t, id, types.PeerIDFromPublicKey(pub))

	other := make([]byte, 32)
	_, _ = rand.Read(other)
	_, err = verifyPayload(payload, other)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = verifyPayload(payload[:10], static)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}
