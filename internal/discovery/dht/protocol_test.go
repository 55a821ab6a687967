package dht

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/multiformats/go-varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFindNode_RoundTrip 测试请求帧往返
func TestFindNode_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	key := peerWithPrefix(9, 8, 7).Bytes()
	require.NoError(t, writeFindNode(&buf, key))

	got, err := readFindNode(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

// TestPeers_RoundTrip 测试响应帧往返
func TestPeers_RoundTrip(t *testing.T) {
	peers := []PeerInfo{
		{ID: peerWithPrefix(1), Addrs: []string{"127.0.0.1:4001", "[::1]:4001"}},
		{ID: peerWithPrefix(2)},
	}
	var buf bytes.Buffer
	require.NoError(t, writePeers(&buf, peers))

	got, err := readPeers(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, peers, got)
}

// TestProtocol_Limits 测试超限消息被拒绝
func TestProtocol_Limits(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, writeFindNode(&buf, make([]byte, maxKeyLen+1)), ErrMessageTooLarge)

	_, err := readFindNode(bufio.NewReader(bytes.NewReader(varint.ToUvarint(maxKeyLen + 1))))
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	_, err = readPeers(bufio.NewReader(bytes.NewReader(varint.ToUvarint(maxPeersPerResponse + 1))))
	assert.ErrorIs(t, err, ErrMessageTooLarge)

	buf.Reset()
	err = writePeers(&buf, []PeerInfo{{ID: peerWithPrefix(1), Addrs: []string{strings.Repeat("x", maxAddrLen+1)}}})
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

// TestProtocol_Truncated 测试截断的响应
func TestProtocol_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePeers(&buf, []PeerInfo{{ID: peerWithPrefix(1), Addrs: []string{"a:1"}}}))
	data := buf.Bytes()

	_, err := readPeers(bufio.NewReader(bytes.NewReader(data[:len(data)-2])))
	assert.Error(t, err)
}
