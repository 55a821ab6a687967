package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dep2p/go-dx/internal/behaviour"
	"github.com/dep2p/go-dx/internal/protocol/status"
	"github.com/dep2p/go-dx/pkg/types"
)

// TestFormatEvent 测试事件输出格式
func TestFormatEvent(t *testing.T) {
	alice := types.PeerID{1}
	names := map[types.PeerID]string{alice: "alice"}

	received := behaviour.StatusEvent(status.Event{Peer: alice, Result: status.Received(types.Payload{0xAB})})
	assert.Contains(t, formatEvent(received, names), "alice")
	assert.Contains(t, formatEvent(received, names), types.Payload{0xAB}.String())

	requested := behaviour.StatusEvent(status.Event{Peer: alice, Result: status.Requested()})
	assert.Empty(t, formatEvent(requested, names))

	failed := behaviour.StatusEvent(status.Event{
		Peer:   alice,
		Result: status.Failed(&status.Failure{Kind: status.FailureOther, Cause: errors.New("boom")}),
		Closed: true,
	})
	assert.Contains(t, formatEvent(failed, names), "连接已关闭")

	unknown := behaviour.DiscoveryEvent(&types.PeersDiscovered{Peers: []types.PeerAddr{{Peer: types.PeerID{9}, Addr: "10.0.0.1:1"}}})
	assert.Empty(t, formatEvent(unknown, names))

	known := behaviour.DiscoveryEvent(&types.PeersDiscovered{Peers: []types.PeerAddr{{Peer: alice, Addr: "10.0.0.2:2"}}})
	assert.Contains(t, formatEvent(known, names), "10.0.0.2:2")
}
