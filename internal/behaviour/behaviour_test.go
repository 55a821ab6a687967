package behaviour

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dx/internal/protocol/status"
	"github.com/dep2p/go-dx/pkg/types"
)

// fakeDHT 记录调用的 DHT
type fakeDHT struct {
	mu         sync.Mutex
	bootstraps int
	queries    [][]byte
	addrs      []types.PeerAddr
	events     chan types.DHTEvent
}

func newFakeDHT() *fakeDHT {
	return &fakeDHT{events: make(chan types.DHTEvent, 16)}
}

func (f *fakeDHT) Bootstrap() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bootstraps++
}

func (f *fakeDHT) GetClosestPeers(key []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, append([]byte(nil), key...))
}

func (f *fakeDHT) AddAddress(peer types.PeerID, addr string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addrs = append(f.addrs, types.PeerAddr{Peer: peer, Addr: addr})
}

func (f *fakeDHT) Events() <-chan types.DHTEvent { return f.events }

func (f *fakeDHT) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeDHT) addrHints() []types.PeerAddr {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.PeerAddr(nil), f.addrs...)
}

type fakeDiscovery struct{ events chan types.DiscoveryEvent }

func (f *fakeDiscovery) Events() <-chan types.DiscoveryEvent { return f.events }

type fakeStatus struct{ events chan status.Event }

func (f *fakeStatus) Events() <-chan status.Event { return f.events }

func newTestBehaviour(t *testing.T, cfg Config, opts ...Option) (*Behaviour, *fakeDHT) {
	t.Helper()
	d := newFakeDHT()
	b, err := New(d, cfg, opts...)
	require.NoError(t, err)
	return b, d
}

// TestBehaviour_AddPeerQueries 测试关注节点触发最近节点查询
func TestBehaviour_AddPeerQueries(t *testing.T) {
	b, d := newTestBehaviour(t, DefaultConfig())
	id := testPeerID("a")

	b.AddPeer(id)
	require.Equal(t, 1, d.queryCount())
	assert.Equal(t, id.Bytes(), d.queries[0])

	info, ok := b.Lookup(id)
	require.True(t, ok)
	assert.Nil(t, info.Routing)
	assert.Nil(t, info.Status)

	// 重复关注不新增条目，但刷新查询
	b.AddPeer(id)
	assert.Equal(t, 2, d.queryCount())
	assert.Len(t, b.Peers(), 1)
}

// TestBehaviour_ClosestPeersUpdatesRouting 测试最近节点结果更新路由
func TestBehaviour_ClosestPeersUpdatesRouting(t *testing.T) {
	clk := clock.NewMock()
	b, _ := newTestBehaviour(t, DefaultConfig(), WithClock(clk))
	id := testPeerID("a")
	b.AddPeer(id)
	b.registry.UpdateStatus(id, types.Payload{5}, clk.Now())

	closest := []types.PeerID{testPeerID("b"), testPeerID("c")}
	clk.Add(time.Minute)
	b.dispatch(context.Background(), DHTEvent(&types.ClosestPeersResult{Key: id.Bytes(), Peers: closest}))

	info, _ := b.Lookup(id)
	require.NotNil(t, info.Routing)
	assert.Equal(t, closest, info.Routing.Peers)
	assert.Equal(t, clk.Now(), info.Routing.ObservedAt)
	require.NotNil(t, info.Status)
	assert.Equal(t, types.Payload{5}, info.Status.Payload)
}

// TestBehaviour_UnknownKeyIgnored 测试未关注的节点不写入注册表
func TestBehaviour_UnknownKeyIgnored(t *testing.T) {
	b, d := newTestBehaviour(t, DefaultConfig())
	id := testPeerID("stranger")

	b.dispatch(context.Background(), DHTEvent(&types.ClosestPeersResult{
		Key:   id.Bytes(),
		Peers: []types.PeerID{testPeerID("b")},
	}))
	assert.Equal(t, 0, b.registry.Len())
	assert.Equal(t, 0, d.queryCount())
}

// TestBehaviour_BadKeyDropped 测试无法解析的键被丢弃
func TestBehaviour_BadKeyDropped(t *testing.T) {
	b, d := newTestBehaviour(t, DefaultConfig())

	b.dispatch(context.Background(), DHTEvent(&types.ClosestPeersResult{Key: []byte("short")}))
	assert.Equal(t, 0, d.queryCount())
}

// TestBehaviour_EmptyResultRequeriesOnce 测试空结果恰好重查一次
func TestBehaviour_EmptyResultRequeriesOnce(t *testing.T) {
	b, d := newTestBehaviour(t, DefaultConfig())
	id := testPeerID("a")

	b.dispatch(context.Background(), DHTEvent(&types.ClosestPeersResult{Key: id.Bytes()}))
	require.Equal(t, 1, d.queryCount())
	assert.Equal(t, id.Bytes(), d.queries[0])

	// 每个空结果各自触发一次，不级联
	b.dispatch(context.Background(), DHTEvent(&types.ClosestPeersResult{Key: id.Bytes()}))
	assert.Equal(t, 2, d.queryCount())
}

// TestBehaviour_QueryErrorNotRetried 测试查询错误只记录日志
func TestBehaviour_QueryErrorNotRetried(t *testing.T) {
	b, d := newTestBehaviour(t, DefaultConfig())
	id := testPeerID("a")
	b.registry.Add(id)

	b.dispatch(context.Background(), DHTEvent(&types.ClosestPeersResult{Key: id.Bytes(), Err: errors.New("timeout")}))
	b.dispatch(context.Background(), DHTEvent(&types.BootstrapResult{Err: errors.New("no peers")}))
	assert.Equal(t, 0, d.queryCount())

	info, _ := b.Lookup(id)
	assert.Nil(t, info.Routing)
}

// TestBehaviour_RetryLimit 测试重查上限
func TestBehaviour_RetryLimit(t *testing.T) {
	b, d := newTestBehaviour(t, Config{RetryLimit: 2})
	id := testPeerID("a")
	empty := DHTEvent(&types.ClosestPeersResult{Key: id.Bytes()})

	b.dispatch(context.Background(), empty)
	b.dispatch(context.Background(), empty)
	b.dispatch(context.Background(), empty)
	assert.Equal(t, 2, d.queryCount())

	// 放弃后计数清零，新一轮重新开始
	b.dispatch(context.Background(), empty)
	assert.Equal(t, 3, d.queryCount())

	// 非空结果清零计数
	b.dispatch(context.Background(), DHTEvent(&types.ClosestPeersResult{Key: id.Bytes(), Peers: []types.PeerID{testPeerID("b")}}))
	b.dispatch(context.Background(), empty)
	b.dispatch(context.Background(), empty)
	assert.Equal(t, 5, d.queryCount())
}

// TestBehaviour_RetryDelay 测试延迟重查
func TestBehaviour_RetryDelay(t *testing.T) {
	clk := clock.NewMock()
	b, d := newTestBehaviour(t, Config{RetryDelay: 5 * time.Second}, WithClock(clk))
	id := testPeerID("a")

	b.dispatch(context.Background(), DHTEvent(&types.ClosestPeersResult{Key: id.Bytes()}))
	assert.Equal(t, 0, d.queryCount())

	clk.Add(5 * time.Second)
	require.Eventually(t, func() bool { return d.queryCount() == 1 }, time.Second, 5*time.Millisecond)
}

// TestBehaviour_DiscoveryFeedsDHT 测试发现的地址交给 DHT
func TestBehaviour_DiscoveryFeedsDHT(t *testing.T) {
	b, d := newTestBehaviour(t, DefaultConfig())
	pas := []types.PeerAddr{
		{Peer: testPeerID("a"), Addr: "10.0.0.1:4001"},
		{Peer: testPeerID("a"), Addr: "10.0.0.2:4001"},
		{Peer: testPeerID("b"), Addr: "10.0.0.3:4001"},
	}

	b.dispatch(context.Background(), DiscoveryEvent(&types.PeersDiscovered{Peers: pas}))
	assert.Equal(t, pas, d.addrHints())
	assert.Equal(t, 0, b.registry.Len())

	b.dispatch(context.Background(), DiscoveryEvent(&types.PeersExpired{Peers: pas}))
	assert.Len(t, d.addrHints(), 3)
	assert.Equal(t, 0, b.registry.Len())
}

// TestBehaviour_StatusEvents 测试状态事件默认不写入注册表
func TestBehaviour_StatusEvents(t *testing.T) {
	id := testPeerID("a")
	received := StatusEvent(status.Event{Peer: id, Result: status.Received(types.Payload{9})})

	b, _ := newTestBehaviour(t, DefaultConfig())
	b.registry.Add(id)
	b.dispatch(context.Background(), received)
	b.dispatch(context.Background(), StatusEvent(status.Event{Peer: id, Result: status.Requested()}))
	b.dispatch(context.Background(), StatusEvent(status.Event{
		Peer:   id,
		Result: status.Failed(&status.Failure{Kind: status.FailureTimeout}),
		Closed: true,
	}))
	info, _ := b.Lookup(id)
	assert.Nil(t, info.Status)

	rec, _ := newTestBehaviour(t, Config{RecordStatus: true})
	rec.registry.Add(id)
	rec.dispatch(context.Background(), received)
	info, _ = rec.Lookup(id)
	require.NotNil(t, info.Status)
	assert.Equal(t, types.Payload{9}, info.Status.Payload)
}

// TestBehaviour_Run 测试事件循环汇聚三类事件
func TestBehaviour_Run(t *testing.T) {
	disc := &fakeDiscovery{events: make(chan types.DiscoveryEvent, 1)}
	st := &fakeStatus{events: make(chan status.Event, 1)}
	boot := types.PeerAddr{Peer: testPeerID("boot"), Addr: "127.0.0.1:4001"}

	b, d := newTestBehaviour(t,
		Config{RecordStatus: true, BootstrapPeers: []types.PeerAddr{boot}},
		WithDiscovery(disc), WithStatus(st))

	require.NoError(t, b.Start(context.Background()))
	assert.ErrorIs(t, b.Start(context.Background()), ErrAlreadyStarted)
	defer b.Stop(context.Background())

	assert.Equal(t, 1, d.bootstraps)
	assert.Equal(t, []types.PeerAddr{boot}, d.addrHints())

	id := testPeerID("a")
	b.AddPeer(id)

	d.events <- &types.ClosestPeersResult{Key: id.Bytes(), Peers: []types.PeerID{boot.Peer}}
	disc.events <- &types.PeersDiscovered{Peers: []types.PeerAddr{{Peer: id, Addr: "127.0.0.1:4002"}}}
	st.events <- status.Event{Peer: id, Result: status.Received(types.Payload{3})}

	require.Eventually(t, func() bool {
		info, _ := b.Lookup(id)
		return info.Routing != nil && info.Status != nil && len(d.addrHints()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Stop(context.Background()))
	require.NoError(t, b.Stop(context.Background()))
}

// TestNew_Errors 测试构造参数校验
func TestNew_Errors(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDHT)

	_, err = New(newFakeDHT(), Config{RetryLimit: -1})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// TestBehaviour_Subscribe 测试订阅已处理事件
func TestBehaviour_Subscribe(t *testing.T) {
	st := &fakeStatus{events: make(chan status.Event, 1)}
	b, _ := newTestBehaviour(t, DefaultConfig(), WithStatus(st))
	sub := b.Subscribe()

	require.NoError(t, b.Start(context.Background()))
	id := testPeerID("a")
	st.events <- status.Event{Peer: id, Result: status.Received(types.Payload{1})}

	select {
	case ev := <-sub:
		assert.Equal(t, EventStatus, ev.Kind)
		assert.Equal(t, id, ev.Status.Peer)
	case <-time.After(2 * time.Second):
		t.Fatal("等待订阅事件超时")
	}

	require.NoError(t, b.Stop(context.Background()))
	_, open := <-sub
	assert.False(t, open)
}

// TestBehaviour_SubscribeAfterStop 测试停止后订阅得到已关闭的通道
func TestBehaviour_SubscribeAfterStop(t *testing.T) {
	b, _ := newTestBehaviour(t, DefaultConfig())
	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Stop(context.Background()))

	sub := b.Subscribe()
	select {
	case _, open := <-sub:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("停止后的订阅通道未关闭")
	}
}
