package status

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dx/internal/core/swarm"
	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/types"
)

func newTestHost(t *testing.T) *swarm.Swarm {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	cfg := swarm.DefaultConfig()
	cfg.ListenAddrs = []string{"127.0.0.1:0"}
	cfg.IdleTimeout = 0
	s, err := swarm.New(priv, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestService(t *testing.T, h interfaces.Host, p types.Payload, opts ...Option) *Service {
	t.Helper()
	cfg, err := NewConfig(p, opts...)
	require.NoError(t, err)
	s, err := NewService(h, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func connect(t *testing.T, a, b *swarm.Swarm) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Connect(ctx, b.ID(), b.Addrs()))
}

func nextEvent(t *testing.T, s *Service, match func(Event) bool) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-s.Events():
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("等待状态事件超时")
		}
	}
}

// TestService_Exchange 测试两端互相获取状态
func TestService_Exchange(t *testing.T) {
	a, b := newTestHost(t), newTestHost(t)
	pa, pb := types.Payload{0xA}, types.Payload{0xB}

	sa := newTestService(t, a, pa, WithInterval(50*time.Millisecond), WithTimeout(2*time.Second))
	sb := newTestService(t, b, pb, WithInterval(50*time.Millisecond), WithTimeout(2*time.Second))

	connect(t, a, b)

	ev := nextEvent(t, sa, func(e Event) bool { return e.Result.IsReceived() })
	assert.Equal(t, b.ID(), ev.Peer)
	assert.Equal(t, pb, ev.Result.Payload)
	assert.False(t, ev.Closed)

	ev = nextEvent(t, sb, func(e Event) bool { return e.Result.IsReceived() })
	assert.Equal(t, a.ID(), ev.Peer)
	assert.Equal(t, pa, ev.Result.Payload)

	// 对端请求被答复后产生 Requested
	ev = nextEvent(t, sa, func(e Event) bool { return e.Result.IsSuccess() && e.Result.Kind == SuccessRequested })
	assert.Equal(t, b.ID(), ev.Peer)

	// 周期性请求
	nextEvent(t, sa, func(e Event) bool { return e.Result.IsReceived() })
	assert.Len(t, a.ConnsToPeer(b.ID()), 1)
}

// TestService_UnsupportedClosesConnection 测试对端不支持协议时关闭连接
func TestService_UnsupportedClosesConnection(t *testing.T) {
	a, b := newTestHost(t), newTestHost(t)
	sa := newTestService(t, a, types.Payload{1}, WithTimeout(2*time.Second))

	connect(t, a, b)

	ev := nextEvent(t, sa, func(e Event) bool { return e.Closed })
	assert.Equal(t, b.ID(), ev.Peer)
	require.NotNil(t, ev.Result.Failure)
	assert.Equal(t, FailureOther, ev.Result.Failure.Kind)

	require.Eventually(t, func() bool {
		return len(a.ConnsToPeer(b.ID())) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

// TestService_Timeout 测试对端不响应时超时并关闭连接
func TestService_Timeout(t *testing.T) {
	a, b := newTestHost(t), newTestHost(t)
	hold := make(chan struct{})
	t.Cleanup(func() { close(hold) })
	b.SetStreamHandler(ProtocolID, func(s interfaces.Stream) {
		<-hold
		_ = s.Close()
	})

	sa := newTestService(t, a, types.Payload{1}, WithTimeout(200*time.Millisecond))
	connect(t, a, b)

	start := time.Now()
	ev := nextEvent(t, sa, func(e Event) bool { return e.Result.Failure != nil })
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.Equal(t, FailureTimeout, ev.Result.Failure.Kind)
	assert.True(t, ev.Closed)
}

// TestService_ToleratesFailures 测试失败次数低于阈值时连接保持
func TestService_ToleratesFailures(t *testing.T) {
	a, b := newTestHost(t), newTestHost(t)
	sa := newTestService(t, a, types.Payload{1},
		WithTimeout(100*time.Millisecond), WithMaxFailures(3))

	connect(t, a, b)

	ev := nextEvent(t, sa, func(e Event) bool { return e.Result.Failure != nil })
	assert.False(t, ev.Closed)
	assert.Len(t, a.ConnsToPeer(b.ID()), 1)

	ev = nextEvent(t, sa, func(e Event) bool { return e.Closed })
	assert.NotNil(t, ev.Result.Failure)
}

// TestService_Lifecycle 测试启动与停止
func TestService_Lifecycle(t *testing.T) {
	_, err := NewService(nil, DefaultConfig(types.Payload{}))
	assert.ErrorIs(t, err, ErrNilHost)

	a := newTestHost(t)
	_, err = NewService(a, Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	s, err := NewService(a, DefaultConfig(types.Payload{}))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)

	b := newTestHost(t)
	newTestService(t, b, types.Payload{2})
	connect(t, a, b)
	require.Eventually(t, func() bool { return s.driverCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, 0, s.driverCount())
	require.NoError(t, s.Stop(context.Background()))
}
