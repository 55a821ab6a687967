package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-dx/pkg/types"
)

func newTestHandler(t *testing.T, opts ...Option) (*Handler, *clock.Mock) {
	t.Helper()
	cfg, err := NewConfig(types.Payload{1, 2, 3}, opts...)
	require.NoError(t, err)
	clk := clock.NewMock()
	return NewHandler(cfg, clk), clk
}

func pollRequest(t *testing.T, h *Handler) OutboundRequest {
	t.Helper()
	ev, err := h.Poll()
	require.NoError(t, err)
	require.Equal(t, EventOutboundRequest, ev.Kind)
	return ev.Request
}

func pollResult(t *testing.T, h *Handler) Result {
	t.Helper()
	ev, err := h.Poll()
	require.NoError(t, err)
	require.Equal(t, EventResult, ev.Kind)
	return ev.Result
}

func pollNone(t *testing.T, h *Handler) {
	t.Helper()
	ev, err := h.Poll()
	require.NoError(t, err)
	require.Equal(t, EventNone, ev.Kind)
}

// TestHandler_FirstRequestImmediate 测试创建后立即发出第一次请求
func TestHandler_FirstRequestImmediate(t *testing.T) {
	h, clk := newTestHandler(t)
	assert.Equal(t, clk.Now(), h.NextDeadline())

	req := pollRequest(t, h)
	assert.Equal(t, uint64(1), req.ID)
	assert.Equal(t, 20*time.Second, req.Timeout)
	assert.Equal(t, StateOutstanding, h.State())
	assert.Equal(t, clk.Now().Add(20*time.Second), h.NextDeadline())

	// 在途期间不会再发请求
	pollNone(t, h)
}

// TestHandler_ReceivedSchedulesInterval 测试成功后 interval 内不再发请求
func TestHandler_ReceivedSchedulesInterval(t *testing.T) {
	h, clk := newTestHandler(t, WithMaxFailures(3))
	payload := types.Payload{0xAA}

	req := pollRequest(t, h)
	clk.Add(2 * time.Second)
	require.True(t, h.InjectOutboundResult(req.ID, payload))

	r := pollResult(t, h)
	assert.True(t, r.IsReceived())
	assert.Equal(t, payload, r.Payload)
	assert.Equal(t, StateIdle, h.State())
	assert.Equal(t, clk.Now().Add(15*time.Second), h.NextDeadline())

	clk.Add(15*time.Second - time.Millisecond)
	pollNone(t, h)

	clk.Add(time.Millisecond)
	next := pollRequest(t, h)
	assert.Equal(t, uint64(2), next.ID)
}

// TestHandler_Timeout 测试在途请求超时产生 Failure{Timeout}
func TestHandler_Timeout(t *testing.T) {
	h, clk := newTestHandler(t, WithMaxFailures(2), WithTimeout(5*time.Second))

	req := pollRequest(t, h)
	clk.Add(5 * time.Second)

	r := pollResult(t, h)
	require.NotNil(t, r.Failure)
	assert.Equal(t, FailureTimeout, r.Failure.Kind)
	assert.ErrorIs(t, r.Failure, ErrTimeout)
	assert.Equal(t, uint32(1), h.Failures())

	// 超时后的迟到结果被丢弃
	assert.False(t, h.InjectOutboundResult(req.ID, types.Payload{}))

	// deadline 停在放弃点，下一次请求立即到期
	next := pollRequest(t, h)
	assert.Equal(t, req.ID+1, next.ID)
}

// TestHandler_ThresholdIsFatal 测试达到失败上限后持续返回致命错误
func TestHandler_ThresholdIsFatal(t *testing.T) {
	h, _ := newTestHandler(t)

	req := pollRequest(t, h)
	require.True(t, h.InjectOutboundError(req.ID, io.ErrUnexpectedEOF))

	_, err := h.Poll()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFailureThreshold))

	var terr *ThresholdError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, uint32(1), terr.Failures)
	assert.Equal(t, FailureOther, terr.Last.Kind)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, again := h.Poll()
	assert.Same(t, terr, again)

	// 致命后忽略注入
	h.InjectInbound()
	_, err = h.Poll()
	assert.ErrorIs(t, err, ErrFailureThreshold)
}

// TestHandler_ReceivedResetsFailures 测试 Received 清零失败计数
func TestHandler_ReceivedResetsFailures(t *testing.T) {
	h, clk := newTestHandler(t, WithMaxFailures(2))

	req := pollRequest(t, h)
	require.True(t, h.InjectOutboundError(req.ID, errors.New("stream reset")))
	r := pollResult(t, h)
	require.NotNil(t, r.Failure)
	assert.Equal(t, uint32(1), h.Failures())

	// 失败后 deadline 不变，到放弃点再发
	pollNone(t, h)
	clk.Add(20 * time.Second)
	req = pollRequest(t, h)
	require.True(t, h.InjectOutboundResult(req.ID, types.Payload{9}))
	pollResult(t, h)
	assert.Equal(t, uint32(0), h.Failures())

	// 计数清零后再失败一次仍非致命
	clk.Add(15 * time.Second)
	req = pollRequest(t, h)
	require.True(t, h.InjectOutboundError(req.ID, errors.New("stream reset")))
	r = pollResult(t, h)
	assert.NotNil(t, r.Failure)
}

// advanceToDeadline 把 mock 时钟推进到 handler 的 deadline
func advanceToDeadline(h *Handler, clk *clock.Mock) {
	if d := h.NextDeadline().Sub(clk.Now()); d > 0 {
		clk.Add(d)
	}
}

// failOnce 发出一次请求并让它失败：奇数次超时，偶数次传输错误
func failOnce(t *testing.T, h *Handler, clk *clock.Mock, i int) (HandlerEvent, error) {
	t.Helper()
	advanceToDeadline(h, clk)
	req := pollRequest(t, h)
	if i%2 == 1 {
		clk.Add(req.Timeout)
	} else {
		require.True(t, h.InjectOutboundError(req.ID, errors.New("stream reset")))
	}
	return h.Poll()
}

// TestHandler_ThresholdExactlyOnNth 测试第 N 次连续失败才致命，Received 从 N-1 清零
func TestHandler_ThresholdExactlyOnNth(t *testing.T) {
	for n := 1; n <= 5; n++ {
		t.Run(fmt.Sprintf("max_failures=%d", n), func(t *testing.T) {
			h, clk := newTestHandler(t, WithMaxFailures(uint32(n)))

			if n > 1 {
				for i := 1; i < n; i++ {
					ev, err := failOnce(t, h, clk, i)
					require.NoError(t, err)
					require.Equal(t, EventResult, ev.Kind)
					require.NotNil(t, ev.Result.Failure)
					assert.Equal(t, uint32(i), h.Failures())
				}

				// N-1 次失败后一次 Received 清零
				advanceToDeadline(h, clk)
				req := pollRequest(t, h)
				require.True(t, h.InjectOutboundResult(req.ID, types.Payload{4}))
				r := pollResult(t, h)
				require.True(t, r.IsReceived())
				assert.Equal(t, uint32(0), h.Failures())
			}

			for i := 1; i < n; i++ {
				ev, err := failOnce(t, h, clk, i)
				require.NoError(t, err, "failure %d of %d", i, n)
				require.Equal(t, EventResult, ev.Kind)
				require.NotNil(t, ev.Result.Failure)
			}

			_, err := failOnce(t, h, clk, n)
			require.ErrorIs(t, err, ErrFailureThreshold)
			var terr *ThresholdError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, uint32(n), terr.Failures)
			if n%2 == 1 {
				assert.Equal(t, FailureTimeout, terr.Last.Kind)
			} else {
				assert.Equal(t, FailureOther, terr.Last.Kind)
			}
		})
	}
}

// TestHandler_InboundDoesNotTouchSchedule 测试入站答复不影响出站计划
func TestHandler_InboundDoesNotTouchSchedule(t *testing.T) {
	h, clk := newTestHandler(t, WithMaxFailures(3))

	req := pollRequest(t, h)
	deadline := h.NextDeadline()

	h.InjectInbound()
	assert.Equal(t, clk.Now(), h.NextDeadline())
	r := pollResult(t, h)
	assert.True(t, r.IsSuccess())
	assert.Equal(t, SuccessRequested, r.Kind)
	assert.Equal(t, StateOutstanding, h.State())
	assert.Equal(t, deadline, h.NextDeadline())

	require.True(t, h.InjectOutboundError(req.ID, errors.New("refused")))
	pollResult(t, h)
	h.InjectInbound()
	pollResult(t, h)
	// Requested 不清零失败计数
	assert.Equal(t, uint32(1), h.Failures())
}

// TestHandler_FIFO 测试结果按到达顺序交付
func TestHandler_FIFO(t *testing.T) {
	h, _ := newTestHandler(t, WithMaxFailures(3))

	req := pollRequest(t, h)
	h.InjectInbound()
	require.True(t, h.InjectOutboundResult(req.ID, types.Payload{7}))
	h.InjectInbound()

	assert.Equal(t, SuccessRequested, pollResult(t, h).Kind)
	assert.True(t, pollResult(t, h).IsReceived())
	assert.Equal(t, SuccessRequested, pollResult(t, h).Kind)
	pollNone(t, h)
}

// TestHandler_StaleID 测试过期请求编号被丢弃
func TestHandler_StaleID(t *testing.T) {
	h, _ := newTestHandler(t)

	req := pollRequest(t, h)
	assert.False(t, h.InjectOutboundResult(req.ID+1, types.Payload{}))
	assert.False(t, h.InjectOutboundError(req.ID+1, errors.New("x")))
	assert.Equal(t, StateOutstanding, h.State())

	assert.True(t, h.InjectOutboundResult(req.ID, types.Payload{}))
	assert.False(t, h.InjectOutboundResult(req.ID, types.Payload{}))
}

// TestHandler_KeepAlive 测试保活意见
func TestHandler_KeepAlive(t *testing.T) {
	h, _ := newTestHandler(t, WithMaxFailures(2))
	assert.Equal(t, KeepAliveNo, h.KeepAlive())

	h, _ = newTestHandler(t, WithKeepAlive(true))
	assert.Equal(t, KeepAliveYes, h.KeepAlive())

	// 保活不阻止达到阈值后的关闭
	req := pollRequest(t, h)
	require.True(t, h.InjectOutboundError(req.ID, errors.New("x")))
	_, err := h.Poll()
	assert.ErrorIs(t, err, ErrFailureThreshold)
	assert.Equal(t, KeepAliveYes, h.KeepAlive())
}

// TestClassify 测试出站错误分类
func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"timeout sentinel", ErrTimeout, FailureTimeout},
		{"context deadline", fmt.Errorf("read: %w", context.DeadlineExceeded), FailureTimeout},
		{"net timeout", timeoutErr{}, FailureTimeout},
		{"eof", io.EOF, FailureOther},
		{"other", errors.New("boom"), FailureOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err).Kind)
		})
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }
