package status

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-dx/pkg/types"
)

// State Handler 状态
type State int

const (
	// StateIdle 没有在途请求，等待 deadline 发出下一次请求
	StateIdle State = iota
	// StateOutstanding 有一个在途请求，deadline 为放弃时间
	StateOutstanding
)

// String 返回状态字符串
func (s State) String() string {
	if s == StateOutstanding {
		return "outstanding"
	}
	return "idle"
}

// KeepAlive 保活意见
type KeepAlive int

const (
	// KeepAliveNo 没有意见，由其他协议决定连接寿命
	KeepAliveNo KeepAlive = iota
	// KeepAliveYes 要求保持连接
	KeepAliveYes
)

// EventKind Poll 返回的事件类型
type EventKind int

const (
	// EventNone 暂无事件，等待 NextDeadline 或注入
	EventNone EventKind = iota
	// EventResult 一个结果出队
	EventResult
	// EventOutboundRequest 需要发起一次出站请求
	EventOutboundRequest
)

// OutboundRequest 出站请求描述
type OutboundRequest struct {
	// ID 请求编号，完成时原样注入
	ID uint64
	// Timeout 本次请求的超时
	Timeout time.Duration
}

// HandlerEvent Poll 的输出
type HandlerEvent struct {
	Kind    EventKind
	Result  Result
	Request OutboundRequest
}

// Handler 单条连接上的状态协议状态机
//
// Handler 不做任何 I/O，也不启动 goroutine；由一个 driver 串行调用。
// 只持有一个 deadline：
//   - Idle 时为下一次请求的时间
//   - Outstanding 时为放弃当前请求的时间
type Handler struct {
	cfg   Config
	clock clock.Clock

	state       State
	deadline    time.Time
	outstanding uint64
	nextID      uint64

	// FIFO 结果队列
	queue []Result

	failures uint32
	fatal    *ThresholdError
}

// NewHandler 创建 Handler，第一次请求立即到期
func NewHandler(cfg Config, clk clock.Clock) *Handler {
	if clk == nil {
		clk = clock.New()
	}
	return &Handler{
		cfg:      cfg,
		clock:    clk,
		state:    StateIdle,
		deadline: clk.Now(),
		queue:    make([]Result, 0, 2),
	}
}

// Poll 推进状态机
//
// 先交付队列中的结果（FIFO），再检查 deadline。永不阻塞。
// 失败计数在结果出队时结算：达到 MaxFailures 时返回 *ThresholdError，
// 此后每次 Poll 都返回同一个错误。
func (h *Handler) Poll() (HandlerEvent, error) {
	if h.fatal != nil {
		return HandlerEvent{}, h.fatal
	}

	now := h.clock.Now()
	if h.state == StateOutstanding && !now.Before(h.deadline) {
		// 放弃在途请求；deadline 保持在放弃点，下一次请求立即到期
		h.state = StateIdle
		h.queue = append(h.queue, Failed(&Failure{Kind: FailureTimeout}))
	}

	if len(h.queue) > 0 {
		r := h.queue[0]
		h.queue = h.queue[1:]

		if r.Failure != nil {
			h.failures++
			if h.failures >= h.cfg.MaxFailures {
				h.fatal = &ThresholdError{Failures: h.failures, Last: r.Failure}
				h.queue = nil
				return HandlerEvent{}, h.fatal
			}
			return HandlerEvent{Kind: EventResult, Result: r}, nil
		}
		if r.Kind == SuccessReceived {
			h.failures = 0
			if h.state == StateIdle {
				h.deadline = now.Add(h.cfg.Interval)
			}
		}
		return HandlerEvent{Kind: EventResult, Result: r}, nil
	}

	if h.state == StateIdle && !now.Before(h.deadline) {
		h.nextID++
		h.outstanding = h.nextID
		h.state = StateOutstanding
		h.deadline = now.Add(h.cfg.Timeout)
		return HandlerEvent{
			Kind:    EventOutboundRequest,
			Request: OutboundRequest{ID: h.outstanding, Timeout: h.cfg.Timeout},
		}, nil
	}

	return HandlerEvent{Kind: EventNone}, nil
}

// NextDeadline 返回 driver 应唤醒的时间
//
// 队列非空时返回当前时间。
func (h *Handler) NextDeadline() time.Time {
	if len(h.queue) > 0 {
		return h.clock.Now()
	}
	return h.deadline
}

// InjectInbound 远端请求已被答复
func (h *Handler) InjectInbound() {
	if h.fatal != nil {
		return
	}
	h.queue = append(h.queue, Requested())
}

// InjectOutboundResult 出站请求收到负载
//
// id 与在途请求不符时丢弃并返回 false。
func (h *Handler) InjectOutboundResult(id uint64, payload types.Payload) bool {
	if !h.complete(id) {
		return false
	}
	h.queue = append(h.queue, Received(payload))
	return true
}

// InjectOutboundError 出站请求失败
//
// id 与在途请求不符时丢弃并返回 false。
func (h *Handler) InjectOutboundError(id uint64, err error) bool {
	if !h.complete(id) {
		return false
	}
	h.queue = append(h.queue, Failed(classify(err)))
	return true
}

// complete 结束在途请求；deadline 保持不变
func (h *Handler) complete(id uint64) bool {
	if h.fatal != nil || h.state != StateOutstanding || id != h.outstanding {
		return false
	}
	h.state = StateIdle
	return true
}

// KeepAlive 返回保活意见
func (h *Handler) KeepAlive() KeepAlive {
	if h.cfg.KeepAlive {
		return KeepAliveYes
	}
	return KeepAliveNo
}

// State 返回当前状态
func (h *Handler) State() State { return h.state }

// Failures 返回当前连续失败次数
func (h *Handler) Failures() uint32 { return h.failures }
