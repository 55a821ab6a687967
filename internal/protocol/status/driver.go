package status

import (
	"context"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-dx/internal/core/metrics"
	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/types"
)

// requestFunc 执行一次出站交换
type requestFunc func(ctx context.Context, conn interfaces.Conn) (types.Payload, error)

type outcome struct {
	id      uint64
	payload types.Payload
	err     error
}

// driver 单条连接的驱动 goroutine
//
// 它是 Handler 的唯一调用者：等待 deadline 或注入，执行出站交换，投递事件。
type driver struct {
	conn    interfaces.Conn
	handler *Handler
	clock   clock.Clock
	request requestFunc
	metrics *metrics.Metrics

	inbound  chan struct{}
	outbound chan outcome
	events   chan<- Event

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newDriver(parent context.Context, conn interfaces.Conn, cfg Config, clk clock.Clock, req requestFunc, events chan<- Event, m *metrics.Metrics) *driver {
	ctx, cancel := context.WithCancel(parent)
	return &driver{
		conn:     conn,
		handler:  NewHandler(cfg, clk),
		clock:    clk,
		request:  req,
		metrics:  m,
		inbound:  make(chan struct{}, 16),
		outbound: make(chan outcome, 1),
		events:   events,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// notifyInbound 通知一次入站请求已答复
func (d *driver) notifyInbound() {
	select {
	case d.inbound <- struct{}{}:
	case <-d.ctx.Done():
	}
}

// stop 停止驱动并等待退出
func (d *driver) stop() {
	d.cancel()
	<-d.done
}

func (d *driver) run() {
	defer close(d.done)

	d.conn.SetKeepAlive(ProtocolID, d.handler.KeepAlive() == KeepAliveYes)

	for {
		ev, err := d.handler.Poll()
		if err != nil {
			d.fail(err.(*ThresholdError))
			return
		}

		switch ev.Kind {
		case EventResult:
			d.recordResult(ev.Result)
			if !d.emit(Event{Peer: d.conn.RemotePeer(), ConnID: d.conn.ID(), Result: ev.Result}) {
				return
			}
			continue
		case EventOutboundRequest:
			go d.exchange(ev.Request)
			continue
		}

		timer := d.clock.Timer(d.handler.NextDeadline().Sub(d.clock.Now()))
		select {
		case <-d.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		case <-d.inbound:
			timer.Stop()
			d.handler.InjectInbound()
		case o := <-d.outbound:
			timer.Stop()
			if o.err != nil {
				d.handler.InjectOutboundError(o.id, o.err)
			} else {
				d.handler.InjectOutboundResult(o.id, o.payload)
			}
		}
	}
}

// exchange 执行一次出站交换，超时由 ctx 约束
func (d *driver) exchange(req OutboundRequest) {
	ctx, cancel := context.WithTimeout(d.ctx, req.Timeout)
	defer cancel()

	p, err := d.request(ctx, d.conn)
	select {
	case d.outbound <- outcome{id: req.ID, payload: p, err: err}:
	case <-d.ctx.Done():
	}
}

// fail 连续失败达到上限：投递最后一次失败并关闭连接
func (d *driver) fail(terr *ThresholdError) {
	logger.Warn("状态请求连续失败，关闭连接",
		"peer", d.conn.RemotePeer().ShortString(),
		"failures", terr.Failures,
		"error", terr.Last)

	d.recordResult(Failed(terr.Last))
	d.metrics.ConnectionClosed()
	d.emit(Event{Peer: d.conn.RemotePeer(), ConnID: d.conn.ID(), Result: Failed(terr.Last), Closed: true})
	if err := d.conn.Close(); err != nil {
		logger.Debug("关闭连接失败", "peer", d.conn.RemotePeer().ShortString(), "error", err)
	}
}

func (d *driver) emit(ev Event) bool {
	select {
	case d.events <- ev:
		return true
	case <-d.ctx.Done():
		return false
	}
}

func (d *driver) recordResult(r Result) {
	switch {
	case r.Failure == nil && r.Kind == SuccessReceived:
		d.metrics.StatusResult(metrics.ResultReceived)
	case r.Failure == nil:
		d.metrics.StatusResult(metrics.ResultRequested)
	case r.Failure.Kind == FailureTimeout:
		d.metrics.StatusResult(metrics.ResultTimeout)
	default:
		d.metrics.StatusResult(metrics.ResultOther)
	}
	if r.Failure != nil {
		logger.Debug("状态请求失败", "peer", d.conn.RemotePeer().ShortString(), "error", r.Failure)
	}
}
