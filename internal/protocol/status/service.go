package status

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-dx/internal/core/metrics"
	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/lib/log"
	"github.com/dep2p/go-dx/pkg/types"
)

var logger = log.Logger("protocol/status")

// eventBufferSize 事件通道缓冲
const eventBufferSize = 256

// Event 状态事件，由 Service.Events 投递
type Event struct {
	// Peer 远端节点
	Peer types.PeerID
	// ConnID 产生事件的连接
	ConnID uint64
	// Result 本次结果
	Result Result
	// Closed 连续失败达到上限，连接已被关闭
	Closed bool
}

// ServiceOption 服务选项
type ServiceOption func(*Service)

// WithClock 替换时钟（测试用）
func WithClock(c clock.Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// Service 状态协议服务
//
// 注册响应方流处理器，并为每条连接运行一个 driver。
type Service struct {
	host    interfaces.Host
	cfg     Config
	clock   clock.Clock
	metrics *metrics.Metrics
	request requestFunc

	mu      sync.Mutex
	drivers map[uint64]*driver
	started bool
	ctx     context.Context
	cancel  context.CancelFunc

	events chan Event
}

// NewService 创建状态协议服务
func NewService(host interfaces.Host, cfg Config, opts ...ServiceOption) (*Service, error) {
	if host == nil {
		return nil, ErrNilHost
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		host:    host,
		cfg:     cfg,
		clock:   clock.New(),
		request: RequestStatus,
		drivers: make(map[uint64]*driver),
		events:  make(chan Event, eventBufferSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start 启动服务
//
// 已存在的连接会立即获得 driver。
func (s *Service) Start(_ context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	s.host.SetStreamHandler(ProtocolID, s.handleStream)
	s.host.Notify(s)

	for _, p := range s.host.Peers() {
		for _, c := range s.host.ConnsToPeer(p) {
			s.Connected(c)
		}
	}
	logger.Info("状态协议服务已启动", "payload", s.cfg.Payload.String())
	return nil
}

// Stop 停止服务并等待全部 driver 退出
func (s *Service) Stop(_ context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	s.cancel()
	drivers := make([]*driver, 0, len(s.drivers))
	for id, d := range s.drivers {
		drivers = append(drivers, d)
		delete(s.drivers, id)
	}
	s.mu.Unlock()

	s.host.RemoveStreamHandler(ProtocolID)
	for _, d := range drivers {
		d.stop()
	}
	return nil
}

// Events 返回状态事件通道
func (s *Service) Events() <-chan Event {
	return s.events
}

// Config 返回服务配置
func (s *Service) Config() Config {
	return s.cfg
}

// Connected 实现 interfaces.Notifiee
func (s *Service) Connected(c interfaces.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	if _, ok := s.drivers[c.ID()]; ok {
		return
	}
	d := newDriver(s.ctx, c, s.cfg, s.clock, s.request, s.events, s.metrics)
	s.drivers[c.ID()] = d
	go func() {
		d.run()
		s.mu.Lock()
		if s.drivers[c.ID()] == d {
			delete(s.drivers, c.ID())
		}
		s.mu.Unlock()
	}()
}

// Disconnected 实现 interfaces.Notifiee
func (s *Service) Disconnected(c interfaces.Conn) {
	s.mu.Lock()
	d, ok := s.drivers[c.ID()]
	if ok {
		delete(s.drivers, c.ID())
	}
	s.mu.Unlock()
	if ok {
		// 回调不得阻塞
		d.cancel()
	}
}

// handleStream 响应方：写出本地负载后关闭流
func (s *Service) handleStream(st interfaces.Stream) {
	defer st.Close()

	_ = st.SetDeadline(s.clock.Now().Add(s.cfg.Timeout))
	if err := Respond(st, s.cfg.Payload); err != nil {
		logger.Debug("响应状态请求失败", "peer", st.Conn().RemotePeer().ShortString(), "error", err)
		return
	}

	s.mu.Lock()
	d := s.drivers[st.Conn().ID()]
	s.mu.Unlock()
	if d != nil {
		d.notifyInbound()
	}
}

// driverCount 返回运行中的 driver 数
func (s *Service) driverCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drivers)
}
