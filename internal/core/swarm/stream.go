package swarm

import (
	"sync"
	"time"

	"github.com/hashicorp/yamux"

	"github.com/dep2p/go-dx/pkg/interfaces"
)

// stream 封装 yamux.Stream，记录协议与所属连接
type stream struct {
	ys       *yamux.Stream
	protocol string
	conn     *conn

	closeOnce sync.Once
}

var _ interfaces.Stream = (*stream)(nil)

func newStream(ys *yamux.Stream, proto string, c *conn) *stream {
	c.streamOpened()
	return &stream{ys: ys, protocol: proto, conn: c}
}

func (s *stream) Read(p []byte) (int, error)  { return s.ys.Read(p) }
func (s *stream) Write(p []byte) (int, error) { return s.ys.Write(p) }

// Close 关闭流（发送 FIN）
func (s *stream) Close() error {
	err := s.ys.Close()
	s.closeOnce.Do(s.conn.streamClosed)
	return err
}

func (s *stream) Protocol() string               { return s.protocol }
func (s *stream) Conn() interfaces.Conn          { return s.conn }
func (s *stream) SetDeadline(t time.Time) error  { return s.ys.SetDeadline(t) }
