package status

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/dep2p/go-dx/pkg/interfaces"
	"github.com/dep2p/go-dx/pkg/protocolids"
	"github.com/dep2p/go-dx/pkg/types"
)

// ProtocolID 状态协议 ID
const ProtocolID = protocolids.Status

// ============================================================================
//                              线路编解码
// ============================================================================

// Respond 响应方：写出 20 字节负载并 flush
//
// 写与 flush 都成功才返回 nil。
func Respond(w io.Writer, payload types.Payload) error {
	bw := bufio.NewWriterSize(w, types.PayloadSize)
	if _, err := bw.Write(payload[:]); err != nil {
		return fmt.Errorf("status: write payload: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("status: flush payload: %w", err)
	}
	return nil
}

// ReadPayload 发起方：读满 20 字节
//
// 流提前关闭时返回包装了 io.EOF / io.ErrUnexpectedEOF 的错误。
func ReadPayload(r io.Reader) (types.Payload, error) {
	var p types.Payload
	if _, err := io.ReadFull(r, p[:]); err != nil {
		return types.Payload{}, fmt.Errorf("status: read payload: %w", err)
	}
	return p, nil
}

// RequestStatus 在连接上打开一条新流，读取远端状态
//
// ctx 的截止时间同时作用于流的读写。
func RequestStatus(ctx context.Context, conn interfaces.Conn) (types.Payload, error) {
	s, err := conn.NewStream(ctx, ProtocolID)
	if err != nil {
		if ctx.Err() != nil {
			return types.Payload{}, ctx.Err()
		}
		return types.Payload{}, err
	}
	defer s.Close()

	if d, ok := ctx.Deadline(); ok {
		_ = s.SetDeadline(d)
	}
	p, err := ReadPayload(s)
	if err != nil && ctx.Err() != nil {
		return types.Payload{}, ctx.Err()
	}
	return p, err
}
