package status

import (
	"context"
	"errors"
	"os"

	"github.com/dep2p/go-dx/pkg/types"
)

// SuccessKind 成功类型
type SuccessKind int

const (
	// SuccessRequested 远端请求了本地状态，且已答复
	SuccessRequested SuccessKind = iota
	// SuccessReceived 本地请求了远端状态，且已收到
	SuccessReceived
)

// String 返回成功类型字符串
func (k SuccessKind) String() string {
	if k == SuccessReceived {
		return "received"
	}
	return "requested"
}

// Result 一次入站或出站交换的结果
//
// Failure 非 nil 时为失败，否则 Kind / Payload 有效。
type Result struct {
	Kind    SuccessKind
	Payload types.Payload
	Failure *Failure
}

// Requested 构造 Requested 结果
func Requested() Result { return Result{Kind: SuccessRequested} }

// Received 构造 Received 结果
func Received(p types.Payload) Result { return Result{Kind: SuccessReceived, Payload: p} }

// Failed 构造失败结果
func Failed(f *Failure) Result { return Result{Failure: f} }

// IsSuccess 是否成功
func (r Result) IsSuccess() bool { return r.Failure == nil }

// IsReceived 是否为 Received
func (r Result) IsReceived() bool { return r.Failure == nil && r.Kind == SuccessReceived }

// String 返回结果描述
func (r Result) String() string {
	switch {
	case r.Failure != nil:
		return r.Failure.Error()
	case r.Kind == SuccessReceived:
		return "received " + r.Payload.String()
	default:
		return "requested"
	}
}

// timeoutError 传输层超时错误（net.Error、yamux 等）
type timeoutError interface {
	Timeout() bool
}

// classify 把出站错误归类为 Timeout 或 Other
func classify(err error) *Failure {
	if errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return &Failure{Kind: FailureTimeout}
	}
	var te timeoutError
	if errors.As(err, &te) && te.Timeout() {
		return &Failure{Kind: FailureTimeout}
	}
	return &Failure{Kind: FailureOther, Cause: err}
}
