package status

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout 请求在超时时间内未得到响应
	ErrTimeout = errors.New("status: timeout")

	// ErrFailureThreshold 连续失败达到上限
	ErrFailureThreshold = errors.New("status: failure threshold reached")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("status: invalid config")

	// ErrNilHost Host 为 nil
	ErrNilHost = errors.New("status: host is nil")

	// ErrAlreadyStarted 服务已启动
	ErrAlreadyStarted = errors.New("status: service already started")
)

// FailureKind 失败类型
type FailureKind int

const (
	// FailureTimeout 超时
	FailureTimeout FailureKind = iota
	// FailureOther 其他错误（流打开失败、协商失败、短读等）
	FailureOther
)

// String 返回失败类型字符串
func (k FailureKind) String() string {
	if k == FailureTimeout {
		return "timeout"
	}
	return "other"
}

// Failure 一次出站请求失败
type Failure struct {
	Kind  FailureKind
	Cause error
}

// Error 实现 error
func (f *Failure) Error() string {
	if f.Kind == FailureTimeout {
		return "status timeout"
	}
	return fmt.Sprintf("status error: %v", f.Cause)
}

// Unwrap 返回底层原因；超时返回 ErrTimeout
func (f *Failure) Unwrap() error {
	if f.Kind == FailureTimeout {
		return ErrTimeout
	}
	return f.Cause
}

// ThresholdError 连续失败达到上限，连接应被关闭
type ThresholdError struct {
	Failures uint32
	Last     *Failure
}

// Error 实现 error
func (e *ThresholdError) Error() string {
	return fmt.Sprintf("status: %d consecutive failures, last: %v", e.Failures, e.Last)
}

// Is 匹配 ErrFailureThreshold
func (e *ThresholdError) Is(target error) bool {
	return target == ErrFailureThreshold
}

// Unwrap 返回最后一次失败
func (e *ThresholdError) Unwrap() error {
	return e.Last
}
