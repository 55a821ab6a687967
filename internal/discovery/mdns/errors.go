package mdns

import "errors"

var (
	// ErrNilHost Host 为 nil
	ErrNilHost = errors.New("mdns: host is nil")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("mdns: invalid config")

	// ErrAlreadyStarted 已启动
	ErrAlreadyStarted = errors.New("mdns: already started")

	// ErrAlreadyClosed 已关闭
	ErrAlreadyClosed = errors.New("mdns: already closed")

	// ErrInvalidTXT TXT 记录无效
	ErrInvalidTXT = errors.New("mdns: invalid txt record")
)
