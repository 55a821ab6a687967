package behaviour

import "errors"

var (
	// ErrNilDHT DHT 为 nil
	ErrNilDHT = errors.New("behaviour: dht is nil")

	// ErrAlreadyStarted 已启动
	ErrAlreadyStarted = errors.New("behaviour: already started")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("behaviour: invalid config")
)
