package noise

import "errors"

var (
	// ErrInvalidHandshake 握手失败
	ErrInvalidHandshake = errors.New("noise: invalid handshake")

	// ErrInvalidPayload 握手 payload 格式错误
	ErrInvalidPayload = errors.New("noise: invalid handshake payload")

	// ErrInvalidSignature 静态密钥未被身份密钥签名
	ErrInvalidSignature = errors.New("noise: remote static key not bound to identity key")

	// ErrPeerIDMismatch PeerID 不匹配
	ErrPeerIDMismatch = errors.New("noise: peer ID mismatch")
)
