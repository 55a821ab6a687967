package identity

import "errors"

var (
	// ErrInvalidPEM 无效的 PEM 数据
	ErrInvalidPEM = errors.New("identity: invalid PEM data")

	// ErrInvalidKeySize 密钥长度错误
	ErrInvalidKeySize = errors.New("identity: invalid key size")

	// ErrKeyPairMismatch 私钥与公钥不匹配
	ErrKeyPairMismatch = errors.New("identity: key pair mismatch")

	// ErrNoPrivateKey 身份只有公钥
	ErrNoPrivateKey = errors.New("identity: no private key")

	// ErrNotFound 信任目录中没有该身份
	ErrNotFound = errors.New("identity: not found")

	// ErrExists 身份已存在
	ErrExists = errors.New("identity: already exists")

	// ErrInvalidName 身份名非法
	ErrInvalidName = errors.New("identity: invalid name")
)
