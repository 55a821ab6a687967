package types

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// PayloadSize 状态负载固定长度（字节）
const PayloadSize = 20

// Payload 节点对外宣告的 20 字节状态值
//
// 线路上没有长度前缀，也没有编码：就是 20 个原始字节。
type Payload [PayloadSize]byte

// ErrInvalidPayload 负载长度或格式错误
var ErrInvalidPayload = errors.New("types: invalid status payload")

// RandomPayload 生成随机状态负载
func RandomPayload() Payload {
	var p Payload
	if _, err := rand.Read(p[:]); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return p
}

// PayloadFromBytes 从字节切片创建 Payload，长度必须恰好为 20
func PayloadFromBytes(b []byte) (Payload, error) {
	if len(b) != PayloadSize {
		return Payload{}, ErrInvalidPayload
	}
	var p Payload
	copy(p[:], b)
	return p, nil
}

// ParsePayload 从十六进制字符串解析 Payload
func ParsePayload(s string) (Payload, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Payload{}, ErrInvalidPayload
	}
	return PayloadFromBytes(b)
}

// String 返回十六进制表示
func (p Payload) String() string {
	return hex.EncodeToString(p[:])
}
