package types

import (
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"
)

// ============================================================================
//                              PeerID - 节点标识
// ============================================================================

// PeerIDLen PeerID 字节长度
const PeerIDLen = 32

// PeerID 节点唯一标识符
//
// 由 Ed25519 公钥派生（公钥的 SHA-256 哈希）。
//
// 外部表示格式：
//   - String(): Base58 编码（用户可读、可分享）
//   - ShortString(): Base58 前缀（日志简短标识）
type PeerID [PeerIDLen]byte

// EmptyPeerID 空节点ID
var EmptyPeerID PeerID

var (
	// ErrInvalidPeerID 无效的节点ID（Base58 文本）
	ErrInvalidPeerID = errors.New("types: invalid peer ID")

	// ErrInvalidPeerIDLength 字节长度不是 32
	ErrInvalidPeerIDLength = errors.New("types: invalid peer ID length")
)

// PeerIDFromPublicKey 由公钥字节派生 PeerID
func PeerIDFromPublicKey(pub []byte) PeerID {
	return PeerID(sha256.Sum256(pub))
}

// PeerIDFromBytes 从字节切片创建 PeerID
//
// DHT 查询键解码走这里：长度不为 32 时返回错误。
func PeerIDFromBytes(b []byte) (PeerID, error) {
	if len(b) != PeerIDLen {
		return EmptyPeerID, ErrInvalidPeerIDLength
	}
	var id PeerID
	copy(id[:], b)
	return id, nil
}

// ParsePeerID 从 Base58 字符串解析 PeerID
func ParsePeerID(s string) (PeerID, error) {
	if s == "" {
		return EmptyPeerID, ErrInvalidPeerID
	}
	b, err := base58.Decode(s)
	if err != nil {
		return EmptyPeerID, ErrInvalidPeerID
	}
	if len(b) != PeerIDLen {
		return EmptyPeerID, ErrInvalidPeerID
	}
	var id PeerID
	copy(id[:], b)
	return id, nil
}

// String 返回 PeerID 的 Base58 字符串表示
func (id PeerID) String() string {
	if id.IsEmpty() {
		return ""
	}
	return base58.Encode(id[:])
}

// ShortString 返回 Base58 前 8 个字符，用于日志
func (id PeerID) ShortString() string {
	s := id.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// Bytes 返回 PeerID 的字节副本
func (id PeerID) Bytes() []byte {
	b := make([]byte, PeerIDLen)
	copy(b, id[:])
	return b
}

// IsEmpty 检查 PeerID 是否为空
func (id PeerID) IsEmpty() bool {
	return id == EmptyPeerID
}

// MarshalText 实现 encoding.TextMarshaler（配置文件使用 Base58）
func (id PeerID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (id *PeerID) UnmarshalText(text []byte) error {
	parsed, err := ParsePeerID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ============================================================================
//                              PeerAddr - 节点地址对
// ============================================================================

// PeerAddr 一个 (节点, 地址) 对
//
// 地址为 TCP "host:port" 形式。
type PeerAddr struct {
	Peer PeerID
	Addr string
}
