package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/dep2p/go-dx/pkg/types"
)

// Identity 一个命名的节点身份
//
// 受信任的远端身份只有公钥；本机身份同时持有私钥。
type Identity struct {
	name    string
	public  ed25519.PublicKey
	private ed25519.PrivateKey
	id      types.PeerID
}

// Generate 生成新的身份
func Generate(name string) (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: generate key: %w", err)
	}
	return &Identity{name: name, public: pub, private: priv, id: types.PeerIDFromPublicKey(pub)}, nil
}

// FromPrivateKey 从私钥创建身份
func FromPrivateKey(name string, priv ed25519.PrivateKey) (*Identity, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	pub := priv.Public().(ed25519.PublicKey)
	return &Identity{name: name, public: pub, private: priv, id: types.PeerIDFromPublicKey(pub)}, nil
}

// FromPublicKey 从公钥创建只读身份
func FromPublicKey(name string, pub ed25519.PublicKey) (*Identity, error) {
	if len(pub) != ed25519.PublicKeySize {
		return nil, ErrInvalidKeySize
	}
	return &Identity{name: name, public: pub, id: types.PeerIDFromPublicKey(pub)}, nil
}

// Name 返回身份名
func (i *Identity) Name() string { return i.name }

// ID 返回 PeerID
func (i *Identity) ID() types.PeerID { return i.id }

// PublicKey 返回公钥
func (i *Identity) PublicKey() ed25519.PublicKey { return i.public }

// PrivateKey 返回私钥，只读身份返回 nil
func (i *Identity) PrivateKey() ed25519.PrivateKey { return i.private }

// HasPrivateKey 是否持有私钥
func (i *Identity) HasPrivateKey() bool { return len(i.private) == ed25519.PrivateKeySize }

// Sign 签名数据
func (i *Identity) Sign(data []byte) ([]byte, error) {
	if !i.HasPrivateKey() {
		return nil, ErrNoPrivateKey
	}
	return ed25519.Sign(i.private, data), nil
}

// String 返回 "name (peerID)"
func (i *Identity) String() string {
	return fmt.Sprintf("%s (%s)", i.name, i.id)
}
