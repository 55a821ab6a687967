package identity

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dep2p/go-dx/pkg/lib/log"
	"github.com/dep2p/go-dx/pkg/types"
)

var logger = log.Logger("core/identity")

const (
	pubSuffix = ".pub"
	keySuffix = ".key"
)

// TrustStore 信任目录中全部身份的快照
type TrustStore struct {
	dir        string
	identities []*Identity
}

// LoadTrustStore 扫描目录中的 *.pub 文件
//
// 对应的 .key 存在时一并加载私钥。无法解析的文件记录告警后跳过。
// 目录不存在时返回空的 TrustStore。
func LoadTrustStore(dir string) (*TrustStore, error) {
	ts := &TrustStore{dir: dir}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ts, nil
		}
		return nil, fmt.Errorf("identity: read trust dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), pubSuffix) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), pubSuffix)
		id, err := loadIdentity(dir, name)
		if err != nil {
			logger.Warn("跳过无法加载的身份", "name", name, "error", err)
			continue
		}
		ts.identities = append(ts.identities, id)
	}

	sort.Slice(ts.identities, func(i, j int) bool {
		return ts.identities[i].Name() < ts.identities[j].Name()
	})
	return ts, nil
}

func loadIdentity(dir, name string) (*Identity, error) {
	pub, err := LoadPublicKeyPEM(filepath.Join(dir, name+pubSuffix))
	if err != nil {
		return nil, err
	}

	priv, err := LoadPrivateKeyPEM(filepath.Join(dir, name+keySuffix))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return FromPublicKey(name, pub)
	case err != nil:
		return nil, err
	}

	id, err := FromPrivateKey(name, priv)
	if err != nil {
		return nil, err
	}
	if !id.PublicKey().Equal(pub) {
		return nil, ErrKeyPairMismatch
	}
	return id, nil
}

// Dir 返回信任目录
func (ts *TrustStore) Dir() string { return ts.dir }

// Identities 返回按名字排序的全部身份
func (ts *TrustStore) Identities() []*Identity {
	out := make([]*Identity, len(ts.identities))
	copy(out, ts.identities)
	return out
}

// Find 按名字查找身份
func (ts *TrustStore) Find(name string) (*Identity, error) {
	for _, id := range ts.identities {
		if id.Name() == name {
			return id, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// FindByID 按 PeerID 查找身份
func (ts *TrustStore) FindByID(peer types.PeerID) (*Identity, bool) {
	for _, id := range ts.identities {
		if id.ID() == peer {
			return id, true
		}
	}
	return nil, false
}

// Others 返回除 name 以外的全部身份
func (ts *TrustStore) Others(name string) []*Identity {
	var out []*Identity
	for _, id := range ts.identities {
		if id.Name() != name {
			out = append(out, id)
		}
	}
	return out
}

// GenerateIdentity 在目录中生成并写入新的身份
//
// 目录不存在时创建（0700）。同名身份已存在时返回 ErrExists。
func GenerateIdentity(dir, name string) (*Identity, error) {
	if name == "" || filepath.Base(name) != name || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("identity: create trust dir: %w", err)
	}

	pubPath := filepath.Join(dir, name+pubSuffix)
	if _, err := os.Stat(pubPath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	}

	id, err := Generate(name)
	if err != nil {
		return nil, err
	}
	if err := SavePrivateKeyPEM(id.PrivateKey(), filepath.Join(dir, name+keySuffix)); err != nil {
		return nil, err
	}
	if err := SavePublicKeyPEM(id.PublicKey(), pubPath); err != nil {
		return nil, err
	}

	logger.Info("生成新身份", "name", name, "peer", id.ID().ShortString())
	return id, nil
}

// ImportPublicKey 把远端公钥加入信任目录
func ImportPublicKey(dir, name string, pub ed25519.PublicKey) (*Identity, error) {
	if name == "" || filepath.Base(name) != name {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	id, err := FromPublicKey(name, pub)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("identity: create trust dir: %w", err)
	}
	if err := SavePublicKeyPEM(pub, filepath.Join(dir, name+pubSuffix)); err != nil {
		return nil, err
	}
	return id, nil
}
