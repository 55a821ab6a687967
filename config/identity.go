package config

import (
	"errors"
	"os"
	"path/filepath"
)

// DefaultTrustDirName 信任目录名（位于用户主目录下）
const DefaultTrustDirName = ".dx"

// IdentityConfig 身份配置
//
// 节点身份取自信任目录中的 <name>.key / <name>.pub。
type IdentityConfig struct {
	// Name 本地身份名
	Name string `json:"name,omitempty"`

	// TrustDir 信任目录，空值表示 ~/.dx
	TrustDir string `json:"trust_dir,omitempty"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	if c.Name != "" && filepath.Base(c.Name) != c.Name {
		return errors.New("name must not contain path separators")
	}
	return nil
}

// ResolveTrustDir 返回实际使用的信任目录
func (c IdentityConfig) ResolveTrustDir() (string, error) {
	if c.TrustDir != "" {
		return c.TrustDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DefaultTrustDirName), nil
}
