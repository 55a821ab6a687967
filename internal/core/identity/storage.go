package identity

import (
	"crypto/ed25519"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// PEM 类型常量
const (
	pemTypeEd25519Private = "ED25519 PRIVATE KEY"
	pemTypeEd25519Public  = "ED25519 PUBLIC KEY"
)

// ============================================================================
//                              密钥持久化
// ============================================================================

// SavePrivateKeyPEM 保存私钥到 PEM 文件（0600）
func SavePrivateKeyPEM(key ed25519.PrivateKey, path string) error {
	if len(key) != ed25519.PrivateKeySize {
		return ErrInvalidKeySize
	}
	data := pem.EncodeToMemory(&pem.Block{Type: pemTypeEd25519Private, Bytes: key})
	return atomicWriteFile(path, data, 0o600)
}

// SavePublicKeyPEM 保存公钥到 PEM 文件
func SavePublicKeyPEM(key ed25519.PublicKey, path string) error {
	if len(key) != ed25519.PublicKeySize {
		return ErrInvalidKeySize
	}
	data := pem.EncodeToMemory(&pem.Block{Type: pemTypeEd25519Public, Bytes: key})
	return atomicWriteFile(path, data, 0o644)
}

// LoadPrivateKeyPEM 从 PEM 文件加载私钥
func LoadPrivateKeyPEM(path string) (ed25519.PrivateKey, error) {
	b, err := readPEM(path, pemTypeEd25519Private)
	if err != nil {
		return nil, err
	}
	if len(b) != ed25519.PrivateKeySize {
		return nil, ErrInvalidKeySize
	}
	return ed25519.PrivateKey(b), nil
}

// LoadPublicKeyPEM 从 PEM 文件加载公钥
func LoadPublicKeyPEM(path string) (ed25519.PublicKey, error) {
	b, err := readPEM(path, pemTypeEd25519Public)
	if err != nil {
		return nil, err
	}
	if len(b) != ed25519.PublicKeySize {
		return nil, ErrInvalidKeySize
	}
	return ed25519.PublicKey(b), nil
}

func readPEM(path, wantType string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != wantType {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPEM, path)
	}
	return block.Bytes, nil
}

// atomicWriteFile 原子写文件（临时文件 + rename）
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("同步临时文件失败: %w", err)
	}
	if err := tmpFile.Chmod(perm); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("设置文件权限失败: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("重命名文件失败: %w", err)
	}
	success = true
	return nil
}
