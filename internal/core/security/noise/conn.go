package noise

import (
	"crypto/ed25519"
	"fmt"
	"net"
	"sync"

	"github.com/flynn/noise"

	"github.com/dep2p/go-dx/pkg/types"
)

// maxPlaintext 单帧最大明文长度（帧长 65535 减去 16 字节 tag）
const maxPlaintext = 65535 - 16

// Conn Noise 安全连接
type Conn struct {
	net.Conn

	sendCS *noise.CipherState
	recvCS *noise.CipherState

	localPeer  types.PeerID
	remotePeer types.PeerID
	remotePub  ed25519.PublicKey

	readMu  sync.Mutex
	writeMu sync.Mutex

	readBuf []byte
}

// Read 从连接读取数据（解密）
func (c *Conn) Read(p []byte) (int, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for len(c.readBuf) == 0 {
		enc, err := readFrame(c.Conn)
		if err != nil {
			return 0, err
		}
		plain, err := c.recvCS.Decrypt(nil, nil, enc)
		if err != nil {
			return 0, fmt.Errorf("decrypt: %w", err)
		}
		c.readBuf = plain
	}

	n := copy(p, c.readBuf)
	c.readBuf = c.readBuf[n:]
	return n, nil
}

// Write 向连接写入数据（加密），超长数据拆成多帧
func (c *Conn) Write(p []byte) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	written := 0
	for written < len(p) {
		end := written + maxPlaintext
		if end > len(p) {
			end = len(p)
		}
		enc, err := c.sendCS.Encrypt(nil, nil, p[written:end])
		if err != nil {
			return written, fmt.Errorf("encrypt: %w", err)
		}
		if err := writeFrame(c.Conn, enc); err != nil {
			return written, err
		}
		written = end
	}
	return written, nil
}

// LocalPeer 返回本地节点 ID
func (c *Conn) LocalPeer() types.PeerID { return c.localPeer }

// RemotePeer 返回远端节点 ID
func (c *Conn) RemotePeer() types.PeerID { return c.remotePeer }

// RemotePublicKey 返回远端身份公钥
func (c *Conn) RemotePublicKey() ed25519.PublicKey { return c.remotePub }
