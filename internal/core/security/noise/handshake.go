package noise

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/flynn/noise"

	"github.com/dep2p/go-dx/pkg/types"
)

// payloadSigPrefix 是签名 payload 的前缀
const payloadSigPrefix = "dx-noise-static-key:"

const payloadLen = ed25519.PublicKeySize + ed25519.SignatureSize

var cipherSuite = noise.NewCipherSuite(noise.DH25519, noise.CipherChaChaPoly, noise.HashSHA256)

// ============================================================================
// Noise XX 握手实现
// ============================================================================

// SecureOutbound 以发起者身份握手
//
// expected 非空时校验对端 PeerID。
func SecureOutbound(ctx context.Context, conn net.Conn, priv ed25519.PrivateKey, expected types.PeerID) (*Conn, error) {
	return handshake(ctx, conn, priv, expected, true)
}

// SecureInbound 以响应者身份握手
func SecureInbound(ctx context.Context, conn net.Conn, priv ed25519.PrivateKey) (*Conn, error) {
	return handshake(ctx, conn, priv, types.EmptyPeerID, false)
}

func handshake(ctx context.Context, conn net.Conn, priv ed25519.PrivateKey, expected types.PeerID, initiator bool) (*Conn, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: bad private key", ErrInvalidHandshake)
	}

	if d, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(d); err != nil {
			return nil, fmt.Errorf("set deadline: %w", err)
		}
		defer conn.SetDeadline(time.Time{})
	}

	static, err := cipherSuite.GenerateKeypair(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate static key: %w", err)
	}

	hs, err := noise.NewHandshakeState(noise.Config{
		CipherSuite:   cipherSuite,
		Random:        rand.Reader,
		Pattern:       noise.HandshakeXX,
		Initiator:     initiator,
		StaticKeypair: static,
	})
	if err != nil {
		return nil, fmt.Errorf("create handshake state: %w", err)
	}

	localPayload := generatePayload(priv, static.Public)

	var sendCS, recvCS *noise.CipherState
	var remotePayload []byte
	if initiator {
		sendCS, recvCS, remotePayload, err = clientHandshake(conn, hs, localPayload)
	} else {
		sendCS, recvCS, remotePayload, err = serverHandshake(conn, hs, localPayload)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandshake, err)
	}

	remotePub, err := verifyPayload(remotePayload, hs.PeerStatic())
	if err != nil {
		return nil, err
	}
	remotePeer := types.PeerIDFromPublicKey(remotePub)
	if !expected.IsEmpty() && remotePeer != expected {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrPeerIDMismatch, expected.ShortString(), remotePeer.ShortString())
	}

	return &Conn{
		Conn:       conn,
		sendCS:     sendCS,
		recvCS:     recvCS,
		localPeer:  types.PeerIDFromPublicKey(priv.Public().(ed25519.PublicKey)),
		remotePeer: remotePeer,
		remotePub:  remotePub,
	}, nil
}

// generatePayload 生成 ed25519 公钥 + 对静态公钥的签名
func generatePayload(priv ed25519.PrivateKey, staticPub []byte) []byte {
	toSign := append([]byte(payloadSigPrefix), staticPub...)
	out := make([]byte, 0, payloadLen)
	out = append(out, priv.Public().(ed25519.PublicKey)...)
	return append(out, ed25519.Sign(priv, toSign)...)
}

// verifyPayload 校验签名并返回对端身份公钥
func verifyPayload(payload, remoteStatic []byte) (ed25519.PublicKey, error) {
	if len(payload) != payloadLen || len(remoteStatic) != 32 {
		return nil, ErrInvalidPayload
	}
	pub := ed25519.PublicKey(append([]byte(nil), payload[:ed25519.PublicKeySize]...))
	sig := payload[ed25519.PublicKeySize:]

	toVerify := append([]byte(payloadSigPrefix), remoteStatic...)
	if !ed25519.Verify(pub, toVerify, sig) {
		return nil, ErrInvalidSignature
	}
	return pub, nil
}

// ============================================================================
// 握手流程
// ============================================================================

// clientHandshake 客户端握手（发起者）
func clientHandshake(rw io.ReadWriter, hs *noise.HandshakeState, localPayload []byte) (*noise.CipherState, *noise.CipherState, []byte, error) {
	msg1, _, _, err := hs.WriteMessage(nil, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 1: %w", err)
	}
	if err := writeFrame(rw, msg1); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 1: %w", err)
	}

	msg2, err := readFrame(rw)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 2: %w", err)
	}
	remotePayload, _, _, err := hs.ReadMessage(nil, msg2)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read message 2: %w", err)
	}

	msg3, cs1, cs2, err := hs.WriteMessage(nil, localPayload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 3: %w", err)
	}
	if err := writeFrame(rw, msg3); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 3: %w", err)
	}

	// 发起者：cs1 发送，cs2 接收
	return cs1, cs2, remotePayload, nil
}

// serverHandshake 服务器握手（响应者）
func serverHandshake(rw io.ReadWriter, hs *noise.HandshakeState, localPayload []byte) (*noise.CipherState, *noise.CipherState, []byte, error) {
	msg1, err := readFrame(rw)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 1: %w", err)
	}
	if _, _, _, err = hs.ReadMessage(nil, msg1); err != nil {
		return nil, nil, nil, fmt.Errorf("read message 1: %w", err)
	}

	msg2, _, _, err := hs.WriteMessage(nil, localPayload)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("write message 2: %w", err)
	}
	if err := writeFrame(rw, msg2); err != nil {
		return nil, nil, nil, fmt.Errorf("send message 2: %w", err)
	}

	msg3, err := readFrame(rw)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive message 3: %w", err)
	}
	remotePayload, cs1, cs2, err := hs.ReadMessage(nil, msg3)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read message 3: %w", err)
	}

	// 响应者与发起者相反
	return cs2, cs1, remotePayload, nil
}

// ============================================================================
// 帧
// ============================================================================

// writeFrame 写入帧（2 字节长度 + 数据），一次 Write 完成
func writeFrame(w io.Writer, data []byte) error {
	buf := make([]byte, 2+len(data))
	binary.BigEndian.PutUint16(buf, uint16(len(data)))
	copy(buf[2:], data)
	_, err := w.Write(buf)
	return err
}

// readFrame 读取帧（2 字节长度 + 数据）
func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint16(lenBuf[:])
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
