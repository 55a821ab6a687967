// Package noise 实现 Noise 协议安全传输
//
// Noise XX 握手流程：
//
//	-> e                                      (发起者发送临时公钥)
//	<- e, ee, s, es, payload                  (响应者发送静态公钥、payload)
//	-> s, se, payload                         (发起者发送静态公钥、payload)
//
// 每条连接使用新生成的 Curve25519 静态密钥，身份通过 payload 绑定：
//
//	payload = ed25519_pub (32) || Sign(ed25519_priv, "dx-noise-static-key:" + curve25519_static_pub) (64)
//
// 握手完成后对端 PeerID = SHA-256(ed25519_pub)。
//
// 传输帧：2 字节大端长度 + 密文。
package noise
