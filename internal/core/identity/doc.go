// Package identity 实现节点身份与信任目录
//
// 身份是一对 Ed25519 密钥，PeerID 为公钥的 SHA-256。
//
// 信任目录（默认 ~/.dx/）是一个平铺目录：
//
//	alice.pub   PEM 编码的公钥
//	alice.key   PEM 编码的私钥（0600，仅本机身份持有）
//	bob.pub
//
// 目录中每个 .pub 文件都是一个受信任的身份；带 .key 的身份可以作为本地节点运行。
package identity
