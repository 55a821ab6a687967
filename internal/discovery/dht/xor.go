package dht

import (
	"bytes"
	"crypto/sha256"
	"math/bits"

	"github.com/dep2p/go-dx/pkg/types"
)

// keyToTarget 把查询键映射到 PeerID 空间
//
// 32 字节的键直接视为 PeerID，其余取 SHA-256。
func keyToTarget(key []byte) types.PeerID {
	if id, err := types.PeerIDFromBytes(key); err == nil {
		return id
	}
	return types.PeerID(sha256.Sum256(key))
}

// xorDistance 计算 XOR 距离
func xorDistance(a, b types.PeerID) types.PeerID {
	var d types.PeerID
	for i := range d {
		d[i] = a[i] ^ b[i]
	}
	return d
}

// closer 判断 a 是否比 b 更接近 target
func closer(a, b, target types.PeerID) bool {
	da, db := xorDistance(a, target), xorDistance(b, target)
	return bytes.Compare(da[:], db[:]) < 0
}

// commonPrefixLen 共同前缀位数
func commonPrefixLen(a, b types.PeerID) int {
	for i := range a {
		if x := a[i] ^ b[i]; x != 0 {
			return i*8 + bits.LeadingZeros8(x)
		}
	}
	return types.PeerIDLen * 8
}

// bucketIndex 计算 remote 所属的 K 桶
func bucketIndex(local, remote types.PeerID) int {
	cpl := commonPrefixLen(local, remote)
	if cpl >= numBuckets {
		return numBuckets - 1
	}
	return cpl
}
