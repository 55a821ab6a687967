package mdns

import (
	"fmt"
	"strings"

	"github.com/dep2p/go-dx/pkg/types"
)

const (
	txtID    = "id="
	txtAddrs = "addrs="

	// maxTXTLen DNS 单条字符串上限
	maxTXTLen = 255
)

// encodeTXT 生成 TXT 记录
//
// 地址按顺序装入若干条 addrs=，每条不超过 255 字节；单个超长地址被跳过。
func encodeTXT(id types.PeerID, addrs []string) []string {
	txt := []string{txtID + id.String()}

	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			txt = append(txt, txtAddrs+cur.String())
			cur.Reset()
		}
	}
	for _, a := range addrs {
		if len(txtAddrs)+len(a) > maxTXTLen || strings.Contains(a, ",") {
			continue
		}
		need := len(a)
		if cur.Len() > 0 {
			need++
		}
		if len(txtAddrs)+cur.Len()+need > maxTXTLen {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(',')
		}
		cur.WriteString(a)
	}
	flush()
	return txt
}

// decodeTXT 解析 TXT 记录
func decodeTXT(fields []string) (types.PeerID, []string, error) {
	var (
		id    types.PeerID
		found bool
		addrs []string
	)
	for _, f := range fields {
		switch {
		case strings.HasPrefix(f, txtID):
			pid, err := types.ParsePeerID(strings.TrimPrefix(f, txtID))
			if err != nil {
				return types.EmptyPeerID, nil, fmt.Errorf("%w: %v", ErrInvalidTXT, err)
			}
			id, found = pid, true
		case strings.HasPrefix(f, txtAddrs):
			for _, a := range strings.Split(strings.TrimPrefix(f, txtAddrs), ",") {
				if a != "" {
					addrs = append(addrs, a)
				}
			}
		}
	}
	if !found {
		return types.EmptyPeerID, nil, fmt.Errorf("%w: missing id", ErrInvalidTXT)
	}
	return id, addrs, nil
}
