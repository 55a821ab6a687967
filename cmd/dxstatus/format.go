package main

import (
	"fmt"
	"time"

	"github.com/dep2p/go-dx"
	"github.com/dep2p/go-dx/internal/behaviour"
	"github.com/dep2p/go-dx/pkg/types"
)

// formatEvent 把节点事件格式化为一行输出，返回空串表示不打印
func formatEvent(ev dx.Event, names map[types.PeerID]string) string {
	ts := time.Now().Format("15:04:05")
	switch ev.Kind {
	case behaviour.EventStatus:
		s := ev.Status
		who := peerName(s.Peer, names)
		switch {
		case s.Result.IsReceived():
			return fmt.Sprintf("[%s] 状态 %s: %s", ts, who, s.Result.Payload)
		case s.Result.IsSuccess():
			return ""
		case s.Closed:
			return fmt.Sprintf("[%s] 状态 %s: %v，连接已关闭", ts, who, s.Result.Failure)
		default:
			return fmt.Sprintf("[%s] 状态 %s: %v", ts, who, s.Result.Failure)
		}

	case behaviour.EventDiscovery:
		switch e := ev.Discovery.(type) {
		case *types.PeersDiscovered:
			for _, pa := range e.Peers {
				if _, ok := names[pa.Peer]; ok {
					return fmt.Sprintf("[%s] 发现 %s @ %s", ts, peerName(pa.Peer, names), pa.Addr)
				}
			}
		case *types.PeersExpired:
			for _, pa := range e.Peers {
				if _, ok := names[pa.Peer]; ok {
					return fmt.Sprintf("[%s] 过期 %s @ %s", ts, peerName(pa.Peer, names), pa.Addr)
				}
			}
		}
	}
	return ""
}

func peerName(id types.PeerID, names map[types.PeerID]string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return id.ShortString()
}
