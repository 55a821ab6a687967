package behaviour

import (
	"github.com/dep2p/go-dx/internal/protocol/status"
	"github.com/dep2p/go-dx/pkg/types"
)

// EventKind 事件来源
type EventKind int

const (
	// EventDHT DHT 查询结果
	EventDHT EventKind = iota
	// EventDiscovery 本地发现事件
	EventDiscovery
	// EventStatus 状态协议事件
	EventStatus
)

// String 返回事件来源字符串
func (k EventKind) String() string {
	switch k {
	case EventDHT:
		return "dht"
	case EventDiscovery:
		return "discovery"
	case EventStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Event 汇入 dispatch 的事件，按 Kind 取对应字段
type Event struct {
	Kind      EventKind
	DHT       types.DHTEvent
	Discovery types.DiscoveryEvent
	Status    status.Event
}

// DHTEvent 包装 DHT 事件
func DHTEvent(ev types.DHTEvent) Event {
	return Event{Kind: EventDHT, DHT: ev}
}

// DiscoveryEvent 包装本地发现事件
func DiscoveryEvent(ev types.DiscoveryEvent) Event {
	return Event{Kind: EventDiscovery, Discovery: ev}
}

// StatusEvent 包装状态协议事件
func StatusEvent(ev status.Event) Event {
	return Event{Kind: EventStatus, Status: ev}
}
