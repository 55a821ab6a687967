package dx

import "errors"

// 公共错误定义
var (
	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("node not started")

	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("node already started")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("node closed")

	// ErrNoPrivateKey 身份不含私钥，无法作为本地节点
	ErrNoPrivateKey = errors.New("identity has no private key")

	// ErrSelfPeer 不能关注或连接自身
	ErrSelfPeer = errors.New("cannot target local peer")
)
