package harvest

import (
	"fmt"

	"github.com/dep2p/go-mailx/pkg/types"
)

// RemoteQueryError 对单个节点的远程查询失败
//
// 收割时逐节点产生，记录后即被丢弃，不会中断整次收割。
type RemoteQueryError struct {
	Op   string
	Peer types.PeerInfo
	Err  error
}

func (e *RemoteQueryError) Error() string {
	return fmt.Sprintf("harvest: %s %s: %v", e.Op, e.Peer.String(), e.Err)
}

func (e *RemoteQueryError) Unwrap() error {
	return e.Err
}
