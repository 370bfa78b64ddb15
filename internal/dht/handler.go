package dht

import (
	"net"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-mailx/pkg/types"
)

// Handler DHT 协议处理器
//
// 处理入站 PING / FIND_NODE / FIND_VALUE / STORE / GET_KEYS 请求。
// 每个请求的发送者都会被学习进路由表。
type Handler struct {
	dht     *DHT
	limiter *rate.Limiter
}

// NewHandler 创建协议处理器
func NewHandler(dht *DHT) *Handler {
	limit := rate.Inf
	burst := 0
	if dht.config.InboundRate > 0 {
		limit = rate.Limit(dht.config.InboundRate)
		burst = int(dht.config.InboundRate)
		if burst < 1 {
			burst = 1
		}
	}
	return &Handler{
		dht:     dht,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Handle 处理一条入站请求
func (h *Handler) Handle(msg *Message, from *net.UDPAddr) *Message {
	if !h.limiter.Allow() {
		logger.Debug("入站请求超过速率限制，丢弃", "type", msg.Type.String(), "from", from.String())
		return nil
	}

	localID := h.dht.ID()
	if msg.Sender == localID {
		return nil
	}

	h.dht.routingTable.Add(types.PeerInfo{ID: msg.Sender, Addr: from.String()})

	resp := NewResponse(msg, localID)

	switch msg.Type {
	case MessageTypePing:
		resp.Success = true

	case MessageTypeFindNode:
		resp.CloserPeers = h.closerPeers(msg.Target, msg.Sender)
		resp.Success = true

	case MessageTypeFindValue:
		if value, ok := h.dht.valueStore.Get(msg.Key); ok {
			resp.Value = value
			resp.Found = true
		} else {
			resp.CloserPeers = h.closerPeers(types.KeyToID(msg.Key), msg.Sender)
		}
		resp.Success = true

	case MessageTypeStore:
		if err := validateKey(msg.Key); err != nil {
			resp.Error = err.Error()
			break
		}
		if len(msg.Value) > MaxValueSize {
			resp.Error = ErrValueTooLarge.Error()
			break
		}
		h.dht.valueStore.Put(msg.Key, msg.Value)
		resp.Success = true
		logger.Debug("存储远程写入的值", "key", msg.Key, "from", msg.Sender.ShortString())

	case MessageTypeGetKeys:
		resp.Keys, resp.More = keysPage(h.dht.valueStore.Keys(), msg.Cursor, keysPageBudget)
		resp.Success = true

	default:
		logger.Debug("未知消息类型", "type", msg.Type.String())
		return nil
	}

	return resp
}

// closerPeers 返回离 target 最近的节点（排除请求者自身）
func (h *Handler) closerPeers(target, requester types.NodeID) []types.PeerInfo {
	peers := h.dht.routingTable.NearestPeers(target, h.dht.config.BucketSize+1)
	out := make([]types.PeerInfo, 0, len(peers))
	for _, p := range peers {
		if p.ID == requester {
			continue
		}
		out = append(out, p)
		if len(out) == h.dht.config.BucketSize {
			break
		}
	}
	return out
}
