// Package dht 提供分布式哈希表实现
package dht

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"

	"github.com/dep2p/go-mailx/pkg/types"
)

// ============================================================================
//                              协议定义
// ============================================================================

// MaxDatagramSize 单个 UDP 数据报的最大长度（IPv4 UDP 载荷上限）
const MaxDatagramSize = 65507

// MaxValueSize 可存储的值的最大长度（为 JSON 包络与 base64 膨胀预留空间）
const MaxValueSize = 32 * 1024

// MaxKeySize 键的最大字节长度
const MaxKeySize = 1024

// keysPageBudget GET_KEYS 响应中键列表的 JSON 字节预算，其余留给包络
const keysPageBudget = MaxDatagramSize - 1024

// maxKeyPages RemoteKeyList 最多拉取的页数
const maxKeyPages = 1024

// ============================================================================
//                              消息类型
// ============================================================================

// MessageType 消息类型
type MessageType uint8

const (
	// MessageTypePing PING 请求
	MessageTypePing MessageType = iota + 1
	// MessageTypePingResponse PING 响应
	MessageTypePingResponse

	// MessageTypeFindNode FIND_NODE 请求
	MessageTypeFindNode
	// MessageTypeFindNodeResponse FIND_NODE 响应
	MessageTypeFindNodeResponse

	// MessageTypeFindValue FIND_VALUE 请求
	MessageTypeFindValue
	// MessageTypeFindValueResponse FIND_VALUE 响应
	MessageTypeFindValueResponse

	// MessageTypeStore STORE 请求
	MessageTypeStore
	// MessageTypeStoreResponse STORE 响应
	MessageTypeStoreResponse

	// MessageTypeGetKeys GET_KEYS 请求（询问对端持有哪些键）
	MessageTypeGetKeys
	// MessageTypeGetKeysResponse GET_KEYS 响应
	MessageTypeGetKeysResponse
)

// String 返回消息类型的字符串表示
func (m MessageType) String() string {
	switch m {
	case MessageTypePing:
		return "PING"
	case MessageTypePingResponse:
		return "PING_RESPONSE"
	case MessageTypeFindNode:
		return "FIND_NODE"
	case MessageTypeFindNodeResponse:
		return "FIND_NODE_RESPONSE"
	case MessageTypeFindValue:
		return "FIND_VALUE"
	case MessageTypeFindValueResponse:
		return "FIND_VALUE_RESPONSE"
	case MessageTypeStore:
		return "STORE"
	case MessageTypeStoreResponse:
		return "STORE_RESPONSE"
	case MessageTypeGetKeys:
		return "GET_KEYS"
	case MessageTypeGetKeysResponse:
		return "GET_KEYS_RESPONSE"
	default:
		return "UNKNOWN"
	}
}

// IsResponse 是否为响应类型
func (m MessageType) IsResponse() bool {
	switch m {
	case MessageTypePingResponse, MessageTypeFindNodeResponse, MessageTypeFindValueResponse,
		MessageTypeStoreResponse, MessageTypeGetKeysResponse:
		return true
	default:
		return false
	}
}

// ResponseType 返回请求对应的响应类型
func (m MessageType) ResponseType() MessageType {
	if m.IsResponse() || m == 0 || m > MessageTypeGetKeysResponse {
		return 0
	}
	return m + 1
}

// ============================================================================
//                              消息结构
// ============================================================================

// Message DHT 消息
type Message struct {
	// Type 消息类型
	Type MessageType `json:"type"`

	// RequestID 请求 ID（用于匹配请求和响应）
	RequestID string `json:"request_id"`

	// Sender 发送者节点 ID（地址取自数据报来源）
	Sender types.NodeID `json:"sender"`

	// Target 目标节点 ID（用于 FIND_NODE）
	Target types.NodeID `json:"target,omitempty"`

	// Key 键（用于 FIND_VALUE/STORE）
	Key string `json:"key,omitempty"`

	// Value 值（用于 STORE/FIND_VALUE 响应）
	Value []byte `json:"value,omitempty"`

	// Found FIND_VALUE 响应中是否携带值（区分空值与未找到）
	Found bool `json:"found,omitempty"`

	// Keys 键列表（用于 GET_KEYS 响应）
	Keys []string `json:"keys,omitempty"`

	// Cursor GET_KEYS 请求只返回字典序大于 Cursor 的键
	Cursor string `json:"cursor,omitempty"`

	// More GET_KEYS 响应之后还有更多键
	More bool `json:"more,omitempty"`

	// CloserPeers 更近的节点列表（用于响应）
	CloserPeers []types.PeerInfo `json:"closer_peers,omitempty"`

	// Success 操作是否成功
	Success bool `json:"success,omitempty"`

	// Error 错误信息
	Error string `json:"error,omitempty"`
}

// ============================================================================
//                              消息编解码
// ============================================================================

// Encode 编码消息为字节数组
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage 从字节数组解码消息
func DecodeMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == 0 || msg.RequestID == "" {
		return nil, ErrInvalidResponse
	}
	return &msg, nil
}

// ============================================================================
//                              消息构造
// ============================================================================

func newRequest(t MessageType, sender types.NodeID) *Message {
	return &Message{
		Type:      t,
		RequestID: uuid.NewString(),
		Sender:    sender,
	}
}

// NewPingRequest 创建 PING 请求
func NewPingRequest(sender types.NodeID) *Message {
	return newRequest(MessageTypePing, sender)
}

// NewFindNodeRequest 创建 FIND_NODE 请求
func NewFindNodeRequest(sender, target types.NodeID) *Message {
	msg := newRequest(MessageTypeFindNode, sender)
	msg.Target = target
	return msg
}

// NewFindValueRequest 创建 FIND_VALUE 请求
func NewFindValueRequest(sender types.NodeID, key string) *Message {
	msg := newRequest(MessageTypeFindValue, sender)
	msg.Key = key
	msg.Target = types.KeyToID(key)
	return msg
}

// NewStoreRequest 创建 STORE 请求
func NewStoreRequest(sender types.NodeID, key string, value []byte) *Message {
	msg := newRequest(MessageTypeStore, sender)
	msg.Key = key
	msg.Value = value
	return msg
}

// NewGetKeysRequest 创建 GET_KEYS 请求，cursor 为上一页最后一个键（首页为空）
func NewGetKeysRequest(sender types.NodeID, cursor string) *Message {
	msg := newRequest(MessageTypeGetKeys, sender)
	msg.Cursor = cursor
	return msg
}

// NewResponse 创建对 req 的响应
func NewResponse(req *Message, sender types.NodeID) *Message {
	return &Message{
		Type:      req.Type.ResponseType(),
		RequestID: req.RequestID,
		Sender:    sender,
	}
}

// ============================================================================
//                              键校验与分页
// ============================================================================

// validateKey 检查键非空且不超过 MaxKeySize
func validateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeySize {
		return ErrKeyTooLarge
	}
	return nil
}

// keysPage 从已排序的 keys 中取出 cursor 之后、编码后不超过 budget 字节的一页
//
// 每页至少包含一个键；more 表示之后还有键。
func keysPage(keys []string, cursor string, budget int) (page []string, more bool) {
	start := sort.SearchStrings(keys, cursor)
	if start < len(keys) && keys[start] == cursor && cursor != "" {
		start++
	}

	used := 2 // []
	for i := start; i < len(keys); i++ {
		encoded, err := json.Marshal(keys[i])
		if err != nil {
			continue
		}
		size := len(encoded) + 1 // 逗号
		if len(page) > 0 && used+size > budget {
			return page, true
		}
		used += size
		page = append(page, keys[i])
	}
	return page, false
}
