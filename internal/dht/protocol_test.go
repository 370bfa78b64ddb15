package dht

import (
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-mailx/pkg/types"
)

func TestMessageType_ResponseType(t *testing.T) {
	assert.Equal(t, MessageTypePingResponse, MessageTypePing.ResponseType())
	assert.Equal(t, MessageTypeGetKeysResponse, MessageTypeGetKeys.ResponseType())
	assert.Equal(t, MessageType(0), MessageTypeStoreResponse.ResponseType())
	assert.Equal(t, MessageType(0), MessageType(99).ResponseType())

	assert.True(t, MessageTypeFindValueResponse.IsResponse())
	assert.False(t, MessageTypeFindValue.IsResponse())
	assert.Equal(t, "GET_KEYS", MessageTypeGetKeys.String())
	assert.Equal(t, "UNKNOWN", MessageType(99).String())
}

func TestMessage_EncodeDecode(t *testing.T) {
	sender := types.RandomNodeID()
	req := NewFindValueRequest(sender, "messages")

	resp := NewResponse(req, types.RandomNodeID())
	resp.CloserPeers = []types.PeerInfo{{ID: types.RandomNodeID(), Addr: "127.0.0.1:5000"}}

	data, err := resp.Encode()
	require.NoError(t, err)

	decoded, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, MessageTypeFindValueResponse, decoded.Type)
	assert.Equal(t, req.RequestID, decoded.RequestID)
	assert.Equal(t, resp.CloserPeers, decoded.CloserPeers)
	assert.Equal(t, types.KeyToID("messages"), req.Target)
}

func TestDecodeMessage_Invalid(t *testing.T) {
	_, err := DecodeMessage([]byte("not json"))
	assert.Error(t, err)

	_, err = DecodeMessage([]byte(`{"type": 1}`))
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestNewRequest_UniqueIDs(t *testing.T) {
	a := NewPingRequest(types.RandomNodeID())
	b := NewPingRequest(types.RandomNodeID())
	assert.NotEqual(t, a.RequestID, b.RequestID)
}

// ============================================================================
// 键校验与分页测试
// ============================================================================

func TestValidateKey(t *testing.T) {
	assert.NoError(t, validateKey("messages"))
	assert.NoError(t, validateKey(strings.Repeat("k", MaxKeySize)))
	assert.ErrorIs(t, validateKey(""), ErrInvalidKey)
	assert.ErrorIs(t, validateKey(strings.Repeat("k", MaxKeySize+1)), ErrKeyTooLarge)
}

func TestKeysPage(t *testing.T) {
	keys := []string{"a", "b", "c", "d"}

	page, more := keysPage(keys, "", 1024)
	assert.Equal(t, keys, page)
	assert.False(t, more)

	page, more = keysPage(keys, "b", 1024)
	assert.Equal(t, []string{"c", "d"}, page)
	assert.False(t, more)

	// 游标不必是已有的键
	page, _ = keysPage(keys, "bb", 1024)
	assert.Equal(t, []string{"c", "d"}, page)

	page, more = keysPage(keys, "d", 1024)
	assert.Empty(t, page)
	assert.False(t, more)

	// 每个键编码为 "x," 共 4 字节，加上 [] 的 2 字节
	page, more = keysPage(keys, "", 10)
	assert.Equal(t, []string{"a", "b"}, page)
	assert.True(t, more)

	// 预算再小也至少返回一个键，保证游标前进
	page, more = keysPage(keys, "", 1)
	assert.Equal(t, []string{"a"}, page)
	assert.True(t, more)
}

func TestKeysPage_CoversAllKeysInOrder(t *testing.T) {
	keys := make([]string, 500)
	for i := range keys {
		keys[i] = fmt.Sprintf("mailbox/user-%04d/inbox", i)
	}

	var (
		got    []string
		cursor string
	)
	for {
		page, more := keysPage(keys, cursor, 1000)
		require.NotEmpty(t, page)
		got = append(got, page...)
		if !more {
			break
		}
		cursor = page[len(page)-1]
	}
	assert.Equal(t, keys, got)
}

// 最坏情况的键（全部需要 \u 转义）也不能让 GET_KEYS 响应超出一个数据报
func TestGetKeysResponse_FitsDatagram(t *testing.T) {
	d := newTestDHT(t)
	for i := 0; i < 40; i++ {
		key := strings.Repeat("\x01", MaxKeySize-4) + fmt.Sprintf("%04d", i)
		d.valueStore.Put(key, nil)
	}

	h := NewHandler(d)
	req := NewGetKeysRequest(types.RandomNodeID(), "")
	resp := h.Handle(req, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9})
	require.NotNil(t, resp)

	data, err := resp.Encode()
	require.NoError(t, err)
	assert.LessOrEqual(t, len(data), MaxDatagramSize)
	assert.True(t, resp.More)
	assert.NotEmpty(t, resp.Keys)
}

func TestHandler_StoreRejectsOversizedKey(t *testing.T) {
	d := newTestDHT(t)
	h := NewHandler(d)

	key := strings.Repeat("k", MaxKeySize+1)
	req := NewStoreRequest(types.RandomNodeID(), key, []byte("v"))
	resp := h.Handle(req, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9})

	require.NotNil(t, resp)
	assert.Equal(t, ErrKeyTooLarge.Error(), resp.Error)
	assert.False(t, resp.Success)
	_, ok := d.valueStore.Get(key)
	assert.False(t, ok)
}
