package dht

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// RequestHandler 处理入站请求，返回 nil 表示不回复
type RequestHandler func(msg *Message, from *net.UDPAddr) *Message

// NetworkAdapter UDP 传输适配器
//
// 请求与响应通过 RequestID 关联：发出请求时在 inflight 中登记一个通道，
// 读循环收到同 ID 的响应后投递过去。
type NetworkAdapter struct {
	conn    *net.UDPConn
	handler RequestHandler
	timeout time.Duration

	mu       sync.Mutex
	inflight map[string]chan *Message

	readDone  chan struct{}
	closeOnce sync.Once
}

// NewNetworkAdapter 绑定 host:port 并启动读循环
func NewNetworkAdapter(host string, port int, timeout time.Duration, handler RequestHandler) (*NetworkAdapter, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, fmt.Sprint(port)))
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, err
	}

	na := &NetworkAdapter{
		conn:     conn,
		handler:  handler,
		timeout:  timeout,
		inflight: make(map[string]chan *Message),
		readDone: make(chan struct{}),
	}
	go na.readLoop()
	return na, nil
}

// LocalAddr 返回实际绑定的地址
func (na *NetworkAdapter) LocalAddr() *net.UDPAddr {
	return na.conn.LocalAddr().(*net.UDPAddr)
}

// SendRequest 发送请求并等待响应
//
// 超时取 ctx 截止时间与 RPCTimeout 中较早者。
func (na *NetworkAdapter) SendRequest(ctx context.Context, addr string, msg *Message) (*Message, error) {
	dst, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}

	data, err := msg.Encode()
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDatagramSize {
		return nil, ErrValueTooLarge
	}

	ch := make(chan *Message, 1)
	na.mu.Lock()
	na.inflight[msg.RequestID] = ch
	na.mu.Unlock()
	defer func() {
		na.mu.Lock()
		delete(na.inflight, msg.RequestID)
		na.mu.Unlock()
	}()

	if _, err := na.conn.WriteToUDP(data, dst); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrDHTClosed
		}
		return nil, err
	}

	timer := time.NewTimer(na.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if resp.Type != msg.Type.ResponseType() {
			return nil, fmt.Errorf("%w: got %s for %s", ErrInvalidResponse, resp.Type, msg.Type)
		}
		if resp.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
		}
		return resp, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-na.readDone:
		return nil, ErrDHTClosed
	}
}

// readLoop 读循环：响应投递给等待者，请求交给 handler
func (na *NetworkAdapter) readLoop() {
	defer close(na.readDone)

	buf := make([]byte, MaxDatagramSize)
	for {
		n, src, err := na.conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Debug("读取数据报失败", "error", err)
			continue
		}

		msg, err := DecodeMessage(buf[:n])
		if err != nil {
			logger.Debug("丢弃无法解析的数据报", "from", src.String(), "error", err)
			continue
		}

		if msg.Type.IsResponse() {
			na.deliver(msg)
			continue
		}

		go na.serve(msg, src)
	}
}

func (na *NetworkAdapter) deliver(msg *Message) {
	na.mu.Lock()
	ch := na.inflight[msg.RequestID]
	na.mu.Unlock()

	if ch == nil {
		return
	}
	select {
	case ch <- msg:
	default:
	}
}

func (na *NetworkAdapter) serve(msg *Message, src *net.UDPAddr) {
	if na.handler == nil {
		return
	}
	resp := na.handler(msg, src)
	if resp == nil {
		return
	}
	data, err := resp.Encode()
	if err != nil {
		logger.Warn("编码响应失败", "type", resp.Type.String(), "error", err)
		return
	}
	if len(data) > MaxDatagramSize {
		logger.Warn("响应超过数据报上限，未发送", "type", resp.Type.String(), "size", len(data))
		return
	}
	if _, err := na.conn.WriteToUDP(data, src); err != nil && !errors.Is(err, net.ErrClosed) {
		logger.Debug("发送响应失败", "to", src.String(), "error", err)
	}
}

// Close 关闭连接并等待读循环退出（幂等）
func (na *NetworkAdapter) Close() error {
	var err error
	na.closeOnce.Do(func() {
		err = na.conn.Close()
		<-na.readDone
	})
	return err
}
