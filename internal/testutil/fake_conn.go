package testutil

import (
	"sync"

	"github.com/answjddns08/GamingHerb/internal/protocol"
)

// FakeConn 测试用连接句柄，记录发给它的全部消息
type FakeConn struct {
	mu       sync.Mutex
	messages []*protocol.Message
	closed   bool
}

// NewFakeConn 创建测试连接
func NewFakeConn() *FakeConn {
	return &FakeConn{}
}

// SendMessage 记录一条出站消息
func (f *FakeConn) SendMessage(msg *protocol.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.messages = append(f.messages, msg)
}

// Close 标记连接已关闭
func (f *FakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// Closed 连接是否已关闭
func (f *FakeConn) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Messages 返回已收到消息的副本
func (f *FakeConn) Messages() []*protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*protocol.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

// MessagesOfType 按类型过滤已收到的消息
func (f *FakeConn) MessagesOfType(msgType protocol.MessageType) []*protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*protocol.Message
	for _, msg := range f.messages {
		if msg.Type == msgType {
			out = append(out, msg)
		}
	}
	return out
}

// LastOfType 返回指定类型的最后一条消息，没有则返回 nil
func (f *FakeConn) LastOfType(msgType protocol.MessageType) *protocol.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].Type == msgType {
			return f.messages[i]
		}
	}
	return nil
}

// Reset 清空已记录的消息
func (f *FakeConn) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = nil
}
