package relay

import (
	"context"
	"sync"

	"PRelay/service/backend"
)

// fakeConn records every frame pushed to it.

type recordedFrame struct {
	Event string
	ID    uint64
	Data  any
}

type fakeConn struct {
	mu     sync.Mutex
	id     string
	ident  Identity
	frames []recordedFrame
	closed bool
}

func newFakeConn(id, userID string) *fakeConn {
	return &fakeConn{
		id: id,
		ident: Identity{
			UserID:      userID,
			DisplayName: "user " + userID,
			Token:       "token-" + userID,
		},
	}
}

func (c *fakeConn) ID() string         { return c.id }
func (c *fakeConn) Identity() Identity { return c.ident }

func (c *fakeConn) Deliver(event string, payload any) error {
	return c.DeliverReply(event, 0, payload)
}

func (c *fakeConn) DeliverReply(event string, id uint64, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, recordedFrame{Event: event, ID: id, Data: payload})
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) recorded() []recordedFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]recordedFrame, len(c.frames))
	copy(out, c.frames)
	return out
}

func (c *fakeConn) framesFor(event string) []recordedFrame {
	var out []recordedFrame
	for _, f := range c.recorded() {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) lastFrame() (recordedFrame, bool) {
	frames := c.recorded()
	if len(frames) == 0 {
		return recordedFrame{}, false
	}
	return frames[len(frames)-1], true
}

// replyData digs the reply payload map out of a recorded frame.
func replyData(f recordedFrame) map[string]any {
	m, _ := f.Data.(map[string]any)
	return m
}

// fakeBackend implements Backend with overridable function fields and
// records the order of remote calls.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	profileFn       func(token string) (*backend.Profile, error)
	listChannelsFn  func(token string) ([]backend.Channel, error)
	getChannelFn    func(token, channelID string) (*backend.Channel, error)
	createChannelFn func(token string, req backend.CreateChannelRequest) (*backend.Channel, error)
	updateChannelFn func(token, channelID string, req backend.UpdateChannelRequest) (*backend.Channel, error)
	deleteChannelFn func(token, channelID string) error
	leaveChannelFn  func(token, channelID string) error
	addUsersFn      func(token, channelID string, userIDs []string) error
	removeUsersFn   func(token, channelID string, userIDs []string) error

	listMessagesFn  func(token, channelID string, page, limit int) (*backend.MessagePage, error)
	sendMessageFn   func(token, channelID, body, attachmentID string) (*backend.Message, error)
	editMessageFn   func(token, channelID, messageID, body string) (*backend.Message, error)
	deleteMessageFn func(token, channelID, messageID string) error
	clearChatFn     func(token, channelID string, messageIDs []string) error

	markMsgDeliveredFn  func(token, channelID, messageID string) error
	markMsgReadFn       func(token, channelID, messageID string) error
	markChanDeliveredFn func(token, channelID string) error
	markChanReadFn      func(token, channelID string) error

	changeOnlineFn func(token string, online bool) error
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeBackend) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeBackend) Profile(_ context.Context, token string) (*backend.Profile, error) {
	f.record("profile")
	if f.profileFn != nil {
		return f.profileFn(token)
	}
	return &backend.Profile{ID: "u1", Name: "User One"}, nil
}

func (f *fakeBackend) ListChannels(_ context.Context, token string) ([]backend.Channel, error) {
	f.record("listChannels")
	if f.listChannelsFn != nil {
		return f.listChannelsFn(token)
	}
	return nil, nil
}

func (f *fakeBackend) GetChannel(_ context.Context, token, channelID string) (*backend.Channel, error) {
	f.record("getChannel")
	if f.getChannelFn != nil {
		return f.getChannelFn(token, channelID)
	}
	return &backend.Channel{ID: channelID}, nil
}

func (f *fakeBackend) CreateChannel(_ context.Context, token string, req backend.CreateChannelRequest) (*backend.Channel, error) {
	f.record("createChannel")
	if f.createChannelFn != nil {
		return f.createChannelFn(token, req)
	}
	return &backend.Channel{ID: "ch-new", IsGroup: req.IsGroup}, nil
}

func (f *fakeBackend) UpdateChannel(_ context.Context, token, channelID string, req backend.UpdateChannelRequest) (*backend.Channel, error) {
	f.record("updateChannel")
	if f.updateChannelFn != nil {
		return f.updateChannelFn(token, channelID, req)
	}
	return &backend.Channel{ID: channelID, Name: req.Name}, nil
}

func (f *fakeBackend) DeleteChannel(_ context.Context, token, channelID string) error {
	f.record("deleteChannel")
	if f.deleteChannelFn != nil {
		return f.deleteChannelFn(token, channelID)
	}
	return nil
}

func (f *fakeBackend) LeaveChannel(_ context.Context, token, channelID string) error {
	f.record("leaveChannel")
	if f.leaveChannelFn != nil {
		return f.leaveChannelFn(token, channelID)
	}
	return nil
}

func (f *fakeBackend) AddUsers(_ context.Context, token, channelID string, userIDs []string) error {
	f.record("addUsers")
	if f.addUsersFn != nil {
		return f.addUsersFn(token, channelID, userIDs)
	}
	return nil
}

func (f *fakeBackend) RemoveUsers(_ context.Context, token, channelID string, userIDs []string) error {
	f.record("removeUsers")
	if f.removeUsersFn != nil {
		return f.removeUsersFn(token, channelID, userIDs)
	}
	return nil
}

func (f *fakeBackend) ListMessages(_ context.Context, token, channelID string, page, limit int) (*backend.MessagePage, error) {
	f.record("listMessages")
	if f.listMessagesFn != nil {
		return f.listMessagesFn(token, channelID, page, limit)
	}
	return &backend.MessagePage{Page: page, Limit: limit}, nil
}

func (f *fakeBackend) SendMessage(_ context.Context, token, channelID, body, attachmentID string) (*backend.Message, error) {
	f.record("sendMessage")
	if f.sendMessageFn != nil {
		return f.sendMessageFn(token, channelID, body, attachmentID)
	}
	return &backend.Message{ID: "m1", ChannelID: channelID, Body: body}, nil
}

func (f *fakeBackend) EditMessage(_ context.Context, token, channelID, messageID, body string) (*backend.Message, error) {
	f.record("editMessage")
	if f.editMessageFn != nil {
		return f.editMessageFn(token, channelID, messageID, body)
	}
	return &backend.Message{ID: messageID, ChannelID: channelID, Body: body}, nil
}

func (f *fakeBackend) DeleteMessage(_ context.Context, token, channelID, messageID string) error {
	f.record("deleteMessage")
	if f.deleteMessageFn != nil {
		return f.deleteMessageFn(token, channelID, messageID)
	}
	return nil
}

func (f *fakeBackend) ClearChat(_ context.Context, token, channelID string, messageIDs []string) error {
	f.record("clearChat")
	if f.clearChatFn != nil {
		return f.clearChatFn(token, channelID, messageIDs)
	}
	return nil
}

func (f *fakeBackend) MarkMessageDelivered(_ context.Context, token, channelID, messageID string) error {
	f.record("markMessageDelivered")
	if f.markMsgDeliveredFn != nil {
		return f.markMsgDeliveredFn(token, channelID, messageID)
	}
	return nil
}

func (f *fakeBackend) MarkMessageRead(_ context.Context, token, channelID, messageID string) error {
	f.record("markMessageRead")
	if f.markMsgReadFn != nil {
		return f.markMsgReadFn(token, channelID, messageID)
	}
	return nil
}

func (f *fakeBackend) MarkChannelDelivered(_ context.Context, token, channelID string) error {
	f.record("markChannelDelivered")
	if f.markChanDeliveredFn != nil {
		return f.markChanDeliveredFn(token, channelID)
	}
	return nil
}

func (f *fakeBackend) MarkChannelRead(_ context.Context, token, channelID string) error {
	f.record("markChannelRead")
	if f.markChanReadFn != nil {
		return f.markChanReadFn(token, channelID)
	}
	return nil
}

func (f *fakeBackend) ChangeOnlineStatus(_ context.Context, token string, online bool) error {
	f.record("changeOnlineStatus")
	if f.changeOnlineFn != nil {
		return f.changeOnlineFn(token, online)
	}
	return nil
}
