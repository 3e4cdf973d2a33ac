package relay

import (
	"context"

	"PRelay/service/backend"
)

// Backend is the remote call contract against the backend-of-record,
// satisfied by backend.Client. The relay treats every method as a
// suspension point: no registry or group lock is ever held across one.
type Backend interface {
	Profile(ctx context.Context, token string) (*backend.Profile, error)

	ListChannels(ctx context.Context, token string) ([]backend.Channel, error)
	GetChannel(ctx context.Context, token, channelID string) (*backend.Channel, error)
	CreateChannel(ctx context.Context, token string, req backend.CreateChannelRequest) (*backend.Channel, error)
	UpdateChannel(ctx context.Context, token, channelID string, req backend.UpdateChannelRequest) (*backend.Channel, error)
	DeleteChannel(ctx context.Context, token, channelID string) error
	LeaveChannel(ctx context.Context, token, channelID string) error
	AddUsers(ctx context.Context, token, channelID string, userIDs []string) error
	RemoveUsers(ctx context.Context, token, channelID string, userIDs []string) error

	ListMessages(ctx context.Context, token, channelID string, page, limit int) (*backend.MessagePage, error)
	SendMessage(ctx context.Context, token, channelID, body, attachmentID string) (*backend.Message, error)
	EditMessage(ctx context.Context, token, channelID, messageID, body string) (*backend.Message, error)
	DeleteMessage(ctx context.Context, token, channelID, messageID string) error
	ClearChat(ctx context.Context, token, channelID string, messageIDs []string) error

	MarkMessageDelivered(ctx context.Context, token, channelID, messageID string) error
	MarkMessageRead(ctx context.Context, token, channelID, messageID string) error
	MarkChannelDelivered(ctx context.Context, token, channelID string) error
	MarkChannelRead(ctx context.Context, token, channelID string) error

	ChangeOnlineStatus(ctx context.Context, token string, online bool) error
}
