package relay

import (
	"context"

	"PRelay/tools/decode"
	"PRelay/tools/errs"
)

type getMessagesArgs struct {
	ChannelID string `json:"channel_id"`
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
}

type sendMessageArgs struct {
	ChannelID    string `json:"channel_id"`
	Message      string `json:"message"`
	AttachmentID string `json:"attachment_id"`
}

type editMessageArgs struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

type messageRefArgs struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

func handleGetMessages(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[getMessagesArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}

	page, err := s.backend.ListMessages(ctx, c.Identity().Token, in.ChannelID, in.Page, in.Limit)
	if err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	reply(okReply(map[string]any{
		"messages": page.Items,
		"page":     page.Page,
		"limit":    page.Limit,
		"total":    page.Total,
		"has_more": page.HasMore,
	}))
}

// handleSendMessage stores the message and fans the created entity out to
// the channel. The sender gets both the direct reply and, while still
// subscribed, the broadcast; clients treat the broadcast of their own
// message as idempotent with their optimistic state.
func handleSendMessage(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[sendMessageArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}
	if in.Message == "" && in.AttachmentID == "" {
		reply(errReply("Message required"))
		return
	}

	msg, err := s.backend.SendMessage(ctx, c.Identity().Token, in.ChannelID, in.Message, in.AttachmentID)
	if err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	s.groups.Broadcast(in.ChannelID, EvtNewMessage, map[string]any{
		"channel_id": in.ChannelID,
		"message":    msg,
	})

	reply(okReply(map[string]any{"message": msg}))
}

func handleEditMessage(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[editMessageArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}
	if in.MessageID == "" {
		reply(errReply("Message ID required"))
		return
	}
	if in.Message == "" {
		reply(errReply("Message required"))
		return
	}

	msg, err := s.backend.EditMessage(ctx, c.Identity().Token, in.ChannelID, in.MessageID, in.Message)
	if err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	s.groups.Broadcast(in.ChannelID, EvtMessageUpdated, map[string]any{
		"channel_id": in.ChannelID,
		"message":    msg,
	})

	reply(okReply(map[string]any{"message": msg}))
}

func handleDeleteMessage(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[messageRefArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}
	if in.MessageID == "" {
		reply(errReply("Message ID required"))
		return
	}

	if err := s.backend.DeleteMessage(ctx, c.Identity().Token, in.ChannelID, in.MessageID); err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	s.groups.Broadcast(in.ChannelID, EvtMessageDeleted, map[string]any{
		"channel_id": in.ChannelID,
		"message_id": in.MessageID,
		"deleted_by": c.Identity().UserID,
	})

	reply(okReply(map[string]any{"message_id": in.MessageID}))
}
