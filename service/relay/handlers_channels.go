package relay

import (
	"context"

	"PRelay/logger"
	"PRelay/service/backend"
	"PRelay/tools/decode"
	"PRelay/tools/errs"
)

type channelArgs struct {
	ChannelID string `json:"channel_id"`
}

type createChannelArgs struct {
	IsGroup      bool     `json:"is_group"`
	UserIDs      []string `json:"user_ids"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	AttachmentID string   `json:"attachment_id"`
}

type updateChannelArgs struct {
	ChannelID    string `json:"channel_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	AttachmentID string `json:"attachment_id"`
}

type clearChatArgs struct {
	ChannelID  string   `json:"channel_id"`
	MessageIDs []string `json:"message_ids"`
}

// handleGetChannels lists the caller's channels and subscribes the
// connection to each: this is the only way a connection enters group
// fan-out, so a client that never lists receives no channel broadcasts.
func handleGetChannels(ctx context.Context, s *Server, c Conn, _ map[string]any, reply ReplyFunc) {
	channels, err := s.backend.ListChannels(ctx, c.Identity().Token)
	if err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}
	for i := range channels {
		s.groups.Subscribe(channels[i].ID, c)
	}
	reply(okReply(map[string]any{"channels": channels}))
}

// handleCreateChannel creates (or fetches, for an existing 1:1) the channel,
// subscribes the creator, then subscribes every requested participant's live
// handles and pushes them the new channel. Offline participants get nothing;
// they discover the channel on their next listing.
func handleCreateChannel(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[createChannelArgs](args)
	if err != nil {
		reply(errReply("Invalid arguments"))
		return
	}
	if len(in.UserIDs) == 0 {
		reply(errReply("User IDs required"))
		return
	}

	ch, err := s.backend.CreateChannel(ctx, c.Identity().Token, backend.CreateChannelRequest{
		IsGroup:      in.IsGroup,
		UserIDs:      in.UserIDs,
		Name:         in.Name,
		Description:  in.Description,
		AttachmentID: in.AttachmentID,
	})
	if err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	s.groups.Subscribe(ch.ID, c)

	self := c.Identity().UserID
	for _, uid := range in.UserIDs {
		if uid == self {
			continue
		}
		for _, h := range s.reg.HandlesFor(uid) {
			s.groups.Subscribe(ch.ID, h)
			if derr := h.Deliver(EvtNewChannelCreated, map[string]any{"channel": ch}); derr != nil {
				logger.Warnf("[createChannel] notify failed user=%s conn=%s err=%v", uid, h.ID(), derr)
			}
		}
	}

	reply(okReply(map[string]any{"channel": ch}))
}

// handleDeleteChannel deletes the channel, tells the group, then tears the
// whole group projection down so no handle keeps receiving for it.
func handleDeleteChannel(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[channelArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}

	if err := s.backend.DeleteChannel(ctx, c.Identity().Token, in.ChannelID); err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	s.groups.Broadcast(in.ChannelID, EvtChannelDeleted, map[string]any{
		"channel_id": in.ChannelID,
		"deleted_by": c.Identity().UserID,
	})
	s.groups.Drop(in.ChannelID)

	reply(okReply(map[string]any{"channel_id": in.ChannelID}))
}

// handleUpdateChannelInfo updates metadata, then re-fetches the
// authoritative snapshot and reconciles + broadcasts through the common
// refresh path. If the re-fetch fails the update itself still succeeded, so
// the broadcast falls back to the update response.
func handleUpdateChannelInfo(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[updateChannelArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}

	updated, err := s.backend.UpdateChannel(ctx, c.Identity().Token, in.ChannelID, backend.UpdateChannelRequest{
		Name:         in.Name,
		Description:  in.Description,
		AttachmentID: in.AttachmentID,
	})
	if err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	snap, err := refreshChannelProjection(ctx, s, c, in.ChannelID)
	if err != nil {
		logger.Warnf("[updateChannel] snapshot refresh failed channel=%s err=%v", in.ChannelID, err)
		s.groups.Broadcast(in.ChannelID, EvtChannelUpdated, map[string]any{"channel": updated})
		snap = updated
	}

	reply(okReply(map[string]any{"channel": snap}))
}

// handleLeaveGroup removes the caller from the channel: their handles stop
// receiving for it first, then the remaining group hears who left.
func handleLeaveGroup(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[channelArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}

	if err := s.backend.LeaveChannel(ctx, c.Identity().Token, in.ChannelID); err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	for _, h := range s.reg.HandlesFor(c.Identity().UserID) {
		s.groups.Unsubscribe(in.ChannelID, h)
	}
	s.groups.Broadcast(in.ChannelID, EvtUserLeftGroup, map[string]any{
		"channel_id":   in.ChannelID,
		"user_id":      c.Identity().UserID,
		"display_name": c.Identity().DisplayName,
	})

	reply(okReply(map[string]any{"channel_id": in.ChannelID}))
}

// handleClearChannelChat clears the caller's view of the channel. Clearing
// is per-user in the backend, so only the caller's *other* devices are told;
// the rest of the group sees nothing.
func handleClearChannelChat(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[clearChatArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}

	if err := s.backend.ClearChat(ctx, c.Identity().Token, in.ChannelID, in.MessageIDs); err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	for _, h := range s.reg.HandlesFor(c.Identity().UserID) {
		if h.ID() == c.ID() {
			continue
		}
		if derr := h.Deliver(EvtChannelChatCleared, map[string]any{
			"channel_id":  in.ChannelID,
			"message_ids": in.MessageIDs,
		}); derr != nil {
			logger.Warnf("[clearChat] sibling notify failed conn=%s err=%v", h.ID(), derr)
		}
	}

	reply(okReply(map[string]any{"channel_id": in.ChannelID}))
}
