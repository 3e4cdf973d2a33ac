package relay

import (
	"context"

	"PRelay/logger"
	"PRelay/service/backend"
	"PRelay/tools/decode"
	"PRelay/tools/errs"
)

type memberArgs struct {
	ChannelID string   `json:"channel_id"`
	UserIDs   []string `json:"user_ids"`
}

// handleAddMembers mutates membership, then reconciles the live projection
// against the re-fetched authoritative snapshot. Offline additions are
// fine: they have no handles to subscribe and discover the channel on their
// next listing.
func handleAddMembers(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[memberArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}
	if len(in.UserIDs) == 0 {
		reply(errReply("User IDs required"))
		return
	}

	if err := s.backend.AddUsers(ctx, c.Identity().Token, in.ChannelID, in.UserIDs); err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	snap, err := refreshChannelProjection(ctx, s, c, in.ChannelID)
	if err != nil {
		logger.Warnf("[addMembers] snapshot refresh failed channel=%s err=%v", in.ChannelID, err)
		reply(okReply(map[string]any{"channel_id": in.ChannelID}))
		return
	}

	reply(okReply(map[string]any{"channel": snap}))
}

func handleRemoveMembers(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[memberArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}
	if len(in.UserIDs) == 0 {
		reply(errReply("User IDs required"))
		return
	}

	if err := s.backend.RemoveUsers(ctx, c.Identity().Token, in.ChannelID, in.UserIDs); err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	snap, err := refreshChannelProjection(ctx, s, c, in.ChannelID)
	if err != nil {
		logger.Warnf("[removeMembers] snapshot refresh failed channel=%s err=%v", in.ChannelID, err)
		reply(okReply(map[string]any{"channel_id": in.ChannelID}))
		return
	}

	reply(okReply(map[string]any{"channel": snap}))
}

// refreshChannelProjection re-fetches the authoritative membership
// snapshot, diffs it against the live group projection, then broadcasts the
// refreshed channel to the now-correct group. Newly added members' live
// handles are subscribed first so they receive the broadcast; connections
// whose user is no longer a member are unsubscribed and told individually.
func refreshChannelProjection(ctx context.Context, s *Server, actor Conn, channelID string) (*backend.Channel, error) {
	snap, err := s.backend.GetChannel(ctx, actor.Identity().Token, channelID)
	if err != nil {
		return nil, err
	}

	for _, m := range snap.Members {
		for _, h := range s.reg.HandlesFor(m.ID) {
			s.groups.Subscribe(channelID, h)
		}
	}

	for _, h := range s.groups.Members(channelID) {
		if snap.HasMember(h.Identity().UserID) {
			continue
		}
		s.groups.Unsubscribe(channelID, h)
		if derr := h.Deliver(EvtRemovedFromGroup, map[string]any{
			"channel_id": channelID,
			"removed_by": actor.Identity().UserID,
		}); derr != nil {
			logger.Warnf("[refresh] removed-member notify failed conn=%s err=%v", h.ID(), derr)
		}
	}

	s.groups.Broadcast(channelID, EvtChannelUpdated, map[string]any{"channel": snap})
	return snap, nil
}
