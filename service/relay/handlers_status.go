package relay

import (
	"context"
	"time"

	"PRelay/tools/decode"
	"PRelay/tools/errs"
)

// Acknowledgement fan-out. The timestamp broadcast here is the relay's own
// observation time at confirmation, not the backend's stored value; the
// skew is accepted and documented, never corrected. Re-acknowledging an
// already-acknowledged item is not rejected: the remote call and the
// broadcast simply run again, idempotent storage is the backend's job.

func stampNow() string { return time.Now().UTC().Format(time.RFC3339) }

func handleMarkMessageDelivered(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[messageRefArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}
	if in.MessageID == "" {
		reply(errReply("Message ID required"))
		return
	}

	if err := s.backend.MarkMessageDelivered(ctx, c.Identity().Token, in.ChannelID, in.MessageID); err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	s.groups.Broadcast(in.ChannelID, EvtMessageStatusUpdate, map[string]any{
		"channel_id":   in.ChannelID,
		"message_id":   in.MessageID,
		"user_id":      c.Identity().UserID,
		"delivered_at": stampNow(),
	})

	reply(okReply(nil))
}

func handleMarkMessageRead(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[messageRefArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}
	if in.MessageID == "" {
		reply(errReply("Message ID required"))
		return
	}

	if err := s.backend.MarkMessageRead(ctx, c.Identity().Token, in.ChannelID, in.MessageID); err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	s.groups.Broadcast(in.ChannelID, EvtMessageStatusUpdate, map[string]any{
		"channel_id": in.ChannelID,
		"message_id": in.MessageID,
		"user_id":    c.Identity().UserID,
		"read_at":    stampNow(),
	})

	reply(okReply(nil))
}

// handleMarkChannelDelivered acknowledges everything outstanding in the
// channel at once (client opened the channel).
func handleMarkChannelDelivered(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[channelArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}

	if err := s.backend.MarkChannelDelivered(ctx, c.Identity().Token, in.ChannelID); err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	s.groups.Broadcast(in.ChannelID, EvtChannelBulkDelivered, map[string]any{
		"channel_id":   in.ChannelID,
		"user_id":      c.Identity().UserID,
		"delivered_at": stampNow(),
	})

	reply(okReply(nil))
}

func handleMarkChannelRead(ctx context.Context, s *Server, c Conn, args map[string]any, reply ReplyFunc) {
	in, err := decode.Map[channelArgs](args)
	if err != nil || in.ChannelID == "" {
		reply(errReply("Channel ID required"))
		return
	}

	if err := s.backend.MarkChannelRead(ctx, c.Identity().Token, in.ChannelID); err != nil {
		reply(errReply(errs.UserMessage(err)))
		return
	}

	ts := stampNow()
	s.groups.Broadcast(in.ChannelID, EvtChannelBulkRead, map[string]any{
		"channel_id": in.ChannelID,
		"user_id":    c.Identity().UserID,
		"read_at":    ts,
	})
	// summary event for channel-list views tracking the high-water mark
	s.groups.Broadcast(in.ChannelID, EvtChannelReadUpdate, map[string]any{
		"channel_id": in.ChannelID,
		"user_id":    c.Identity().UserID,
		"read_at":    ts,
	})

	reply(okReply(nil))
}
