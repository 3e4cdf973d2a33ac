package relay

import (
	"context"

	"PRelay/tools/decode"
)

// Typing indicators are fire-and-forget: no remote call, no reply, and the
// originating connection is excluded so a sender never hears its own echo.

func handleStartTyping(_ context.Context, s *Server, c Conn, args map[string]any, _ ReplyFunc) {
	in, err := decode.Map[channelArgs](args)
	if err != nil || in.ChannelID == "" {
		return
	}
	s.groups.Broadcast(in.ChannelID, EvtUserTyping, map[string]any{
		"channel_id":   in.ChannelID,
		"user_id":      c.Identity().UserID,
		"display_name": c.Identity().DisplayName,
	}, c.ID())
}

func handleStopTyping(_ context.Context, s *Server, c Conn, args map[string]any, _ ReplyFunc) {
	in, err := decode.Map[channelArgs](args)
	if err != nil || in.ChannelID == "" {
		return
	}
	s.groups.Broadcast(in.ChannelID, EvtUserStoppedTyping, map[string]any{
		"channel_id": in.ChannelID,
		"user_id":    c.Identity().UserID,
	}, c.ID())
}
