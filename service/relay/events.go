package relay

// Client -> relay commands. Every command produces exactly one reply,
// except the typing pair which is fire-and-forget.
const (
	CmdGetChannels            = "getChannels"
	CmdGetMessages            = "getMessages"
	CmdSendMessage            = "sendMessage"
	CmdEditMessage            = "editMessage"
	CmdDeleteMessage          = "deleteMessage"
	CmdClearChannelChat       = "clearChannelChat"
	CmdDeleteChannel          = "deleteChannel"
	CmdCreateChannel          = "createChannel"
	CmdLeaveGroup             = "leaveGroup"
	CmdUpdateChannelInfo      = "updateChannelInfo"
	CmdAddMembersToGroup      = "addMembersToGroup"
	CmdRemoveMembersFromGroup = "removeMembersFromGroup"
	CmdMarkMessageDelivered   = "markMessageDelivered"
	CmdMarkMessageRead        = "markMessageRead"
	CmdMarkChannelDelivered   = "markChannelDelivered"
	CmdMarkChannelRead        = "markChannelRead"
	CmdStartTyping            = "startTyping"
	CmdStopTyping             = "stopTyping"
)

// Relay -> client broadcast events.
const (
	EvtNewMessage           = "newMessage"
	EvtMessageUpdated       = "messageUpdated"
	EvtMessageDeleted       = "messageDeleted"
	EvtChannelUpdated       = "channelUpdated"
	EvtChannelDeleted       = "channelDeleted"
	EvtNewChannelCreated    = "newChannelCreated"
	EvtUserLeftGroup        = "userLeftGroup"
	EvtRemovedFromGroup     = "removedFromGroup"
	EvtUserOnline           = "userOnline"
	EvtUserOffline          = "userOffline"
	EvtUserTyping           = "userTyping"
	EvtUserStoppedTyping    = "userStoppedTyping"
	EvtMessageStatusUpdate  = "messageStatusUpdate"
	EvtChannelReadUpdate    = "channelReadUpdate"
	EvtChannelBulkDelivered = "channelBulkDeliveredUpdate"
	EvtChannelBulkRead      = "channelBulkReadUpdate"
	EvtChannelChatCleared   = "channelChatCleared"
)
