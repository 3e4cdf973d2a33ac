package relay

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"PRelay/logger"
	"PRelay/service/natsx"
	"PRelay/service/storage"
	"PRelay/tools/errs"
	"PRelay/tools/ids"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server owns the relay's moving parts: registry, group projections,
// presence coordinator and the command dispatcher. One Server per process.
type Server struct {
	nodeID    string
	queueSize int

	backend  Backend
	gate     *IdentityGate
	reg      *Registry
	groups   *Groups
	presence *Presence
	disp     *Dispatcher
	bridge   *natsx.Bridge
}

func NewServer(b Backend, nodeID string, queueSize int) *Server {
	reg := NewRegistry()
	s := &Server{
		nodeID:    nodeID,
		queueSize: queueSize,
		backend:   b,
		gate:      NewIdentityGate(b),
		reg:       reg,
		groups:    NewGroups(),
		presence:  NewPresence(reg, b),
		disp:      NewDispatcher(),
	}
	s.registerHandlers()
	return s
}

func (s *Server) registerHandlers() {
	s.disp.Register(CmdGetChannels, handleGetChannels)
	s.disp.Register(CmdGetMessages, handleGetMessages)
	s.disp.Register(CmdSendMessage, handleSendMessage)
	s.disp.Register(CmdEditMessage, handleEditMessage)
	s.disp.Register(CmdDeleteMessage, handleDeleteMessage)
	s.disp.Register(CmdClearChannelChat, handleClearChannelChat)
	s.disp.Register(CmdCreateChannel, handleCreateChannel)
	s.disp.Register(CmdDeleteChannel, handleDeleteChannel)
	s.disp.Register(CmdLeaveGroup, handleLeaveGroup)
	s.disp.Register(CmdUpdateChannelInfo, handleUpdateChannelInfo)
	s.disp.Register(CmdAddMembersToGroup, handleAddMembers)
	s.disp.Register(CmdRemoveMembersFromGroup, handleRemoveMembers)
	s.disp.Register(CmdMarkMessageDelivered, handleMarkMessageDelivered)
	s.disp.Register(CmdMarkMessageRead, handleMarkMessageRead)
	s.disp.Register(CmdMarkChannelDelivered, handleMarkChannelDelivered)
	s.disp.Register(CmdMarkChannelRead, handleMarkChannelRead)
	s.disp.RegisterSilent(CmdStartTyping, handleStartTyping)
	s.disp.RegisterSilent(CmdStopTyping, handleStopTyping)
}

// AttachMirror wires the optional redis presence mirror.
func (s *Server) AttachMirror(m *storage.PresenceMirror) {
	s.presence.SetMirror(m)
}

// AttachBridge wires the optional cross-node bridge: local broadcasts get
// mirrored out, foreign envelopes replay into the local projections only
// (never re-published).
func (s *Server) AttachBridge(b *natsx.Bridge) error {
	s.bridge = b
	s.groups.SetPublisher(func(channelID, event string, payload json.RawMessage) {
		b.Publish(channelID, event, payload)
	})
	s.presence.SetPublisher(func(event string, payload json.RawMessage) {
		b.Publish("", event, payload)
	})
	return b.Start(func(env natsx.Envelope) {
		if env.ChannelID == "" {
			for _, c := range s.reg.AllHandles() {
				if err := c.Deliver(env.Event, env.Payload); err != nil {
					logger.Warnf("[bridge] replay delivery failed conn=%s event=%s err=%v", c.ID(), env.Event, err)
				}
			}
			return
		}
		s.groups.localBroadcast(env.ChannelID, env.Event, env.Payload)
	})
}

// bearerToken pulls the credential from the upgrade request: Authorization
// header first, `token` query parameter as the browser fallback.
func bearerToken(r *http.Request) string {
	if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
		if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return strings.TrimSpace(authz[len("bearer "):])
		}
		return authz
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// HandleWS authenticates, upgrades and serves one client connection until
// it drops. The identity gate runs before the upgrade: a refused credential
// never touches the registry.
func (s *Server) HandleWS(c *gin.Context) {
	token := bearerToken(c.Request)

	ident, err := s.gate.Authenticate(c.Request.Context(), token)
	if err != nil {
		logger.Infof("[ws] refused connection: %v", err)
		c.JSON(http.StatusUnauthorized, errReply(errs.UserMessage(err)))
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed user=%s err=%v", ident.UserID, err)
		return
	}

	conn := newWSConn(ids.GenerateString(), ident, ws, s.queueSize)
	first := s.reg.Admit(ident.UserID, conn)
	s.presence.ConnectionOpened(ident, first)
	logger.Infof("[ws] connected user=%s conn=%s first=%v", ident.UserID, conn.ID(), first)

	s.readLoop(conn, ws)
	s.teardown(conn)
}

func (s *Server) readLoop(conn *wsConn, ws *websocket.Conn) {
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", conn.ID())
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] read timeout conn=%s err=%v", conn.ID(), err)
			} else {
				logger.Infof("[ws] read err conn=%s err=%v", conn.ID(), err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, err := ParseCommandFrame(data)
		if err != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", conn.ID(), err, sample)
			continue
		}

		// Sequential dispatch keeps this connection's remote calls in
		// arrival order; other connections interleave freely.
		s.disp.Dispatch(context.Background(), s, conn, frame)
	}
}

// teardown runs exactly once per connection, after its read loop exits.
func (s *Server) teardown(conn Conn) {
	s.groups.UnsubscribeAll(conn)
	userID, last := s.reg.Evict(conn)
	if userID != "" {
		s.presence.ConnectionClosed(conn.Identity(), last)
	}
	conn.Close()
	logger.Infof("[ws] disconnected user=%s conn=%s last=%v", conn.Identity().UserID, conn.ID(), last)
}
