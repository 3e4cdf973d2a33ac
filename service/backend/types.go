package backend

// DTOs for the backend-of-record REST surface. The relay never stores any
// of these, it only decodes, fans out and forgets.

type Profile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	IsOnline   bool   `json:"is_online,omitempty"`
	LastSeenAt string `json:"last_seen_at,omitempty"`
}

type Member struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	IsOnline  bool   `json:"is_online,omitempty"`
}

type Channel struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	IsGroup     bool     `json:"is_group"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	OwnerID     string   `json:"owner_id,omitempty"`
	Members     []Member `json:"members,omitempty"`
	LastMessage *Message `json:"last_message,omitempty"`
	UnreadCount int      `json:"unread_count,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// MemberIDs returns the ids of the channel's current members.
func (c *Channel) MemberIDs() []string {
	out := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		out = append(out, m.ID)
	}
	return out
}

// HasMember reports whether userID is in the channel's member snapshot.
func (c *Channel) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

type Message struct {
	ID            string `json:"id"`
	ChannelID     string `json:"channel_id"`
	SenderID      string `json:"sender_id"`
	Body          string `json:"message,omitempty"`
	AttachmentURL string `json:"attachment_url,omitempty"`
	DeliveredAt   string `json:"delivered_at,omitempty"`
	ReadAt        string `json:"read_at,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

type MessagePage struct {
	Items   []Message `json:"data"`
	Page    int       `json:"page"`
	Limit   int       `json:"limit"`
	Total   int       `json:"total"`
	HasMore bool      `json:"has_more"`
}

type CreateChannelRequest struct {
	IsGroup      bool
	UserIDs      []string
	Name         string
	Description  string
	AttachmentID string
}

type UpdateChannelRequest struct {
	Name         string
	Description  string
	AttachmentID string
}
