package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"PRelay/tools/errs"
)

// Client talks to the backend-of-record. Every call carries the bearer of
// the acting user; the relay itself holds no credential of its own.
// Mutating channel/message endpoints are multipart form posts (the backend
// accepts attachment references alongside text), updates go through a
// POST + `_method=PUT` override, membership mutations are plain JSON.
type Client struct {
	http *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &Client{http: c}
}

func (c *Client) req(ctx context.Context, token string) *resty.Request {
	return c.http.R().SetContext(ctx).SetAuthToken(token)
}

// remoteErr turns a non-2xx response into a KindRemote error carrying the
// backend's own message when it sent one.
func remoteErr(resp *resty.Response) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(resp.Body(), &body)
	msg := body.Message
	if msg == "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	return errs.Remote(msg)
}

func callErr(op string, err error) error {
	return errs.Wrap(errs.KindRemote, err, op+" failed")
}

// envelope is the backend's standard `{"data": ...}` wrapper.
type envelope[T any] struct {
	Data T `json:"data"`
}

func (c *Client) Profile(ctx context.Context, token string) (*Profile, error) {
	var out envelope[Profile]
	resp, err := c.req(ctx, token).SetResult(&out).Get("/user")
	if err != nil {
		return nil, callErr("fetch profile", err)
	}
	if resp.IsError() {
		return nil, remoteErr(resp)
	}
	return &out.Data, nil
}

func (c *Client) ListChannels(ctx context.Context, token string) ([]Channel, error) {
	var out envelope[[]Channel]
	resp, err := c.req(ctx, token).SetResult(&out).Get("/user/channels")
	if err != nil {
		return nil, callErr("list channels", err)
	}
	if resp.IsError() {
		return nil, remoteErr(resp)
	}
	return out.Data, nil
}

func (c *Client) GetChannel(ctx context.Context, token, channelID string) (*Channel, error) {
	var out envelope[Channel]
	resp, err := c.req(ctx, token).SetResult(&out).Get("/user/channels/" + channelID)
	if err != nil {
		return nil, callErr("fetch channel", err)
	}
	if resp.IsError() {
		return nil, remoteErr(resp)
	}
	return &out.Data, nil
}

func (c *Client) ListMessages(ctx context.Context, token, channelID string, page, limit int) (*MessagePage, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	var out MessagePage
	resp, err := c.req(ctx, token).
		SetQueryParams(map[string]string{
			"page":  strconv.Itoa(page),
			"limit": strconv.Itoa(limit),
		}).
		SetResult(&out).
		Get("/user/channels/" + channelID + "/messages")
	if err != nil {
		return nil, callErr("list messages", err)
	}
	if resp.IsError() {
		return nil, remoteErr(resp)
	}
	return &out, nil
}

func (c *Client) SendMessage(ctx context.Context, token, channelID, body, attachmentID string) (*Message, error) {
	form := map[string]string{"message": body}
	if attachmentID != "" {
		form["attachment_id"] = attachmentID
	}
	var out envelope[Message]
	resp, err := c.req(ctx, token).
		SetMultipartFormData(form).
		SetResult(&out).
		Post("/user/channels/" + channelID + "/messages")
	if err != nil {
		return nil, callErr("send message", err)
	}
	if resp.IsError() {
		return nil, remoteErr(resp)
	}
	return &out.Data, nil
}

func (c *Client) EditMessage(ctx context.Context, token, channelID, messageID, body string) (*Message, error) {
	var out envelope[Message]
	resp, err := c.req(ctx, token).
		SetMultipartFormData(map[string]string{
			"_method": "PUT",
			"message": body,
		}).
		SetResult(&out).
		Post("/user/channels/" + channelID + "/messages/" + messageID)
	if err != nil {
		return nil, callErr("edit message", err)
	}
	if resp.IsError() {
		return nil, remoteErr(resp)
	}
	return &out.Data, nil
}

func (c *Client) DeleteMessage(ctx context.Context, token, channelID, messageID string) error {
	resp, err := c.req(ctx, token).Delete("/user/channels/" + channelID + "/messages/" + messageID)
	if err != nil {
		return callErr("delete message", err)
	}
	if resp.IsError() {
		return remoteErr(resp)
	}
	return nil
}

func (c *Client) MarkMessageDelivered(ctx context.Context, token, channelID, messageID string) error {
	return c.put(ctx, token, "/user/channels/"+channelID+"/messages/"+messageID+"/mark-delivered-at", nil)
}

func (c *Client) MarkMessageRead(ctx context.Context, token, channelID, messageID string) error {
	return c.put(ctx, token, "/user/channels/"+channelID+"/messages/"+messageID+"/mark-as-read", nil)
}

func (c *Client) MarkChannelDelivered(ctx context.Context, token, channelID string) error {
	return c.put(ctx, token, "/user/channels/"+channelID+"/mark-delivered-at", nil)
}

func (c *Client) MarkChannelRead(ctx context.Context, token, channelID string) error {
	return c.put(ctx, token, "/user/channels/"+channelID+"/mark-as-read", nil)
}

// ClearChat removes messages from the caller's view of the channel. An
// empty id list means clear everything.
func (c *Client) ClearChat(ctx context.Context, token, channelID string, messageIDs []string) error {
	if messageIDs == nil {
		messageIDs = []string{}
	}
	return c.put(ctx, token, "/user/channels/"+channelID+"/clear-chat", map[string]any{
		"message_ids": messageIDs,
	})
}

func (c *Client) DeleteChannel(ctx context.Context, token, channelID string) error {
	resp, err := c.req(ctx, token).Delete("/user/channels/" + channelID)
	if err != nil {
		return callErr("delete channel", err)
	}
	if resp.IsError() {
		return remoteErr(resp)
	}
	return nil
}

func (c *Client) LeaveChannel(ctx context.Context, token, channelID string) error {
	return c.put(ctx, token, "/user/channels/"+channelID+"/left-chat", nil)
}

func (c *Client) CreateChannel(ctx context.Context, token string, req CreateChannelRequest) (*Channel, error) {
	fields := []*resty.MultipartField{
		{Param: "is_group", Reader: strings.NewReader(strconv.FormatBool(req.IsGroup))},
	}
	for _, id := range req.UserIDs {
		fields = append(fields, &resty.MultipartField{Param: "user_ids[]", Reader: strings.NewReader(id)})
	}
	if req.Name != "" {
		fields = append(fields, &resty.MultipartField{Param: "name", Reader: strings.NewReader(req.Name)})
	}
	if req.Description != "" {
		fields = append(fields, &resty.MultipartField{Param: "description", Reader: strings.NewReader(req.Description)})
	}
	if req.AttachmentID != "" {
		fields = append(fields, &resty.MultipartField{Param: "attachment_id", Reader: strings.NewReader(req.AttachmentID)})
	}

	var out envelope[Channel]
	resp, err := c.req(ctx, token).
		SetMultipartFields(fields...).
		SetResult(&out).
		Post("/user/channels")
	if err != nil {
		return nil, callErr("create channel", err)
	}
	if resp.IsError() {
		return nil, remoteErr(resp)
	}
	return &out.Data, nil
}

func (c *Client) UpdateChannel(ctx context.Context, token, channelID string, req UpdateChannelRequest) (*Channel, error) {
	form := map[string]string{"_method": "PUT"}
	if req.Name != "" {
		form["name"] = req.Name
	}
	if req.Description != "" {
		form["description"] = req.Description
	}
	if req.AttachmentID != "" {
		form["attachment_id"] = req.AttachmentID
	}

	var out envelope[Channel]
	resp, err := c.req(ctx, token).
		SetMultipartFormData(form).
		SetResult(&out).
		Post("/user/channels/" + channelID)
	if err != nil {
		return nil, callErr("update channel", err)
	}
	if resp.IsError() {
		return nil, remoteErr(resp)
	}
	return &out.Data, nil
}

func (c *Client) AddUsers(ctx context.Context, token, channelID string, userIDs []string) error {
	return c.post(ctx, token, "/user/channels/"+channelID+"/add-users", map[string]any{
		"user_ids": userIDs,
	})
}

func (c *Client) RemoveUsers(ctx context.Context, token, channelID string, userIDs []string) error {
	return c.post(ctx, token, "/user/channels/"+channelID+"/remove-users", map[string]any{
		"user_ids": userIDs,
	})
}

func (c *Client) ChangeOnlineStatus(ctx context.Context, token string, online bool) error {
	return c.put(ctx, token, "/user/change-online-status", map[string]any{
		"is_online": online,
	})
}

func (c *Client) put(ctx context.Context, token, path string, body map[string]any) error {
	r := c.req(ctx, token)
	if body != nil {
		r = r.SetBody(body)
	}
	resp, err := r.Put(path)
	if err != nil {
		return callErr("PUT "+path, err)
	}
	if resp.IsError() {
		return remoteErr(resp)
	}
	return nil
}

func (c *Client) post(ctx context.Context, token, path string, body map[string]any) error {
	r := c.req(ctx, token)
	if body != nil {
		r = r.SetBody(body)
	}
	resp, err := r.Post(path)
	if err != nil {
		return callErr("POST "+path, err)
	}
	if resp.IsError() {
		return remoteErr(resp)
	}
	return nil
}
