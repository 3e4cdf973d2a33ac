package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PRelay/tools/errs"
)

type capturedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Auth   string
	Form   url.Values // multipart or urlencoded fields
	JSON   map[string]any
}

// newCaptureServer records every request and answers with the given status
// and body.
func newCaptureServer(t *testing.T, status int, body string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var seen []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cr := capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.Query(),
			Auth:   r.Header.Get("Authorization"),
		}
		ct := r.Header.Get("Content-Type")
		switch {
		case strings.HasPrefix(ct, "multipart/form-data"):
			require.NoError(t, r.ParseMultipartForm(1<<20))
			cr.Form = r.MultipartForm.Value
		case strings.HasPrefix(ct, "application/json"):
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, &cr.JSON)
		}
		seen = append(seen, cr)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestProfileCarriesBearerAndUnwrapsEnvelope(t *testing.T) {
	srv, seen := newCaptureServer(t, http.StatusOK, `{"data":{"id":"u1","name":"User One"}}`)
	c := NewClient(srv.URL, time.Second)

	p, err := c.Profile(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "u1", p.ID)
	assert.Equal(t, "User One", p.Name)

	req := (*seen)[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/user", req.Path)
	assert.Equal(t, "Bearer tok-123", req.Auth)
}

func TestListMessagesAppliesPagingDefaults(t *testing.T) {
	srv, seen := newCaptureServer(t, http.StatusOK,
		`{"data":[{"id":"m1","channel_id":"ch1"}],"page":1,"limit":50,"total":1,"has_more":false}`)
	c := NewClient(srv.URL, time.Second)

	page, err := c.ListMessages(context.Background(), "tok", "ch1", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "m1", page.Items[0].ID)

	req := (*seen)[0]
	assert.Equal(t, "/user/channels/ch1/messages", req.Path)
	assert.Equal(t, "1", req.Query.Get("page"))
	assert.Equal(t, "50", req.Query.Get("limit"))
}

func TestSendMessagePostsMultipart(t *testing.T) {
	srv, seen := newCaptureServer(t, http.StatusCreated,
		`{"data":{"id":"m1","channel_id":"ch1","message":"hello"}}`)
	c := NewClient(srv.URL, time.Second)

	msg, err := c.SendMessage(context.Background(), "tok", "ch1", "hello", "att-1")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)

	req := (*seen)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/user/channels/ch1/messages", req.Path)
	assert.Equal(t, "hello", req.Form.Get("message"))
	assert.Equal(t, "att-1", req.Form.Get("attachment_id"))
}

func TestEditMessageUsesMethodOverride(t *testing.T) {
	srv, seen := newCaptureServer(t, http.StatusOK,
		`{"data":{"id":"m1","channel_id":"ch1","message":"fixed"}}`)
	c := NewClient(srv.URL, time.Second)

	_, err := c.EditMessage(context.Background(), "tok", "ch1", "m1", "fixed")
	require.NoError(t, err)

	req := (*seen)[0]
	assert.Equal(t, http.MethodPost, req.Method, "the backend routes updates through a POST override")
	assert.Equal(t, "/user/channels/ch1/messages/m1", req.Path)
	assert.Equal(t, "PUT", req.Form.Get("_method"))
	assert.Equal(t, "fixed", req.Form.Get("message"))
}

func TestCreateChannelRepeatsUserIDField(t *testing.T) {
	srv, seen := newCaptureServer(t, http.StatusCreated,
		`{"data":{"id":"ch-new","is_group":true}}`)
	c := NewClient(srv.URL, time.Second)

	ch, err := c.CreateChannel(context.Background(), "tok", CreateChannelRequest{
		IsGroup: true,
		UserIDs: []string{"u2", "u3"},
		Name:    "plans",
	})
	require.NoError(t, err)
	assert.Equal(t, "ch-new", ch.ID)

	req := (*seen)[0]
	assert.Equal(t, "/user/channels", req.Path)
	assert.Equal(t, "true", req.Form.Get("is_group"))
	assert.Equal(t, []string{"u2", "u3"}, req.Form["user_ids[]"])
	assert.Equal(t, "plans", req.Form.Get("name"))
}

func TestUpdateChannelOmitsEmptyFields(t *testing.T) {
	srv, seen := newCaptureServer(t, http.StatusOK,
		`{"data":{"id":"ch1","name":"renamed"}}`)
	c := NewClient(srv.URL, time.Second)

	_, err := c.UpdateChannel(context.Background(), "tok", "ch1", UpdateChannelRequest{Name: "renamed"})
	require.NoError(t, err)

	req := (*seen)[0]
	assert.Equal(t, "/user/channels/ch1", req.Path)
	assert.Equal(t, "PUT", req.Form.Get("_method"))
	assert.Equal(t, "renamed", req.Form.Get("name"))
	assert.NotContains(t, req.Form, "description")
}

func TestAddUsersSendsJSONList(t *testing.T) {
	srv, seen := newCaptureServer(t, http.StatusOK, `{}`)
	c := NewClient(srv.URL, time.Second)

	require.NoError(t, c.AddUsers(context.Background(), "tok", "ch1", []string{"u2", "u3"}))

	req := (*seen)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/user/channels/ch1/add-users", req.Path)
	assert.Equal(t, []any{"u2", "u3"}, req.JSON["user_ids"])
}

func TestClearChatEmptyListMeansClearAll(t *testing.T) {
	srv, seen := newCaptureServer(t, http.StatusOK, `{}`)
	c := NewClient(srv.URL, time.Second)

	require.NoError(t, c.ClearChat(context.Background(), "tok", "ch1", nil))

	req := (*seen)[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/user/channels/ch1/clear-chat", req.Path)
	ids, ok := req.JSON["message_ids"].([]any)
	require.True(t, ok, "message_ids must be present even when empty")
	assert.Empty(t, ids)
}

func TestChangeOnlineStatus(t *testing.T) {
	srv, seen := newCaptureServer(t, http.StatusOK, `{}`)
	c := NewClient(srv.URL, time.Second)

	require.NoError(t, c.ChangeOnlineStatus(context.Background(), "tok", true))

	req := (*seen)[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/user/change-online-status", req.Path)
	assert.Equal(t, true, req.JSON["is_online"])
}

func TestMarkEndpointsHitTheRightPaths(t *testing.T) {
	srv, seen := newCaptureServer(t, http.StatusOK, `{}`)
	c := NewClient(srv.URL, time.Second)
	ctx := context.Background()

	require.NoError(t, c.MarkMessageDelivered(ctx, "tok", "ch1", "m1"))
	require.NoError(t, c.MarkMessageRead(ctx, "tok", "ch1", "m1"))
	require.NoError(t, c.MarkChannelDelivered(ctx, "tok", "ch1"))
	require.NoError(t, c.MarkChannelRead(ctx, "tok", "ch1"))

	paths := make([]string, 0, len(*seen))
	for _, r := range *seen {
		assert.Equal(t, http.MethodPut, r.Method)
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{
		"/user/channels/ch1/messages/m1/mark-delivered-at",
		"/user/channels/ch1/messages/m1/mark-as-read",
		"/user/channels/ch1/mark-delivered-at",
		"/user/channels/ch1/mark-as-read",
	}, paths)
}

func TestRemoteErrorCarriesBackendMessage(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusNotFound, `{"message":"Channel not found"}`)
	c := NewClient(srv.URL, time.Second)

	_, err := c.GetChannel(context.Background(), "tok", "nope")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindRemote))
	assert.Equal(t, "Channel not found", errs.UserMessage(err))
}

func TestRemoteErrorFallsBackToStatusText(t *testing.T) {
	srv, _ := newCaptureServer(t, http.StatusBadGateway, `not json`)
	c := NewClient(srv.URL, time.Second)

	err := c.DeleteChannel(context.Background(), "tok", "ch1")
	require.Error(t, err)
	assert.Equal(t, "Bad Gateway", errs.UserMessage(err))
}
