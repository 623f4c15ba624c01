package figma

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFetchComments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "GET /v1/files/abc123/comments", r.Method+" "+r.URL.Path)
		require.Equal(t, "reader-token", r.Header.Get("X-Figma-Token"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"comments": [
			{"id": "10", "message": "hey @canvasreview", "user": {"id": "u1", "handle": "sam"}},
			{"id": "11", "message": "reply", "parent_id": "10", "user": {"id": "bot"}}
		]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "reader-token")
	comments, err := client.FetchComments(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "10", comments[0].ID)
	require.Equal(t, "u1", comments[0].Author.ID)
	require.Equal(t, "10", comments[1].ParentID)
}

func TestPostReplyThreadsUnderComment(t *testing.T) {
	var captured map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST /v1/files/abc123/comments", r.Method+" "+r.URL.Path)
		require.Equal(t, "bot-token", r.Header.Get("X-Figma-Token"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id": "12", "message": "my feedback", "parent_id": "10"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bot-token")
	reply, err := client.PostReply(context.Background(), "abc123", "10", "my feedback")
	require.NoError(t, err)

	require.Equal(t, "my feedback", captured["message"])
	require.Equal(t, "10", captured["comment_id"])
	require.Equal(t, "12", reply.ID)
}

func TestFetchNode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/files/abc123/nodes", r.URL.Path)
		require.Equal(t, "1:2", r.URL.Query().Get("ids"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"nodes": {"1:2": {"document": {
			"id": "1:2", "type": "FRAME", "name": "Card",
			"absoluteBoundingBox": {"x": 0, "y": 0, "width": 400, "height": 300}
		}}}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "reader-token")
	node, err := client.FetchNode(context.Background(), "abc123", "1:2")
	require.NoError(t, err)
	require.Equal(t, "FRAME", node.Type)
	require.Equal(t, "Card", node.Name)
	require.NotNil(t, node.AbsoluteBoundingBox)
	require.Equal(t, float64(400), node.AbsoluteBoundingBox.Width)
}

func TestFetchNodeMissingFromResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"nodes": {}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "reader-token")
	_, err := client.FetchNode(context.Background(), "abc123", "9:9")
	require.ErrorContains(t, err, "not found")
}

func TestRenderImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/images/abc123", r.URL.Path)
		require.Equal(t, "1:2", r.URL.Query().Get("ids"))
		require.Equal(t, "0.5", r.URL.Query().Get("scale"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"err": "", "images": {"1:2": "https://renders.example.com/x.png"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "reader-token")
	url, err := client.RenderImage(context.Background(), "abc123", "1:2", 0.5)
	require.NoError(t, err)
	require.Equal(t, "https://renders.example.com/x.png", url)
}

func TestRenderImageAPILevelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"err": "render queue full", "images": {}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "reader-token")
	_, err := client.RenderImage(context.Background(), "abc123", "1:2", 1)
	require.ErrorContains(t, err, "render queue full")
}

func TestDownloadImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Render locators are pre-signed; no credential must leak here.
		require.Empty(t, r.Header.Get("X-Figma-Token"))
		w.Write([]byte("binary-image-data"))
	}))
	defer server.Close()

	client := NewClient("", "reader-token")
	data, err := client.DownloadImage(context.Background(), server.URL+"/render.png")
	require.NoError(t, err)
	require.Equal(t, []byte("binary-image-data"), data)
}

func TestFetchCommentsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"err": "invalid token"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-token")
	_, err := client.FetchComments(context.Background(), "abc123")
	require.ErrorContains(t, err, "status 403")
}
