package instagram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "reelscraper/pkg/errors"
	"reelscraper/pkg/logger"
)

func newTestClient(serverURL string) *Client {
	c := NewClient(5*time.Second, "test-agent", logger.NewNopLogger())
	c.SetBaseURL(serverURL)
	return c
}

func TestGetJSON_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantType   errs.ErrorType
	}{
		{"unauthorized", http.StatusUnauthorized, "{}", errs.ErrorTypeAuth},
		{"forbidden", http.StatusForbidden, "{}", errs.ErrorTypeAuth},
		{"not found", http.StatusNotFound, "{}", errs.ErrorTypeNotFound},
		{"rate limited", http.StatusTooManyRequests, "{}", errs.ErrorTypeRateLimit},
		{"server error", http.StatusInternalServerError, "{}", errs.ErrorTypeServerError},
		{"bad gateway", http.StatusBadGateway, "{}", errs.ErrorTypeServerError},
		{"teapot", http.StatusTeapot, "{}", errs.ErrorTypeUnknown},
		{"empty body", http.StatusOK, "", errs.ErrorTypeEmptyResponse},
		{"garbage body", http.StatusOK, "<html>blocked</html>", errs.ErrorTypeParsing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)

			var resp Response
			err := client.GetJSON(context.Background(), server.URL+"/whatever", &resp)
			require.Error(t, err)

			var apiErr *errs.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantType, apiErr.Type)
		})
	}
}

func TestGetJSON_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)

	var resp Response
	err := client.GetJSON(context.Background(), server.URL+"/whatever", &resp)
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeNetwork, apiErr.Type)
	assert.True(t, errs.IsRetryableErr(err))
}

func TestGetJSON_SendsHeaders(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.SetHeader("X-Custom", "1")

	var resp Response
	require.NoError(t, client.GetJSON(context.Background(), server.URL+"/", &resp))
	assert.Equal(t, "test-agent", gotAgent)
	assert.Equal(t, "ok", resp.Status)
}

func TestFetchUserProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ProfileEndpoint, r.URL.Path)
		assert.Equal(t, "testuser", r.URL.Query().Get("username"))
		w.Write([]byte(`{
			"data": {
				"user": {
					"id": "12345",
					"username": "testuser",
					"is_private": false
				}
			},
			"status": "ok"
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	resp, err := client.FetchUserProfile(context.Background(), "testuser")
	require.NoError(t, err)
	assert.Equal(t, "12345", resp.Data.User.ID)
	assert.Equal(t, "testuser", resp.Data.User.Username)
}

func TestFetchUserProfile_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {}, "status": "ok"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchUserProfile(context.Background(), "ghost")
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeNotFound, apiErr.Type)
	assert.False(t, errs.IsRetryableErr(err))
}

func TestFetchUserProfile_Private(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"data": {"user": {"id": "99", "username": "hidden", "is_private": true}},
			"status": "ok"
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchUserProfile(context.Background(), "hidden")
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypePrivate, apiErr.Type)
}

func TestFetchUserProfile_RequiresLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"requires_to_login": true, "data": {}, "status": "fail"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchUserProfile(context.Background(), "anyone")
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypePrivate, apiErr.Type)
}

func TestFetchUserReels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ReelsEndpoint, r.URL.Path)
		assert.Equal(t, ReelsQueryHash, r.URL.Query().Get("query_hash"))
		w.Write([]byte(`{
			"data": {
				"user": {
					"edge_felix_video_timeline": {
						"count": 1,
						"page_info": {"has_next_page": false, "end_cursor": ""},
						"edges": [{"node": {"id": "1", "shortcode": "ABC", "is_video": true}}]
					}
				}
			},
			"status": "ok"
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	resp, err := client.FetchUserReels(context.Background(), "12345", "")
	require.NoError(t, err)
	require.Len(t, resp.Data.User.EdgeReelsTimeline.Edges, 1)
	assert.Equal(t, "ABC", resp.Data.User.EdgeReelsTimeline.Edges[0].Node.Shortcode)
}

func TestFetchUserReels_MissingUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {}, "status": "ok"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.FetchUserReels(context.Background(), "12345", "")
	require.Error(t, err)

	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeEmptyResponse, apiErr.Type)
	assert.True(t, errs.IsRetryableErr(err))
}
