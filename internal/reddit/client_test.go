package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/demandradar/demand-radar/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("id", "secret", "demand-radar-test/1.0", cache.NewMemoryCache())
	client.SetBaseURLs(server.URL+"/api/v1/access_token", server.URL, server.URL+"/api/search_reddit_names.json")
	return client, server
}

func authHandler(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, `{"access_token":"tok-1","token_type":"bearer","expires_in":3600}`)
}

func TestClient_ListNewPosts(t *testing.T) {
	var authCalls, listCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		authCalls++
		authHandler(w, r)
	})
	mux.HandleFunc("/r/startups/new.json", func(w http.ResponseWriter, r *http.Request) {
		listCalls++
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":{"children":[
			{"kind":"t3","data":{"id":"p1","title":"Building a SaaS","selftext":"pricing advice","author":"founder","subreddit":"startups","url":"https://example.com/p1","created_utc":1700000000,"score":42,"num_comments":7}},
			{"kind":"t3","data":{"id":"p2","title":"Weekly thread","selftext":"","author":"AutoModerator","distinguished":"moderator","subreddit":"startups","created_utc":1700000100,"score":1,"num_comments":0}}
		]}}`)
	})

	client, _ := newTestClient(t, mux)

	posts, err := client.ListNewPosts(context.Background(), "startups", 100)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "p1", posts[0].ID)
	assert.Equal(t, "Building a SaaS", posts[0].Title)
	assert.Equal(t, "pricing advice", posts[0].Body)
	assert.Equal(t, "https://example.com/p1", posts[0].URL)
	assert.Equal(t, 42, posts[0].Score)
	assert.Equal(t, 7, posts[0].NumComments)
	assert.Equal(t, "moderator", posts[1].Distinguished)

	// Second call should reuse the cached token
	_, err = client.ListNewPosts(context.Background(), "startups", 100)
	require.NoError(t, err)
	assert.Equal(t, 1, authCalls)
	assert.Equal(t, 2, listCalls)
}

func TestClient_ListNewPostsUpstreamError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", authHandler)
	mux.HandleFunc("/r/startups/new.json", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client, _ := newTestClient(t, mux)

	_, err := client.ListNewPosts(context.Background(), "startups", 100)
	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusServiceUnavailable, upstreamErr.Status)
}

func TestClient_ListComments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", authHandler)
	mux.HandleFunc("/comments/p1.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[
			{"data":{"children":[{"kind":"t3","data":{"id":"p1","title":"post"}}]}},
			{"data":{"children":[
				{"kind":"t1","data":{"id":"c1","body":"I would buy this","author":"alice","created_utc":1700000200,"score":5}},
				{"kind":"more","data":{"id":"m1"}},
				{"kind":"t1","data":{"id":"c2","body":"not for me","author":"bob","created_utc":1700000300,"score":1}}
			]}}
		]`)
	})

	client, _ := newTestClient(t, mux)

	comments, err := client.ListComments(context.Background(), "p1", 100)
	require.NoError(t, err)
	require.Len(t, comments, 2, "only t1 children are comments")
	assert.Equal(t, "c1", comments[0].ID)
	assert.Equal(t, "I would buy this", comments[0].Body)
	assert.Equal(t, "bob", comments[1].Author)
}

func TestClient_SearchSubreddits(t *testing.T) {
	var searchCalls int

	mux := http.NewServeMux()
	mux.HandleFunc("/api/search_reddit_names.json", func(w http.ResponseWriter, r *http.Request) {
		searchCalls++
		assert.Equal(t, "startups", r.URL.Query().Get("query"))
		fmt.Fprint(w, `{"names":["startups","startup_ideas"]}`)
	})

	client, _ := newTestClient(t, mux)

	names, err := client.SearchSubreddits(context.Background(), "r/Startups")
	require.NoError(t, err)
	assert.Equal(t, []string{"startups", "startup_ideas"}, names)

	// Cached on repeat
	names, err = client.SearchSubreddits(context.Background(), "startups")
	require.NoError(t, err)
	assert.Equal(t, []string{"startups", "startup_ideas"}, names)
	assert.Equal(t, 1, searchCalls)

	// Too-short queries short-circuit
	names, err = client.SearchSubreddits(context.Background(), "a")
	require.NoError(t, err)
	assert.Empty(t, names)
}
