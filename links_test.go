package gopager

import (
	"crypto/tls"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_BuildLinks(t *testing.T) {
	rc := RequestContext{
		Scheme:   "https",
		Host:     "api.example.com",
		Path:     "/users",
		RawQuery: "sort=name&limit=5&page=9&limit=7&tag=a%20b",
	}

	links := BuildLinks(rc, 2, 2, 3)

	assert.Equal(t, "https://api.example.com/users?sort=name&limit=2&page=1&tag=a%20b", links.First)
	assert.Equal(t, "https://api.example.com/users?sort=name&limit=2&page=2&tag=a%20b", links.Current)
	assert.Equal(t, "https://api.example.com/users?sort=name&limit=2&page=3&tag=a%20b", links.Last)
	require.NotNil(t, links.Previous)
	assert.Equal(t, links.First, *links.Previous)
	require.NotNil(t, links.Next)
	assert.Equal(t, links.Last, *links.Next)
}

func Test_BuildLinks_Edges(t *testing.T) {
	rc := RequestContext{Scheme: "http", Host: "localhost:8080", Path: "/items"}

	single := BuildLinks(rc, 10, 1, 1)
	assert.Nil(t, single.Previous)
	assert.Nil(t, single.Next)
	assert.Equal(t, "http://localhost:8080/items?limit=10&page=1", single.First)
	assert.Equal(t, single.First, single.Last)

	beyond := BuildLinks(rc, 10, 5, 2)
	assert.Nil(t, beyond.Next)
	require.NotNil(t, beyond.Previous)
	assert.Equal(t, "http://localhost:8080/items?limit=10&page=4", *beyond.Previous)
}

func Test_BuildLinks_RoundTrip(t *testing.T) {
	rc := RequestContext{
		Scheme:   "https",
		Host:     "example.com",
		Path:     "/caf%C3%A9/a%2Fb",
		RawQuery: "q=john+doe&filter=%26x",
	}

	links := BuildLinks(rc, 20, 3, 4)

	for _, link := range []string{links.First, lo.FromPtr(links.Previous), links.Current, lo.FromPtr(links.Next), links.Last} {
		u, err := url.Parse(link)
		require.NoError(t, err)

		assert.Equal(t, rc.Path, u.EscapedPath())
		assert.Equal(t, "john doe", u.Query().Get("q"))
		assert.Equal(t, "&x", u.Query().Get("filter"))
		assert.Equal(t, "20", u.Query().Get("limit"))
		assert.Len(t, u.Query()["page"], 1)
	}
}

func Test_setQueryParam(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		want     string
	}{
		{"empty", "", "page=2"},
		{"append", "a=1", "a=1&page=2"},
		{"replace in place", "page=1&a=1", "page=2&a=1"},
		{"drop duplicates", "page=1&a=1&page=5", "page=2&a=1"},
		{"escaped name", "pa%67e=1", "page=2"},
		{"bare key", "page&a=1", "page=2&a=1"},
		{"similar names kept", "pages=1&mypage=3", "pages=1&mypage=3&page=2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, setQueryParam(tt.rawQuery, "page", "2"))
		})
	}
}

func Test_RequestContextFromHTTP(t *testing.T) {
	r := httptest.NewRequest("GET", "http://svc.local/users%20all?page=2", nil)
	rc := RequestContextFromHTTP(r)
	assert.Equal(t, RequestContext{Scheme: "http", Host: "svc.local", Path: "/users%20all", RawQuery: "page=2"}, rc)

	r.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https", RequestContextFromHTTP(r).Scheme)

	r.TLS = nil
	r.Header.Set("X-Forwarded-Proto", "https, http")
	assert.Equal(t, "https", RequestContextFromHTTP(r).Scheme)
}
