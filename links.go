package gopager

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// RequestContext is the origin of a list request, used to build navigation
// links that point back at the same endpoint.
type RequestContext struct {
	Scheme string
	Host   string
	// Path is the escaped request path.
	Path string
	// RawQuery is the encoded query string without the leading '?'.
	RawQuery string
}

// RequestContextFromHTTP reads the request origin from r. The scheme honours
// X-Forwarded-Proto set by a terminating proxy.
func RequestContextFromHTTP(r *http.Request) RequestContext {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}

	return RequestContext{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     r.URL.EscapedPath(),
		RawQuery: r.URL.RawQuery,
	}
}

// PageLinks are absolute navigation links of a page. Next and Previous are nil
// when there is no such page.
type PageLinks struct {
	First    string  `json:"first"`
	Previous *string `json:"previous"`
	Current  string  `json:"current"`
	Next     *string `json:"next"`
	Last     string  `json:"last"`
}

// BuildLinks builds the links of page out of totalPages. Each link is the
// request URL with "limit" and "page" set, all other query parameters are kept
// verbatim and in order.
func BuildLinks(rc RequestContext, limit, page, totalPages int) PageLinks {
	links := PageLinks{
		First:   rc.pageURL(limit, FirstPage),
		Current: rc.pageURL(limit, page),
		Last:    rc.pageURL(limit, totalPages),
	}

	if page < totalPages {
		next := rc.pageURL(limit, page+1)
		links.Next = &next
	}

	if page > FirstPage {
		prev := rc.pageURL(limit, page-1)
		links.Previous = &prev
	}

	return links
}

func (rc RequestContext) pageURL(limit, page int) string {
	query := setQueryParam(rc.RawQuery, "limit", strconv.Itoa(limit))
	query = setQueryParam(query, "page", strconv.Itoa(page))

	u := url.URL{
		Scheme:   rc.Scheme,
		Host:     rc.Host,
		RawQuery: query,
	}

	path, err := url.PathUnescape(rc.Path)
	if err != nil {
		path = rc.Path
	}
	u.Path, u.RawPath = path, rc.Path

	return u.String()
}

// setQueryParam replaces the first occurrence of key in rawQuery with
// key=value and drops the later ones. The pair is appended when key is
// absent. Other segments are left untouched.
func setQueryParam(rawQuery, key, value string) string {
	pair := url.QueryEscape(key) + "=" + url.QueryEscape(value)
	if rawQuery == "" {
		return pair
	}

	segments := strings.Split(rawQuery, "&")
	ret := make([]string, 0, len(segments)+1)
	replaced := false

	for _, segment := range segments {
		if queryParamName(segment) != key {
			ret = append(ret, segment)
			continue
		}

		if !replaced {
			ret = append(ret, pair)
			replaced = true
		}
	}

	if !replaced {
		ret = append(ret, pair)
	}

	return strings.Join(ret, "&")
}

func queryParamName(segment string) string {
	name, _, _ := strings.Cut(segment, "=")
	if unescaped, err := url.QueryUnescape(name); err == nil {
		return unescaped
	}

	return name
}
