package cookies

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Jar holds the cookies extracted from one browser store and answers
// which of them apply to a request. Unlike net/http's jar it is
// read-only: responses never feed back into it.
type Jar struct {
	cookies []Cookie
}

// NewJar wraps extracted cookies. Insertion order is preserved and
// determines header order.
func NewJar(cookies []Cookie) *Jar {
	return &Jar{cookies: cookies}
}

// Len reports how many cookies the jar holds, applicable or not.
func (j *Jar) Len() int {
	return len(j.cookies)
}

// All returns every cookie in the jar in insertion order.
func (j *Jar) All() []Cookie {
	out := make([]Cookie, len(j.cookies))
	copy(out, j.cookies)
	return out
}

// Select returns the cookies applicable to target at the given time,
// in jar order. When several applicable cookies share a name, the one
// with the longest path wins; on equal path length an exact host match
// beats a domain suffix match.
func (j *Jar) Select(target *url.URL, now time.Time) []Cookie {
	host := strings.ToLower(target.Hostname())
	reqPath := target.EscapedPath()
	if reqPath == "" {
		reqPath = "/"
	}
	secureOK := target.Scheme == "https" || target.Scheme == "wss"

	type candidate struct {
		order int
		c     Cookie
	}
	best := make(map[string]candidate)
	var keys []string
	for i, c := range j.cookies {
		if c.Secure && !secureOK {
			continue
		}
		if !c.Session() && !c.Expires.After(now) {
			continue
		}
		if !domainMatch(host, c.Domain) {
			continue
		}
		if !pathMatch(reqPath, c.Path) {
			continue
		}
		cur, seen := best[c.Name]
		if !seen {
			best[c.Name] = candidate{order: i, c: c}
			keys = append(keys, c.Name)
			continue
		}
		if prefer(c, cur.c, host) {
			best[c.Name] = candidate{order: cur.order, c: c}
		}
	}

	sort.SliceStable(keys, func(a, b int) bool {
		return best[keys[a]].order < best[keys[b]].order
	})
	out := make([]Cookie, 0, len(keys))
	for _, k := range keys {
		out = append(out, best[k].c)
	}
	return out
}

// HeaderFor renders the applicable cookies as a Cookie header value,
// or "" when none apply.
func (j *Jar) HeaderFor(target *url.URL, now time.Time) string {
	selected := j.Select(target, now)
	if len(selected) == 0 {
		return ""
	}
	var b strings.Builder
	for i, c := range selected {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(c.Name)
		b.WriteByte('=')
		b.WriteString(c.Value)
	}
	return b.String()
}

// prefer reports whether next should replace cur as the surviving
// duplicate for a request to host.
func prefer(next, cur Cookie, host string) bool {
	np, cp := len(next.Path), len(cur.Path)
	if np != cp {
		return np > cp
	}
	return exactDomain(next, host) && !exactDomain(cur, host)
}

func exactDomain(c Cookie, host string) bool {
	return strings.TrimPrefix(strings.ToLower(c.Domain), ".") == host
}

// domainMatch reports whether a cookie scoped to domain applies to
// host. A leading dot and a bare domain behave identically. Suffix
// matches stop at public suffixes: a cookie scoped to "co.uk" only
// applies to the host "co.uk" itself.
func domainMatch(host, domain string) bool {
	d := strings.TrimPrefix(strings.ToLower(domain), ".")
	if d == "" {
		return false
	}
	if host == d {
		return true
	}
	if !strings.HasSuffix(host, "."+d) {
		return false
	}
	if suffix, icann := publicsuffix.PublicSuffix(host); icann && len(d) <= len(suffix) {
		return false
	}
	return true
}

// pathMatch implements RFC 6265 section 5.1.4 path matching.
func pathMatch(reqPath, cookiePath string) bool {
	if cookiePath == "" {
		cookiePath = "/"
	}
	if reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	if strings.HasSuffix(cookiePath, "/") {
		return true
	}
	return reqPath[len(cookiePath)] == '/'
}

// HostChanged reports whether two request URLs address different hosts.
// Redirect handling uses it to decide when credentials must not be
// forwarded.
func HostChanged(original, current *url.URL) bool {
	return !strings.EqualFold(original.Hostname(), current.Hostname())
}
