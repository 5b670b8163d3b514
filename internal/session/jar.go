package session

import (
	"net/http"
	"strings"
)

// Cookie is one name=value pair as the portal sees it. Attributes such as
// Path or Expires are irrelevant once the cookie is echoed back.
type Cookie struct {
	Name  string
	Value string
}

// Jar is an ordered cookie set keyed by name
type Jar struct {
	cookies []Cookie
}

// Set stores a cookie. An existing cookie with the same name is dropped and
// the new one goes to the end; the other cookies keep their relative order.
func (j *Jar) Set(name, value string) {
	kept := j.cookies[:0:0]
	for _, c := range j.cookies {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	j.cookies = append(kept, Cookie{Name: name, Value: value})
}

// Merge applies Set-Cookie values from a response and returns how many cookies were merged
func (j *Jar) Merge(cookies []*http.Cookie) int {
	n := 0
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		j.Set(c.Name, c.Value)
		n++
	}
	return n
}

// Get returns the value of the named cookie
func (j Jar) Get(name string) (string, bool) {
	for _, c := range j.cookies {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// Len returns the number of cookies
func (j Jar) Len() int {
	return len(j.cookies)
}

// Cookies returns a copy of the cookies in jar order
func (j Jar) Cookies() []Cookie {
	out := make([]Cookie, len(j.cookies))
	copy(out, j.cookies)
	return out
}

// Clone returns an independent copy of the jar
func (j Jar) Clone() Jar {
	return Jar{cookies: j.Cookies()}
}

// Header renders the jar as a Cookie request header value
func (j Jar) Header() string {
	parts := make([]string, 0, len(j.cookies))
	for _, c := range j.cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
