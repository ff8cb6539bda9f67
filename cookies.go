package httpharness

import (
	"net/http"
	"sync"
)

// cookieJar holds the cookies a harness replays on outgoing requests. It is
// keyed by cookie name: a later Set-Cookie for an existing name overwrites
// the earlier value, keeping the name's original position in replay order.
type cookieJar struct {
	lock    sync.Mutex
	cookies map[string]*http.Cookie
	names   []string
}

func newCookieJar() *cookieJar {
	return &cookieJar{cookies: make(map[string]*http.Cookie)}
}

func (j *cookieJar) set(c *http.Cookie) {
	j.lock.Lock()
	if _, seen := j.cookies[c.Name]; !seen {
		j.names = append(j.names, c.Name)
	}
	j.cookies[c.Name] = c
	j.lock.Unlock()
}

func (j *cookieJar) get(name string) *http.Cookie {
	j.lock.Lock()
	defer j.lock.Unlock()
	return j.cookies[name]
}

func (j *cookieJar) all() []*http.Cookie {
	j.lock.Lock()
	defer j.lock.Unlock()
	ret := make([]*http.Cookie, 0, len(j.names))
	for _, name := range j.names {
		ret = append(ret, j.cookies[name])
	}
	return ret
}

func (j *cookieJar) clear() {
	j.lock.Lock()
	j.cookies = make(map[string]*http.Cookie)
	j.names = nil
	j.lock.Unlock()
}
