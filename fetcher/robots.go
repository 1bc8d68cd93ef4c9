package fetcher

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// ErrRobotsDisallowed is wrapped by a FetchError when robots.txt forbids the
// page for our user agent.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

type getFunc func(ctx context.Context, rawURL string) (*Response, error)

// RobotsPolicy answers whether a URL may be fetched, caching one robots.txt
// per scheme+host. An unreachable robots.txt allows everything.
type RobotsPolicy struct {
	agent string
	get   getFunc

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

func NewRobotsPolicy(agent string, get getFunc) *RobotsPolicy {
	return &RobotsPolicy{
		agent: agent,
		get:   get,
		cache: make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether rawURL may be fetched.
func (p *RobotsPolicy) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		// Let the fetch itself report the bad URL.
		return true
	}

	data := p.load(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true
	}

	return data.TestAgent(u.RequestURI(), p.agent)
}

func (p *RobotsPolicy) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	p.mu.Lock()
	data, ok := p.cache[origin]
	p.mu.Unlock()
	if ok {
		return data
	}

	resp, err := p.get(ctx, origin+"/robots.txt")
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) && fetchErr.StatusCode > 0 {
			// 4xx means "no rules", 5xx means "stay away".
			data, _ = robotstxt.FromStatusAndBytes(fetchErr.StatusCode, nil)
		}
	} else {
		data, err = robotstxt.FromStatusAndBytes(resp.StatusCode, resp.Body)
		if err != nil {
			data = nil
		}
	}

	p.mu.Lock()
	p.cache[origin] = data
	p.mu.Unlock()

	return data
}
