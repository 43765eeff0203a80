package probe

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultTimeout bounds a probe when the caller passes a non-positive timeout.
const DefaultTimeout = time.Second

// Prober performs one liveness check. Implementations return false on any failure.
type Prober interface {
	Check(ctx context.Context) bool
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context) bool

// Check calls f(ctx).
func (f ProberFunc) Check(ctx context.Context) bool {
	return f(ctx)
}

// Probe runs p under a hard deadline. A probe still pending when the deadline
// passes is abandoned and reported as unreachable.
func Probe(ctx context.Context, p Prober, timeout time.Duration) bool {
	if p == nil {
		return false
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := make(chan bool, 1)
	go func() {
		result <- p.Check(checkCtx)
	}()

	select {
	case ok := <-result:
		return ok && checkCtx.Err() == nil
	case <-checkCtx.Done():
		return false
	}
}

// NewClient builds the HTTP client shared by the probes. Keep-alives are off so
// every probe dials fresh: a pooled connection from before a Wi-Fi switch would
// otherwise report the old network.
func NewClient() *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: 5 * time.Second,
		}).DialContext,
		DisableKeepAlives:     true,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: transport}
}

// EchoProber requests a no-content echo endpoint. Only 204 counts as reachable.
type EchoProber struct {
	URL    string
	Client *http.Client
}

// NewEchoProber creates an echo endpoint probe for rawURL.
func NewEchoProber(rawURL string, client *http.Client) *EchoProber {
	return &EchoProber{URL: rawURL, Client: client}
}

// Check reports whether the echo endpoint answered 204 No Content.
func (p *EchoProber) Check(ctx context.Context) bool {
	resp, err := get(ctx, p.Client, p.URL)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusNoContent
}

// ResourceProber loads a small static resource from the camera's local address.
// It is reachable iff the resource loads completely before the deadline.
type ResourceProber struct {
	URL    string
	Client *http.Client
}

// NewResourceProber creates a local resource probe for rawURL.
func NewResourceProber(rawURL string, client *http.Client) *ResourceProber {
	return &ResourceProber{URL: rawURL, Client: client}
}

// Check reports whether the resource was served with a 2xx status and fully read.
func (p *ResourceProber) Check(ctx context.Context) bool {
	resp, err := get(ctx, p.Client, p.URL)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return false
	}
	return true
}

func get(ctx context.Context, client *http.Client, rawURL string) (*http.Response, error) {
	target, err := cacheBust(rawURL, time.Now())
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-cache")
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

// cacheBust appends a t=<unix nanos> query parameter so intermediaries never
// answer from cache.
func cacheBust(rawURL string, now time.Time) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("t", strconv.FormatInt(now.UnixNano(), 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
