package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

// TestEchoProberRequiresNoContent verifies only 204 counts as reachable.
func TestEchoProberRequiresNoContent(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   bool
	}{
		{name: "no content", status: http.StatusNoContent, want: true},
		{name: "ok", status: http.StatusOK, want: false},
		{name: "captive redirect", status: http.StatusFound, want: false},
		{name: "server error", status: http.StatusInternalServerError, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.status == http.StatusFound {
					w.Header().Set("Location", "/portal")
				}
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			client := srv.Client()
			client.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
			got := Probe(context.Background(), NewEchoProber(srv.URL+"/api/ping", client), time.Second)
			if got != tc.want {
				t.Fatalf("Probe() = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestEchoProberAddsCacheBuster checks the t query parameter is present.
func TestEchoProberAddsCacheBuster(t *testing.T) {
	seen := make(chan url.Values, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.URL.Query()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if !Probe(context.Background(), NewEchoProber(srv.URL+"/api/ping?x=1", srv.Client()), time.Second) {
		t.Fatal("expected reachable")
	}
	q := <-seen
	if q.Get("t") == "" {
		t.Fatalf("missing cache buster in %v", q)
	}
	if q.Get("x") != "1" {
		t.Fatalf("existing query lost: %v", q)
	}
}

// TestProbeTimeoutMapsToUnreachable ensures a hung endpoint is abandoned at the deadline.
func TestProbeTimeoutMapsToUnreachable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	defer close(release)

	started := time.Now()
	got := Probe(context.Background(), NewEchoProber(srv.URL, srv.Client()), 50*time.Millisecond)
	if got {
		t.Fatal("expected unreachable on timeout")
	}
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Fatalf("probe took %v, want bounded by timeout", elapsed)
	}
}

// TestProbeIgnoresUncooperativeChecker verifies the bound holds even if Check ignores ctx.
func TestProbeIgnoresUncooperativeChecker(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	p := ProberFunc(func(context.Context) bool {
		<-block
		return true
	})

	if Probe(context.Background(), p, 20*time.Millisecond) {
		t.Fatal("expected unreachable")
	}
}

// TestResourceProber covers the camera-local resource strategy.
func TestResourceProber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/probe.jpg" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xd9})
	}))
	defer srv.Close()

	if !Probe(context.Background(), NewResourceProber(srv.URL+"/probe.jpg", srv.Client()), time.Second) {
		t.Fatal("expected resource to load")
	}
	if Probe(context.Background(), NewResourceProber(srv.URL+"/missing.jpg", srv.Client()), time.Second) {
		t.Fatal("expected missing resource to be unreachable")
	}
}

// TestProbeTransportError maps dial failures to false.
func TestProbeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	if Probe(context.Background(), NewEchoProber(addr, nil), 200*time.Millisecond) {
		t.Fatal("expected unreachable for closed server")
	}
	if Probe(context.Background(), NewEchoProber("://bad url", nil), 200*time.Millisecond) {
		t.Fatal("expected unreachable for malformed url")
	}
	if Probe(context.Background(), nil, time.Second) {
		t.Fatal("expected unreachable for nil prober")
	}
}
