package httpds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ubigeo/internal/datasource"
)

var _ datasource.Source = (*Source)(nil)

// newTestSource returns a Source for url that does not wait between attempts.
func newTestSource(t *testing.T, url string, retries int) *Source {
	t.Helper()

	s := New(Config{URL: url, MaxRetries: retries, Timeout: 2 * time.Second})
	s.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return s
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	s := New(Config{URL: "http://example.test/distritos.txt", MaxRetries: -1})
	if s.client.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", s.client.Timeout)
	}
	if s.maxRetries != 0 {
		t.Errorf("maxRetries = %d, want 0", s.maxRetries)
	}
	if s.initialBackoff != 200*time.Millisecond || s.maxBackoff != 5*time.Second {
		t.Errorf("backoff = %v..%v", s.initialBackoff, s.maxBackoff)
	}
	if s.Name() != "http://example.test/distritos.txt" {
		t.Errorf("Name() = %q", s.Name())
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		statuses []int
		retries  int
		wantErr  string
		wantHits int32
	}{
		{name: "ok first try", statuses: []int{200}, retries: 3, wantHits: 1},
		{name: "retry 5xx then ok", statuses: []int{503, 502, 200}, retries: 3, wantHits: 3},
		{name: "retry 429 then ok", statuses: []int{429, 200}, retries: 1, wantHits: 2},
		{name: "gives up after retries", statuses: []int{500, 500, 500}, retries: 2, wantErr: "retryable status 500", wantHits: 3},
		{name: "404 is final", statuses: []int{404, 200}, retries: 3, wantErr: "status 404", wantHits: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var hits int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&hits, 1)
				code := tt.statuses[min(int(n), len(tt.statuses))-1]
				w.WriteHeader(code)
				if code == http.StatusOK {
					io.WriteString(w, "ACO|CONCEPCION|JUNIN\n")
				}
			}))
			defer srv.Close()

			rc, err := newTestSource(t, srv.URL, tt.retries).Open(context.Background())
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
			} else {
				if err != nil {
					t.Fatalf("Open: %v", err)
				}
				body, _ := io.ReadAll(rc)
				rc.Close()
				if string(body) != "ACO|CONCEPCION|JUNIN\n" {
					t.Fatalf("body = %q", body)
				}
			}
			if got := atomic.LoadInt32(&hits); got != tt.wantHits {
				t.Fatalf("hits = %d, want %d", got, tt.wantHits)
			}
		})
	}
}

func TestOpen_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}).Open(context.Background()); err == nil {
		t.Fatal("Open with empty URL succeeded")
	}
}

func TestOpen_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestSource(t, "http://127.0.0.1:0/", 2).Open(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	initial, max := 100*time.Millisecond, time.Second
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{3, 800 * time.Millisecond},
		{4, time.Second},
		{70, time.Second},
	}
	for _, tt := range tests {
		if got := backoff(initial, tt.attempt, max); got != tt.want {
			t.Errorf("backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestSleepContext_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
