package healthprobe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func serve(t *testing.T, handler http.HandlerFunc) (int, HealthResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return w.Code, resp
}

func TestNew(t *testing.T) {
	hc := New()

	if time.Since(hc.startTime) > time.Second {
		t.Errorf("Start time is too old: %v", hc.startTime)
	}
	if hc.ready.Load() {
		t.Error("HealthChecker should not be ready by default")
	}
}

func TestHealth_AlwaysReturnsOK(t *testing.T) {
	hc := New()
	hc.AddCheck("store", func(context.Context) error { return errors.New("down") })

	for _, ready := range []bool{false, true} {
		hc.SetReady(ready)
		code, resp := serve(t, hc.Health())
		if code != http.StatusOK {
			t.Errorf("Health status = %d, want %d (ready=%v)", code, http.StatusOK, ready)
		}
		if resp.Status != "healthy" || resp.Uptime == "" {
			t.Errorf("unexpected health response %+v", resp)
		}
	}
}

func TestReady_StateChanges(t *testing.T) {
	hc := New()

	code, resp := serve(t, hc.Ready())
	if code != http.StatusServiceUnavailable || resp.Status != "not_ready" || resp.Message == "" {
		t.Errorf("initial ready = %d %+v", code, resp)
	}

	hc.SetReady(true)
	code, resp = serve(t, hc.Ready())
	if code != http.StatusOK || resp.Status != "ready" {
		t.Errorf("ready after SetReady(true) = %d %+v", code, resp)
	}

	hc.SetReady(false)
	code, _ = serve(t, hc.Ready())
	if code != http.StatusServiceUnavailable {
		t.Errorf("ready after SetReady(false) = %d, want %d", code, http.StatusServiceUnavailable)
	}
}

func TestReady_Checks(t *testing.T) {
	hc := New()
	hc.SetReady(true)

	storeErr := errors.New("connection refused")
	var failing bool
	hc.AddCheck("store", func(context.Context) error {
		if failing {
			return storeErr
		}
		return nil
	})
	hc.AddCheck("oracle", func(context.Context) error { return nil })

	code, resp := serve(t, hc.Ready())
	if code != http.StatusOK {
		t.Fatalf("status = %d, want %d", code, http.StatusOK)
	}
	if resp.Checks["store"] != "ok" || resp.Checks["oracle"] != "ok" {
		t.Errorf("checks = %v", resp.Checks)
	}

	failing = true
	code, resp = serve(t, hc.Ready())
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if resp.Checks["store"] != storeErr.Error() {
		t.Errorf("store check = %q", resp.Checks["store"])
	}
	if resp.Checks["oracle"] != "ok" {
		t.Errorf("oracle check = %q", resp.Checks["oracle"])
	}
}

func TestReady_CheckTimeout(t *testing.T) {
	hc := New()
	hc.checkTimeout = 10 * time.Millisecond
	hc.SetReady(true)
	hc.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	code, resp := serve(t, hc.Ready())
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", code, http.StatusServiceUnavailable)
	}
	if resp.Checks["slow"] == "" || resp.Checks["slow"] == "ok" {
		t.Errorf("slow check = %q", resp.Checks["slow"])
	}
}

func TestHealthChecker_ConcurrentAccess(t *testing.T) {
	hc := New()
	handler := hc.Ready()
	done := make(chan bool)

	go func() {
		for i := 0; i < 100; i++ {
			hc.SetReady(i%2 == 0)
			hc.AddCheck("store", func(context.Context) error { return nil })
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			req := httptest.NewRequest(http.MethodGet, "/ready", nil)
			handler(httptest.NewRecorder(), req)
		}
		done <- true
	}()

	<-done
	<-done
}
