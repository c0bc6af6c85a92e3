package hostapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func httpRequestFunc(t *testing.T, opts Options) func(string, string, string, string) (string, error) {
	t.Helper()
	rt := newCaptureRuntime()
	opts.fill()
	if err := setupHTTP(rt, &opts); err != nil {
		t.Fatal(err)
	}
	return hostFunc[func(string, string, string, string) (string, error)](t, rt, "__http_request")
}

func TestHTTPRequest_GET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Source", "gantry-test")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))
	defer srv.Close()

	doRequest := httpRequestFunc(t, Options{})
	raw, err := doRequest("GET", srv.URL, "{}", "")
	if err != nil {
		t.Fatal(err)
	}

	var resp httpResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != http.StatusTeapot {
		t.Errorf("status = %d", resp.Status)
	}
	if resp.Body != "short and stout" {
		t.Errorf("body = %q", resp.Body)
	}
	// Response header names come back lowercased.
	if resp.Headers["x-source"] != "gantry-test" {
		t.Errorf("headers = %v", resp.Headers)
	}
}

func TestHTTPRequest_PostBodyAndHeaders(t *testing.T) {
	var gotBody, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
		gotHeader = r.Header.Get("X-Pipeline")
	}))
	defer srv.Close()

	doRequest := httpRequestFunc(t, Options{})
	if _, err := doRequest("POST", srv.URL, `{"X-Pipeline":"etl-7"}`, "payload"); err != nil {
		t.Fatal(err)
	}
	if gotBody != "payload" {
		t.Errorf("server saw body %q", gotBody)
	}
	if gotHeader != "etl-7" {
		t.Errorf("server saw X-Pipeline %q", gotHeader)
	}
}

func TestHTTPRequest_ForbiddenHeadersDropped(t *testing.T) {
	var gotConn string
	var sawSafe bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotConn = r.Header.Get("X-Forwarded-For")
		sawSafe = r.Header.Get("Accept") == "application/json"
	}))
	defer srv.Close()

	doRequest := httpRequestFunc(t, Options{})
	headers := `{"X-Forwarded-For":"1.2.3.4","Accept":"application/json"}`
	if _, err := doRequest("GET", srv.URL, headers, ""); err != nil {
		t.Fatal(err)
	}
	if gotConn != "" {
		t.Errorf("forbidden header reached the server: %q", gotConn)
	}
	if !sawSafe {
		t.Error("allowed header was dropped too")
	}
}

func TestHTTPRequest_ResponseCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	doRequest := httpRequestFunc(t, Options{MaxResponseBytes: 10})
	if _, err := doRequest("GET", srv.URL, "{}", ""); err == nil {
		t.Fatal("expected error for oversized response body")
	}
}

func TestHTTPRequest_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	doRequest := httpRequestFunc(t, Options{HTTPTimeout: 20 * time.Millisecond})
	if _, err := doRequest("GET", srv.URL, "{}", ""); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestHTTPRequest_BadHeaderJSON(t *testing.T) {
	doRequest := httpRequestFunc(t, Options{})
	if _, err := doRequest("GET", "http://localhost:0", "{not json", ""); err == nil {
		t.Fatal("expected error for malformed header JSON")
	}
}
