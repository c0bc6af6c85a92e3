package hostapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gantrydata/gantry/internal/core"
)

// forbiddenHTTPHeaders is the blocklist of headers guest scripts cannot set.
var forbiddenHTTPHeaders = map[string]bool{
	"host":                true,
	"transfer-encoding":   true,
	"connection":          true,
	"keep-alive":          true,
	"upgrade":             true,
	"proxy-authorization": true,
	"proxy-connection":    true,
	"te":                  true,
	"trailer":             true,
	"x-forwarded-for":     true,
	"x-forwarded-host":    true,
	"x-forwarded-proto":   true,
	"x-real-ip":           true,
}

// httpResponse is the JSON shape handed back to the guest.
type httpResponse struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

// httpJS exposes the synchronous guest http module.
const httpJS = `
__registerBuiltin('http', function() {
	function doRequest(method, url, headers, body) {
		var raw = __http_request(method, url, JSON.stringify(headers || {}), body == null ? '' : String(body));
		return JSON.parse(raw);
	}
	return {
		get: function(url, headers) { return doRequest('GET', url, headers, ''); },
		post: function(url, body, headers) { return doRequest('POST', url, headers, body); },
		request: doRequest
	};
});
`

// setupHTTP registers the blocking HTTP client backing require('http').
// Requests are bounded by the configured timeout and response cap; there is
// no event loop here, a guest request is one synchronous host call.
func setupHTTP(rt core.ScriptRuntime, opts *Options) error {
	client := &http.Client{Timeout: opts.HTTPTimeout}
	maxBytes := opts.MaxResponseBytes

	if err := rt.RegisterFunc("__http_request", func(method, url, headersJSON, body string) (string, error) {
		var headers map[string]string
		if headersJSON != "" {
			if err := json.Unmarshal([]byte(headersJSON), &headers); err != nil {
				return "", fmt.Errorf("decoding headers: %w", err)
			}
		}

		var reqBody io.Reader
		if body != "" {
			reqBody = strings.NewReader(body)
		}
		req, err := http.NewRequest(method, url, reqBody)
		if err != nil {
			return "", fmt.Errorf("building request: %w", err)
		}
		for name, value := range headers {
			if forbiddenHTTPHeaders[strings.ToLower(name)] {
				continue
			}
			req.Header.Set(name, value)
		}

		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("%s %s: %w", method, url, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBytes)+1))
		if err != nil {
			return "", fmt.Errorf("reading response body: %w", err)
		}
		if len(data) > maxBytes {
			return "", fmt.Errorf("response body exceeds %d bytes", maxBytes)
		}

		respHeaders := make(map[string]string, len(resp.Header))
		for name := range resp.Header {
			respHeaders[strings.ToLower(name)] = resp.Header.Get(name)
		}

		out, err := json.Marshal(httpResponse{
			Status:  resp.StatusCode,
			Headers: respHeaders,
			Body:    string(data),
		})
		if err != nil {
			return "", fmt.Errorf("encoding response: %w", err)
		}
		return string(out), nil
	}); err != nil {
		return err
	}

	return rt.Eval(httpJS)
}
