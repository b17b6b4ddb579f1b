package provider_test

import (
	"bytes"
	"io"
	"net/http"
	"sync"
)

// fakeTransport answers every request with a canned response and keeps
// the request bodies it saw.
type fakeTransport struct {
	mu         sync.Mutex
	respStatus int
	respBody   []byte
	bodies     [][]byte
	urls       []string
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var b []byte
	if req.Body != nil {
		b, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	f.mu.Lock()
	f.bodies = append(f.bodies, b)
	f.urls = append(f.urls, req.URL.String())
	f.mu.Unlock()

	resp := &http.Response{
		StatusCode: f.respStatus,
		Body:       io.NopCloser(bytes.NewReader(f.respBody)),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func (f *fakeTransport) lastBody() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bodies) == 0 {
		return nil
	}
	return f.bodies[len(f.bodies)-1]
}
