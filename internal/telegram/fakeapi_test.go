package telegram_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/petasbytes/snapbooks/internal/telegram"
)

const testToken = "123:secret"

type apiCall struct {
	Method      string
	ContentType string
	Body        []byte
}

// fakeAPI is a minimal Bot API: it records every call and serves one photo.
type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall
	photo []byte
	fail  map[string]string // method -> description
	srv   *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{photo: []byte("\xff\xd8jpeg"), fail: map[string]string{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/file/bot"+testToken+"/") {
		w.Write(f.photo)
		return
	}
	method, ok := strings.CutPrefix(r.URL.Path, "/bot"+testToken+"/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, ContentType: r.Header.Get("Content-Type"), Body: body})
	desc, failing := f.fail[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case failing:
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"ok":false,"error_code":400,"description":"`+desc+`"}`)
	case method == "getFile":
		io.WriteString(w, `{"ok":true,"result":{"file_id":"`+r.URL.Query().Get("file_id")+`","file_path":"photos/file_7.jpg"}}`)
	default:
		io.WriteString(w, `{"ok":true,"result":true}`)
	}
}

func (f *fakeAPI) client() *telegram.Client {
	return telegram.NewClient(telegram.ClientConfig{Token: testToken, APIBase: f.srv.URL, SendRate: -1})
}

func (f *fakeAPI) Calls(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}
