package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/sync/semaphore"

	"github.com/edgard/file2link/internal/config"
	"github.com/edgard/file2link/internal/database"
	"github.com/edgard/file2link/internal/logger"
	"github.com/edgard/file2link/internal/metrics"
	"github.com/edgard/file2link/internal/transfer"
)

// apiCall is one request received by the fake Bot API.
type apiCall struct {
	Method string
	Params map[string]string
}

// fakeAPI records Bot API calls and answers them with canned results.
type fakeAPI struct {
	mu     sync.Mutex
	calls  []apiCall
	nextID int
	fail   map[string]bool
}

func newFakeAPI(t *testing.T) (*fakeAPI, *bot.Bot) {
	t.Helper()

	f := &fakeAPI{nextID: 100, fail: map[string]bool{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	b, err := bot.New("123:test-token", bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	if err != nil {
		t.Fatalf("bot.New() error = %v", err)
	}
	return f, b
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	method := path.Base(r.URL.Path)
	params := readParams(r)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Params: params})
	fail := f.fail[method]
	f.nextID++
	id := f.nextID
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: forced failure"}`)
		return
	}

	switch method {
	case "answerCallbackQuery":
		_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
	default:
		_, _ = fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":0,"chat":{"id":1,"type":"private"}}}`, id)
	}
}

func readParams(r *http.Request) map[string]string {
	out := map[string]string{}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(10 << 20); err == nil {
			for k, v := range r.MultipartForm.Value {
				if len(v) > 0 {
					out[k] = v[0]
				}
			}
		}
	case "application/json":
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err == nil {
			for k, v := range raw {
				var s string
				if json.Unmarshal(v, &s) == nil {
					out[k] = s
				} else {
					out[k] = string(v)
				}
			}
		}
	default:
		if err := r.ParseForm(); err == nil {
			for k, v := range r.Form {
				out[k] = v[0]
			}
		}
	}
	return out
}

func (f *fakeAPI) Calls() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

func (f *fakeAPI) Methods() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.Method)
	}
	return out
}

// Last returns the last call of method, failing the test when there is none.
func (f *fakeAPI) Last(t *testing.T, method string) apiCall {
	t.Helper()
	calls := f.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Method == method {
			return calls[i]
		}
	}
	t.Fatalf("no %s call recorded; got %v", method, f.Methods())
	return apiCall{}
}

func (f *fakeAPI) Count(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

type fakeStore struct {
	mu      sync.Mutex
	saved   []*database.Link
	saveErr error
}

func (s *fakeStore) Ping(context.Context) error { return nil }

func (s *fakeStore) SaveLink(_ context.Context, link *database.Link) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, link)
	return nil
}

func (s *fakeStore) GetLink(context.Context, string) (*database.Link, error) { return nil, nil }

func (s *fakeStore) DeleteExpiredLinks(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

func (s *fakeStore) CountLinks(context.Context) (int64, error) { return 0, nil }

func (s *fakeStore) RunSQLMaintenance(context.Context) error { return nil }

type fakeDownloader struct {
	content string
	err     error
	calls   int
	dest    string
}

func (d *fakeDownloader) Download(_ context.Context, _ string, dest string, onProgress transfer.ProgressFunc) (int64, error) {
	d.calls++
	d.dest = dest
	if d.err != nil {
		return 0, d.err
	}
	if err := os.WriteFile(dest, []byte(d.content), 0o600); err != nil {
		return 0, err
	}
	total := int64(len(d.content))
	if onProgress != nil {
		onProgress(total/2, total)
		onProgress(total, total)
	}
	return total, nil
}

type fakeUploader struct {
	url      string
	err      error
	calls    int
	sawFile  bool
	uploaded string
}

func (u *fakeUploader) Upload(_ context.Context, p string) (string, error) {
	u.calls++
	u.uploaded = p
	if _, err := os.Stat(p); err == nil {
		u.sawFile = true
	}
	if u.err != nil {
		return "", u.err
	}
	return u.url, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Telegram: config.TelegramConfig{
			ChannelUsername: "GBEXTREME",
			NotifyChannelID: -1001234,
		},
		HTTP: config.HTTPConfig{BaseURL: "https://files.example.com/"},
		Transfer: config.TransferConfig{
			DownloadsDir:     t.TempDir(),
			MaxFileSize:      20 << 20,
			MaxConcurrent:    2,
			ProgressInterval: 0,
		},
		Links:    config.LinksConfig{TTL: 24 * time.Hour},
		Messages: config.DefaultMessages,
	}
}

func testDeps(t *testing.T, store database.Store, dl Downloader, up Uploader) HandlerDeps {
	t.Helper()
	return HandlerDeps{
		Logger:     logger.Discard(),
		Config:     testConfig(t),
		Store:      store,
		Downloader: dl,
		Uploader:   up,
		Metrics:    metrics.New(),
		Transfers:  semaphore.NewWeighted(2),
		Active:     transfer.NewActiveFiles(),
	}
}

// blockingDownloader parks every download until release is closed and
// records how many ran at once.
type blockingDownloader struct {
	active  *transfer.ActiveFiles
	entered chan string
	release chan struct{}

	mu        sync.Mutex
	running   int
	peak      int
	calls     int
	untracked int
}

func (d *blockingDownloader) Download(ctx context.Context, _ string, dest string, _ transfer.ProgressFunc) (int64, error) {
	d.mu.Lock()
	d.calls++
	d.running++
	if d.running > d.peak {
		d.peak = d.running
	}
	if !d.active.Contains(dest) {
		d.untracked++
	}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running--
		d.mu.Unlock()
	}()

	d.entered <- dest
	select {
	case <-d.release:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	if err := os.WriteFile(dest, []byte("data"), 0o600); err != nil {
		return 0, err
	}
	return 4, nil
}

// syncUploader is a fakeUploader safe for concurrent handlers.
type syncUploader struct {
	calls atomic.Int32
}

func (u *syncUploader) Upload(context.Context, string) (string, error) {
	u.calls.Add(1)
	return "https://uploda.sh/f/ok", nil
}

func contains(t *testing.T, got, want string) {
	t.Helper()
	if !strings.Contains(got, want) {
		t.Errorf("text %q does not contain %q", got, want)
	}
}

var errBoom = errors.New("boom")
