package handlers

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/semaphore"

	"github.com/edgard/file2link/internal/uploader"
)

func mediaUpdate(msgID int, from *models.User) *models.Update {
	return &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:   msgID,
			From: from,
			Chat: models.Chat{ID: 555, Type: "private"},
			Document: &models.Document{
				FileID:   "doc-file-id",
				FileName: "Quarterly <Report>.pdf",
				FileSize: 2 * 1024 * 1024,
			},
		},
	}
}

var testUser = &models.User{ID: 42, FirstName: "Ann", LastName: "Lee", Username: "ann"}

func TestStartHandler(t *testing.T) {
	t.Parallel()

	api, b := newFakeAPI(t)
	deps := testDeps(t, &fakeStore{}, nil, nil)

	NewStartHandler(deps)(t.Context(), b, &models.Update{
		Message: &models.Message{
			ID:   1,
			From: &models.User{ID: 42, FirstName: "<Ann>"},
			Chat: models.Chat{ID: 555},
			Text: "/start",
		},
	})

	call := api.Last(t, "sendMessage")
	contains(t, call.Params["text"], "Welcome &lt;Ann&gt;!")
	contains(t, call.Params["text"], "@GBEXTREME")
	if call.Params["parse_mode"] != string(models.ParseModeHTML) {
		t.Errorf("parse_mode = %q", call.Params["parse_mode"])
	}

	markup := call.Params["reply_markup"]
	contains(t, markup, "https://t.me/GBEXTREME")
	contains(t, markup, JoinedCallbackData)
	if strings.Index(markup, "https://t.me/") > strings.Index(markup, JoinedCallbackData) {
		t.Error("join link should be on the first row")
	}
}

func TestHelpHandler(t *testing.T) {
	t.Parallel()

	api, b := newFakeAPI(t)
	NewHelpHandler(testDeps(t, &fakeStore{}, nil, nil))(t.Context(), b, &models.Update{
		Message: &models.Message{ID: 1, From: testUser, Chat: models.Chat{ID: 555}, Text: "/help"},
	})

	contains(t, api.Last(t, "sendMessage").Params["text"], "20 MiB")
}

func TestJoinedHandler(t *testing.T) {
	t.Parallel()

	api, b := newFakeAPI(t)
	NewJoinedHandler(testDeps(t, &fakeStore{}, nil, nil))(t.Context(), b, &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb-1",
			From: *testUser,
			Data: JoinedCallbackData,
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{ID: 9, Chat: models.Chat{ID: 555}},
			},
		},
	})

	want := []string{"editMessageReplyMarkup", "sendMessage", "answerCallbackQuery"}
	if diff := cmp.Diff(want, api.Methods()); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	if got := api.Last(t, "editMessageReplyMarkup").Params["message_id"]; got != "9" {
		t.Errorf("edited message_id = %q, want 9", got)
	}
	contains(t, api.Last(t, "sendMessage").Params["text"], "send me any file")

	answer := api.Last(t, "answerCallbackQuery")
	if answer.Params["text"] != "You may now send files." {
		t.Errorf("answer text = %q", answer.Params["text"])
	}
	if answer.Params["show_alert"] == "true" {
		t.Error("answer should not be an alert")
	}
}

func TestJoinedHandler_InaccessibleMessage(t *testing.T) {
	t.Parallel()

	api, b := newFakeAPI(t)
	NewJoinedHandler(testDeps(t, &fakeStore{}, nil, nil))(t.Context(), b, &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb-2",
			From: *testUser,
			Message: models.MaybeInaccessibleMessage{
				InaccessibleMessage: &models.InaccessibleMessage{Chat: models.Chat{ID: 777}, MessageID: 3},
			},
		},
	})

	if api.Count("editMessageReplyMarkup") != 0 {
		t.Error("keyboard of an inaccessible message should not be edited")
	}
	if got := api.Last(t, "sendMessage").Params["chat_id"]; got != "777" {
		t.Errorf("chat_id = %q, want 777", got)
	}
}

func TestAllowedUsersOnly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		allowed  []int64
		wantNext bool
	}{
		{"empty list allows all", nil, true},
		{"listed user", []int64{42}, true},
		{"unlisted user", []int64{7}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api, b := newFakeAPI(t)
			deps := testDeps(t, &fakeStore{}, nil, nil)
			deps.Config.Telegram.AllowedUserIDs = tt.allowed

			called := false
			h := AllowedUsersOnly(deps)(func(_ context.Context, _ *bot.Bot, _ *models.Update) { called = true })
			h(t.Context(), b, mediaUpdate(5, testUser))

			if called != tt.wantNext {
				t.Errorf("next called = %v, want %v", called, tt.wantNext)
			}
			if !tt.wantNext {
				contains(t, api.Last(t, "sendMessage").Params["text"], "Join @GBEXTREME")
			} else if api.Count("sendMessage") != 0 {
				t.Error("allowed user should not get a notice")
			}
		})
	}
}

func TestMediaHandler_Success(t *testing.T) {
	t.Parallel()

	api, b := newFakeAPI(t)
	store := &fakeStore{}
	dl := &fakeDownloader{content: "pdf bytes"}
	up := &fakeUploader{url: "https://uploda.sh/f/xyz?a=1&b=2"}
	deps := testDeps(t, store, dl, up)

	NewMediaHandler(deps)(t.Context(), b, mediaUpdate(5, testUser))

	if !strings.HasSuffix(dl.dest, "5_Quarterly Report.pdf") {
		t.Errorf("download path = %q", dl.dest)
	}
	if !up.sawFile {
		t.Error("uploader did not see the downloaded file")
	}
	if _, err := os.Stat(dl.dest); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("local file should be removed, stat error = %v", err)
	}

	if len(store.saved) != 1 {
		t.Fatalf("saved links = %d, want 1", len(store.saved))
	}
	link := store.saved[0]
	if link.FilePath != up.url || link.UserID != 42 || link.FileID != "doc-file-id" || link.FileSize != 2*1024*1024 {
		t.Errorf("saved link = %+v", link)
	}
	if link.Token == "" {
		t.Error("link token is empty")
	}

	first := api.Calls()[0]
	if first.Method != "sendMessage" || first.Params["text"] != "⏳ Preparing..." {
		t.Errorf("first call = %+v", first)
	}
	if first.Params["reply_parameters"] == "" {
		t.Error("progress message should reply to the media message")
	}

	var sawProgress, sawUploading bool
	for _, c := range api.Calls() {
		if c.Method != "editMessageText" {
			continue
		}
		sawProgress = sawProgress || strings.HasPrefix(c.Params["text"], "⏬ Downloading...")
		sawUploading = sawUploading || c.Params["text"] == "📤 Uploading to Uploda.sh..."
	}
	if !sawProgress || !sawUploading {
		t.Errorf("progress=%v uploading=%v in %v", sawProgress, sawUploading, api.Methods())
	}

	final := api.Last(t, "editMessageText")
	text := final.Params["text"]
	contains(t, text, "✅ <b>Upload Completed!</b>")
	contains(t, text, "<code>Quarterly Report.pdf</code>")
	contains(t, text, "2.00 MB")
	contains(t, text, "https://uploda.sh/f/xyz?a=1&amp;b=2")
	contains(t, text, "https://files.example.com/l/"+link.Token)
	if final.Params["parse_mode"] != string(models.ParseModeHTML) {
		t.Errorf("final parse_mode = %q", final.Params["parse_mode"])
	}
	contains(t, final.Params["link_preview_options"], `"is_disabled":true`)

	notify := api.Last(t, "sendMessage")
	if notify.Params["chat_id"] != "-1001234" {
		t.Errorf("notify chat_id = %q", notify.Params["chat_id"])
	}
	contains(t, notify.Params["text"], "Ann Lee (@ann)")
	contains(t, notify.Params["text"], "<code>42</code>")
}

func TestMediaHandler_WaitingForSlotHonoursCancel(t *testing.T) {
	t.Parallel()

	api, b := newFakeAPI(t)
	dl := &fakeDownloader{content: "x"}
	deps := testDeps(t, &fakeStore{}, dl, &fakeUploader{})
	deps.Transfers = semaphore.NewWeighted(1)
	if err := deps.Transfers.Acquire(t.Context(), 1); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer deps.Transfers.Release(1)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewMediaHandler(deps)(ctx, b, mediaUpdate(5, testUser))
	}()

	select {
	case <-done:
		t.Fatal("handler returned while every transfer slot was taken")
	case <-time.After(50 * time.Millisecond):
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after cancellation")
	}
	if dl.calls != 0 {
		t.Errorf("download calls = %d, want 0", dl.calls)
	}
	if len(api.Calls()) != 0 {
		t.Errorf("Bot API calls = %v, want none", api.Methods())
	}
}

func TestMediaHandler_ConcurrencyLimit(t *testing.T) {
	t.Parallel()

	const messages = 5
	api, b := newFakeAPI(t)
	up := &syncUploader{}
	deps := testDeps(t, &fakeStore{}, nil, up)
	deps.Config.Transfer.MaxConcurrent = 2
	deps.Transfers = semaphore.NewWeighted(int64(deps.Config.Transfer.MaxConcurrent))
	dl := &blockingDownloader{
		active:  deps.Active,
		entered: make(chan string, messages),
		release: make(chan struct{}),
	}
	deps.Downloader = dl
	handler := NewMediaHandler(deps)

	var wg sync.WaitGroup
	for i := range messages {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handler(t.Context(), b, mediaUpdate(10+i, testUser))
		}()
	}

	for range deps.Config.Transfer.MaxConcurrent {
		select {
		case <-dl.entered:
		case <-time.After(2 * time.Second):
			t.Fatal("transfers did not start")
		}
	}
	select {
	case dest := <-dl.entered:
		t.Fatalf("download %s started while %d were running", dest, deps.Config.Transfer.MaxConcurrent)
	case <-time.After(100 * time.Millisecond):
	}

	close(dl.release)
	wg.Wait()

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.peak != deps.Config.Transfer.MaxConcurrent {
		t.Errorf("peak concurrent downloads = %d, want %d", dl.peak, deps.Config.Transfer.MaxConcurrent)
	}
	if dl.calls != messages || int(up.calls.Load()) != messages {
		t.Errorf("downloads = %d, uploads = %d, want %d each", dl.calls, up.calls.Load(), messages)
	}
	if dl.untracked != 0 {
		t.Errorf("%d downloads were not tracked as active", dl.untracked)
	}
	if n := deps.Active.Len(); n != 0 {
		t.Errorf("active files after completion = %d, want 0", n)
	}
	if got := api.Count("sendMessage"); got < messages {
		t.Errorf("sendMessage calls = %d, want at least %d", got, messages)
	}
}

func TestMediaHandler_TooLarge(t *testing.T) {
	t.Parallel()

	api, b := newFakeAPI(t)
	dl := &fakeDownloader{}
	deps := testDeps(t, &fakeStore{}, dl, &fakeUploader{})
	deps.Config.Transfer.MaxFileSize = 1024 * 1024

	NewMediaHandler(deps)(t.Context(), b, mediaUpdate(5, testUser))

	if dl.calls != 0 {
		t.Error("oversized file should not be downloaded")
	}
	text := api.Last(t, "sendMessage").Params["text"]
	contains(t, text, "too large (2.0 MiB)")
	contains(t, text, "1.0 MiB")
}

func TestMediaHandler_DownloadFailed(t *testing.T) {
	t.Parallel()

	api, b := newFakeAPI(t)
	up := &fakeUploader{}
	deps := testDeps(t, &fakeStore{}, &fakeDownloader{err: errBoom}, up)

	NewMediaHandler(deps)(t.Context(), b, mediaUpdate(5, testUser))

	if up.calls != 0 {
		t.Error("upload should not run after a failed download")
	}
	if got := api.Last(t, "editMessageText").Params["text"]; got != "❌ Download failed: boom" {
		t.Errorf("final text = %q", got)
	}
	if api.Count("sendMessage") != 1 {
		t.Errorf("expected only the progress message, got %v", api.Methods())
	}
}

func TestMediaHandler_UploadFailed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"transient", errBoom},
		{"rejected", uploader.ErrUploadRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api, b := newFakeAPI(t)
			store := &fakeStore{}
			dl := &fakeDownloader{content: "data"}
			deps := testDeps(t, store, dl, &fakeUploader{err: tt.err})

			NewMediaHandler(deps)(t.Context(), b, mediaUpdate(5, testUser))

			if got := api.Last(t, "editMessageText").Params["text"]; got != "❌ Upload failed. Please try again later." {
				t.Errorf("final text = %q", got)
			}
			if _, err := os.Stat(dl.dest); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("local file should be removed after failure, stat error = %v", err)
			}
			if len(store.saved) != 0 {
				t.Error("no link should be saved")
			}
		})
	}
}

func TestMediaHandler_StoreFailureFallsBackToDirectLink(t *testing.T) {
	t.Parallel()

	api, b := newFakeAPI(t)
	deps := testDeps(t, &fakeStore{saveErr: errBoom}, &fakeDownloader{content: "x"}, &fakeUploader{url: "https://uploda.sh/f/1"})

	NewMediaHandler(deps)(t.Context(), b, mediaUpdate(5, testUser))

	text := api.Last(t, "editMessageText").Params["text"]
	contains(t, text, "<b>Short Link:</b> https://uploda.sh/f/1")
}

func TestMediaHandler_ProgressMessageFails(t *testing.T) {
	t.Parallel()

	api, b := newFakeAPI(t)
	api.fail["sendMessage"] = true
	dl := &fakeDownloader{content: "x"}
	deps := testDeps(t, &fakeStore{}, dl, &fakeUploader{})

	NewMediaHandler(deps)(t.Context(), b, mediaUpdate(5, testUser))

	if dl.calls != 0 {
		t.Error("download should not start without a progress message")
	}
	// The progress message and the failure notice were both attempted.
	if got := api.Count("sendMessage"); got != 2 {
		t.Errorf("sendMessage calls = %d, want 2", got)
	}
	contains(t, api.Last(t, "sendMessage").Params["text"], "⚠️ Failed to process the file.")
}

func TestMediaHandler_NoNotifyChannel(t *testing.T) {
	t.Parallel()

	api, b := newFakeAPI(t)
	deps := testDeps(t, &fakeStore{}, &fakeDownloader{content: "x"}, &fakeUploader{url: "https://uploda.sh/f/1"})
	deps.Config.Telegram.NotifyChannelID = 0

	NewMediaHandler(deps)(t.Context(), b, mediaUpdate(5, testUser))

	if got := api.Count("sendMessage"); got != 1 {
		t.Errorf("sendMessage calls = %d, want only the progress message", got)
	}
}

func TestHasMedia(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		update *models.Update
		want   bool
	}{
		{"document", mediaUpdate(1, testUser), true},
		{"photo", &models.Update{Message: &models.Message{Photo: []models.PhotoSize{{FileID: "p"}}}}, true},
		{"voice", &models.Update{Message: &models.Message{Voice: &models.Voice{FileID: "v"}}}, true},
		{"text", &models.Update{Message: &models.Message{Text: "hello"}}, false},
		{"callback", &models.Update{CallbackQuery: &models.CallbackQuery{ID: "x"}}, false},
	}
	for _, tt := range tests {
		if got := HasMedia(tt.update); got != tt.want {
			t.Errorf("%s: HasMedia() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	got := render("{a} and {b} and {a} {missing}", "a", "1", "b", "2")
	if got != "1 and 2 and 1 {missing}" {
		t.Errorf("render() = %q", got)
	}
	if render("plain") != "plain" {
		t.Error("render without pairs should return the template")
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	if got := displayName(&models.User{}); got != "Unknown" {
		t.Errorf("displayName(empty) = %q", got)
	}
	if got := usernameOrPlaceholder(&models.User{}); got != "(no username)" {
		t.Errorf("usernameOrPlaceholder(empty) = %q", got)
	}
}

func TestRegisterAllHandlers(t *testing.T) {
	t.Parallel()

	got := RegisterAllHandlers(testDeps(t, &fakeStore{}, nil, nil))
	for _, key := range []string{"/start", "/help", JoinedCallbackData, "media"} {
		h, ok := got[key]
		if !ok || h.Handler == nil {
			t.Errorf("handler %q missing", key)
		}
	}
	if got["media"].MatchFunc == nil || len(got["media"].Middleware) != 1 {
		t.Error("media handler should match by func and carry the allow-list middleware")
	}
}
