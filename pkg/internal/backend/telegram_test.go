package backend

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khaznati/chunkvault/pkg/configs"
)

// fakeBotAPI 模拟 Telegram Bot API 的最小子集.
type fakeBotAPI struct {
	mu       atomic.Int64 // message id 计数
	requests atomic.Int64 // 收到的请求总数
	// 存储 file_id -> 内容
	files map[string][]byte
}

func newFakeBotAPI() *fakeBotAPI {
	return &fakeBotAPI{files: map[string][]byte{}}
}

func (f *fakeBotAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/botTESTTOKEN/getMe", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		fmt.Fprint(w, `{"ok":true,"result":{"username":"chunkvault_test_bot"}}`)
	})

	mux.HandleFunc("/botTESTTOKEN/sendDocument", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}

		file, _, err := r.FormFile("document")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer file.Close()

		buf, err := io.ReadAll(file)
		if err != nil {
			t.Errorf("read document: %v", err)
			return
		}

		id := f.mu.Add(1)
		fileID := fmt.Sprintf("file-%d", id)
		f.files[fileID] = buf

		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"document":{"file_id":"%s"}}}`, id, fileID)
	})

	mux.HandleFunc("/botTESTTOKEN/getFile", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)

		body, _ := io.ReadAll(r.Body)

		for fileID := range f.files {
			if strings.Contains(string(body), fileID) {
				fmt.Fprintf(w, `{"ok":true,"result":{"file_path":"documents/%s"}}`, fileID)
				return
			}
		}

		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"ok":false,"description":"Bad Request: file not found"}`)
	})

	mux.HandleFunc("/botTESTTOKEN/deleteMessage", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		fmt.Fprint(w, `{"ok":true,"result":true}`)
	})

	mux.HandleFunc("/file/botTESTTOKEN/documents/", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)

		fileID := strings.TrimPrefix(r.URL.Path, "/file/botTESTTOKEN/documents/")

		data, ok := f.files[fileID]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		_, _ = w.Write(data)
	})

	return mux
}

func newTestTelegramBackend(t *testing.T, handler http.Handler) (*TelegramBackend, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := configs.TelegramConfig{
		BotToken:       "TESTTOKEN",
		ChannelID:      -1001234567890,
		APIBase:        srv.URL,
		RequestTimeout: 10,
	}

	return NewTelegramBackend(cfg), srv
}

// TestTelegramRoundTrip Put 后 Get 应取回同样内容，Delete 成功.
func TestTelegramRoundTrip(t *testing.T) {
	api := newFakeBotAPI()
	b, _ := newTestTelegramBackend(t, api.handler(t))

	ctx := t.Context()

	payload := []byte("chunk payload for relay test")

	loc, err := b.Put(ctx, payload)
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if loc == "" {
		t.Fatal("put returned empty locator")
	}

	got, err := b.Get(ctx, loc)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	if string(got) != string(payload) {
		t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(payload))
	}

	if err := b.Delete(ctx, loc); err != nil {
		t.Errorf("delete failed: %v", err)
	}
}

// TestTelegramGetUnknownLocator 未知定位符应映射为 ErrNotFound.
func TestTelegramGetUnknownLocator(t *testing.T) {
	api := newFakeBotAPI()
	b, _ := newTestTelegramBackend(t, api.handler(t))

	_, err := b.Get(t.Context(), Locator("99:file-unknown"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("get unknown = %v, want ErrNotFound", err)
	}
}

// TestTelegramMalformedLocator 坏定位符直接报错，不触网.
func TestTelegramMalformedLocator(t *testing.T) {
	api := newFakeBotAPI()
	b, _ := newTestTelegramBackend(t, api.handler(t))

	if _, err := b.Get(t.Context(), Locator("no-colon-here")); err == nil {
		t.Error("expected error for malformed locator, got nil")
	}
}

// TestTelegramThrottleCooldown 429 响应进入冷却期，后续调用立即失败且不触网.
func TestTelegramThrottleCooldown(t *testing.T) {
	mux := http.NewServeMux()

	var hits atomic.Int64

	mux.HandleFunc("/botTESTTOKEN/getMe", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"result":{"username":"bot"}}`)
	})
	mux.HandleFunc("/botTESTTOKEN/sendDocument", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"ok":false,"description":"Too Many Requests","parameters":{"retry_after":30}}`)
	})

	b, _ := newTestTelegramBackend(t, mux)

	ctx := t.Context()

	_, err := b.Put(ctx, []byte("x"))
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("first put = %v, want ErrThrottled", err)
	}

	retryAfter, ok := RetryAfterOf(err)
	if !ok || retryAfter != 30*time.Second {
		t.Errorf("retry after = %v, %v; want 30s, true", retryAfter, ok)
	}

	sent := hits.Load()

	// 冷却期内的第二次调用必须立即失败且不再发请求
	_, err = b.Put(ctx, []byte("y"))
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("second put = %v, want ErrThrottled", err)
	}

	if hits.Load() != sent {
		t.Errorf("second put hit the network: %d -> %d requests", sent, hits.Load())
	}
}
