package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/sync/singleflight"

	"github.com/khaznati/chunkvault/pkg/configs"
	nlog "github.com/khaznati/chunkvault/pkg/log"
)

const telegramBackendName = "telegram"

// TelegramBackend 把 Telegram Bot API 频道当作对象后端：
// 每个分块作为 document 发到频道，定位符为 "<message_id>:<file_id>".
//
// Bot API 的限流（HTTP 429 + retry_after）是进程级的，因此冷却期对所有
// 在途操作生效：冷却期内的调用立即返回 ThrottledError 而不触碰网络.
type TelegramBackend struct {
	cfg  configs.TelegramConfig
	http *http.Client

	sf        singleflight.Group
	connected atomic.Bool

	// 限流冷却截止时间
	mu            sync.Mutex
	cooldownUntil time.Time
}

// NewTelegramBackend 创建 Telegram 中继后端，不立即建连.
func NewTelegramBackend(cfg configs.TelegramConfig) *TelegramBackend {
	return &TelegramBackend{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.GetRequestTimeout(),
		},
	}
}

// Name 返回后端标识.
func (b *TelegramBackend) Name() string {
	return telegramBackendName
}

// apiURL 拼接 Bot API 方法地址.
func (b *TelegramBackend) apiURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(b.cfg.APIBase, "/"), b.cfg.BotToken, method)
}

// fileURL 拼接文件下载地址.
func (b *TelegramBackend) fileURL(filePath string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", strings.TrimRight(b.cfg.APIBase, "/"), b.cfg.BotToken, filePath)
}

// apiEnvelope Bot API 响应外壳.
type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
	Parameters  *apiParameters  `json:"parameters"`
}

type apiParameters struct {
	RetryAfter int `json:"retry_after"`
}

// Connect 调用 getMe 验证 token，幂等且并发安全.
func (b *TelegramBackend) Connect(ctx context.Context) error {
	if b.connected.Load() {
		return nil
	}

	_, err, _ := b.sf.Do("connect", func() (any, error) {
		if b.connected.Load() {
			return nil, nil
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.apiURL("getMe"), nil)
		if err != nil {
			return nil, err
		}

		var me struct {
			Username string `json:"username"`
		}

		if err := b.do(req, &me); err != nil {
			return nil, fmt.Errorf("telegram getMe: %w", err)
		}

		b.connected.Store(true)

		nlog.Logger().Info().Str("bot", me.Username).Int64("channel", b.cfg.ChannelID).Msg("telegram connected")

		return nil, nil
	})

	return err
}

// checkCooldown 冷却期内立即失败，避免加重限流.
func (b *TelegramBackend) checkCooldown() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if remaining := time.Until(b.cooldownUntil); remaining > 0 {
		return NewThrottledError(remaining)
	}

	return nil
}

// enterCooldown 记录后端给出的等待时长.
func (b *TelegramBackend) enterCooldown(retryAfter time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	until := time.Now().Add(retryAfter)
	if until.After(b.cooldownUntil) {
		b.cooldownUntil = until
	}
}

// do 执行请求并解析 Bot API 外壳，处理限流.
func (b *TelegramBackend) do(req *http.Request, result any) error {
	resp, err := b.http.Do(req)
	if err != nil {
		if req.Context().Err() == context.DeadlineExceeded {
			return ErrTimeout
		}

		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	var env apiEnvelope
	if err := sonic.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode telegram response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(1) * time.Second
		if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
			retryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
		}

		b.enterCooldown(retryAfter)

		return NewThrottledError(retryAfter)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: telegram status %d", ErrUnavailable, resp.StatusCode)
	}

	if !env.OK {
		if strings.Contains(strings.ToLower(env.Description), "not found") {
			return ErrNotFound
		}

		return fmt.Errorf("telegram api error: %s", env.Description)
	}

	if result != nil {
		if err := sonic.Unmarshal(env.Result, result); err != nil {
			return fmt.Errorf("decode telegram result: %w", err)
		}
	}

	return nil
}

// Put 把分块作为 document 发送到频道.
func (b *TelegramBackend) Put(ctx context.Context, data []byte) (Locator, error) {
	start := time.Now()

	loc, err := b.put(ctx, data)

	observe("put", telegramBackendName, start, err)

	return loc, err
}

func (b *TelegramBackend) put(ctx context.Context, data []byte) (Locator, error) {
	if err := b.checkCooldown(); err != nil {
		return "", err
	}

	if err := b.Connect(ctx); err != nil {
		return "", err
	}

	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	if err := w.WriteField("chat_id", strconv.FormatInt(b.cfg.ChannelID, 10)); err != nil {
		return "", err
	}

	fw, err := w.CreateFormFile("document", "chunk.bin")
	if err != nil {
		return "", err
	}

	if _, err := fw.Write(data); err != nil {
		return "", err
	}

	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL("sendDocument"), &buf)
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", w.FormDataContentType())

	var msg struct {
		MessageID int64 `json:"message_id"`
		Document  struct {
			FileID string `json:"file_id"`
		} `json:"document"`
	}

	if err := b.do(req, &msg); err != nil {
		return "", fmt.Errorf("telegram sendDocument: %w", err)
	}

	return Locator(fmt.Sprintf("%d:%s", msg.MessageID, msg.Document.FileID)), nil
}

// Get 通过 getFile 解析下载路径后取回分块内容.
func (b *TelegramBackend) Get(ctx context.Context, loc Locator) ([]byte, error) {
	start := time.Now()

	data, err := b.get(ctx, loc)

	observe("get", telegramBackendName, start, err)

	return data, err
}

func (b *TelegramBackend) get(ctx context.Context, loc Locator) ([]byte, error) {
	if err := b.checkCooldown(); err != nil {
		return nil, err
	}

	if err := b.Connect(ctx); err != nil {
		return nil, err
	}

	_, fileID, err := parseLocator(loc)
	if err != nil {
		return nil, err
	}

	payload, err := sonic.Marshal(map[string]string{"file_id": fileID})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL("getFile"), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	var file struct {
		FilePath string `json:"file_path"`
	}

	if err := b.do(req, &file); err != nil {
		return nil, fmt.Errorf("telegram getFile: %w", err)
	}

	dlReq, err := http.NewRequestWithContext(ctx, http.MethodGet, b.fileURL(file.FilePath), nil)
	if err != nil {
		return nil, err
	}

	resp, err := b.http.Do(dlReq)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrTimeout
		}

		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: telegram file status %d", ErrUnavailable, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// Delete 删除承载分块的频道消息，消息已不存在视为成功.
func (b *TelegramBackend) Delete(ctx context.Context, loc Locator) error {
	start := time.Now()

	err := b.delete(ctx, loc)

	observe("delete", telegramBackendName, start, err)

	return err
}

func (b *TelegramBackend) delete(ctx context.Context, loc Locator) error {
	if err := b.checkCooldown(); err != nil {
		return err
	}

	if err := b.Connect(ctx); err != nil {
		return err
	}

	messageID, _, err := parseLocator(loc)
	if err != nil {
		return err
	}

	payload, err := sonic.Marshal(map[string]any{
		"chat_id":    b.cfg.ChannelID,
		"message_id": messageID,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiURL("deleteMessage"), bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	if err := b.do(req, nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}

		return fmt.Errorf("telegram deleteMessage: %w", err)
	}

	return nil
}

// Close 释放连接资源（HTTP 客户端无需操作）.
func (b *TelegramBackend) Close() error {
	return nil
}

// parseLocator 拆出消息ID与文件ID.
func parseLocator(loc Locator) (int64, string, error) {
	parts := strings.SplitN(string(loc), ":", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("malformed telegram locator: %q", loc)
	}

	messageID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed telegram locator: %q", loc)
	}

	return messageID, parts[1], nil
}

func init() {
	RegisterBackendFactory(configs.BackendTelegram, func(cfg *configs.AppConfig) (ObjectBackend, error) {
		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram backend requires a bot token")
		}

		return NewTelegramBackend(cfg.Telegram), nil
	})
}
