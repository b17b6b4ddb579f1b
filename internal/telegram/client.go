package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIBase = "https://api.telegram.org"
	// MaxMessageRunes is the Bot API limit for one sendMessage text.
	MaxMessageRunes = 4096
	// DefaultSendRate is the sustained outgoing messages per second.
	DefaultSendRate = 25
)

// APIError is a Bot API reply with "ok": false.
type APIError struct {
	Method      string
	Code        int64
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %d %s", e.Method, e.Code, e.Description)
}

// ClientConfig configures a Bot API client.
type ClientConfig struct {
	Token      string
	APIBase    string
	SendRate   float64 // messages per second; 0 means DefaultSendRate, negative means unlimited
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client calls the Telegram Bot API. Outgoing sends share one rate limiter.
type Client struct {
	token   string
	base    string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	base := strings.TrimRight(cfg.APIBase, "/")
	if base == "" {
		base = DefaultAPIBase
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Limit(cfg.SendRate)
	switch {
	case cfg.SendRate == 0:
		limit = DefaultSendRate
	case cfg.SendRate < 0:
		limit = rate.Inf
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		token:   cfg.Token,
		base:    base,
		http:    hc,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

func (c *Client) methodURL(method string) string {
	return c.base + "/bot" + c.token + "/" + method
}

// SendMessage sends text, split into several messages when it exceeds the
// Bot API length limit.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range splitMessage(text, MaxMessageRunes) {
		body, err := sjson.SetBytes([]byte(`{}`), "chat_id", chatID)
		if err != nil {
			return err
		}
		if body, err = sjson.SetBytes(body, "text", chunk); err != nil {
			return err
		}
		if _, err := c.postJSON(ctx, "sendMessage", body); err != nil {
			return err
		}
	}
	return nil
}

// SendChatAction shows a status such as "typing" in the chat.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	body, err := sjson.SetBytes([]byte(`{}`), "chat_id", chatID)
	if err != nil {
		return err
	}
	if body, err = sjson.SetBytes(body, "action", action); err != nil {
		return err
	}
	_, err = c.postJSON(ctx, "sendChatAction", body)
	return err
}

// SendDocument uploads data as a file attachment.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return err
		}
	}
	fw, err := w.CreateFormFile("document", filename)
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err = c.do(ctx, "sendDocument", w.FormDataContentType(), &buf)
	return err
}

// GetFile resolves a file id to its server-side path.
func (c *Client) GetFile(ctx context.Context, fileID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.methodURL("getFile")+"?file_id="+url.QueryEscape(fileID), nil)
	if err != nil {
		return "", err
	}
	res, err := c.roundTrip("getFile", req)
	if err != nil {
		return "", err
	}
	p := res.Get("file_path").String()
	if p == "" {
		return "", &APIError{Method: "getFile", Description: "no file_path in result"}
	}
	return p, nil
}

// Download fetches a file previously resolved with GetFile.
func (c *Client) Download(ctx context.Context, filePath string) ([]byte, error) {
	u := c.base + "/file/bot" + c.token + "/" + strings.TrimLeft(filePath, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram download: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// DownloadPhoto fetches a photo by file id and guesses its MIME type from
// the stored file's extension.
func (c *Client) DownloadPhoto(ctx context.Context, fileID string) ([]byte, string, error) {
	p, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, "", err
	}
	data, err := c.Download(ctx, p)
	if err != nil {
		return nil, "", err
	}
	return data, photoMIMEType(p), nil
}

func photoMIMEType(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func (c *Client) postJSON(ctx context.Context, method string, body []byte) (gjson.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, err
	}
	return c.do(ctx, method, "application/json", bytes.NewReader(body))
}

func (c *Client) do(ctx context.Context, method, contentType string, body io.Reader) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), body)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.roundTrip(method, req)
}

func (c *Client) roundTrip(method string, req *http.Request) (gjson.Result, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		// The request URL carries the bot token; keep it out of the error.
		return gjson.Result{}, fmt.Errorf("telegram %s: %w", method, unwrapURLError(err))
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("telegram %s: read body: %w", method, err)
	}
	if !gjson.ValidBytes(b) {
		return gjson.Result{}, &APIError{Method: method, Code: int64(resp.StatusCode), Description: "invalid JSON reply"}
	}
	r := gjson.ParseBytes(b)
	if !r.Get("ok").Bool() {
		return gjson.Result{}, &APIError{
			Method:      method,
			Code:        r.Get("error_code").Int(),
			Description: r.Get("description").String(),
		}
	}
	c.logger.Debug("telegram_api_call", "method", method)
	return r.Get("result"), nil
}

func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

// splitMessage cuts s into pieces of at most limit runes, preferring to break
// at a newline in the second half of a piece.
func splitMessage(s string, limit int) []string {
	if utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}
	var out []string
	for s != "" {
		if utf8.RuneCountInString(s) <= limit {
			out = append(out, s)
			break
		}
		cut := byteOffset(s, limit)
		if nl := strings.LastIndexByte(s[:cut], '\n'); nl > cut/2 {
			cut = nl + 1
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	return out
}

func byteOffset(s string, runes int) int {
	n := 0
	for i := range s {
		if n == runes {
			return i
		}
		n++
	}
	return len(s)
}
