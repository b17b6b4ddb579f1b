package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/petasbytes/snapbooks/internal/fsops"
	"github.com/petasbytes/snapbooks/internal/runner"
	"github.com/petasbytes/snapbooks/memory"
)

const (
	DefaultCaption = "Process this bill and generate an invoice."

	welcomeText = "🧾 Welcome to SnapBooks!\n\n" +
		"Send me a photo of a handwritten bill (kata parchi) " +
		"and I'll extract the data and generate a GST invoice.\n\n" +
		"Commands:\n" +
		"/start    - Welcome message\n" +
		"/new_chat - Start a fresh session\n" +
		"/help     - Usage guide"
	helpText = "📖 How to use SnapBooks:\n\n" +
		"1. Take a photo of your handwritten bill\n" +
		"2. Send it here (with optional caption)\n" +
		"3. I'll extract items, quantities, amounts\n" +
		"4. Get a professional invoice document back!\n\n" +
		"/new_chat - Start a fresh conversation"

	textFailure     = "❌ Something went wrong processing your message. Please try again."
	photoFailure    = "❌ Something went wrong processing your bill. Please try again."
	downloadFailure = "❌ Failed to download the image."
	invoiceCaption  = "📄 Your invoice"
)

// Agent processes one inbound message against a conversation.
type Agent interface {
	Handle(ctx context.Context, convID string, msg memory.Message) (*memory.Conversation, runner.Outcome, error)
}

// Handler turns webhook updates into agent runs and replies.
type Handler struct {
	Client   *Client
	Agent    Agent
	Sessions memory.SessionIndex
	Dedup    *Dedup
	Locks    *KeyLock
	Logger   *slog.Logger

	wg sync.WaitGroup
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// HandleUpdate acknowledges an update quickly: commands are answered inline
// and agent work continues in the background on a context detached from ctx.
// Only a malformed body is an error.
func (h *Handler) HandleUpdate(ctx context.Context, body []byte) error {
	u, err := ParseUpdate(body)
	if err != nil {
		return err
	}
	if h.Dedup != nil && h.Dedup.Seen(u.UpdateID) {
		h.logger().Info("webhook_duplicate_skipped", "update_id", u.UpdateID)
		return nil
	}
	if !u.HasMessage {
		return nil
	}

	chatKey := strconv.FormatInt(u.ChatID, 10)
	h.logger().Info("webhook_received",
		"telegram_chat_id", chatKey,
		"update_id", u.UpdateID,
		"has_photo", len(u.Photos) > 0,
		"has_text", u.Text != "",
	)

	if text := strings.TrimSpace(u.Text); text != "" {
		switch text {
		case "/start":
			h.logger().Info("command", "command", text, "telegram_chat_id", chatKey)
			h.reply(ctx, u.ChatID, welcomeText)
			return nil
		case "/help":
			h.logger().Info("command", "command", text, "telegram_chat_id", chatKey)
			h.reply(ctx, u.ChatID, helpText)
			return nil
		case "/new_chat":
			h.logger().Info("command", "command", text, "telegram_chat_id", chatKey)
			id, err := h.newConversation(ctx, chatKey)
			if err != nil {
				h.logger().Error("new_chat_failed", "telegram_chat_id", chatKey, "error", err)
				h.reply(ctx, u.ChatID, textFailure)
				return nil
			}
			h.reply(ctx, u.ChatID, fmt.Sprintf("🆕 New chat started (session: %s). Send a bill photo!", id))
			return nil
		}
		h.background(ctx, func(ctx context.Context) { h.processText(ctx, u.ChatID, chatKey, text) })
		return nil
	}

	if photo, ok := u.LargestPhoto(); ok {
		h.logger().Info("photo_received",
			"telegram_chat_id", chatKey,
			"file_id", photo.FileID,
			"width", photo.Width,
			"height", photo.Height,
		)
		caption := u.Caption
		h.background(ctx, func(ctx context.Context) { h.processPhoto(ctx, u.ChatID, chatKey, photo, caption) })
	}
	return nil
}

// Wait blocks until all background work has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) background(ctx context.Context, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		fn(ctx)
	}()
}

func (h *Handler) processText(ctx context.Context, chatID int64, chatKey, text string) {
	h.run(ctx, chatID, chatKey, "text", textFailure, func(context.Context) (memory.Message, bool) {
		return memory.NewUserText(text), true
	})
}

func (h *Handler) processPhoto(ctx context.Context, chatID int64, chatKey string, photo Photo, caption string) {
	h.run(ctx, chatID, chatKey, "photo", photoFailure, func(ctx context.Context) (memory.Message, bool) {
		data, mimeType, err := h.Client.DownloadPhoto(ctx, photo.FileID)
		if err != nil {
			h.logger().Warn("photo_download_failed", "telegram_chat_id", chatKey, "file_id", photo.FileID, "error", err)
			h.reply(ctx, chatID, downloadFailure)
			return memory.Message{}, false
		}
		h.logger().Info("photo_downloaded", "telegram_chat_id", chatKey, "mime_type", mimeType, "size_bytes", len(data))
		if caption == "" {
			caption = DefaultCaption
		}
		return memory.Message{Role: memory.RoleUser, Parts: []memory.Part{
			memory.BinaryPart(mimeType, data),
			memory.TextPart(caption),
		}}, true
	})
}

func (h *Handler) run(ctx context.Context, chatID int64, chatKey, inputType, failure string, build func(context.Context) (memory.Message, bool)) {
	if h.Locks != nil {
		unlock, err := h.Locks.Lock(ctx, chatKey)
		if err != nil {
			return
		}
		defer unlock()
	}
	if err := h.Client.SendChatAction(ctx, chatID, "typing"); err != nil {
		h.logger().Debug("send_typing_failed", "telegram_chat_id", chatKey, "error", err)
	}

	msg, ok := build(ctx)
	if !ok {
		return
	}

	convID, err := h.activeConversation(ctx, chatKey)
	if err != nil {
		h.logger().Error("background_"+inputType+"_error", "telegram_chat_id", chatKey, "error", err)
		h.reply(ctx, chatID, failure)
		return
	}

	h.logger().Info("agent_start", "conversation_id", convID, "telegram_chat_id", chatKey, "input_type", inputType)
	conv, _, err := h.Agent.Handle(ctx, convID, msg)
	if err != nil {
		h.logger().Error("background_"+inputType+"_error", "telegram_chat_id", chatKey, "error", err)
		h.reply(ctx, chatID, failure)
		return
	}

	h.reply(ctx, chatID, FormatForTelegram(ExtractResponseText(conv)))

	if p, ok := ExtractInvoicePath(conv); ok {
		h.sendInvoice(ctx, chatID, chatKey, p)
	}
}

func (h *Handler) sendInvoice(ctx context.Context, chatID int64, chatKey, relPath string) {
	content, err := fsops.ReadFile(relPath)
	if err != nil {
		h.logger().Warn("invoice_read_failed", "telegram_chat_id", chatKey, "path", relPath, "error", err)
		return
	}
	if err := h.Client.SendDocument(ctx, chatID, path.Base(relPath), []byte(content), invoiceCaption); err != nil {
		h.logger().Error("invoice_send_failed", "telegram_chat_id", chatKey, "path", relPath, "error", err)
		return
	}
	h.logger().Info("invoice_sent", "telegram_chat_id", chatKey, "path", relPath)
}

func (h *Handler) activeConversation(ctx context.Context, chatKey string) (string, error) {
	id, err := h.Sessions.Active(ctx, chatKey)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, memory.ErrNotFound) {
		return "", err
	}
	return h.newConversation(ctx, chatKey)
}

func (h *Handler) newConversation(ctx context.Context, chatKey string) (string, error) {
	id := memory.NewConversationID()
	if err := h.Sessions.SetActive(ctx, chatKey, id); err != nil {
		return "", err
	}
	h.logger().Info("new_chat_created", "conversation_id", id, "telegram_chat_id", chatKey)
	return id, nil
}

func (h *Handler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.Client.SendMessage(ctx, chatID, text); err != nil {
		h.logger().Error("send_message_failed", "chat_id", chatID, "error", err)
	}
}
