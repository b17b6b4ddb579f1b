package telegram_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/petasbytes/snapbooks/internal/telegram"
)

func TestClient_SendMessage(t *testing.T) {
	api := newFakeAPI(t)

	if err := api.client().SendMessage(context.Background(), -1001, `He said "hi"`+"\n✓"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	calls := api.Calls("sendMessage")
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	body := calls[0].Body
	if calls[0].ContentType != "application/json" {
		t.Fatalf("content type %q", calls[0].ContentType)
	}
	if gjson.GetBytes(body, "chat_id").Int() != -1001 || gjson.GetBytes(body, "text").String() != `He said "hi"`+"\n✓" {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestClient_SendMessageSplitsLongText(t *testing.T) {
	api := newFakeAPI(t)
	line := strings.Repeat("é", 99) + "\n"
	text := strings.Repeat(line, 100) // 10000 runes

	if err := api.client().SendMessage(context.Background(), 1, text); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	calls := api.Calls("sendMessage")
	if len(calls) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(calls))
	}
	var joined strings.Builder
	for i, c := range calls {
		chunk := gjson.GetBytes(c.Body, "text").String()
		if n := utf8.RuneCountInString(chunk); n > telegram.MaxMessageRunes {
			t.Fatalf("chunk %d has %d runes", i, n)
		}
		if i < len(calls)-1 && !strings.HasSuffix(chunk, "\n") {
			t.Fatalf("chunk %d should break at a newline", i)
		}
		joined.WriteString(chunk)
	}
	if joined.String() != text {
		t.Fatal("chunks do not reassemble the original text")
	}
}

func TestClient_APIError(t *testing.T) {
	api := newFakeAPI(t)
	api.fail["sendChatAction"] = "Bad Request: chat not found"

	err := api.client().SendChatAction(context.Background(), 5, "typing")

	var apiErr *telegram.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 400 || apiErr.Method != "sendChatAction" || !strings.Contains(apiErr.Description, "chat not found") {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if strings.Contains(err.Error(), testToken) {
		t.Fatal("error leaks the bot token")
	}
}

func TestClient_SendDocumentIsMultipart(t *testing.T) {
	api := newFakeAPI(t)

	err := api.client().SendDocument(context.Background(), 42, "SB_inv.html", []byte("<html></html>"), "📄 Your invoice")
	if err != nil {
		t.Fatalf("SendDocument: %v", err)
	}

	calls := api.Calls("sendDocument")
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	_, params, err := mime.ParseMediaType(calls[0].ContentType)
	if err != nil {
		t.Fatalf("content type: %v", err)
	}
	r := multipart.NewReader(bytes.NewReader(calls[0].Body), params["boundary"])
	fields := map[string]string{}
	var filename string
	for {
		p, err := r.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		b, _ := io.ReadAll(p)
		fields[p.FormName()] = string(b)
		if p.FormName() == "document" {
			filename = p.FileName()
		}
	}
	if fields["chat_id"] != "42" || fields["caption"] != "📄 Your invoice" || fields["document"] != "<html></html>" || filename != "SB_inv.html" {
		t.Fatalf("unexpected form: %v (filename %q)", fields, filename)
	}
}

func TestClient_DownloadPhoto(t *testing.T) {
	api := newFakeAPI(t)

	data, mimeType, err := api.client().DownloadPhoto(context.Background(), "file-abc")
	if err != nil {
		t.Fatalf("DownloadPhoto: %v", err)
	}
	if !bytes.Equal(data, api.photo) || mimeType != "image/jpeg" {
		t.Fatalf("got %q %s", data, mimeType)
	}
}
