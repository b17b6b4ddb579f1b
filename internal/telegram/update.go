package telegram

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrMalformedUpdate is returned for webhook bodies that are not a Bot API update.
var ErrMalformedUpdate = errors.New("telegram: malformed update")

// Photo is one size variant of a sent photo.
type Photo struct {
	FileID   string
	Width    int64
	Height   int64
	FileSize int64
}

// Update is the subset of a Bot API update the assistant acts on.
type Update struct {
	UpdateID   int64
	HasMessage bool
	MessageID  int64
	ChatID     int64
	FromID     int64
	FirstName  string
	Text       string
	Caption    string
	Photos     []Photo
}

// ParseUpdate extracts an Update from a raw webhook body.
func ParseUpdate(body []byte) (Update, error) {
	if !gjson.ValidBytes(body) {
		return Update{}, ErrMalformedUpdate
	}
	root := gjson.ParseBytes(body)
	id := root.Get("update_id")
	if id.Type != gjson.Number {
		return Update{}, ErrMalformedUpdate
	}
	u := Update{UpdateID: id.Int()}

	msg := root.Get("message")
	if !msg.IsObject() {
		return u, nil
	}
	u.HasMessage = true
	u.MessageID = msg.Get("message_id").Int()
	u.ChatID = msg.Get("chat.id").Int()
	u.FromID = msg.Get("from.id").Int()
	u.FirstName = msg.Get("from.first_name").String()
	u.Text = msg.Get("text").String()
	u.Caption = msg.Get("caption").String()
	msg.Get("photo").ForEach(func(_, p gjson.Result) bool {
		u.Photos = append(u.Photos, Photo{
			FileID:   p.Get("file_id").String(),
			Width:    p.Get("width").Int(),
			Height:   p.Get("height").Int(),
			FileSize: p.Get("file_size").Int(),
		})
		return true
	})
	return u, nil
}

// LargestPhoto returns the variant with the most pixels.
func (u Update) LargestPhoto() (Photo, bool) {
	if len(u.Photos) == 0 {
		return Photo{}, false
	}
	best := u.Photos[0]
	for _, p := range u.Photos[1:] {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best, true
}
