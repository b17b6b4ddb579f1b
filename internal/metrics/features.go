package metrics

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/petasbytes/snapbooks/memory"
)

// Features holds basic local text features derived from an input string.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// MessageFeatures describes an inbound message without carrying its content.
type MessageFeatures struct {
	Text            Features
	Attachments     int
	AttachmentBytes int
	MIMETypes       []string
}

// CountFeatures computes and returns byte, rune, word, and line counts for the input string.
func CountFeatures(s string) Features {
	b := len(s)
	r := utf8.RuneCountInString(s)
	w := countWords(s)
	l := countLines(s)
	return Features{Bytes: b, Runes: r, Words: w, Lines: l}
}

// CountMessage counts the text of m (thoughts excluded) and its binary attachments.
// MIMETypes lists each distinct attachment type once, in first-seen order.
func CountMessage(m memory.Message) MessageFeatures {
	f := MessageFeatures{Text: CountFeatures(m.Text())}
	for _, p := range m.Parts {
		if p.Binary == nil {
			continue
		}
		f.Attachments++
		f.AttachmentBytes += len(p.Binary.Data)
		if !slices.Contains(f.MIMETypes, p.Binary.MIMEType) {
			f.MIMETypes = append(f.MIMETypes, p.Binary.MIMEType)
		}
	}
	return f
}

// countWords counts words split on Unicode whitespace.
func countWords(s string) int {
	return len(strings.Fields(s))
}

// countLines returns 0 for empty strings; otherwise 1 plus the number of '\n' runes.
func countLines(s string) int {
	if s == "" {
		return 0
	}
	return 1 + strings.Count(s, "\n")
}

