package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const spoilerDelim = "||"

type MessageID string

// SpoilerRange marks a hidden substring of Message.Content by byte
// offsets of the inner text (delimiters excluded). Derived from the
// inline delimiter encoding; the raw content is the source of truth
// and round-trips unchanged through edit/store/replay.
type SpoilerRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Message struct {
	ID           MessageID      `json:"id"`
	Author       Author         `json:"author"`
	Content      string         `json:"content"`
	Phase        string         `json:"phase,omitempty"`
	ProductIndex int            `json:"productIndex"`
	CreatedAt    time.Time      `json:"createdAt"`
	Tags         []string       `json:"tags,omitempty"`
	Spoilers     []SpoilerRange `json:"spoilers,omitempty"`
}

// NewMessage validates content bounds and derives the spoiler ranges.
// maxLen <= 0 means no upper bound.
func NewMessage(author Author, content, phase string, productIndex int, tags []string, maxLen int) (*Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, Rejectf(ErrValidation, "empty message")
	}
	if maxLen > 0 && len(content) > maxLen {
		return nil, Rejectf(ErrValidation, "message exceeds %d bytes", maxLen)
	}
	if productIndex < 0 {
		return nil, Rejectf(ErrValidation, "negative product index")
	}
	return &Message{
		ID:           MessageID(uuid.NewString()),
		Author:       author,
		Content:      content,
		Phase:        phase,
		ProductIndex: productIndex,
		CreatedAt:    time.Now().UTC(),
		Tags:         tags,
		Spoilers:     ScanSpoilers(content),
	}, nil
}

// SetContent replaces the content and re-derives the spoiler ranges.
func (m *Message) SetContent(content string, maxLen int) error {
	if strings.TrimSpace(content) == "" {
		return Rejectf(ErrValidation, "empty message")
	}
	if maxLen > 0 && len(content) > maxLen {
		return Rejectf(ErrValidation, "message exceeds %d bytes", maxLen)
	}
	m.Content = content
	m.Spoilers = ScanSpoilers(content)
	return nil
}

// ScanSpoilers extracts ||-delimited ranges. An unpaired trailing
// delimiter is plain text, which matches how the content renders.
func ScanSpoilers(content string) []SpoilerRange {
	var ranges []SpoilerRange
	offset := 0
	for {
		open := strings.Index(content[offset:], spoilerDelim)
		if open < 0 {
			return ranges
		}
		innerStart := offset + open + len(spoilerDelim)
		closing := strings.Index(content[innerStart:], spoilerDelim)
		if closing < 0 {
			return ranges
		}
		ranges = append(ranges, SpoilerRange{Start: innerStart, End: innerStart + closing})
		offset = innerStart + closing + len(spoilerDelim)
	}
}
