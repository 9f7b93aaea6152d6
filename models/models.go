package models

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Source tags an update with the provider it came from.
type Source string

const (
	SourceGitHub   Source = "GitHub"
	SourceHashnode Source = "Hashnode"
	// SourceLinkedIn is part of the wire shape for future use. No adapter
	// produces it yet.
	SourceLinkedIn Source = "LinkedIn"
)

// Timestamp wraps time.Time to serialize as ISO-8601 UTC with millisecond
// precision, the format the dashboard consumes.
type Timestamp struct {
	time.Time
}

const timestampLayout = "2006-01-02T15:04:05.000Z"

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(timestampLayout) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("timestamp is not a JSON string: %s", s)
	}
	parsed, err := time.Parse(time.RFC3339, s[1:len(s)-1])
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}

// Update is a single item in the aggregated feed: one commit or one blog
// post, already normalized. Updates are immutable value objects that live for
// the duration of a request.
type Update struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Description string    `json:"description,omitempty"`
	Image       *string   `json:"image"`
	Source      Source    `json:"source"`
	Date        Timestamp `json:"date"`
}

// GroupBySource splits a flat feed into per-provider groups for display.
func GroupBySource(updates []Update) map[Source][]Update {
	return lo.GroupBy(updates, func(u Update) Source {
		return u.Source
	})
}
