package content

import (
	"bytes"
	"encoding/json"
)

// listBody decodes either a JSON array or a page object with "content".
type listBody[T any] struct {
	items []T
}

func (l *listBody[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &l.items)
	}
	var page Page[T]
	if err := json.Unmarshal(data, &page); err != nil {
		return err
	}
	l.items = page.Content
	return nil
}
