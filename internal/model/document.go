package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type Document struct {
	ID       string           `json:"id" db:"id"`
	UserID   string           `json:"user_id" db:"user_id"`
	Title    string           `json:"title" db:"title"`
	Content  string           `json:"content" db:"content"`
	Metadata DocumentMetadata `json:"metadata" db:"metadata"`
	Revision int64            `json:"revision" db:"revision"`
	Ctime    int64            `json:"ctime" db:"ctime"`
	Mtime    int64            `json:"mtime" db:"mtime"`
}

// DocumentMetadata is fixed at creation and copied into every version.
type DocumentMetadata struct {
	Source     string   `json:"source,omitempty"`
	Language   string   `json:"language,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Latex      string   `json:"latex,omitempty"`
	ImageKey   string   `json:"image_key,omitempty"`
}

func (m DocumentMetadata) Value() (driver.Value, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (m *DocumentMetadata) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = DocumentMetadata{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	if len(data) == 0 {
		*m = DocumentMetadata{}
		return nil
	}
	return json.Unmarshal(data, m)
}

// Clone returns a deep copy so versions never share slices with documents.
func (m DocumentMetadata) Clone() DocumentMetadata {
	out := m
	if m.Confidence != nil {
		c := *m.Confidence
		out.Confidence = &c
	}
	if m.Tags != nil {
		out.Tags = append([]string(nil), m.Tags...)
	}
	return out
}
