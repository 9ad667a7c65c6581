package storage

import (
	"time"
)

// FieldValue is the stored value of one picker field on one content item.
type FieldValue struct {
	ID            string    `json:"id"`
	ContentItemID string    `json:"content_item_id"`
	FieldName     string    `json:"field_name"`
	Kind          string    `json:"kind"`
	Format        string    `json:"format"`
	Value         string    `json:"value"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Key returns the identity of the value within a store.
func (f *FieldValue) Key() string {
	return fieldKey(f.ContentItemID, f.FieldName)
}

func fieldKey(contentItemID, fieldName string) string {
	return contentItemID + "/" + fieldName
}

func (f *FieldValue) validate() error {
	switch {
	case f == nil:
		return ErrInvalidInput
	case f.ContentItemID == "" || f.FieldName == "":
		return ErrInvalidInput
	case f.Kind == "":
		return ErrInvalidInput
	}
	return nil
}

func (f *FieldValue) clone() *FieldValue {
	c := *f
	return &c
}
