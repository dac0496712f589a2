package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RSVP is one household's or individual's attendance response.
type RSVP struct {
	ID             uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	UserID         *uuid.UUID `json:"user_id" gorm:"type:char(36);index"`
	Email          string     `json:"email" gorm:"size:255;index;not null"`
	FullName       string     `json:"full_name" gorm:"size:255;not null"`
	Attending      bool       `json:"attending"`
	Dietary        string     `json:"dietary" gorm:"type:text"`
	Songs          string     `json:"songs" gorm:"type:text"`
	HasPlusOne     bool       `json:"has_plus_one"`
	PlusOneName    string     `json:"plus_one_name" gorm:"size:255"`
	PlusOneDietary string     `json:"plus_one_dietary" gorm:"type:text"`
	HasChildren    bool       `json:"has_children"`
	Children       Children   `json:"children" gorm:"type:json"`
	SubmittedBy    string     `json:"submitted_by" gorm:"size:255"`
	CreatedAt      time.Time  `json:"created_at" gorm:"index"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName overrides the default pluralisation.
func (RSVP) TableName() string {
	return "rsvps"
}

// BeforeCreate sets UUID before creating the record.
func (r *RSVP) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Child is one entry of the children list.
type Child struct {
	Name    string `json:"name"`
	Dietary string `json:"dietary"`
}

// Children is the ordered children list of an RSVP. It decodes from a JSON
// array, from a string holding a JSON array, and coerces anything else to an
// empty list. The same rules apply to request bodies and stored rows.
type Children []Child

// UnmarshalJSON implements json.Unmarshaler.
func (c *Children) UnmarshalJSON(data []byte) error {
	*c = decodeChildren(data)
	return nil
}

// MarshalJSON always renders a list, never null.
func (c Children) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Child(c))
}

// Value implements driver.Valuer.
func (c Children) Value() (driver.Value, error) {
	b, err := c.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal children: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *Children) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = Children{}
	case []byte:
		*c = decodeChildren(v)
	case string:
		*c = decodeChildren([]byte(v))
	default:
		return fmt.Errorf("scan children: unsupported type %T", src)
	}
	return nil
}

func decodeChildren(data []byte) Children {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Children{}
	}

	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return Children{}
		}
		data = bytes.TrimSpace([]byte(inner))
		if len(data) == 0 || data[0] != '[' {
			return Children{}
		}
	}
	if data[0] != '[' {
		return Children{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Children{}
	}

	out := make(Children, 0, len(raw))
	for _, item := range raw {
		var child Child
		if err := json.Unmarshal(item, &child); err != nil {
			continue
		}
		out = append(out, child)
	}
	return out
}
