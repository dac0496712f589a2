package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Identity is an authenticated principal as issued by the auth service.
type Identity struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Metadata Metadata  `json:"user_metadata,omitempty"`
}

// DisplayName picks the friendliest available name for the identity.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	for _, key := range []string{"full_name", "name"} {
		if v := strings.TrimSpace(i.Metadata.String(key)); v != "" {
			return v
		}
	}
	local, _, _ := strings.Cut(i.Email, "@")
	return local
}

// Metadata is free-form user data captured at sign-up.
type Metadata map[string]any

// String returns the value under key when it is a string.
func (m Metadata) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Bool reports the value under key as a boolean. It accepts JSON booleans and
// the strings "true"/"false". ok is false when the key holds neither.
func (m Metadata) Bool(key string) (value bool, ok bool) {
	switch v := m[key].(type) {
	case bool:
		return v, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// Clone returns a shallow copy.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge returns a copy of m with updates applied on top.
func (m Metadata) Merge(updates Metadata) Metadata {
	out := m.Clone()
	if out == nil {
		out = Metadata{}
	}
	for k, v := range updates {
		out[k] = v
	}
	return out
}

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Unreadable payloads decode to an empty map.
func (m *Metadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan metadata: unsupported type %T", src)
	}

	out := Metadata{}
	if err := json.Unmarshal(raw, &out); err != nil {
		out = Metadata{}
	}
	*m = out
	return nil
}
