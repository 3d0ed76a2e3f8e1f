package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"ctchen222/todo-api/internal/api/models"
)

// StampInsert sets the id and both timestamps of a new document.
func StampInsert(doc models.Entity, id string, now time.Time) {
	b := doc.GetBase()
	b.ID = id
	b.CreatedAt = now.UTC()
	b.UpdatedAt = b.CreatedAt
}

// StampReplace pins the id and refreshes the update timestamp.
func StampReplace(doc models.Entity, id string, now time.Time) {
	b := doc.GetBase()
	b.ID = id
	b.UpdatedAt = now.UTC()
}

// EncodeJSON encodes doc and extracts the canonical values of its unique
// fields.
func EncodeJSON(doc models.Entity, unique []string) ([]byte, map[string]string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode document: %w", err)
	}
	keys, err := UniqueKeys(body, unique)
	if err != nil {
		return nil, nil, err
	}
	return body, keys, nil
}

// UniqueKeys returns the canonical JSON value of each unique field of body.
// Empty values are not claimed.
func UniqueKeys(body []byte, unique []string) (map[string]string, error) {
	if len(unique) == 0 {
		return nil, nil
	}
	fields, err := decodeFields(body)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]string, len(unique))
	for _, name := range unique {
		raw, ok := fields[name]
		if !ok || string(raw) == `""` || string(raw) == "null" {
			continue
		}
		keys[name] = string(compact(raw))
	}
	return keys, nil
}

// UniqueLookup picks the first unique field named in filter and returns its
// canonical value, in the same form UniqueKeys stores it. Drivers resolve such
// a filter through their key index and check the rest with Matches.
func UniqueLookup(filter Filter, unique []string) (field, value string, ok bool, err error) {
	for _, name := range unique {
		want, found := filter[name]
		if !found {
			continue
		}
		raw, err := json.Marshal(want)
		if err != nil {
			return "", "", false, fmt.Errorf("failed to encode filter %q: %w", name, err)
		}
		if string(raw) == `""` || string(raw) == "null" {
			// Empty values are never claimed.
			continue
		}
		return name, string(raw), true, nil
	}
	return "", "", false, nil
}

// Matches reports whether the JSON document body satisfies filter.
func Matches(body []byte, filter Filter) (bool, error) {
	if len(filter) == 0 {
		return true, nil
	}
	fields, err := decodeFields(body)
	if err != nil {
		return false, err
	}
	for name, want := range filter {
		got, ok := fields[name]
		if !ok {
			return false, nil
		}
		wantRaw, err := json.Marshal(want)
		if err != nil {
			return false, fmt.Errorf("failed to encode filter %q: %w", name, err)
		}
		if !bytes.Equal(compact(got), wantRaw) {
			return false, nil
		}
	}
	return true, nil
}

// DecodeMany decodes a list of JSON bodies into out, a pointer to a slice.
func DecodeMany(bodies [][]byte, out any) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, b := range bodies {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	if err := json.Unmarshal(buf.Bytes(), out); err != nil {
		return fmt.Errorf("failed to decode documents: %w", err)
	}
	return nil
}

// DecodeOne decodes a single JSON body into out.
func DecodeOne(body []byte, out models.Entity) error {
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode document: %w", err)
	}
	return nil
}

func decodeFields(body []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return fields, nil
}

func compact(raw json.RawMessage) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
