// Package models defines the document shapes the Heatwave core reads and
// writes: user profiles, directed contact edges, block edges, and messages.
//
// The hosted store keeps duck-typed records with no schema, so every type
// here pairs a Fields() encoder with a FromDoc decoder that validates
// required-field presence at the store boundary.
package models

import (
	"errors"
	"fmt"
	"time"

	"heatwave/internal/store"
)

// Collection names.
const (
	CollectionUsers    = "users"
	CollectionContacts = "contacts"
	CollectionBlocks   = "blocks"
	CollectionMessages = "messages"
)

// ErrMissingField wraps the name of an absent required field.
var ErrMissingField = errors.New("document missing required field")

func stringField(fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %s: expected string, got %T", key, v)
	}
	return s, nil
}

func optionalString(fields map[string]any, key string) string {
	if v, ok := fields[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func boolField(fields map[string]any, key string) (bool, error) {
	v, ok := fields[key]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %s: expected bool, got %T", key, v)
	}
	return b, nil
}

func optionalBool(fields map[string]any, key string) bool {
	if v, ok := fields[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// timeField decodes a timestamp stored either as time.Time (in-memory
// backend) or as an RFC 3339 string (JSON backends).
func timeField(fields map[string]any, key string) (time.Time, error) {
	v, ok := fields[key]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMissingField, key)
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("field %s: %w", key, err)
		}
		return parsed, nil
	default:
		return time.Time{}, fmt.Errorf("field %s: expected timestamp, got %T", key, v)
	}
}

func requireCollection(doc store.Doc, want string) error {
	if doc.Ref.Collection != want {
		return fmt.Errorf("expected %s document, got %s", want, doc.Ref.Collection)
	}
	return nil
}
