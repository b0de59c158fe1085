package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"heatwave/internal/store"
)

func TestProfileFromDoc_RequiresHandle(t *testing.T) {
	doc := store.Doc{
		Ref:    store.Ref{Collection: CollectionUsers, ID: "1"},
		Fields: map[string]any{"displayName": "Alice"},
	}
	_, err := ProfileFromDoc(doc)
	require.ErrorIs(t, err, ErrMissingField)
}

func TestProfileFromDoc_OptionalFieldsAbsent(t *testing.T) {
	doc := store.Doc{
		Ref:    store.Ref{Collection: CollectionUsers, ID: "1"},
		Fields: map[string]any{"handle": "alice", "displayName": "Alice"},
	}
	p, err := ProfileFromDoc(doc)
	require.NoError(t, err)
	require.Equal(t, "alice", p.Handle)
	require.Empty(t, p.ExternalID)
	require.Empty(t, p.CredentialSecret)
}

func TestContactEdge_TimestampSurvivesJSONShape(t *testing.T) {
	// JSON backends deliver timestamps as RFC 3339 strings.
	doc := store.Doc{
		Ref: store.Ref{Collection: CollectionContacts, ID: "c1"},
		Fields: map[string]any{
			"ownerId":   "alice",
			"partnerId": "bob",
			"createdAt": "2026-03-01T10:00:00.000000001Z",
		},
	}
	e, err := ContactEdgeFromDoc(doc)
	require.NoError(t, err)
	require.Equal(t, 2026, e.CreatedAt.Year())
	require.Equal(t, "bob", e.DisplayName())
}

func TestMessage_AnonymousFieldsOmitted(t *testing.T) {
	m := Message{
		RecipientID:       "bob",
		SenderID:          "",
		SenderDisplayName: AnonymousSenderName,
		IsPersonal:        false,
		Text:              "hi",
		CreatedAt:         time.Now(),
	}
	fields := m.Fields()
	require.NotContains(t, fields, "read")
	require.NotContains(t, fields, "recipientName")
	require.Equal(t, "", fields["senderId"])
}

func TestMessageFromDoc_ReadDefaultsFalse(t *testing.T) {
	doc := store.Doc{
		Ref: store.Ref{Collection: CollectionMessages, ID: "m1"},
		Fields: map[string]any{
			"recipientId": "bob",
			"senderId":    "",
			"senderName":  AnonymousSenderName,
			"personal":    false,
			"text":        "hi",
			"createdAt":   time.Now(),
		},
	}
	m, err := MessageFromDoc(doc)
	require.NoError(t, err)
	require.False(t, m.Read)
	require.True(t, m.Anonymous())
}

func TestMessageFromDoc_WrongCollection(t *testing.T) {
	doc := store.Doc{Ref: store.Ref{Collection: CollectionUsers, ID: "1"}}
	_, err := MessageFromDoc(doc)
	require.Error(t, err)
}
