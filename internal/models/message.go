package models

import (
	"time"

	"heatwave/internal/store"
)

// AnonymousSenderName labels messages sent without an account.
const AnonymousSenderName = "Anonymous"

// Message is immutable once written except for Read, which transitions
// false→true exactly once when the recipient views the corresponding Wave.
//
// IsPersonal is computed at send time from whether the recipient held a
// contact edge back to the sender, and is never recomputed if the
// relationship changes afterwards. An empty SenderID marks an anonymous
// message; those omit Read and RecipientDisplayName entirely.
type Message struct {
	RecipientID          string
	RecipientDisplayName string
	SenderID             string
	SenderDisplayName    string
	IsPersonal           bool
	Text                 string
	Read                 bool
	CreatedAt            time.Time
}

// Anonymous reports whether the message was sent without an account.
func (m Message) Anonymous() bool { return m.SenderID == "" }

func (m Message) Fields() map[string]any {
	fields := map[string]any{
		"recipientId": m.RecipientID,
		"senderId":    m.SenderID,
		"senderName":  m.SenderDisplayName,
		"personal":    m.IsPersonal,
		"text":        m.Text,
		"createdAt":   m.CreatedAt,
	}
	if !m.Anonymous() {
		fields["read"] = m.Read
		if m.RecipientDisplayName != "" {
			fields["recipientName"] = m.RecipientDisplayName
		}
	}
	return fields
}

func MessageFromDoc(doc store.Doc) (Message, error) {
	if err := requireCollection(doc, CollectionMessages); err != nil {
		return Message{}, err
	}
	recipient, err := stringField(doc.Fields, "recipientId")
	if err != nil {
		return Message{}, err
	}
	sender, err := stringField(doc.Fields, "senderId")
	if err != nil {
		return Message{}, err
	}
	senderName, err := stringField(doc.Fields, "senderName")
	if err != nil {
		return Message{}, err
	}
	personal, err := boolField(doc.Fields, "personal")
	if err != nil {
		return Message{}, err
	}
	text, err := stringField(doc.Fields, "text")
	if err != nil {
		return Message{}, err
	}
	createdAt, err := timeField(doc.Fields, "createdAt")
	if err != nil {
		return Message{}, err
	}
	return Message{
		RecipientID:          recipient,
		RecipientDisplayName: optionalString(doc.Fields, "recipientName"),
		SenderID:             sender,
		SenderDisplayName:    senderName,
		IsPersonal:           personal,
		Text:                 text,
		Read:                 optionalBool(doc.Fields, "read"),
		CreatedAt:            createdAt,
	}, nil
}
