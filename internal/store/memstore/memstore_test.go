package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"heatwave/internal/store"
)

func TestInsertAndGetOnce_FilterAndOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, text := range []string{"first", "second", "third"} {
		_, err := s.Insert(ctx, "messages", map[string]any{
			"recipientId": "bob",
			"text":        text,
			"createdAt":   base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := s.Insert(ctx, "messages", map[string]any{
		"recipientId": "alice",
		"text":        "other",
		"createdAt":   base,
	})
	require.NoError(t, err)

	docs, err := s.GetOnce(ctx, store.Query{
		Collection: "messages",
		Filters:    []store.Filter{store.Where("recipientId", "bob")},
		OrderBy:    "createdAt",
		Desc:       true,
	})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	require.Equal(t, "third", docs[0].Fields["text"])
	require.Equal(t, "first", docs[2].Fields["text"])
}

func TestSubscribe_InitialAndChangeSnapshots(t *testing.T) {
	s := New()
	ctx := context.Background()

	var firings [][]store.Doc
	sub, err := s.Subscribe(ctx, store.Query{
		Collection: "contacts",
		Filters:    []store.Filter{store.Where("ownerId", "alice")},
	}, func(docs []store.Doc) {
		firings = append(firings, docs)
	})
	require.NoError(t, err)
	require.Len(t, firings, 1, "initial snapshot fires immediately")
	require.Empty(t, firings[0])

	_, err = s.Insert(ctx, "contacts", map[string]any{
		"ownerId": "alice", "partnerId": "bob", "createdAt": time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, firings, 2)
	require.Len(t, firings[1], 1)

	sub.Cancel()
	_, err = s.Insert(ctx, "contacts", map[string]any{
		"ownerId": "alice", "partnerId": "carol", "createdAt": time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, firings, 2, "no deliveries after Cancel")
}

func TestSubscribe_CallbackMayMutate(t *testing.T) {
	// Mirrors the Wave read transition: the callback updates unread docs
	// it just received.
	s := New()
	ctx := context.Background()

	_, err := s.Insert(ctx, "messages", map[string]any{
		"recipientId": "me", "read": false, "createdAt": time.Now(),
	})
	require.NoError(t, err)

	_, err = s.Subscribe(ctx, store.Query{Collection: "messages"}, func(docs []store.Doc) {
		for _, d := range docs {
			if read, _ := d.Fields["read"].(bool); !read {
				_ = s.Update(ctx, d.Ref, map[string]any{"read": true})
			}
		}
	})
	require.NoError(t, err)

	docs, err := s.GetOnce(ctx, store.Query{Collection: "messages"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, true, docs[0].Fields["read"])
}

func TestUpdate_MissingDocumentFails(t *testing.T) {
	s := New()
	err := s.Update(context.Background(), store.Ref{Collection: "messages", ID: "nope"}, map[string]any{"read": true})
	require.Error(t, err)
}

func TestWhereIn(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, sender := range []string{"a", "b", "c"} {
		_, err := s.Insert(ctx, "messages", map[string]any{"senderId": sender})
		require.NoError(t, err)
	}
	docs, err := s.GetOnce(ctx, store.Query{
		Collection: "messages",
		Filters:    []store.Filter{store.WhereIn("senderId", "a", "c")},
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
}

func TestCallerCannotMutateStoredFields(t *testing.T) {
	s := New()
	ctx := context.Background()
	fields := map[string]any{"text": "orig"}
	ref, err := s.Insert(ctx, "messages", fields)
	require.NoError(t, err)

	fields["text"] = "changed after insert"
	docs, err := s.GetOnce(ctx, store.Query{Collection: "messages"})
	require.NoError(t, err)
	require.Equal(t, "orig", docs[0].Fields["text"])

	docs[0].Fields["text"] = "changed via snapshot"
	docs, err = s.GetOnce(ctx, store.Query{Collection: "messages"})
	require.NoError(t, err)
	require.Equal(t, "orig", docs[0].Fields["text"])
	_ = ref
}

func TestNotify_LaterSubscriptionSeesReentrantWrite(t *testing.T) {
	s := New()
	ctx := context.Background()

	// The first subscription reacts to an unread message by flipping it,
	// the way the thread view acknowledges. The second subscription,
	// registered after it, must never end a pass on the pre-flip state.
	_, err := s.Subscribe(ctx, store.Query{Collection: "messages"}, func(docs []store.Doc) {
		for _, doc := range docs {
			if doc.Fields["read"] == false {
				require.NoError(t, s.Update(ctx, doc.Ref, map[string]any{"read": true}))
			}
		}
	})
	require.NoError(t, err)

	var last []store.Doc
	_, err = s.Subscribe(ctx, store.Query{Collection: "messages"}, func(docs []store.Doc) {
		last = docs
	})
	require.NoError(t, err)

	_, err = s.Insert(ctx, "messages", map[string]any{"text": "hi", "read": false})
	require.NoError(t, err)

	require.Len(t, last, 1)
	require.Equal(t, true, last[0].Fields["read"])
}
