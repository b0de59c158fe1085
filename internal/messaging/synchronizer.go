// Package messaging owns the three live message scopes and the two send
// paths. Heat is the public inbox of non-personal messages, Recency folds
// personal traffic into per-partner activity summaries, and a Wave is the
// two-party personal thread. Every subscription delivers full snapshots;
// there are no deltas.
package messaging

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"heatwave/internal/common"
	"heatwave/internal/logging"
	"heatwave/internal/models"
	"heatwave/internal/store"
)

// PartnerMeta is one row of the Recency view: a contact plus the state of
// their personal thread with me.
type PartnerMeta struct {
	Handle       string
	DisplayName  string
	Unread       int
	LastActivity time.Time
}

// Synchronizer builds message queries, decodes snapshots, and applies the
// read-transition side effect.
type Synchronizer struct {
	store store.Store
	log   logging.Logger
}

func NewSynchronizer(st store.Store, log logging.Logger) *Synchronizer {
	return &Synchronizer{store: st, log: log.With("module", "messaging")}
}

// SubscribeHeat attaches a live listener over my public inbox: non-personal
// messages addressed to me, oldest first. Anonymous messages always pass;
// identified senders present in excluded() are dropped from the snapshot.
// excluded is re-evaluated on every firing so a block takes effect on the
// next delivery without resubscribing.
func (s *Synchronizer) SubscribeHeat(ctx context.Context, me string, excluded func() map[string]struct{}, fn func([]models.Message)) (store.Subscription, error) {
	q := store.Query{
		Collection: models.CollectionMessages,
		Filters: []store.Filter{
			store.Where("recipientId", me),
			store.Where("personal", false),
		},
		OrderBy: "createdAt",
	}
	return s.store.Subscribe(ctx, q, func(docs []store.Doc) {
		var drop map[string]struct{}
		if excluded != nil {
			drop = excluded()
		}
		msgs := make([]models.Message, 0, len(docs))
		for _, doc := range docs {
			msg, err := models.MessageFromDoc(doc)
			if err != nil {
				continue
			}
			if !msg.Anonymous() {
				if _, blocked := drop[msg.SenderID]; blocked {
					continue
				}
			}
			msgs = append(msgs, msg)
		}
		fn(msgs)
	})
}

// SubscribeRecency attaches a live listener that folds personal traffic into
// one PartnerMeta per contact. Every contact appears even with no messages
// yet. Unread counts only messages the partner sent me that are still
// unread; LastActivity is the newest message in either direction. Rows are
// ordered by activity, newest first, with never-active contacts last in
// contact order.
func (s *Synchronizer) SubscribeRecency(ctx context.Context, me string, contactsFn func() []models.ContactEdge, fn func([]PartnerMeta)) (store.Subscription, error) {
	q := store.Query{
		Collection: models.CollectionMessages,
		Filters:    []store.Filter{store.Where("personal", true)},
		OrderBy:    "createdAt",
		Desc:       true,
	}
	return s.store.Subscribe(ctx, q, func(docs []store.Doc) {
		contacts := contactsFn()
		metas := make([]PartnerMeta, 0, len(contacts))
		index := make(map[string]int, len(contacts))
		for _, edge := range contacts {
			index[edge.PartnerID] = len(metas)
			metas = append(metas, PartnerMeta{
				Handle:      edge.PartnerID,
				DisplayName: edge.DisplayName(),
			})
		}

		for _, doc := range docs {
			msg, err := models.MessageFromDoc(doc)
			if err != nil {
				continue
			}
			partner := ""
			switch {
			case msg.RecipientID == me:
				partner = msg.SenderID
			case msg.SenderID == me:
				partner = msg.RecipientID
			default:
				continue
			}
			i, ok := index[partner]
			if !ok {
				continue
			}
			if msg.CreatedAt.After(metas[i].LastActivity) {
				metas[i].LastActivity = msg.CreatedAt
			}
			if msg.RecipientID == me && msg.SenderID == partner && !msg.Read {
				metas[i].Unread++
			}
		}

		sort.SliceStable(metas, func(a, b int) bool {
			return metas[a].LastActivity.After(metas[b].LastActivity)
		})
		fn(metas)
	})
}

// SubscribeWave attaches a live listener over the personal thread between me
// and partner, oldest first. The pair filter also binds on display names:
// partner-sent messages must carry partnerName as the sender name, and
// my messages must have been addressed to partnerName as the recipient. A
// message sent under a since-renamed identity silently falls out of the
// thread.
//
// Viewing is acknowledging: before each delivery, unread partner→me
// messages in the snapshot are flipped to read. The flips re-fire the
// listener; the follow-up snapshot has nothing left to flip.
func (s *Synchronizer) SubscribeWave(ctx context.Context, me, partner, partnerName string, fn func([]models.Message)) (store.Subscription, error) {
	q := store.Query{
		Collection: models.CollectionMessages,
		Filters: []store.Filter{
			store.Where("personal", true),
			store.WhereIn("senderId", me, partner),
		},
		OrderBy: "createdAt",
	}
	return s.store.Subscribe(ctx, q, func(docs []store.Doc) {
		msgs := make([]models.Message, 0, len(docs))
		for _, doc := range docs {
			msg, err := models.MessageFromDoc(doc)
			if err != nil {
				continue
			}
			fromPartner := msg.SenderID == partner && msg.RecipientID == me && msg.SenderDisplayName == partnerName
			fromMe := msg.SenderID == me && msg.RecipientID == partner && msg.RecipientDisplayName == partnerName
			if !fromPartner && !fromMe {
				continue
			}
			if fromPartner && !msg.Read {
				if err := s.store.Update(ctx, doc.Ref, map[string]any{"read": true}); err != nil {
					s.log.Warn(ctx, "read acknowledgement failed", "partner", partner, "error", err)
				}
			}
			msgs = append(msgs, msg)
		}
		fn(msgs)
	})
}

// SendDirect sends a personal-or-public message to partner. The personal
// flag is a one-shot read of whether the recipient currently holds a
// contact edge back to me; it is baked into the message and never
// recomputed, so a later unlink does not reclassify old traffic.
func (s *Synchronizer) SendDirect(ctx context.Context, me models.UserProfile, partner, partnerName, text string) error {
	partner = strings.TrimSpace(partner)
	text = strings.TrimSpace(text)
	if partner == "" || text == "" {
		return common.ErrValidation
	}

	reverse, err := s.store.GetOnce(ctx, store.Query{
		Collection: models.CollectionContacts,
		Filters: []store.Filter{
			store.Where("ownerId", partner),
			store.Where("partnerId", me.Handle),
		},
	})
	if err != nil {
		return fmt.Errorf("reverse edge lookup: %w", err)
	}

	msg := models.Message{
		RecipientID:          partner,
		RecipientDisplayName: partnerName,
		SenderID:             me.Handle,
		SenderDisplayName:    me.DisplayName,
		IsPersonal:           len(reverse) > 0,
		Text:                 text,
		Read:                 false,
		CreatedAt:            time.Now().UTC(),
	}
	if _, err := s.store.Insert(ctx, models.CollectionMessages, msg.Fields()); err != nil {
		return fmt.Errorf("%w: send message: %v", common.ErrTransient, err)
	}
	return nil
}

// SendAnonymous sends a public message with no sender identity. It always
// lands in the recipient's Heat and carries no read state.
func (s *Synchronizer) SendAnonymous(ctx context.Context, recipient, text string) error {
	recipient = strings.TrimSpace(recipient)
	text = strings.TrimSpace(text)
	if recipient == "" || text == "" {
		return common.ErrValidation
	}

	msg := models.Message{
		RecipientID:       recipient,
		SenderID:          "",
		SenderDisplayName: models.AnonymousSenderName,
		IsPersonal:        false,
		Text:              text,
		CreatedAt:         time.Now().UTC(),
	}
	if _, err := s.store.Insert(ctx, models.CollectionMessages, msg.Fields()); err != nil {
		return fmt.Errorf("%w: send message: %v", common.ErrTransient, err)
	}
	return nil
}
