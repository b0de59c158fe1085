// Package contacts manages directed contact edges and block edges. Mutuality
// is a convention over two directed edges, not a stored entity, so every
// operation here is a sequence of independent single-document writes with no
// transactional envelope. Partial outcomes are an accepted state of the
// system and the read paths tolerate them.
package contacts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"heatwave/internal/common"
	"heatwave/internal/logging"
	"heatwave/internal/models"
	"heatwave/internal/store"
)

// Manager owns contact and block edge operations for one signed-in user.
type Manager struct {
	store store.Store
	log   logging.Logger
}

func NewManager(st store.Store, log logging.Logger) *Manager {
	return &Manager{store: st, log: log.With("module", "contacts")}
}

// LinkMutual writes both directed edges for me↔partner. The two inserts are
// independent and failures are swallowed: a one-sided link is a legitimate
// outcome, surfaced later as an anonymous-looking Heat message or a missing
// reverse edge. Duplicate edges from repeated promotion are tolerated.
func (m *Manager) LinkMutual(ctx context.Context, me models.UserProfile, partner, partnerName string) {
	now := time.Now().UTC()

	forward := models.ContactEdge{
		OwnerID:            me.Handle,
		PartnerID:          partner,
		PartnerDisplayName: partnerName,
		CreatedAt:          now,
	}
	if _, err := m.store.Insert(ctx, models.CollectionContacts, forward.Fields()); err != nil {
		m.log.Warn(ctx, "contact edge write failed", "owner", me.Handle, "partner", partner, "error", err)
	}

	reverse := models.ContactEdge{
		OwnerID:            partner,
		PartnerID:          me.Handle,
		PartnerDisplayName: me.DisplayName,
		CreatedAt:          now,
	}
	if _, err := m.store.Insert(ctx, models.CollectionContacts, reverse.Fields()); err != nil {
		m.log.Warn(ctx, "contact edge write failed", "owner", partner, "partner", me.Handle, "error", err)
	}
}

// UnlinkMutual deletes every edge in both directions between me and partner.
func (m *Manager) UnlinkMutual(ctx context.Context, me, partner string) error {
	if err := m.deleteEdges(ctx, me, partner); err != nil {
		return err
	}
	return m.deleteEdges(ctx, partner, me)
}

func (m *Manager) deleteEdges(ctx context.Context, owner, partner string) error {
	docs, err := m.store.GetOnce(ctx, store.Query{
		Collection: models.CollectionContacts,
		Filters: []store.Filter{
			store.Where("ownerId", owner),
			store.Where("partnerId", partner),
		},
	})
	if err != nil {
		return fmt.Errorf("contact edge lookup: %w", err)
	}
	for _, doc := range docs {
		if err := m.store.Delete(ctx, doc.Ref); err != nil {
			return fmt.Errorf("delete contact edge: %w", err)
		}
	}
	return nil
}

// Block records a block edge from me toward partner and then removes the
// mutual link. The contact lookup runs before the unlink so the edge's
// wasContact flag and cached display name reflect the pre-block state.
func (m *Manager) Block(ctx context.Context, me models.UserProfile, partner, partnerName string) error {
	partner = strings.TrimSpace(partner)
	if partner == "" {
		return common.ErrValidation
	}

	docs, err := m.store.GetOnce(ctx, store.Query{
		Collection: models.CollectionContacts,
		Filters: []store.Filter{
			store.Where("ownerId", me.Handle),
			store.Where("partnerId", partner),
		},
	})
	if err != nil {
		return fmt.Errorf("contact edge lookup: %w", err)
	}

	wasContact := len(docs) > 0
	name := partnerName
	if wasContact {
		if edge, err := models.ContactEdgeFromDoc(docs[0]); err == nil && edge.PartnerDisplayName != "" {
			name = edge.PartnerDisplayName
		}
	}

	edge := models.BlockEdge{
		BlockerID:          me.Handle,
		BlockedID:          partner,
		WasContact:         wasContact,
		BlockedDisplayName: name,
		CreatedAt:          time.Now().UTC(),
	}
	if _, err := m.store.Insert(ctx, models.CollectionBlocks, edge.Fields()); err != nil {
		return fmt.Errorf("create block edge: %w", err)
	}

	return m.UnlinkMutual(ctx, me.Handle, partner)
}

// Unblock deletes every block edge from me toward partner. For edges that
// captured wasContact, only the me→partner contact edge is recreated; the
// partner's reverse edge stays gone until a fresh mutual promotion. The
// recreate is best-effort.
func (m *Manager) Unblock(ctx context.Context, me, partner string) error {
	docs, err := m.store.GetOnce(ctx, store.Query{
		Collection: models.CollectionBlocks,
		Filters: []store.Filter{
			store.Where("blockerId", me),
			store.Where("blockedId", partner),
		},
	})
	if err != nil {
		return fmt.Errorf("block edge lookup: %w", err)
	}

	restore := false
	restoredName := ""
	for _, doc := range docs {
		edge, err := models.BlockEdgeFromDoc(doc)
		if err == nil && edge.WasContact {
			restore = true
			if restoredName == "" {
				restoredName = edge.BlockedDisplayName
			}
		}
		if err := m.store.Delete(ctx, doc.Ref); err != nil {
			return fmt.Errorf("delete block edge: %w", err)
		}
	}

	if restore {
		edge := models.ContactEdge{
			OwnerID:            me,
			PartnerID:          partner,
			PartnerDisplayName: restoredName,
			CreatedAt:          time.Now().UTC(),
		}
		if _, err := m.store.Insert(ctx, models.CollectionContacts, edge.Fields()); err != nil {
			m.log.Warn(ctx, "contact edge restore failed", "owner", me, "partner", partner, "error", err)
		}
	}
	return nil
}

// RenameSelf changes the profile's handle and display name and rewrites
// every contact edge that references it. The writes are independent; the
// first failure is returned after all writes were attempted, and a partial
// rename is left as-is for the caller to surface.
func (m *Manager) RenameSelf(ctx context.Context, profile models.UserProfile, newHandle, newDisplayName string) (models.UserProfile, error) {
	newHandle = strings.TrimSpace(newHandle)
	newDisplayName = strings.TrimSpace(newDisplayName)
	if newHandle == "" || newDisplayName == "" {
		return models.UserProfile{}, common.ErrValidation
	}
	if newHandle == profile.Handle && newDisplayName == profile.DisplayName {
		return profile, nil
	}

	if newHandle != profile.Handle {
		taken, err := m.store.GetOnce(ctx, store.Query{
			Collection: models.CollectionUsers,
			Filters:    []store.Filter{store.Where("handle", newHandle)},
		})
		if err != nil {
			return models.UserProfile{}, fmt.Errorf("handle lookup: %w", err)
		}
		if len(taken) > 0 {
			return models.UserProfile{}, fmt.Errorf("%w: %s", common.ErrConflict, newHandle)
		}
	}

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	// Profile documents: matched by external identity when bound, by the
	// old handle otherwise.
	profileFilter := store.Where("handle", profile.Handle)
	if profile.ExternalID != "" {
		profileFilter = store.Where("externalId", profile.ExternalID)
	}
	profileDocs, err := m.store.GetOnce(ctx, store.Query{
		Collection: models.CollectionUsers,
		Filters:    []store.Filter{profileFilter},
	})
	keep(err)
	for _, doc := range profileDocs {
		keep(m.store.Update(ctx, doc.Ref, map[string]any{
			"handle":      newHandle,
			"displayName": newDisplayName,
		}))
	}

	// Edges I own.
	owned, err := m.store.GetOnce(ctx, store.Query{
		Collection: models.CollectionContacts,
		Filters:    []store.Filter{store.Where("ownerId", profile.Handle)},
	})
	keep(err)
	for _, doc := range owned {
		keep(m.store.Update(ctx, doc.Ref, map[string]any{"ownerId": newHandle}))
	}

	// Edges pointing at me. The cached partnerName carries the old identity,
	// so it is refreshed to the new display name.
	pointing, err := m.store.GetOnce(ctx, store.Query{
		Collection: models.CollectionContacts,
		Filters:    []store.Filter{store.Where("partnerId", profile.Handle)},
	})
	keep(err)
	for _, doc := range pointing {
		keep(m.store.Update(ctx, doc.Ref, map[string]any{
			"partnerId":   newHandle,
			"partnerName": newDisplayName,
		}))
	}

	if firstErr != nil {
		m.log.Warn(ctx, "rename left partial state", "old", profile.Handle, "new", newHandle, "error", firstErr)
		return models.UserProfile{}, firstErr
	}

	m.log.Info(ctx, "profile renamed", "old", profile.Handle, "new", newHandle)
	profile.Handle = newHandle
	profile.DisplayName = newDisplayName
	return profile, nil
}

// Contacts returns my contact edges, newest first, deduplicated by partner
// handle (first occurrence wins). Duplicate edges stay in the store; the
// dedupe is display-time only.
func (m *Manager) Contacts(ctx context.Context, me string) ([]models.ContactEdge, error) {
	docs, err := m.store.GetOnce(ctx, contactsQuery(me))
	if err != nil {
		return nil, fmt.Errorf("contacts lookup: %w", err)
	}
	return dedupeEdges(decodeEdges(docs)), nil
}

// Blocked returns my block edges, newest first.
func (m *Manager) Blocked(ctx context.Context, me string) ([]models.BlockEdge, error) {
	docs, err := m.store.GetOnce(ctx, blocksQuery(me))
	if err != nil {
		return nil, fmt.Errorf("blocks lookup: %w", err)
	}
	return decodeBlocks(docs), nil
}

// SubscribeContacts attaches a live listener over my contact edges. Each
// firing delivers the full deduplicated list.
func (m *Manager) SubscribeContacts(ctx context.Context, me string, fn func([]models.ContactEdge)) (store.Subscription, error) {
	return m.store.Subscribe(ctx, contactsQuery(me), func(docs []store.Doc) {
		fn(dedupeEdges(decodeEdges(docs)))
	})
}

// SubscribeBlocked attaches a live listener over my block edges.
func (m *Manager) SubscribeBlocked(ctx context.Context, me string, fn func([]models.BlockEdge)) (store.Subscription, error) {
	return m.store.Subscribe(ctx, blocksQuery(me), func(docs []store.Doc) {
		fn(decodeBlocks(docs))
	})
}

func contactsQuery(me string) store.Query {
	return store.Query{
		Collection: models.CollectionContacts,
		Filters:    []store.Filter{store.Where("ownerId", me)},
		OrderBy:    "createdAt",
		Desc:       true,
	}
}

func blocksQuery(me string) store.Query {
	return store.Query{
		Collection: models.CollectionBlocks,
		Filters:    []store.Filter{store.Where("blockerId", me)},
		OrderBy:    "createdAt",
		Desc:       true,
	}
}

func decodeEdges(docs []store.Doc) []models.ContactEdge {
	edges := make([]models.ContactEdge, 0, len(docs))
	for _, doc := range docs {
		edge, err := models.ContactEdgeFromDoc(doc)
		if err != nil {
			continue
		}
		edges = append(edges, edge)
	}
	return edges
}

func decodeBlocks(docs []store.Doc) []models.BlockEdge {
	edges := make([]models.BlockEdge, 0, len(docs))
	for _, doc := range docs {
		edge, err := models.BlockEdgeFromDoc(doc)
		if err != nil {
			continue
		}
		edges = append(edges, edge)
	}
	return edges
}

func dedupeEdges(edges []models.ContactEdge) []models.ContactEdge {
	seen := make(map[string]struct{}, len(edges))
	out := make([]models.ContactEdge, 0, len(edges))
	for _, edge := range edges {
		if _, ok := seen[edge.PartnerID]; ok {
			continue
		}
		seen[edge.PartnerID] = struct{}{}
		out = append(out, edge)
	}
	return out
}
