package models

import (
	"time"

	"heatwave/internal/store"
)

// BlockEdge suppresses contact and Heat visibility from BlockedID toward
// BlockerID. WasContact and BlockedDisplayName capture enough state at
// block time to partially reverse the block later. The store enforces no
// uniqueness, so duplicate edges for the same pair must be tolerated.
type BlockEdge struct {
	BlockerID          string
	BlockedID          string
	WasContact         bool
	BlockedDisplayName string
	CreatedAt          time.Time
}

func (e BlockEdge) Fields() map[string]any {
	fields := map[string]any{
		"blockerId":  e.BlockerID,
		"blockedId":  e.BlockedID,
		"wasContact": e.WasContact,
		"createdAt":  e.CreatedAt,
	}
	if e.BlockedDisplayName != "" {
		fields["blockedName"] = e.BlockedDisplayName
	}
	return fields
}

func BlockEdgeFromDoc(doc store.Doc) (BlockEdge, error) {
	if err := requireCollection(doc, CollectionBlocks); err != nil {
		return BlockEdge{}, err
	}
	blocker, err := stringField(doc.Fields, "blockerId")
	if err != nil {
		return BlockEdge{}, err
	}
	blocked, err := stringField(doc.Fields, "blockedId")
	if err != nil {
		return BlockEdge{}, err
	}
	wasContact, err := boolField(doc.Fields, "wasContact")
	if err != nil {
		return BlockEdge{}, err
	}
	createdAt, err := timeField(doc.Fields, "createdAt")
	if err != nil {
		return BlockEdge{}, err
	}
	return BlockEdge{
		BlockerID:          blocker,
		BlockedID:          blocked,
		WasContact:         wasContact,
		BlockedDisplayName: optionalString(doc.Fields, "blockedName"),
		CreatedAt:          createdAt,
	}, nil
}

// DisplayName returns the captured display name, falling back to the handle.
func (e BlockEdge) DisplayName() string {
	if e.BlockedDisplayName != "" {
		return e.BlockedDisplayName
	}
	return e.BlockedID
}
