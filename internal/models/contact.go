package models

import (
	"time"

	"heatwave/internal/store"
)

// ContactEdge is a directed contact relationship owned by OwnerID.
// A mutual contact is a convention, not a stored entity: it exists only when
// both (A→B) and (B→A) edges are present. PartnerDisplayName is a cached
// copy of the partner's display name at edge-creation time and is not kept
// in sync afterwards.
type ContactEdge struct {
	OwnerID            string
	PartnerID          string
	PartnerDisplayName string
	CreatedAt          time.Time
}

func (e ContactEdge) Fields() map[string]any {
	fields := map[string]any{
		"ownerId":   e.OwnerID,
		"partnerId": e.PartnerID,
		"createdAt": e.CreatedAt,
	}
	if e.PartnerDisplayName != "" {
		fields["partnerName"] = e.PartnerDisplayName
	}
	return fields
}

func ContactEdgeFromDoc(doc store.Doc) (ContactEdge, error) {
	if err := requireCollection(doc, CollectionContacts); err != nil {
		return ContactEdge{}, err
	}
	owner, err := stringField(doc.Fields, "ownerId")
	if err != nil {
		return ContactEdge{}, err
	}
	partner, err := stringField(doc.Fields, "partnerId")
	if err != nil {
		return ContactEdge{}, err
	}
	createdAt, err := timeField(doc.Fields, "createdAt")
	if err != nil {
		return ContactEdge{}, err
	}
	return ContactEdge{
		OwnerID:            owner,
		PartnerID:          partner,
		PartnerDisplayName: optionalString(doc.Fields, "partnerName"),
		CreatedAt:          createdAt,
	}, nil
}

// DisplayName returns the cached partner name, falling back to the handle.
func (e ContactEdge) DisplayName() string {
	if e.PartnerDisplayName != "" {
		return e.PartnerDisplayName
	}
	return e.PartnerID
}
