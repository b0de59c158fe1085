package models

import "heatwave/internal/store"

// UserProfile is the canonical account record. Handle is the user-chosen
// unique identifier; DisplayName is free-form. ExternalID binds the profile
// to an external identity when the account came from that flow, and
// CredentialSecret holds the local password hash when one was set. Either
// may be absent.
type UserProfile struct {
	ExternalID       string
	Handle           string
	DisplayName      string
	Email            string
	CredentialSecret string
}

func (p UserProfile) Fields() map[string]any {
	fields := map[string]any{
		"handle":      p.Handle,
		"displayName": p.DisplayName,
	}
	if p.ExternalID != "" {
		fields["externalId"] = p.ExternalID
	}
	if p.Email != "" {
		fields["email"] = p.Email
	}
	if p.CredentialSecret != "" {
		fields["credential"] = p.CredentialSecret
	}
	return fields
}

func ProfileFromDoc(doc store.Doc) (UserProfile, error) {
	if err := requireCollection(doc, CollectionUsers); err != nil {
		return UserProfile{}, err
	}
	handle, err := stringField(doc.Fields, "handle")
	if err != nil {
		return UserProfile{}, err
	}
	displayName, err := stringField(doc.Fields, "displayName")
	if err != nil {
		return UserProfile{}, err
	}
	return UserProfile{
		ExternalID:       optionalString(doc.Fields, "externalId"),
		Handle:           handle,
		DisplayName:      displayName,
		Email:            optionalString(doc.Fields, "email"),
		CredentialSecret: optionalString(doc.Fields, "credential"),
	}, nil
}
