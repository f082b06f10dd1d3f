// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/davitran/aperture/internal/httpclient"
)

// Profile is the user-profile record kept by the backing profile store. It
// is separate from the identity provider: registration creates the identity
// first and then writes this record with default counters.
type Profile struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Bio            string   `json:"bio"`
	PostRating     int      `json:"postRating"`
	CommentsRating int      `json:"commentsRating"`
	Followers      []string `json:"followers"`
	Following      []string `json:"following"`
}

// NewProfile builds the initial profile written right after registration:
// zero ratings and empty follower/following lists.
func NewProfile(name, email, bio string) *Profile {
	return &Profile{
		Name:      name,
		Email:     email,
		Bio:       bio,
		Followers: []string{},
		Following: []string{},
	}
}

// # Profile Store Contract

// ProfileStore is the backing user-profile service.
type ProfileStore interface {

	/*
		Create writes the initial profile record for a new user.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - profile: *Profile

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, userID string, profile *Profile) error

	/*
		Fetch returns the profile record for a user.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - *Profile: Hydrated record
		  - error: Retrieval failures
	*/
	Fetch(context context.Context, userID string) (*Profile, error)
}

// RESTProfileStore implements [ProfileStore] against the REST backend using
// the authorized client.
type RESTProfileStore struct {
	client  *httpclient.Client
	baseURL string
}

// NewRESTProfileStore creates a profile store over the given API base URL.
func NewRESTProfileStore(client *httpclient.Client, baseURL string) *RESTProfileStore {
	return &RESTProfileStore{client: client, baseURL: baseURL}
}

// Create writes the initial profile record via PUT /users/{id}.
func (store *RESTProfileStore) Create(context context.Context, userID string, profile *Profile) error {
	url := fmt.Sprintf("%s/users/%s", store.baseURL, userID)
	return store.client.DoJSON(context, http.MethodPut, url, profile, nil)
}

// Fetch returns the profile record via GET /users/{id}.
func (store *RESTProfileStore) Fetch(context context.Context, userID string) (*Profile, error) {
	url := fmt.Sprintf("%s/users/%s", store.baseURL, userID)
	profile := &Profile{}
	if err := store.client.DoJSON(context, http.MethodGet, url, nil, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
