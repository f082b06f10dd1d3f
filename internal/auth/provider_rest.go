// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package auth

import (
	"bytes"
	stdctx "context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/davitran/aperture/internal/platform/apperr"
)

// RESTProvider implements [IdentityProvider] against an identity-toolkit
// style REST API (sign-in, sign-up, account update, OOB codes, and a token
// endpoint exchanging a refresh token for a fresh ID token).
//
// The provider holds the refresh token and the signed-in email in memory
// only. ID tokens are never stored: [RESTProvider.Token] exchanges the
// refresh token on every call, which keeps the "always fresh" contract
// without tracking expiry locally.
type RESTProvider struct {
	baseURL string
	client  *http.Client

	mu           sync.Mutex
	email        string
	userID       string
	refreshToken string
	callbacks    []sessionCallback
	nextID       uint64
}

type sessionCallback struct {
	id uint64
	fn func(identity *Identity)
}

// NewRESTProvider creates a provider for the given identity endpoint base URL.
func NewRESTProvider(baseURL string, client *http.Client) *RESTProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &RESTProvider{baseURL: baseURL, client: client}
}

// # Wire Shapes

type credentialResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	IDToken string `json:"id_token"`
	UserID  string `json:"user_id"`
}

// post sends a JSON payload to an identity endpoint and decodes the response.
func (provider *RESTProvider) post(context stdctx.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Validation("identity "+path, err)
	}

	request, err := http.NewRequestWithContext(context, http.MethodPost, provider.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return apperr.Network("identity "+path, err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := provider.client.Do(request)
	if err != nil {
		return apperr.Network("identity "+path, err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		// Identity endpoints return {"error":{"message":...}} on rejection.
		var rejection struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(response.Body).Decode(&rejection)
		message := rejection.Error.Message
		if message == "" {
			message = fmt.Sprintf("identity provider rejected the request (status %d)", response.StatusCode)
		}
		return apperr.Auth(message, fmt.Errorf("identity %s: status %d", path, response.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return apperr.Validation("identity "+path, err)
	}
	return nil
}

// adopt records the credential and notifies session subscribers.
func (provider *RESTProvider) adopt(credential credentialResponse) *Identity {
	userID := credential.LocalID
	if userID == "" {
		// Some deployments omit localId; fall back to the ID token subject.
		// Claims are read unverified: the client is not the token audience
		// validator, the server is.
		userID = subjectOf(credential.IDToken)
	}

	identity := &Identity{UserID: userID, Email: credential.Email}

	provider.mu.Lock()
	provider.email = credential.Email
	provider.userID = userID
	provider.refreshToken = credential.RefreshToken
	callbacks := snapshotCallbacks(provider.callbacks)
	provider.mu.Unlock()

	for _, callback := range callbacks {
		callback.fn(identity)
	}
	return identity
}

// subjectOf extracts the unverified "sub" claim from a JWT.
func subjectOf(token string) string {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return ""
	}
	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return ""
	}
	return subject
}

func snapshotCallbacks(callbacks []sessionCallback) []sessionCallback {
	out := make([]sessionCallback, len(callbacks))
	copy(out, callbacks)
	return out
}

// # IdentityProvider Implementation

// SignIn authenticates with email and password.
func (provider *RESTProvider) SignIn(context stdctx.Context, email, password string) (*Identity, error) {
	var credential credentialResponse
	err := provider.post(context, "/v1/accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &credential)
	if err != nil {
		return nil, err
	}
	return provider.adopt(credential), nil
}

// SignUp creates a new provider identity.
func (provider *RESTProvider) SignUp(context stdctx.Context, email, password string) (*Identity, error) {
	var credential credentialResponse
	err := provider.post(context, "/v1/accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &credential)
	if err != nil {
		return nil, err
	}
	return provider.adopt(credential), nil
}

// SignOut invalidates the in-memory session and notifies subscribers with nil.
func (provider *RESTProvider) SignOut(_ stdctx.Context) error {
	provider.mu.Lock()
	provider.email = ""
	provider.userID = ""
	provider.refreshToken = ""
	callbacks := snapshotCallbacks(provider.callbacks)
	provider.mu.Unlock()

	for _, callback := range callbacks {
		callback.fn(nil)
	}
	return nil
}

// OnSessionChange registers a session transition callback.
func (provider *RESTProvider) OnSessionChange(callback func(identity *Identity)) func() {
	provider.mu.Lock()
	provider.nextID++
	id := provider.nextID
	provider.callbacks = append(provider.callbacks, sessionCallback{id: id, fn: callback})
	provider.mu.Unlock()

	return func() {
		provider.mu.Lock()
		defer provider.mu.Unlock()
		for i, registered := range provider.callbacks {
			if registered.id == id {
				provider.callbacks = append(provider.callbacks[:i:i], provider.callbacks[i+1:]...)
				return
			}
		}
	}
}

// Token exchanges the refresh token for a fresh ID token. Returns empty
// without error when no user is signed in.
func (provider *RESTProvider) Token(context stdctx.Context) (string, error) {
	provider.mu.Lock()
	refreshToken := provider.refreshToken
	provider.mu.Unlock()

	if refreshToken == "" {
		return "", nil
	}

	var exchanged tokenResponse
	err := provider.post(context, "/v1/token", map[string]any{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}, &exchanged)
	if err != nil {
		return "", err
	}
	return exchanged.IDToken, nil
}

// Reauthenticate re-signs-in with the stored email and the supplied password.
func (provider *RESTProvider) Reauthenticate(context stdctx.Context, currentPassword string) error {
	provider.mu.Lock()
	email := provider.email
	provider.mu.Unlock()

	if email == "" {
		return apperr.Auth("No user signed in", nil)
	}
	_, err := provider.SignIn(context, email, currentPassword)
	return err
}

// UpdatePassword replaces the current user's password.
func (provider *RESTProvider) UpdatePassword(context stdctx.Context, newPassword string) error {
	token, err := provider.Token(context)
	if err != nil {
		return err
	}
	return provider.post(context, "/v1/accounts:update", map[string]any{
		"idToken":  token,
		"password": newPassword,
	}, nil)
}

// UpdateEmail replaces the current user's email.
func (provider *RESTProvider) UpdateEmail(context stdctx.Context, newEmail string) error {
	token, err := provider.Token(context)
	if err != nil {
		return err
	}
	if err := provider.post(context, "/v1/accounts:update", map[string]any{
		"idToken": token,
		"email":   newEmail,
	}, nil); err != nil {
		return err
	}

	provider.mu.Lock()
	provider.email = newEmail
	provider.mu.Unlock()
	return nil
}

// SendPasswordReset asks the provider to mail a reset link.
func (provider *RESTProvider) SendPasswordReset(context stdctx.Context, email string) error {
	return provider.post(context, "/v1/accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
}
