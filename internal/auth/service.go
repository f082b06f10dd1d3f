// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

/*
Package auth bridges the identity provider's asynchronous session callbacks
into the client core's subscriber model.

It maintains a locally persisted user-id cache so cold app starts, or screens
that only need a user id for displayed content, never block on provider
initialization.

Architecture:

  - Service: Orchestrates session state (Init, Login, Register, Logout).
  - IdentityProvider: Abstracted contract; any conforming provider works.
  - ProfileStore: The separate user-profile service written on registration.
  - Session cache: Last known user id under a fixed durable-storage key;
    tokens are never persisted and always re-derived.

# Review Process

This service is critical for account integrity. Any changes to the
registration or re-authentication flow must be reviewed carefully.
*/
package auth

import (
	stdctx "context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/bluele/gcache"

	"github.com/davitran/aperture/internal/platform/apperr"
	"github.com/davitran/aperture/internal/platform/constants"
	"github.com/davitran/aperture/internal/platform/kvstore"
)

// SessionHandler receives the resolved identity on every session transition,
// or nil when signed out.
type SessionHandler func(identity *Identity)

// Service implements the client-side authentication session.
type Service struct {
	provider IdentityProvider
	store    kvstore.Store
	profiles ProfileStore
	logger   *slog.Logger

	// profileCache holds fetched profiles for a short TTL so screens that
	// render the same author repeatedly do not refetch on every paint.
	profileCache gcache.Cache
	profileTTL   time.Duration

	mu           sync.Mutex
	state        State
	identity     *Identity
	subscribers  []sessionCallback
	nextSubID    uint64
	providerStop func()
}

// NewService constructs the session service with its dependencies.
func NewService(
	provider IdentityProvider,
	store kvstore.Store,
	profiles ProfileStore,
	profileTTL time.Duration,
	logger *slog.Logger,
) *Service {
	if profileTTL <= 0 {
		profileTTL = constants.DefaultProfileCacheTTL
	}
	return &Service{
		provider:     provider,
		store:        store,
		profiles:     profiles,
		logger:       logger,
		profileCache: gcache.New(256).LRU().Build(),
		profileTTL:   profileTTL,
	}
}

// # Lifecycle

/*
Init registers exactly one underlying provider listener.

Description: On every provider callback the service updates the in-memory
session, persists or removes the cached user id, and notifies all local
subscribers with the resolved identity (or nil). Repeated Init calls are
no-ops; the listener survives until [Service.Cleanup].

Parameters:
  - context: context.Context
*/
func (service *Service) Init(context stdctx.Context) {
	service.mu.Lock()
	if service.providerStop != nil {
		service.mu.Unlock()
		return
	}
	// Reserve the slot before registering, so a reentrant Init from the
	// provider callback cannot register a second listener.
	service.providerStop = func() {}
	service.mu.Unlock()

	stop := service.provider.OnSessionChange(func(identity *Identity) {
		service.onSessionChange(context, identity)
	})

	service.mu.Lock()
	service.providerStop = stop
	service.mu.Unlock()
}

// Cleanup unregisters the provider listener. The session state machine has
// no terminal state; Cleanup exists for orderly process shutdown and tests.
func (service *Service) Cleanup() {
	service.mu.Lock()
	stop := service.providerStop
	service.providerStop = nil
	service.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// onSessionChange is the single funnel for provider transitions.
func (service *Service) onSessionChange(context stdctx.Context, identity *Identity) {
	service.mu.Lock()
	service.identity = identity
	if identity != nil {
		service.state = StateSignedIn
	} else {
		service.state = StateSignedOut
	}
	subscribers := snapshotCallbacks(service.subscribers)
	service.mu.Unlock()

	// Persist or remove the cached user id. Storage failures are non-fatal;
	// the in-memory session is already correct.
	if identity != nil {
		if err := service.store.Set(context, constants.KeyCurrentUserID, []byte(identity.UserID)); err != nil {
			service.logger.Warn("persist cached user id failed",
				slog.String("op", "session_change"),
				slog.String("user_id", identity.UserID),
				slog.Any("error", err),
			)
		}
	} else {
		if err := service.store.Delete(context, constants.KeyCurrentUserID); err != nil {
			service.logger.Warn("remove cached user id failed",
				slog.String("op", "session_change"),
				slog.Any("error", err),
			)
		}
	}

	for _, subscriber := range subscribers {
		subscriber.fn(identity)
	}
}

// # Subscriptions

/*
Subscribe registers a session callback and returns its unsubscribe func.

Description: If the session is already resolved (signed in or signed out)
the callback is invoked immediately with the current identity, so late
subscribers are not starved. Every call creates its own subscription; the
returned handle removes exactly that subscription.

Parameters:
  - callback: SessionHandler

Returns:
  - func(): Unsubscribe handle owned by the caller
*/
func (service *Service) Subscribe(callback SessionHandler) func() {
	service.mu.Lock()
	service.nextSubID++
	id := service.nextSubID
	service.subscribers = append(service.subscribers, sessionCallback{id: id, fn: callback})
	state, identity := service.state, service.identity
	service.mu.Unlock()

	if state != StateUnknown {
		callback(identity)
	}

	return func() {
		service.mu.Lock()
		defer service.mu.Unlock()
		for i, subscriber := range service.subscribers {
			if subscriber.id == id {
				service.subscribers = append(service.subscribers[:i:i], service.subscribers[i+1:]...)
				return
			}
		}
	}
}

// State returns the last known authentication state.
func (service *Service) State() State {
	service.mu.Lock()
	defer service.mu.Unlock()
	return service.state
}

// # Session Operations

/*
Login authenticates with the provider and persists the user id.

Parameters:
  - context: context.Context
  - email: string
  - password: string

Returns:
  - *Identity: Resolved identity
  - error: apperr.Auth carrying the provider message
*/
func (service *Service) Login(context stdctx.Context, email, password string) (*Identity, error) {
	identity, err := service.provider.SignIn(context, email, password)
	if err != nil {
		service.logger.Warn("login failed",
			slog.String("op", "login"),
			slog.Any("error", err),
		)
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, apperr.Auth("Login failed", err)
	}

	// Adopt the identity directly so CurrentUserID resolves the new user
	// even before any subscriber callback fires.
	service.adopt(context, identity)
	return identity, nil
}

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Bio      string
}

/*
Register creates the provider identity, then writes the initial profile
record with default counters.

Description: If the profile write fails after identity creation succeeded,
the account is in a partial state (identity without profile). That state is
surfaced as apperr.PartialRegistration carrying the user id so callers can
retry profile creation rather than re-register.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *Identity: Created identity
  - error: apperr.Auth, or apperr.PartialRegistration on profile failure
*/
func (service *Service) Register(context stdctx.Context, input RegisterInput) (*Identity, error) {
	identity, err := service.provider.SignUp(context, input.Email, input.Password)
	if err != nil {
		service.logger.Warn("register failed",
			slog.String("op", "register"),
			slog.Any("error", err),
		)
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, apperr.Auth("Registration failed", err)
	}

	service.adopt(context, identity)

	profile := NewProfile(input.Name, input.Email, input.Bio)
	if err := service.profiles.Create(context, identity.UserID, profile); err != nil {
		service.logger.Error("initial profile write failed",
			slog.String("op", "register"),
			slog.String("user_id", identity.UserID),
			slog.Any("error", err),
		)
		return nil, apperr.PartialRegistration(identity.UserID, err)
	}

	return identity, nil
}

// RetryProfileCreation re-attempts the initial profile write after a partial
// registration.
func (service *Service) RetryProfileCreation(context stdctx.Context, userID string, input RegisterInput) error {
	return service.profiles.Create(context, userID, NewProfile(input.Name, input.Email, input.Bio))
}

/*
Logout clears all local cached state and invalidates the provider session.

Description: The cached user id, feed snapshot, offline queue, and per-user
profile snapshots all live in the same store; a full Clear wipes them in one
call, then the provider session is signed out.

Parameters:
  - context: context.Context

Returns:
  - error: Provider sign-out failures (storage failures are logged only)
*/
func (service *Service) Logout(context stdctx.Context) error {
	if err := service.store.Clear(context); err != nil {
		service.logger.Warn("clear local state failed",
			slog.String("op", "logout"),
			slog.Any("error", err),
		)
	}
	service.profileCache.Purge()

	return service.provider.SignOut(context)
}

/*
CurrentUserID returns the best known user id without blocking on network.

Description: The in-memory id wins when the session is resolved; otherwise
the last persisted id is returned (possibly stale). Empty means no user is
known.

Parameters:
  - context: context.Context

Returns:
  - string: User id, or empty
*/
func (service *Service) CurrentUserID(context stdctx.Context) string {
	service.mu.Lock()
	identity := service.identity
	service.mu.Unlock()

	if identity != nil {
		return identity.UserID
	}

	cached, err := service.store.Get(context, constants.KeyCurrentUserID)
	if err != nil {
		if !apperr.IsCode(err, "NOT_FOUND") {
			service.logger.Warn("read cached user id failed",
				slog.String("op", "current_user_id"),
				slog.Any("error", err),
			)
		}
		return ""
	}
	return string(cached)
}

// Token returns a fresh short-lived bearer credential, or empty when no user
// is signed in. The token is re-derived on every call and never cached.
func (service *Service) Token(context stdctx.Context) (string, error) {
	return service.provider.Token(context)
}

/*
UpdatePassword re-authenticates with the current password, then mutates.

Parameters:
  - context: context.Context
  - newPassword: string
  - currentPassword: string

Returns:
  - error: apperr.ReauthRequired when re-authentication fails
*/
func (service *Service) UpdatePassword(context stdctx.Context, newPassword, currentPassword string) error {
	if err := service.provider.Reauthenticate(context, currentPassword); err != nil {
		service.logger.Warn("reauthentication failed",
			slog.String("op", "update_password"),
			slog.Any("error", err),
		)
		return apperr.ReauthRequired(err)
	}
	return service.provider.UpdatePassword(context, newPassword)
}

// UpdateEmail delegates to the provider with error normalization.
func (service *Service) UpdateEmail(context stdctx.Context, newEmail string) error {
	if err := service.provider.UpdateEmail(context, newEmail); err != nil {
		if apperr.IsAppError(err) {
			return err
		}
		return apperr.Auth("Email update failed", err)
	}
	return nil
}

// SendPasswordReset delegates to the provider with error normalization.
func (service *Service) SendPasswordReset(context stdctx.Context, email string) error {
	if err := service.provider.SendPasswordReset(context, email); err != nil {
		if apperr.IsAppError(err) {
			return err
		}
		return apperr.Auth("Password reset failed", err)
	}
	return nil
}

// adopt installs a resolved identity and persists its user id.
func (service *Service) adopt(context stdctx.Context, identity *Identity) {
	service.mu.Lock()
	service.identity = identity
	service.state = StateSignedIn
	service.mu.Unlock()

	if err := service.store.Set(context, constants.KeyCurrentUserID, []byte(identity.UserID)); err != nil {
		service.logger.Warn("persist cached user id failed",
			slog.String("op", "adopt"),
			slog.String("user_id", identity.UserID),
			slog.Any("error", err),
		)
	}
}

// # Profile Reads

/*
FetchProfile returns a user's profile, served from the in-memory TTL cache
when warm.

Description: Every successful fetch is also persisted as a durable snapshot
under "cachedProfile:<userID>". When the fetch fails, the snapshot is served
instead, so profile screens keep rendering offline; the error only surfaces
when no snapshot exists. Logout's store clear wipes the snapshots along with
everything else.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *Profile: Hydrated record, possibly a stale snapshot
  - error: Retrieval failures with no snapshot to fall back on
*/
func (service *Service) FetchProfile(context stdctx.Context, userID string) (*Profile, error) {
	if cached, err := service.profileCache.Get(userID); err == nil {
		return cached.(*Profile), nil
	}

	profile, err := service.profiles.Fetch(context, userID)
	if err != nil {
		if snapshot := service.loadProfileSnapshot(context, userID); snapshot != nil {
			service.logger.Warn("profile fetch failed, serving snapshot",
				slog.String("op", "fetch_profile"),
				slog.String("user_id", userID),
				slog.Any("error", err),
			)
			return snapshot, nil
		}
		return nil, err
	}

	if err := service.profileCache.SetWithExpire(userID, profile, service.profileTTL); err != nil {
		service.logger.Warn("profile cache set failed",
			slog.String("op", "fetch_profile"),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
	service.persistProfileSnapshot(context, userID, profile)
	return profile, nil
}

// persistProfileSnapshot writes the durable per-user profile snapshot.
// Storage failures are non-fatal; the live result is already on its way.
func (service *Service) persistProfileSnapshot(context stdctx.Context, userID string, profile *Profile) {
	blob, err := json.Marshal(profile)
	if err != nil {
		service.logger.Warn("profile snapshot encode failed",
			slog.String("op", "fetch_profile"),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return
	}
	if err := service.store.Set(context, constants.KeyProfilePrefix+userID, blob); err != nil {
		service.logger.Warn("profile snapshot persist failed",
			slog.String("op", "fetch_profile"),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// loadProfileSnapshot returns the durable snapshot, or nil when absent or
// undecodable. The stale snapshot stays out of the TTL cache so recovery
// refetches the live record.
func (service *Service) loadProfileSnapshot(context stdctx.Context, userID string) *Profile {
	blob, err := service.store.Get(context, constants.KeyProfilePrefix+userID)
	if err != nil {
		return nil
	}
	profile := &Profile{}
	if err := json.Unmarshal(blob, profile); err != nil {
		service.logger.Warn("profile snapshot decode failed",
			slog.String("op", "fetch_profile"),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
		return nil
	}
	return profile
}

// FetchDisplayName returns just the display name of a user's profile.
func (service *Service) FetchDisplayName(context stdctx.Context, userID string) (string, error) {
	profile, err := service.FetchProfile(context, userID)
	if err != nil {
		return "", err
	}
	return profile.Name, nil
}
