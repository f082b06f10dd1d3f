// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package auth

import "context"

// Identity is the resolved view of the signed-in user as known by the
// identity provider.
type Identity struct {
	UserID string
	Email  string
}

// State is the last known authentication state of the session.
type State string

const (
	// StateUnknown holds from app start until the first provider callback.
	StateUnknown State = "unknown"

	// StateSignedIn holds while the provider reports a resolved identity.
	StateSignedIn State = "signed_in"

	// StateSignedOut holds after an explicit logout or token revocation.
	StateSignedOut State = "signed_out"
)

// # Identity Provider Contract

// IdentityProvider is the opaque asynchronous session API the client core
// depends on. Any provider meeting this contract is substitutable; the core
// never assumes a concrete vendor.
type IdentityProvider interface {

	/*
		SignIn authenticates with email and password.

		Parameters:
		  - context: context.Context
		  - email: string
		  - password: string

		Returns:
		  - *Identity: Resolved identity
		  - error: Bad credentials or network failures
	*/
	SignIn(context context.Context, email, password string) (*Identity, error)

	/*
		SignUp creates a new provider identity.

		Parameters:
		  - context: context.Context
		  - email: string
		  - password: string

		Returns:
		  - *Identity: Created identity
		  - error: Conflicts or network failures
	*/
	SignUp(context context.Context, email, password string) (*Identity, error)

	/*
		SignOut invalidates the provider session.

		Parameters:
		  - context: context.Context

		Returns:
		  - error: Invalidation failures
	*/
	SignOut(context context.Context) error

	/*
		OnSessionChange registers a callback fired on every session state
		transition with the resolved identity, or nil when signed out.

		Parameters:
		  - callback: func(*Identity)

		Returns:
		  - func(): Unsubscribe handle
	*/
	OnSessionChange(callback func(identity *Identity)) func()

	/*
		Token returns a fresh short-lived bearer credential for the current
		user. Implementations must re-derive on every call; tokens expire.

		Parameters:
		  - context: context.Context

		Returns:
		  - string: Bearer credential, empty when signed out
		  - error: Derivation failures
	*/
	Token(context context.Context) (string, error)

	/*
		Reauthenticate proves possession of the current password before a
		sensitive mutation.

		Parameters:
		  - context: context.Context
		  - currentPassword: string

		Returns:
		  - error: Rejected credential or network failures
	*/
	Reauthenticate(context context.Context, currentPassword string) error

	/*
		UpdatePassword replaces the current user's password.

		Parameters:
		  - context: context.Context
		  - newPassword: string

		Returns:
		  - error: Provider rejections
	*/
	UpdatePassword(context context.Context, newPassword string) error

	/*
		UpdateEmail replaces the current user's email.

		Parameters:
		  - context: context.Context
		  - newEmail: string

		Returns:
		  - error: Provider rejections
	*/
	UpdateEmail(context context.Context, newEmail string) error

	/*
		SendPasswordReset asks the provider to mail a reset link.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - error: Provider rejections
	*/
	SendPasswordReset(context context.Context, email string) error
}
