package gate

import (
	"context"
	"strings"
)

// Login signs in with email and password. On success the user lands on
// the dashboard of their role.
func (m *Machine) Login(ctx context.Context, email, password string) error {
	m.releaseOAuthHold()

	email = strings.TrimSpace(email)
	if err := (LoginRequest{Email: email, Password: password}).Validate(); err != nil {
		m.fail("login", MsgLoginFailed, err)
		return err
	}

	release := m.store.Hold()
	defer release()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	user, err := m.provider.SignInWithPassword(ctx, email, password)
	if err == nil && (user == nil || user.ID == "") {
		err = ErrInvalidCredentials
	}
	if err != nil {
		m.logger.Error("login error", "email", email, "error", err)
		m.emitAuthEvent(ctx, ActivityEventLoginFailure, "", email, map[string]any{
			"error": err.Error(),
			"kind":  ClassifyError(err).String(),
		})
		m.fail("login", MsgLoginFailed, err)
		return err
	}

	ticket := m.store.Begin()
	m.provision(ctx, user.ID, email, user.Metadata)
	role := m.resolveRole(ctx, user.ID)
	m.store.Commit(ticket, LoginSucceeded{UserID: user.ID, Role: role})

	m.emitAuthEvent(ctx, ActivityEventLoginSuccess, user.ID, email, map[string]any{
		"role": role.String(),
	})

	return nil
}

// LoginWithOAuth hands the user over to an external provider. Loading
// stays on until the user comes back through the callback.
func (m *Machine) LoginWithOAuth(ctx context.Context, provider OAuthProvider) error {
	if err := (OAuthRequest{Provider: provider}).Validate(); err != nil {
		m.fail("oauth", MsgOAuthFailed, ErrInvalidOAuthProvider)
		return ErrInvalidOAuthProvider
	}

	release := m.store.Hold()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	redirect, err := m.provider.SignInWithOAuth(ctx, provider, m.redirectTarget(PathAuthCallback))
	if err == nil && (redirect == nil || redirect.URL == "") {
		err = wrapError(ErrTransport, "oauth", nil)
	}
	if err != nil {
		release()
		m.logger.Error("oauth error", "provider", provider, "error", err)
		m.fail("oauth", MsgOAuthFailed, err)
		return err
	}

	m.parkOAuthHold(release)
	m.store.Dispatch(OAuthStarted{Redirect: *redirect})

	m.emitAuthEvent(ctx, ActivityEventOAuthStarted, "", "", map[string]any{
		"provider": string(provider),
	})

	return nil
}

// Register signs up a new account. The user is not authenticated until
// the email address is confirmed.
func (m *Machine) Register(ctx context.Context, email, password string, metadata UserMetadata) error {
	m.releaseOAuthHold()

	email = strings.TrimSpace(email)
	if err := (credentials{Email: email, Password: password}).Validate(); err != nil {
		m.fail("register", MsgRegisterFailed, err)
		return err
	}

	release := m.store.Hold()
	defer release()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	user, err := m.provider.SignUp(ctx, email, password, metadata, m.redirectTarget(PathLogin))
	if err != nil {
		m.logger.Error("registration error", "email", email, "error", err)
		m.fail("register", MsgRegisterFailed, err)
		return err
	}

	if user == nil || user.ID == "" {
		m.logger.Error("user was not created in the response", "email", email)
		m.store.Dispatch(ActionFailed{Action: "register", Message: MsgRegisterNoUser})
		return ErrNoUserReturned
	}

	m.store.Dispatch(Registered{Email: email})

	m.emitAuthEvent(ctx, ActivityEventRegistered, user.ID, email, nil)

	return nil
}

// ForgotPassword asks the provider to send a password reset email
func (m *Machine) ForgotPassword(ctx context.Context, email string) error {
	m.releaseOAuthHold()

	email = strings.TrimSpace(email)
	if err := (ForgotPasswordRequest{Email: email}).Validate(); err != nil {
		m.fail("forgot_password", MsgPasswordResetFailed, err)
		return err
	}

	release := m.store.Hold()
	defer release()

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.provider.ResetPasswordForEmail(ctx, email); err != nil {
		m.logger.Error("forgot password error", "email", email, "error", err)
		m.fail("forgot_password", MsgPasswordResetFailed, err)
		return err
	}

	m.store.Dispatch(PasswordResetRequested{Email: email})

	m.emitAuthEvent(ctx, ActivityEventPasswordResetRequest, "", email, nil)

	return nil
}

// Logout ends the session. When the provider fails the state is left
// as is; a later SIGNED_OUT notification still clears it.
func (m *Machine) Logout(ctx context.Context) error {
	m.releaseOAuthHold()

	release := m.store.Hold()
	defer release()

	userID := m.store.GetState().UserID

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Error("logout error", "error", err)
		m.fail("logout", MsgLogoutFailed, err)
		return err
	}

	m.emitAuthEvent(ctx, ActivityEventLogout, userID, "", nil)

	m.store.Commit(m.store.Begin(), LoggedOut{})

	return nil
}
