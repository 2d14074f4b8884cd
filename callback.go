package gate

import (
	"context"
)

// MsgAuthError is shown when the profile view can not read the session
const MsgAuthError = "Authentication error"

// HandleOAuthCallback completes an OAuth sign in once the provider has
// redirected back. Users with an incomplete profile are sent to fill it.
func (m *Machine) HandleOAuthCallback(ctx context.Context) error {
	defer m.releaseOAuthHold()

	release := m.store.Hold()
	defer release()

	ticket := m.store.Begin()

	session, err := m.getSession(ctx)
	if err != nil {
		m.logger.Error("auth callback error", "error", err)
		m.fail("oauth_callback", MsgCallbackFailed, err)
		m.store.Dispatch(NavigationRequested{Path: PathLogin})
		return err
	}

	if session.GetUserID() == "" {
		m.store.Commit(ticket, CallbackResolved{Session: nil})
		return ErrNoSession
	}

	m.provision(ctx, session.UserID, session.Email, session.Metadata)
	role := m.resolveRole(ctx, session.UserID)
	complete := m.isProfileComplete(ctx, session.UserID)

	m.store.Commit(ticket, CallbackResolved{
		Session:         session,
		Role:            role,
		ProfileComplete: complete,
	})

	m.emitAuthEvent(ctx, ActivityEventOAuthCallback, session.UserID, session.Email, map[string]any{
		"profile_complete": complete,
	})

	return nil
}

// PrepareProfileCompletion returns the values to prefill the profile
// form with. It returns nil metadata when the user was sent elsewhere:
// to the login page without a session, or to the observer dashboard when
// the profile is already complete.
func (m *Machine) PrepareProfileCompletion(ctx context.Context) (*UserMetadata, error) {
	session, err := m.getSession(ctx)
	if err != nil {
		m.logger.Error("profile completion session error", "error", err)
		m.store.Dispatch(ActionFailed{Action: "complete_profile", Message: MsgAuthError})
		m.store.Dispatch(NavigationRequested{Path: PathLogin})
		return nil, err
	}

	if session.GetUserID() == "" {
		m.store.Dispatch(NavigationRequested{Path: PathLogin})
		return nil, nil
	}

	if m.isProfileComplete(ctx, session.UserID) {
		m.store.Dispatch(NavigationRequested{Path: m.routes.Observer})
		return nil, nil
	}

	prefill := session.Metadata
	if m.records != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, m.timeout)
		user, err := m.records.FindUserByID(lookupCtx, session.UserID)
		cancel()
		if err == nil && user != nil {
			prefill = mergeMetadata(prefill, user.Metadata())
		}
	}

	return &prefill, nil
}

// CompleteProfile saves the mandatory profile fields. The phone number
// is required and stored in E.164.
func (m *Machine) CompleteProfile(ctx context.Context, metadata UserMetadata) error {
	m.releaseOAuthHold()

	req := CompleteProfileRequest{
		FirstName:   metadata.FirstName,
		LastName:    metadata.LastName,
		PhoneNumber: metadata.PhoneNumber,
	}
	if err := req.Validate(); err != nil {
		m.fail("complete_profile", MsgProfileCompleteFailed, err)
		return err
	}
	metadata = req.Metadata()

	release := m.store.Hold()
	defer release()

	session, err := m.getSession(ctx)
	if err == nil && session.GetUserID() == "" {
		err = ErrNoSession
	}
	if err != nil {
		m.logger.Error("complete profile without session", "error", err)
		m.fail("complete_profile", MsgAuthError, err)
		m.store.Dispatch(NavigationRequested{Path: PathLogin})
		return err
	}

	phone, err := NormalizePhone(metadata.PhoneNumber, m.phoneRegion)
	if err != nil {
		m.fail("complete_profile", MsgProfileCompleteFailed, err)
		return err
	}
	metadata.PhoneNumber = phone

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.provider.UpdateUserMetadata(ctx, metadata); err != nil {
		m.logger.Error("complete profile error", "user_id", session.UserID, "error", err)
		m.fail("complete_profile", MsgProfileCompleteFailed, err)
		return err
	}

	// the identity provider holds the profile; the record store copy only
	// feeds the completeness check and is kept best effort
	if m.profiles != nil {
		m.provision(ctx, session.UserID, session.Email, metadata)
		if _, err := m.profiles.UpdateProfile(ctx, session.UserID, metadata); err != nil {
			m.logger.Warn("complete profile record error", "user_id", session.UserID, "error", err)
		}
	}

	m.store.Dispatch(ProfileCompleted{UserID: session.UserID})

	m.emitAuthEvent(ctx, ActivityEventProfileCompleted, session.UserID, session.Email, nil)

	return nil
}

func mergeMetadata(primary, secondary UserMetadata) UserMetadata {
	if primary.FirstName == "" {
		primary.FirstName = secondary.FirstName
	}
	if primary.LastName == "" {
		primary.LastName = secondary.LastName
	}
	if primary.PhoneNumber == "" {
		primary.PhoneNumber = secondary.PhoneNumber
	}
	return primary
}
