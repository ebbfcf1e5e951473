// Package profile manages the device's user profile: onboarding, nickname
// and device-token updates, and logout.
package profile

import (
	"errors"
	"fmt"

	"github.com/kaitodo/kaitodo/internal/model"
	"github.com/kaitodo/kaitodo/internal/store"
)

// ErrNotLoggedIn means no profile exists; the user has not onboarded or has
// logged out.
var ErrNotLoggedIn = errors.New("not logged in")

// Manager owns the single UserProfile, persisting on every mutation.
type Manager struct {
	store   *store.Store
	profile *model.UserProfile
}

// Load reads the persisted profile, if any.
func Load(st *store.Store) (*Manager, error) {
	m := &Manager{store: st}
	p, err := st.LoadProfile()
	if errors.Is(err, store.ErrNotFound) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	m.profile = &p
	return m, nil
}

// IsLoggedIn reports whether a profile exists.
func (m *Manager) IsLoggedIn() bool {
	return m.profile != nil
}

// Current returns the profile, or ErrNotLoggedIn.
func (m *Manager) Current() (model.UserProfile, error) {
	if m.profile == nil {
		return model.UserProfile{}, ErrNotLoggedIn
	}
	return *m.profile, nil
}

// Create onboards a new user. The nickname is validated before anything is
// persisted; the generated UserID is stable for the profile's lifetime.
func (m *Manager) Create(nickname string) (model.UserProfile, error) {
	if err := model.ValidateNickname(nickname); err != nil {
		return model.UserProfile{}, err
	}
	p := model.NewUserProfile(nickname)
	if err := m.store.SaveProfile(p); err != nil {
		return model.UserProfile{}, fmt.Errorf("failed to save profile: %w", err)
	}
	m.profile = &p
	return p, nil
}

// SetNickname updates the only user-editable field.
func (m *Manager) SetNickname(nickname string) error {
	if m.profile == nil {
		return ErrNotLoggedIn
	}
	if err := model.ValidateNickname(nickname); err != nil {
		return err
	}
	m.profile.Nickname = nickname
	if err := m.store.SaveProfile(*m.profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// SetDeviceToken records the push-delivery token.
func (m *Manager) SetDeviceToken(token string) error {
	if m.profile == nil {
		return ErrNotLoggedIn
	}
	m.profile.DeviceToken = token
	if err := m.store.SaveProfile(*m.profile); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Logout clears the profile. Lists are untouched.
func (m *Manager) Logout() error {
	if err := m.store.ClearProfile(); err != nil {
		return fmt.Errorf("failed to clear profile: %w", err)
	}
	m.profile = nil
	return nil
}
