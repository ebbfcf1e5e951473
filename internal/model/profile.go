package model

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Nickname length bounds, in runes.
const (
	NicknameMinLen = 2
	NicknameMaxLen = 20
)

// UserProfile identifies this device's user. UserID is generated once at
// onboarding and never changes; Nickname is the only user-editable field.
type UserProfile struct {
	UserID      string    `json:"userID"`
	Nickname    string    `json:"nickname"`
	DeviceToken string    `json:"deviceToken,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewUserProfile creates a profile with a fresh stable UserID.
// The nickname is not validated here; use ValidateNickname first.
func NewUserProfile(nickname string) UserProfile {
	return UserProfile{
		UserID:    uuid.New().String(),
		Nickname:  nickname,
		CreatedAt: time.Now(),
	}
}

// ValidateNickname enforces the 2-20 rune bound.
func ValidateNickname(nickname string) error {
	n := utf8.RuneCountInString(nickname)
	if n < NicknameMinLen || n > NicknameMaxLen {
		return fmt.Errorf("nickname must be %d-%d characters (got %d)", NicknameMinLen, NicknameMaxLen, n)
	}
	return nil
}
