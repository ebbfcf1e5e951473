package model

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// InviteCodeAlphabet is the 32-symbol unambiguous alphabet for invite codes.
// 0/O and 1/I are excluded to avoid transcription mistakes.
const InviteCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// InviteCodeLen is the fixed invite code length.
const InviteCodeLen = 6

// GenerateInviteCode returns a 6-character code drawn uniformly at random
// from InviteCodeAlphabet. 32^6 codes; collisions against existing codes are
// not checked here.
func GenerateInviteCode() string {
	buf := make([]byte, InviteCodeLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("invite code entropy unavailable: %v", err))
	}
	for i, b := range buf {
		// 256 % 32 == 0, so the reduction keeps the draw uniform
		buf[i] = InviteCodeAlphabet[int(b)%len(InviteCodeAlphabet)]
	}
	return string(buf)
}

// NormalizeInviteCode trims whitespace, upper-cases, and length-validates a
// user-entered code. Validation happens before any remote call.
func NormalizeInviteCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != InviteCodeLen {
		return "", fmt.Errorf("invite code must be exactly %d characters", InviteCodeLen)
	}
	return code, nil
}
