package core

import (
	"fmt"
	"maps"
	"strings"
)

// Profiles stores per-user avatar and background URLs. Last write wins.
type Profiles struct {
	avatars     map[string]string
	backgrounds map[string]string
}

func NewProfiles() *Profiles {
	return &Profiles{
		avatars:     make(map[string]string),
		backgrounds: make(map[string]string),
	}
}

func (p *Profiles) SetAvatar(identity, url string) (string, error) {
	return set(p.avatars, "set avatar", identity, url)
}

func (p *Profiles) SetBackground(identity, url string) (string, error) {
	return set(p.backgrounds, "set background", identity, url)
}

// Avatars returns a copy of every stored avatar.
func (p *Profiles) Avatars() map[string]string {
	return maps.Clone(p.avatars)
}

// Backgrounds returns a copy of every stored background.
func (p *Profiles) Backgrounds() map[string]string {
	return maps.Clone(p.backgrounds)
}

// AvatarOr returns the stored avatar of identity, or fallback.
func (p *Profiles) AvatarOr(identity, fallback string) string {
	if url, ok := p.avatars[identity]; ok {
		return url
	}
	return fallback
}

// set stores url under the trimmed identity and returns that identity.
func set(m map[string]string, op, identity, url string) (string, error) {
	identity = strings.TrimSpace(identity)
	url = strings.TrimSpace(url)
	switch {
	case identity == "":
		return "", fmt.Errorf("%s: %w", op, ErrMissingIdentity)
	case url == "":
		return "", fmt.Errorf("%s: %w", op, ErrMissingURL)
	}
	m[identity] = url
	return identity, nil
}
