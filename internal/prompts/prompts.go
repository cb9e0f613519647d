// Package prompts manages saved initial-prompt profiles and checks prompt
// length against the engine's context budget.
package prompts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tiktoken-go/tokenizer"

	"voxscribe/internal/store"
)

// NoProfile is the reserved name meaning "no saved profile selected". It can
// never be used as a profile name.
const NoProfile = "(none)"

// TokenBudget is how many initial-prompt tokens the engine keeps. Anything
// beyond it is silently dropped, so callers warn when an estimate exceeds it.
const TokenBudget = 224

// Manager validates profile operations before persisting them.
type Manager struct {
	store *store.Store
}

func NewManager(s *store.Store) *Manager {
	return &Manager{store: s}
}

// ValidateName trims name and rejects empty or reserved names.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", errors.New("profile name must not be empty")
	}
	if trimmed == NoProfile {
		return "", fmt.Errorf("profile name %q is reserved", NoProfile)
	}
	return trimmed, nil
}

// List returns all saved profiles ordered by name.
func (m *Manager) List(ctx context.Context) ([]store.PromptProfile, error) {
	return m.store.ListProfiles(ctx)
}

// Resolve returns the prompt text for a profile name. The empty string and
// the reserved NoProfile name resolve to no prompt.
func (m *Manager) Resolve(ctx context.Context, name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == NoProfile {
		return "", nil
	}

	profile, err := m.store.GetProfile(ctx, trimmed)
	if err != nil {
		return "", err
	}
	if profile == nil {
		return "", fmt.Errorf("unknown prompt profile %q (run `voxscribe prompts` to list saved profiles)", trimmed)
	}
	return profile.Prompt, nil
}

// Add saves a new profile.
func (m *Manager) Add(ctx context.Context, name, prompt string) (*store.PromptProfile, error) {
	trimmed, err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("prompt text must not be empty")
	}

	return m.store.CreateProfile(ctx, trimmed, prompt)
}

// Edit updates an existing profile, optionally renaming it.
func (m *Manager) Edit(ctx context.Context, name, newName, prompt string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("profile name must not be empty")
	}

	trimmedNew := trimmed
	if strings.TrimSpace(newName) != "" {
		var err error
		if trimmedNew, err = ValidateName(newName); err != nil {
			return err
		}
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return errors.New("prompt text must not be empty")
	}

	found, err := m.store.UpdateProfile(ctx, trimmed, trimmedNew, prompt)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("unknown prompt profile %q", trimmed)
	}
	return nil
}

// Delete removes a profile by name.
func (m *Manager) Delete(ctx context.Context, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return errors.New("profile name must not be empty")
	}

	found, err := m.store.DeleteProfile(ctx, trimmed)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("unknown prompt profile %q", trimmed)
	}
	return nil
}

// Estimate counts prompt tokens with the cl100k_base encoding. The engine
// tokenizes differently, but the count is close enough to warn on.
func Estimate(prompt string) (int, error) {
	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return 0, fmt.Errorf("load tokenizer: %w", err)
	}
	ids, _, err := enc.Encode(prompt)
	if err != nil {
		return 0, fmt.Errorf("tokenize prompt: %w", err)
	}
	return len(ids), nil
}

// OverBudget reports whether a token estimate exceeds what the engine keeps.
func OverBudget(tokens int) bool {
	return tokens > TokenBudget
}
