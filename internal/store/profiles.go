package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PromptProfile is a named initial prompt saved for reuse across runs.
type PromptProfile struct {
	ID        string
	Name      string
	Prompt    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrProfileExists indicates a profile with the same name is already saved.
var ErrProfileExists = errors.New("prompt profile already exists")

const profileColumns = "id, name, prompt, created_at, updated_at"

// ListProfiles returns all prompt profiles ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]PromptProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM prompt_profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list prompt profiles: %w", err)
	}
	defer rows.Close()

	var profiles []PromptProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// GetProfile fetches a prompt profile by name. A missing profile returns
// (nil, nil).
func (s *Store) GetProfile(ctx context.Context, name string) (*PromptProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM prompt_profiles WHERE name = ?`, name)
	profile, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt profile: %w", err)
	}
	return &profile, nil
}

// CreateProfile saves a new prompt profile.
func (s *Store) CreateProfile(ctx context.Context, name, prompt string) (*PromptProfile, error) {
	now := time.Now().UTC()
	profile := PromptProfile{
		ID:        uuid.NewString(),
		Name:      name,
		Prompt:    prompt,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO prompt_profiles (id, name, prompt, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		profile.ID,
		profile.Name,
		profile.Prompt,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: %q", ErrProfileExists, name)
		}
		return nil, fmt.Errorf("insert prompt profile: %w", err)
	}

	return &profile, nil
}

// UpdateProfile replaces the name and prompt text of an existing profile,
// keyed by its current name. It reports whether a profile with that name was
// found.
func (s *Store) UpdateProfile(ctx context.Context, name, newName, prompt string) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE prompt_profiles SET name = ?, prompt = ?, updated_at = ? WHERE name = ?`,
		newName,
		prompt,
		time.Now().UTC().Format(time.RFC3339Nano),
		name,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return false, fmt.Errorf("%w: %q", ErrProfileExists, newName)
		}
		return false, fmt.Errorf("update prompt profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// DeleteProfile removes a prompt profile by name. It reports whether a
// profile with that name was found.
func (s *Store) DeleteProfile(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompt_profiles WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete prompt profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanProfile(scanner interface{ Scan(dest ...any) error }) (PromptProfile, error) {
	var (
		profile    PromptProfile
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&profile.ID, &profile.Name, &profile.Prompt, &createdRaw, &updatedRaw); err != nil {
		return PromptProfile{}, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		profile.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		profile.UpdatedAt = updated
	}
	return profile, nil
}
