package prompts

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"voxscribe/internal/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	s, err := store.Open(filepath.Join(t.TempDir(), "voxscribe.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewManager(s)
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	trimmed, err := ValidateName("  meeting  ")
	require.NoError(t, err)
	require.Equal(t, "meeting", trimmed)

	_, err = ValidateName("   ")
	require.Error(t, err)

	_, err = ValidateName(NoProfile)
	require.Error(t, err)
	require.Contains(t, err.Error(), "reserved")
}

func TestAddResolveRoundTrip(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	ctx := context.Background()

	profile, err := m.Add(ctx, " meeting ", "  Names: Ana, Bo. Jargon: voxscribe.  ")
	require.NoError(t, err)
	require.Equal(t, "meeting", profile.Name)

	prompt, err := m.Resolve(ctx, "meeting")
	require.NoError(t, err)
	require.Equal(t, "Names: Ana, Bo. Jargon: voxscribe.", prompt)

	_, err = m.Add(ctx, "meeting", "duplicate")
	require.ErrorIs(t, err, store.ErrProfileExists)

	_, err = m.Add(ctx, "empty", "   ")
	require.Error(t, err)
}

func TestResolveNoProfileNames(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	ctx := context.Background()

	prompt, err := m.Resolve(ctx, "")
	require.NoError(t, err)
	require.Empty(t, prompt)

	prompt, err = m.Resolve(ctx, NoProfile)
	require.NoError(t, err)
	require.Empty(t, prompt)

	_, err = m.Resolve(ctx, "missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown prompt profile")
}

func TestEditRenamesProfile(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Add(ctx, "meeting", "original")
	require.NoError(t, err)

	require.NoError(t, m.Edit(ctx, "meeting", "standup", "updated"))

	prompt, err := m.Resolve(ctx, "standup")
	require.NoError(t, err)
	require.Equal(t, "updated", prompt)

	_, err = m.Resolve(ctx, "meeting")
	require.Error(t, err)

	require.Error(t, m.Edit(ctx, "missing", "", "text"))
	require.Error(t, m.Edit(ctx, "standup", NoProfile, "text"))
}

func TestDelete(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	ctx := context.Background()

	_, err := m.Add(ctx, "meeting", "text")
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, "meeting"))
	require.Error(t, m.Delete(ctx, "meeting"))
}

func TestEstimateAndBudget(t *testing.T) {
	t.Parallel()

	short, err := Estimate("A short prompt.")
	require.NoError(t, err)
	require.Greater(t, short, 0)
	require.False(t, OverBudget(short))

	long, err := Estimate(strings.Repeat("transcription vocabulary entries, ", 200))
	require.NoError(t, err)
	require.Greater(t, long, TokenBudget)
	require.True(t, OverBudget(long))

	require.False(t, OverBudget(TokenBudget))
	require.True(t, OverBudget(TokenBudget+1))
}
