package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"voxscribe/internal/store"
)

// runCommand executes cmd with args and returns everything it printed.
func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// newTestApp returns an appState whose store lives in a temp directory. Each
// openStore call opens the database fresh, mirroring how commands use it.
func newTestApp(t *testing.T) *appState {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "voxscribe.db")
	app := &appState{}
	app.openStore = func() (*store.Store, error) {
		return store.Open(dbPath)
	}
	return app
}

// seedStore runs fn against the test app's store and closes it again.
func seedStore(t *testing.T, app *appState, fn func(st *store.Store)) {
	t.Helper()

	st, err := app.openStore()
	require.NoError(t, err)
	defer st.Close()
	fn(st)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
