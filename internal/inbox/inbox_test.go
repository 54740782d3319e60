package inbox

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInbox(t *testing.T) *Inbox {
	t.Helper()
	i := New(filepath.Join(t.TempDir(), "inbox.md"))
	clock := time.Date(2025, 1, 2, 9, 30, 0, 0, time.Local)
	i.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return i
}

func TestAddAndPending(t *testing.T) {
	i := newTestInbox(t)
	assert.Equal(t, 0, i.Count())

	require.NoError(t, i.Add("check the staging deploy"))
	require.NoError(t, i.Add("  rename   the flag "))

	notes, err := i.Pending()
	require.NoError(t, err)
	assert.Equal(t, []Note{
		{Timestamp: "2025-01-02 09:32", Message: "rename the flag"},
		{Timestamp: "2025-01-02 09:31", Message: "check the staging deploy"},
	}, notes)

	data, err := os.ReadFile(i.Path())
	require.NoError(t, err)
	assert.Equal(t, "# Monorail Inbox\n\n- [2025-01-02 09:32] rename the flag\n- [2025-01-02 09:31] check the staging deploy\n", string(data))

	assert.Error(t, i.Add("   "))
}

func TestClearThenAdd(t *testing.T) {
	i := newTestInbox(t)
	require.NoError(t, i.Add("one"))
	require.NoError(t, i.Clear())
	assert.Equal(t, 0, i.Count())

	data, err := os.ReadFile(i.Path())
	require.NoError(t, err)
	assert.Equal(t, "# Monorail Inbox\n\n_No pending notes._\n", string(data))

	require.NoError(t, i.Add("two"))
	data, err = os.ReadFile(i.Path())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "_No pending notes._")
	assert.Equal(t, 1, i.Count())
}
