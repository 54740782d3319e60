package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/vanpelt/monorail/internal/fsutil"
	"github.com/vanpelt/monorail/internal/models"
)

// maxActivityEvents bounds the event log kept in the activity file.
const maxActivityEvents = 20

// ActivitySnapshot is what the daemon publishes for status displays.
type ActivitySnapshot struct {
	Projects []models.ProjectActivity `json:"projects"`
	Events   []models.ActivityEvent   `json:"events"`
}

// SaveActivity atomically replaces the activity file.
func SaveActivity(path string, snap ActivitySnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode activity: %w", err)
	}
	return fsutil.WriteFileAtomic(path, data, 0644)
}

// LoadActivity reads the activity file. A missing file is an empty snapshot.
func LoadActivity(path string) (ActivitySnapshot, error) {
	var snap ActivitySnapshot
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return ActivitySnapshot{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return snap, nil
}
