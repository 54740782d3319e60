// Package inbox keeps developer notes addressed to future sessions in
// ~/.monorail/inbox.md.
package inbox

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vanpelt/monorail/internal/fsutil"
)

const (
	header      = "# Monorail Inbox\n\n"
	placeholder = "_No pending notes._\n"
	stampLayout = "2006-01-02 15:04"
)

// Note is one pending inbox line.
type Note struct {
	Timestamp string
	Message   string
}

// Inbox is the markdown file holding pending notes.
type Inbox struct {
	path string
	now  func() time.Time
}

// New returns the inbox stored at path.
func New(path string) *Inbox {
	return &Inbox{path: path, now: time.Now}
}

// Path is the inbox file location.
func (i *Inbox) Path() string {
	return i.path
}

// Add records a note at the top of the inbox.
func (i *Inbox) Add(message string) error {
	message = strings.Join(strings.Fields(message), " ")
	if message == "" {
		return errors.New("note is empty")
	}

	content, err := i.read()
	if err != nil {
		return err
	}
	if content == "" {
		content = header
	}
	content = strings.Replace(content, placeholder, "", 1)

	line := fmt.Sprintf("- [%s] %s\n", i.now().Format(stampLayout), message)
	if strings.Contains(content, header) {
		content = strings.Replace(content, header, header+line, 1)
	} else {
		content += line
	}
	return fsutil.WriteFileAtomic(i.path, []byte(content), 0644)
}

// Pending returns every note in file order, newest first.
func (i *Inbox) Pending() ([]Note, error) {
	content, err := i.read()
	if err != nil {
		return nil, err
	}

	var notes []Note
	for _, line := range strings.Split(content, "\n") {
		rest, ok := strings.CutPrefix(line, "- [")
		if !ok {
			continue
		}
		stamp, message, ok := strings.Cut(rest, "] ")
		if !ok {
			continue
		}
		notes = append(notes, Note{Timestamp: stamp, Message: message})
	}
	return notes, nil
}

// Count is the number of pending notes.
func (i *Inbox) Count() int {
	notes, err := i.Pending()
	if err != nil {
		return 0
	}
	return len(notes)
}

// Clear removes every note.
func (i *Inbox) Clear() error {
	return fsutil.WriteFileAtomic(i.path, []byte(header+placeholder), 0644)
}

func (i *Inbox) read() (string, error) {
	data, err := os.ReadFile(i.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read inbox: %w", err)
	}
	return string(data), nil
}
