// Package note rewrites a markdown note for a calendar event: the file is
// renamed to the event title and an attendee block is kept at the top.
package note

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"notecal/internal/calendar"
	appLog "notecal/internal/log"
)

const (
	frontMatterDelim = "---"
	fileExt          = ".md"
	untitled         = "Untitled"
)

// ErrTargetExists is returned when another note already uses the new name.
var ErrTargetExists = errors.New("a note with that name already exists")

var illegalNameChars = strings.NewReplacer(
	`\`, "", "/", "", ":", "", "*", "", "?", "", `"`, "", "<", "", ">", "", "|", "",
)

// Rewrite is what Apply does to a note.
type Rewrite struct {
	// Title becomes the file name (without extension).
	Title string
	// Attendees is the full attendee block, heading included.
	Attendees string
}

// FromRecord builds the rewrite for one selected event.
func FromRecord(r calendar.EventRecord) Rewrite {
	return Rewrite{
		Title:     r.Title(),
		Attendees: r.AttendeesMarkdown(),
	}
}

// FileName turns a title into a note file name.
func FileName(title string) string {
	name := strings.TrimSpace(illegalNameChars.Replace(title))
	if name == "" {
		name = untitled
	}
	return name + fileExt
}

// Apply upserts the attendee block into the note at path, then renames it
// to the rewrite title in the same directory. It returns the new path.
func Apply(path string, rw Rewrite) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat note: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read note: %w", err)
	}

	target := filepath.Join(filepath.Dir(path), FileName(rw.Title))
	renaming := filepath.Clean(target) != filepath.Clean(path)
	if renaming {
		if _, err := os.Stat(target); err == nil {
			return "", fmt.Errorf("%w: %s", ErrTargetExists, target)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}

	updated := UpsertAttendees(string(data), rw.Attendees)
	if updated != string(data) {
		if err := writeAtomic(path, []byte(updated), info.Mode().Perm()); err != nil {
			return "", fmt.Errorf("write note: %w", err)
		}
	}

	if renaming {
		if err := os.Rename(path, target); err != nil {
			return "", fmt.Errorf("rename note: %w", err)
		}
	}

	appLog.Info("note updated", "from", filepath.Base(path), "to", filepath.Base(target), "renamed", renaming)
	return target, nil
}

// UpsertAttendees replaces the existing attendee block (heading plus its
// "- " bullet lines) in place, or inserts block at the top of the note,
// after YAML front matter when present.
func UpsertAttendees(content, block string) string {
	block = strings.TrimRight(block, "\n") + "\n"
	lines := strings.SplitAfter(content, "\n")

	for i, l := range lines {
		if strings.TrimRight(l, " \r\n") != calendar.AttendeesHeading {
			continue
		}
		end := i + 1
		for end < len(lines) && strings.HasPrefix(lines[end], "- ") {
			end++
		}
		return strings.Join(lines[:i], "") + block + strings.Join(lines[end:], "")
	}

	start := frontMatterEnd(lines)
	head := strings.Join(lines[:start], "")
	if head != "" && !strings.HasSuffix(head, "\n") {
		head += "\n"
	}
	rest := strings.Join(lines[start:], "")
	if rest != "" && !strings.HasPrefix(rest, "\n") && !strings.HasPrefix(rest, "\r\n") {
		block += "\n"
	}
	return head + block + rest
}

// frontMatterEnd returns the index of the first line after a leading YAML
// front matter block, or 0 if there is none (or it is never closed).
func frontMatterEnd(lines []string) int {
	if len(lines) == 0 || strings.TrimRight(lines[0], " \r\n") != frontMatterDelim {
		return 0
	}
	for j := 1; j < len(lines); j++ {
		if strings.TrimRight(lines[j], " \r\n") == frontMatterDelim {
			return j + 1
		}
	}
	return 0
}

func writeAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".notecal-note-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
