package mailbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/mailpat/internal/mail"
)

// LoadFile parses a single message file. The received date is the file's
// modification time.
func LoadFile(path string) (*Message, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	m.Path = path
	if info, err := os.Stat(path); err == nil {
		m.ReceivedAt = info.ModTime()
	}
	return m, nil
}

// Load reads a mailbox from path. A maildir (a directory holding cur and
// new) yields its messages with flags from the file names; any other
// directory yields every regular file in it; a file yields one message.
// Messages are ordered by file name.
func Load(path string) (*Mailbox, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load mailbox: %w", err)
	}
	if !info.IsDir() {
		m, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		return New(m), nil
	}

	if isMaildir(path) {
		return loadMaildir(path)
	}

	files, err := listFiles(path)
	if err != nil {
		return nil, err
	}
	msgs := make([]*Message, 0, len(files))
	for _, f := range files {
		m, err := LoadFile(f)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return New(msgs...), nil
}

func isMaildir(path string) bool {
	for _, sub := range []string{"cur", "new"} {
		info, err := os.Stat(filepath.Join(path, sub))
		if err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}

func loadMaildir(path string) (*Mailbox, error) {
	type entry struct {
		file string
		cur  bool
	}
	var entries []entry
	for _, sub := range []string{"cur", "new"} {
		files, err := listFiles(filepath.Join(path, sub))
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			entries = append(entries, entry{file: f, cur: sub == "cur"})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return filepath.Base(entries[i].file) < filepath.Base(entries[j].file)
	})

	msgs := make([]*Message, 0, len(entries))
	for _, e := range entries {
		m, err := LoadFile(e.file)
		if err != nil {
			return nil, err
		}
		m.Status = maildirFlags(filepath.Base(e.file))
		if e.cur && m.Status.Unread() {
			m.Status |= mail.FlagOld
		}
		msgs = append(msgs, m)
	}
	return New(msgs...), nil
}

// maildirFlags reads the info suffix of a maildir file name
// ("unique:2,FRS"). Draft and unknown letters are ignored.
func maildirFlags(name string) mail.Flags {
	i := strings.LastIndex(name, ":2,")
	if i < 0 {
		return 0
	}
	var flags mail.Flags
	for _, c := range name[i+3:] {
		switch c {
		case 'F':
			flags |= mail.FlagFlagged
		case 'R':
			flags |= mail.FlagReplied
		case 'S':
			flags |= mail.FlagRead
		case 'T':
			flags |= mail.FlagDeleted
		}
	}
	return flags
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load mailbox: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
