package txn

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Journal appends newline-delimited JSON entries to one transaction's
// journal file, fsyncing before each write is considered durable.
type Journal struct {
	path string
	f    *os.File
	seq  int
}

// OpenJournal opens (creating if absent) the journal file at path for
// appending.
func OpenJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("transaction: open journal %s: %w", path, err)
	}
	return &Journal{path: path, f: f}, nil
}

// Append writes one entry, assigning the next sequence number, and
// fsyncs before returning.
func (j *Journal) Append(step string, state EntryState, payload json.RawMessage) (int, error) {
	j.seq++
	entry := JournalEntry{Seq: j.seq, Step: step, State: state, Payload: payload}

	line, err := json.Marshal(entry)
	if err != nil {
		return 0, fmt.Errorf("transaction: marshal journal entry: %w", err)
	}
	line = append(line, '\n')

	if _, err := j.f.Write(line); err != nil {
		return 0, fmt.Errorf("transaction: journal-corrupt: write %s: %w", j.path, err)
	}
	if err := j.f.Sync(); err != nil {
		return 0, fmt.Errorf("transaction: journal-corrupt: fsync %s: %w", j.path, err)
	}

	return entry.Seq, nil
}

// Close closes the underlying file handle.
func (j *Journal) Close() error {
	return j.f.Close()
}

// ReadJournal loads every entry from path in file order. A missing
// journal returns an empty slice (a transaction that never reached
// applying has no journal yet).
func ReadJournal(path string) ([]JournalEntry, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transaction: journal-corrupt: open %s: %w", path, err)
	}
	defer f.Close()

	var entries []JournalEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e JournalEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("transaction: journal-corrupt: malformed entry in %s: %w", path, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("transaction: journal-corrupt: read %s: %w", path, err)
	}

	return entries, nil
}

// DoneEntriesReverse returns every `state=done` entry from entries in
// reverse seq order, the order rollback replay must apply compensating
// actions in.
func DoneEntriesReverse(entries []JournalEntry) []JournalEntry {
	var done []JournalEntry
	for _, e := range entries {
		if e.State == EntryDone {
			done = append(done, e)
		}
	}
	for i, j := 0, len(done)-1; i < j; i, j = i+1, j-1 {
		done[i], done[j] = done[j], done[i]
	}
	return done
}
