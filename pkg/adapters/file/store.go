package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
)

const historyExt = ".jsonl"

// maxLineSize bounds a single stored message line.
const maxLineSize = 16 << 20

// Store implements ports.Store using the local filesystem.
// Each session is a directory holding one JSON Lines file per node; every line is one
// top-level message with its nested responses.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".canopy/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".canopy", "sessions")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) sessionDir(sessionID string) (string, error) {
	if sessionID == "" || strings.HasPrefix(sessionID, ".") {
		return "", fmt.Errorf("invalid session id %q", sessionID)
	}
	return filepath.Join(s.BasePath, url.QueryEscape(sessionID)), nil
}

func nodeFile(dir, node string) string {
	return filepath.Join(dir, url.QueryEscape(node)+historyExt)
}

// Create makes the session directory. An existing session is left untouched.
func (s *Store) Create(ctx context.Context, sessionID string) error {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure session directory: %w", err)
	}
	if err := os.Mkdir(dir, 0755); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Exists reports whether the session directory is present.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat session: %w", err)
	}
	return info.IsDir(), nil
}

// List returns all session IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := []string{}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		id, err := url.QueryUnescape(entry.Name())
		if err != nil {
			continue
		}
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}

// Delete removes the session directory.
// The directory is first renamed out of the listing so a concurrent List never sees a
// half-deleted session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return err
	}

	trash := filepath.Join(s.BasePath, fmt.Sprintf(".trash-%d", time.Now().UnixNano()))
	if err := os.Rename(dir, trash); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := os.RemoveAll(trash); err != nil {
		return fmt.Errorf("failed to delete session files: %w", err)
	}
	return nil
}

// Load reads the node history line by line.
func (s *Store) Load(ctx context.Context, sessionID, node string) (domain.MessageTree, error) {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(nodeFile(dir, node))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		ok, statErr := s.Exists(ctx, sessionID)
		if statErr != nil {
			return nil, statErr
		}
		if !ok {
			return nil, domain.ErrSessionNotFound
		}
		return domain.MessageTree{}, nil
	}
	defer f.Close()

	tree := domain.MessageTree{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var msg domain.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("failed to decode history line %d of %q: %w", line, node, err)
		}
		tree = append(tree, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return tree, nil
}

// Append writes the messages as one O_APPEND write and syncs the file.
func (s *Store) Append(ctx context.Context, sessionID, node string, msgs ...domain.Message) error {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return err
	}
	ok, err := s.Exists(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	if len(msgs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, m := range msgs {
		if err := enc.Encode(m); err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
	}

	f, err := os.OpenFile(nodeFile(dir, node), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to append history: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to fsync history: %w", err)
	}
	return f.Close()
}

// Nodes lists the nodes that have a history file.
func (s *Store) Nodes(ctx context.Context, sessionID string) ([]string, error) {
	dir, err := s.sessionDir(sessionID)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	var nodes []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != historyExt {
			continue
		}
		node, err := url.QueryUnescape(strings.TrimSuffix(name, historyExt))
		if err != nil {
			continue
		}
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes, nil
}
