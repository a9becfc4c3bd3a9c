package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/canopy/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// noExpiryScore is the index score of sessions without a TTL (2100-01-01).
const noExpiryScore = 4102444800

// Store implements ports.Store using Redis.
//
// Keys, relative to the prefix, where <session> is the escaped session ID:
//
//	index                   ZSET of session IDs scored by expiry
//	s:<session>             session marker
//	n:<session>             SET of node names with history
//	h:<session>:<name>      LIST of JSON-encoded top-level messages
//
// Escaping leaves no bare ':' in <session>, so no ID can address another session's keys
// or the index.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for sessions. Every append refreshes it.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for sessions.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "canopy:session:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client so a Locker can share the connection pool.
func (s *Store) Client() *backend.Client {
	return s.client
}

var idEscaper = strings.NewReplacer(`\`, `\\`, ":", `\:`)

func escapeID(sessionID string) string {
	return idEscaper.Replace(sessionID)
}

func (s *Store) key(sessionID string) string {
	return s.prefix + "s:" + escapeID(sessionID)
}

func (s *Store) nodesKey(sessionID string) string {
	return s.prefix + "n:" + escapeID(sessionID)
}

func (s *Store) nodeKey(sessionID, node string) string {
	return s.prefix + "h:" + escapeID(sessionID) + ":" + node
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) score() float64 {
	if s.ttl == 0 {
		return noExpiryScore
	}
	return float64(time.Now().Add(s.ttl).Unix())
}

// Create writes the session marker and indexes it. An existing session is left untouched.
func (s *Store) Create(ctx context.Context, sessionID string) error {
	created, err := s.client.SetNX(ctx, s.key(sessionID), "1", s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if !created {
		return nil
	}
	err = s.client.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.score(), Member: sessionID}).Err()
	if err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}
	return nil
}

// Exists reports whether the session marker is present.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

func (s *Store) mustExist(ctx context.Context, sessionID string) error {
	ok, err := s.Exists(ctx, sessionID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Delete removes the session marker, node index, every node history and the index entry.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.mustExist(ctx, sessionID); err != nil {
		return err
	}
	nodes, err := s.client.SMembers(ctx, s.nodesKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list nodes: %w", err)
	}

	keys := []string{s.key(sessionID), s.nodesKey(sessionID)}
	for _, node := range nodes {
		keys = append(keys, s.nodeKey(sessionID, node))
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.ZRem(ctx, s.indexKey(), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns active sessions.
// Expired sessions are pruned from the index lazily.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	sessions, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	sort.Strings(sessions)
	return sessions, nil
}

// Load reads the node history list.
func (s *Store) Load(ctx context.Context, sessionID, node string) (domain.MessageTree, error) {
	if err := s.mustExist(ctx, sessionID); err != nil {
		return nil, err
	}

	vals, err := s.client.LRange(ctx, s.nodeKey(sessionID, node), 0, -1).Result()
	if err != nil && !errors.Is(err, backend.Nil) {
		return nil, fmt.Errorf("failed to get history from redis: %w", err)
	}

	tree := make(domain.MessageTree, 0, len(vals))
	for i, val := range vals {
		var msg domain.Message
		if err := json.Unmarshal([]byte(val), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message %d of %q: %w", i, node, err)
		}
		tree = append(tree, msg)
	}
	return tree, nil
}

// Append pushes the messages onto the node history in one transaction and refreshes the TTL.
func (s *Store) Append(ctx context.Context, sessionID, node string, msgs ...domain.Message) error {
	if err := s.mustExist(ctx, sessionID); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	vals := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		vals = append(vals, data)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.nodeKey(sessionID, node), vals...)
	pipe.SAdd(ctx, s.nodesKey(sessionID), node)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(sessionID), s.ttl)
		pipe.Expire(ctx, s.nodesKey(sessionID), s.ttl)
		pipe.Expire(ctx, s.nodeKey(sessionID, node), s.ttl)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: s.score(), Member: sessionID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// Nodes returns the node names with history in lexical order.
func (s *Store) Nodes(ctx context.Context, sessionID string) ([]string, error) {
	if err := s.mustExist(ctx, sessionID); err != nil {
		return nil, err
	}
	nodes, err := s.client.SMembers(ctx, s.nodesKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	sort.Strings(nodes)
	return nodes, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
