// ABOUTME: Local-node substrate backed by an embedded badger database
// ABOUTME: Content-addressed entries with write-confirmation records and batch fetch

package substrate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nainya/howcatalog/pkg/storage"
)

// Prefixes for the record kinds kept in badger
const (
	PREFIX_META         = uint32(100)
	PREFIX_ENTRY        = uint32(1000) // (entryHash) -> storedEntry
	PREFIX_ACTION       = uint32(1100) // (actionHash) -> action
	PREFIX_ENTRY_ACTION = uint32(1200) // (entryHash, timestamp, actionHash)
	PREFIX_LINK         = uint32(2000) // (base, type, timestamp, handle) -> linkValue
	PREFIX_LINK_HANDLE  = uint32(2100) // (handle) -> link key
	PREFIX_PATH         = uint32(3000) // (pathAddress) -> components
)

const metaAgentKey = "agent"

// Config holds configuration for a Node.
type Config struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// CompressThreshold is the payload size in bytes from which entries
	// are zstd-compressed. Zero disables compression.
	CompressThreshold int

	// FetchConcurrency bounds parallel lookups in GetMany.
	FetchConcurrency int

	// Logger receives badger's internal log lines.
	Logger zerolog.Logger
}

// DefaultConfig returns production defaults for a database at path.
func DefaultConfig(path string) Config {
	return Config{
		Path:              path,
		SyncWrites:        true,
		CompressThreshold: 1024,
		FetchConcurrency:  8,
		Logger:            zerolog.Nop(),
	}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{
		InMemory:          true,
		CompressThreshold: 1024,
		FetchConcurrency:  8,
		Logger:            zerolog.Nop(),
	}
}

// Node is a single-node implementation of the entry, link and path
// primitives. It is safe for concurrent use.
type Node struct {
	db    *badger.DB
	cfg   Config
	agent AgentKey
	now   func() time.Time
}

// action is the write-confirmation record of one entry creation.
type action struct {
	EntryHash Address   `cbor:"e"`
	EntryType string    `cbor:"t"`
	Author    AgentKey  `cbor:"a"`
	Timestamp int64     `cbor:"ts"`
	Nonce     uuid.UUID `cbor:"n"`
}

// Open opens or creates the badger database and loads the node's agent
// key, generating one on first use.
func Open(cfg Config) (*Node, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("substrate: path is required for persistent database")
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 1
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{log: cfg.Logger.With().Str("component", "badger").Logger()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	n := &Node{db: db, cfg: cfg, now: time.Now}
	if err := n.loadAgent(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return n, nil
}

// Close closes the database
func (n *Node) Close() error {
	return n.db.Close()
}

// Agent returns the key that authors this node's actions.
func (n *Node) Agent() AgentKey {
	return n.agent
}

func (n *Node) loadAgent() error {
	key := storage.EncodeKey(PREFIX_META, []storage.Value{storage.NewStringValue(metaAgentKey)})

	err := n.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			if len(v) != AddressSize {
				return fmt.Errorf("corrupt agent key: %d bytes", len(v))
			}
			copy(n.agent[:], v)
			return nil
		})
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("load agent key: %w", err)
	}

	seed := uuid.New()
	n.agent = AgentKey(keyedHash(agentDomainKey, seed[:]))
	if err := n.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, n.agent[:])
	}); err != nil {
		return fmt.Errorf("store agent key: %w", err)
	}
	return nil
}

// HashEntry computes the address v would be stored under.
func (n *Node) HashEntry(v any) (Address, error) {
	data, err := Marshal(v)
	if err != nil {
		return Address{}, err
	}
	return keyedHash(entryDomainKey, data), nil
}

// CreateEntry stores v and returns the address of the action that
// created it. Identical payloads share an entry address; every call
// produces a distinct action.
func (n *Node) CreateEntry(ctx context.Context, entryType string, v any) (Address, error) {
	if err := ctx.Err(); err != nil {
		return Address{}, err
	}

	data, err := Marshal(v)
	if err != nil {
		return Address{}, err
	}
	entryHash := keyedHash(entryDomainKey, data)

	act := action{
		EntryHash: entryHash,
		EntryType: entryType,
		Author:    n.agent,
		Timestamp: n.now().UnixNano(),
		Nonce:     uuid.New(),
	}
	actBytes, err := Marshal(act)
	if err != nil {
		return Address{}, err
	}
	actionHash := keyedHash(actionDomainKey, actBytes)

	stored, err := Marshal(packEntry(entryType, data, n.cfg.CompressThreshold))
	if err != nil {
		return Address{}, err
	}

	err = n.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(entryKey(entryHash), stored); err != nil {
			return err
		}
		if err := txn.Set(actionKey(actionHash), actBytes); err != nil {
			return err
		}
		return txn.Set(entryActionKey(entryHash, act.Timestamp, actionHash), nil)
	})
	if err != nil {
		return Address{}, fmt.Errorf("create %s entry: %w", entryType, err)
	}
	return actionHash, nil
}

// Get resolves an action address or an entry address to its record.
// An entry address resolves through its earliest action. Absence is
// reported with ok=false, not an error.
func (n *Node) Get(ctx context.Context, addr Address) (*Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var rec *Record
	err := n.db.View(func(txn *badger.Txn) error {
		actionHash := addr
		act, found, err := readAction(txn, addr)
		if err != nil {
			return err
		}
		if !found {
			actionHash, found, err = firstAction(txn, addr)
			if err != nil || !found {
				return err
			}
			act, found, err = readAction(txn, actionHash)
			if err != nil || !found {
				return err
			}
		}

		payload, entryType, found, err := readEntry(txn, act.EntryHash)
		if err != nil || !found {
			return err
		}
		rec = &Record{
			Action:    actionHash,
			EntryHash: act.EntryHash,
			EntryType: entryType,
			Author:    act.Author,
			Timestamp: time.Unix(0, act.Timestamp),
			Entry:     payload,
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", addr, err)
	}
	return rec, rec != nil, nil
}

// GetMany resolves addrs concurrently. The result is positional: a nil
// element means the address resolved to nothing.
func (n *Node) GetMany(ctx context.Context, addrs []Address) ([]*Record, error) {
	out := make([]*Record, len(addrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.cfg.FetchConcurrency)
	for i, addr := range addrs {
		g.Go(func() error {
			rec, ok, err := n.Get(gctx, addr)
			if err != nil {
				return err
			}
			if ok {
				out[i] = rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func readAction(txn *badger.Txn, addr Address) (action, bool, error) {
	var act action
	item, err := txn.Get(actionKey(addr))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return act, false, nil
	}
	if err != nil {
		return act, false, err
	}
	err = item.Value(func(v []byte) error {
		return Unmarshal(v, &act)
	})
	return act, err == nil, err
}

func firstAction(txn *badger.Txn, entryHash Address) (Address, bool, error) {
	prefix := storage.EncodeKey(PREFIX_ENTRY_ACTION, []storage.Value{storage.NewBytesValue(entryHash[:])})

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	it.Seek(prefix)
	if !it.ValidForPrefix(prefix) {
		return Address{}, false, nil
	}
	vals, err := storage.ExtractValues(it.Item().Key())
	if err != nil {
		return Address{}, false, err
	}
	if len(vals) != 3 || len(vals[2].Str) != AddressSize {
		return Address{}, false, fmt.Errorf("corrupt entry action key for %s", entryHash)
	}
	var out Address
	copy(out[:], vals[2].Str)
	return out, true, nil
}

func readEntry(txn *badger.Txn, entryHash Address) ([]byte, string, bool, error) {
	item, err := txn.Get(entryKey(entryHash))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, err
	}

	var stored storedEntry
	if err := item.Value(func(v []byte) error {
		return Unmarshal(v, &stored)
	}); err != nil {
		return nil, "", false, err
	}
	payload, err := stored.payload()
	if err != nil {
		return nil, "", false, err
	}
	return payload, stored.EntryType, true, nil
}

func entryKey(entryHash Address) []byte {
	return storage.EncodeKey(PREFIX_ENTRY, []storage.Value{storage.NewBytesValue(entryHash[:])})
}

func actionKey(actionHash Address) []byte {
	return storage.EncodeKey(PREFIX_ACTION, []storage.Value{storage.NewBytesValue(actionHash[:])})
}

func entryActionKey(entryHash Address, ts int64, actionHash Address) []byte {
	return storage.EncodeKey(PREFIX_ENTRY_ACTION, []storage.Value{
		storage.NewBytesValue(entryHash[:]),
		storage.NewInt64Value(ts),
		storage.NewBytesValue(actionHash[:]),
	})
}

// badgerLogger adapts zerolog to badger's Logger interface.
type badgerLogger struct {
	log zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}
