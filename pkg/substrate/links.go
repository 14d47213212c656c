// ABOUTME: Link and path-anchor primitives of the local-node substrate
// ABOUTME: Links are keyed (base, type, timestamp, handle) for ordered prefix scans

package substrate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/nainya/howcatalog/pkg/storage"
)

// linkValue is stored under the link key.
type linkValue struct {
	Target    Address  `cbor:"t"`
	Tag       []byte   `cbor:"g"`
	Author    AgentKey `cbor:"a"`
	Timestamp int64    `cbor:"ts"`
}

// linkAction is hashed to produce the link handle.
type linkAction struct {
	Base      Address   `cbor:"b"`
	Target    Address   `cbor:"t"`
	Type      LinkType  `cbor:"y"`
	Tag       []byte    `cbor:"g"`
	Author    AgentKey  `cbor:"a"`
	Timestamp int64     `cbor:"ts"`
	Nonce     uuid.UUID `cbor:"n"`
}

// CreateLink adds a link from base to target and returns its handle.
// Every call creates a new link, even for an identical
// (base, target, type, tag) tuple.
func (n *Node) CreateLink(ctx context.Context, base, target Address, linkType LinkType, tag []byte) (Address, error) {
	if err := ctx.Err(); err != nil {
		return Address{}, err
	}

	ts := n.now().UnixNano()
	la := linkAction{
		Base:      base,
		Target:    target,
		Type:      linkType,
		Tag:       tag,
		Author:    n.agent,
		Timestamp: ts,
		Nonce:     uuid.New(),
	}
	laBytes, err := Marshal(la)
	if err != nil {
		return Address{}, err
	}
	handle := keyedHash(linkDomainKey, laBytes)

	val, err := Marshal(linkValue{Target: target, Tag: tag, Author: n.agent, Timestamp: ts})
	if err != nil {
		return Address{}, err
	}

	key := linkKey(base, linkType, ts, handle)
	err = n.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, val); err != nil {
			return err
		}
		return txn.Set(linkHandleKey(handle), key)
	})
	if err != nil {
		return Address{}, fmt.Errorf("create %s link: %w", linkType, err)
	}
	return handle, nil
}

// DeleteLink removes the link with the given handle. Deleting a link
// that does not exist is not an error.
func (n *Node) DeleteLink(ctx context.Context, handle Address) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := n.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(linkHandleKey(handle))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(linkHandleKey(handle))
	})
	if errors.Is(err, badger.ErrConflict) {
		// A concurrent transaction touched the same handle. If the link
		// is gone now, the outcome is the one the caller asked for.
		exists, cerr := n.linkExists(handle)
		if cerr != nil {
			return fmt.Errorf("delete link %s: %w", handle, cerr)
		}
		if !exists {
			return nil
		}
	}
	if err != nil {
		return fmt.Errorf("delete link %s: %w", handle, err)
	}
	return nil
}

func (n *Node) linkExists(handle Address) (bool, error) {
	err := n.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(linkHandleKey(handle))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// GetLinks enumerates the currently visible links of one type at base,
// oldest first. A non-empty tagPrefix restricts the result to links
// whose tag starts with it.
func (n *Node) GetLinks(ctx context.Context, base Address, linkType LinkType, tagPrefix []byte) ([]Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := storage.EncodeKey(PREFIX_LINK, []storage.Value{
		storage.NewBytesValue(base[:]),
		storage.NewUint64Value(uint64(linkType)),
	})

	var links []Link
	err := n.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			vals, err := storage.ExtractValues(item.Key())
			if err != nil {
				return err
			}
			if len(vals) != 4 || len(vals[3].Str) != AddressSize {
				return fmt.Errorf("corrupt link key at %s", base)
			}

			var lv linkValue
			if err := item.Value(func(v []byte) error {
				return Unmarshal(v, &lv)
			}); err != nil {
				return err
			}
			if !bytes.HasPrefix(lv.Tag, tagPrefix) {
				continue
			}

			link := Link{
				Base:      base,
				Target:    lv.Target,
				Type:      linkType,
				Tag:       lv.Tag,
				Author:    lv.Author,
				Timestamp: time.Unix(0, lv.Timestamp),
			}
			copy(link.Handle[:], vals[3].Str)
			links = append(links, link)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get %s links at %s: %w", linkType, base, err)
	}
	return links, nil
}

// EnsurePath registers p and every ancestor prefix as addressable
// nodes, and links each parent to its child with a link of linkType
// tagged by the child's last component. Keys and handles are
// deterministic, so repeated calls rewrite the same records.
func (n *Node) EnsurePath(ctx context.Context, p Path, linkType LinkType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(p) == 0 {
		return ErrEmptyPath
	}

	ts := n.now().UnixNano()
	err := n.db.Update(func(txn *badger.Txn) error {
		var parent Address
		for i := 1; i <= len(p); i++ {
			sub := p[:i]
			addr := sub.Address()

			data, err := Marshal([]string(sub))
			if err != nil {
				return err
			}
			if err := txn.Set(pathKey(addr), data); err != nil {
				return err
			}

			if i > 1 {
				handle := keyedHash(linkDomainKey, parent[:], addr[:], []byte{byte(linkType)})
				val, err := Marshal(linkValue{Target: addr, Tag: []byte(sub.Leaf()), Author: n.agent, Timestamp: ts})
				if err != nil {
					return err
				}
				key := linkKey(parent, linkType, 0, handle)
				if err := txn.Set(key, val); err != nil {
					return err
				}
				if err := txn.Set(linkHandleKey(handle), key); err != nil {
					return err
				}
			}
			parent = addr
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ensure path %q: %w", p.String(), err)
	}
	return nil
}

// PathExists reports whether p has been ensured.
func (n *Node) PathExists(ctx context.Context, p Path) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := n.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(pathKey(p.Address()))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup path %q: %w", p.String(), err)
	}
	return true, nil
}

func linkKey(base Address, linkType LinkType, ts int64, handle Address) []byte {
	return storage.EncodeKey(PREFIX_LINK, []storage.Value{
		storage.NewBytesValue(base[:]),
		storage.NewUint64Value(uint64(linkType)),
		storage.NewInt64Value(ts),
		storage.NewBytesValue(handle[:]),
	})
}

func linkHandleKey(handle Address) []byte {
	return storage.EncodeKey(PREFIX_LINK_HANDLE, []storage.Value{storage.NewBytesValue(handle[:])})
}

func pathKey(addr Address) []byte {
	return storage.EncodeKey(PREFIX_PATH, []storage.Value{storage.NewBytesValue(addr[:])})
}
