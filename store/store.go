package store

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/kgroups/rootkey/capability"
	"github.com/kgroups/rootkey/relay"
)

var (
	groupsBucket       = []byte("groups")
	capabilitiesBucket = []byte("capabilities")
	revocationsBucket  = []byte("revocations")
)

// FilePerm is the permission used to open or create the database file.
const FilePerm = 0o660

// BoltStore implements relay.Store using bbolt. Every method opens
// exactly one read or write transaction; there is no in-memory cache,
// so a Load call always reflects what has actually been committed.
type BoltStore struct {
	db  *bolt.DB
	log *zap.SugaredLogger
}

var _ relay.Store = (*BoltStore)(nil)

// Open creates or opens a bbolt database at path and ensures its three
// buckets exist.
func Open(path string, log *zap.SugaredLogger) (*BoltStore, error) {
	db, err := bolt.Open(path, FilePerm, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{groupsBucket, capabilitiesBucket, revocationsBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create buckets: %w", err)
	}
	return &BoltStore{db: db, log: log}, nil
}

// SaveGroup upserts g, keyed by its group id.
func (s *BoltStore) SaveGroup(_ context.Context, g *relay.GroupState) error {
	buf, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("store: marshal group %s: %w", g.ID, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(groupsBucket).Put([]byte(g.ID), buf)
	})
}

// LoadGroups returns every persisted group, in bucket key order.
func (s *BoltStore) LoadGroups(_ context.Context) ([]*relay.GroupState, error) {
	var groups []*relay.GroupState
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(groupsBucket).ForEach(func(_, v []byte) error {
			g := &relay.GroupState{}
			if err := json.Unmarshal(v, g); err != nil {
				return err
			}
			groups = append(groups, g)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: load groups: %w", err)
	}
	return groups, nil
}

// SaveCapability persists c, keyed by its originating event id.
func (s *BoltStore) SaveCapability(_ context.Context, c *capability.Capability) error {
	buf, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("store: marshal capability %s: %w", c.EventID, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(capabilitiesBucket).Put([]byte(c.EventID), buf)
	})
}

// SaveRevocation records that the grant identified by revokedEventID
// has been revoked.
func (s *BoltStore) SaveRevocation(_ context.Context, revokedEventID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(revocationsBucket).Put([]byte(revokedEventID), []byte{1})
	})
}

// LoadCapabilities returns every persisted capability, in bucket key
// order.
func (s *BoltStore) LoadCapabilities(_ context.Context) ([]*capability.Capability, error) {
	var caps []*capability.Capability
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(capabilitiesBucket).ForEach(func(_, v []byte) error {
			c := &capability.Capability{}
			if err := json.Unmarshal(v, c); err != nil {
				return err
			}
			caps = append(caps, c)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: load capabilities: %w", err)
	}
	return caps, nil
}

// LoadRevocations returns every revoked grant's event id.
func (s *BoltStore) LoadRevocations(_ context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(revocationsBucket).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: load revocations: %w", err)
	}
	return ids, nil
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		s.log.Errorw("close store", "err", err)
		return err
	}
	return nil
}
