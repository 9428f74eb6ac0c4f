package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"supportrag/internal/domain"
)

var (
	bucketIndexes   = []byte("indexes")
	bucketWeights   = []byte("weights")
	bucketApprovals = []byte("approvals")
	bucketMeta      = []byte("meta")
)

// BoltStore persists index snapshots, tenant weights and the approval
// history in a single bbolt file. Every write is one Update transaction,
// so a snapshot replace is atomic.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketIndexes, bucketWeights, bucketApprovals, bucketMeta}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

type storedEntry struct {
	Content  string            `json:"c"`
	Metadata map[string]string `json:"m,omitempty"`
	Vector   []float32         `json:"v"`
}

// LoadIndex returns the entries of one index in insertion order.
func (s *BoltStore) LoadIndex(ctx context.Context, id domain.IndexIdentity) ([]domain.IndexEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []domain.IndexEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketIndexes).Bucket([]byte(id.Key()))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var stored storedEntry
			if err := json.Unmarshal(v, &stored); err != nil {
				return fmt.Errorf("corrupt entry %x in %s: %w", k, id.Key(), err)
			}
			entries = append(entries, domain.IndexEntry{
				Content:  stored.Content,
				Metadata: stored.Metadata,
				Vector:   stored.Vector,
			})
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load index %s: %w", id.Key(), err)
	}
	return entries, nil
}

// SaveIndex replaces the stored snapshot of one index.
func (s *BoltStore) SaveIndex(ctx context.Context, id domain.IndexIdentity, entries []domain.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(id.Key())
	return s.db.Update(func(tx *bbolt.Tx) error {
		parent := tx.Bucket(bucketIndexes)
		if parent.Bucket(key) != nil {
			if err := parent.DeleteBucket(key); err != nil {
				return fmt.Errorf("failed to drop index %s: %w", id.Key(), err)
			}
		}
		b, err := parent.CreateBucket(key)
		if err != nil {
			return fmt.Errorf("failed to create index %s: %w", id.Key(), err)
		}
		b.FillPercent = 1.0

		for i, e := range entries {
			data, err := json.Marshal(storedEntry{Content: e.Content, Metadata: e.Metadata, Vector: e.Vector})
			if err != nil {
				return err
			}
			if err := b.Put(seqKey(uint64(i)), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// IndexKeys lists the identities of all stored indexes.
func (s *BoltStore) IndexKeys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketIndexes).ForEach(func(k, v []byte) error {
			if v == nil {
				keys = append(keys, string(k))
			}
			return nil
		})
	})
	return keys, err
}

func seqKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}
