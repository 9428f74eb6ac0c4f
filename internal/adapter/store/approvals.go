package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"supportrag/internal/domain"
)

// approvalKey orders approvals by creation time; the id suffix keeps keys
// unique when two approvals share a timestamp.
func approvalKey(createdAt time.Time, id string) []byte {
	k := make([]byte, 8, 8+len(id))
	binary.BigEndian.PutUint64(k, uint64(createdAt.UnixNano()))
	return append(k, id...)
}

// epoch is the earliest cutoff a key prefix can express.
var epoch = time.Unix(0, 0)

func (s *BoltStore) PutApproval(ctx context.Context, a domain.Approval) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.TenantID == "" {
		return fmt.Errorf("approval %s has no tenant", a.ID)
	}

	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(bucketApprovals).CreateBucketIfNotExists([]byte(a.TenantID))
		if err != nil {
			return err
		}
		return b.Put(approvalKey(a.CreatedAt, a.ID), data)
	})
}

func (s *BoltStore) ListApprovals(ctx context.Context, tenantID string, since time.Time) ([]domain.Approval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []domain.Approval
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketApprovals).Bucket([]byte(tenantID))
		if b == nil {
			return nil
		}

		c := b.Cursor()
		var k, v []byte
		if since.IsZero() || since.Before(epoch) {
			k, v = c.First()
		} else {
			prefix := make([]byte, 8)
			binary.BigEndian.PutUint64(prefix, uint64(since.UnixNano()))
			k, v = c.Seek(prefix)
		}
		for ; k != nil; k, v = c.Next() {
			var a domain.Approval
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("corrupt approval %q: %w", k[8:], err)
			}
			out = append(out, a)
		}
		return nil
	})
	return out, err
}
