package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
	"supportrag/internal/domain"
)

// GetWeights returns the stored weights of a tenant exactly as written.
func (s *BoltStore) GetWeights(ctx context.Context, tenantID string) (domain.SourceWeights, bool, error) {
	var w domain.SourceWeights
	if err := ctx.Err(); err != nil {
		return w, false, err
	}

	found := false
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketWeights).Get([]byte(tenantID))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &w); err != nil {
			return fmt.Errorf("failed to decode weights for %s: %w", tenantID, err)
		}
		found = true
		return nil
	})
	return w, found, err
}

func (s *BoltStore) PutWeights(ctx context.Context, tenantID string, w domain.SourceWeights) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketWeights).Put([]byte(tenantID), data)
	})
}
