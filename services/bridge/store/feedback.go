// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
)

// SaveFeedback persists one learner feedback row. Missing IDs and
// timestamps are filled in.
func (s *Store) SaveFeedback(ctx context.Context, fb datatypes.Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.Timestamp.IsZero() {
		fb.Timestamp = timeNow()
	}

	value, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("store: encode feedback: %w", err)
	}
	key := fmt.Sprintf("feedback/%s/%s/%s", sessionKey(fb.SessionID), reverseStamp(fb.Timestamp), fb.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// RecentFeedback returns a session's feedback rows, newest first, up to
// limit. A limit of 0 or less returns everything.
func (s *Store) RecentFeedback(ctx context.Context, sessionID string, limit int) ([]datatypes.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(fmt.Sprintf("feedback/%s/", sessionKey(sessionID)))

	var out []datatypes.Feedback
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(out) >= limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				var fb datatypes.Feedback
				if err := json.Unmarshal(value, &fb); err != nil {
					return fmt.Errorf("store: decode feedback: %w", err)
				}
				out = append(out, fb)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
