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

// SaveInteraction persists one query outcome against its session.
// Missing IDs and timestamps are filled in.
func (s *Store) SaveInteraction(ctx context.Context, in datatypes.Interaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = timeNow()
	}

	value, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("store: encode interaction: %w", err)
	}
	key := fmt.Sprintf("history/%s/%s/%s", sessionKey(in.SessionID), reverseStamp(in.Timestamp), in.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
}

// LastQueries returns the most recent concept pairs for a session,
// newest first, up to limit.
func (s *Store) LastQueries(ctx context.Context, sessionID string, limit int) ([]datatypes.ConceptPair, error) {
	interactions, err := s.Interactions(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	pairs := make([]datatypes.ConceptPair, 0, len(interactions))
	for _, in := range interactions {
		pairs = append(pairs, datatypes.ConceptPair{ConceptA: in.ConceptA, ConceptB: in.ConceptB})
	}
	return pairs, nil
}

// Interactions returns a session's stored interactions, newest first,
// up to limit. A limit of 0 or less returns everything.
func (s *Store) Interactions(ctx context.Context, sessionID string, limit int) ([]datatypes.Interaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := []byte(fmt.Sprintf("history/%s/", sessionKey(sessionID)))

	var out []datatypes.Interaction
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
				var in datatypes.Interaction
				if err := json.Unmarshal(value, &in); err != nil {
					return fmt.Errorf("store: decode interaction: %w", err)
				}
				out = append(out, in)
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
