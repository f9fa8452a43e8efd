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
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
)

func profileKey(sessionID string) []byte {
	return []byte("profile/" + sessionKey(sessionID))
}

// Profile returns the stored learner profile for a session. The second
// return is false when no profile has been stored.
func (s *Store) Profile(ctx context.Context, sessionID string) (datatypes.Profile, bool, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.Profile{}, false, err
	}

	var profile datatypes.Profile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(profileKey(sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &profile)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return datatypes.Profile{}, false, nil
	}
	if err != nil {
		return datatypes.Profile{}, false, fmt.Errorf("store: load profile: %w", err)
	}
	return profile, true, nil
}

// UpsertProfile merges non-nil override fields into the stored profile
// (creating it from defaults when absent) and returns the stored result.
func (s *Store) UpsertProfile(ctx context.Context, sessionID string, overrides *datatypes.ProfileOverrides) (datatypes.Profile, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.Profile{}, err
	}

	current, ok, err := s.Profile(ctx, sessionID)
	if err != nil {
		return datatypes.Profile{}, err
	}
	if !ok {
		current = datatypes.DefaultProfile(sessionID)
	}
	current = current.Apply(overrides)
	current.SessionID = sessionID
	current.KnowledgeLevel = datatypes.NormalizeLevel(current.KnowledgeLevel)

	value, err := json.Marshal(current)
	if err != nil {
		return datatypes.Profile{}, fmt.Errorf("store: encode profile: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(profileKey(sessionID), value)
	})
	if err != nil {
		return datatypes.Profile{}, fmt.Errorf("store: save profile: %w", err)
	}
	return current, nil
}
