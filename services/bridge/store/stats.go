// Copyright (C) 2025 The Concept-Connector Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"context"
	"strconv"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/IThioye/Concept-Connector/services/bridge/datatypes"
)

// Stats walks the history keyspace and returns totals for the admin
// metrics endpoint. Counts come from keys alone, no value reads.
// Anonymous interactions count toward the totals but not toward unique
// sessions.
func (s *Store) Stats(ctx context.Context) (datatypes.StoreStats, error) {
	if err := ctx.Err(); err != nil {
		return datatypes.StoreStats{}, err
	}

	cutoff := timeNow().Add(-24 * time.Hour)
	sessions := make(map[string]struct{})
	var stats datatypes.StoreStats

	prefix := []byte("history/")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			// history/<session>/<revstamp>/<id>
			parts := strings.Split(string(it.Item().Key()), "/")
			if len(parts) != 4 {
				continue
			}
			stats.TotalInteractions++
			if parts[1] != "_anonymous" {
				sessions[parts[1]] = struct{}{}
			}
			if stamp, err := strconv.ParseInt(parts[2], 10, 64); err == nil {
				at := time.Unix(0, int64(1)<<62-stamp)
				if at.After(cutoff) {
					stats.Interactions24h++
				}
			}
		}
		return nil
	})
	if err != nil {
		return datatypes.StoreStats{}, err
	}
	stats.UniqueSessions = int64(len(sessions))
	return stats, nil
}
