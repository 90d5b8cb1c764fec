// Package clientdata provides a persistent cache for outbound client data
// (quote lookups). Entries are msgpack-encoded and expire after a TTL.
package clientdata

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// TTLs per namespace. Quotes go stale quickly; they only serve the quote-view
// endpoint, never trade execution (execution always re-quotes).
const (
	TTLQuote = 60 * time.Second
)

// Repository handles cache persistence in cache.db.
type Repository struct {
	cacheDB *sql.DB // cache.db - client_cache table
	log     zerolog.Logger
}

// NewRepository creates a new client data cache repository.
func NewRepository(cacheDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		cacheDB: cacheDB,
		log:     log.With().Str("repo", "clientdata").Logger(),
	}
}

// Store msgpack-encodes value and upserts it under (namespace, key) with the
// given TTL.
func (r *Repository) Store(namespace, key string, value interface{}, ttl time.Duration) error {
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache payload: %w", err)
	}

	now := time.Now().Unix()
	expiresAt := time.Now().Add(ttl).Unix()

	query := `
		INSERT INTO client_cache (namespace, cache_key, payload, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(namespace, cache_key) DO UPDATE SET
			payload = excluded.payload,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`

	if _, err := r.cacheDB.Exec(query, namespace, key, payload, expiresAt, now); err != nil {
		return fmt.Errorf("failed to store cache entry %s/%s: %w", namespace, key, err)
	}

	return nil
}

// GetIfFresh decodes the entry under (namespace, key) into dest if it exists
// and has not expired. Returns false when there is no fresh entry.
func (r *Repository) GetIfFresh(namespace, key string, dest interface{}) (bool, error) {
	var payload []byte
	err := r.cacheDB.QueryRow(
		"SELECT payload FROM client_cache WHERE namespace = ? AND cache_key = ? AND expires_at > ?",
		namespace, key, time.Now().Unix(),
	).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache entry %s/%s: %w", namespace, key, err)
	}

	if err := msgpack.Unmarshal(payload, dest); err != nil {
		// Corrupt entry - treat as a miss, it will be overwritten
		r.log.Warn().Err(err).Str("namespace", namespace).Str("key", key).Msg("Failed to decode cache entry")
		return false, nil
	}

	return true, nil
}

// PruneExpired deletes all expired entries. Run from the maintenance job.
func (r *Repository) PruneExpired() (int64, error) {
	result, err := r.cacheDB.Exec("DELETE FROM client_cache WHERE expires_at <= ?", time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}

	pruned, _ := result.RowsAffected()
	if pruned > 0 {
		r.log.Debug().Int64("pruned", pruned).Msg("Expired cache entries removed")
	}
	return pruned, nil
}
