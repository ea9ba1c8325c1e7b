package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Document types stored per user.
const (
	DocSettings   = "settings"
	DocWorkoutLog = "workout_log"
)

var (
	// ErrDocNotFound is returned when a user has no document of the
	// requested type yet.
	ErrDocNotFound = errors.New("document not found")

	// ErrETagMismatch is returned when a conditional write names a stale
	// version. Callers surface this as an HTTP 409.
	ErrETagMismatch = errors.New("document version mismatch")
)

// GetDocument returns a user's document body and its current ETag.
func (db *DB) GetDocument(ctx context.Context, userID uuid.UUID, docType string) ([]byte, string, error) {
	var body []byte
	var etag string
	err := db.Pool.QueryRow(ctx, `
		SELECT body, etag FROM documents
		WHERE user_id = $1 AND doc_type = $2
	`, userID, docType).Scan(&body, &etag)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrDocNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("querying %s document: %w", docType, err)
	}
	return body, etag, nil
}

// PutDocument replaces a user's document. When ifMatch is non-empty the
// write only succeeds against that exact version; an empty ifMatch writes
// unconditionally (first write, or a client that never fetched). Returns
// the new ETag.
func (db *DB) PutDocument(ctx context.Context, userID uuid.UUID, docType string, body []byte, ifMatch string) (string, error) {
	etag := uuid.NewString()

	if ifMatch == "" {
		_, err := db.Pool.Exec(ctx, `
			INSERT INTO documents (user_id, doc_type, body, etag, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (user_id, doc_type) DO UPDATE
				SET body = $3, etag = $4, updated_at = NOW()
		`, userID, docType, body, etag)
		if err != nil {
			return "", fmt.Errorf("writing %s document: %w", docType, err)
		}
		return etag, nil
	}

	tag, err := db.Pool.Exec(ctx, `
		UPDATE documents SET body = $3, etag = $4, updated_at = NOW()
		WHERE user_id = $1 AND doc_type = $2 AND etag = $5
	`, userID, docType, body, etag, ifMatch)
	if err != nil {
		return "", fmt.Errorf("writing %s document: %w", docType, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a stale version from a missing document.
		if _, _, gerr := db.GetDocument(ctx, userID, docType); errors.Is(gerr, ErrDocNotFound) {
			return "", ErrDocNotFound
		}
		return "", ErrETagMismatch
	}
	return etag, nil
}

// MutateDocument applies fn to a user's document under a row lock, so
// concurrent workout appends from two devices cannot lose each other.
// fn receives nil when the document does not exist yet.
func (db *DB) MutateDocument(ctx context.Context, userID uuid.UUID, docType string, fn func(body []byte) ([]byte, error)) (string, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var body []byte
	err = tx.QueryRow(ctx, `
		SELECT body FROM documents
		WHERE user_id = $1 AND doc_type = $2
		FOR UPDATE
	`, userID, docType).Scan(&body)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("locking %s document: %w", docType, err)
	}

	next, err := fn(body)
	if err != nil {
		return "", err
	}

	etag := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO documents (user_id, doc_type, body, etag, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, doc_type) DO UPDATE
			SET body = $3, etag = $4, updated_at = NOW()
	`, userID, docType, next, etag)
	if err != nil {
		return "", fmt.Errorf("writing %s document: %w", docType, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("committing %s document: %w", docType, err)
	}
	return etag, nil
}
