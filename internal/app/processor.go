package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/claude/gymtrack/internal/localstore"
	"github.com/claude/gymtrack/internal/merge"
	"github.com/claude/gymtrack/internal/models"
	"github.com/claude/gymtrack/internal/remote"
)

// maxConflictRounds bounds the fetch/merge/resubmit cycle when a settings
// push races another device. Each round fetches a fresh ETag, so one round
// is normally enough.
const maxConflictRounds = 3

// Process replays one queued mutation against the server. The sync queue
// owns retry and eviction; Process only classifies by mutation type and
// reports the remote outcome.
func (a *App) Process(ctx context.Context, item models.QueueItem) error {
	switch item.Type {
	case models.MutationSaveSettings:
		var doc models.SettingsDocument
		if err := json.Unmarshal(item.Payload, &doc); err != nil {
			return fmt.Errorf("decoding queued settings: %w", err)
		}
		return a.pushSettings(ctx, &doc)

	case models.MutationSaveWorkout:
		var w models.Workout
		if err := json.Unmarshal(item.Payload, &w); err != nil {
			return fmt.Errorf("decoding queued workout: %w", err)
		}
		return a.remote.PostWorkout(ctx, w)

	case models.MutationUpdateWorkout:
		var w models.Workout
		if err := json.Unmarshal(item.Payload, &w); err != nil {
			return fmt.Errorf("decoding queued workout: %w", err)
		}
		return a.remote.PutWorkout(ctx, w)

	case models.MutationDeleteWorkout:
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(item.Payload, &p); err != nil {
			return fmt.Errorf("decoding queued delete: %w", err)
		}
		err := a.remote.DeleteWorkout(ctx, p.ID)
		if errors.Is(err, remote.ErrNotFound) {
			// Already gone remotely; the local intent is satisfied.
			return nil
		}
		return err

	default:
		return fmt.Errorf("unknown mutation type %q", item.Type)
	}
}

// pushSettings uploads a settings snapshot with optimistic concurrency:
// fetch the remote document, merge with the snapshot winning, PUT guarded
// by the fetched ETag. A version conflict means another device wrote in
// between, so the cycle repeats against the fresh remote state.
func (a *App) pushSettings(ctx context.Context, local *models.SettingsDocument) error {
	var lastErr error
	for round := 0; round < maxConflictRounds; round++ {
		rem, etag, err := a.remote.GetSettings(ctx)
		if errors.Is(err, remote.ErrNotFound) {
			rem, etag = nil, ""
		} else if err != nil {
			return err
		}

		merged := merge.Settings(rem, local)
		newTag, err := a.remote.PutSettings(ctx, merged, etag)
		if err == nil {
			a.storeMergedSettings(merged, newTag)
			return nil
		}

		var conflict *remote.ConflictError
		if !errors.As(err, &conflict) {
			return err
		}
		lastErr = err
		a.log.Warn("settings push conflicted, re-merging", "round", round+1)
	}
	return lastErr
}

// storeMergedSettings writes the post-merge document back so this device
// converges on the same state the server now holds.
func (a *App) storeMergedSettings(doc *models.SettingsDocument, etag string) {
	if err := a.store.SetJSON(localstore.KeySettings, doc); err != nil {
		a.log.Warn("persisting merged settings", "error", err)
	}
	if etag != "" {
		if err := a.store.SetRaw(localstore.KeySettingsETag, etag); err != nil {
			a.log.Warn("persisting settings etag", "error", err)
		}
	}
}
