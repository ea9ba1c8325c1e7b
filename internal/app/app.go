// Package app ties the client together: every mutation lands in the local
// store first, then a queued sync replays it against the server. Reads never
// touch the network.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/claude/gymtrack/internal/catalog"
	"github.com/claude/gymtrack/internal/localstore"
	"github.com/claude/gymtrack/internal/match"
	"github.com/claude/gymtrack/internal/models"
	"github.com/claude/gymtrack/internal/remote"
	"github.com/claude/gymtrack/internal/stats"
	"github.com/claude/gymtrack/internal/syncqueue"
)

// App is the client-side entry point used by the CLIs and the MCP server.
type App struct {
	store  *localstore.Store
	remote *remote.Client
	cat    *catalog.Catalog
	queue  *syncqueue.Queue
	log    *slog.Logger
	now    func() time.Time
}

// New wires the store, remote client and catalog into an App and builds its
// sync queue. notify receives user-facing messages (data loss, re-login).
func New(store *localstore.Store, rc *remote.Client, cat *catalog.Catalog, notify syncqueue.Notifier, log *slog.Logger) *App {
	a := &App{
		store:  store,
		remote: rc,
		cat:    cat,
		log:    log,
		now:    time.Now,
	}
	a.queue = syncqueue.New(store, a, notify, rc.Ping, log)
	return a
}

// Queue exposes the sync queue for the periodic drain loop.
func (a *App) Queue() *syncqueue.Queue { return a.queue }

// Catalog returns the loaded equipment catalog.
func (a *App) Catalog() *catalog.Catalog { return a.cat }

// Settings loads the local settings document, falling back to defaults when
// nothing has been stored yet.
func (a *App) Settings() (models.SettingsDocument, error) {
	doc := models.DefaultSettings()
	ok, err := a.store.GetJSON(localstore.KeySettings, &doc)
	if err != nil {
		return doc, fmt.Errorf("loading settings: %w", err)
	}
	if !ok {
		return models.DefaultSettings(), nil
	}
	return doc, nil
}

// WorkoutLog loads the local workout log document.
func (a *App) WorkoutLog() (models.WorkoutLogDocument, error) {
	doc := models.DefaultWorkoutLog()
	ok, err := a.store.GetJSON(localstore.KeyWorkoutLog, &doc)
	if err != nil {
		return doc, fmt.Errorf("loading workout log: %w", err)
	}
	if !ok {
		return models.DefaultWorkoutLog(), nil
	}
	return doc, nil
}

// Statistics returns the derived statistics for the local workout history.
func (a *App) Statistics() (models.Statistics, error) {
	log, err := a.WorkoutLog()
	if err != nil {
		return models.Statistics{}, err
	}
	return stats.Compute(log.Workouts), nil
}

// FindSubstitutes ranks catalog alternatives for the given equipment id.
func (a *App) FindSubstitutes(id string, limit int) ([]models.MatchResult, error) {
	return match.FindSubstitutes(a.cat.All(), id, limit)
}

// SaveSettings persists the settings locally and queues a remote push. The
// local write succeeds even when the server is unreachable.
func (a *App) SaveSettings(ctx context.Context, doc models.SettingsDocument) error {
	doc.LastModified = a.now()
	if err := a.store.SetJSON(localstore.KeySettings, doc); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	_, err := a.queue.Enqueue(ctx, models.MutationSaveSettings, doc)
	return err
}

// LogWorkout appends a workout to the local log, stamps per-equipment
// last-used state into settings, and queues the remote mutations.
func (a *App) LogWorkout(ctx context.Context, w models.Workout) (models.Workout, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Date.IsZero() {
		w.Date = a.now()
	}

	log, err := a.WorkoutLog()
	if err != nil {
		return w, err
	}
	log.Workouts = append([]models.Workout{w}, log.Workouts...)
	log.Statistics = stats.Compute(log.Workouts)
	if err := a.store.SetJSON(localstore.KeyWorkoutLog, log); err != nil {
		return w, fmt.Errorf("saving workout log: %w", err)
	}

	if err := a.touchEquipment(ctx, w); err != nil {
		return w, err
	}

	_, err = a.queue.Enqueue(ctx, models.MutationSaveWorkout, w)
	return w, err
}

// touchEquipment records the last weight and date used for each equipment
// in the workout, then queues the updated settings.
func (a *App) touchEquipment(ctx context.Context, w models.Workout) error {
	if len(w.Exercises) == 0 {
		return nil
	}
	doc, err := a.Settings()
	if err != nil {
		return err
	}
	day := w.Date.Format("2006-01-02")
	for _, ex := range w.Exercises {
		eq := doc.Equipment[ex.EquipmentID]
		eq.LastUsedDate = day
		for _, set := range ex.Sets {
			if set.Completed && set.Weight > 0 {
				eq.LastWeight = set.Weight
			}
		}
		doc.Equipment[ex.EquipmentID] = eq
	}
	return a.SaveSettings(ctx, doc)
}

// UpdateWorkout replaces a workout by id in the local log and queues the
// remote replacement.
func (a *App) UpdateWorkout(ctx context.Context, w models.Workout) error {
	log, err := a.WorkoutLog()
	if err != nil {
		return err
	}
	found := false
	for i := range log.Workouts {
		if log.Workouts[i].ID == w.ID {
			log.Workouts[i] = w
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("workout %s not found", w.ID)
	}
	log.Statistics = stats.Compute(log.Workouts)
	if err := a.store.SetJSON(localstore.KeyWorkoutLog, log); err != nil {
		return fmt.Errorf("saving workout log: %w", err)
	}
	_, err = a.queue.Enqueue(ctx, models.MutationUpdateWorkout, w)
	return err
}

// DeleteWorkout removes a workout by id locally and queues the remote
// delete.
func (a *App) DeleteWorkout(ctx context.Context, id string) error {
	log, err := a.WorkoutLog()
	if err != nil {
		return err
	}
	kept := log.Workouts[:0]
	found := false
	for _, w := range log.Workouts {
		if w.ID == id {
			found = true
			continue
		}
		kept = append(kept, w)
	}
	if !found {
		return fmt.Errorf("workout %s not found", id)
	}
	log.Workouts = kept
	log.Statistics = stats.Compute(log.Workouts)
	if err := a.store.SetJSON(localstore.KeyWorkoutLog, log); err != nil {
		return fmt.Errorf("saving workout log: %w", err)
	}
	_, err = a.queue.Enqueue(ctx, models.MutationDeleteWorkout, map[string]string{"id": id})
	return err
}

// Register creates an account, then folds any pre-login local data into it.
func (a *App) Register(ctx context.Context, name string) (remote.AuthState, error) {
	st, err := a.remote.Register(ctx, name)
	if err != nil {
		return st, err
	}
	return st, a.ensureMigrated(ctx)
}

// Login authenticates an existing account id, then folds any pre-login
// local data into it.
func (a *App) Login(ctx context.Context, userID string) (remote.AuthState, error) {
	st, err := a.remote.Login(ctx, userID)
	if err != nil {
		return st, err
	}
	return st, a.ensureMigrated(ctx)
}

// ensureMigrated runs the one-time migration of anonymous local documents
// into the authenticated account. The server merges local-wins and returns
// the converged documents, which replace the local copies.
func (a *App) ensureMigrated(ctx context.Context) error {
	done, ok, err := a.store.GetRaw(localstore.KeyMigrationDone)
	if err != nil {
		return fmt.Errorf("reading migration flag: %w", err)
	}
	if ok && done == "true" {
		return nil
	}
	return a.migrate(ctx)
}

func (a *App) migrate(ctx context.Context) error {
	settings, err := a.Settings()
	if err != nil {
		return err
	}
	log, err := a.WorkoutLog()
	if err != nil {
		return err
	}

	summary, err := a.remote.Migrate(ctx, &settings, &log, "")
	if err != nil {
		return fmt.Errorf("migrating local data: %w", err)
	}
	a.log.Info("migration complete",
		"userId", summary.UserID,
		"workoutsMerged", summary.WorkoutsMerged)

	// Pull the converged documents so this device matches the account.
	if merged, etag, err := a.remote.GetSettings(ctx); err == nil {
		a.storeMergedSettings(merged, etag)
	} else if !errors.Is(err, remote.ErrNotFound) {
		return fmt.Errorf("fetching merged settings: %w", err)
	}
	if mergedLog, _, err := a.remote.GetWorkoutLog(ctx); err == nil {
		if err := a.store.SetJSON(localstore.KeyWorkoutLog, mergedLog); err != nil {
			return fmt.Errorf("persisting merged workout log: %w", err)
		}
	} else if !errors.Is(err, remote.ErrNotFound) {
		return fmt.Errorf("fetching merged workout log: %w", err)
	}

	if err := a.store.SetRaw(localstore.KeyMigrationDone, "true"); err != nil {
		return fmt.Errorf("recording migration flag: %w", err)
	}
	return nil
}

// Sync drains the queue once.
func (a *App) Sync(ctx context.Context) syncqueue.Result {
	return a.queue.Drain(ctx)
}

// ForceSync drains immediately, failing fast when offline.
func (a *App) ForceSync(ctx context.Context) (syncqueue.Result, error) {
	return a.queue.ForceSync(ctx)
}
