package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/claude/gymtrack/internal/localstore"
	"github.com/claude/gymtrack/internal/models"
)

// Register creates a new account and stores the issued identity locally.
func (c *Client) Register(ctx context.Context, userName string) (AuthState, error) {
	body, _ := json.Marshal(map[string]string{"name": userName})
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/auth/register", body, nil, false)
	if err != nil {
		return AuthState{}, err
	}

	var st AuthState
	if err := json.Unmarshal(resp.body, &st); err != nil {
		return AuthState{}, fmt.Errorf("decoding register response: %w", err)
	}
	if err := c.store.SetJSON(localstore.KeyAuth, st); err != nil {
		return AuthState{}, fmt.Errorf("persisting auth state: %w", err)
	}
	return st, nil
}

// Login re-issues a token for an existing account id and stores it.
func (c *Client) Login(ctx context.Context, userID string) (AuthState, error) {
	body, _ := json.Marshal(map[string]string{"userId": userID})
	resp, err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", body, nil, false)
	if err != nil {
		return AuthState{}, err
	}

	var st AuthState
	if err := json.Unmarshal(resp.body, &st); err != nil {
		return AuthState{}, fmt.Errorf("decoding login response: %w", err)
	}
	if err := c.store.SetJSON(localstore.KeyAuth, st); err != nil {
		return AuthState{}, fmt.Errorf("persisting auth state: %w", err)
	}
	return st, nil
}

// GetSettings fetches the remote settings document and its ETag.
func (c *Client) GetSettings(ctx context.Context) (*models.SettingsDocument, string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/settings", nil, nil, true)
	if err != nil {
		return nil, "", err
	}
	var doc models.SettingsDocument
	if err := json.Unmarshal(resp.body, &doc); err != nil {
		return nil, "", fmt.Errorf("decoding settings: %w", err)
	}
	return &doc, resp.etag, nil
}

// PutSettings replaces the remote settings document. etag guards against
// concurrent modification; pass "" on first write.
func (c *Client) PutSettings(ctx context.Context, doc *models.SettingsDocument, etag string) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding settings: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, "/api/v1/settings", body, ifMatch(etag), true)
	if err != nil {
		return "", err
	}
	return resp.etag, nil
}

// GetWorkoutLog fetches the remote workout log document and its ETag.
func (c *Client) GetWorkoutLog(ctx context.Context) (*models.WorkoutLogDocument, string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/workoutlogs", nil, nil, true)
	if err != nil {
		return nil, "", err
	}
	var doc models.WorkoutLogDocument
	if err := json.Unmarshal(resp.body, &doc); err != nil {
		return nil, "", fmt.Errorf("decoding workout log: %w", err)
	}
	return &doc, resp.etag, nil
}

// PutWorkoutLog replaces the remote workout log document.
func (c *Client) PutWorkoutLog(ctx context.Context, doc *models.WorkoutLogDocument, etag string) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encoding workout log: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, "/api/v1/workoutlogs", body, ifMatch(etag), true)
	if err != nil {
		return "", err
	}
	return resp.etag, nil
}

// PostWorkout appends one workout to the remote log.
func (c *Client) PostWorkout(ctx context.Context, w models.Workout) error {
	body, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encoding workout: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, "/api/v1/workouts", body, nil, true)
	return err
}

// PutWorkout replaces one workout in the remote log by id.
func (c *Client) PutWorkout(ctx context.Context, w models.Workout) error {
	body, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encoding workout: %w", err)
	}
	_, err = c.do(ctx, http.MethodPut, "/api/v1/workouts/"+w.ID, body, nil, true)
	return err
}

// DeleteWorkout removes one workout from the remote log by id.
func (c *Client) DeleteWorkout(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/workouts/"+id, nil, nil, true)
	return err
}

// Migrate pushes anonymous local documents into the authenticated account.
// The server merges with any existing remote documents, local winning.
func (c *Client) Migrate(ctx context.Context, settings *models.SettingsDocument, logs *models.WorkoutLogDocument, requestedUserID string) (*MergeSummary, error) {
	payload := map[string]any{
		"settings":    settings,
		"workoutLogs": logs,
	}
	if requestedUserID != "" {
		payload["requestedUserId"] = requestedUserID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding migration payload: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/v1/migrate", body, nil, true)
	if err != nil {
		return nil, err
	}
	var summary MergeSummary
	if err := json.Unmarshal(resp.body, &summary); err != nil {
		return nil, fmt.Errorf("decoding merge summary: %w", err)
	}
	return &summary, nil
}

// Export downloads the account's documents in the export file format.
func (c *Client) Export(ctx context.Context) (*models.ExportDocument, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/v1/export", nil, nil, true)
	if err != nil {
		return nil, err
	}
	var doc models.ExportDocument
	if err := json.Unmarshal(resp.body, &doc); err != nil {
		return nil, fmt.Errorf("decoding export: %w", err)
	}
	return &doc, nil
}

// Ping reports whether the server is reachable. Used as the connectivity
// probe by the sync queue.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, nil, false)
	return err == nil
}

func ifMatch(etag string) map[string]string {
	if etag == "" {
		return nil
	}
	return map[string]string{"If-Match": etag}
}
