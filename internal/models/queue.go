package models

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"
)

// MutationType identifies what a queued mutation does when replayed.
type MutationType string

const (
	MutationSaveSettings  MutationType = "save-settings"
	MutationSaveWorkout   MutationType = "save-workout"
	MutationUpdateWorkout MutationType = "update-workout"
	MutationDeleteWorkout MutationType = "delete-workout"
)

// MaxQueueAttempts is the total number of delivery attempts a queued
// mutation gets before it is evicted and the user is notified.
const MaxQueueAttempts = 3

// QueueItem is one pending remote mutation. Items are owned exclusively by
// the sync queue and persisted so they survive a restart. An item leaves the
// queue only on confirmed remote success, a non-retryable rejection, or
// after MaxQueueAttempts failures.
type QueueItem struct {
	ID         string          `json:"id"`
	Type       MutationType    `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	RetryCount int             `json:"retryCount"`
}

// NewQueueItemID builds a time-plus-random item id, unique enough that two
// items enqueued in the same millisecond still differ.
func NewQueueItemID(now time.Time) string {
	return fmt.Sprintf("%d-%06d", now.UnixMilli(), rand.IntN(1_000_000))
}
