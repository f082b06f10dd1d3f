// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

/*
Package offline persists posts created while offline and replays them when
connectivity returns.

The queue is durable and replayed with drain-and-retry semantics: every
disconnected-to-connected transition triggers exactly one ordered pass over
the whole queue. A record leaves the queue only after a confirmed remote
submission; anything else stays for the next pass, indefinitely, with no
backoff. After the pass the durable queue is overwritten with exactly the
remaining records, so queue state is recomputed whole rather than patched.
A crash mid-pass therefore cannot corrupt the queue beyond "some successes
replayed twice"; the server is expected to be idempotent on resubmission.

Records carry either an opaque local image handle or, once uploaded, the
durable URL. The upload survives a failed submit: the next pass skips
straight to the server call.
*/
package offline

import (
	stdctx "context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davitran/aperture/internal/event"
	"github.com/davitran/aperture/internal/httpclient"
	"github.com/davitran/aperture/internal/platform/apperr"
	"github.com/davitran/aperture/internal/platform/constants"
	"github.com/davitran/aperture/internal/platform/kvstore"
)

// Record is one queued post awaiting replay.
type Record struct {
	ID            string    `json:"id"`
	LocalImageRef string    `json:"imageUri,omitempty"`
	URL           string    `json:"url,omitempty"`
	Caption       string    `json:"caption"`
	UserID        string    `json:"user_id"`
	Hashtags      []string  `json:"hashtags"`
	CreatedAt     time.Time `json:"date"`

	// Attempts counts replay passes that touched this record. Diagnostic
	// only; it never gates a retry.
	Attempts int `json:"attempts"`
}

// NewRecord builds a queue record for a post captured while offline.
func NewRecord(localImageRef, caption, userID string, hashtags []string) Record {
	return Record{
		ID:            uuid.Must(uuid.NewV7()).String(),
		LocalImageRef: localImageRef,
		Caption:       caption,
		UserID:        userID,
		Hashtags:      hashtags,
		CreatedAt:     time.Now().UTC(),
	}
}

// Queue is the durable offline post queue.
type Queue struct {
	store    kvstore.Store
	client   *httpclient.Client
	uploader Uploader
	posts    *event.Channel
	logger   *slog.Logger
	baseURL  string

	// online reports current connectivity for the publish path. Optional;
	// nil means "assume online and let the request fail".
	online func() bool

	// drainMu serializes passes: at most one drain runs at a time, and
	// records inside a pass are strictly sequential. This bounds worst-case
	// duplicate-submission risk.
	drainMu sync.Mutex
}

// NewQueue constructs the offline queue.
func NewQueue(
	store kvstore.Store,
	client *httpclient.Client,
	uploader Uploader,
	posts *event.Channel,
	baseURL string,
	online func() bool,
	logger *slog.Logger,
) *Queue {
	return &Queue{
		store:    store,
		client:   client,
		uploader: uploader,
		posts:    posts,
		logger:   logger,
		baseURL:  baseURL,
		online:   online,
	}
}

// # Durable Queue State

// load returns the persisted queue in insertion order. A missing key is an
// empty queue.
func (queue *Queue) load(context stdctx.Context) ([]Record, error) {
	blob, err := queue.store.Get(context, constants.KeyOfflinePosts)
	if err != nil {
		if apperr.IsCode(err, "NOT_FOUND") {
			return []Record{}, nil
		}
		return nil, err
	}

	var records []Record
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, apperr.Storage("decode offline queue", err)
	}
	return records, nil
}

// save overwrites the persisted queue whole.
func (queue *Queue) save(context stdctx.Context, records []Record) error {
	blob, err := json.Marshal(records)
	if err != nil {
		return apperr.Storage("encode offline queue", err)
	}
	return queue.store.Set(context, constants.KeyOfflinePosts, blob)
}

// Len returns the number of queued records.
func (queue *Queue) Len(context stdctx.Context) (int, error) {
	records, err := queue.load(context)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

/*
Enqueue appends a record to the durable queue unconditionally.

Description: There is no deduplication; the same post enqueued twice will be
submitted twice. Acceptable for a client with infrequent reconnect events.

Parameters:
  - context: context.Context
  - record: Record

Returns:
  - error: apperr.Storage on persistence failures
*/
func (queue *Queue) Enqueue(context stdctx.Context, record Record) error {
	queue.drainMu.Lock()
	defer queue.drainMu.Unlock()

	records, err := queue.load(context)
	if err != nil {
		return err
	}
	records = append(records, record)

	if err := queue.save(context, records); err != nil {
		queue.logger.Error("offline enqueue failed",
			slog.String("op", "enqueue"),
			slog.String("record_id", record.ID),
			slog.Any("error", err),
		)
		return err
	}

	queue.logger.Info("post queued for replay",
		slog.String("record_id", record.ID),
		slog.Int("queue_len", len(records)),
	)
	return nil
}

// # Drain & Retry

/*
DrainAndRetry replays the queue once, in insertion order.

Description: For each record: upload the image first when no durable URL
exists yet, then submit the post to the backend. Any failure keeps the
record (with its durable URL, if the upload succeeded) for the next pass; no
error is surfaced to the user since this runs unattended. Each success drops
the record and emits one "post added" signal. After the full pass the
durable queue is overwritten with exactly the remaining records.

Parameters:
  - context: context.Context

Returns:
  - error: apperr.Storage when the queue itself cannot be read or rewritten
*/
func (queue *Queue) DrainAndRetry(context stdctx.Context) error {
	queue.drainMu.Lock()
	defer queue.drainMu.Unlock()

	records, err := queue.load(context)
	if err != nil {
		queue.logger.Error("offline queue read failed",
			slog.String("op", "drain_and_retry"),
			slog.Any("error", err),
		)
		return err
	}
	if len(records) == 0 {
		return nil
	}

	remaining := make([]Record, 0, len(records))
	replayed := 0

	for _, record := range records {
		record.Attempts++

		if err := queue.replay(context, &record); err != nil {
			queue.logger.Warn("post replay failed, keeping record",
				slog.String("op", "drain_and_retry"),
				slog.String("record_id", record.ID),
				slog.Int("attempts", record.Attempts),
				slog.Any("error", err),
			)
			remaining = append(remaining, record)
			continue
		}

		replayed++
		queue.posts.EmitAdded(record.ID)
	}

	if err := queue.save(context, remaining); err != nil {
		queue.logger.Error("offline queue rewrite failed",
			slog.String("op", "drain_and_retry"),
			slog.Any("error", err),
		)
		return err
	}

	queue.logger.Info("offline queue drained",
		slog.Int("replayed", replayed),
		slog.Int("remaining", len(remaining)),
	)
	return nil
}

// replay uploads the image if needed and submits the post. The record's
// LocalImageRef is migrated to a durable URL in place so a later submit
// failure does not repeat the upload.
func (queue *Queue) replay(context stdctx.Context, record *Record) error {
	if record.URL == "" {
		durable, err := queue.uploader.Upload(context, record.LocalImageRef)
		if err != nil {
			return err
		}
		record.URL = durable
		record.LocalImageRef = ""
	}
	return queue.submit(context, record)
}

// submit sends the post payload to the backend.
func (queue *Queue) submit(context stdctx.Context, record *Record) error {
	payload := map[string]any{
		"user_id":  record.UserID,
		"caption":  record.Caption,
		"date":     record.CreatedAt.Format(time.RFC3339),
		"rating":   0,
		"url":      record.URL,
		"views":    0,
		"hashtags": record.Hashtags,
	}
	if payload["hashtags"] == nil {
		payload["hashtags"] = []string{}
	}
	return queue.client.DoJSON(context, http.MethodPost, fmt.Sprintf("%s/posts", queue.baseURL), payload, nil)
}

// # Publish Path

/*
Submit is the online-first publish path for a newly captured post.

Description: When the monitor reports offline, the record is enqueued
immediately. Otherwise the upload and submission are attempted inline; any
failure except an auth rejection falls back to the queue instead of
surfacing an error, so a captured post is never lost to a flaky upload or a
misbehaving server. Auth failures propagate: replaying cannot fix a session
the user has to repair.

Parameters:
  - context: context.Context
  - record: Record

Returns:
  - bool: True when the record ended up queued for later replay
  - error: Auth failures, or apperr.Storage when even enqueueing failed
*/
func (queue *Queue) Submit(context stdctx.Context, record Record) (bool, error) {
	if queue.online != nil && !queue.online() {
		if err := queue.Enqueue(context, record); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := queue.replay(context, &record); err != nil {
		if apperr.IsCode(err, "AUTH_ERROR") || apperr.IsCode(err, "REAUTH_REQUIRED") {
			return false, err
		}
		queue.logger.Warn("live publish failed, queueing post",
			slog.String("op", "submit"),
			slog.String("record_id", record.ID),
			slog.Any("error", err),
		)
		if err := queue.Enqueue(context, record); err != nil {
			return false, err
		}
		return true, nil
	}

	queue.posts.EmitAdded(record.ID)
	return false, nil
}
