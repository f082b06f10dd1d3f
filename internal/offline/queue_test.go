// Copyright (c) 2026 Aperture. All rights reserved.
// Author: davi.tran.dev@gmail.com

package offline_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davitran/aperture/internal/event"
	"github.com/davitran/aperture/internal/httpclient"
	"github.com/davitran/aperture/internal/offline"
	"github.com/davitran/aperture/internal/platform/apperr"
	"github.com/davitran/aperture/internal/platform/kvstore"
)

type anonTokens struct{}

func (anonTokens) Token(_ context.Context) (string, error) { return "", nil }

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// fakeUploader serves a canned durable URL, or fails on demand.
type fakeUploader struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (u *fakeUploader) Upload(_ context.Context, localRef string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.calls = append(u.calls, localRef)
	return "https://cdn.example.com/x.jpg", nil
}

func (u *fakeUploader) setErr(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.err = err
}

// postsBackend records submitted payloads and answers with a settable status.
type postsBackend struct {
	server *httptest.Server

	mu       sync.Mutex
	status   int
	payloads []map[string]any
}

func newPostsBackend(t *testing.T) *postsBackend {
	t.Helper()
	backend := &postsBackend{status: http.StatusCreated}

	router := chi.NewRouter()
	router.Post("/posts", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

		backend.mu.Lock()
		status := backend.status
		if status < 300 {
			backend.payloads = append(backend.payloads, payload)
		}
		backend.mu.Unlock()

		w.WriteHeader(status)
	})

	backend.server = httptest.NewServer(router)
	t.Cleanup(backend.server.Close)
	return backend
}

func (b *postsBackend) setStatus(status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = status
}

func (b *postsBackend) submitted() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any{}, b.payloads...)
}

type queueFixture struct {
	queue    *offline.Queue
	store    kvstore.Store
	backend  *postsBackend
	uploader *fakeUploader
	posts    *event.Channel
	added    *[]string
	online   *bool
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()

	backend := newPostsBackend(t)
	store := kvstore.NewMemory()
	uploader := &fakeUploader{}
	posts := event.NewChannel(testLogger())

	added := &[]string{}
	posts.SubscribeAdded(func(signal event.PostSignal) {
		if signal.Kind == event.PostAdded {
			*added = append(*added, signal.PostID)
		}
	})

	online := true
	queue := offline.NewQueue(
		store,
		httpclient.New(anonTokens{}),
		uploader,
		posts,
		backend.server.URL,
		func() bool { return online },
		testLogger(),
	)

	return &queueFixture{
		queue:    queue,
		store:    store,
		backend:  backend,
		uploader: uploader,
		posts:    posts,
		added:    added,
		online:   &online,
	}
}

/*
TestQueue_DrainSuccessRemovesRecord checks the replay happy path: the record
is uploaded, submitted, removed from the durable queue, and announced with
exactly one post-added signal.
*/
func TestQueue_DrainSuccessRemovesRecord(t *testing.T) {
	ctx := context.Background()
	fixture := newQueueFixture(t)

	record := offline.NewRecord("file:///photos/1.heic", "first light #dawn", "uid-1", []string{"dawn"})
	require.NoError(t, fixture.queue.Enqueue(ctx, record))

	require.NoError(t, fixture.queue.DrainAndRetry(ctx))

	length, err := fixture.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)

	require.Len(t, *fixture.added, 1)
	assert.Equal(t, record.ID, (*fixture.added)[0])

	submitted := fixture.backend.submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, "uid-1", submitted[0]["user_id"])
	assert.Equal(t, "first light #dawn", submitted[0]["caption"])
	assert.Equal(t, "https://cdn.example.com/x.jpg", submitted[0]["url"])
	assert.Equal(t, record.CreatedAt.Format(time.RFC3339), submitted[0]["date"])
	assert.Equal(t, float64(0), submitted[0]["rating"])
	assert.Equal(t, float64(0), submitted[0]["views"])
}

/*
TestQueue_DrainFailureKeepsRecord checks that a failed submission leaves
exactly the failed record in the queue with no signal emitted, and that a
later pass replays it.
*/
func TestQueue_DrainFailureKeepsRecord(t *testing.T) {
	ctx := context.Background()
	fixture := newQueueFixture(t)
	fixture.backend.setStatus(http.StatusBadGateway)

	record := offline.NewRecord("file:///photos/2.heic", "rainy platform", "uid-1", nil)
	require.NoError(t, fixture.queue.Enqueue(ctx, record))

	require.NoError(t, fixture.queue.DrainAndRetry(ctx))

	length, err := fixture.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, length)
	assert.Empty(t, *fixture.added)

	// Connectivity restored; the record drains on the next pass.
	fixture.backend.setStatus(http.StatusCreated)
	require.NoError(t, fixture.queue.DrainAndRetry(ctx))

	length, err = fixture.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)
	assert.Len(t, *fixture.added, 1)
}

/*
TestQueue_UploadSurvivesFailedSubmit checks that when the upload succeeds
but the submit fails, the kept record carries the durable URL and the next
pass does not repeat the upload.
*/
func TestQueue_UploadSurvivesFailedSubmit(t *testing.T) {
	ctx := context.Background()
	fixture := newQueueFixture(t)
	fixture.backend.setStatus(http.StatusBadGateway)

	record := offline.NewRecord("file:///photos/3.heic", "pier at noon", "uid-1", nil)
	require.NoError(t, fixture.queue.Enqueue(ctx, record))
	require.NoError(t, fixture.queue.DrainAndRetry(ctx))

	fixture.backend.setStatus(http.StatusCreated)
	require.NoError(t, fixture.queue.DrainAndRetry(ctx))

	assert.Len(t, fixture.uploader.calls, 1, "upload must not repeat after a submit-only failure")
	submitted := fixture.backend.submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, "https://cdn.example.com/x.jpg", submitted[0]["url"])
}

/*
TestQueue_DrainPreservesOrder checks that replay walks the queue in
insertion order and that a mid-queue failure keeps only the failed record.
*/
func TestQueue_DrainPreservesOrder(t *testing.T) {
	ctx := context.Background()
	fixture := newQueueFixture(t)

	first := offline.NewRecord("file:///a.jpg", "a", "uid-1", nil)
	second := offline.NewRecord("file:///b.jpg", "b", "uid-1", nil)
	third := offline.NewRecord("file:///c.jpg", "c", "uid-1", nil)
	for _, record := range []offline.Record{first, second, third} {
		require.NoError(t, fixture.queue.Enqueue(ctx, record))
	}

	require.NoError(t, fixture.queue.DrainAndRetry(ctx))

	submitted := fixture.backend.submitted()
	require.Len(t, submitted, 3)
	assert.Equal(t, "a", submitted[0]["caption"])
	assert.Equal(t, "b", submitted[1]["caption"])
	assert.Equal(t, "c", submitted[2]["caption"])
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, *fixture.added)
}

/*
TestQueue_FullOfflineScenario runs the end-to-end cycle: capture while
offline, reconnect, drain, and verify the published payload.
*/
func TestQueue_FullOfflineScenario(t *testing.T) {
	ctx := context.Background()
	fixture := newQueueFixture(t)

	*fixture.online = false
	record := offline.NewRecord("file:///photos/offline.heic", "no bars up here #summit", "uid-9", []string{"summit"})

	queued, err := fixture.queue.Submit(ctx, record)
	require.NoError(t, err)
	assert.True(t, queued)
	assert.Empty(t, fixture.backend.submitted(), "nothing reaches the server while offline")

	*fixture.online = true
	require.NoError(t, fixture.queue.DrainAndRetry(ctx))

	length, err := fixture.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)

	submitted := fixture.backend.submitted()
	require.Len(t, submitted, 1)
	assert.Equal(t, "uid-9", submitted[0]["user_id"])
	assert.Equal(t, []any{"summit"}, submitted[0]["hashtags"])
	assert.Equal(t, []string{record.ID}, *fixture.added)
}

/*
TestQueue_SubmitOnlinePublishesDirectly checks the live publish path: no
queue involvement and one post-added signal.
*/
func TestQueue_SubmitOnlinePublishesDirectly(t *testing.T) {
	ctx := context.Background()
	fixture := newQueueFixture(t)

	record := offline.NewRecord("file:///photos/live.heic", "live shot", "uid-1", nil)
	queued, err := fixture.queue.Submit(ctx, record)
	require.NoError(t, err)
	assert.False(t, queued)

	length, err := fixture.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)
	assert.Equal(t, []string{record.ID}, *fixture.added)
}

/*
TestQueue_SubmitFallsBackOnTransientFailure checks that a retryable live
failure queues the record instead of surfacing an error.
*/
func TestQueue_SubmitFallsBackOnTransientFailure(t *testing.T) {
	ctx := context.Background()
	fixture := newQueueFixture(t)
	fixture.backend.setStatus(http.StatusServiceUnavailable)

	record := offline.NewRecord("file:///photos/flaky.heic", "flaky network", "uid-1", nil)
	queued, err := fixture.queue.Submit(ctx, record)
	require.NoError(t, err)
	assert.True(t, queued)

	length, err := fixture.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, length)
	assert.Empty(t, *fixture.added)
}

/*
TestQueue_SubmitQueuesOnMalformedUpload checks that a non-transient upload
failure (a malformed provider response) still queues the record rather than
losing the post.
*/
func TestQueue_SubmitQueuesOnMalformedUpload(t *testing.T) {
	ctx := context.Background()
	fixture := newQueueFixture(t)
	fixture.uploader.setErr(apperr.Validation("upload image", errors.New("response lacks secure_url")))

	record := offline.NewRecord("file:///photos/odd.heic", "odd provider reply", "uid-1", nil)
	queued, err := fixture.queue.Submit(ctx, record)
	require.NoError(t, err)
	assert.True(t, queued)

	length, err := fixture.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, length)

	// The queued record still replays once the provider behaves.
	fixture.uploader.setErr(nil)
	require.NoError(t, fixture.queue.DrainAndRetry(ctx))
	length, err = fixture.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)
	assert.Equal(t, []string{record.ID}, *fixture.added)
}

/*
TestQueue_SubmitPropagatesAuthFailure checks that an auth rejection is not
queued: replaying cannot fix a broken session.
*/
func TestQueue_SubmitPropagatesAuthFailure(t *testing.T) {
	ctx := context.Background()
	fixture := newQueueFixture(t)
	fixture.uploader.setErr(apperr.Auth("credential no longer valid", nil))

	record := offline.NewRecord("file:///photos/expired.heic", "expired session", "uid-1", nil)
	queued, err := fixture.queue.Submit(ctx, record)
	require.Error(t, err)
	assert.False(t, queued)
	assert.True(t, apperr.IsCode(err, "AUTH_ERROR"))

	length, err := fixture.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)
}

func TestQueue_NoDeduplication(t *testing.T) {
	ctx := context.Background()
	fixture := newQueueFixture(t)

	record := offline.NewRecord("file:///photos/dup.heic", "same shot", "uid-1", nil)
	require.NoError(t, fixture.queue.Enqueue(ctx, record))
	require.NoError(t, fixture.queue.Enqueue(ctx, record))

	length, err := fixture.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, length)
}

func TestQueue_MissingKeyIsEmptyQueue(t *testing.T) {
	ctx := context.Background()
	fixture := newQueueFixture(t)

	length, err := fixture.queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, length)

	// Draining an empty queue is a no-op.
	require.NoError(t, fixture.queue.DrainAndRetry(ctx))
	assert.Empty(t, *fixture.added)
}
