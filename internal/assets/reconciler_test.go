package assets

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cdn = "https://cdn.test/"

type stubStore struct {
	mu        sync.Mutex
	uploads   []string
	deletes   []string
	failNames map[string]error
	failKeys  map[string]error
	block     bool
}

func (s *stubStore) Upload(ctx context.Context, data []byte, kind Kind, dest Destination) (string, error) {
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failNames[string(data)]; ok {
		return "", err
	}
	s.uploads = append(s.uploads, dest.Key())
	return cdn + dest.Key() + ".jpg", nil
}

func (s *stubStore) Delete(ctx context.Context, id Identifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failKeys[id.Key]; ok {
		return err
	}
	s.deletes = append(s.deletes, id.Key)
	return nil
}

func (s *stubStore) ExtractIdentifier(url string) (Identifier, bool) {
	if !strings.HasPrefix(url, cdn) {
		return Identifier{}, false
	}
	key := strings.TrimPrefix(url, cdn)
	key = strings.TrimSuffix(key, path.Ext(key))
	return Identifier{Key: key, Kind: KindFromURL(url)}, true
}

func (s *stubStore) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads), len(s.deletes)
}

func newTestReconciler(t *testing.T, store RemoteStore, cfg Config) *Reconciler {
	t.Helper()
	r, err := NewReconciler(store, nil, nil, cfg)
	require.NoError(t, err)
	return r
}

func upload(pos int, content string) NewUpload {
	return NewUpload{Pos: pos, Data: []byte(content), Name: content + ".jpg", MimeType: "image/jpeg", Kind: KindImage}
}

func legacyURL(name string) string {
	return cdn + "legacy/" + name + ".jpg"
}

var testNamer = SlotNamer("Cat", "Sub", "p1")

func TestReconcileRejectsPositionGapWithoutNetworkCalls(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	r := newTestReconciler(t, store, Config{})

	_, err := r.Reconcile(context.Background(), Edit{
		Prior: []Record{{Kind: KindImage, Path: legacyURL("a")}},
		Submission: []Reference{
			Existing{Pos: 0, URL: legacyURL("a")},
			upload(1, "b"),
			upload(3, "c"),
		},
		Namer: testNamer,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	uploads, deletes := store.calls()
	assert.Zero(t, uploads)
	assert.Zero(t, deletes)
}

func TestReconcileRejectsDuplicatePositions(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	r := newTestReconciler(t, store, Config{})

	_, err := r.Reconcile(context.Background(), Edit{
		Submission: []Reference{upload(0, "a"), upload(0, "b")},
		Namer:      testNamer,
	})

	require.True(t, IsValidation(err), "expected validation error, got %v", err)
	uploads, _ := store.calls()
	assert.Zero(t, uploads)
}

func TestReconcileRejectsMalformedReferences(t *testing.T) {
	t.Parallel()

	cases := map[string][]Reference{
		"empty url":    {Existing{Pos: 0}},
		"empty upload": {NewUpload{Pos: 0, Kind: KindImage}},
		"unknown kind": {NewUpload{Pos: 0, Data: []byte("x"), Kind: "audio"}},
		"nil":          {nil},
	}
	for name, submission := range cases {
		t.Run(name, func(t *testing.T) {
			r := newTestReconciler(t, &stubStore{}, Config{})
			_, err := r.Reconcile(context.Background(), Edit{Submission: submission, Namer: testNamer})
			require.True(t, IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestReconcilePreservesKeptAssetsAndDeletesAbandoned(t *testing.T) {
	t.Parallel()

	a, b, c := legacyURL("a"), legacyURL("b"), legacyURL("c")
	store := &stubStore{}
	r := newTestReconciler(t, store, Config{})

	res, err := r.Reconcile(context.Background(), Edit{
		Prior: []Record{{Kind: KindImage, Path: a}, {Kind: KindImage, Path: b}, {Kind: KindImage, Path: c}},
		Submission: []Reference{
			Existing{Pos: 0, URL: a},
			Existing{Pos: 1, URL: c},
			upload(2, "new"),
		},
		Namer: testNamer,
	})
	require.NoError(t, err)

	require.Len(t, res.Records, 3)
	assert.Equal(t, a, res.Records[0].Path)
	assert.Equal(t, c, res.Records[1].Path)
	assert.Equal(t, cdn+"ProsmartProducts/Cat/Sub/p1/p1_img3.jpg", res.Records[2].Path)
	assert.Equal(t, []string{"legacy/b"}, store.deletes)
	assert.Equal(t, []string{"legacy/b"}, res.Deleted)
	assert.Len(t, res.Uploaded, 1)
}

func TestReconcileUploadFailureAbortsWithoutCommitOrDeletes(t *testing.T) {
	t.Parallel()

	prior := []Record{{Kind: KindImage, Path: legacyURL("old")}}
	store := &stubStore{failNames: map[string]error{"second": errors.New("quota exceeded")}}
	r := newTestReconciler(t, store, Config{UploadConcurrency: 1})

	persisted := append([]Record(nil), prior...)
	_, err := r.Reconcile(context.Background(), Edit{
		Prior:      prior,
		Submission: []Reference{upload(0, "first"), upload(1, "second")},
		Namer:      testNamer,
		Commit: func(ctx context.Context, records []Record) error {
			persisted = records
			return nil
		},
	})

	var uerr *UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, 1, uerr.Position)
	assert.Equal(t, prior, persisted)
	_, deletes := store.calls()
	assert.Zero(t, deletes)
}

func TestReconcileCompensatesCompletedUploadsOnAbort(t *testing.T) {
	t.Parallel()

	store := &stubStore{failNames: map[string]error{"second": errors.New("network down")}}
	r := newTestReconciler(t, store, Config{UploadConcurrency: 1, CompensateOnAbort: true})

	_, err := r.Reconcile(context.Background(), Edit{
		Submission: []Reference{upload(0, "first"), upload(1, "second")},
		Namer:      testNamer,
	})
	require.True(t, IsUpload(err))

	assert.Equal(t, []string{"ProsmartProducts/Cat/Sub/p1/p1_img1"}, store.deletes)
}

func TestReconcileNoChangeEdit(t *testing.T) {
	t.Parallel()

	url1 := legacyURL("url1")
	store := &stubStore{}
	r := newTestReconciler(t, store, Config{})

	res, err := r.Reconcile(context.Background(), Edit{
		Prior:      []Record{{Kind: KindImage, Path: url1}},
		Submission: []Reference{Existing{Pos: 0, URL: url1}},
		Namer:      testNamer,
	})
	require.NoError(t, err)

	assert.Equal(t, []Record{{Kind: KindImage, Path: url1}}, res.Records)
	uploads, deletes := store.calls()
	assert.Zero(t, uploads)
	assert.Zero(t, deletes)
}

func TestReconcileFullReplacement(t *testing.T) {
	t.Parallel()

	url1, url2 := legacyURL("url1"), legacyURL("url2")
	store := &stubStore{}
	r := newTestReconciler(t, store, Config{})

	res, err := r.Reconcile(context.Background(), Edit{
		Prior:      []Record{{Kind: KindImage, Path: url1}, {Kind: KindImage, Path: url2}},
		Submission: []Reference{upload(0, "fileA"), upload(1, "fileB")},
		Namer:      testNamer,
	})
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, Record{Kind: KindImage, Path: cdn + "ProsmartProducts/Cat/Sub/p1/p1_img1.jpg"}, res.Records[0])
	assert.Equal(t, Record{Kind: KindImage, Path: cdn + "ProsmartProducts/Cat/Sub/p1/p1_img2.jpg"}, res.Records[1])
	assert.ElementsMatch(t, []string{"legacy/url1", "legacy/url2"}, store.deletes)
	uploads, _ := store.calls()
	assert.Equal(t, 2, uploads)
}

func TestReconcileDoesNotDeleteSlotOverwrittenInPlace(t *testing.T) {
	t.Parallel()

	slot1 := cdn + "ProsmartProducts/Cat/Sub/p1/p1_img1.jpg"
	store := &stubStore{}
	r := newTestReconciler(t, store, Config{})

	res, err := r.Reconcile(context.Background(), Edit{
		Prior:      []Record{{Kind: KindImage, Path: slot1}},
		Submission: []Reference{upload(0, "replacement")},
		Namer:      testNamer,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ProsmartProducts/Cat/Sub/p1/p1_img1"}, store.uploads)
	assert.Empty(t, store.deletes)
	assert.Empty(t, res.Deleted)
}

func TestReconcileMovesUploadOffSlotOfKeptAsset(t *testing.T) {
	t.Parallel()

	slot2 := cdn + "ProsmartProducts/Cat/Sub/p1/p1_img2.jpg"
	store := &stubStore{}
	r := newTestReconciler(t, store, Config{})

	res, err := r.Reconcile(context.Background(), Edit{
		Prior: []Record{{Kind: KindImage, Path: slot2}},
		Submission: []Reference{
			Existing{Pos: 0, URL: slot2},
			upload(1, "new"),
		},
		Namer: testNamer,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"ProsmartProducts/Cat/Sub/p1/p1_img3"}, store.uploads)
	assert.Equal(t, slot2, res.Records[0].Path)
	assert.Empty(t, store.deletes)
}

func TestReconcileExistingKindComesFromPriorOrExtension(t *testing.T) {
	t.Parallel()

	clip := cdn + "legacy/clip"
	external := "https://elsewhere.test/promo.mp4"
	r := newTestReconciler(t, &stubStore{}, Config{})

	res, err := r.Reconcile(context.Background(), Edit{
		Prior: []Record{{Kind: KindVideo, Path: clip}},
		Submission: []Reference{
			Existing{Pos: 0, URL: clip},
			Existing{Pos: 1, URL: external},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, KindVideo, res.Records[0].Kind)
	assert.Equal(t, KindVideo, res.Records[1].Kind)
}

func TestReconcileDeleteFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	a, b := legacyURL("a"), legacyURL("b")
	store := &stubStore{failKeys: map[string]error{"legacy/a": errors.New("rate limited")}}
	r := newTestReconciler(t, store, Config{})

	res, err := r.Reconcile(context.Background(), Edit{
		Prior:      []Record{{Kind: KindImage, Path: a}, {Kind: KindImage, Path: b}},
		Submission: []Reference{upload(0, "new")},
		Namer:      testNamer,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.DeleteFailures)
	assert.Equal(t, []string{"legacy/b"}, res.Deleted)
	assert.Len(t, res.Records, 1)
}

func TestReconcileSkipsUnrecognisedPriorURLs(t *testing.T) {
	t.Parallel()

	store := &stubStore{}
	r := newTestReconciler(t, store, Config{})

	res, err := r.Reconcile(context.Background(), Edit{
		Prior:      []Record{{Kind: KindImage, Path: "not a url"}},
		Submission: nil,
	})
	require.NoError(t, err)

	assert.Empty(t, res.Records)
	assert.Empty(t, store.deletes)
}

func TestReconcileTimeout(t *testing.T) {
	t.Parallel()

	store := &stubStore{block: true}
	r := newTestReconciler(t, store, Config{Timeout: 20 * time.Millisecond})

	_, err := r.Reconcile(context.Background(), Edit{
		Submission: []Reference{upload(0, "slow")},
		Namer:      testNamer,
	})

	var terr *TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReconcileCommitFailure(t *testing.T) {
	t.Parallel()

	old := legacyURL("old")
	store := &stubStore{}
	r := newTestReconciler(t, store, Config{CompensateOnAbort: true})

	_, err := r.Reconcile(context.Background(), Edit{
		Prior:      []Record{{Kind: KindImage, Path: old}},
		Submission: []Reference{upload(0, "new")},
		Namer:      testNamer,
		Commit: func(context.Context, []Record) error {
			return errors.New("write conflict")
		},
	})

	var cerr *CommitError
	require.ErrorAs(t, err, &cerr)
	// the new upload is removed, the old asset is still referenced and kept
	assert.Equal(t, []string{"ProsmartProducts/Cat/Sub/p1/p1_img1"}, store.deletes)
}

func TestReconcileCommitReceivesOrderedRecords(t *testing.T) {
	t.Parallel()

	a := legacyURL("a")
	r := newTestReconciler(t, &stubStore{}, Config{UploadConcurrency: 8})

	var committed []Record
	submission := []Reference{Existing{Pos: 3, URL: a}}
	for i := 0; i < 3; i++ {
		submission = append(submission, upload(i, fmt.Sprintf("f%d", i)))
	}
	res, err := r.Reconcile(context.Background(), Edit{
		Prior:      []Record{{Kind: KindImage, Path: a}},
		Submission: submission,
		Namer:      testNamer,
		Commit: func(ctx context.Context, records []Record) error {
			committed = records
			return nil
		},
	})
	require.NoError(t, err)

	require.Equal(t, res.Records, committed)
	for i := 0; i < 3; i++ {
		assert.Equal(t, fmt.Sprintf("%sProsmartProducts/Cat/Sub/p1/p1_img%d.jpg", cdn, i+1), committed[i].Path)
	}
	assert.Equal(t, a, committed[3].Path)
}

func TestPurgeCombinesFailures(t *testing.T) {
	t.Parallel()

	store := &stubStore{failKeys: map[string]error{
		"legacy/a": errors.New("boom"),
		"legacy/b": errors.New("boom"),
	}}
	r := newTestReconciler(t, store, Config{})

	err := r.Purge(context.Background(), []Record{
		{Kind: KindImage, Path: legacyURL("a")},
		{Kind: KindImage, Path: legacyURL("b")},
		{Kind: KindImage, Path: legacyURL("c")},
		{Kind: KindImage, Path: "ftp://unknown"},
	})
	require.Error(t, err)

	var derr *DeleteError
	assert.ErrorAs(t, err, &derr)
	assert.Equal(t, []string{"legacy/c"}, store.deletes)
}

func TestNewReconcilerRequiresStore(t *testing.T) {
	_, err := NewReconciler(nil, nil, nil, Config{})
	require.Error(t, err)
}
