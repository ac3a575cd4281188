package assets

import (
	"context"
	"errors"
	"time"

	"catalog/internal/metrics"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultUploadConcurrency = 4
	cleanupTimeout           = 30 * time.Second
	maxSlotProbes            = 1000
)

type Config struct {
	// UploadConcurrency bounds parallel uploads within one edit.
	UploadConcurrency int
	// Timeout bounds a whole reconciliation on top of the caller's context.
	Timeout time.Duration
	// CompensateOnAbort deletes the uploads of a failed batch.
	CompensateOnAbort bool
}

// Reconciler turns a product's previous gallery plus an edit submission into
// the new ordered gallery, uploading new files and deleting abandoned ones.
type Reconciler struct {
	store   RemoteStore
	logger  *zap.SugaredLogger
	metrics *metrics.AssetMetrics
	cfg     Config
}

func NewReconciler(store RemoteStore, logger *zap.SugaredLogger, m *metrics.AssetMetrics, cfg Config) (*Reconciler, error) {
	if store == nil {
		return nil, errors.New("remote asset store required")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = defaultUploadConcurrency
	}
	return &Reconciler{store: store, logger: logger, metrics: m, cfg: cfg}, nil
}

// Edit is one reconciliation request.
type Edit struct {
	Prior      []Record
	Submission []Reference
	Namer      Namer
	// Commit, when set, persists the new gallery after every upload has
	// succeeded and before abandoned assets are deleted. A Commit failure
	// aborts the edit like an upload failure.
	Commit func(ctx context.Context, records []Record) error
}

type Result struct {
	Records        []Record
	Uploaded       []Record
	Deleted        []string
	DeleteFailures int
}

type plannedUpload struct {
	upload NewUpload
	dest   Destination
}

func (r *Reconciler) Reconcile(ctx context.Context, edit Edit) (res *Result, err error) {
	start := time.Now()
	defer func() {
		r.metrics.ObserveReconcile(outcome(err), time.Since(start))
	}()

	slots, err := validateSubmission(edit.Submission)
	if err != nil {
		return nil, err
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	if err := contextError(ctx); err != nil {
		return nil, err
	}

	priorKinds := make(map[string]Kind, len(edit.Prior))
	for _, rec := range edit.Prior {
		if _, seen := priorKinds[rec.Path]; !seen {
			priorKinds[rec.Path] = rec.Kind
		}
	}

	kept := make(map[string]struct{})
	for _, ref := range slots {
		if e, ok := ref.(Existing); ok {
			kept[e.URL] = struct{}{}
		}
	}

	plans, err := r.planUploads(slots, kept, edit.Namer)
	if err != nil {
		return nil, err
	}

	urls, err := r.upload(ctx, len(slots), plans)
	if err != nil {
		r.compensate(ctx, plans, urls, priorKinds)
		return nil, err
	}

	res = &Result{Records: make([]Record, len(slots))}
	for i, ref := range slots {
		switch v := ref.(type) {
		case Existing:
			kind := priorKinds[v.URL]
			if !kind.IsValid() {
				kind = KindFromURL(v.URL)
			}
			res.Records[i] = Record{Kind: kind, Path: v.URL}
		case NewUpload:
			rec := Record{Kind: v.Kind, Path: urls[i]}
			res.Records[i] = rec
			res.Uploaded = append(res.Uploaded, rec)
		}
	}

	if edit.Commit != nil {
		if err := edit.Commit(ctx, res.Records); err != nil {
			r.compensate(ctx, plans, urls, priorKinds)
			if tErr := contextError(ctx); tErr != nil {
				return nil, tErr
			}
			return nil, &CommitError{Err: err}
		}
	}

	overwritten := make(map[string]struct{}, len(plans))
	for _, p := range plans {
		overwritten[p.dest.Key()] = struct{}{}
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	seen := make(map[string]struct{})
	for _, rec := range edit.Prior {
		if _, ok := kept[rec.Path]; ok {
			continue
		}
		if _, dup := seen[rec.Path]; dup {
			continue
		}
		seen[rec.Path] = struct{}{}

		id, ok := r.store.ExtractIdentifier(rec.Path)
		if !ok {
			r.logger.Warnw("skipping delete of unrecognised asset url", "url", rec.Path)
			r.metrics.ObserveDelete(metrics.OutcomeSkipped)
			continue
		}
		if _, ok := overwritten[id.Key]; ok {
			r.logger.Infow("asset replaced in place, not deleting", "key", id.Key)
			r.metrics.ObserveDelete(metrics.OutcomeSkipped)
			continue
		}
		if err := r.delete(cleanupCtx, id); err != nil {
			res.DeleteFailures++
			r.logger.Errorw("failed to delete abandoned asset", "url", rec.Path, "error", err)
			continue
		}
		res.Deleted = append(res.Deleted, id.Key)
	}

	return res, nil
}

// Purge deletes every asset of a product that is being removed. Failures are
// combined and returned for logging; they never stop the remaining deletes.
func (r *Reconciler) Purge(ctx context.Context, records []Record) error {
	var errs error
	for _, rec := range records {
		id, ok := r.store.ExtractIdentifier(rec.Path)
		if !ok {
			r.logger.Warnw("skipping purge of unrecognised asset url", "url", rec.Path)
			r.metrics.ObserveDelete(metrics.OutcomeSkipped)
			continue
		}
		if err := r.delete(ctx, id); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// Discard removes assets uploaded for a record that was never persisted.
func (r *Reconciler) Discard(ctx context.Context, records []Record) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := r.Purge(cleanupCtx, records); err != nil {
		r.logger.Errorw("failed to discard uploaded assets", "error", err)
	}
}

func (r *Reconciler) delete(ctx context.Context, id Identifier) error {
	if err := r.store.Delete(ctx, id); err != nil {
		r.metrics.ObserveDelete(metrics.OutcomeFailure)
		return &DeleteError{Key: id.Key, Err: err}
	}
	r.metrics.ObserveDelete(metrics.OutcomeSuccess)
	return nil
}

// planUploads assigns a destination to every new file. A slot that would
// overwrite an asset the edit keeps is moved past the end of the gallery.
func (r *Reconciler) planUploads(slots []Reference, kept map[string]struct{}, namer Namer) ([]plannedUpload, error) {
	var plans []plannedUpload
	for _, ref := range slots {
		if u, ok := ref.(NewUpload); ok {
			plans = append(plans, plannedUpload{upload: u})
		}
	}
	if len(plans) == 0 {
		return nil, nil
	}
	if namer == nil {
		return nil, validationErrorf("no destination namer for new uploads")
	}

	taken := make(map[string]struct{}, len(kept)+len(plans))
	for u := range kept {
		if id, ok := r.store.ExtractIdentifier(u); ok {
			taken[id.Key] = struct{}{}
		}
	}

	next := len(slots) + 1
	for i := range plans {
		dest := namer(plans[i].upload.Pos + 1)
		for probes := 0; ; probes++ {
			if _, clash := taken[dest.Key()]; !clash {
				break
			}
			if probes >= maxSlotProbes {
				return nil, validationErrorf("no free destination for upload at position %d", plans[i].upload.Pos)
			}
			dest = namer(next)
			next++
		}
		taken[dest.Key()] = struct{}{}
		plans[i].dest = dest
	}
	return plans, nil
}

// upload runs the planned uploads concurrently. The first failure cancels
// the rest. urls is indexed by position and holds whatever completed.
func (r *Reconciler) upload(ctx context.Context, n int, plans []plannedUpload) ([]string, error) {
	urls := make([]string, n)
	if len(plans) == 0 {
		return urls, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.UploadConcurrency)
	for _, p := range plans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			url, err := r.store.Upload(gctx, p.upload.Data, p.upload.Kind, p.dest)
			if err == nil && url == "" {
				err = errors.New("store returned an empty url")
			}
			if err != nil {
				r.metrics.ObserveUpload(string(p.upload.Kind), metrics.OutcomeFailure)
				return &UploadError{Position: p.upload.Pos, Name: p.upload.Name, Err: err}
			}
			r.metrics.ObserveUpload(string(p.upload.Kind), metrics.OutcomeSuccess)
			urls[p.upload.Pos] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if tErr := contextError(ctx); tErr != nil {
			return urls, tErr
		}
		return urls, err
	}
	return urls, nil
}

func (r *Reconciler) compensate(ctx context.Context, plans []plannedUpload, urls []string, prior map[string]Kind) {
	if !r.cfg.CompensateOnAbort {
		return
	}
	priorKeys := make(map[string]struct{}, len(prior))
	for u := range prior {
		if id, ok := r.store.ExtractIdentifier(u); ok {
			priorKeys[id.Key] = struct{}{}
		}
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, p := range plans {
		if urls[p.upload.Pos] == "" {
			continue
		}
		key := p.dest.Key()
		if _, ok := priorKeys[key]; ok {
			// the slot still backs the persisted gallery
			continue
		}
		if err := r.delete(cleanupCtx, Identifier{Key: key, Kind: p.upload.Kind}); err != nil {
			r.logger.Errorw("failed to remove upload of aborted edit", "key", key, "error", err)
		}
	}
}

// validateSubmission checks that positions are unique and contiguous from 0
// and returns the references ordered by position.
func validateSubmission(submission []Reference) ([]Reference, error) {
	slots := make([]Reference, len(submission))
	for _, ref := range submission {
		if ref == nil {
			return nil, validationErrorf("nil asset reference")
		}
		pos := ref.Position()
		if pos < 0 || pos >= len(submission) {
			return nil, validationErrorf("position %d outside 0..%d", pos, len(submission)-1)
		}
		if slots[pos] != nil {
			return nil, validationErrorf("duplicate position %d", pos)
		}
		switch v := ref.(type) {
		case Existing:
			if v.URL == "" {
				return nil, validationErrorf("existing asset at position %d has no url", pos)
			}
		case NewUpload:
			if len(v.Data) == 0 {
				return nil, validationErrorf("upload at position %d is empty", pos)
			}
			if !v.Kind.IsValid() {
				return nil, validationErrorf("upload at position %d has unknown kind %q", pos, v.Kind)
			}
		default:
			return nil, validationErrorf("unsupported reference %T", ref)
		}
		slots[pos] = ref
	}
	return slots, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case IsValidation(err):
		return "invalid"
	case IsTimeout(err):
		return "timeout"
	default:
		return metrics.OutcomeFailure
	}
}
