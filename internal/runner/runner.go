package runner

// #region imports
import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/entity-profile/internal/aggregate"
	"github.com/danielpatrickdp/entity-profile/internal/audit"
	"github.com/danielpatrickdp/entity-profile/internal/errkind"
	"github.com/danielpatrickdp/entity-profile/internal/lifecycle"
	"github.com/danielpatrickdp/entity-profile/internal/metrics"
	"github.com/danielpatrickdp/entity-profile/internal/model"
	"github.com/danielpatrickdp/entity-profile/internal/profile"
	"github.com/danielpatrickdp/entity-profile/internal/snapshot"
	"github.com/danielpatrickdp/entity-profile/internal/store"
)

// #endregion

// #region runner-struct

// Runner collects the profile of one entity of a high cardinality detector
// from the document store, the snapshot nodes and the result index.
type Runner struct {
	docs      DocumentFetcher
	snapshots SnapshotGatherer
	search    SampleSearcher

	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Collector
	audit   Recorder
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithAudit records every terminal delivery.
func WithAudit(rec Recorder) Option {
	return func(r *Runner) { r.audit = rec }
}

// #endregion

// #region constructor

// New wires a runner. Zero limits in cfg fall back to the defaults.
func New(docs DocumentFetcher, snapshots SnapshotGatherer, search SampleSearcher, cfg Config, opts ...Option) *Runner {
	if cfg.RequiredSamples <= 0 {
		cfg.RequiredSamples = lifecycle.DefaultRequiredSamples
	}
	if cfg.CategoryFieldLimit <= 0 {
		cfg.CategoryFieldLimit = DefaultCategoryFieldLimit
	}
	r := &Runner{
		docs:      docs,
		snapshots: snapshots,
		search:    search,
		cfg:       cfg,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("entity-profile")
	return r
}

// #endregion

// #region profile

// Profile collects the requested facets of entityValue asynchronously.
// It returns at once; done is called exactly once from another goroutine
// with either the merged profile or an error.
func (r *Runner) Profile(ctx context.Context, detectorID, entityValue string, facets profile.FacetSet, done func(profile.EntityProfile, error)) {
	req := &request{
		id:          uuid.New().String(),
		detectorID:  detectorID,
		entityValue: entityValue,
		facets:      facets,
		started:     time.Now(),
	}
	req.logger = r.logger.With(
		zap.String("request_id", req.id),
		zap.String("detector_id", detectorID),
		zap.String("entity", entityValue))
	req.deliver = r.deliverOnce(ctx, req, done)

	go r.run(ctx, req)
}

// Get is the blocking form of Profile.
func (r *Runner) Get(ctx context.Context, detectorID, entityValue string, facets profile.FacetSet) (profile.EntityProfile, error) {
	type result struct {
		p   profile.EntityProfile
		err error
	}
	ch := make(chan result, 1)
	r.Profile(ctx, detectorID, entityValue, facets, func(p profile.EntityProfile, err error) {
		ch <- result{p, err}
	})
	select {
	case res := <-ch:
		return res.p, res.err
	case <-ctx.Done():
		return profile.EntityProfile{}, errkind.Wrap(errkind.Transport, ctx.Err(), "profile")
	}
}

// #endregion

// #region request

// request is the per-call state. Nothing in it is shared across calls.
type request struct {
	id          string
	detectorID  string
	entityValue string
	facets      profile.FacetSet
	started     time.Time
	logger      *zap.Logger
	deliver     func(profile.EntityProfile, error)

	categoryField string
}

func (r *Runner) deliverOnce(ctx context.Context, req *request, done func(profile.EntityProfile, error)) func(profile.EntityProfile, error) {
	var once sync.Once
	return func(p profile.EntityProfile, err error) {
		once.Do(func() {
			elapsed := time.Since(req.started)
			outcome := "ok"
			if err != nil {
				outcome = string(errkind.KindOf(err))
			}
			r.metrics.ObserveRequest(outcome, elapsed)
			if r.audit != nil {
				entry := audit.Entry{
					RequestID:   req.id,
					DetectorID:  req.detectorID,
					EntityValue: req.entityValue,
					Facets:      req.facets.String(),
					Outcome:     outcome,
					DurationMs:  elapsed.Milliseconds(),
				}
				if err != nil {
					entry.Reason = err.Error()
				}
				if aerr := r.audit.Record(context.WithoutCancel(ctx), entry); aerr != nil {
					req.logger.Warn("failed to record profile request", zap.Error(aerr))
				}
			}
			done(p, err)
		})
	}
}

// #endregion

// #region run

func (r *Runner) run(ctx context.Context, req *request) {
	if req.facets.Len() == 0 {
		req.deliver(profile.EntityProfile{}, errkind.New(errkind.InvalidRequest, msgNoFacets))
		return
	}

	detector, err := r.fetchDetector(ctx, req.detectorID)
	if err != nil {
		req.deliver(profile.EntityProfile{}, err)
		return
	}

	fields := detector.CategoryFields
	switch {
	case len(fields) == 0:
		req.deliver(profile.EntityProfile{}, errkind.New(errkind.InvalidRequest, msgNotHighCardinality))
		return
	case len(fields) > r.cfg.CategoryFieldLimit:
		req.deliver(profile.EntityProfile{}, errkind.Newf(errkind.InvalidRequest, msgTooManyCategories, r.cfg.CategoryFieldLimit))
		return
	}
	req.categoryField = fields[0]

	snap, err := r.snapshots.GatherSnapshot(ctx, snapshot.Request{
		DetectorID:  req.detectorID,
		EntityValue: req.entityValue,
		Facets:      req.facets,
	})
	if err != nil {
		req.logger.Error("entity snapshot failed", zap.Error(err))
		req.deliver(profile.EntityProfile{}, err)
		return
	}

	r.profileWithJob(ctx, req, detector, snap)
}

func (r *Runner) fetchDetector(ctx context.Context, detectorID string) (model.Detector, error) {
	doc, err := r.docs.FetchDocument(ctx, model.DetectorIndex, detectorID)
	if errkind.Is(err, errkind.IndexNotFound) {
		return model.Detector{}, errkind.Wrap(errkind.NotFound, err, fmt.Sprintf(msgDetectorNotFound, detectorID))
	}
	if err != nil {
		return model.Detector{}, err
	}
	if !doc.Found {
		return model.Detector{}, errkind.Newf(errkind.NotFound, msgDetectorNotFound, detectorID)
	}
	return model.DecodeDetector(detectorID, doc.Source)
}

// #endregion

// #region job

func (r *Runner) profileWithJob(ctx context.Context, req *request, detector model.Detector, snap snapshot.Snapshot) {
	doc, err := r.docs.FetchDocument(ctx, model.JobIndex, req.detectorID)
	switch {
	case errkind.Is(err, errkind.IndexNotFound):
		req.logger.Info("job index hasn't been created", zap.Error(err))
		r.metrics.ObserveSoftFailure("job")
		req.deliver(r.unknownState(req), nil)
		return
	case err != nil:
		req.logger.Error(fmt.Sprintf(msgProfileFailed, req.detectorID), zap.Error(err))
		req.deliver(profile.EntityProfile{}, err)
		return
	case !doc.Found:
		// a detector that was never started has no job
		req.deliver(r.unknownState(req), nil)
		return
	}

	job, err := model.DecodeJob(doc.Source)
	if err != nil {
		req.logger.Error(fmt.Sprintf(msgProfileFailed, req.detectorID), zap.Error(err))
		req.deliver(profile.EntityProfile{}, err)
		return
	}

	expected := 0
	if req.facets.StateRelated() {
		expected++
	}
	if req.facets.Has(profile.FacetEntityInfo) {
		expected++
	}
	if req.facets.Has(profile.FacetModels) {
		expected++
	}
	agg := aggregate.New(expected, profile.Merge, req.deliver,
		aggregate.WithFailureMessage(fmt.Sprintf(msgFetchFailed, req.entityValue, req.detectorID)))

	if req.facets.Has(profile.FacetModels) {
		r.branch(req, agg, func() profile.EntityProfile {
			return r.models(req, job, snap)
		})
	}
	if req.facets.StateRelated() {
		r.branch(req, agg, func() profile.EntityProfile {
			return r.stateRelated(req, detector, job, snap)
		})
	}
	if req.facets.Has(profile.FacetEntityInfo) {
		r.branch(req, agg, func() profile.EntityProfile {
			return r.entityInfo(ctx, req, job, snap)
		})
	}
}

// branch runs one facet group on its own goroutine. A panic counts as a
// hard failure of that branch.
func (r *Runner) branch(req *request, agg *aggregate.Aggregator[profile.EntityProfile], fn func() profile.EntityProfile) {
	go func() {
		defer func() {
			if p := recover(); p != nil {
				req.logger.Error("profile branch panicked", zap.Any("panic", p))
				agg.SubmitFailure(errkind.Newf(errkind.Internal, "profile branch panicked: %v", p))
			}
		}()
		agg.Submit(fn())
	}()
}

// #endregion

// #region branches

func (r *Runner) newBuilder(req *request) *profile.Builder {
	return profile.NewBuilder(req.categoryField, req.entityValue)
}

// unknownState is the best-effort profile when the job cannot be read.
func (r *Runner) unknownState(req *request) profile.EntityProfile {
	b := r.newBuilder(req)
	if req.facets.Has(profile.FacetState) {
		b.State(profile.StateUnknown)
	}
	return b.Build()
}

func (r *Runner) models(req *request, job model.Job, snap snapshot.Snapshot) profile.EntityProfile {
	b := r.newBuilder(req)
	if job.Enabled && snap.ModelProfile != nil {
		b.ModelProfile(*snap.ModelProfile)
	}
	return b.Build()
}

func (r *Runner) stateRelated(req *request, detector model.Detector, job model.Job, snap snapshot.Snapshot) profile.EntityProfile {
	state, progress := lifecycle.Classify(snap.TotalUpdates, job.Enabled, r.cfg.RequiredSamples, detector.IntervalMinutes())
	b := r.newBuilder(req)
	if req.facets.Has(profile.FacetState) {
		b.State(state)
	}
	if req.facets.Has(profile.FacetInitProgress) && progress != nil {
		b.InitProgress(*progress)
	}
	return b.Build()
}

func (r *Runner) entityInfo(ctx context.Context, req *request, job model.Job, snap snapshot.Snapshot) profile.EntityProfile {
	b := r.newBuilder(req)
	if snap.IsActive != nil {
		b.IsActive(*snap.IsActive)
	}
	if snap.LastActiveMs != nil {
		b.LastActiveMs(*snap.LastActiveMs)
	}

	latest, err := r.search.LatestSampleTime(ctx, store.SampleQuery{
		DetectorID:  req.detectorID,
		EntityValue: req.entityValue,
		From:        job.EnabledTime,
	})
	switch {
	case errkind.Is(err, errkind.IndexNotFound):
		req.logger.Info("result index hasn't been created", zap.String("reason", err.Error()))
		r.metrics.ObserveSoftFailure("entity_info")
	case err != nil:
		req.logger.Warn("fail to get last sample time", zap.Error(err))
		r.metrics.ObserveSoftFailure("entity_info")
	case latest != nil:
		b.LastSampleMs(*latest)
	}
	return b.Build()
}

// #endregion
