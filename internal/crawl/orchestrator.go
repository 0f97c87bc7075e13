// Package crawl drives the end-to-end catalog sequence: studio discovery,
// paginated listing crawls per studio, and detail/stream enrichment.
// Work is strictly sequential within one run; politeness delays, retry
// backoff and the network calls are the only suspension points, and the
// cooperative stop latch is sampled before every unit of work.
package crawl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"medialib/internal/catalog"
	"medialib/internal/extract"
	"medialib/internal/metrics"
	"medialib/internal/resolve"
)

// State is the orchestrator's current phase, exposed for status reporting.
type State string

// Orchestrator states. Stopping overlays any state once a stop is
// requested; the in-flight unit drains before the run ends.
const (
	StateIdle      State = "idle"
	StateDiscover  State = "discovering_studios"
	StateCrawling  State = "crawling_studio"
	StateEnriching State = "enriching_details"
	StateDone      State = "done"
)

const sentinelStudioURL = "unknown"

// Config controls orchestrator pacing and limits.
type Config struct {
	BaseURL         string
	MaxStudios      int
	PagesPerStudio  int
	EnrichBatchSize int
	PageDelay       time.Duration
	VideoDelay      time.Duration
	StudioDelay     time.Duration
	ArchivePrefix   string
	EventTopic      string
	SeedOnEmpty     bool
	Seeds           []catalog.Studio
}

// Orchestrator owns the persistence calls and sequences the crawl.
// It provides no mutual exclusion between concurrent invocations; callers
// that cannot tolerate overlapping runs must serialize them.
type Orchestrator struct {
	cfg       Config
	fetcher   catalog.Fetcher
	extractor *extract.Extractor
	resolver  *resolve.Resolver
	store     catalog.Store
	archive   catalog.BlobStore
	publisher catalog.Publisher
	clock     catalog.Clock
	logger    *zap.Logger
	pause     pauseController

	latch *stopLatch
	state atomic.Value
}

// New constructs an Orchestrator. archive and publisher may be nil.
func New(
	cfg Config,
	fetcher catalog.Fetcher,
	extractor *extract.Extractor,
	resolver *resolve.Resolver,
	store catalog.Store,
	archive catalog.BlobStore,
	publisher catalog.Publisher,
	clock catalog.Clock,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.EnrichBatchSize <= 0 {
		cfg.EnrichBatchSize = 10
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = 2 * time.Second
	}
	if cfg.VideoDelay <= 0 {
		cfg.VideoDelay = 3 * time.Second
	}
	if cfg.StudioDelay <= 0 {
		cfg.StudioDelay = 5 * time.Second
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "pages"
	}
	if cfg.EventTopic == "" {
		cfg.EventTopic = "catalog.video.resolved"
	}
	if clock == nil {
		clock = catalog.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		resolver:  resolver,
		store:     store,
		archive:   archive,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		pause:     &timerPauseController{},
		latch:     newStopLatch(),
	}
	o.state.Store(StateIdle)
	return o
}

// RequestStop sets the cooperative cancellation flag. Idempotent and safe
// from any state; the in-flight unit of work drains before the run ends.
func (o *Orchestrator) RequestStop() {
	o.latch.Trigger()
	metrics.IncCrawlStopped()
}

// Stopped reports whether a stop has been requested.
func (o *Orchestrator) Stopped() bool {
	return o.latch.Stopped()
}

// State returns the current phase for status reporting.
func (o *Orchestrator) State() State {
	return o.state.Load().(State)
}

// runCtx derives a context cancelled with ErrStopped when the latch
// triggers, so every suspension point (delays, backoff, network calls)
// unwinds without starting new work.
func (o *Orchestrator) runCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancelCause(ctx)
	go func() {
		select {
		case <-o.latch.Done():
			cancel(catalog.ErrStopped)
		case <-runCtx.Done():
		}
	}()
	return runCtx, func() { cancel(nil) }
}

// DiscoverStudios fetches the catalog root, extracts studio links and
// upserts each one. When the page yields nothing and seeding is enabled,
// the static seed list is upserted instead.
func (o *Orchestrator) DiscoverStudios(ctx context.Context) ([]catalog.Studio, error) {
	ctx, cancel := o.runCtx(ctx)
	defer cancel()
	o.state.Store(StateDiscover)

	var candidates []catalog.StudioCandidate
	body, err := o.fetcher.Fetch(ctx, o.cfg.BaseURL)
	if err != nil {
		if errors.Is(err, catalog.ErrStopped) {
			return nil, catalog.ErrStopped
		}
		o.logger.Error("catalog root fetch failed", zap.String("url", o.cfg.BaseURL), zap.Error(err))
		if !o.cfg.SeedOnEmpty || len(o.cfg.Seeds) == 0 {
			return nil, err
		}
	} else {
		o.archivePage(ctx, o.cfg.BaseURL, body)
		candidates = o.extractor.Studios(body)
	}

	studios := make([]catalog.Studio, 0, len(candidates))
	for _, c := range candidates {
		studios = append(studios, catalog.Studio{
			Name:             c.Name,
			URL:              c.URL,
			SourceListingURL: c.URL,
			CreatedAt:        o.clock.Now(),
		})
	}
	if len(studios) == 0 && o.cfg.SeedOnEmpty && len(o.cfg.Seeds) > 0 {
		o.logger.Info("no studios discovered, falling back to seed list",
			zap.Int("seeds", len(o.cfg.Seeds)))
		studios = append(studios, o.cfg.Seeds...)
	}

	for _, studio := range studios {
		if o.latch.Stopped() {
			return studios, catalog.ErrStopped
		}
		if err := o.store.UpsertStudio(ctx, studio); err != nil {
			return studios, fmt.Errorf("upsert studio %s: %w", studio.URL, err)
		}
		metrics.IncStudioUpsert()
	}
	o.logger.Info("studio discovery finished", zap.Int("studios", len(studios)))
	return studios, nil
}

// CrawlStudio walks a studio's listing pages (1, page/2/, page/3/, ...)
// until no next-page link remains, the page cap is hit, or a stop is
// requested. Each page's summaries are upserted before the politeness
// delay. A page failure ends this studio's loop without aborting the
// caller's loop over sibling studios.
func (o *Orchestrator) CrawlStudio(ctx context.Context, studioURL string, pageCap int) ([]catalog.Video, error) {
	ctx, cancel := o.runCtx(ctx)
	defer cancel()
	o.state.Store(StateCrawling)

	studioURL = o.ensureStudio(ctx, studioURL)

	var all []catalog.Video
	for page := 1; pageCap <= 0 || page <= pageCap; page++ {
		if o.latch.Stopped() || ctx.Err() != nil {
			break
		}

		pageURL := listingPageURL(studioURL, page)
		body, err := o.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			// Treated as zero results for this page; pagination stops here.
			o.logger.Error("listing page fetch failed",
				zap.String("studio", studioURL),
				zap.Int("page", page),
				zap.Error(err),
			)
			break
		}
		o.archivePage(ctx, pageURL, body)

		listing := o.extractor.Listing(body)
		metrics.IncListingPage()
		o.logger.Info("listing page parsed",
			zap.String("studio", studioURL),
			zap.Int("page", page),
			zap.Int("videos", len(listing.Videos)),
			zap.Bool("has_next", listing.HasNextPage),
		)

		// A stop requested mid-page drains: every summary already parsed
		// from this page is still upserted before the loop ends.
		for _, summary := range listing.Videos {
			video := catalog.Video{
				URL:            summary.URL,
				Title:          summary.Title,
				StudioURL:      studioURL,
				PosterImageURL: summary.PosterImageURL,
				Duration:       summary.Duration,
				ViewCount:      summary.ViewCount,
				Rating:         summary.Rating,
				CreatedAt:      o.clock.Now(),
			}
			if err := o.store.UpsertVideo(ctx, video); err != nil {
				o.logger.Error("video upsert failed", zap.String("url", video.URL), zap.Error(err))
				continue
			}
			metrics.IncVideoUpsert()
			all = append(all, video)
		}

		if !listing.HasNextPage {
			break
		}
		o.pause.Pause(ctx, o.cfg.PageDelay)
	}

	if len(all) > 0 {
		if err := o.store.AddStudioVideoCount(ctx, studioURL, len(all)); err != nil {
			o.logger.Warn("studio video count update failed",
				zap.String("studio", studioURL), zap.Error(err))
		}
	}
	if o.latch.Stopped() {
		return all, catalog.ErrStopped
	}
	return all, nil
}

// EnrichPendingVideos selects videos without a resolved embed URL, bounded
// by batchSize, and for each one runs the detail extractor and the stream
// resolver, upserting whatever was found. Per-video failures are logged
// and skipped; the video stays eligible for the next sweep.
func (o *Orchestrator) EnrichPendingVideos(ctx context.Context, batchSize int) error {
	ctx, cancel := o.runCtx(ctx)
	defer cancel()
	o.state.Store(StateEnriching)

	if batchSize <= 0 {
		batchSize = o.cfg.EnrichBatchSize
	}
	pending, err := o.store.ListVideos(ctx, catalog.VideoFilter{UnresolvedOnly: true, Limit: batchSize})
	if err != nil {
		return fmt.Errorf("list unresolved videos: %w", err)
	}
	o.logger.Info("enrichment sweep starting", zap.Int("videos", len(pending)))

	for i, video := range pending {
		if o.latch.Stopped() || ctx.Err() != nil {
			return catalog.ErrStopped
		}
		if i > 0 {
			o.pause.Pause(ctx, o.cfg.VideoDelay)
		}
		if err := o.enrichOne(ctx, video); err != nil {
			if errors.Is(err, catalog.ErrStopped) {
				return catalog.ErrStopped
			}
			metrics.IncEnrichFailure()
			o.logger.Error("video enrichment failed", zap.String("url", video.URL), zap.Error(err))
		}
	}
	return nil
}

func (o *Orchestrator) enrichOne(ctx context.Context, video catalog.Video) error {
	body, err := o.fetcher.Fetch(ctx, video.URL)
	if err != nil {
		return err
	}
	o.archivePage(ctx, video.URL, body)

	detail, err := o.extractor.Detail(video.URL, body)
	if err != nil {
		return err
	}

	update := catalog.Video{
		URL:            video.URL,
		Title:          detail.Title,
		PosterImageURL: detail.PosterImageURL,
		Duration:       detail.Duration,
		ViewCount:      detail.ViewCount,
		Rating:         detail.Rating,
		Tags:           detail.Tags,
	}
	if len(detail.IframeCandidates) > 0 {
		update.StreamingURL = detail.IframeCandidates[0]
	}

	finalURL, err := o.resolver.Resolve(ctx, detail.IframeCandidates)
	if err != nil {
		return err
	}
	update.FinalMediaURL = finalURL

	if err := o.store.UpsertVideo(ctx, update); err != nil {
		return fmt.Errorf("upsert enriched video: %w", err)
	}
	metrics.IncVideoUpsert()

	if finalURL != "" {
		o.publishResolved(ctx, video.URL, finalURL)
	}
	return nil
}

// RunFull performs a complete sweep: discovery, a bounded listing crawl
// per studio with a delay between studios, then one enrichment pass.
// Per-studio failures are isolated; the run continues with the next one.
func (o *Orchestrator) RunFull(ctx context.Context) error {
	if _, err := o.DiscoverStudios(ctx); err != nil {
		if errors.Is(err, catalog.ErrStopped) {
			o.state.Store(StateDone)
			return nil
		}
		return err
	}

	studios, err := o.store.ListStudios(ctx)
	if err != nil {
		return fmt.Errorf("list studios: %w", err)
	}
	if o.cfg.MaxStudios > 0 && len(studios) > o.cfg.MaxStudios {
		studios = studios[:o.cfg.MaxStudios]
	}

	for i, studio := range studios {
		if o.latch.Stopped() {
			o.state.Store(StateDone)
			return nil
		}
		if i > 0 {
			o.pause.Pause(ctx, o.cfg.StudioDelay)
		}
		if _, err := o.CrawlStudio(ctx, studio.URL, o.cfg.PagesPerStudio); err != nil &&
			!errors.Is(err, catalog.ErrStopped) {
			o.logger.Error("studio crawl failed", zap.String("studio", studio.URL), zap.Error(err))
		}
	}

	if !o.latch.Stopped() {
		if err := o.EnrichPendingVideos(ctx, o.cfg.EnrichBatchSize); err != nil &&
			!errors.Is(err, catalog.ErrStopped) {
			o.logger.Error("enrichment sweep failed", zap.Error(err))
		}
	}

	o.state.Store(StateDone)
	return nil
}

// ensureStudio guarantees the studio identity exists before videos are
// attributed to it. An empty identity maps to the sentinel Unknown studio.
func (o *Orchestrator) ensureStudio(ctx context.Context, studioURL string) string {
	if studioURL == "" {
		studioURL = sentinelStudioURL
	}
	studio := catalog.Studio{
		URL:              studioURL,
		Name:             catalog.UnknownStudioName,
		SourceListingURL: studioURL,
		CreatedAt:        o.clock.Now(),
	}
	// Upsert keeps an existing name; this only materializes missing rows.
	if err := o.store.UpsertStudio(ctx, studio); err != nil {
		o.logger.Warn("studio materialization failed", zap.String("studio", studioURL), zap.Error(err))
	}
	return studioURL
}

func (o *Orchestrator) archivePage(ctx context.Context, pageURL string, body []byte) {
	if o.archive == nil {
		return
	}
	sum := sha256.Sum256([]byte(pageURL))
	path := fmt.Sprintf("%s/%s.html", strings.Trim(o.cfg.ArchivePrefix, "/"), hex.EncodeToString(sum[:8]))
	if _, err := o.archive.PutObject(ctx, path, "text/html; charset=utf-8", body); err != nil {
		o.logger.Warn("page archive failed", zap.String("url", pageURL), zap.Error(err))
	}
}

func (o *Orchestrator) publishResolved(ctx context.Context, videoURL, finalURL string) {
	if o.publisher == nil {
		return
	}
	payload := map[string]any{
		"url":             videoURL,
		"final_media_url": finalURL,
		"timestamp":       o.clock.Now().Format(time.RFC3339),
	}
	if _, err := o.publisher.Publish(ctx, o.cfg.EventTopic, payload); err != nil {
		o.logger.Warn("resolved event publish failed", zap.String("url", videoURL), zap.Error(err))
	}
}

// listingPageURL builds the paginated listing URL for a studio. Page 1 is
// the listing URL itself; later pages append "page/N/".
func listingPageURL(studioURL string, page int) string {
	if page <= 1 {
		return studioURL
	}
	base := studioURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return fmt.Sprintf("%spage/%d/", base, page)
}
