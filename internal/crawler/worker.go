package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/seoscan/seoscan/internal/model"
	"github.com/seoscan/seoscan/internal/queue"
	"github.com/seoscan/seoscan/internal/storage"
)

// Worker processes crawl queue items: one Process call pops one URL,
// performs one fetch, persists the type-appropriate record, and
// re-enqueues discovered same-site links.
//
// Design decision: One fetch per call keeps the worker safe to drive
// from any external scheduler (cron tick, CLI loop) with no internal
// locking: the run directory is the only shared state, all writes are
// whole files keyed by URL hash, and the todo->done rename is the only
// atomicity boundary.
type Worker struct {
	store   *storage.Store
	queue   *queue.Queue
	fetcher *Fetcher
	profile *Profile
	project *model.Project
	runID   string
	logger  *slog.Logger
}

// Outcome classifies the result of one Process call.
type Outcome string

const (
	// OutcomeProcessed means a URL was fetched and a record persisted.
	OutcomeProcessed Outcome = "processed"

	// OutcomeSkipped means a URL was popped but not fetched (out of
	// crawl scope). It is still marked done.
	OutcomeSkipped Outcome = "skipped"

	// OutcomeFailed means the fetch failed and an error record was
	// written. The queue item is still marked done.
	OutcomeFailed Outcome = "failed"

	// OutcomeQueueEmpty means no pending items remain; the run is
	// complete. This is the orchestration loop's terminal signal.
	OutcomeQueueEmpty Outcome = "queue-empty"
)

// Result describes one Process call.
type Result struct {
	// Outcome classifies what happened.
	Outcome Outcome

	// URL is the processed URL, empty on OutcomeQueueEmpty.
	URL string

	// Class is the analysis class of the response (html/pdf/image/
	// unknown), empty unless OutcomeProcessed.
	Class string

	// StatusCode is the HTTP status, 0 unless a response was received.
	StatusCode int

	// Enqueued is the number of newly discovered URLs added to the
	// queue.
	Enqueued int
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithLogger sets a custom logger for the worker.
func WithLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// NewWorker creates a Worker for one run of one project. The profile
// must be built from the project's base URL so link classification and
// crawl scoping agree.
func NewWorker(store *storage.Store, q *queue.Queue, fetcher *Fetcher, profile *Profile, project *model.Project, runID string, opts ...WorkerOption) *Worker {
	w := &Worker{
		store:   store,
		queue:   q,
		fetcher: fetcher,
		profile: profile,
		project: project,
		runID:   runID,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Process pops and handles one queue item. Fetch failures are recorded
// as data, never returned as errors; only storage failures (the fatal
// condition for a step) propagate. The popped marker is always moved to
// done, whatever the outcome.
func (w *Worker) Process(ctx context.Context) (*Result, error) {
	item, ok, err := w.queue.Next()
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := w.store.TouchRun(w.project.Slug, w.runID, time.Now().UTC(), true); err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeQueueEmpty}, nil
	}

	result, err := w.processItem(ctx, item)
	if err != nil {
		return nil, err
	}

	if err := w.queue.MarkDone(item.Hash); err != nil {
		return nil, err
	}

	pending, err := w.queue.PendingCount()
	if err != nil {
		return nil, err
	}
	if err := w.store.TouchRun(w.project.Slug, w.runID, time.Now().UTC(), pending == 0); err != nil {
		return nil, err
	}
	return result, nil
}

// processItem fetches and persists one URL.
func (w *Worker) processItem(ctx context.Context, item queue.Item) (*Result, error) {
	if !w.profile.ShouldCrawl(item.URL) {
		w.logger.Debug("skipping out-of-scope URL", "url", item.URL, "host", w.profile.Host())
		return &Result{Outcome: OutcomeSkipped, URL: item.URL}, nil
	}

	now := time.Now().UTC()
	resp, err := w.fetcher.Fetch(ctx, item.URL)
	if err != nil {
		w.logger.Warn("fetch failed", "url", item.URL, "error", err)
		if serr := w.recordError(item, now, err); serr != nil {
			return nil, serr
		}
		return &Result{Outcome: OutcomeFailed, URL: item.URL}, nil
	}

	class := model.ClassifyContentType(resp.ContentType)
	if class == "unknown" {
		class = model.ClassifyByExtension(item.URL)
	}
	// Signals reflect the true content class; the redirect reclass
	// below only routes the record.
	signals := FetchSignals(resp, class)

	// Redirect responses carry no useful body to classify, but their
	// status is audit input, so they persist as page records.
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		class = "html"
	}

	var enqueued int
	switch class {
	case "html":
		enqueued, err = w.recordHTML(item, resp, signals, now)
	case "pdf":
		err = w.recordPDF(item, resp, signals, now)
	case "image":
		err = w.recordImage(item, resp, signals, now)
	default:
		err = w.recordOther(item, resp, signals, now, "unknown")
	}
	if err != nil {
		return nil, err
	}

	w.logger.Debug("processed",
		"url", item.URL,
		"class", class,
		"status", resp.StatusCode,
		"enqueued", enqueued,
	)
	return &Result{
		Outcome:    OutcomeProcessed,
		URL:        item.URL,
		Class:      class,
		StatusCode: resp.StatusCode,
		Enqueued:   enqueued,
	}, nil
}

// recordHTML persists a page record with the extracted SEO feature set
// and enqueues discovered same-site URLs. Parser failures downgrade to
// a bare page record; they are not fetch failures.
func (w *Worker) recordHTML(item queue.Item, resp *Response, signals []model.Signal, now time.Time) (int, error) {
	record := &model.PageRecord{
		URL:           item.URL,
		FetchedAt:     now,
		StatusCode:    resp.StatusCode,
		ContentType:   resp.ContentType,
		ContentLength: int64(len(resp.Body)),
		Headers:       resp.Headers,
		Signals:       signals,
	}

	var discovered []string
	if len(resp.Body) > 0 {
		parser, err := NewParser(item.URL, w.profile.Host())
		if err == nil {
			seo, links, perr := parser.Parse(resp.Body)
			if perr == nil {
				record.SEO = seo
				discovered = links
			}
		}
	}

	if err := w.store.SavePageRecord(w.project.Slug, w.runID, record); err != nil {
		return 0, err
	}

	inScope := make([]string, 0, len(discovered))
	for _, link := range discovered {
		if w.profile.ShouldCrawl(link) {
			inScope = append(inScope, link)
		}
	}
	return w.queue.Enqueue(inScope)
}

// recordPDF persists a PDF envelope to the others directory.
func (w *Worker) recordPDF(item queue.Item, resp *Response, signals []model.Signal, now time.Time) error {
	record := &model.OtherRecord{
		URL:           item.URL,
		FetchedAt:     now,
		StatusCode:    resp.StatusCode,
		ContentType:   resp.ContentType,
		ContentLength: int64(len(resp.Body)),
		Headers:       resp.Headers,
		Kind:          "pdf",
		PDF:           AnalyzePDF(resp.Body),
		Signals:       signals,
	}
	return w.store.SaveOtherRecord(w.project.Slug, w.runID, record)
}

// recordImage persists an image record with dimension and EXIF probing.
func (w *Worker) recordImage(item queue.Item, resp *Response, signals []model.Signal, now time.Time) error {
	info := AnalyzeImage(resp.Body)
	record := &model.ImageRecord{
		URL:         item.URL,
		FetchedAt:   now,
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType,
		Bytes:       int64(len(resp.Body)),
		Format:      info.Format,
		Width:       info.Width,
		Height:      info.Height,
		AspectRatio: info.AspectRatio,
		EXIF:        info.EXIF,
		Signals:     signals,
	}
	return w.store.SaveImageRecord(w.project.Slug, w.runID, record)
}

// recordOther persists the raw envelope of an unrecognized response.
func (w *Worker) recordOther(item queue.Item, resp *Response, signals []model.Signal, now time.Time, kind string) error {
	record := &model.OtherRecord{
		URL:           item.URL,
		FetchedAt:     now,
		StatusCode:    resp.StatusCode,
		ContentType:   resp.ContentType,
		ContentLength: int64(len(resp.Body)),
		Headers:       resp.Headers,
		Kind:          kind,
		Signals:       signals,
	}
	return w.store.SaveOtherRecord(w.project.Slug, w.runID, record)
}

// recordError persists a transport failure, carrying the attempt count
// forward so the retry policy can reason about it.
func (w *Worker) recordError(item queue.Item, now time.Time, fetchErr error) error {
	attempts := 1
	if prev, err := w.store.LoadErrorRecord(w.project.Slug, w.runID, item.Hash); err == nil && prev != nil {
		attempts = prev.Attempts + 1
	}

	record := &model.ErrorRecord{
		URL:        item.URL,
		OccurredAt: now,
		Message:    fetchErr.Error(),
		Attempts:   attempts,
	}
	return w.store.SaveErrorRecord(w.project.Slug, w.runID, record)
}

// ProcessQueue runs Process in a loop until the queue is empty, the
// step budget is exhausted, or the context is cancelled. maxSteps <= 0
// means no budget. Returns the number of items handled and whether the
// queue was drained.
func (w *Worker) ProcessQueue(ctx context.Context, maxSteps int) (int, bool, error) {
	processed := 0
	for {
		select {
		case <-ctx.Done():
			return processed, false, ctx.Err()
		default:
		}

		if maxSteps > 0 && processed >= maxSteps {
			return processed, false, nil
		}

		result, err := w.Process(ctx)
		if err != nil {
			return processed, false, err
		}
		if result.Outcome == OutcomeQueueEmpty {
			return processed, true, nil
		}
		processed++
	}
}
