// Package queue implements the durable, per-run crawl work list.
//
// The queue is a directory of marker files: <md5(url)>.todo for pending
// URLs and <md5(url)>.done for attempted ones. Using files rather than an
// in-memory structure makes the queue survive process restarts (each
// crawl step can be one isolated invocation) and keeps it inspectable
// with plain shell tools. The cost is O(files) directory scans, which is
// acceptable at per-site crawl scale.
package queue

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/seoscan/seoscan/internal/model"
	"github.com/seoscan/seoscan/internal/storage"
)

// Marker file extensions encoding queue state.
const (
	todoExt = ".todo"
	doneExt = ".done"
)

// Queue manages the marker-file work list for one run of one project.
type Queue struct {
	// store provides the directory layout and artifact checks.
	store *storage.Store

	// project is the owning project; its exclude patterns and retry
	// policy apply to every enqueue.
	project *model.Project

	// runID identifies the run whose queue this is.
	runID string
}

// Item is one dequeued work unit.
type Item struct {
	// Hash is the md5 hex digest of the URL, i.e. the marker basename.
	Hash string

	// URL is the raw URL stored in the marker.
	URL string
}

// New creates a Queue for the given project and run.
func New(store *storage.Store, project *model.Project, runID string) *Queue {
	return &Queue{store: store, project: project, runID: runID}
}

// Init prepares a fresh run: it creates the run directory tree, clears
// any prior todo/done markers for the run, writes the run metadata,
// marks the run as the project's latest, and enqueues the seed URLs.
// Returns the number of seeds queued.
func (q *Queue) Init(seeds []string, now time.Time) (int, error) {
	if err := q.store.EnsureRunDirs(q.project.Slug, q.runID); err != nil {
		return 0, err
	}

	if err := q.clearMarkers(); err != nil {
		return 0, err
	}

	meta := &model.RunMeta{
		RunID:     q.runID,
		Project:   q.project.Slug,
		StartedAt: now.UTC(),
		SeedURLs:  seeds,
	}
	if err := q.store.SaveRunMeta(meta); err != nil {
		return 0, err
	}
	if err := q.store.SetLatestRun(q.project.Slug, q.runID); err != nil {
		return 0, err
	}

	return q.Enqueue(seeds)
}

// clearMarkers removes every todo/done marker in the queue directory.
func (q *Queue) clearMarkers() error {
	dir := q.store.QueueDir(q.project.Slug, q.runID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read queue directory: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, todoExt) || strings.HasSuffix(name, doneExt) {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return fmt.Errorf("failed to clear queue marker %s: %w", name, err)
			}
		}
	}
	return nil
}

// Enqueue adds URLs to the queue. A URL is skipped when it is blank,
// matches an exclude pattern, or already has a terminal artifact for its
// hash (todo/done marker or page/image/error/other record). The terminal
// check makes enqueueing idempotent: re-discovering a URL mid-crawl is a
// no-op.
//
// When the project's MaxRetries allows it, a URL whose only terminal
// artifact is an error record with fewer recorded attempts is allowed
// back in; the stale error record is removed so the artifact invariant
// (one state per hash) holds.
//
// Returns the count of newly added URLs.
func (q *Queue) Enqueue(urls []string) (int, error) {
	added := 0
	for _, rawURL := range urls {
		rawURL = strings.TrimSpace(rawURL)
		if rawURL == "" {
			continue
		}
		if Excluded(rawURL, q.project.ExcludeURLs) {
			continue
		}

		hash := model.URLHash(rawURL)
		if q.store.HasTerminalArtifact(q.project.Slug, q.runID, hash) {
			if !q.retryAllowed(hash) {
				continue
			}
			if err := q.store.RemoveErrorRecord(q.project.Slug, q.runID, hash); err != nil {
				return added, fmt.Errorf("failed to reset error record for retry: %w", err)
			}
		}

		if err := q.writeMarker(hash, rawURL); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// retryAllowed reports whether a URL blocked by a terminal artifact may
// be re-enqueued under the project's retry policy. Only an error record
// unblocks: successful records (pages/images/others) and live markers
// always stay terminal.
func (q *Queue) retryAllowed(hash string) bool {
	if q.project.MaxRetries <= 0 {
		return false
	}

	// Any non-error artifact keeps the hash terminal.
	slug := q.project.Slug
	for _, path := range []string{
		filepath.Join(q.store.QueueDir(slug, q.runID), hash+todoExt),
		filepath.Join(q.store.QueueDir(slug, q.runID), hash+doneExt),
		filepath.Join(q.store.PagesDir(slug, q.runID), hash+".json"),
		filepath.Join(q.store.ImagesDir(slug, q.runID), hash+".json"),
		filepath.Join(q.store.OthersDir(slug, q.runID), hash+".json"),
	} {
		if _, err := os.Stat(path); err == nil {
			return false
		}
	}

	record, err := q.store.LoadErrorRecord(slug, q.runID, hash)
	if err != nil || record == nil {
		return false
	}
	return record.Attempts <= q.project.MaxRetries
}

// writeMarker creates the .todo marker for a URL. The marker holds the
// raw URL on the first line and a monotonic enqueue sequence on the
// second, which gives Next a stable FIFO order independent of
// directory-listing order.
func (q *Queue) writeMarker(hash, rawURL string) error {
	path := filepath.Join(q.store.QueueDir(q.project.Slug, q.runID), hash+todoExt)
	content := rawURL + "\n" + strconv.FormatInt(time.Now().UnixNano(), 10) + "\n"
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		return fmt.Errorf("failed to write queue marker: %w", err)
	}
	return nil
}

// Next returns the oldest pending item by enqueue sequence, or ok=false
// when the queue is empty. An empty queue is the crawl's termination
// signal.
func (q *Queue) Next() (Item, bool, error) {
	dir := q.store.QueueDir(q.project.Slug, q.runID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Item{}, false, fmt.Errorf("failed to read queue directory: %w", err)
	}

	type pending struct {
		item Item
		seq  int64
	}
	candidates := make([]pending, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, todoExt) {
			continue
		}

		hash := strings.TrimSuffix(name, todoExt)
		rawURL, seq, err := readMarker(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		candidates = append(candidates, pending{
			item: Item{Hash: hash, URL: rawURL},
			seq:  seq,
		})
	}

	if len(candidates) == 0 {
		return Item{}, false, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].seq != candidates[j].seq {
			return candidates[i].seq < candidates[j].seq
		}
		return candidates[i].item.Hash < candidates[j].item.Hash
	})
	return candidates[0].item, true, nil
}

// readMarker parses a marker file: raw URL on line one, enqueue sequence
// on line two. Markers from older layouts without a sequence line sort
// first (sequence 0), which preserves their rough FIFO position.
func readMarker(path string) (string, int64, error) {
	data, err := os.ReadFile(path) //nolint:gosec // queue-directory path
	if err != nil {
		return "", 0, err
	}

	lines := strings.SplitN(strings.TrimRight(string(data), "\n"), "\n", 2)
	rawURL := strings.TrimSpace(lines[0])
	if rawURL == "" {
		return "", 0, fmt.Errorf("empty marker %s", filepath.Base(path))
	}

	var seq int64
	if len(lines) == 2 {
		seq, _ = strconv.ParseInt(strings.TrimSpace(lines[1]), 10, 64)
	}
	return rawURL, seq, nil
}

// MarkDone moves a queue marker from todo to done. The rename is the
// only atomicity boundary in the queue: after it, the URL counts as
// attempted regardless of fetch outcome.
func (q *Queue) MarkDone(hash string) error {
	dir := q.store.QueueDir(q.project.Slug, q.runID)
	if err := os.Rename(filepath.Join(dir, hash+todoExt), filepath.Join(dir, hash+doneExt)); err != nil {
		return fmt.Errorf("failed to mark %s done: %w", hash, err)
	}
	return nil
}

// PendingCount returns the number of .todo markers.
func (q *Queue) PendingCount() (int, error) {
	return q.countMarkers(todoExt)
}

// DoneCount returns the number of .done markers.
func (q *Queue) DoneCount() (int, error) {
	return q.countMarkers(doneExt)
}

func (q *Queue) countMarkers(ext string) (int, error) {
	entries, err := os.ReadDir(q.store.QueueDir(q.project.Slug, q.runID))
	if err != nil {
		return 0, fmt.Errorf("failed to read queue directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ext) {
			count++
		}
	}
	return count, nil
}

// Excluded reports whether a URL matches any of the operator-supplied
// block patterns. Matching is case-insensitive and supports three forms:
// exact match, substring match, and glob patterns where '*' matches any
// character sequence including '/' (so "*/tag/*" blocks every tag page).
func Excluded(rawURL string, patterns []string) bool {
	lowered := strings.ToLower(rawURL)
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}

		if strings.Contains(pattern, "*") {
			if matchGlob(pattern, lowered) {
				return true
			}
			continue
		}
		if pattern == lowered || strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}

// matchGlob matches a '*' glob against a full URL. We compile to a
// regexp rather than using path.Match because URL patterns need '*' to
// cross path separators.
func matchGlob(pattern, lowered string) bool {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}

	re, err := regexp.Compile("^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return false
	}
	return re.MatchString(lowered)
}
