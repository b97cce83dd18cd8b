// Package downloads runs course file transfers with a bounded number of
// concurrent downloads and a FIFO queue for the rest.
//
// Every course tracked by the engine is in exactly one state: queued, active
// or terminal. Courses without a state are idle. The engine mutex guards the
// state map, the queue and the active counter, and every progress row write
// happens under it after checking that the transfer is still the current
// one. A transfer that was cancelled therefore never writes again.
package downloads

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/courseshelf/internal/catalog"
	"github.com/mrlokans/courseshelf/internal/database/courses"
	"github.com/mrlokans/courseshelf/internal/entities"
	"github.com/mrlokans/courseshelf/internal/metrics"
	"github.com/mrlokans/courseshelf/internal/utils"
)

const (
	DefaultMaxConcurrent   = 3
	DefaultTransferTimeout = 10 * time.Minute

	coursesSubdir = "courses"
)

var (
	// ErrNoLocator is returned for courses without a remote file path.
	ErrNoLocator = errors.New("course has no download locator")
	// ErrInterrupted marks transfers stopped by engine shutdown.
	ErrInterrupted = errors.New("download interrupted")
)

// Store is the part of the local database the engine reads and writes.
type Store interface {
	GetCourseByID(id string) (*entities.Course, error)
	ListCourses(filter courses.Filter) ([]entities.Course, error)
	MarkCourseDownloaded(id, localPath string, at time.Time) error
	ClearCourseDownload(id string) error
	UpsertDownloadProgress(progress *entities.DownloadProgress) error
	UpdateDownloadProgress(progress *entities.DownloadProgress) (int64, error)
	DeleteDownloadProgress(courseID string) error
	GetPreference(key string) (*entities.Preference, error)
}

// Locator resolves a stored file path into a URL. catalog.Source satisfies it.
type Locator interface {
	ResolveDownloadLocator(ctx context.Context, firebasePath string) (string, error)
}

// ProgressListener receives every progress change, including terminal ones.
// It is called without the engine lock held.
type ProgressListener func(entities.DownloadProgress)

type Config struct {
	// Dir is the data directory; files go to Dir/courses.
	Dir             string
	MaxConcurrent   int
	TransferTimeout time.Duration
}

type StateKind int

const (
	StateIdle StateKind = iota
	StateQueued
	StateActive
	StateTerminal
)

func (k StateKind) String() string {
	switch k {
	case StateQueued:
		return "queued"
	case StateActive:
		return "active"
	case StateTerminal:
		return "terminal"
	default:
		return "idle"
	}
}

// courseState is one of queuedState, *activeState or terminalState.
type courseState interface {
	kind() StateKind
}

type queuedState struct {
	course   entities.Course
	queuedAt time.Time
}

func (queuedState) kind() StateKind { return StateQueued }

type activeState struct {
	course     entities.Course
	cancel     context.CancelFunc
	done       chan struct{}
	progress   entities.DownloadProgress
	checkpoint int // last persisted percent / 10
}

func (*activeState) kind() StateKind { return StateActive }

type terminalState struct {
	progress entities.DownloadProgress
}

func (terminalState) kind() StateKind { return StateTerminal }

type Engine struct {
	store   Store
	locator Locator
	fetcher Fetcher
	conn    catalog.Connectivity
	policy  func() bool
	log     logrus.FieldLogger
	now     func() time.Time

	dir           string
	maxConcurrent int
	timeout       time.Duration

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu     sync.Mutex
	states map[string]courseState
	queue  []string
	active int
	closed bool

	listenersMu sync.RWMutex
	listeners   []ProgressListener
}

type Option func(*Engine)

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithConnectivity(conn catalog.Connectivity) Option {
	return func(e *Engine) { e.conn = conn }
}

// WithWifiOnlyPolicy replaces the stored wifi_only_downloads lookup.
func WithWifiOnlyPolicy(policy func() bool) Option {
	return func(e *Engine) { e.policy = policy }
}

func WithListener(l ProgressListener) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, l) }
}

func NewEngine(cfg Config, store Store, locator Locator, fetcher Fetcher, opts ...Option) *Engine {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	timeout := cfg.TransferTimeout
	if timeout <= 0 {
		timeout = DefaultTransferTimeout
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	e := &Engine{
		store:         store,
		locator:       locator,
		fetcher:       fetcher,
		log:           logrus.StandardLogger(),
		now:           time.Now,
		dir:           cfg.Dir,
		maxConcurrent: maxConcurrent,
		timeout:       timeout,
		baseCtx:       baseCtx,
		baseCancel:    baseCancel,
		states:        make(map[string]courseState),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("component", "downloads")
	return e
}

// AddListener registers a progress listener.
func (e *Engine) AddListener(l ProgressListener) {
	e.listenersMu.Lock()
	e.listeners = append(e.listeners, l)
	e.listenersMu.Unlock()
}

func (e *Engine) notify(p entities.DownloadProgress) {
	e.listenersMu.RLock()
	listeners := e.listeners
	e.listenersMu.RUnlock()
	for _, l := range listeners {
		l(p)
	}
}

// DownloadCourse starts the course's transfer, or queues it when all slots
// are busy.
func (e *Engine) DownloadCourse(ctx context.Context, course *entities.Course) StartResult {
	switch {
	case course.IsBundled:
		return StartResult{Status: RejectedBundled, Message: "Course is bundled with the app"}
	case course.IsDownloaded:
		return StartResult{Status: RejectedDownloaded, Message: "Course is already downloaded"}
	case !course.HasRemoteLocator():
		return StartResult{Status: RejectedNoLocator, Message: "Course has no downloadable file"}
	}

	if e.wifiOnly() && e.conn != nil && e.conn.IsMetered(ctx) {
		return StartResult{Status: RejectedMetered, Message: "Downloads are limited to Wi-Fi"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return StartResult{Status: RejectedClosed, Message: "Download engine is shut down"}
	}

	switch e.states[course.ID].(type) {
	case *activeState:
		return StartResult{Status: RejectedActive, Message: "Course is already downloading"}
	case queuedState:
		return StartResult{Status: RejectedQueued, Message: "Course is already queued"}
	}

	if e.active >= e.maxConcurrent {
		e.states[course.ID] = queuedState{course: *course, queuedAt: e.now()}
		e.queue = append(e.queue, course.ID)
		e.updateGaugesLocked()
		e.log.WithField("course_code", course.CourseCode).Info("Download queued")
		return StartResult{Status: Queued, Message: fmt.Sprintf("Queued at position %d", len(e.queue))}
	}

	e.startLocked(*course)
	return StartResult{Status: Started, Message: "Download started"}
}

func (e *Engine) wifiOnly() bool {
	if e.policy != nil {
		return e.policy()
	}
	pref, err := e.store.GetPreference(entities.PreferenceKeyWifiOnlyDownloads)
	if err != nil {
		e.log.WithError(err).Warn("Failed to read wifi-only preference")
		return false
	}
	return pref != nil && (strings.EqualFold(pref.Value, "true") || pref.Value == "1")
}

// startLocked registers the transfer, writes the initial row and spawns the
// worker. Caller holds e.mu.
func (e *Engine) startLocked(course entities.Course) {
	ctx, cancel := context.WithTimeout(e.baseCtx, e.timeout)
	st := &activeState{
		course: course,
		cancel: cancel,
		done:   make(chan struct{}),
		progress: entities.DownloadProgress{
			CourseID:   course.ID,
			CourseCode: course.CourseCode,
			Title:      course.Title,
			Status:     entities.DownloadStatusDownloading,
			TotalBytes: course.FileSize,
			StartedAt:  e.now(),
		},
	}
	e.states[course.ID] = st
	e.active++
	e.updateGaugesLocked()

	row := st.progress
	if err := e.store.UpsertDownloadProgress(&row); err != nil {
		e.log.WithError(err).WithField("course_code", course.CourseCode).Warn("Failed to persist download start")
	}

	e.log.WithField("course_code", course.CourseCode).Info("Download started")

	e.wg.Add(1)
	go e.run(ctx, st)
}

func (e *Engine) run(ctx context.Context, st *activeState) {
	defer e.wg.Done()
	defer close(st.done)
	defer st.cancel()

	e.mu.Lock()
	initial := st.progress
	e.mu.Unlock()
	e.notify(initial)

	path, written, err := e.transfer(ctx, st)
	e.finish(st, path, written, err)
}

func (e *Engine) transfer(ctx context.Context, st *activeState) (string, int64, error) {
	if !st.course.HasRemoteLocator() {
		return "", 0, ErrNoLocator
	}
	url, err := e.locator.ResolveDownloadLocator(ctx, *st.course.FirebasePath)
	if err != nil {
		return "", 0, fmt.Errorf("resolve locator: %w", err)
	}

	dest := e.CoursePath(st.course.CourseCode)
	written, err := e.fetcher.Fetch(ctx, url, dest, func(downloaded, total int64) {
		e.onProgress(st, downloaded, total)
	})
	if err != nil {
		if e.baseCtx.Err() != nil {
			return "", written, ErrInterrupted
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", written, fmt.Errorf("transfer timed out after %s", e.timeout)
		}
		return "", written, err
	}
	return dest, written, nil
}

func (e *Engine) onProgress(st *activeState, downloaded, total int64) {
	e.mu.Lock()
	if e.states[st.course.ID] != courseState(st) {
		e.mu.Unlock()
		return
	}

	if total <= 0 {
		total = st.progress.TotalBytes
	}
	if total <= 0 {
		st.progress.DownloadedBytes = downloaded
	} else {
		st.progress.SetBytes(downloaded, total)
	}

	if bucket := st.progress.Percent() / 10; bucket > st.checkpoint {
		st.checkpoint = bucket
		row := st.progress
		if _, err := e.store.UpdateDownloadProgress(&row); err != nil {
			e.log.WithError(err).WithField("course_code", st.course.CourseCode).Warn("Failed to checkpoint download")
		}
	}
	snapshot := st.progress
	e.mu.Unlock()

	e.notify(snapshot)
}

// finish records the outcome of a transfer that was not cancelled, frees its
// slot and dispatches the queue.
func (e *Engine) finish(st *activeState, path string, written int64, err error) {
	id := st.course.ID
	log := e.log.WithField("course_code", st.course.CourseCode)

	e.mu.Lock()
	if e.states[id] != courseState(st) {
		// Cancelled: tracking, row and slot were already released. A transfer
		// that still completed leaves no file behind unless a newer download
		// owns the path.
		if err == nil && path != "" {
			if _, tracked := e.states[id]; !tracked {
				if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
					log.WithError(rmErr).Warn("Failed to remove file of cancelled download")
				}
			}
		}
		e.mu.Unlock()
		return
	}

	now := e.now()
	progress := st.progress
	if err == nil {
		if markErr := e.store.MarkCourseDownloaded(id, path, now); markErr != nil {
			err = fmt.Errorf("record download: %w", markErr)
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				log.WithError(rmErr).Warn("Failed to remove unrecorded download")
			}
		}
	}

	outcome := "completed"
	if err == nil {
		progress.Status = entities.DownloadStatusCompleted
		if written > progress.TotalBytes {
			progress.TotalBytes = written
		}
		progress.DownloadedBytes = written
		progress.Progress = 1.0
		progress.CompletedAt = &now
		log.WithField("bytes", written).Info("Download completed")
		metrics.DownloadBytesTotal.Add(float64(written))
	} else {
		outcome = "failed"
		if errors.Is(err, ErrInterrupted) {
			outcome = "interrupted"
		}
		msg := err.Error()
		progress.Status = entities.DownloadStatusFailed
		progress.ErrorMessage = &msg
		progress.CompletedAt = &now
		log.WithError(err).Warn("Download failed")
	}

	row := progress
	if _, uerr := e.store.UpdateDownloadProgress(&row); uerr != nil {
		log.WithError(uerr).Warn("Failed to persist download outcome")
	}

	e.states[id] = terminalState{progress: progress}
	e.active--
	e.dispatchLocked()
	e.mu.Unlock()

	metrics.DownloadsTotal.WithLabelValues(outcome).Inc()
	e.notify(progress)
}

// dispatchLocked fills free slots from the head of the queue. Caller holds e.mu.
func (e *Engine) dispatchLocked() {
	for !e.closed && e.active < e.maxConcurrent && len(e.queue) > 0 {
		id := e.queue[0]
		e.queue = e.queue[1:]
		qs, ok := e.states[id].(queuedState)
		if !ok {
			continue
		}
		e.startLocked(qs.course)
	}
	e.updateGaugesLocked()
}

func (e *Engine) updateGaugesLocked() {
	metrics.ActiveDownloads.Set(float64(e.active))
	metrics.QueuedDownloads.Set(float64(len(e.queue)))
}

func (e *Engine) removeFromQueueLocked(id string) {
	for i, queued := range e.queue {
		if queued == id {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			return
		}
	}
}

// CancelDownload stops an active transfer and deletes its progress row, or
// drops a queued course from the queue.
func (e *Engine) CancelDownload(courseID string) CancelResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch st := e.states[courseID].(type) {
	case *activeState:
		st.cancel()
		delete(e.states, courseID)
		e.active--
		if err := e.store.DeleteDownloadProgress(courseID); err != nil {
			e.log.WithError(err).WithField("course_code", st.course.CourseCode).Warn("Failed to delete progress row")
		}
		e.dispatchLocked()
		metrics.DownloadsTotal.WithLabelValues("cancelled").Inc()
		e.log.WithField("course_code", st.course.CourseCode).Info("Download cancelled")
		return CancelledActive
	case queuedState:
		delete(e.states, courseID)
		e.removeFromQueueLocked(courseID)
		e.updateGaugesLocked()
		return RemovedFromQueue
	}
	return CancelNotFound
}

// PauseDownload is CancelDownload; transfers cannot be resumed.
func (e *Engine) PauseDownload(courseID string) CancelResult {
	return e.CancelDownload(courseID)
}

// DeleteDownload removes a downloaded course's file and resets its download
// state. Bundled and not-downloaded courses are left alone.
func (e *Engine) DeleteDownload(ctx context.Context, course *entities.Course) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	current, err := e.store.GetCourseByID(course.ID)
	if err != nil {
		return err
	}
	if current == nil {
		current = course
	}
	if !current.CanDelete() {
		return nil
	}

	path := e.CoursePath(current.CourseCode)
	if current.LocalPath != nil && *current.LocalPath != "" {
		path = *current.LocalPath
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove course file: %w", err)
	}

	if err := e.store.ClearCourseDownload(current.ID); err != nil {
		return err
	}
	if err := e.store.DeleteDownloadProgress(current.ID); err != nil {
		return err
	}

	e.mu.Lock()
	if _, ok := e.states[current.ID].(terminalState); ok {
		delete(e.states, current.ID)
	}
	e.mu.Unlock()

	e.log.WithField("course_code", current.CourseCode).Info("Download deleted")
	return nil
}

// ClearAllDownloads empties the queue, cancels every active transfer, removes
// the download directory and resets every downloaded, non-bundled course.
func (e *Engine) ClearAllDownloads(ctx context.Context) error {
	e.mu.Lock()
	for _, id := range e.queue {
		delete(e.states, id)
	}
	e.queue = nil

	var waiting []chan struct{}
	for id, s := range e.states {
		switch st := s.(type) {
		case *activeState:
			st.cancel()
			e.active--
			waiting = append(waiting, st.done)
			if err := e.store.DeleteDownloadProgress(id); err != nil {
				e.log.WithError(err).WithField("course_code", st.course.CourseCode).Warn("Failed to delete progress row")
			}
		}
		delete(e.states, id)
	}
	e.updateGaugesLocked()
	e.mu.Unlock()

	for _, done := range waiting {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := os.RemoveAll(e.coursesDir()); err != nil {
		return fmt.Errorf("remove download directory: %w", err)
	}

	downloaded, err := e.store.ListCourses(courses.DownloadedOnly())
	if err != nil {
		return err
	}
	for _, c := range downloaded {
		if c.IsBundled {
			continue
		}
		if err := e.store.ClearCourseDownload(c.ID); err != nil {
			return err
		}
	}

	e.log.WithField("courses", len(downloaded)).Info("All downloads cleared")
	return nil
}

// Close cancels every transfer and waits for the workers to exit. Interrupted
// transfers are recorded as failed.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	for _, id := range e.queue {
		delete(e.states, id)
	}
	e.queue = nil
	e.updateGaugesLocked()
	e.mu.Unlock()

	e.baseCancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Progress returns the in-memory progress of a tracked course.
func (e *Engine) Progress(courseID string) (entities.DownloadProgress, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshotLocked(e.states[courseID])
}

// AllProgress returns the progress of every queued and active course ordered
// by course code.
func (e *Engine) AllProgress() []entities.DownloadProgress {
	e.mu.Lock()
	list := make([]entities.DownloadProgress, 0, len(e.states))
	for _, s := range e.states {
		if s.kind() == StateTerminal {
			continue
		}
		if p, ok := snapshotLocked(s); ok {
			list = append(list, p)
		}
	}
	e.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].CourseCode < list[j].CourseCode })
	return list
}

func snapshotLocked(s courseState) (entities.DownloadProgress, bool) {
	switch st := s.(type) {
	case *activeState:
		return st.progress, true
	case queuedState:
		return entities.DownloadProgress{
			CourseID:   st.course.ID,
			CourseCode: st.course.CourseCode,
			Title:      st.course.Title,
			Status:     entities.DownloadStatusQueued,
			TotalBytes: st.course.FileSize,
			StartedAt:  st.queuedAt,
		}, true
	case terminalState:
		return st.progress, true
	}
	return entities.DownloadProgress{}, false
}

func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

func (e *Engine) QueuedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Engine) IsDownloading(courseID string) bool {
	return e.State(courseID) == StateActive
}

func (e *Engine) IsInQueue(courseID string) bool {
	return e.State(courseID) == StateQueued
}

func (e *Engine) State(courseID string) StateKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.states[courseID]; ok {
		return s.kind()
	}
	return StateIdle
}

// MaxConcurrent returns the slot count.
func (e *Engine) MaxConcurrent() int {
	return e.maxConcurrent
}

func (e *Engine) coursesDir() string {
	return filepath.Join(e.dir, coursesSubdir)
}

// CoursePath returns the deterministic file path for a course code.
func (e *Engine) CoursePath(courseCode string) string {
	name := utils.SanitizeFilename(entities.NormalizeCourseCode(courseCode))
	return filepath.Join(e.coursesDir(), name+".pdf")
}

// DirectorySize walks the download directory and sums file sizes. A missing
// directory has size zero.
func (e *Engine) DirectorySize() (int64, error) {
	var total int64
	err := filepath.WalkDir(e.coursesDir(), func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
