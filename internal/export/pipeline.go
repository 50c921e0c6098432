package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/JonMunkholm/bookshelf/internal/logging"
)

// Stage names one step of an export request. A request moves through
// Validating, Encoding, Converting, Archiving and Delivering in that order
// and ends in Done or Failed.
type Stage string

const (
	StageValidating Stage = "validating"
	StageEncoding   Stage = "encoding"
	StageConverting Stage = "converting"
	StageArchiving  Stage = "archiving"
	StageDelivering Stage = "delivering"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// Outcome labels used for metrics and logs.
const (
	outcomeDone    = "done"
	outcomeFailed  = "failed"
	outcomeTimeout = "timeout"
	outcomeInvalid = "invalid"
	outcomeBusy    = "busy"
)

// DefaultTimeout bounds a whole export, delivery included.
const DefaultTimeout = 2 * time.Minute

// Exporter runs the export pipeline against a record source.
type Exporter struct {
	source  Source
	tempDir string
	timeout time.Duration
	limiter *Limiter
	metrics *Metrics
	now     func() time.Time
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithTimeout sets the maximum duration of one export.
func WithTimeout(d time.Duration) Option {
	return func(e *Exporter) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLimiter bounds concurrent exports.
func WithLimiter(l *Limiter) Option {
	return func(e *Exporter) { e.limiter = l }
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Exporter) { e.metrics = m }
}

// NewExporter creates an Exporter that writes workspaces under tempDir.
func NewExporter(source Source, tempDir string, opts ...Option) *Exporter {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	e := &Exporter{
		source:  source,
		tempDir: tempDir,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TempDir returns the directory workspaces are created in.
func (e *Exporter) TempDir() string {
	return e.tempDir
}

// Limiter returns the configured limiter, or nil.
func (e *Exporter) Limiter() *Limiter {
	return e.limiter
}

// Prepare validates the column flags, then encodes, converts and archives
// the current records. On success the returned Download owns the sealed
// archive and must be delivered or closed; on failure every artifact has
// already been removed.
func (e *Exporter) Prepare(ctx context.Context, includeTitle, includeAuthor bool) (*Download, error) {
	sel, err := SelectColumns(includeTitle, includeAuthor)
	if err != nil {
		e.metrics.rejected(sel, outcomeInvalid)
		return nil, err
	}

	if e.limiter != nil {
		if err := e.limiter.Acquire(ctx); err != nil {
			e.metrics.rejected(sel, outcomeBusy)
			return nil, err
		}
	}

	started := e.now()
	ws, err := NewWorkspace(e.tempDir)
	if err != nil {
		if e.limiter != nil {
			e.limiter.Release()
		}
		e.metrics.rejected(sel, outcomeFailed)
		return nil, ioErr(StageEncoding, "create workspace", "", err)
	}
	e.metrics.started()

	d := &Download{
		ID:        ws.ID,
		Name:      ArchiveFileName,
		Selection: sel,
		exporter:  e,
		ws:        ws,
		started:   started,
		deadline:  started.Add(e.timeout),
		stage:     StageValidating,
		logger:    logging.WithFields(ctx, "export_id", ws.ID, "selection", sel.String()),
	}

	runCtx, cancel := context.WithDeadline(ctx, d.deadline)
	defer cancel()

	if err := e.build(runCtx, d); err != nil {
		return nil, d.abort(err)
	}
	return d, nil
}

// build runs the encoding, converting and archiving stages. Each stage
// starts only after the previous stage's file is closed.
func (e *Exporter) build(ctx context.Context, d *Download) error {
	csvPath := d.ws.Path(TabularFileName)
	xmlPath := d.ws.Path(HierarchicalFileName)
	zipPath := d.ws.Path(ArchiveFileName)

	d.enter(StageEncoding)
	records, err := e.source.FetchAll(ctx)
	if err != nil {
		return ioErr(StageEncoding, "fetch records", "", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := EncodeCSV(csvPath, d.Selection, records); err != nil {
		return err
	}
	d.Rows = len(records)

	if err := d.checkpoint(ctx, StageConverting); err != nil {
		return err
	}
	items, err := ConvertCSVToXML(csvPath, xmlPath)
	if err != nil {
		return err
	}
	if items != d.Rows {
		return &FormatError{Line: 0, Reason: fmt.Sprintf("converted %d items from %d records", items, d.Rows)}
	}

	if err := d.checkpoint(ctx, StageArchiving); err != nil {
		return err
	}
	if err := Archive(zipPath, csvPath, xmlPath); err != nil {
		return err
	}

	f, err := os.Open(zipPath)
	if err != nil {
		return ioErr(StageArchiving, "open", zipPath, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return ioErr(StageArchiving, "stat", zipPath, err)
	}
	d.file = f
	d.Size = info.Size()

	return d.checkpoint(ctx, StageDelivering)
}

// Download is a sealed archive waiting to be streamed. Closing it deletes
// the archive and its workspace and releases the export slot.
type Download struct {
	ID        string
	Name      string
	Size      int64
	Rows      int
	Selection Selection

	exporter *Exporter
	ws       *Workspace
	file     *os.File
	started  time.Time
	deadline time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	stage   Stage
	closed  bool
	outcome string
}

// Stage returns the stage the export is currently in.
func (d *Download) Stage() Stage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stage
}

// Outcome returns how the export ended, or "" while it is still open.
func (d *Download) Outcome() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outcome
}

// Deadline returns the time by which delivery must finish.
func (d *Download) Deadline() time.Time {
	return d.deadline
}

func (d *Download) enter(stage Stage) {
	d.mu.Lock()
	d.stage = stage
	d.mu.Unlock()
	d.logger.Debug("export stage", "stage", stage)
}

func (d *Download) checkpoint(ctx context.Context, next Stage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.enter(next)
	return nil
}

// classify turns deadline failures into TimeoutError, or a plain wrapped
// cancellation, tagged with the current stage. Any other error is returned
// as is, even when the deadline passed while it was being produced.
func (d *Download) classify(err error) error {
	stage := d.Stage()
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Stage: stage, Timeout: d.exporter.timeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("export %s: %w", stage, err)
	}
	return err
}

// abort records a failure, removes every artifact and returns the
// classified error.
func (d *Download) abort(err error) error {
	err = d.classify(err)

	outcome := outcomeFailed
	var te *TimeoutError
	if errors.As(err, &te) {
		outcome = outcomeTimeout
	}

	d.logger.Error("export failed", "stage", d.Stage(), "error", err)
	if cerr := d.finish(outcome); cerr != nil {
		d.logger.Error("export cleanup failed", "error", cerr)
	}
	return err
}

// Close releases the download without marking it delivered.
func (d *Download) Close() error {
	return d.finish(outcomeFailed)
}

// finish runs cleanup once; the first outcome wins. A done outcome is
// downgraded to failed when cleanup does not succeed.
func (d *Download) finish(outcome string) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	var errs []error
	if d.file != nil {
		if err := d.file.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.ws.Remove(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 && outcome == outcomeDone {
		outcome = outcomeFailed
	}

	d.mu.Lock()
	d.outcome = outcome
	if outcome == outcomeDone {
		d.stage = StageDone
	} else {
		d.stage = StageFailed
	}
	d.mu.Unlock()

	e := d.exporter
	if e.limiter != nil {
		e.limiter.Release()
	}
	elapsed := e.now().Sub(d.started)
	e.metrics.finished(d.Selection, outcome, d.Rows, elapsed)

	d.logger.Info("export finished",
		"outcome", outcome,
		"rows", d.Rows,
		"bytes", d.Size,
		"duration_ms", elapsed.Milliseconds(),
	)

	if len(errs) > 0 {
		return ioErr(StageDelivering, "cleanup", d.ws.Dir, errors.Join(errs...))
	}
	return nil
}
