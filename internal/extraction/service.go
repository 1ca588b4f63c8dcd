// Package extraction turns uploaded prayer timetables (CSV, images, PDFs)
// into validated daily prayer times.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/castlemilk/salahtime/backend/internal/model"
)

// Method identifies which path produced an extraction.
type Method string

const (
	MethodCSV Method = "csv"
	MethodAI  Method = "ai"
	MethodOCR Method = "ocr"
)

// User-facing status and warning text.
const (
	aiFallbackWarning  = "AI extraction failed, trying traditional OCR..."
	emptyResultStatus  = "Could not extract prayer times"
	emptyResultMessage = "Could not extract prayer times automatically. Please review the extracted text below and try a clearer image or CSV format."
	mosqueNameRequired = "Please enter the mosque name"
)

// VisionClient reads a timetable image or PDF with a multimodal model.
type VisionClient interface {
	IsAvailable() bool
	Extract(ctx context.Context, data []byte, mimeType string, onProgress ProgressFunc) ([]model.DailyPrayerTime, error)
}

// TextRecognizer produces a plain-text transcript of an image.
type TextRecognizer interface {
	Available() bool
	Recognize(ctx context.Context, image []byte, onProgress ProgressFunc) (string, error)
}

// TimetableSaver persists extracted timetables.
type TimetableSaver interface {
	SaveTimetable(ctx context.Context, t *model.Timetable) error
}

// SourceArchiver keeps a copy of the uploaded file and returns its URL.
type SourceArchiver interface {
	Archive(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// TimetablePublisher pushes a saved timetable to display screens.
type TimetablePublisher interface {
	Publish(ctx context.Context, t *model.Timetable) error
}

// Config holds the collaborators of the extraction service. Any of them may
// be nil; the corresponding step is skipped.
type Config struct {
	Vision     VisionClient
	Recognizer TextRecognizer
	Parser     *TableParser
	Store      TimetableSaver
	Archive    SourceArchiver
	Publisher  TimetablePublisher
	Metrics    *Metrics
	Now        func() time.Time
	JobTTL     time.Duration
}

// Service is the extraction orchestrator.
type Service struct {
	vision     VisionClient
	recognizer TextRecognizer
	parser     *TableParser
	store      TimetableSaver
	archive    SourceArchiver
	publisher  TimetablePublisher
	metrics    *Metrics
	now        func() time.Time

	jobs       *JobStore
	jobsCtx    context.Context
	cancelJobs context.CancelFunc
}

// NewService creates a new extraction service.
func NewService(cfg Config) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	parser := cfg.Parser
	if parser == nil {
		parser = NewTableParser(now)
	}
	ttl := cfg.JobTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		vision:     cfg.Vision,
		recognizer: cfg.Recognizer,
		parser:     parser,
		store:      cfg.Store,
		archive:    cfg.Archive,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		now:        now,
		jobs:       NewJobStore(ttl),
		jobsCtx:    ctx,
		cancelJobs: cancel,
	}
}

// Close cancels running async jobs and stops job cleanup.
func (s *Service) Close() {
	s.cancelJobs()
	s.jobs.Stop()
}

// IsAIAvailable reports whether the AI vision path is configured.
func (s *Service) IsAIAvailable() bool {
	return s.vision != nil && s.vision.IsAvailable()
}

// IsOCRAvailable reports whether a recognition engine is configured.
func (s *Service) IsOCRAvailable() bool {
	return s.recognizer != nil && s.recognizer.Available()
}

// Input is one uploaded timetable.
type Input struct {
	Data        []byte
	Filename    string
	ContentType string
	MosqueName  string
	UserID      string
	// DryRun extracts without archiving, saving or publishing.
	DryRun bool
}

// Result is the outcome of an extraction. Empty results are not errors:
// Empty is set and Transcript holds the recognized text for review.
type Result struct {
	Timetable  *model.Timetable        `json:"timetable,omitempty"`
	Days       []model.DailyPrayerTime `json:"days"`
	Method     Method                  `json:"method"`
	Strategy   string                  `json:"strategy,omitempty"`
	Transcript string                  `json:"transcript,omitempty"`
	Warnings   []string                `json:"warnings,omitempty"`
	Empty      bool                    `json:"empty"`
	Message    string                  `json:"message,omitempty"`
}

func (r *Result) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

func (s *Service) validate(in Input) error {
	if !in.DryRun && strings.TrimSpace(in.MosqueName) == "" {
		return &ExtractionError{Code: ErrInvalidRequest, Message: mosqueNameRequired}
	}
	if len(in.Data) == 0 {
		return &ExtractionError{Code: ErrInvalidDocument, Message: "file is empty"}
	}
	return nil
}

// Extract runs one extraction: CSV files are parsed directly; images and
// PDFs go to the AI vision model when configured and fall back to OCR and
// the heuristic parser when it fails. Non-empty results are saved unless
// in.DryRun is set.
func (s *Service) Extract(ctx context.Context, in Input, onProgress ProgressFunc) (*Result, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}

	started := time.Now()
	progress := monotonic(onProgress)
	kind, mimeType := ClassifyFile(in.Data, in.Filename, in.ContentType)

	logger := log.With().
		Str("component", "extraction").
		Str("filename", in.Filename).
		Str("kind", string(kind)).
		Str("mime", mimeType).
		Logger()
	logger.Info().Int("bytes", len(in.Data)).Msg("extraction started")

	result, err := s.extract(ctx, in.Data, kind, mimeType, progress)
	if err != nil {
		s.metrics.observe(errorMethod(err), outcomeError, started, 0)
		logger.Error().Err(err).Str("code", string(ErrorCode(err))).Msg("extraction failed")
		return nil, err
	}

	if len(result.Days) == 0 {
		result.Days = []model.DailyPrayerTime{}
		result.Empty = true
		result.Message = emptyResultMessage
		progress.report(emptyResultStatus, 1.0)
		s.metrics.observe(result.Method, outcomeEmpty, started, 0)
		logger.Warn().
			Str("method", string(result.Method)).
			Int("transcript_chars", len(result.Transcript)).
			Msg("no prayer times found")
		logger.Debug().Str("transcript", result.Transcript).Msg("unparsed transcript")
		return result, nil
	}

	for _, day := range result.Days {
		if bad := InvalidIqamaTimes(day.PrayerTimeSet); len(bad) > 0 {
			result.warn(fmt.Sprintf("%s: malformed iqama time for %s", day.Date, joinPrayers(bad)))
		}
	}

	if !in.DryRun {
		t, err := s.persist(ctx, in, mimeType, result)
		if err != nil {
			s.metrics.observe(result.Method, outcomeError, started, 0)
			logger.Error().Err(err).Msg("failed to save timetable")
			return nil, err
		}
		result.Timetable = t
	}

	progress.report("Extraction complete!", 1.0)
	s.metrics.observe(result.Method, outcomeSuccess, started, len(result.Days))
	logger.Info().
		Str("method", string(result.Method)).
		Str("strategy", result.Strategy).
		Int("days", len(result.Days)).
		Int("warnings", len(result.Warnings)).
		Dur("elapsed", time.Since(started)).
		Msg("extraction complete")
	return result, nil
}

func (s *Service) extract(ctx context.Context, data []byte, kind FileKind, mimeType string, progress ProgressFunc) (*Result, error) {
	switch kind {
	case KindCSV:
		progress.report("Reading CSV file...", 0.5)
		days := ParseCSV(string(data))
		progress.report("Parsing CSV data...", 0.8)
		return &Result{Days: days, Method: MethodCSV}, nil

	case KindImage, KindPDF:
		var warnings []string
		if s.IsAIAvailable() {
			result, err := s.extractWithAI(ctx, data, mimeType, progress)
			if err == nil {
				return result, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.metrics.aiFallback()
			log.Warn().
				Err(err).
				Str("component", "extraction").
				Str("code", string(ErrorCode(err))).
				Msg("AI extraction failed, falling back to OCR")
			progress.report(aiFallbackWarning, 0)
			warnings = append(warnings, aiFallbackWarning)
		}

		result, err := s.extractWithOCR(ctx, data, kind, progress)
		if err != nil {
			return nil, err
		}
		result.Warnings = append(warnings, result.Warnings...)
		return result, nil
	}

	return nil, &ExtractionError{
		Code:    ErrUnsupportedFormat,
		Message: fmt.Sprintf("unsupported file type %q; upload an image, PDF or CSV", mimeType),
	}
}

func (s *Service) extractWithAI(ctx context.Context, data []byte, mimeType string, progress ProgressFunc) (*Result, error) {
	days, err := s.vision.Extract(ctx, data, mimeType, progress.scaled(0, 0.9, ""))
	if err != nil {
		return nil, err
	}

	valid, rejected := ValidateDays(days)
	result := &Result{Days: valid, Method: MethodAI}
	if rejected > 0 {
		log.Warn().
			Str("component", "extraction").
			Int("rejected", rejected).
			Int("kept", len(valid)).
			Msg("dropped AI rows with malformed prayer times")
		result.warn(fmt.Sprintf("Discarded %d day(s) with incomplete or malformed prayer times", rejected))
	}
	if len(valid) == 0 {
		return nil, &ExtractionError{
			Code:    ErrMalformedResponse,
			Message: "AI response contained no valid prayer times",
			Method:  MethodAI,
		}
	}
	progress.report("Validating extracted times...", 0.95)
	return result, nil
}

func (s *Service) extractWithOCR(ctx context.Context, data []byte, kind FileKind, progress ProgressFunc) (*Result, error) {
	if kind == KindPDF {
		return nil, &ExtractionError{
			Code:    ErrUnsupportedFormat,
			Message: PDFConversionMessage,
			Method:  MethodOCR,
		}
	}
	if !s.IsOCRAvailable() {
		return nil, &ExtractionError{
			Code:    ErrRecognitionUnavailable,
			Message: "no recognition engine configured",
			Method:  MethodOCR,
		}
	}

	text, err := s.recognizer.Recognize(ctx, data, progress.scaled(0, 0.7, ""))
	if err != nil {
		return nil, err
	}

	progress.report("Parsing prayer times...", 0.8)
	days, strategy := s.parser.ParseWithStrategy(text)
	return &Result{
		Days:       days,
		Method:     MethodOCR,
		Strategy:   strategy,
		Transcript: text,
	}, nil
}

// persist archives the source file, saves the timetable and notifies
// displays. Archive and publish failures become warnings; a save failure is
// returned.
func (s *Service) persist(ctx context.Context, in Input, mimeType string, result *Result) (*model.Timetable, error) {
	now := s.now().UTC()
	t := &model.Timetable{
		ID:         uuid.New().String(),
		UserID:     in.UserID,
		MosqueName: strings.TrimSpace(in.MosqueName),
		CreatedAt:  now,
		UpdatedAt:  now,
		Times:      result.Days,
	}

	if s.archive != nil {
		url, err := s.archive.Archive(ctx, archiveName(t, in.Filename), mimeType, in.Data)
		if err != nil {
			log.Warn().Err(err).Str("component", "extraction").Str("timetable_id", t.ID).Msg("failed to archive source file")
			result.warn("Could not keep a copy of the uploaded file")
		} else {
			t.FileURL = url
		}
	}

	if s.store != nil {
		if err := s.store.SaveTimetable(ctx, t); err != nil {
			return nil, fmt.Errorf("save timetable: %w", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, t); err != nil {
			log.Warn().Err(err).Str("component", "extraction").Str("timetable_id", t.ID).Msg("failed to publish timetable")
			result.warn("Timetable saved but display screens could not be notified")
		}
	}
	return t, nil
}

func archiveName(t *model.Timetable, filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		base = "upload"
	}
	return path.Join(t.MosqueName, t.ID+"-"+base)
}

func joinPrayers(prayers []model.Prayer) string {
	names := make([]string, len(prayers))
	for i, p := range prayers {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func errorMethod(err error) Method {
	var extErr *ExtractionError
	if errors.As(err, &extErr) {
		return extErr.Method
	}
	return ""
}

// StartAsync validates the input and runs the extraction in the background,
// returning the job ID to poll with Job.
func (s *Service) StartAsync(in Input) (string, error) {
	if err := s.validate(in); err != nil {
		return "", err
	}

	id := uuid.New().String()
	if err := s.jobs.Create(NewJob(id, in.UserID, in.Filename, s.now())); err != nil {
		return "", err
	}

	go s.runJob(id, in)
	return id, nil
}

func (s *Service) runJob(id string, in Input) {
	update := func(fn func(*Job)) {
		if err := s.jobs.Update(id, fn); err != nil {
			log.Warn().Err(err).Str("component", "extraction").Str("job_id", id).Msg("failed to update job")
		}
	}

	update(func(j *Job) { j.Status = JobRunning })

	result, err := s.Extract(s.jobsCtx, in, func(p Progress) {
		update(func(j *Job) { j.Progress = p })
	})
	if err != nil {
		update(func(j *Job) {
			j.Status = JobFailed
			j.Error = err.Error()
			j.ErrorCode = ErrorCode(err)
		})
		return
	}
	update(func(j *Job) {
		j.Status = JobSucceeded
		j.Result = result
	})
}

// Job returns a snapshot of an async extraction.
func (s *Service) Job(id string) (Job, error) {
	return s.jobs.Get(id)
}
