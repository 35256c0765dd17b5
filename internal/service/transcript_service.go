package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/scrud-api/internal/models"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
	"github.com/noah-isme/scrud-api/pkg/export"
	"github.com/noah-isme/scrud-api/pkg/jobs"
	"github.com/noah-isme/scrud-api/pkg/storage"
)

const transcriptJobKind = "transcript"

type transcriptJobStore interface {
	Save(ctx context.Context, job *models.TranscriptJob) error
	FindByID(ctx context.Context, id string) (*models.TranscriptJob, error)
}

type transcriptStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Sweep(ttl time.Duration) ([]string, error)
}

type transcriptRenderer interface {
	Render(format string, data export.Dataset) (export.Document, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Student, error)
}

type weightedAverager interface {
	WeightedAverage(ctx context.Context, studentID int64, level models.Level) (*models.WeightedAverage, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

func errTranscriptsDisabled() error {
	return appErrors.Clone(appErrors.ErrUnavailable, "transcript generation is disabled")
}

// TranscriptConfig tunes transcript retention.
type TranscriptConfig struct {
	ResultTTL time.Duration
}

// TranscriptDownload is an opened transcript file ready to stream.
type TranscriptDownload struct {
	File        *os.File
	FileName    string
	ContentType string
}

// TranscriptService generates grade transcripts asynchronously.
type TranscriptService struct {
	jobs      transcriptJobStore
	students  studentReader
	grades    weightedAverager
	storage   transcriptStorage
	renderer  transcriptRenderer
	signer    *storage.Signer
	queue     jobEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       TranscriptConfig
}

// NewTranscriptService constructs a TranscriptService. Attach a queue with
// AttachQueue before accepting requests.
func NewTranscriptService(jobStore transcriptJobStore, students studentReader, grades weightedAverager, files transcriptStorage, renderer transcriptRenderer, signer *storage.Signer, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg TranscriptConfig) *TranscriptService {
	if renderer == nil {
		renderer = export.NewRegistry()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &TranscriptService{
		jobs:      jobStore,
		students:  students,
		grades:    grades,
		storage:   files,
		renderer:  renderer,
		signer:    signer,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// AttachQueue sets the queue that runs Process.
func (s *TranscriptService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Request records a transcript job for the student and queues it.
func (s *TranscriptService) Request(ctx context.Context, requestedBy, studentID int64, req models.TranscriptRequest) (*models.TranscriptJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid transcript request")
	}
	level, err := parseLevel(req.Level)
	if err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, errTranscriptsDisabled()
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, storeError(err, "student not found", "load student")
	}

	job := &models.TranscriptJob{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		Level:       level,
		Format:      req.Format,
		Status:      models.TranscriptStatusQueued,
		RequestedBy: requestedBy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record transcript job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Kind: transcriptJobKind}); err != nil {
		s.finish(ctx, job, models.TranscriptStatusFailed, err.Error())
		return nil, appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "transcript queue is busy")
	}
	s.logger.Info("transcript queued", zap.String("job_id", job.ID), zap.Int64("student_id", studentID))
	return job, nil
}

// Get returns a transcript job.
func (s *TranscriptService) Get(ctx context.Context, id string) (*models.TranscriptJob, error) {
	if s.queue == nil {
		return nil, errTranscriptsDisabled()
	}
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "transcript job not found", "load transcript job")
	}
	return job, nil
}

// Process renders one queued transcript. It is the queue handler.
func (s *TranscriptService) Process(ctx context.Context, queued jobs.Job) error {
	job, err := s.jobs.FindByID(ctx, queued.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("transcript job vanished", zap.String("job_id", queued.ID))
			return nil
		}
		return err
	}
	job.Status = models.TranscriptStatusRunning
	if err := s.jobs.Save(ctx, job); err != nil {
		return err
	}

	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		return err
	}
	doc, err := s.renderer.Render(string(job.Format), dataset)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%d/%s/%s.%s", job.StudentID, job.Level, job.ID, doc.Extension)
	path, err := s.storage.Save(name, doc.Data)
	if err != nil {
		return err
	}
	token, expiresAt, err := s.signer.Sign(job.ID, path)
	if err != nil {
		return err
	}

	job.ResultPath = path
	job.DownloadToken = token
	job.ExpiresAt = &expiresAt
	job.Error = ""
	s.finish(ctx, job, models.TranscriptStatusCompleted, "")
	return nil
}

// GiveUp marks a job failed once the queue stops retrying it.
func (s *TranscriptService) GiveUp(ctx context.Context, queued jobs.Job, cause error) {
	job, err := s.jobs.FindByID(ctx, queued.ID)
	if err != nil {
		s.logger.Error("failed to load transcript job", zap.String("job_id", queued.ID), zap.Error(err))
		return
	}
	s.finish(ctx, job, models.TranscriptStatusFailed, cause.Error())
}

// Download verifies a download token and opens the transcript it grants.
func (s *TranscriptService) Download(ctx context.Context, token string) (*TranscriptDownload, error) {
	if s.queue == nil {
		return nil, errTranscriptsDisabled()
	}
	grant, err := s.signer.Verify(token)
	switch {
	case errors.Is(err, storage.ErrTokenExpired):
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
	case err != nil:
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	job, err := s.Get(ctx, grant.JobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.TranscriptStatusCompleted || job.ResultPath != grant.Path {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "transcript not available")
	}
	file, err := s.storage.Open(grant.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "transcript file missing")
	}
	return &TranscriptDownload{
		File:        file,
		FileName:    fmt.Sprintf("transcript-%d-%s.%s", job.StudentID, job.Level, job.Format),
		ContentType: export.ContentType(string(job.Format)),
	}, nil
}

// Sweep deletes stored transcripts older than the result TTL.
func (s *TranscriptService) Sweep() ([]string, error) {
	removed, err := s.storage.Sweep(s.cfg.ResultTTL)
	if err != nil {
		s.logger.Warn("transcript sweep failed", zap.Error(err))
	}
	if len(removed) > 0 {
		s.logger.Info("expired transcripts removed", zap.Int("count", len(removed)))
	}
	return removed, err
}

func (s *TranscriptService) finish(ctx context.Context, job *models.TranscriptJob, status models.TranscriptStatus, message string) {
	now := time.Now().UTC()
	job.Status = status
	job.Error = message
	job.FinishedAt = &now
	if err := s.jobs.Save(ctx, job); err != nil {
		s.logger.Error("failed to update transcript job", zap.String("job_id", job.ID), zap.Error(err))
	}
	s.metrics.RecordTranscript(string(status))
}

func (s *TranscriptService) buildDataset(ctx context.Context, job *models.TranscriptJob) (export.Dataset, error) {
	student, err := s.students.FindByID(ctx, job.StudentID)
	if err != nil {
		return export.Dataset{}, fmt.Errorf("load student %d: %w", job.StudentID, err)
	}
	grades, err := s.grades.WeightedAverage(ctx, job.StudentID, job.Level)
	if err != nil {
		return export.Dataset{}, fmt.Errorf("compute grades: %w", err)
	}

	rows := make([][]string, 0, len(grades.Details))
	for _, d := range grades.Details {
		rows = append(rows, []string{
			d.CourseName,
			formatNumber(d.ECTS),
			formatNumber(d.Score),
			formatNumber(d.WeightedScore),
		})
	}
	average := "n/a"
	if grades.Average != nil {
		average = strconv.FormatFloat(*grades.Average, 'f', 2, 64)
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Transcript %s (%s)", student.FullName(), job.Level.DisplayName()),
		Headers: []string{"Course", "ECTS", "Score", "Weighted"},
		Rows:    rows,
		Summary: []string{
			"Total ECTS: " + formatNumber(grades.TotalECTS),
			"Weighted average: " + average,
		},
	}, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
