package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/scrud-api/internal/models"
)

const transcriptKeyPrefix = "transcripts:job:"

// TranscriptRepository keeps transcript job records in Redis with a TTL.
type TranscriptRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTranscriptRepository constructs a TranscriptRepository.
func NewTranscriptRepository(client *redis.Client, ttl time.Duration) *TranscriptRepository {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &TranscriptRepository{client: client, ttl: ttl}
}

func transcriptKey(id string) string {
	return transcriptKeyPrefix + id
}

// Save stores or replaces the job record.
func (r *TranscriptRepository) Save(ctx context.Context, job *models.TranscriptJob) error {
	payload, err := json.Marshal(transcriptRecord{TranscriptJob: *job, ResultPath: job.ResultPath})
	if err != nil {
		return fmt.Errorf("marshal transcript job: %w", err)
	}
	if err := r.client.Set(ctx, transcriptKey(job.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("save transcript job %s: %w", job.ID, err)
	}
	return nil
}

// FindByID loads the job record or returns sql.ErrNoRows.
func (r *TranscriptRepository) FindByID(ctx context.Context, id string) (*models.TranscriptJob, error) {
	raw, err := r.client.Get(ctx, transcriptKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("load transcript job %s: %w", id, err)
	}
	var record transcriptRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode transcript job %s: %w", id, err)
	}
	job := record.TranscriptJob
	job.ResultPath = record.ResultPath
	return &job, nil
}

// transcriptRecord persists the fields the API hides.
type transcriptRecord struct {
	models.TranscriptJob
	ResultPath string `json:"result_path"`
}
