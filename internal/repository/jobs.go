package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/constants"
	"github.com/cuongtm2012/SecureDocumentIntelligence-sub000/internal/pipeline"
)

// Job is one row in processing_job.
type Job struct {
	ID          uuid.UUID
	Filename    string
	Path        string
	MIMEType    string
	Language    string
	Status      constants.JobStatus
	Method      constants.Method
	Confidence  float64
	PageCount   int
	Text        string
	ResultJSON  []byte
	ErrorCode   string
	ErrorDetail string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	FinishedAt  *time.Time
}

// JobRepository is the persistence contract used by the worker.
type JobRepository interface {
	Start(ctx context.Context, filename, path, mimeType, language string) (*Job, error)
	MarkStatus(ctx context.Context, id uuid.UUID, status constants.JobStatus) error
	FinishSuccess(ctx context.Context, id uuid.UUID, res pipeline.ProcessingResult) error
	FinishFailure(ctx context.Context, id uuid.UUID, code, detail string) error
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
	ListCompleted(ctx context.Context, limit int) ([]*Job, error)
}

type pgJobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) JobRepository {
	return &pgJobRepository{pool: pool}
}

const jobColumns = `id, filename, path, mime_type, language, status, method,
	confidence, page_count, extracted_text, result_json,
	error_code, error_detail, created_at, updated_at, finished_at`

func (r *pgJobRepository) Start(ctx context.Context, filename, path, mimeType, language string) (*Job, error) {
	id := uuid.New()
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO processing_job
			(id, filename, path, mime_type, language, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		id, filename, path, mimeType, language, constants.JobStatusPending, now)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return &Job{
		ID: id, Filename: filename, Path: path, MIMEType: mimeType,
		Language: language, Status: constants.JobStatusPending,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

func (r *pgJobRepository) MarkStatus(ctx context.Context, id uuid.UUID, status constants.JobStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE processing_job SET status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found", id)
	}
	return nil
}

func (r *pgJobRepository) FinishSuccess(ctx context.Context, id uuid.UUID, res pipeline.ProcessingResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE processing_job SET
			status = $2, method = $3, confidence = $4, page_count = $5,
			extracted_text = $6, result_json = $7,
			updated_at = now(), finished_at = now()
		WHERE id = $1`,
		id, constants.JobStatusCompleted, res.ProcessingMethod,
		res.Confidence, res.PageCount, res.ExtractedText, payload)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found", id)
	}
	return nil
}

func (r *pgJobRepository) FinishFailure(ctx context.Context, id uuid.UUID, code, detail string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE processing_job SET
			status = $2, error_code = $3, error_detail = $4,
			updated_at = now(), finished_at = now()
		WHERE id = $1`,
		id, constants.JobStatusFailed, code, detail)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found", id)
	}
	return nil
}

func (r *pgJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM processing_job WHERE id = $1`, id)
	return scanJob(row)
}

func (r *pgJobRepository) ListCompleted(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM processing_job
		WHERE status = $1
		ORDER BY finished_at DESC
		LIMIT $2`, constants.JobStatusCompleted, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	var method, text, errCode, errDetail *string
	var confidence *float64
	var pageCount *int
	if err := row.Scan(
		&j.ID, &j.Filename, &j.Path, &j.MIMEType, &j.Language, &j.Status,
		&method, &confidence, &pageCount, &text, &j.ResultJSON,
		&errCode, &errDetail, &j.CreatedAt, &j.UpdatedAt, &j.FinishedAt,
	); err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	if method != nil {
		j.Method = constants.Method(*method)
	}
	if confidence != nil {
		j.Confidence = *confidence
	}
	if pageCount != nil {
		j.PageCount = *pageCount
	}
	if text != nil {
		j.Text = *text
	}
	if errCode != nil {
		j.ErrorCode = *errCode
	}
	if errDetail != nil {
		j.ErrorDetail = *errDetail
	}
	return &j, nil
}
