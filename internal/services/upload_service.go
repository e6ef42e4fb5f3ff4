package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/sheetcharts-be/internal/apperr"
	"github.com/isdelr/sheetcharts-be/internal/models"
)

// UploadServiceProvider defines the interface for upload services.
type UploadServiceProvider interface {
	CreateUpload(ctx context.Context, filename string, columns []string, rows []models.Row, ownerID string) (models.Upload, error)
	GetUpload(ctx context.Context, uploadID, ownerID string) (models.Upload, error)
	GetUploadByID(ctx context.Context, uploadID string) (models.Upload, error)
	ListUploads(ctx context.Context, ownerID string) ([]models.Upload, error)
	LatestUpload(ctx context.Context, ownerID string) (models.Upload, error)
	AppendVisualization(ctx context.Context, uploadID, ownerID string, viz models.Visualization) ([]models.Visualization, error)
}

// UploadService stores uploads and the visualizations attached to them.
type UploadService struct {
	db     *sql.DB
	events EventRecorder
}

// NewUploadService creates a new UploadService. events may be nil.
func NewUploadService(db *sql.DB, events EventRecorder) *UploadService {
	return &UploadService{db: db, events: events}
}

var errUploadNotFound = apperr.NotFound("Upload not found")

const uploadColumns = "id, filename, user_id, uploaded_at, columns_json, data_json"

const vizColumns = "v.id, v.upload_id, v.type, v.data_json, v.x_axis, v.y_axis, v.image, v.created_at"

func scanUpload(row interface{ Scan(...any) error }) (models.Upload, error) {
	var u models.Upload
	if err := row.Scan(&u.ID, &u.Filename, &u.UserID, &u.UploadedAt, &u.ColumnsJSON, &u.DataJSON); err != nil {
		return models.Upload{}, err
	}
	u.UploadedAt = u.UploadedAt.UTC()
	return u, nil
}

// CreateUpload persists a normalized sheet under a new id.
func (s *UploadService) CreateUpload(ctx context.Context, filename string, columns []string, rows []models.Row, ownerID string) (models.Upload, error) {
	if strings.TrimSpace(ownerID) == "" {
		return models.Upload{}, apperr.Validation("Upload owner is required")
	}
	upload := models.Upload{
		ID:             uuid.New().String(),
		Filename:       filename,
		UserID:         ownerID,
		UploadedAt:     time.Now().UTC(),
		Columns:        columns,
		Data:           rows,
		Visualizations: []models.Visualization{},
	}
	if err := upload.PrepareForSave(); err != nil {
		return models.Upload{}, err
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO uploads ("+uploadColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		upload.ID, upload.Filename, upload.UserID, upload.UploadedAt, upload.ColumnsJSON, upload.DataJSON)
	if err != nil {
		return models.Upload{}, fmt.Errorf("insert upload: %w", err)
	}

	recordEvent(ctx, s.events, "upload.create", "info",
		fmt.Sprintf("Uploaded '%s' with %d rows", upload.Filename, len(upload.Data)), ownerID)
	return upload, nil
}

// GetUpload returns the upload only if ownerID owns it. Anything else,
// including a malformed id, is reported as not found.
func (s *UploadService) GetUpload(ctx context.Context, uploadID, ownerID string) (models.Upload, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+uploadColumns+" FROM uploads WHERE id = ? AND user_id = ?", uploadID, ownerID)
	return s.loadUpload(ctx, row)
}

// GetUploadByID returns an upload regardless of owner.
func (s *UploadService) GetUploadByID(ctx context.Context, uploadID string) (models.Upload, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+uploadColumns+" FROM uploads WHERE id = ?", uploadID)
	return s.loadUpload(ctx, row)
}

// LatestUpload returns the owner's most recent upload.
func (s *UploadService) LatestUpload(ctx context.Context, ownerID string) (models.Upload, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+uploadColumns+" FROM uploads WHERE user_id = ? ORDER BY uploaded_at DESC, rowid DESC LIMIT 1", ownerID)
	return s.loadUpload(ctx, row)
}

func (s *UploadService) loadUpload(ctx context.Context, row *sql.Row) (models.Upload, error) {
	upload, err := scanUpload(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Upload{}, errUploadNotFound
		}
		return models.Upload{}, fmt.Errorf("get upload: %w", err)
	}

	upload.Visualizations, err = s.listVisualizations(ctx, upload.ID)
	if err != nil {
		return models.Upload{}, err
	}
	if err := upload.PrepareForAPI(); err != nil {
		return models.Upload{}, err
	}
	return upload, nil
}

// ListUploads returns the owner's uploads, newest first, each with its
// visualizations.
func (s *UploadService) ListUploads(ctx context.Context, ownerID string) ([]models.Upload, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+uploadColumns+" FROM uploads WHERE user_id = ? ORDER BY uploaded_at DESC, rowid DESC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}

	uploads := []models.Upload{}
	index := map[string]int{}
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		index[u.ID] = len(uploads)
		uploads = append(uploads, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// The pool holds one connection, so visualizations are read only after
	// the upload cursor is closed.
	vizRows, err := s.db.QueryContext(ctx,
		"SELECT "+vizColumns+" FROM visualizations v JOIN uploads u ON u.id = v.upload_id WHERE u.user_id = ? ORDER BY v.seq", ownerID)
	if err != nil {
		return nil, fmt.Errorf("query visualizations: %w", err)
	}
	defer vizRows.Close()
	for vizRows.Next() {
		v, uploadID, err := scanVisualization(vizRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[uploadID]; ok {
			uploads[i].Visualizations = append(uploads[i].Visualizations, v)
		}
	}
	if err := vizRows.Err(); err != nil {
		return nil, err
	}

	for i := range uploads {
		if err := uploads[i].PrepareForAPI(); err != nil {
			return nil, err
		}
	}
	return uploads, nil
}

// AppendVisualization adds viz to the end of the upload's visualization
// list in a single statement, so concurrent appends never overwrite each
// other. It returns the full list in insertion order.
func (s *UploadService) AppendVisualization(ctx context.Context, uploadID, ownerID string, viz models.Visualization) ([]models.Visualization, error) {
	if viz.ID == "" {
		viz.ID = uuid.New().String()
	}
	if viz.CreatedAt.IsZero() {
		viz.CreatedAt = time.Now().UTC()
	}
	data := string(viz.Data)
	if data == "" {
		data = "[]"
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO visualizations (id, upload_id, type, data_json, x_axis, y_axis, image, created_at)
SELECT ?, id, ?, ?, ?, ?, ?, ? FROM uploads WHERE id = ? AND user_id = ?`,
		viz.ID, string(viz.Type), data, viz.XAxis, viz.YAxis, viz.Image, viz.CreatedAt.UTC(), uploadID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert visualization: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("insert visualization: %w", err)
	} else if n == 0 {
		return nil, errUploadNotFound
	}

	return s.listVisualizations(ctx, uploadID)
}

func (s *UploadService) listVisualizations(ctx context.Context, uploadID string) ([]models.Visualization, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+vizColumns+" FROM visualizations v WHERE v.upload_id = ? ORDER BY v.seq", uploadID)
	if err != nil {
		return nil, fmt.Errorf("query visualizations: %w", err)
	}
	defer rows.Close()

	out := []models.Visualization{}
	for rows.Next() {
		v, _, err := scanVisualization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanVisualization(rows *sql.Rows) (models.Visualization, string, error) {
	var v models.Visualization
	var uploadID, data string
	if err := rows.Scan(&v.ID, &uploadID, &v.Type, &data, &v.XAxis, &v.YAxis, &v.Image, &v.CreatedAt); err != nil {
		return models.Visualization{}, "", fmt.Errorf("scan visualization: %w", err)
	}
	v.Data = []byte(data)
	v.CreatedAt = v.CreatedAt.UTC()
	return v, uploadID, nil
}
