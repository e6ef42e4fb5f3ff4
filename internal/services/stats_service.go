package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/isdelr/sheetcharts-be/internal/models"
)

const topChartTypes = 5

// StatsServiceProvider defines the interface for usage statistics.
type StatsServiceProvider interface {
	GetStats(ctx context.Context) (models.Stats, error)
}

// StatsService computes admin usage counters.
type StatsService struct {
	db *sql.DB
}

// NewStatsService creates a new StatsService.
func NewStatsService(db *sql.DB) *StatsService {
	return &StatsService{db: db}
}

// GetStats counts users who have ever logged in, all uploads, and the most
// used chart types. Ties between chart types go to the one saved first.
func (s *StatsService) GetStats(ctx context.Context) (models.Stats, error) {
	stats := models.Stats{MostUsedChartTypes: []models.ChartTypeCount{}}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE last_login IS NOT NULL").Scan(&stats.TotalUsersLoggedIn); err != nil {
		return models.Stats{}, fmt.Errorf("count users: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM uploads").Scan(&stats.TotalFilesUploaded); err != nil {
		return models.Stats{}, fmt.Errorf("count uploads: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT type, COUNT(*) AS n, MIN(seq) AS first_seq
FROM visualizations
GROUP BY type
ORDER BY n DESC, first_seq ASC
LIMIT ?`, topChartTypes)
	if err != nil {
		return models.Stats{}, fmt.Errorf("count chart types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.ChartTypeCount
		var firstSeq int64
		if err := rows.Scan(&c.Type, &c.Count, &firstSeq); err != nil {
			return models.Stats{}, fmt.Errorf("scan chart type: %w", err)
		}
		stats.MostUsedChartTypes = append(stats.MostUsedChartTypes, c)
	}
	return stats, rows.Err()
}
