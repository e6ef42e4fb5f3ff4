package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/isdelr/sheetcharts-be/internal/apperr"
	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsEmptyStore(t *testing.T) {
	f := newFixture(t)

	stats, err := f.stats.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalUsersLoggedIn)
	assert.Equal(t, 0, stats.TotalFilesUploaded)
	assert.NotNil(t, stats.MostUsedChartTypes)
	assert.Empty(t, stats.MostUsedChartTypes)
}

func TestStatsCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.CreateUser(ctx, "logged", "secret1", models.RoleUser)
	require.NoError(t, err)
	_, err = f.users.CreateUser(ctx, "idle", "secret1", models.RoleUser)
	require.NoError(t, err)
	_, err = f.users.Authenticate(ctx, "logged", "secret1")
	require.NoError(t, err)

	u := newUpload(t, f, "owner-1")
	newUpload(t, f, "owner-2")

	// pie and line tie at two; pie was saved first.
	order := []models.ChartType{
		models.Chart2DPie, models.Chart2DLine, models.Chart2DBar, models.Chart2DBar, models.Chart2DBar,
		models.Chart2DLine, models.Chart2DPie, models.Chart2DScatter, models.Chart3DBar, models.Chart3DLine,
	}
	for _, ct := range order {
		_, err := f.uploads.AppendVisualization(ctx, u.ID, "owner-1", models.Visualization{Type: ct, XAxis: "Month", YAxis: "Sales"})
		require.NoError(t, err)
	}

	stats, err := f.stats.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalUsersLoggedIn)
	assert.Equal(t, 2, stats.TotalFilesUploaded)
	assert.Equal(t, []models.ChartTypeCount{
		{Type: "2d-bar", Count: 3},
		{Type: "2d-pie", Count: 2},
		{Type: "2d-line", Count: 2},
		{Type: "2d-scatter", Count: 1},
		{Type: "3d-bar", Count: 1},
	}, stats.MostUsedChartTypes)
}

func TestStatsPropagatesQueryErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE last_login IS NOT NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM uploads`).
		WillReturnError(errors.New("disk I/O error"))

	_, err = NewStatsService(db).GetStats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count uploads")
	assert.Equal(t, apperr.InternalKind, apperr.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
