package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/isdelr/sheetcharts-be/internal/database"
	"github.com/isdelr/sheetcharts-be/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.New(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) PublishEvent(e models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	db      *sql.DB
	pub     *recordingPublisher
	events  *EventService
	users   *UserService
	uploads *UploadService
	viz     *VisualizationService
	stats   *StatsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	pub := &recordingPublisher{}
	events := NewEventService(db, pub)
	users := NewUserService(db, events)
	users.cost = bcrypt.MinCost
	uploads := NewUploadService(db, events)
	return &fixture{
		db:      db,
		pub:     pub,
		events:  events,
		users:   users,
		uploads: uploads,
		viz:     NewVisualizationService(uploads, events),
		stats:   NewStatsService(db),
	}
}

func salesRows() ([]string, []models.Row) {
	return []string{"Month", "Sales"}, []models.Row{
		{"Month": models.StringCell("Jan"), "Sales": models.NumberCell(12)},
		{"Month": models.StringCell("Feb"), "Sales": models.NumberCell(7)},
	}
}
