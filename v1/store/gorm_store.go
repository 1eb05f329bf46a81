package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sarmadarshad321/booksphere/v1/catalog"
)

// ErrTimeout is returned when a store operation exceeds its deadline.
var ErrTimeout = errors.New("store: operation timed out")

const (
	defaultTitleTable       = "booksphere_titles"
	defaultReservationTable = "booksphere_reservations"
	defaultGormOpTimeout    = 5 * time.Second
)

// gormTitle is the internal model used to persist titles.
type gormTitle struct {
	ID              string `gorm:"primaryKey;column:title_id"`
	Name            string `gorm:"column:name"`
	Author          string `gorm:"column:author"`
	Genres          string `gorm:"column:genres"`
	Year            int    `gorm:"column:year"`
	TotalCopies     int    `gorm:"column:total_copies"`
	AvailableCopies int    `gorm:"column:available_copies"`
}

// gormReservation is the internal model used to persist reservation records.
type gormReservation struct {
	RequestID int64     `gorm:"primaryKey;column:request_id"`
	UserID    string    `gorm:"column:user_id"`
	TitleID   string    `gorm:"column:title_id"`
	Position  int       `gorm:"column:position"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// GormStore implements TitleStore and ReservationStore using a GORM backend.
type GormStore struct {
	db               *gorm.DB
	titleTable       string
	reservationTable string
	timeout          time.Duration
}

// GormOption configures a GormStore.
type GormOption func(*GormStore)

// WithGormTables overrides the table names used by the store.
func WithGormTables(titles, reservations string) GormOption {
	return func(s *GormStore) {
		s.titleTable = titles
		s.reservationTable = reservations
	}
}

// WithGormTimeout sets the operation timeout for GORM calls.
func WithGormTimeout(d time.Duration) GormOption {
	return func(s *GormStore) {
		s.timeout = d
	}
}

// NewGormStore returns a new GormStore using the provided GORM DB connection.
func NewGormStore(db *gorm.DB, opts ...GormOption) *GormStore {
	s := &GormStore{
		db:               db,
		titleTable:       defaultTitleTable,
		reservationTable: defaultReservationTable,
		timeout:          defaultGormOpTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if !db.Migrator().HasTable(s.titleTable) {
		_ = db.Table(s.titleTable).AutoMigrate(&gormTitle{})
	}
	if !db.Migrator().HasTable(s.reservationTable) {
		_ = db.Table(s.reservationTable).AutoMigrate(&gormReservation{})
	}
	return s
}

func mapGormErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func toTitle(m gormTitle) catalog.Title {
	var genres []string
	if m.Genres != "" {
		genres = strings.Split(m.Genres, ";")
	}
	return catalog.Title{
		ID:              m.ID,
		Name:            m.Name,
		Author:          m.Author,
		Genres:          genres,
		Year:            m.Year,
		TotalCopies:     m.TotalCopies,
		AvailableCopies: m.AvailableCopies,
	}
}

func fromTitle(t catalog.Title) gormTitle {
	return gormTitle{
		ID:              t.ID,
		Name:            t.Name,
		Author:          t.Author,
		Genres:          strings.Join(t.Genres, ";"),
		Year:            t.Year,
		TotalCopies:     t.TotalCopies,
		AvailableCopies: t.AvailableCopies,
	}
}

// GetTitle implements TitleStore.GetTitle.
func (s *GormStore) GetTitle(ctx context.Context, id string) (catalog.Title, bool, error) {
	var zero catalog.Title
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var m gormTitle
	err := s.db.WithContext(cctx).Table(s.titleTable).First(&m, "title_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, mapGormErr(err)
	}
	return toTitle(m), true, nil
}

// SaveTitle implements TitleStore.SaveTitle.
func (s *GormStore) SaveTitle(ctx context.Context, t catalog.Title) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	m := fromTitle(t)
	err := s.db.WithContext(cctx).Table(s.titleTable).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "title_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "author", "genres", "year", "total_copies", "available_copies",
		}),
	}).Create(&m).Error
	return mapGormErr(err)
}

// ListTitles implements TitleStore.ListTitles.
func (s *GormStore) ListTitles(ctx context.Context) ([]catalog.Title, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var ms []gormTitle
	if err := s.db.WithContext(cctx).Table(s.titleTable).Find(&ms).Error; err != nil {
		return nil, mapGormErr(err)
	}
	out := make([]catalog.Title, 0, len(ms))
	for _, m := range ms {
		out = append(out, toTitle(m))
	}
	return out, nil
}

// SaveReservation implements ReservationStore.SaveReservation.
func (s *GormStore) SaveReservation(ctx context.Context, r catalog.QueuedReservation) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	m := gormReservation{
		RequestID: r.RequestID,
		UserID:    r.UserID,
		TitleID:   r.TitleID,
		Position:  r.Position,
		CreatedAt: r.CreatedAt,
	}
	err := s.db.WithContext(cctx).Table(s.reservationTable).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "request_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"position"}),
	}).Create(&m).Error
	return mapGormErr(err)
}

// DeleteReservation implements ReservationStore.DeleteReservation.
func (s *GormStore) DeleteReservation(ctx context.Context, requestID int64) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.WithContext(cctx).Table(s.reservationTable).
		Delete(&gormReservation{}, "request_id = ?", requestID).Error
	return mapGormErr(err)
}
