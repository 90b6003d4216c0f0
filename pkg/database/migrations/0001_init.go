package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

type Guest struct {
	ID               int64      `gorm:"primaryKey"`
	Name             string     `gorm:"type:text;not null"`
	Email            string     `gorm:"type:text;not null;uniqueIndex"`
	AllowPlusOne     bool       `gorm:"not null;default:false"`
	MaxGuests        int        `gorm:"not null;default:1"`
	InvitationSent   bool       `gorm:"not null;default:false"`
	InvitationSentAt *time.Time `gorm:"type:timestamptz"`
	Notes            *string    `gorm:"type:text"`
	CreatedAt        time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type RSVP struct {
	ID                    int64     `gorm:"primaryKey"`
	GuestID               *int64    `gorm:"index"`
	Guest                 *Guest    `gorm:"constraint:OnDelete:SET NULL"`
	GuestName             string    `gorm:"type:text;not null"`
	GuestEmail            string    `gorm:"type:text;not null;uniqueIndex"`
	Attending             bool      `gorm:"not null"`
	PlusOne               bool      `gorm:"not null;default:false"`
	PlusOneName           *string   `gorm:"type:text"`
	DietaryRestrictions   *string   `gorm:"type:text"`
	SongRequests          *string   `gorm:"type:text"`
	SpecialAccommodations *string   `gorm:"type:text"`
	NumberOfGuests        int       `gorm:"not null;default:1"`
	CreatedAt             time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
	UpdatedAt             time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

type RSVPModificationToken struct {
	ID        int64      `gorm:"primaryKey"`
	Email     string     `gorm:"type:text;not null;index"`
	Token     string     `gorm:"type:text;not null;uniqueIndex"`
	ExpiresAt time.Time  `gorm:"type:timestamptz;not null"`
	Used      bool       `gorm:"not null;default:false"`
	UsedAt    *time.Time `gorm:"type:timestamptz"`
	IPAddress *string    `gorm:"type:text"`
	UserAgent *string    `gorm:"type:text"`
	CreatedAt time.Time  `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

type GuestbookEntry struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	Message   string    `gorm:"type:text;not null"`
	Location  *string   `gorm:"type:text"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime;index:idx_guestbook_created_at,sort:desc"`
}

type GameScore struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	Score     int       `gorm:"not null;index:idx_game_scores_score,sort:desc"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

type VisitorCount struct {
	ID    int64 `gorm:"primaryKey"`
	Count int64 `gorm:"not null;default:0"`
}

func upInit(ctx context.Context, tx *sql.Tx) error {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: tx}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return err
	}

	if err := gdb.WithContext(ctx).AutoMigrate(
		&Guest{},
		&RSVP{},
		&RSVPModificationToken{},
		&GuestbookEntry{},
		&GameScore{},
		&VisitorCount{},
	); err != nil {
		return err
	}

	// Hit counter is a single pre-seeded row incremented in place.
	return gdb.WithContext(ctx).Exec(
		`INSERT INTO visitor_counts (id, count) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`,
	).Error
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{
		"visitor_counts",
		"game_scores",
		"guestbook_entries",
		"rsvp_modification_tokens",
		"rsvps",
		"guests",
	} {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return err
		}
	}
	return nil
}
