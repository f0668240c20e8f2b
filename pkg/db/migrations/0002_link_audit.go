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
	goose.AddMigrationContext(upLinkAudit, downLinkAudit)
}

// LinkAudit is the append-only history of issued download links.
type LinkAudit struct {
	ID            int64     `gorm:"type:bigserial;primaryKey"`
	DeviceID      string    `gorm:"type:text;not null;index"`
	LatestVersion string    `gorm:"type:text"`
	TTL           int64     `gorm:"column:ttl;type:bigint;not null"`
	IssuedAt      time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (LinkAudit) TableName() string { return "link_audit" }

func upLinkAudit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).AutoMigrate(&LinkAudit{})
}

func downLinkAudit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(&LinkAudit{})
}
