package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upInit, downInit)
}

// FirmwareRecord is one published build for a device class. Several rows may
// exist per device_id; the row with the greatest uploaded_at is the current one.
type FirmwareRecord struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey"`
	DeviceID    string            `gorm:"type:text;not null;index"`
	Version     string            `gorm:"type:text;not null"`
	ArtifactURL string            `gorm:"type:text;not null"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	UploadedAt  int64             `gorm:"type:bigint;not null"`
	CreatedAt   time.Time         `gorm:"type:timestamptz;not null;default:now();autoCreateTime"`
}

func (FirmwareRecord) TableName() string { return "firmware_records" }

// ProvisionedLink caches the download URL most recently issued to a device.
// ttl is an absolute epoch-seconds expiry; stale rows are advisory and reaped
// out of band, never read back by the check flow.
type ProvisionedLink struct {
	DeviceID     string    `gorm:"type:text;primaryKey"`
	DownloadLink string    `gorm:"type:text;not null"`
	TTL          int64     `gorm:"column:ttl;type:bigint;not null"`
	UpdatedAt    time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime"`
}

func (ProvisionedLink) TableName() string { return "provisioned_links" }

func upInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).AutoMigrate(
		&FirmwareRecord{},
		&ProvisionedLink{},
	)
}

func downInit(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(
		&ProvisionedLink{},
		&FirmwareRecord{},
	)
}
