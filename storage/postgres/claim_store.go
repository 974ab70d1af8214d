package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"solairdrop/storage"
)

// PostgreSQL error code for unique_violation
const pgErrUniqueViolation = "23505"

// ClaimRecord - Database row for a claim
type ClaimRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Wallet    string    `gorm:"uniqueIndex;size:44;not null"`
	Status    string    `gorm:"index;size:16;not null"`
	Signature string    `gorm:"size:88"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (ClaimRecord) TableName() string {
	return "airdrop_claims"
}

func (r *ClaimRecord) toClaim() *storage.Claim {
	return &storage.Claim{
		Wallet:    r.Wallet,
		Status:    storage.ClaimStatus(r.Status),
		Signature: r.Signature,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// ClaimStore is a PostgreSQL implementation of storage.ClaimStore. The
// unique index on wallet makes Reserve atomic across processes.
type ClaimStore struct {
	db *gorm.DB
}

var _ storage.ClaimStore = (*ClaimStore)(nil)

// Open connects to dsn and migrates the claims table.
func Open(ctx context.Context, dsn string) (*ClaimStore, error) {
	db, err := gorm.Open(gormpg.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := NewClaimStore(db)
	if err := store.Migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return store, nil
}

// NewClaimStore wraps an existing gorm connection.
func NewClaimStore(db *gorm.DB) *ClaimStore {
	return &ClaimStore{db: db}
}

// Migrate creates or updates the claims table.
func (s *ClaimStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&ClaimRecord{}); err != nil {
		return fmt.Errorf("migrate claims: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *ClaimStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Get retrieves a claim by wallet. Returns ErrNotFound if not exists.
func (s *ClaimStore) Get(ctx context.Context, wallet string) (*storage.Claim, error) {
	var rec ClaimRecord
	err := s.db.WithContext(ctx).Where("wallet = ?", wallet).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return rec.toClaim(), nil
}

// IsClaimed reports whether wallet has any claim record.
func (s *ClaimStore) IsClaimed(ctx context.Context, wallet string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&ClaimRecord{}).Where("wallet = ?", wallet).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count claims: %w", err)
	}
	return count > 0, nil
}

// Reserve inserts a pending claim. Returns ErrAlreadyClaimed on conflict.
func (s *ClaimStore) Reserve(ctx context.Context, wallet string) error {
	if err := storage.ValidateWallet(wallet); err != nil {
		return err
	}

	now := time.Now().UTC()
	rec := ClaimRecord{
		Wallet:    wallet,
		Status:    string(storage.ClaimPending),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrAlreadyClaimed
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// Complete marks wallet's claim as confirmed.
func (s *ClaimStore) Complete(ctx context.Context, wallet, signature string) error {
	result := s.db.WithContext(ctx).
		Model(&ClaimRecord{}).
		Where("wallet = ?", wallet).
		Updates(map[string]interface{}{
			"status":     string(storage.ClaimCompleted),
			"signature":  signature,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("complete claim: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Release deletes a pending claim.
func (s *ClaimStore) Release(ctx context.Context, wallet string) error {
	err := s.db.WithContext(ctx).
		Where("wallet = ? AND status = ?", wallet, string(storage.ClaimPending)).
		Delete(&ClaimRecord{}).Error
	if err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if the error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUniqueViolation
	}
	return false
}
