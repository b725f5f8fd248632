// Package repository provides data persistence functionality using GORM
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Koyo-os/form-builder/internal/entity"
	"github.com/Koyo-os/form-builder/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FormRecord is one stored form: the full form JSON keyed by its ID.
type FormRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Title     string `gorm:"size:255"`
	Payload   string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository handles database operations using GORM
type Repository struct {
	db     *gorm.DB
	logger *logger.Logger
}

// Init creates and returns a new Repository instance
func Init(db *gorm.DB, logger *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the form table.
func (repo *Repository) Migrate() error {
	if err := repo.db.AutoMigrate(&FormRecord{}); err != nil {
		repo.logger.Error("error migrate form records", zap.Error(err))
		return err
	}
	return nil
}

// Save upserts a form by its ID.
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - form: Form to persist, encoded in its storage JSON shape
//
// Returns error if encoding or the write fails
func (repo *Repository) Save(ctx context.Context, form *entity.Form) error {
	payload, err := json.Marshal(form)
	if err != nil {
		repo.logger.Error("error encode form",
			zap.String("form_id", form.ID()),
			zap.Error(err),
		)
		return err
	}

	record := FormRecord{
		ID:        form.ID(),
		Title:     form.Title,
		Payload:   string(payload),
		CreatedAt: form.CreatedAt(),
	}

	res := repo.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "payload", "updated_at"}),
	}).Create(&record)

	if err := res.Error; err != nil {
		repo.logger.Error("error save form",
			zap.String("form_id", form.ID()),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// Get retrieves a form by its ID
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - id: ID of the form to retrieve
//
// Returns:
//   - *entity.Form: Retrieved form
//   - error: entity.ErrFormNotFound when absent, or any read or decode error
func (repo *Repository) Get(ctx context.Context, id string) (*entity.Form, error) {
	var record FormRecord

	res := repo.db.WithContext(ctx).Where("id = ?", id).First(&record)
	if err := res.Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, entity.ErrFormNotFound
		}

		repo.logger.Error("error get form",
			zap.String("form_id", id),
			zap.Error(err),
		)
		return nil, err
	}

	form, err := entity.FormFromJSON([]byte(record.Payload))
	if err != nil {
		repo.logger.Error("error decode stored form",
			zap.String("form_id", id),
			zap.Error(err),
		)
		return nil, err
	}

	return form, nil
}

// List returns every stored form, oldest first.
// Records that no longer decode are logged and skipped.
func (repo *Repository) List(ctx context.Context) ([]*entity.Form, error) {
	var records []FormRecord

	res := repo.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&records)
	if err := res.Error; err != nil {
		repo.logger.Error("error list forms", zap.Error(err))
		return nil, err
	}

	forms := make([]*entity.Form, 0, len(records))
	for _, record := range records {
		form, err := entity.FormFromJSON([]byte(record.Payload))
		if err != nil {
			repo.logger.Warn("skip undecodable form",
				zap.String("form_id", record.ID),
				zap.Error(err),
			)
			continue
		}
		forms = append(forms, form)
	}

	return forms, nil
}

// Delete removes a form from the database
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - id: ID of the form to delete
//
// Returns error if the deletion fails; deleting an absent form is not an error
func (repo *Repository) Delete(ctx context.Context, id string) error {
	res := repo.db.WithContext(ctx).Where("id = ?", id).Delete(&FormRecord{})

	if err := res.Error; err != nil {
		repo.logger.Error("error delete form",
			zap.String("form_id", id),
			zap.Error(err),
		)
		return err
	}

	return nil
}

func (repo *Repository) IsHealthy() bool {
	sqlDB, err := repo.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.Ping() == nil
}

func (repo *Repository) Close() error {
	sqlDB, err := repo.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
