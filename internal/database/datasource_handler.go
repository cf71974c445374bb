package database

import (
	"context"
	"errors"
	"time"

	"intelfeed/internal/domain"

	"gorm.io/gorm"
)

// ErrDataSourceNotFound is returned when an id does not resolve to a source.
var ErrDataSourceNotFound = errors.New("data source not found")

func withCtx(ctx context.Context) *gorm.DB {
	if ctx != nil {
		return DB.WithContext(ctx)
	}
	return DB
}

func CreateDataSource(ctx context.Context, source *domain.DataSource) error {
	if err := source.Validate(); err != nil {
		return err
	}
	return withCtx(ctx).Create(source).Error
}

func GetDataSource(ctx context.Context, id uint64) (domain.DataSource, error) {
	var source domain.DataSource
	err := withCtx(ctx).First(&source, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return source, ErrDataSourceNotFound
	}
	return source, err
}

func ListDataSources(ctx context.Context) ([]domain.DataSource, error) {
	var sources []domain.DataSource
	err := withCtx(ctx).Order("id").Find(&sources).Error
	return sources, err
}

// ListSchedulableSources returns the active, unpaused sources the scheduler
// driver evaluates on each tick.
func ListSchedulableSources(ctx context.Context) ([]domain.DataSource, error) {
	var sources []domain.DataSource
	err := withCtx(ctx).
		Where("is_active = ? AND is_paused = ?", true, false).
		Order("id").
		Find(&sources).Error
	return sources, err
}

// UpdateDataSource replaces the admin-mutable fields, leaving the runtime
// fetch bookkeeping untouched.
func UpdateDataSource(ctx context.Context, id uint64, updated domain.DataSource) (domain.DataSource, error) {
	source, err := GetDataSource(ctx, id)
	if err != nil {
		return source, err
	}

	source.Name = updated.Name
	source.URL = updated.URL
	source.IndicatorTypes = updated.IndicatorTypes
	source.FetchInterval = updated.FetchInterval
	source.IsActive = updated.IsActive
	source.IgnoreCertificateErrors = updated.IgnoreCertificateErrors

	if err := source.Validate(); err != nil {
		return source, err
	}

	err = withCtx(ctx).Model(&domain.DataSource{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"name":                      source.Name,
			"url":                       source.URL,
			"indicator_types":           source.IndicatorTypes,
			"fetch_interval":            source.FetchInterval,
			"is_active":                 source.IsActive,
			"ignore_certificate_errors": source.IgnoreCertificateErrors,
		}).Error
	return source, err
}

func DeleteDataSource(ctx context.Context, id uint64) error {
	result := withCtx(ctx).Delete(&domain.DataSource{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDataSourceNotFound
	}
	return nil
}

// SetDataSourcePaused flips the pause flag. Pausing never clears the fetch
// bookkeeping; resuming re-enters normal interval scheduling from now.
func SetDataSourcePaused(ctx context.Context, id uint64, paused bool) error {
	result := withCtx(ctx).Model(&domain.DataSource{}).
		Where("id = ?", id).
		Update("is_paused", paused)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDataSourceNotFound
	}
	return nil
}

// MarkFetchSuccess records a completed fetch on the source.
func MarkFetchSuccess(ctx context.Context, id uint64, at time.Time) error {
	return withCtx(ctx).Model(&domain.DataSource{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_fetch":        at,
			"last_fetch_status": domain.FetchStatusSuccess,
			"last_fetch_error":  "",
		}).Error
}

// MarkFetchFailure records a failed fetch attempt with its message. The
// source simply becomes due again at the next interval.
func MarkFetchFailure(ctx context.Context, id uint64, at time.Time, message string) error {
	return withCtx(ctx).Model(&domain.DataSource{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_fetch":        at,
			"last_fetch_status": domain.FetchStatusError,
			"last_fetch_error":  message,
		}).Error
}
