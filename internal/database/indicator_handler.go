package database

import (
	"context"
	"errors"
	"time"

	"intelfeed/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrIndicatorNotFound is returned when an id does not resolve to an indicator.
var ErrIndicatorNotFound = errors.New("indicator not found")

const indicatorsPerPage = 50

// UpsertIndicator performs the atomic "insert if absent, else refresh
// metadata" write keyed on (value, type). Concurrent writers racing on the
// same value are resolved by the conflict clause; the existing row's
// is_active and temp_active_until are never touched.
func UpsertIndicator(ctx context.Context, indicator domain.Indicator) (inserted bool, err error) {
	result := withCtx(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "value"}, {Name: "type"}},
		DoNothing: true,
	}).Create(&indicator)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	err = withCtx(ctx).Model(&domain.Indicator{}).
		Where("value = ? AND type = ?", indicator.Value, indicator.Type).
		Updates(map[string]any{
			"source":     indicator.Source,
			"source_id":  indicator.SourceID,
			"updated_at": time.Now().UTC(),
		}).Error
	return false, err
}

func CreateIndicator(ctx context.Context, indicator *domain.Indicator) error {
	return withCtx(ctx).Create(indicator).Error
}

func GetIndicator(ctx context.Context, id uint64) (domain.Indicator, error) {
	var indicator domain.Indicator
	err := withCtx(ctx).First(&indicator, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return indicator, ErrIndicatorNotFound
	}
	return indicator, err
}

// FindIndicatorByValue looks up the unique (value, type) row.
func FindIndicatorByValue(ctx context.Context, value, indicatorType string) (domain.Indicator, error) {
	var indicator domain.Indicator
	err := withCtx(ctx).
		Where("value = ? AND type = ?", value, indicatorType).
		First(&indicator).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return indicator, ErrIndicatorNotFound
	}
	return indicator, err
}

// ListIndicators returns one page plus the unpaged total. A non-empty search
// narrows on the value column; a non-empty typeFilter narrows on type.
func ListIndicators(ctx context.Context, page, pageSize int, search, typeFilter string) ([]domain.Indicator, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = indicatorsPerPage
	}

	query := withCtx(ctx).Model(&domain.Indicator{})
	if search != "" {
		query = query.Where("value LIKE ?", "%"+search+"%")
	}
	if typeFilter != "" {
		query = query.Where("type = ?", typeFilter)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var indicators []domain.Indicator
	err := query.Order("id").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&indicators).Error
	return indicators, total, err
}

// SetIndicatorActive toggles an indicator. Deactivating also clears any
// pending temporary activation, which is only meaningful while active.
func SetIndicatorActive(ctx context.Context, id uint64, active bool) error {
	updates := map[string]any{"is_active": active}
	if !active {
		updates["temp_active_until"] = nil
	}

	result := withCtx(ctx).Model(&domain.Indicator{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIndicatorNotFound
	}
	return nil
}

// TempActivateIndicator grants a time-boxed activation that the sweeper will
// delete once expired.
func TempActivateIndicator(ctx context.Context, id uint64, until time.Time) error {
	result := withCtx(ctx).Model(&domain.Indicator{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_active":         true,
			"temp_active_until": until,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrIndicatorNotFound
	}
	return nil
}

// DeleteIndicator removes the row and reports whether it still existed, so a
// concurrent delete is distinguishable from a successful one.
func DeleteIndicator(ctx context.Context, id uint64) (bool, error) {
	result := withCtx(ctx).Delete(&domain.Indicator{}, id)
	return result.RowsAffected > 0, result.Error
}

// ListExpiredTempIndicators returns every indicator whose temporary
// activation has lapsed at the given time.
func ListExpiredTempIndicators(ctx context.Context, now time.Time) ([]domain.Indicator, error) {
	var expired []domain.Indicator
	err := withCtx(ctx).
		Where("temp_active_until IS NOT NULL AND temp_active_until <= ?", now).
		Find(&expired).Error
	return expired, err
}

// ListActiveValuesByType streams the active indicator values for one type,
// ordered for deterministic export chunking.
func ListActiveValuesByType(ctx context.Context, indicatorType string) ([]string, error) {
	var values []string
	err := withCtx(ctx).Model(&domain.Indicator{}).
		Where("type = ? AND is_active = ?", indicatorType, true).
		Order("value").
		Pluck("value", &values).Error
	return values, err
}

// ActiveIndicatorTypes lists the distinct types currently present with at
// least one active indicator.
func ActiveIndicatorTypes(ctx context.Context) ([]string, error) {
	var types []string
	err := withCtx(ctx).Model(&domain.Indicator{}).
		Where("is_active = ?", true).
		Distinct().
		Order("type").
		Pluck("type", &types).Error
	return types, err
}

func AppendIndicatorNote(ctx context.Context, note *domain.IndicatorNote) error {
	if _, err := GetIndicator(ctx, note.IndicatorID); err != nil {
		return err
	}
	return withCtx(ctx).Create(note).Error
}

func ListIndicatorNotes(ctx context.Context, indicatorID uint64) ([]domain.IndicatorNote, error) {
	var notes []domain.IndicatorNote
	err := withCtx(ctx).
		Where("indicator_id = ?", indicatorID).
		Order("id").
		Find(&notes).Error
	return notes, err
}
