package database

import (
	"context"
	"errors"

	"intelfeed/internal/domain"
)

// ErrWhitelistEntryNotFound is returned when an id does not resolve to an entry.
var ErrWhitelistEntryNotFound = errors.New("whitelist entry not found")

const whitelistBlocksPerPage = 50

func CreateWhitelistEntry(ctx context.Context, entry *domain.WhitelistEntry) error {
	return withCtx(ctx).Create(entry).Error
}

func ListWhitelistEntries(ctx context.Context) ([]domain.WhitelistEntry, error) {
	var entries []domain.WhitelistEntry
	err := withCtx(ctx).Order("id").Find(&entries).Error
	return entries, err
}

func DeleteWhitelistEntry(ctx context.Context, id uint64) error {
	result := withCtx(ctx).Delete(&domain.WhitelistEntry{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrWhitelistEntryNotFound
	}
	return nil
}

// InsertWhitelistBlock appends one rejection record for operator visibility.
func InsertWhitelistBlock(ctx context.Context, block *domain.WhitelistBlock) error {
	return withCtx(ctx).Create(block).Error
}

// ListWhitelistBlocks returns the most recent rejections first.
func ListWhitelistBlocks(ctx context.Context, page, pageSize int) ([]domain.WhitelistBlock, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = whitelistBlocksPerPage
	}

	var total int64
	if err := withCtx(ctx).Model(&domain.WhitelistBlock{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var blocks []domain.WhitelistBlock
	err := withCtx(ctx).
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&blocks).Error
	return blocks, total, err
}
