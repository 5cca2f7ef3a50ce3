package utils

import (
	"context"
	"errors"

	"github.com/mmdatafocus/contacts_backend/config"
	"gorm.io/gorm"
)

/* DB fetching */

// fetch model from db
// (may return RecordNotFound)
func FetchModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	if err := dbCtx.First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// fetch models by ids, keyed by id
func FetchModelsByIds[T any](ctx context.Context, ids []int, idOf func(*T) int) (map[int]*T, error) {
	result := make(map[int]*T, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []*T
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id IN ?", UniqueSlice(ids)).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[idOf(row)] = row
	}
	return result, nil
}

func UniqueSlice[T comparable](s []T) []T {
	seen := make(map[T]struct{}, len(s))
	out := make([]T, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func DereferencePtr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func NilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
