package reports

import (
	"context"

	"github.com/mmdatafocus/contacts_backend/config"
	"github.com/mmdatafocus/contacts_backend/middlewares"
	"github.com/mmdatafocus/contacts_backend/models"
	"github.com/mmdatafocus/contacts_backend/utils"
	"gorm.io/gorm"
)

// GormStore reads statistics snapshots from the service database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore uses db, or config.GetDB() at query time when db is nil.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	db := s.db
	if db == nil {
		db = config.GetDB()
	}
	return db.WithContext(ctx)
}

func (s *GormStore) ListPersons(ctx context.Context, filter PersonFilter) ([]PersonRecord, error) {
	dbCtx := s.conn(ctx).Model(&models.Person{}).Select("id", "user_id", "name", "created_at")
	if filter.UserId != nil {
		dbCtx = dbCtx.Where("user_id = ?", *filter.UserId)
	}
	var results []PersonRecord
	if err := dbCtx.Order("id").Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *GormStore) ListReports(ctx context.Context, filter ReportFilter) ([]ReportRecord, error) {
	dbCtx := s.conn(ctx).Model(&models.Report{}).
		Select("id", "person_id", "user_id", "report_week", "has_contact", "content", "created_at")
	if filter.UserId != nil {
		dbCtx = dbCtx.Where("user_id = ?", *filter.UserId)
	}
	if len(filter.PersonIds) > 0 {
		dbCtx = dbCtx.Where("person_id IN ?", utils.UniqueSlice(filter.PersonIds))
	}
	var results []ReportRecord
	if err := dbCtx.Order("id").Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// FindUsers batches through the request's user loader when one is attached to ctx.
func (s *GormStore) FindUsers(ctx context.Context, ids []int) (map[int]UserRecord, error) {
	ids = utils.UniqueSlice(ids)
	result := make(map[int]UserRecord, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	if middlewares.For(ctx) != nil {
		users, errs := middlewares.GetUsers(ctx, ids)
		for _, err := range errs {
			if err != nil {
				return nil, err
			}
		}
		for _, u := range users {
			if u == nil || u.Username == "" {
				continue
			}
			result[u.ID] = UserRecord{ID: u.ID, Username: u.Username, Name: u.Name}
		}
		return result, nil
	}

	var users []UserRecord
	if err := s.conn(ctx).Model(&models.User{}).Select("id", "username", "name").
		Where("id IN ?", ids).Scan(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}
