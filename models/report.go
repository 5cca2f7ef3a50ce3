package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/contacts_backend/config"
	"github.com/mmdatafocus/contacts_backend/utils"
	"gorm.io/gorm"
)

type Report struct {
	ID         int       `gorm:"primary_key" json:"id"`
	PersonId   int       `gorm:"index;not null" json:"person_id"`
	UserId     int       `gorm:"index;not null" json:"user_id"`
	ReportWeek time.Time `gorm:"type:date;index;not null" json:"report_week"`
	HasContact bool      `gorm:"not null;default:false" json:"has_contact"`
	Content    string    `gorm:"type:text" json:"content"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewReport struct {
	PersonId   int    `json:"person_id" binding:"required" validate:"required,gt=0"`
	ReportWeek string `json:"report_week" binding:"required" validate:"required,notfuture"`
	HasContact *bool  `json:"has_contact" binding:"required" validate:"required"`
	Content    string `json:"content" validate:"max=5000"`
}

type UpdateReportInput struct {
	ReportWeek *string `json:"report_week" validate:"omitempty,notfuture"`
	HasContact *bool   `json:"has_contact"`
	Content    *string `json:"content" validate:"omitempty,max=5000"`
}

type ReportQuery struct {
	PersonId *int   `form:"person_id"`
	UserId   *int   `form:"user_id"`
	From     string `form:"from"`
	To       string `form:"to"`
}

// filer or administrator
func (r *Report) checkAccess(ctx context.Context) error {
	if utils.IsAdmin(ctx) {
		return nil
	}
	userId, ok := utils.CallerId(ctx)
	if !ok {
		return utils.ErrorUnauthorized
	}
	if r.UserId != userId {
		return utils.ErrorForbidden
	}
	return nil
}

// CreateReport files a report against an existing person.
// Standard accounts may only report on persons they own.
func CreateReport(ctx context.Context, input *NewReport) (*Report, error) {
	userId, ok := utils.CallerId(ctx)
	if !ok {
		return nil, utils.ErrorUnauthorized
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	reportWeek, err := utils.ParseDate(input.ReportWeek)
	if err != nil {
		return nil, utils.NewValidationError("ReportWeek", "invalid date")
	}

	person, err := utils.FetchModel[Person](ctx, input.PersonId)
	if err != nil {
		return nil, err
	}
	if err := person.checkAccess(ctx); err != nil {
		return nil, err
	}

	report := Report{
		PersonId:   person.ID,
		UserId:     userId,
		ReportWeek: reportWeek,
		HasContact: *input.HasContact,
		Content:    strings.TrimSpace(input.Content),
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		return writeOutboxEvent(ctx, tx, OutboxReferenceTypeReport, report.ID, OutboxActionCreate, report)
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func UpdateReport(ctx context.Context, id int, input *UpdateReportInput) (*Report, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	report, err := utils.FetchModel[Report](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := report.checkAccess(ctx); err != nil {
		return nil, err
	}

	columns := make([]string, 0, 3)
	if input.ReportWeek != nil {
		reportWeek, err := utils.ParseDate(*input.ReportWeek)
		if err != nil {
			return nil, utils.NewValidationError("ReportWeek", "invalid date")
		}
		report.ReportWeek = reportWeek
		columns = append(columns, "report_week")
	}
	if input.HasContact != nil {
		report.HasContact = *input.HasContact
		columns = append(columns, "has_contact")
	}
	if input.Content != nil {
		report.Content = strings.TrimSpace(*input.Content)
		columns = append(columns, "content")
	}
	if len(columns) == 0 {
		return report, nil
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(report).Select(columns).Updates(report).Error; err != nil {
			return err
		}
		return writeOutboxEvent(ctx, tx, OutboxReferenceTypeReport, report.ID, OutboxActionUpdate, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func DeleteReport(ctx context.Context, id int) (*Report, error) {
	report, err := utils.FetchModel[Report](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := report.checkAccess(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(report).Error; err != nil {
			return err
		}
		return writeOutboxEvent(ctx, tx, OutboxReferenceTypeReport, report.ID, OutboxActionDelete, report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func GetReport(ctx context.Context, id int) (*Report, error) {
	report, err := utils.FetchModel[Report](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := report.checkAccess(ctx); err != nil {
		// the person's owner may read reports others filed on it
		if !errors.Is(err, utils.ErrorForbidden) {
			return nil, err
		}
		person, perr := utils.FetchModel[Person](ctx, report.PersonId)
		if perr != nil || person.checkAccess(ctx) != nil {
			return nil, err
		}
	}
	return report, nil
}

// ListReports returns reports filed by the caller; administrators see all, optionally filtered.
// With PersonId set, a person's owner sees every report on that person.
func ListReports(ctx context.Context, query *ReportQuery) ([]*Report, error) {
	if query == nil {
		query = &ReportQuery{}
	}
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)

	if query.PersonId != nil {
		person, err := utils.FetchModel[Person](ctx, *query.PersonId)
		if err != nil {
			return nil, err
		}
		if err := person.checkAccess(ctx); err != nil {
			return nil, err
		}
		dbCtx = dbCtx.Where("person_id = ?", person.ID)
		if utils.IsAdmin(ctx) && query.UserId != nil {
			dbCtx = dbCtx.Where("user_id = ?", *query.UserId)
		}
	} else if utils.IsAdmin(ctx) {
		if query.UserId != nil {
			dbCtx = dbCtx.Where("user_id = ?", *query.UserId)
		}
	} else {
		userId, ok := utils.CallerId(ctx)
		if !ok {
			return nil, utils.ErrorUnauthorized
		}
		dbCtx = dbCtx.Where("user_id = ?", userId)
	}

	if query.From != "" {
		from, err := utils.ParseDate(query.From)
		if err != nil {
			return nil, utils.NewValidationError("from", "invalid date")
		}
		dbCtx = dbCtx.Where("report_week >= ?", from)
	}
	if query.To != "" {
		to, err := utils.ParseDate(query.To)
		if err != nil {
			return nil, utils.NewValidationError("to", "invalid date")
		}
		dbCtx = dbCtx.Where("report_week <= ?", to)
	}

	var results []*Report
	if err := dbCtx.Order("report_week DESC").Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

/* orphan maintenance */

const orphanCondition = "NOT EXISTS (SELECT 1 FROM persons WHERE persons.id = reports.person_id)"

// CountOrphanReports counts reports whose person no longer exists.
func CountOrphanReports(ctx context.Context) (int64, error) {
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Report{}).Where(orphanCondition).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func DeleteOrphanReports(ctx context.Context) (int64, error) {
	db := config.GetDB()
	result := db.WithContext(ctx).Where(orphanCondition).Delete(&Report{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
