package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/contacts_backend/config"
	"github.com/mmdatafocus/contacts_backend/utils"
	"gorm.io/gorm"
)

type Person struct {
	ID        int       `gorm:"primary_key" json:"id"`
	UserId    int       `gorm:"index;not null" json:"user_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Phone     string    `gorm:"size:30" json:"phone"`
	Email     string    `gorm:"size:100" json:"email"`
	Address   string    `gorm:"type:text" json:"address"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Person) TableName() string {
	return "persons"
}

type NewPerson struct {
	Name    string `json:"name" binding:"required" validate:"required,max=100"`
	Phone   string `json:"phone" validate:"omitempty,max=30,phone"`
	Email   string `json:"email" validate:"omitempty,email,max=100"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type PersonQuery struct {
	UserId *int   `form:"user_id"`
	Name   string `form:"name"`
}

func (input *NewPerson) normalize() {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)
	if input.Phone != "" {
		input.Phone = utils.FormatPhoneNumber(input.Phone, config.PhoneRegion())
	}
}

// owner or administrator
func (p *Person) checkAccess(ctx context.Context) error {
	if utils.IsAdmin(ctx) {
		return nil
	}
	userId, ok := utils.CallerId(ctx)
	if !ok {
		return utils.ErrorUnauthorized
	}
	if p.UserId != userId {
		return utils.ErrorForbidden
	}
	return nil
}

func CreatePerson(ctx context.Context, input *NewPerson) (*Person, error) {
	userId, ok := utils.CallerId(ctx)
	if !ok {
		return nil, utils.ErrorUnauthorized
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	input.normalize()

	person := Person{
		UserId:  userId,
		Name:    input.Name,
		Phone:   input.Phone,
		Email:   input.Email,
		Address: input.Address,
		Notes:   input.Notes,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&person).Error; err != nil {
			return err
		}
		return writeOutboxEvent(ctx, tx, OutboxReferenceTypePerson, person.ID, OutboxActionCreate, person)
	})
	if err != nil {
		return nil, err
	}
	return &person, nil
}

// UpdatePerson changes contact details only; owner and creation time stay fixed.
func UpdatePerson(ctx context.Context, id int, input *NewPerson) (*Person, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	input.normalize()

	person, err := utils.FetchModel[Person](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := person.checkAccess(ctx); err != nil {
		return nil, err
	}

	person.Name = input.Name
	person.Phone = input.Phone
	person.Email = input.Email
	person.Address = input.Address
	person.Notes = input.Notes

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(person).Select("name", "phone", "email", "address", "notes").Updates(person).Error; err != nil {
			return err
		}
		return writeOutboxEvent(ctx, tx, OutboxReferenceTypePerson, person.ID, OutboxActionUpdate, person)
	})
	if err != nil {
		return nil, err
	}
	return person, nil
}

// DeletePerson removes the person and all its reports in one transaction.
func DeletePerson(ctx context.Context, id int) (*Person, error) {
	person, err := utils.FetchModel[Person](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := person.checkAccess(ctx); err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("person_id = ?", person.ID).Delete(&Report{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(person).Error; err != nil {
			return err
		}
		return writeOutboxEvent(ctx, tx, OutboxReferenceTypePerson, person.ID, OutboxActionDelete, person)
	})
	if err != nil {
		return nil, err
	}
	return person, nil
}

func GetPerson(ctx context.Context, id int) (*Person, error) {
	person, err := utils.FetchModel[Person](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := person.checkAccess(ctx); err != nil {
		return nil, err
	}
	return person, nil
}

// ListPersons returns the caller's persons; administrators see all, optionally filtered by owner.
func ListPersons(ctx context.Context, query *PersonQuery) ([]*Person, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)

	if utils.IsAdmin(ctx) {
		if query != nil && query.UserId != nil {
			dbCtx = dbCtx.Where("user_id = ?", *query.UserId)
		}
	} else {
		userId, ok := utils.CallerId(ctx)
		if !ok {
			return nil, utils.ErrorUnauthorized
		}
		dbCtx = dbCtx.Where("user_id = ?", userId)
	}
	if query != nil && strings.TrimSpace(query.Name) != "" {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+strings.TrimSpace(query.Name)+"%")
	}

	var results []*Person
	if err := dbCtx.Order("created_at DESC").Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// MapPersons loads persons by id for the dataloader.
func MapPersons(ctx context.Context, ids []int) (map[int]*Person, error) {
	return utils.FetchModelsByIds[Person](ctx, ids, func(p *Person) int { return p.ID })
}
