package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
)

// Entity is a local mirror of a restaurant or supplier organization.
// Reference data owned by the external org-management service; the engine
// only reads it, the seed tooling writes it.
type Entity struct {
	ID           int        `gorm:"primary_key" json:"id"`
	Kind         EntityKind `gorm:"size:20;not null;index" json:"kind"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	ContactPhone string     `gorm:"size:30" json:"contact_phone"`
	CountryCode  string     `gorm:"size:5" json:"country_code"`
	IsActive     bool       `gorm:"not null;default:1" json:"is_active"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewEntity struct {
	Kind         EntityKind `json:"kind" binding:"required"`
	Name         string     `json:"name" binding:"required"`
	ContactPhone string     `json:"contact_phone"`
	CountryCode  string     `json:"country_code"`
}

func CreateEntity(ctx context.Context, input *NewEntity) (*Entity, error) {
	db := config.GetDB()

	if input.Kind != EntityKindRestaurant && input.Kind != EntityKindSupplier {
		return nil, errors.New("invalid entity kind")
	}
	if input.ContactPhone != "" {
		countryCode := input.CountryCode
		if countryCode == "" {
			countryCode = "MM"
		}
		if err := utils.ValidatePhoneNumber(input.ContactPhone, countryCode); err != nil {
			return nil, err
		}
	}

	entity := Entity{
		Kind:         input.Kind,
		Name:         input.Name,
		ContactPhone: input.ContactPhone,
		CountryCode:  input.CountryCode,
		IsActive:     true,
	}
	if err := db.WithContext(ctx).Create(&entity).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

func GetEntity(ctx context.Context, id int) (*Entity, error) {
	db := config.GetDB()
	var result Entity

	err := db.WithContext(ctx).First(&result, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func ValidateEntityId(ctx context.Context, id int) error {
	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Entity{}).
		Where("id = ? AND is_active = 1", id).Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// UnitTypeForEntity maps the counterparty kind to the unit type recorded on
// its reconciliation units.
func UnitTypeForEntity(kind EntityKind) UnitType {
	if kind == EntityKindRestaurant {
		return UnitTypeRestaurant
	}
	return UnitTypeSupplier
}
