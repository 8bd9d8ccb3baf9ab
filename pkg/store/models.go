package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID        string    `gorm:"primaryKey"`
	Username  string    `gorm:"uniqueIndex;not null"`
	Password  string    `gorm:"not null"`
	Role      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

type BookModel struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Author      string `gorm:"not null"`
	Category    string `gorm:"not null;index"`
	Description string `gorm:"type:text"`
	CoverImage  string
	Price       float64   `gorm:"not null"`
	OldPrice    float64   `gorm:"not null;default:0"`
	Trending    bool      `gorm:"not null;default:false;index"`
	CreatedAt   time.Time `gorm:"not null;index"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type OrderModel struct {
	ID         string                           `gorm:"primaryKey"`
	Name       string                           `gorm:"not null"`
	Email      string                           `gorm:"not null;index"`
	Address    datatypes.JSONType[addressModel] `gorm:"type:jsonb"`
	Phone      string
	ProductIDs datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	TotalPrice float64                     `gorm:"not null"`
	CreatedAt  time.Time                   `gorm:"not null;index"`
	UpdatedAt  time.Time                   `gorm:"not null"`
}

type addressModel struct {
	City    string `json:"city"`
	Country string `json:"country,omitempty"`
	State   string `json:"state,omitempty"`
	Zipcode string `json:"zipcode,omitempty"`
}
