package models

import "time"

// The entities below are managed by the admin CRUD surface, which lives
// outside this service. Purchase validation only ever reads them.

type Category struct {
	ID        string    `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Active    bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Category) TableName() string { return "category" }

type Contestant struct {
	ID         string    `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Name       string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	CategoryID string    `gorm:"column:category_id;type:varchar(64);not null;index" json:"category_id"`
	Active     bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Contestant) TableName() string { return "contestant" }

// VotePackage prices a bundle of votes, e.g. 5 votes for 10.00.
// A zero-price package is granted without involving the gateway.
type VotePackage struct {
	ID        string    `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	VoteCount int       `gorm:"column:vote_count;not null" json:"vote_count"`
	Price     float64   `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Active    bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (VotePackage) TableName() string { return "vote_package" }

type TicketType struct {
	ID                string    `gorm:"column:id;primary_key;type:uuid" json:"id"`
	Name              string    `gorm:"column:name;type:varchar(128);not null" json:"name"`
	Price             float64   `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	QuantityAvailable int       `gorm:"column:quantity_available;not null;default:0" json:"quantity_available"`
	Active            bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (TicketType) TableName() string { return "ticket_type" }
