package model

import "github.com/google/uuid"

type Category struct {
	BaseModel
	Name string `gorm:"type:varchar(100);uniqueIndex;not null" json:"name" validate:"required,max=100"`
}

// CategoryRef is the resolved category of a product. A product without a
// category carries the zero ref.
type CategoryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
