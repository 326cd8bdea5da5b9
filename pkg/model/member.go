package model

import "time"

type Member struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,uuid4"`
	FirstName string    `json:"first_name" bson:"first_name" validate:"required,min=2,max=50"`
	LastName  string    `json:"last_name" bson:"last_name" validate:"required,min=2,max=50"`
	Email     string    `json:"email" bson:"email" validate:"required,email"`
	Phone     string    `json:"phone" bson:"phone" validate:"required,e164"`
	BirthDate time.Time `json:"birth_date,omitempty" bson:"birth_date,omitempty" validate:"omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

type MemberUpdate struct {
	FirstName string     `json:"first_name,omitempty" validate:"omitempty,min=2,max=50"`
	LastName  string     `json:"last_name,omitempty" validate:"omitempty,min=2,max=50"`
	Email     string     `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string     `json:"phone,omitempty" validate:"omitempty,e164"`
	BirthDate *time.Time `json:"birth_date,omitempty" validate:"omitempty"`
}
