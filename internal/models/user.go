package models

import "time"

type User struct {
	ID        string    `json:"id" example:"5f0c6f0e-8a39-4c6e-a6c4-0d5b5b3a1f10"`
	Name      string    `json:"name" example:"Maria Silva"`
	Document  string    `json:"document" example:"12345678909"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
