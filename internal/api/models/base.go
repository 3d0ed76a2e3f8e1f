package models

import "time"

// Entity is any persisted record.
type Entity interface {
	GetBase() *Base
}

// Base carries the fields every persisted record has. The store assigns them.
type Base struct {
	ID        string    `bson:"_id" json:"_id"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (b *Base) GetBase() *Base {
	return b
}

// BaseVm is the public projection of Base.
type BaseVm struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func baseVm(b *Base) BaseVm {
	return BaseVm{ID: b.ID, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt}
}
