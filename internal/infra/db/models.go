package db

import "time"

type KeyPairModel struct {
	KID        string    `gorm:"primaryKey"`
	Alg        string    `gorm:"not null;default:''"`
	PublicJWK  []byte    `gorm:"type:jsonb;not null"`
	PrivateJWK []byte    `gorm:"type:jsonb"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (KeyPairModel) TableName() string {
	return "key_pairs"
}
