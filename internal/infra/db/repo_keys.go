package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jsonsig/internal/domain"
	"jsonsig/internal/infra/crypto"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KeyPairRepository is a domain.KeyStore over the key_pairs table.
type KeyPairRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewKeyPairRepository(db *gorm.DB) *KeyPairRepository {
	return &KeyPairRepository{db: db, now: time.Now}
}

func (r *KeyPairRepository) Get(ctx context.Context, id string) (*domain.KeyPair, bool, error) {
	if r.db == nil {
		return nil, false, errDBUnavailable
	}
	var model KeyPairModel
	err := r.db.WithContext(ctx).
		Where("kid = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	pair, err := keyPairFromModel(model)
	if err != nil {
		return nil, false, fmt.Errorf("decode key record %q: %w", id, err)
	}
	return pair, true, nil
}

func (r *KeyPairRepository) Set(ctx context.Context, id string, pair domain.KeyPair) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model, err := keyPairToModel(id, pair)
	if err != nil {
		return err
	}
	now := r.now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "kid"}},
			DoUpdates: clause.AssignmentColumns([]string{"alg", "public_jwk", "private_jwk", "updated_at"}),
		}).
		Create(&model).Error
}

func keyPairToModel(id string, pair domain.KeyPair) (KeyPairModel, error) {
	pub, err := crypto.MarshalPublicJWK(id, pair)
	if err != nil {
		return KeyPairModel{}, err
	}
	model := KeyPairModel{
		KID:       id,
		Alg:       string(pair.Algorithm),
		PublicJWK: pub,
	}
	if pair.HasPrivate() {
		priv, err := crypto.MarshalPrivateJWK(id, pair)
		if err != nil {
			return KeyPairModel{}, err
		}
		model.PrivateJWK = priv
	}
	return model, nil
}

func keyPairFromModel(model KeyPairModel) (*domain.KeyPair, error) {
	source := model.PrivateJWK
	if len(source) == 0 {
		source = model.PublicJWK
	}
	pair, err := crypto.ParseJWK(copyBytes(source))
	if err != nil {
		return nil, err
	}
	pair.Algorithm = domain.Algorithm(model.Alg)
	return &pair, nil
}

var _ domain.KeyStore = (*KeyPairRepository)(nil)
