package service

import (
	"context"

	"github.com/Koyo-os/form-builder/internal/entity"
)

type (
	// Repository is the form store. Get returns entity.ErrFormNotFound for an unknown ID.
	Repository interface {
		Save(ctx context.Context, form *entity.Form) error
		Get(ctx context.Context, id string) (*entity.Form, error)
		List(ctx context.Context) ([]*entity.Form, error)
		Delete(ctx context.Context, id string) error
	}

	Publisher interface {
		Publish(payload any, routingKey string) error
	}

	Casher interface {
		AddToCash(ctx context.Context, key string, payload any) error
		GetCashFor(ctx context.Context, key string) ([]byte, error)
		RemoveFromCash(ctx context.Context, key string) error
	}
)
