package services

import (
	"context"

	"github.com/rotisserie/eris"

	db "github.com/markdave123-py/docchat/internal/core/database"
	"github.com/markdave123-py/docchat/internal/models"
)

type UserService struct {
	db db.DbClient
}

func NewUserService(dbc db.DbClient) *UserService {
	return &UserService{db: dbc}
}

func (s *UserService) Create(ctx context.Context, u *models.User) error {
	if u == nil || u.Email == "" || u.PasswordHash == "" {
		return eris.Wrap(ErrValidation, "invalid user payload")
	}
	return s.db.CreateUser(ctx, u)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.db.GetUserByEmail(ctx, email)
}
