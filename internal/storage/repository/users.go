package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/billing-gatekeeper/internal/models"
)

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, role, phone, created_at
			  FROM users
			  WHERE uid = $1`
	u := &models.User{}
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(
		&u.UID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.Phone, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByUsername возвращает пользователя по имени.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, username, password_hash, role, phone, created_at
			  FROM users
			  WHERE username = $1`
	u := &models.User{}
	err := s.DB.QueryRowContext(ctx, query, username).Scan(
		&u.UID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.Phone, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// EmailTaken проверяет, занят ли email.
func (s *Storage) EmailTaken(ctx context.Context, email string) (bool, error) {
	const op = "storage.EmailTaken"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	if err := s.DB.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// UsernameTaken проверяет, занято ли имя пользователя.
func (s *Storage) UsernameTaken(ctx context.Context, username string) (bool, error) {
	const op = "storage.UsernameTaken"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`
	if err := s.DB.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// BrandNameTaken проверяет, занято ли имя бренда.
func (s *Storage) BrandNameTaken(ctx context.Context, name string) (bool, error) {
	const op = "storage.BrandNameTaken"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM brands WHERE name = $1)`
	if err := s.DB.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// GetBrandByOwner возвращает бренд, которым владеет пользователь.
func (s *Storage) GetBrandByOwner(ctx context.Context, ownerUID string) (*models.Brand, error) {
	const op = "storage.GetBrandByOwner"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, name, owner_uid, created_at FROM brands WHERE owner_uid = $1`
	b := &models.Brand{}
	err := s.DB.QueryRowContext(ctx, query, ownerUID).Scan(
		&b.UID, &b.Name, &b.OwnerUID, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}
