package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pharmatrust/drugtrace/internal/models"
)

// UserRepository handles user records in the off-chain store.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. Returns ErrDuplicate when the wallet address is
// already registered.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (wallet_address, role, name, api_key_hash, is_registered, registration_timestamp, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.WalletAddress, user.Role, user.Name, user.APIKeyHash,
		user.IsRegistered, user.RegistrationTimestamp, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByWallet retrieves a user by wallet address. Returns (nil, nil) when no
// user exists.
func (r *UserRepository) GetByWallet(ctx context.Context, walletAddress string) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx,
		`SELECT wallet_address, role, name, api_key_hash, is_registered, registration_timestamp, created_at
		 FROM users WHERE wallet_address = $1`,
		walletAddress,
	).Scan(&user.WalletAddress, &user.Role, &user.Name, &user.APIKeyHash,
		&user.IsRegistered, &user.RegistrationTimestamp, &user.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// List retrieves all registered users.
func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT wallet_address, role, name, api_key_hash, is_registered, registration_timestamp, created_at
		 FROM users ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.WalletAddress, &user.Role, &user.Name, &user.APIKeyHash,
			&user.IsRegistered, &user.RegistrationTimestamp, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Count returns the number of registered users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
