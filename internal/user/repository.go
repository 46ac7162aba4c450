package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/creativeplayground/accounts/internal/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user. The account starts inactive and unverified;
// the verification token is handed to the email sender by the caller.
func (r *Repository) Create(ctx context.Context, email, passwordHash, verificationToken string) (*User, error) {
	now := time.Now()
	dbUser := &database.User{
		Email:                   NormalizeEmail(email),
		PasswordHash:            passwordHash,
		Active:                  false,
		EmailVerified:           false,
		EmailVerificationToken:  &verificationToken,
		EmailVerificationSentAt: &now,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by normalized email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("lower(email) = ?", NormalizeEmail(email)).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByVerificationToken retrieves the not-yet-verified holder of a token
func (r *Repository) GetByVerificationToken(ctx context.Context, token string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email_verification_token = ?", token).
		Where("email_verified = ?", false).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by verification token: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// CheckIfTokenAlreadyUsed reports whether a verification token belongs to an
// already-verified user. Spent tokens keep their column value so a repeated
// verification attempt can be answered idempotently instead of as "invalid".
func (r *Repository) CheckIfTokenAlreadyUsed(ctx context.Context, token string) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*database.User)(nil)).
		Where("email_verification_token = ?", token).
		Where("email_verified = ?", true).
		Count(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to check if token was used: %w", err)
	}

	return count > 0, nil
}

// Activate marks the account active and verified. Flipping the flags and the
// verified=false guard happen in a single UPDATE, so a token can only ever be
// spent once even under concurrent verification attempts.
func (r *Repository) Activate(ctx context.Context, userID uuid.UUID) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("active = ?", true).
		Set("email_verified = ?", true).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Where("email_verified = ?", false).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to activate user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdatePassword updates a user's password hash
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateVerificationToken rotates the verification token for resend.
// The previous token stops working the moment this commits.
func (r *Repository) UpdateVerificationToken(ctx context.Context, userID uuid.UUID, token string) error {
	now := time.Now()
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("email_verification_token = ?", token).
		Set("email_verification_sent_at = ?", now).
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Where("email_verified = ?", false).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to update verification token: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// ProfileUpdate carries the editable profile fields. Nil pointers mean
// "leave unchanged".
type ProfileUpdate struct {
	Username    *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	DateOfBirth *time.Time
}

// UpdateProfile applies a partial profile update and returns the new state
func (r *Repository) UpdateProfile(ctx context.Context, userID uuid.UUID, update ProfileUpdate) (*User, error) {
	q := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("updated_at = NOW()").
		Where("id = ?", userID)

	if update.Username != nil {
		q = q.Set("username = ?", *update.Username)
	}
	if update.FirstName != nil {
		q = q.Set("first_name = ?", *update.FirstName)
	}
	if update.LastName != nil {
		q = q.Set("last_name = ?", *update.LastName)
	}
	if update.PhoneNumber != nil {
		q = q.Set("phone_number = ?", *update.PhoneNumber)
	}
	if update.DateOfBirth != nil {
		q = q.Set("date_of_birth = ?", *update.DateOfBirth)
	}

	result, err := q.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, userID)
}

// GetStats returns aggregate user counts. "Recent" means joined within the
// last 30 days.
func (r *Repository) GetStats(ctx context.Context) (*Stats, error) {
	total, err := r.db.NewSelect().
		Model((*database.User)(nil)).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	verified, err := r.db.NewSelect().
		Model((*database.User)(nil)).
		Where("email_verified = ?", true).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count verified users: %w", err)
	}

	since := time.Now().AddDate(0, 0, -30)
	recent, err := r.db.NewSelect().
		Model((*database.User)(nil)).
		Where("created_at >= ?", since).
		Where("active = ?", true).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent users: %w", err)
	}

	return &Stats{
		TotalUsers:    total,
		VerifiedUsers: verified,
		RecentUsers:   recent,
	}, nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:                      dbu.ID,
		Email:                   dbu.Email,
		PasswordHash:            dbu.PasswordHash,
		Active:                  dbu.Active,
		EmailVerified:           dbu.EmailVerified,
		EmailVerificationToken:  dbu.EmailVerificationToken,
		EmailVerificationSentAt: dbu.EmailVerificationSentAt,
		Username:                dbu.Username,
		FirstName:               dbu.FirstName,
		LastName:                dbu.LastName,
		PhoneNumber:             dbu.PhoneNumber,
		DateOfBirth:             dbu.DateOfBirth,
		CreatedAt:               dbu.CreatedAt,
		UpdatedAt:               dbu.UpdatedAt,
	}
}
