package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 10

var (
	// ErrEmailTaken indicates a registration collided with an existing account.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrInvalidCredentials indicates an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrMissingCredentials indicates a request without an email or password.
	ErrMissingCredentials = errors.New("users: email and password are required")
)

// ServiceConfig describes the dependencies required for account management.
type ServiceConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
}

// Service registers accounts and checks credentials at login.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs the account service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("users: database connection required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock}, nil
}

// Register creates an account with a bcrypt-hashed password. The role is
// stored verbatim; it becomes a claim on every token issued to the account.
func (s *Service) Register(ctx context.Context, email, password, role string) (Account, error) {
	email = normalize(email)
	if email == "" || password == "" {
		return Account{}, ErrMissingCredentials
	}
	if role == "" {
		role = RoleConsumer
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return Account{}, err
	}

	account := Account{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Account
		err := tx.Where("email = ?", email).Take(&existing).Error
		if err == nil {
			return fmt.Errorf("%w: %s", ErrEmailTaken, email)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// Authenticate verifies the email/password pair and returns the account.
// Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	email = normalize(email)
	if email == "" || password == "" {
		return Account{}, ErrMissingCredentials
	}

	var account Account
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return account, nil
}
