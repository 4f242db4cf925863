// Package service provides the business logic for accounts and boards,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/atinyakov/trellix/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations is the PBKDF2 work factor for password hashes.
	pbkdf2Iterations = 1000
	// pbkdf2KeyLen is the derived key length in bytes.
	pbkdf2KeyLen = 64
	// saltLen is the number of random bytes in a fresh salt.
	saltLen = 16
	// minPasswordLen is enforced on login only.
	minPasswordLen = 6
)

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// CreateAccount stores a new account together with its credential.
	// A taken email yields models.ErrDuplicateEmail.
	CreateAccount(ctx context.Context, account models.Account, credential models.Credential) error
	// GetCredentialByEmail returns the account with this exact email and its
	// credential, which may be nil. An unknown email yields models.ErrNotFound.
	GetCredentialByEmail(ctx context.Context, email string) (*models.Account, *models.Credential, error)
}

// AuthService implements signup and credential verification.
type AuthService struct {
	// repo performs the data-layer operations.
	repo AuthRepository
	// random supplies salt bytes.
	random io.Reader
}

// NewAuthService constructs a new AuthService using the provided repository.
func NewAuthService(repo AuthRepository) *AuthService {
	return &AuthService{repo: repo, random: rand.Reader}
}

// Create registers a new account for email with a freshly salted hash of
// password. The email is stored exactly as given.
func (s *AuthService) Create(ctx context.Context, email, password string) (*models.Account, error) {
	raw := make([]byte, saltLen)
	if _, err := io.ReadFull(s.random, raw); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	salt := hex.EncodeToString(raw)

	account := models.Account{ID: uuid.NewString(), Email: email}
	credential := models.Credential{
		AccountID: account.ID,
		Hash:      hashPassword(password, salt),
		Salt:      salt,
	}
	if err := s.repo.CreateAccount(ctx, account, credential); err != nil {
		return nil, err
	}
	return &account, nil
}

// Verify checks password against the credential stored for email. It returns
// the account id and true on a match. An unknown email, an account without a
// credential and a wrong password all return false with a nil error.
func (s *AuthService) Verify(ctx context.Context, email, password string) (string, bool, error) {
	account, credential, err := s.repo.GetCredentialByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if credential == nil {
		return "", false, nil
	}

	computed := hashPassword(password, credential.Salt)
	if subtle.ConstantTimeCompare([]byte(computed), []byte(credential.Hash)) != 1 {
		return "", false, nil
	}
	return account.ID, true, nil
}

// hashPassword derives the hex PBKDF2-HMAC-SHA256 hash of password. The hex
// salt string itself is the salt input, matching how stored hashes were made.
func hashPassword(password, salt string) string {
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return hex.EncodeToString(key)
}

// ValidateSignup checks signup input before any storage access.
func ValidateSignup(email, password string) error {
	verr := validateEmail(email)
	if password == "" {
		verr.Add("password", "Password is required.")
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

// ValidateLogin checks login input before any storage access. Unlike signup
// it also enforces the minimum password length.
func ValidateLogin(email, password string) error {
	verr := validateEmail(email)
	switch {
	case password == "":
		verr.Add("password", "Password is required.")
	case utf8.RuneCountInString(password) < minPasswordLen:
		verr.Add("password", "Password must be at least 6 characters.")
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

func validateEmail(email string) *models.ValidationError {
	verr := &models.ValidationError{}
	switch {
	case email == "":
		verr.Add("email", "Email is required.")
	case !strings.Contains(email, "@"):
		verr.Add("email", "Please enter a valid email address.")
	}
	return verr
}
