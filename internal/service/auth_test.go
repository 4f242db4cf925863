package service

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/atinyakov/trellix/internal/models"
	"github.com/google/uuid"
)

type mockAuthRepo struct {
	CreateAccountFunc        func(ctx context.Context, account models.Account, credential models.Credential) error
	GetCredentialByEmailFunc func(ctx context.Context, email string) (*models.Account, *models.Credential, error)
}

func (m *mockAuthRepo) CreateAccount(ctx context.Context, account models.Account, credential models.Credential) error {
	return m.CreateAccountFunc(ctx, account, credential)
}

func (m *mockAuthRepo) GetCredentialByEmail(ctx context.Context, email string) (*models.Account, *models.Credential, error) {
	return m.GetCredentialByEmailFunc(ctx, email)
}

// memoryAuthRepo keeps accounts in a map keyed by email.
type memoryAuthRepo struct {
	accounts map[string]models.Account
	creds    map[string]models.Credential
}

func newMemoryAuthRepo() *memoryAuthRepo {
	return &memoryAuthRepo{
		accounts: make(map[string]models.Account),
		creds:    make(map[string]models.Credential),
	}
}

func (m *memoryAuthRepo) CreateAccount(_ context.Context, account models.Account, credential models.Credential) error {
	if _, ok := m.accounts[account.Email]; ok {
		return models.ErrDuplicateEmail
	}
	m.accounts[account.Email] = account
	m.creds[account.ID] = credential
	return nil
}

func (m *memoryAuthRepo) GetCredentialByEmail(_ context.Context, email string) (*models.Account, *models.Credential, error) {
	account, ok := m.accounts[email]
	if !ok {
		return nil, nil, models.ErrNotFound
	}
	cred, ok := m.creds[account.ID]
	if !ok {
		return &account, nil, nil
	}
	return &account, &cred, nil
}

func TestCreate_HashesWithSalt(t *testing.T) {
	var stored models.Credential
	var storedAccount models.Account
	repo := &mockAuthRepo{
		CreateAccountFunc: func(ctx context.Context, account models.Account, credential models.Credential) error {
			storedAccount, stored = account, credential
			return nil
		},
	}
	svc := NewAuthService(repo)
	svc.random = bytes.NewReader([]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15})

	account, err := svc.Create(context.Background(), "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := uuid.Parse(account.ID); err != nil {
		t.Errorf("account id %q is not a uuid: %v", account.ID, err)
	}
	if storedAccount.Email != "a@b.com" || stored.AccountID != account.ID {
		t.Errorf("stored account = %+v, credential = %+v", storedAccount, stored)
	}
	if stored.Salt != "000102030405060708090a0b0c0d0e0f" {
		t.Errorf("salt = %q; want hex of the random bytes", stored.Salt)
	}
	const wantHash = "8fb2d69c319d7a82e8031b4d9e327c085de26202b2b8d6fd992f8832d9fbe9aa" +
		"5a7d6a7a392446d99cc870f223caeb122a857ae2e4c4a0ea30eb4291d34337f5"
	if stored.Hash != wantHash {
		t.Errorf("hash = %q; want %q", stored.Hash, wantHash)
	}
}

func TestCreate_RepoError(t *testing.T) {
	repo := &mockAuthRepo{
		CreateAccountFunc: func(ctx context.Context, account models.Account, credential models.Credential) error {
			return models.ErrDuplicateEmail
		},
	}
	svc := NewAuthService(repo)

	if _, err := svc.Create(context.Background(), "a@b.com", "secret1"); !errors.Is(err, models.ErrDuplicateEmail) {
		t.Fatalf("Create error = %v; want ErrDuplicateEmail", err)
	}
}

func TestCreate_RandomFailure(t *testing.T) {
	svc := NewAuthService(&mockAuthRepo{})
	svc.random = bytes.NewReader(nil)

	if _, err := svc.Create(context.Background(), "a@b.com", "secret1"); err == nil {
		t.Fatal("expected error when salt cannot be generated")
	}
}

func TestSignupThenVerify(t *testing.T) {
	svc := NewAuthService(newMemoryAuthRepo())
	ctx := context.Background()

	account, err := svc.Create(ctx, "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	id, ok, err := svc.Verify(ctx, "a@b.com", "secret1")
	if err != nil || !ok || id != account.ID {
		t.Errorf("Verify(correct) = %q, %v, %v; want %q, true, nil", id, ok, err, account.ID)
	}

	id, ok, err = svc.Verify(ctx, "a@b.com", "wrong")
	if err != nil || ok || id != "" {
		t.Errorf("Verify(wrong) = %q, %v, %v; want false", id, ok, err)
	}
}

func TestVerify_Failures(t *testing.T) {
	tests := []struct {
		name    string
		lookup  func(ctx context.Context, email string) (*models.Account, *models.Credential, error)
		wantErr bool
	}{
		{
			name: "unknown email",
			lookup: func(ctx context.Context, email string) (*models.Account, *models.Credential, error) {
				return nil, nil, models.ErrNotFound
			},
		},
		{
			name: "no credential row",
			lookup: func(ctx context.Context, email string) (*models.Account, *models.Credential, error) {
				return &models.Account{ID: "acc", Email: email}, nil, nil
			},
		},
		{
			name: "wrong password",
			lookup: func(ctx context.Context, email string) (*models.Account, *models.Credential, error) {
				return &models.Account{ID: "acc", Email: email},
					&models.Credential{AccountID: "acc", Hash: hashPassword("other", "ab"), Salt: "ab"}, nil
			},
		},
		{
			name: "storage failure",
			lookup: func(ctx context.Context, email string) (*models.Account, *models.Credential, error) {
				return nil, nil, errors.New("db down")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAuthService(&mockAuthRepo{GetCredentialByEmailFunc: tt.lookup})
			id, ok, err := svc.Verify(context.Background(), "a@b.com", "secret1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify error = %v; wantErr %v", err, tt.wantErr)
			}
			if ok || id != "" {
				t.Errorf("Verify = %q, %v; want empty, false", id, ok)
			}
		})
	}
}

func TestValidateLogin(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		want     map[string]string
	}{
		{"valid", "a@b.com", "secret1", nil},
		{"missing both", "", "", map[string]string{"email": "Email is required.", "password": "Password is required."}},
		{"bad email", "ab.com", "secret1", map[string]string{"email": "Please enter a valid email address."}},
		{"short password", "a@b.com", "12345", map[string]string{"password": "Password must be at least 6 characters."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLogin(tt.email, tt.password)
			checkValidation(t, err, tt.want)
		})
	}
}

func TestValidateSignup(t *testing.T) {
	// Signup does not enforce a minimum length.
	checkValidation(t, ValidateSignup("a@b.com", "123"), nil)
	checkValidation(t, ValidateSignup("nope", ""), map[string]string{
		"email":    "Please enter a valid email address.",
		"password": "Password is required.",
	})
}

func checkValidation(t *testing.T, err error, want map[string]string) {
	t.Helper()
	if want == nil {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v; want ValidationError", err)
	}
	if len(verr.Fields) != len(want) {
		t.Fatalf("fields = %v; want %v", verr.Fields, want)
	}
	for k, v := range want {
		if verr.Fields[k] != v {
			t.Errorf("field %s = %q; want %q", k, verr.Fields[k], v)
		}
	}
}
