package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"librarycat/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	getByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
	getByIDFn       func(ctx context.Context, id int64) (*domain.User, error)
	createFn        func(ctx context.Context, username, passwordHash string) (*domain.User, error)
	countFn         func(ctx context.Context) (int, error)
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.getByUsernameFn != nil {
		return m.getByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return &domain.User{ID: id, Username: "testuser"}, nil
}

func (m *mockUserRepo) Create(ctx context.Context, username, passwordHash string) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, username, passwordHash)
	}
	return &domain.User{ID: 1, Username: username, PasswordHash: passwordHash}, nil
}

func (m *mockUserRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, s *domain.Session) error
	getByTokenFn    func(ctx context.Context, token string) (*domain.Session, error)
	deleteFn        func(ctx context.Context, token string) error
	deleteExpiredFn func(ctx context.Context) (int64, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, token string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return 0, nil
}

func testHasher(t *testing.T) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(SchemeBcrypt)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestAuthService_Login_Success(t *testing.T) {
	ctx := context.Background()
	password := "testpass123"
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)

	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return &domain.User{
				ID:           1,
				Username:     "testuser",
				PasswordHash: string(hash),
			}, nil
		},
	}

	var created *domain.Session
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, s *domain.Session) error {
			created = s
			return nil
		},
	}

	svc := NewAuthService(users, sessions, WithHasher(testHasher(t)), WithSessionTTL(time.Hour))
	token, err := svc.Login(ctx, "testuser", password)

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token == "" {
		t.Fatal("expected token, got empty string")
	}
	if created == nil || created.Token != token {
		t.Fatal("expected session to be stored under the returned token")
	}
	if created.UserID != 1 || created.Username != "testuser" {
		t.Errorf("unexpected session identity %d/%s", created.UserID, created.Username)
	}
	if d := created.ExpiresAt.Sub(created.CreatedAt); d != time.Hour {
		t.Errorf("expected 1h session lifetime, got %v", d)
	}
}

func TestAuthService_Login_Failures(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)

	tests := []struct {
		name     string
		user     *domain.User
		password string
	}{
		{"wrong password", &domain.User{ID: 1, Username: "u", PasswordHash: string(hash)}, "wrongpass"},
		{"unknown user", nil, "correctpass"},
		{"malformed hash", &domain.User{ID: 1, Username: "u", PasswordHash: "not-a-hash"}, "correctpass"},
		{"sso account without password", &domain.User{ID: 1, Username: "u"}, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users := &mockUserRepo{
				getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
					return tc.user, nil
				},
			}
			sessions := &mockSessionRepo{
				createFn: func(ctx context.Context, s *domain.Session) error {
					t.Fatal("no session may be created")
					return nil
				},
			}
			svc := NewAuthService(users, sessions, WithHasher(testHasher(t)))

			_, err := svc.Login(context.Background(), "u", tc.password)
			if err != ErrInvalidCredentials {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestAuthService_Login_StorageError(t *testing.T) {
	boom := errors.New("connection refused")
	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return nil, boom
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{}, WithHasher(testHasher(t)))

	_, err := svc.Login(context.Background(), "u", "p")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped storage error, got %v", err)
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("storage failure must not look like bad credentials")
	}
}

func TestAuthService_Signup(t *testing.T) {
	ctx := context.Background()

	var stored string
	users := &mockUserRepo{
		createFn: func(ctx context.Context, username, passwordHash string) (*domain.User, error) {
			if username != "alice" {
				t.Errorf("expected username 'alice', got %s", username)
			}
			stored = passwordHash
			return &domain.User{ID: 7, Username: username, PasswordHash: passwordHash}, nil
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{}, WithHasher(testHasher(t)))
	u, err := svc.Signup(ctx, "alice", "pw123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if u.ID != 7 {
		t.Errorf("expected id 7, got %d", u.ID)
	}
	if stored == "" || stored == "pw123" {
		t.Fatalf("expected a password hash, got %q", stored)
	}
	if !VerifyPassword("pw123", stored) {
		t.Fatal("stored hash does not verify")
	}
}

func TestAuthService_Signup_Duplicate(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(ctx context.Context, username, passwordHash string) (*domain.User, error) {
			return nil, domain.ErrDuplicateUsername
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{}, WithHasher(testHasher(t)))

	_, err := svc.Signup(context.Background(), "alice", "pw123")
	if err != domain.ErrDuplicateUsername {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestAuthService_Signup_Empty(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(ctx context.Context, username, passwordHash string) (*domain.User, error) {
			t.Fatal("create must not be called")
			return nil, nil
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{}, WithHasher(testHasher(t)))

	for _, creds := range [][2]string{{"", "pw"}, {"  ", "pw"}, {"alice", ""}} {
		if _, err := svc.Signup(context.Background(), creds[0], creds[1]); err != ErrInvalidSignup {
			t.Errorf("Signup(%q, %q): expected ErrInvalidSignup, got %v", creds[0], creds[1], err)
		}
	}
}

func TestAuthService_CurrentSession_Valid(t *testing.T) {
	ctx := context.Background()
	token := "validtoken"

	sessions := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, tok string) (*domain.Session, error) {
			return &domain.Session{
				Token:     token,
				UserID:    1,
				Username:  "testuser",
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}

	svc := NewAuthService(&mockUserRepo{}, sessions, WithHasher(testHasher(t)))
	id, err := svc.CurrentSession(ctx, token)

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id.UserID != 1 || id.Username != "testuser" {
		t.Errorf("unexpected identity %+v", id)
	}
}

func TestAuthService_CurrentSession_Expired(t *testing.T) {
	ctx := context.Background()
	token := "expiredtoken"

	deleted := false
	sessions := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, tok string) (*domain.Session, error) {
			return &domain.Session{
				Token:     token,
				UserID:    1,
				ExpiresAt: time.Now().Add(-1 * time.Hour),
			}, nil
		},
		deleteFn: func(ctx context.Context, tok string) error {
			deleted = true
			return nil
		},
	}

	svc := NewAuthService(&mockUserRepo{}, sessions, WithHasher(testHasher(t)))

	_, err := svc.CurrentSession(ctx, token)
	if err != ErrSessionExpired {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
	if !deleted {
		t.Error("expected session to be deleted")
	}
}

func TestAuthService_CurrentSession_UserGone(t *testing.T) {
	deleted := false
	sessions := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, tok string) (*domain.Session, error) {
			return &domain.Session{Token: tok, UserID: 9, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
		deleteFn: func(ctx context.Context, tok string) error {
			deleted = true
			return nil
		},
	}
	users := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
			return nil, nil
		},
	}
	svc := NewAuthService(users, sessions, WithHasher(testHasher(t)))

	_, err := svc.CurrentSession(context.Background(), "tok")
	if err != ErrSessionNotFound {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if !deleted {
		t.Error("expected dangling session to be deleted")
	}
}

func TestAuthService_RequireSession(t *testing.T) {
	boom := errors.New("db down")
	tests := []struct {
		name    string
		token   string
		lookup  func(ctx context.Context, token string) (*domain.Session, error)
		wantErr error
	}{
		{"empty token", "", nil, ErrUnauthenticated},
		{"unknown token", "nope", nil, ErrUnauthenticated},
		{"expired", "old", func(ctx context.Context, token string) (*domain.Session, error) {
			return &domain.Session{Token: token, UserID: 1, ExpiresAt: time.Now().Add(-time.Minute)}, nil
		}, ErrUnauthenticated},
		{"storage failure", "tok", func(ctx context.Context, token string) (*domain.Session, error) {
			return nil, boom
		}, boom},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewAuthService(&mockUserRepo{}, &mockSessionRepo{getByTokenFn: tc.lookup}, WithHasher(testHasher(t)))
			id, err := svc.RequireSession(context.Background(), tc.token)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if id != nil {
				t.Fatalf("expected no identity, got %+v", id)
			}
		})
	}
}

func TestAuthService_Logout(t *testing.T) {
	var deletedToken string
	sessions := &mockSessionRepo{
		deleteFn: func(ctx context.Context, tok string) error {
			deletedToken = tok
			return nil
		},
	}
	svc := NewAuthService(&mockUserRepo{}, sessions, WithHasher(testHasher(t)))

	if err := svc.Logout(context.Background(), "abc"); err != nil {
		t.Fatal(err)
	}
	if deletedToken != "abc" {
		t.Errorf("expected abc to be deleted, got %q", deletedToken)
	}
	if err := svc.Logout(context.Background(), ""); err != nil {
		t.Fatalf("empty logout should succeed, got %v", err)
	}
}

func TestAuthService_LoginWithUser_ExistingUser(t *testing.T) {
	ctx := context.Background()

	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return &domain.User{
				ID:       1,
				Username: "ssouser",
			}, nil
		},
		createFn: func(ctx context.Context, username, passwordHash string) (*domain.User, error) {
			t.Fatal("existing user must not be recreated")
			return nil, nil
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{}, WithHasher(testHasher(t)))

	token, err := svc.LoginWithUser(ctx, "ssouser")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token == "" {
		t.Error("expected a token")
	}
}

func TestAuthService_LoginWithUser_ProvisionRace(t *testing.T) {
	ctx := context.Background()

	lookups := 0
	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			lookups++
			if lookups == 1 {
				return nil, nil
			}
			return &domain.User{ID: 2, Username: username}, nil
		},
		createFn: func(ctx context.Context, username, passwordHash string) (*domain.User, error) {
			if passwordHash != "" {
				t.Errorf("provisioned user must not get a password hash, got %q", passwordHash)
			}
			return nil, domain.ErrDuplicateUsername
		},
	}

	var sessionUser int64
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, s *domain.Session) error {
			sessionUser = s.UserID
			return nil
		},
	}
	svc := NewAuthService(users, sessions, WithHasher(testHasher(t)))

	if _, err := svc.LoginWithUser(ctx, "newssouser"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sessionUser != 2 {
		t.Errorf("expected session for user 2, got %d", sessionUser)
	}
}

func TestAuthService_LoginWithUser_RefusesPasswordAccount(t *testing.T) {
	ctx := context.Background()

	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return &domain.User{ID: 1, Username: username, PasswordHash: "pbkdf2:sha256:600000$salt$00"}, nil
		},
	}
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, s *domain.Session) error {
			t.Fatal("no session may be created for a password account")
			return nil
		},
	}
	svc := NewAuthService(users, sessions, WithHasher(testHasher(t)))

	if _, err := svc.LoginWithUser(ctx, "alice@corp.example"); !errors.Is(err, ErrNotSSOAccount) {
		t.Fatalf("expected ErrNotSSOAccount, got %v", err)
	}
}

func TestAuthService_LoginWithUser_RaceLostToSignup(t *testing.T) {
	ctx := context.Background()

	lookups := 0
	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			lookups++
			if lookups == 1 {
				return nil, nil
			}
			return &domain.User{ID: 3, Username: username, PasswordHash: "$2a$10$x"}, nil
		},
		createFn: func(ctx context.Context, username, passwordHash string) (*domain.User, error) {
			return nil, domain.ErrDuplicateUsername
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{}, WithHasher(testHasher(t)))

	if _, err := svc.LoginWithUser(ctx, "bob"); !errors.Is(err, ErrNotSSOAccount) {
		t.Fatalf("expected ErrNotSSOAccount, got %v", err)
	}
}

func TestAuthService_Signup_PasswordTooLong(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(ctx context.Context, username, passwordHash string) (*domain.User, error) {
			t.Fatal("user must not be created")
			return nil, nil
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{}, WithHasher(testHasher(t)))

	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := svc.Signup(context.Background(), "alice", string(long)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}
