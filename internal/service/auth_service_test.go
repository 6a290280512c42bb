package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andy2076/school-chat-system/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthService(users *MockUserRepository, codes *MockEnrollmentCodeRepository) *AuthService {
	return NewAuthService(users, codes, AuthConfig{
		JWTSecret:  []byte("test-secret-key-12345"),
		SessionTTL: time.Hour,
	})
}

func seedCode(codes *MockEnrollmentCodeRepository, code string, studentID uint, expiresAt time.Time) *models.EnrollmentCode {
	ec := &models.EnrollmentCode{
		Code:      code,
		StudentID: studentID,
		ExpiresAt: expiresAt,
	}
	codes.Create(ec)
	return ec
}

func TestEnroll(t *testing.T) {
	tests := []struct {
		name        string
		lineUserID  string
		displayName string
		code        string
		wantErr     error
	}{
		{
			name:        "Valid enrollment",
			lineUserID:  "U1234567890",
			displayName: "Sato Parent",
			code:        "ABC123",
			wantErr:     nil,
		},
		{
			name:        "Unknown code",
			lineUserID:  "U0987654321",
			displayName: "Tanaka Parent",
			code:        "NOSUCH",
			wantErr:     ErrCodeInvalid,
		},
		{
			name:        "Expired code",
			lineUserID:  "U1111111111",
			displayName: "Suzuki Parent",
			code:        "OLD999",
			wantErr:     ErrCodeExpired,
		},
		{
			name:        "Missing display name",
			lineUserID:  "U2222222222",
			displayName: "",
			code:        "ABC123",
			wantErr:     ErrValidation,
		},
		{
			name:        "Malformed code",
			lineUserID:  "U3333333333",
			displayName: "Ito Parent",
			code:        "ab!",
			wantErr:     ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := NewMockUserRepository()
			codes := NewMockEnrollmentCodeRepository(users)
			seedCode(codes, "ABC123", 10, time.Now().Add(time.Hour))
			seedCode(codes, "OLD999", 11, time.Now().Add(-time.Hour))
			authService := newTestAuthService(users, codes)

			user, err := authService.Enroll(tt.lineUserID, tt.displayName, tt.code)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Enroll error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if user.Role != models.RoleParent {
				t.Errorf("enrolled user role = %q, want %q", user.Role, models.RoleParent)
			}
			if user.StudentID == nil || *user.StudentID != 10 {
				t.Errorf("enrolled user not linked to student 10: %v", user.StudentID)
			}
		})
	}
}

func TestEnrollUsedCode(t *testing.T) {
	users := NewMockUserRepository()
	codes := NewMockEnrollmentCodeRepository(users)
	seedCode(codes, "ABC123", 10, time.Now().Add(time.Hour))
	authService := newTestAuthService(users, codes)

	if _, err := authService.Enroll("U_first", "First Parent", "ABC123"); err != nil {
		t.Fatalf("first enrollment failed: %v", err)
	}
	_, err := authService.Enroll("U_second", "Second Parent", "ABC123")
	if !errors.Is(err, ErrCodeAlreadyUsed) {
		t.Errorf("reused code error = %v, want ErrCodeAlreadyUsed", err)
	}
}

func TestEnrollIdempotentForKnownLineUser(t *testing.T) {
	users := NewMockUserRepository()
	codes := NewMockEnrollmentCodeRepository(users)
	seedCode(codes, "ABC123", 10, time.Now().Add(time.Hour))
	authService := newTestAuthService(users, codes)

	first, err := authService.Enroll("U_repeat", "Repeat Parent", "ABC123")
	if err != nil {
		t.Fatalf("first enrollment failed: %v", err)
	}

	// Re-enrolling the same LINE identity returns the existing user even
	// with a garbage code.
	second, err := authService.Enroll("U_repeat", "Repeat Parent", "GARBAGE")
	if err != nil {
		t.Fatalf("repeat enrollment failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("repeat enrollment created a new user: %d vs %d", first.ID, second.ID)
	}
}

func TestEnrollRefreshesDisplayName(t *testing.T) {
	users := NewMockUserRepository()
	codes := NewMockEnrollmentCodeRepository(users)
	seedCode(codes, "ABC123", 10, time.Now().Add(time.Hour))
	authService := newTestAuthService(users, codes)

	first, err := authService.Enroll("U_rename", "Old Name", "ABC123")
	if err != nil {
		t.Fatalf("first enrollment failed: %v", err)
	}

	second, err := authService.Enroll("U_rename", "New Name", "ABC123")
	if err != nil {
		t.Fatalf("repeat enrollment failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("repeat enrollment created a new user: %d vs %d", second.ID, first.ID)
	}
	if second.DisplayName != "New Name" {
		t.Errorf("display name = %q, want the refreshed one", second.DisplayName)
	}
	stored, err := users.FindByID(first.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if stored.DisplayName != "New Name" {
		t.Errorf("stored display name = %q, want the refreshed one", stored.DisplayName)
	}
}

func TestEnrollConcurrentCodeUse(t *testing.T) {
	users := NewMockUserRepository()
	codes := NewMockEnrollmentCodeRepository(users)
	seedCode(codes, "ABC123", 10, time.Now().Add(time.Hour))
	authService := newTestAuthService(users, codes)

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = authService.Enroll(
				"U_concurrent_"+string(rune('a'+n)),
				"Concurrent Parent",
				"ABC123",
			)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrCodeAlreadyUsed) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("code consumed %d times, want exactly 1", succeeded)
	}
}

func TestStaffLogin(t *testing.T) {
	users := NewMockUserRepository()
	codes := NewMockEnrollmentCodeRepository(users)
	authService := newTestAuthService(users, codes)

	hash, _ := bcrypt.GenerateFromPassword([]byte("teacher-pass-123"), bcrypt.DefaultCost)
	teacherHash := string(hash)
	teacherEmail := "teacher@school.example"
	users.Create(&models.User{
		LineUserID:   "U_teacher",
		DisplayName:  "Yamada Teacher",
		Role:         models.RoleTeacher,
		Email:        &teacherEmail,
		PasswordHash: &teacherHash,
	})

	parentEmail := "parent@school.example"
	users.Create(&models.User{
		LineUserID:   "U_parent",
		DisplayName:  "Parent With Password",
		Role:         models.RoleParent,
		Email:        &parentEmail,
		PasswordHash: &teacherHash,
	})

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"Valid login", "teacher@school.example", "teacher-pass-123", nil},
		{"Wrong password", "teacher@school.example", "wrong", ErrCredentialInvalid},
		{"Unknown email", "nobody@school.example", "teacher-pass-123", ErrCredentialInvalid},
		{"Parent cannot staff login", "parent@school.example", "teacher-pass-123", ErrCredentialInvalid},
		{"Empty password", "teacher@school.example", "", ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := authService.StaffLogin(tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("StaffLogin error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && user.Role != models.RoleTeacher {
				t.Errorf("logged in role = %q, want teacher", user.Role)
			}
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	users := NewMockUserRepository()
	codes := NewMockEnrollmentCodeRepository(users)
	authService := newTestAuthService(users, codes)

	studentID := uint(7)
	user := &models.User{ID: 42, Role: models.RoleParent, StudentID: &studentID}
	token, err := authService.IssueSession(user)
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	claims, err := authService.ValidateSession(token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("claims.UserID = %d, want 42", claims.UserID)
	}
	if claims.Role != models.RoleParent {
		t.Errorf("claims.Role = %q, want parent", claims.Role)
	}
	if claims.StudentID == nil || *claims.StudentID != 7 {
		t.Errorf("claims.StudentID = %v, want 7", claims.StudentID)
	}
}

func TestSessionExpiry(t *testing.T) {
	users := NewMockUserRepository()
	codes := NewMockEnrollmentCodeRepository(users)
	authService := newTestAuthService(users, codes)

	current := time.Now()
	authService.now = func() time.Time { return current }

	token, err := authService.IssueSession(&models.User{ID: 1, Role: models.RoleTeacher})
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if _, err := authService.ValidateSession(token); err != nil {
		t.Fatalf("fresh credential rejected: %v", err)
	}

	current = current.Add(2 * time.Hour)
	_, err = authService.ValidateSession(token)
	if !errors.Is(err, ErrCredentialExpired) {
		t.Errorf("expired credential error = %v, want ErrCredentialExpired", err)
	}
}

func TestValidateSessionRejectsGarbage(t *testing.T) {
	users := NewMockUserRepository()
	codes := NewMockEnrollmentCodeRepository(users)
	authService := newTestAuthService(users, codes)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := authService.ValidateSession(token); !errors.Is(err, ErrCredentialInvalid) {
			t.Errorf("ValidateSession(%q) error = %v, want ErrCredentialInvalid", token, err)
		}
	}

	// A credential signed with a different secret is invalid, not expired.
	other := NewAuthService(users, codes, AuthConfig{JWTSecret: []byte("other-secret"), SessionTTL: time.Hour})
	token, _ := other.IssueSession(&models.User{ID: 1, Role: models.RoleParent})
	if _, err := authService.ValidateSession(token); !errors.Is(err, ErrCredentialInvalid) {
		t.Errorf("foreign-signed credential error = %v, want ErrCredentialInvalid", err)
	}
}

func TestAuthorize(t *testing.T) {
	users := NewMockUserRepository()
	codes := NewMockEnrollmentCodeRepository(users)
	authService := newTestAuthService(users, codes)

	tests := []struct {
		role models.Role
		min  models.Role
		want bool
	}{
		{models.RoleAdmin, models.RoleParent, true},
		{models.RoleAdmin, models.RoleTeacher, true},
		{models.RoleAdmin, models.RoleAdmin, true},
		{models.RoleTeacher, models.RoleParent, true},
		{models.RoleTeacher, models.RoleTeacher, true},
		{models.RoleTeacher, models.RoleAdmin, false},
		{models.RoleParent, models.RoleParent, true},
		{models.RoleParent, models.RoleTeacher, false},
		{models.RoleParent, models.RoleAdmin, false},
	}
	for _, tt := range tests {
		got := authService.Authorize(&SessionClaims{Role: tt.role}, tt.min)
		if got != tt.want {
			t.Errorf("Authorize(%s, min=%s) = %v, want %v", tt.role, tt.min, got, tt.want)
		}
	}
	if authService.Authorize(nil, models.RoleParent) {
		t.Error("Authorize(nil) = true, want false")
	}
}

func TestIssueEnrollmentCode(t *testing.T) {
	users := NewMockUserRepository()
	codes := NewMockEnrollmentCodeRepository(users)
	authService := newTestAuthService(users, codes)

	code, err := authService.IssueEnrollmentCode(15, 2*time.Hour)
	if err != nil {
		t.Fatalf("IssueEnrollmentCode failed: %v", err)
	}
	if code.StudentID != 15 {
		t.Errorf("code.StudentID = %d, want 15", code.StudentID)
	}
	if len(code.Code) < 6 {
		t.Errorf("code %q too short", code.Code)
	}
	if !code.ExpiresAt.After(time.Now()) {
		t.Errorf("code expires in the past: %v", code.ExpiresAt)
	}

	// The issued code is immediately enrollable.
	if _, err := authService.Enroll("U_new", "New Parent", code.Code); err != nil {
		t.Errorf("enroll with issued code failed: %v", err)
	}

	if _, err := authService.IssueEnrollmentCode(0, time.Hour); !errors.Is(err, ErrValidation) {
		t.Errorf("zero student id error = %v, want ErrValidation", err)
	}
}
