package service

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"log"
	"time"

	"github.com/andy2076/school-chat-system/internal/models"
	"github.com/andy2076/school-chat-system/internal/repository"
	"github.com/andy2076/school-chat-system/internal/validation"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const DefaultSessionTTL = 24 * time.Hour

// AuthConfig carries the signing material and session lifetime. It is
// built once in main and injected, so services never read the
// environment themselves.
type AuthConfig struct {
	JWTSecret  []byte
	SessionTTL time.Duration
}

// SessionClaims is the payload of an issued credential.
type SessionClaims struct {
	UserID    uint        `json:"user_id"`
	Role      models.Role `json:"role"`
	StudentID *uint       `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}

type AuthService struct {
	userRepo repository.UserRepositoryInterface
	codeRepo repository.EnrollmentCodeRepositoryInterface
	cfg      AuthConfig
	now      func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepositoryInterface,
	codeRepo repository.EnrollmentCodeRepositoryInterface,
	cfg AuthConfig,
) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		userRepo: userRepo,
		codeRepo: codeRepo,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Enroll exchanges a LINE identity plus a one-time code for a user
// record. If the LINE user already enrolled, the existing user is
// returned and the code is ignored. Otherwise the code is consumed
// atomically with user creation; a code is consumed at most once even
// under concurrent attempts.
func (s *AuthService) Enroll(lineUserID, displayName, code string) (*models.User, error) {
	if lineUserID == "" || !validation.ValidateDisplayName(displayName) {
		return nil, ErrValidation
	}

	if existing, err := s.userRepo.FindByLineUserID(lineUserID); err == nil {
		// Repeat enrollment from the same LINE account: refresh the
		// display name if it changed, ignore the code.
		if name := validation.NormalizeDisplayName(displayName); name != existing.DisplayName {
			existing.DisplayName = name
			if err := s.userRepo.Update(existing); err != nil {
				log.Printf("enroll: display name refresh failed: %v", err)
			}
		}
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("enroll: user lookup failed: %v", err)
		return nil, ErrUnavailable
	}

	if !validation.ValidateCode(code) {
		return nil, ErrValidation
	}
	normalized := validation.NormalizeCode(code)

	ec, err := s.codeRepo.FindByCode(normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeInvalid
		}
		log.Printf("enroll: code lookup failed: %v", err)
		return nil, ErrUnavailable
	}
	if ec.Used() {
		return nil, ErrCodeAlreadyUsed
	}
	if ec.Expired(s.now()) {
		return nil, ErrCodeExpired
	}

	user := &models.User{
		LineUserID:  lineUserID,
		DisplayName: validation.NormalizeDisplayName(displayName),
		Role:        models.RoleParent,
		StudentID:   &ec.StudentID,
	}

	consumed, err := s.codeRepo.Consume(ec.ID, s.now(), user)
	if err != nil {
		log.Printf("enroll: code consumption failed: %v", err)
		return nil, ErrUnavailable
	}
	if !consumed {
		// Another attempt won the race between our read and write.
		return nil, ErrCodeAlreadyUsed
	}
	return user, nil
}

// StaffLogin authenticates a teacher or admin by email and password.
func (s *AuthService) StaffLogin(email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, ErrValidation
	}
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCredentialInvalid
		}
		log.Printf("staff login: user lookup failed: %v", err)
		return nil, ErrUnavailable
	}
	if user.PasswordHash == nil || !user.Role.AtLeast(models.RoleTeacher) {
		return nil, ErrCredentialInvalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrCredentialInvalid
	}
	return user, nil
}

// IssueSession produces a signed, time-limited credential encoding the
// user's id, role and student linkage.
func (s *AuthService) IssueSession(user *models.User) (string, error) {
	now := s.now()
	claims := SessionClaims{
		UserID:    user.ID,
		Role:      user.Role,
		StudentID: user.StudentID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.SessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.JWTSecret)
}

// ValidateSession parses and verifies a credential. It fails with
// ErrCredentialExpired past expiry and ErrCredentialInvalid for every
// other defect; no other error escapes.
func (s *AuthService) ValidateSession(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrCredentialInvalid
	}
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.cfg.JWTSecret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrCredentialExpired
		}
		return nil, ErrCredentialInvalid
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrCredentialInvalid
	}
	return claims, nil
}

// Authorize reports whether the claims' role ranks at or above the
// minimum required role.
func (s *AuthService) Authorize(claims *SessionClaims, minimumRole models.Role) bool {
	if claims == nil {
		return false
	}
	return claims.Role.AtLeast(minimumRole)
}

// IssueEnrollmentCode creates a one-time code for the given student,
// valid for ttl. Admin-only at the handler boundary.
func (s *AuthService) IssueEnrollmentCode(studentID uint, ttl time.Duration) (*models.EnrollmentCode, error) {
	if studentID == 0 {
		return nil, ErrValidation
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	code := &models.EnrollmentCode{
		Code:      generateEnrollmentCode(),
		StudentID: studentID,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.codeRepo.Create(code); err != nil {
		log.Printf("issue code: create failed: %v", err)
		return nil, ErrUnavailable
	}
	return code, nil
}

func generateEnrollmentCode() string {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return base32.StdEncoding.EncodeToString([]byte(time.Now().String()))[:8]
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
}
