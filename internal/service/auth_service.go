package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/scrud-api/internal/models"
	appErrors "github.com/noah-isme/scrud-api/pkg/errors"
)

const invalidCredentialsMessage = "Invalid email or password"

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService registers and authenticates students and teachers. The two
// roles have independent email spaces.
type AuthService struct {
	students  studentStore
	teachers  teacherStore
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(students studentStore, teachers teacherStore, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	return &AuthService{students: students, teachers: teachers, validator: validate, logger: logger, config: config, now: time.Now}
}

// RegisterStudent creates a student account.
func (s *AuthService) RegisterStudent(ctx context.Context, req models.RegisterStudentRequest) (*models.RegisterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}
	level, err := parseLevel(req.Level)
	if err != nil {
		return nil, err
	}
	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, invalidArgument("date_of_birth must use YYYY-MM-DD")
	}
	email := normalizeEmail(req.Email)

	if _, err := s.students.FindByEmail(ctx, email); !errors.Is(err, sql.ErrNoRows) {
		return nil, emailTaken(err)
	}
	if _, err := s.students.FindByID(ctx, req.ID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student id already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, storeError(err, "student not found", "check student id")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	student := &models.Student{
		ID:           req.ID,
		LastName:     strings.TrimSpace(req.LastName),
		FirstName:    strings.TrimSpace(req.FirstName),
		DateOfBirth:  dob,
		Gender:       req.Gender,
		Level:        level,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.students.Put(ctx, student); err != nil {
		return nil, storeError(err, "student not found", "register student")
	}
	s.logger.Info("student registered", zap.Int64("student_id", student.ID))
	return &models.RegisterResponse{Message: "Account created", User: studentInfo(student)}, nil
}

// RegisterTeacher creates a teacher account.
func (s *AuthService) RegisterTeacher(ctx context.Context, req models.RegisterTeacherRequest) (*models.RegisterResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}
	email := normalizeEmail(req.Email)
	if _, err := s.teachers.FindByEmail(ctx, email); !errors.Is(err, sql.ErrNoRows) {
		return nil, emailTaken(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	teacher := &models.Teacher{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Department:   strings.TrimSpace(req.Department),
	}
	if err := s.teachers.Put(ctx, teacher); err != nil {
		return nil, storeError(err, "teacher not found", "register teacher")
	}
	s.logger.Info("teacher registered", zap.Int64("teacher_id", teacher.ID))
	return &models.RegisterResponse{Message: "Account created", User: teacherInfo(teacher)}, nil
}

// Login authenticates a user of the given role and issues an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}
	email := normalizeEmail(req.Email)

	var (
		info models.UserInfo
		hash string
	)
	switch req.Role {
	case models.RoleStudent:
		student, err := s.students.FindByEmail(ctx, email)
		if err != nil {
			return nil, credentialError(err)
		}
		info, hash = studentInfo(student), student.PasswordHash
	case models.RoleTeacher:
		teacher, err := s.teachers.FindByEmail(ctx, email)
		if err != nil {
			return nil, credentialError(err)
		}
		info, hash = teacherInfo(teacher), teacher.PasswordHash
	default:
		return nil, invalidArgument("unknown role")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, invalidCredentialsMessage)
	}

	token, issuedAt, err := s.generateAccessToken(info)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		Message:     fmt.Sprintf("Welcome %s!", info.FirstName),
		User:        info,
		IssuedAt:    issuedAt,
	}, nil
}

// Profile returns the account behind an authenticated identity.
func (s *AuthService) Profile(ctx context.Context, role models.UserRole, id int64) (*models.UserInfo, error) {
	switch role {
	case models.RoleStudent:
		student, err := s.students.FindByID(ctx, id)
		if err != nil {
			return nil, storeError(err, "student not found", "load profile")
		}
		info := studentInfo(student)
		return &info, nil
	case models.RoleTeacher:
		teacher, err := s.teachers.FindByID(ctx, id)
		if err != nil {
			return nil, storeError(err, "teacher not found", "load profile")
		}
		info := teacherInfo(teacher)
		return &info, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "unknown role")
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) generateAccessToken(user models.UserInfo) (string, time.Time, error) {
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: strings.TrimSpace(user.FirstName + " " + user.LastName),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, issuedAt, nil
}

// emailTaken maps the result of an email lookup that found a row (err == nil)
// or failed.
func emailTaken(err error) error {
	if err == nil {
		return appErrors.Clone(appErrors.ErrDuplicateEmail, appErrors.ErrDuplicateEmail.Message)
	}
	return storeError(err, "account not found", "check email")
}

func credentialError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, invalidCredentialsMessage)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func studentInfo(s *models.Student) models.UserInfo {
	return models.UserInfo{
		ID:        s.ID,
		Email:     s.Email,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Role:      models.RoleStudent,
		Level:     s.Level,
	}
}

func teacherInfo(t *models.Teacher) models.UserInfo {
	return models.UserInfo{
		ID:        t.ID,
		Email:     t.Email,
		FirstName: t.FirstName,
		LastName:  t.LastName,
		Role:      models.RoleTeacher,
	}
}
