package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gin-contrib/sessions"
	"github.com/yukikurage/task-tracker/internal/constants"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
	"github.com/yukikurage/task-tracker/internal/utils"
)

var (
	ErrUsernameTaken        = errors.New("username already taken")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrUserNotFound         = fmt.Errorf("user %w", repository.ErrNotFound)
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo   repository.UserRepository
	bcryptCost int

	dummyHashOnce sync.Once
	dummyHash     string
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, bcryptCost int) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		bcryptCost: bcryptCost,
	}
}

// RegisterInput represents the required information to create a new user.
type RegisterInput struct {
	Username string `validate:"user_name"`
	Email    string `validate:"user_email"`
	Password string `validate:"user_password"`
}

// Register creates a new user. The username is stored as given and checked
// before the email, which is normalized.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Email = models.NormalizeEmail(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if err := s.ensureAvailable(ctx, input.Username, input.Email); err != nil {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user, err := s.userRepo.Create(ctx, models.NewUser(input.Username, input.Email, hashedPassword))
	if err != nil {
		if errors.Is(err, repository.ErrConstraintViolation) {
			// Lost a race with a concurrent registration; report which field collided.
			if err := s.ensureAvailable(ctx, input.Username, input.Email); err != nil {
				return nil, err
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrFailedToCreateUser, err)
	}

	return user, nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check username: %w", err)
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	return nil
}

// LoginInput holds the credentials for authentication.
// Identifier is either a username or an email address.
type LoginInput struct {
	Identifier string
	Password   string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByLogin(ctx, input.Identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Match the bcrypt cost of the wrong-password path
			utils.VerifyPassword(s.getDummyHash(), input.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !utils.VerifyPassword(user.PasswordHash, input.Password) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *AuthService) getDummyHash() string {
	s.dummyHashOnce.Do(func() {
		s.dummyHash, _ = utils.HashPassword("dummy-password", s.bcryptCost)
	})
	return s.dummyHash
}

// CurrentUser resolves the user stored in session.
// It returns a nil user and nil error when nobody is logged in, and
// ErrUserNotFound when the session points at a user that no longer exists.
func (s *AuthService) CurrentUser(ctx context.Context, session sessions.Session) (*models.User, error) {
	raw := session.Get(constants.ContextKeyUserID)
	if raw == nil {
		return nil, nil
	}

	userID, ok := utils.ToUserID(raw)
	if !ok {
		return nil, fmt.Errorf("%w: malformed session user id", ErrUserNotFound)
	}

	return s.GetUser(ctx, userID)
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w (id %d)", ErrUserNotFound, id)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}
