package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"smartchef/internal/domain"
	"smartchef/internal/repository"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrProviderInvalid    = errors.New("provider data invalid")
	ErrIdentityConflict   = errors.New("identity conflict")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email")
)

// ExternalProfile es el perfil normalizado que entrega el intercambio OAuth.
// El servicio confia en el solo despues de que ese intercambio tuvo exito.
type ExternalProfile struct {
	Provider    string
	ProviderID  string
	DisplayName string
	Email       string
	PictureURL  string
}

// IdentityService resuelve identidades externas o locales contra el store
// de usuarios. Garantiza a lo sumo un registro por (provider, providerId).
type IdentityService struct {
	logger      *zap.Logger
	users       repository.UserRepository
	dailyLimit  int
	weeklyLimit int
}

func NewIdentityService(logger *zap.Logger, users repository.UserRepository, dailyLimit, weeklyLimit int) *IdentityService {
	return &IdentityService{
		logger:      logger,
		users:       users,
		dailyLimit:  dailyLimit,
		weeklyLimit: weeklyLimit,
	}
}

// Resolve busca o crea el usuario para un perfil externo ya verificado.
// Llamadas repetidas con el mismo (provider, providerId) devuelven siempre
// el mismo registro; la creacion es atomica en el repositorio.
func (s *IdentityService) Resolve(ctx context.Context, profile ExternalProfile) (domain.User, error) {
	provider := strings.ToLower(strings.TrimSpace(profile.Provider))
	providerID := strings.TrimSpace(profile.ProviderID)
	if providerID == "" || !domain.KnownProvider(provider) || provider == domain.ProviderLocal {
		return domain.User{}, ErrProviderInvalid
	}

	emailAddr := normalizeEmail(profile.Email)
	if emailAddr != "" {
		existing, err := s.users.GetByEmail(ctx, emailAddr)
		if err == nil && existing.Provider != provider {
			// La vinculacion de cuentas entre proveedores no esta soportada.
			return domain.User{}, ErrIdentityConflict
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, err
		}
	}

	user := s.newUser(provider+"_"+providerID, provider)
	user.Email = emailAddr
	user.DisplayName = strings.TrimSpace(profile.DisplayName)
	user.Picture = strings.TrimSpace(profile.PictureURL)

	resolved, created, err := s.users.FindOrCreate(ctx, user)
	if err != nil {
		return domain.User{}, err
	}
	if created && s.logger != nil {
		s.logger.Info("user created",
			zap.String("user_id", resolved.ID),
			zap.String("provider", provider),
		)
	}
	return resolved, nil
}

// RegisterLocal crea una cuenta con email y password.
func (s *IdentityService) RegisterLocal(ctx context.Context, emailAddr, displayName, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" {
		return domain.User{}, ErrInvalidEmail
	}
	if password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	existing, err := s.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		if existing.Provider != domain.ProviderLocal {
			return domain.User{}, ErrIdentityConflict
		}
		return domain.User{}, ErrEmailInUse
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	user := s.newUser("local_"+uuid.NewString(), domain.ProviderLocal)
	user.Email = emailAddr
	user.DisplayName = strings.TrimSpace(displayName)
	user.PasswordHash = string(hashBytes)

	stored, _, err := s.users.FindOrCreate(ctx, user)
	if err != nil {
		return domain.User{}, err
	}
	return stored, nil
}

// AuthenticateLocal valida credenciales de una cuenta local.
func (s *IdentityService) AuthenticateLocal(ctx context.Context, emailAddr, password string) (domain.User, error) {
	emailAddr = normalizeEmail(emailAddr)
	password = strings.TrimSpace(password)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser busca un usuario por id.
func (s *IdentityService) GetUser(ctx context.Context, id string) (domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

// UpdateProfile persiste los campos mutables ya validados por el caller.
// Los campos de identidad nunca viajan por esta via.
func (s *IdentityService) UpdateProfile(ctx context.Context, user domain.User) error {
	err := s.users.UpdateProfile(ctx, user)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	return err
}

func (s *IdentityService) newUser(id, provider string) domain.User {
	return domain.User{
		ID:          id,
		Provider:    provider,
		Level:       1,
		Points:      0,
		Favorites:   []string{},
		IsPremium:   false,
		DailyLimit:  s.dailyLimit,
		WeeklyLimit: s.weeklyLimit,
		CreatedAt:   time.Now().UTC(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
