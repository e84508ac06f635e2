package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/auth"
	"github.com/dmitrijs2005/timekeeper/internal/server/config"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string
	Role  models.Role
	Name  string
}

// UserService provides authentication-related operations:
//   - Register: self-service account creation with role "user"
//   - Login: verify credentials against the primary, or the mirror when the
//     primary is down or does not know the user, and mint a token
//   - Authenticate: resolve a bearer token to an identity
type UserService struct {
	stores           *Stores
	sync             *SyncService
	jwtSecret        []byte
	validityDuration time.Duration
	log              logging.Logger
}

// NewUserService constructs a UserService using the stores and server config.
func NewUserService(stores *Stores, sync *SyncService, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		stores:           stores,
		sync:             sync,
		jwtSecret:        []byte(cfg.SecretKey),
		validityDuration: cfg.TokenValidityDuration,
		log:              log.With("module", "users"),
	}
}

// Register creates a user. The row goes to the primary when reachable and is
// copied into the mirror for offline login; otherwise it lives in the mirror only.
func (s *UserService) Register(ctx context.Context, matricula, password, name string) (*models.User, error) {
	return createUser(ctx, s.stores, s.log, matricula, password, name, models.RoleUser)
}

func createUser(ctx context.Context, stores *Stores, log logging.Logger, matricula, password, name string, role models.Role) (*models.User, error) {
	matricula, name = strings.TrimSpace(matricula), strings.TrimSpace(name)
	if matricula == "" || name == "" || password == "" {
		return nil, fmt.Errorf("%w: matricula, name and password are required", common.ErrorValidation)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	user := &models.User{Matricula: matricula, Password: hash, Name: name, Role: role}

	if stores.online() {
		created, err := stores.Repos.Users(stores.Primary).Create(ctx, user)
		switch {
		case err == nil:
			mirrored := *created
			if err := stores.Repos.Users(stores.Mirror).Upsert(ctx, &mirrored); err != nil {
				log.Warn(ctx, "mirroring new user failed", "matricula", matricula, "error", err)
			}
			log.Info(ctx, "user created", "matricula", matricula, "role", role)
			return created, nil
		case !unavailable(err):
			return nil, err
		}
		log.Warn(ctx, "primary unavailable, creating user in mirror only", "matricula", matricula, "error", err)
		user.ID = 0
	}

	created, err := stores.Repos.Users(stores.Mirror).Create(ctx, user)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "user created in mirror", "matricula", matricula, "role", role)
	return created, nil
}

// Login verifies the password and returns a token. A successful login
// refreshes the user's mirror copy and starts a background reconcile.
func (s *UserService) Login(ctx context.Context, matricula, password string) (*LoginResult, error) {
	var user *models.User

	if s.stores.online() {
		u, err := s.stores.Repos.Users(s.stores.Primary).GetByMatricula(ctx, matricula)
		switch {
		case err == nil:
			user = u
		case !notFound(err):
			s.log.Warn(ctx, "primary login lookup failed, trying mirror", "matricula", matricula, "error", err)
		}
	}

	if user == nil {
		u, err := s.stores.Repos.Users(s.stores.Mirror).GetByMatricula(ctx, matricula)
		if err != nil {
			if notFound(err) {
				return nil, common.ErrorUnauthorized
			}
			return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
		}
		user = u
	}

	if !auth.CheckPassword(user.Password, password) {
		return nil, common.ErrorUnauthorized
	}

	mirrored := *user
	if err := s.stores.Repos.Users(s.stores.Mirror).Upsert(ctx, &mirrored); err != nil {
		s.log.Warn(ctx, "mirroring user on login failed", "matricula", matricula, "error", err)
	}

	token, err := auth.GenerateToken(auth.Identity{Matricula: user.Matricula, UserID: user.ID, Role: user.Role}, s.jwtSecret, s.validityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if s.sync != nil {
		s.sync.ReconcileAsync(ctx, user.Matricula)
	}

	return &LoginResult{Token: token, Role: user.Role, Name: user.Name}, nil
}

// Authenticate resolves a bearer token.
func (s *UserService) Authenticate(token string) (auth.Identity, error) {
	id, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return auth.Identity{}, common.ErrorUnauthorized
	}
	return id, nil
}
