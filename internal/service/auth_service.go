package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hms-api/internal/models"
	appErrors "github.com/noah-isme/hms-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type claimsIssuer interface {
	BuildClaims(ctx context.Context, userID, requestedCityID string) (*models.Claims, error)
	Sign(claims *models.Claims) (string, error)
	Expiry() time.Duration
}

// AuthService provides authentication use cases.
type AuthService struct {
	repo      authUserRepository
	claims    claimsIssuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, claims claimsIssuer, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, claims: claims, validator: validate, logger: logger}
}

// Login authenticates a user and issues claims for the requested city.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}

	resp, err := s.issue(ctx, user, req.CityID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, resp.IssuedAt); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	action := models.AuditActionLogin
	if resp.Claims.IsSuperAdmin() && resp.Claims.ActiveCityID == "" {
		action = models.AuditActionBootstrapLogin
	}
	emitAudit(ctx, s.repo, s.logger, &models.AuditLog{
		UserID:    &user.ID,
		CityID:    strRef(resp.Claims.ActiveCityID),
		Action:    action,
		Resource:  "auth",
		IPAddress: req.IP,
		UserAgent: req.UserAgent,
	}, nil)

	return resp, nil
}

// SwitchCity reissues claims for another city the caller is a member of.
func (s *AuthService) SwitchCity(ctx context.Context, current *models.Claims, req models.SwitchCityRequest) (*models.LoginResponse, error) {
	if current == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid switch city payload")
	}
	user, err := s.loadActiveUser(ctx, current.SubjectID())
	if err != nil {
		return nil, err
	}
	resp, err := s.issue(ctx, user, req.CityID)
	if err != nil {
		return nil, err
	}
	if resp.Claims.ActiveCityID != req.CityID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a member of the requested city")
	}
	emitAudit(ctx, s.repo, s.logger, &models.AuditLog{
		UserID:   &user.ID,
		CityID:   strRef(req.CityID),
		Action:   models.AuditActionSwitchCity,
		Resource: "auth",
	}, nil)
	return resp, nil
}

// Me describes the caller behind claims.
func (s *AuthService) Me(ctx context.Context, claims *models.Claims) (*models.SessionInfo, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "")
	}
	user, err := s.loadActiveUser(ctx, claims.SubjectID())
	if err != nil {
		return nil, err
	}
	return &models.SessionInfo{
		User:   models.UserInfo{ID: user.ID, Email: user.Email, FullName: user.FullName},
		Claims: claims,
	}, nil
}

func (s *AuthService) loadActiveUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthenticated, "user no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	return user, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, cityID string) (*models.LoginResponse, error) {
	claims, err := s.claims.BuildClaims(ctx, user.ID, cityID)
	if err != nil {
		return nil, err
	}
	token, err := s.claims.Sign(claims)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.claims.Expiry().Seconds()),
		User:        models.UserInfo{ID: user.ID, Email: user.Email, FullName: user.FullName},
		Claims:      claims,
		IssuedAt:    claims.IssuedAt.Time,
	}, nil
}
