package services

import (
	"context"
	"math/rand"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/models"
	"github.com/HSouheill/nestfire_backend/security"
)

// ResetLinkPrefix is the app deep link that carries a reset token
const ResetLinkPrefix = "nestfire://reset-password/"

// AuthResult is returned by register and login
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// AuthService owns credentials: signup, login and password reset
type AuthService struct {
	users      UserRepository
	tokens     TokenService
	mailer     Mailer
	resets     ResetTokenStore
	bcryptCost int
	logger     *zap.Logger
	pickColor  func() string
}

// NewAuthService builds the service. resets may be nil, then reset tokens stay valid
// until they expire.
func NewAuthService(users UserRepository, tokens TokenService, mailer Mailer, resets ResetTokenStore, bcryptCost int, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		mailer:     mailer,
		resets:     resets,
		bcryptCost: bcryptCost,
		logger:     logger.Named("auth"),
		pickColor: func() string {
			return models.ProfileColors[rand.Intn(len(models.ProfileColors))]
		},
	}
}

func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*AuthResult, error) {
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, Conflict("Email already in use!")
	} else if KindOf(err) != KindNotFound {
		return nil, Wrap(err, "lookup email")
	}

	hashed, err := security.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, Wrap(err, "hash password")
	}

	privacy := req.AccountPrivacy
	if privacy == "" {
		privacy = models.PrivacyPublic
	}
	user := &models.User{
		ID:             primitive.NewObjectID(),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Status:         req.Status,
		Bio:            req.Bio,
		Email:          req.Email,
		Phone:          req.Phone,
		Password:       hashed,
		AccountPrivacy: privacy,
		ProfileLogo:    s.pickColor(),
	}
	// the unique index settles a race between two signups with one address
	if err := s.users.Create(ctx, user); err != nil {
		if KindOf(err) == KindConflict {
			return nil, Conflict("Email already in use!")
		}
		return nil, Wrap(err, "create user")
	}

	issued, err := s.tokens.Issue(user.ID.Hex(), security.PurposeAccess, security.RegisterTokenTTL)
	if err != nil {
		return nil, Wrap(err, "issue token")
	}
	s.logger.Info("user registered", zap.String("userId", user.ID.Hex()))
	return &AuthResult{Token: issued.Token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return nil, NotFound("User not found!")
		}
		return nil, Wrap(err, "lookup user")
	}
	if !security.CheckPassword(req.Password, user.Password) {
		return nil, Unauthenticated("Invalid credentials!")
	}

	issued, err := s.tokens.Issue(user.ID.Hex(), security.PurposeAccess, security.LoginTokenTTL)
	if err != nil {
		return nil, Wrap(err, "issue token")
	}
	return &AuthResult{Token: issued.Token, User: user}, nil
}

// ForgotPassword mails a ten minute reset link to the account's address
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if KindOf(err) == KindNotFound {
			return NotFound("User not found!")
		}
		return Wrap(err, "lookup user")
	}

	issued, err := s.tokens.Issue(user.ID.Hex(), security.PurposeReset, security.ResetTokenTTL)
	if err != nil {
		return Wrap(err, "issue reset token")
	}
	if s.resets != nil {
		if err := s.resets.Remember(ctx, issued.ID, time.Until(issued.ExpiresAt)); err != nil {
			return Wrap(err, "store reset token")
		}
	}

	name := user.FirstName + " " + user.LastName
	if err := s.mailer.SendPasswordReset(user.Email, name, ResetLinkPrefix+issued.Token); err != nil {
		return Wrap(err, "send reset email")
	}
	s.logger.Info("password reset requested", zap.String("userId", user.ID.Hex()))
	return nil
}

// ResetPassword sets a new password using a reset token. With a token store the
// token works once.
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil || claims.Purpose != security.PurposeReset {
		return Unauthenticated("Invalid or expired reset token")
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return Unauthenticated("Invalid or expired reset token")
	}

	if s.resets != nil {
		ok, err := s.resets.Consume(ctx, claims.Id)
		if err != nil {
			return Wrap(err, "consume reset token")
		}
		if !ok {
			return Unauthenticated("Reset token has already been used")
		}
	}

	hashed, err := security.HashPassword(password, s.bcryptCost)
	if err != nil {
		return Wrap(err, "hash password")
	}
	if _, err := s.users.Update(ctx, userID, UserChanges{Password: &hashed}); err != nil {
		return Wrap(err, "update password")
	}
	s.logger.Info("password reset", zap.String("userId", userID.Hex()))
	return nil
}
