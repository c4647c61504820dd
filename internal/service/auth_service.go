package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"vendora/config"
	"vendora/internal/auth"
	"vendora/internal/domain"
	"vendora/internal/models"
	"vendora/internal/repository"
	"vendora/pkg/logger"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type AuthService struct {
	cfg     *config.Config
	users   *repository.UserRepository
	wallets *repository.WalletRepository
	oauth   *oauth2.Config
}

func NewAuthService(cfg *config.Config, users *repository.UserRepository, wallets *repository.WalletRepository) *AuthService {
	return &AuthService{
		cfg:     cfg,
		users:   users,
		wallets: wallets,
		oauth: &oauth2.Config{
			ClientID:     cfg.OAuth.GoogleClientID,
			ClientSecret: cfg.OAuth.GoogleClientSecret,
			RedirectURL:  cfg.OAuth.GoogleRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *AuthService) issueTokens(u *models.User) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) Register(username, email, password string) (*models.User, *TokenPair, error) {
	if existing, err := s.users.GetByEmail(email); err != nil {
		return nil, nil, err
	} else if existing != nil {
		return nil, nil, ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}
	u := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleCustomer,
	}
	if err := s.users.Create(u); err != nil {
		return nil, nil, ErrUsernameTaken
	}
	if _, err := s.wallets.GetOrCreate(u.ID, s.cfg.Shop.Currency); err != nil {
		logger.L().Warnw("wallet bootstrap failed", "user_id", u.ID, "error", err)
	}
	tokens, err := s.issueTokens(u)
	if err != nil {
		return nil, nil, err
	}
	logger.L().Infow("user registered", "user_id", u.ID, "email", email)
	return u, tokens, nil
}

func (s *AuthService) Login(email, password string) (*models.User, *TokenPair, error) {
	u, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, nil, err
	}
	if u == nil || u.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}
	tokens, err := s.issueTokens(u)
	if err != nil {
		return nil, nil, err
	}
	return u, tokens, nil
}

func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(userID)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	return s.issueTokens(u)
}

// GoogleAuthURL returns the consent URL for the OAuth redirect flow.
func (s *AuthService) GoogleAuthURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleCallback exchanges the code, then finds or creates the local user.
// An existing email account is linked to the Google identity on first sign-in.
func (s *AuthService) GoogleCallback(ctx context.Context, code string) (*models.User, *TokenPair, error) {
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("oauth exchange: %w", err)
	}
	client := s.oauth.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v3/userinfo")
	if err != nil {
		return nil, nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, nil, err
	}

	u, err := s.users.GetByGoogleID(info.Sub)
	if err != nil {
		return nil, nil, err
	}
	if u == nil {
		u, err = s.users.GetByEmail(info.Email)
		if err != nil {
			return nil, nil, err
		}
		if u != nil {
			u.GoogleID = &info.Sub
			if err := s.users.Update(u); err != nil {
				return nil, nil, err
			}
		} else {
			u = &models.User{
				Username: info.Email,
				Email:    info.Email,
				Role:     domain.RoleCustomer,
				GoogleID: &info.Sub,
			}
			if err := s.users.Create(u); err != nil {
				return nil, nil, err
			}
			if _, err := s.wallets.GetOrCreate(u.ID, s.cfg.Shop.Currency); err != nil {
				logger.L().Warnw("wallet bootstrap failed", "user_id", u.ID, "error", err)
			}
			logger.L().Infow("user created via google", "user_id", u.ID, "email", info.Email)
		}
	}
	tokens, err := s.issueTokens(u)
	if err != nil {
		return nil, nil, err
	}
	return u, tokens, nil
}
