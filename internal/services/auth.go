package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/issueless/issueless/internal/config"
	"github.com/issueless/issueless/internal/models"
	"github.com/issueless/issueless/internal/utils"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// AuthService drives the authorization-code login flow against the external
// identity provider and maps provider identities onto local users.
type AuthService struct {
	db          *gorm.DB
	oauth       *oauth2.Config
	userinfoURL string
	expireHours int
	httpClient  *http.Client
}

func NewAuthService(db *gorm.DB, oauthCfg config.OAuthConfig, jwtCfg config.JWTConfig) *AuthService {
	return &AuthService{
		db: db,
		oauth: &oauth2.Config{
			ClientID:     oauthCfg.ClientID,
			ClientSecret: oauthCfg.ClientSecret,
			RedirectURL:  oauthCfg.RedirectURL,
			Scopes:       oauthCfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  oauthCfg.AuthURL,
				TokenURL: oauthCfg.TokenURL,
			},
		},
		userinfoURL: oauthCfg.UserinfoURL,
		expireHours: jwtCfg.ExpireHour,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// LoginURL returns the provider's consent page URL for the given CSRF state.
func (s *AuthService) LoginURL(state string) string {
	return s.oauth.AuthCodeURL(state)
}

// providerIdentity is the subset of the userinfo response we consume.
type providerIdentity struct {
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// HandleCallback exchanges the authorization code, fetches the user's
// identity from the provider and returns a signed session token. First-time
// users are provisioned with a username derived from their email address.
func (s *AuthService) HandleCallback(ctx context.Context, code string) (string, *models.User, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return "", nil, NewValidation("The authorization code is invalid or has expired.")
	}

	identity, err := s.fetchIdentity(ctx, token)
	if err != nil {
		return "", nil, err
	}
	if identity.Sub == "" || identity.Email == "" {
		return "", nil, fmt.Errorf("identity provider returned an incomplete profile")
	}

	var user models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("sub = ?", identity.Sub).First(&user).Error
		if err == nil {
			user.Email = identity.Email
			user.FirstName = identity.GivenName
			user.LastName = identity.FamilyName
			return tx.Save(&user).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		username, err := s.uniqueUsername(tx, identity.Email)
		if err != nil {
			return err
		}
		user = models.User{
			Sub:       identity.Sub,
			Email:     identity.Email,
			Username:  username,
			FirstName: identity.GivenName,
			LastName:  identity.FamilyName,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return "", nil, err
	}

	jwt, err := utils.GenerateToken(user.ID, user.Username, s.expireHours)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return jwt, &user, nil
}

// GetUser returns a user's profile.
func (s *AuthService) GetUser(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFound("user")
		}
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) fetchIdentity(ctx context.Context, token *oauth2.Token) (*providerIdentity, error) {
	client := s.oauth.Client(ctx, token)
	resp, err := client.Get(s.userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode)
	}

	var identity providerIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}
	return &identity, nil
}

// uniqueUsername derives a username from the email's local part, suffixing a
// counter on collision.
func (s *AuthService) uniqueUsername(tx *gorm.DB, email string) (string, error) {
	base := strings.ToLower(strings.SplitN(email, "@", 2)[0])
	if base == "" {
		base = "user"
	}

	candidate := base
	for i := 1; ; i++ {
		var count int64
		if err := tx.Model(&models.User{}).Where("username = ?", candidate).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}
}
