package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	digestdomain "github.com/inboxsherpa/inboxsherpa/internal/digest/domain"
	identitydomain "github.com/inboxsherpa/inboxsherpa/internal/identity/domain"
	identitydto "github.com/inboxsherpa/inboxsherpa/internal/identity/dto"
	"github.com/inboxsherpa/inboxsherpa/internal/identity/repository"
	"github.com/inboxsherpa/inboxsherpa/pkg/config"
)

// identityUsecase implements IdentityUsecase
type identityUsecase struct {
	userRepo repository.UserRepository
	config   *config.Config
}

// NewIdentityUsecase creates a new instance of identityUsecase
func NewIdentityUsecase(userRepo repository.UserRepository, cfg *config.Config) IdentityUsecase {
	return &identityUsecase{
		userRepo: userRepo,
		config:   cfg,
	}
}

func (u *identityUsecase) Register(req *identitydto.RegisterRequest) (*identitydto.TokenResponse, error) {
	hashedPassword, err := repository.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	tz := req.Timezone
	if tz == "" {
		tz = u.config.DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, digestdomain.NewValidationError("timezone", "unknown IANA zone")
	}

	user := &identitydomain.User{
		Email:             req.Email,
		PasswordHash:      hashedPassword,
		GmailAccountEmail: req.GmailAccountEmail,
		Timezone:          tz,
	}

	if err := u.userRepo.Create(user); err != nil {
		return nil, err
	}

	return u.generateTokens(user)
}

func (u *identityUsecase) Login(req *identitydto.LoginRequest) (*identitydto.TokenResponse, error) {
	user, err := u.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, errors.New("invalid email or password")
	}

	if user.PasswordHash == "" {
		return nil, errors.New("please use Google Sign-In for this account")
	}

	if !repository.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, errors.New("invalid email or password")
	}

	return u.generateTokens(user)
}

// GoogleTokenInfo represents the response from Google's tokeninfo endpoint
type GoogleTokenInfo struct {
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"` // Google returns this as string "true" or "false"
	Sub           string `json:"sub"`
}

func (u *identityUsecase) GoogleSignIn(idToken string) (*identitydto.TokenResponse, error) {
	// Verify ID token by calling Google's tokeninfo endpoint
	url := fmt.Sprintf("https://oauth2.googleapis.com/tokeninfo?id_token=%s", idToken)

	resp, err := http.Get(url)
	if err != nil {
		return nil, errors.New("failed to verify Google token: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to verify Google token: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tokenInfo GoogleTokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&tokenInfo); err != nil {
		return nil, errors.New("failed to decode Google token info: " + err.Error())
	}

	if tokenInfo.EmailVerified != "true" {
		return nil, errors.New("google email is not verified")
	}

	user, err := u.userRepo.FindByEmail(tokenInfo.Email)
	if err != nil {
		return nil, err
	}

	if user == nil {
		// First Google sign-in binds the google account as the mailbox too
		user = &identitydomain.User{
			Email:             tokenInfo.Email,
			GmailAccountEmail: tokenInfo.Email,
			Timezone:          u.config.DefaultTimezone,
		}
		if err := u.userRepo.Create(user); err != nil {
			return nil, err
		}
	}

	return u.generateTokens(user)
}

func (u *identityUsecase) RefreshToken(refreshToken string) (*identitydto.TokenResponse, error) {
	// Verify refresh token
	token, err := jwt.Parse(refreshToken, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	})

	if err != nil || !token.Valid {
		return nil, errors.New("invalid refresh token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	// Check if token exists in repository
	storedToken, err := u.userRepo.FindRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	if storedToken == nil || storedToken.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("refresh token expired")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, errors.New("user not found")
	}

	return u.generateTokens(user)
}

func (u *identityUsecase) Logout(refreshToken string) error {
	return u.userRepo.DeleteRefreshToken(refreshToken)
}

func (u *identityUsecase) ValidateToken(tokenString string) (*identitydomain.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	})

	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, errors.New("user not found")
	}

	return user, nil
}

func (u *identityUsecase) GetProfile(userID string) (*identitydomain.User, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, digestdomain.ErrNotFound
	}
	return user, nil
}

func (u *identityUsecase) UpdateTimezone(userID, timezone string) (*identitydomain.User, error) {
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, digestdomain.NewValidationError("timezone", "unknown IANA zone")
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, digestdomain.ErrNotFound
	}

	user.Timezone = timezone
	if err := u.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (u *identityUsecase) DeleteAccount(userID string) error {
	return u.userRepo.Delete(userID)
}

func (u *identityUsecase) generateTokens(user *identitydomain.User) (*identitydto.TokenResponse, error) {
	accessToken, err := u.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := u.generateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	// Store refresh token
	refreshTokenEntity := &identitydomain.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(u.config.JWTRefreshExpiry),
	}
	if err := u.userRepo.SaveRefreshToken(refreshTokenEntity); err != nil {
		return nil, err
	}

	return &identitydto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	}, nil
}

func (u *identityUsecase) generateAccessToken(user *identitydomain.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(u.config.JWTAccessExpiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}

func (u *identityUsecase) generateRefreshToken(user *identitydomain.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"token_id": uuid.New().String(),
		"exp":      time.Now().Add(u.config.JWTRefreshExpiry).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}
