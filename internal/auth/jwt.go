package auth

import (
	"errors"
	"github.com/golang-jwt/jwt"
	"time"
)

var (
	ErrMissingToken = errors.New("token is not provided")
	ErrInvalidToken = errors.New("token is invalid")
	ErrExpiredToken = errors.New("token is expired")
	ErrEmptySecret  = errors.New("token secret is empty")
)

type TokenDecoder interface {
	Decode(tokenString string) (*Claims, error)
}

// WidgetClaims is the payload a partner signs when embedding the widget.
type WidgetClaims struct {
	AgentID   string `json:"agentId"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	jwt.StandardClaims
}

type Claims struct {
	AgentID   string
	UserID    string
	SessionID string
	// Raw is forwarded to the billing API as the bearer credential.
	Raw string
}

type TokenManager struct {
	secret []byte
}

func NewTokenManager(secret string) (*TokenManager, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &TokenManager{secret: []byte(secret)}, nil
}

func (m *TokenManager) Issue(agentID, userID, sessionID string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := &WidgetClaims{
		AgentID:   agentID,
		UserID:    userID,
		SessionID: sessionID,
		StandardClaims: jwt.StandardClaims{
			Subject:  userID,
			IssuedAt: now.Unix(),
		},
	}
	if duration > 0 {
		claims.ExpiresAt = now.Add(duration).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *TokenManager) Decode(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &WidgetClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) {
			if validationErr.Errors&(jwt.ValidationErrorExpired) != 0 {
				return nil, ErrExpiredToken
			}
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*WidgetClaims)
	if !ok || !token.Valid || claims.AgentID == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{
		AgentID:   claims.AgentID,
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Raw:       tokenString,
	}, nil
}
