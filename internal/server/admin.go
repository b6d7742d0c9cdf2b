package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tripnest/tripnest/internal/httputil"
)

const (
	adminIssuer  = "tripnest"
	adminSubject = "admin"
)

// adminAuth handles password-based admin authentication. Tokens are HS256
// JWTs signed with a per-boot secret, so a restart invalidates them.
type adminAuth struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func newAdminAuth(password string, ttl time.Duration) (*adminAuth, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing admin password: %w", err)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &adminAuth{hash: hash, secret: secret, ttl: ttl, now: time.Now}, nil
}

func (a *adminAuth) validatePassword(password string) bool {
	return bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
}

func (a *adminAuth) token() (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Issuer:    adminIssuer,
		Subject:   adminSubject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *adminAuth) validateToken(token string) error {
	_, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(adminIssuer),
		jwt.WithSubject(adminSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	return err
}

// handleAdminLogin validates the admin password and returns a token.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if !httputil.DecodeJSON(w, r, &body) {
		return
	}

	if !s.adminAuth.validatePassword(body.Password) {
		httputil.WriteError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	token, err := s.adminAuth.token()
	if err != nil {
		s.logger.Error("signing admin token", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_in": int(s.adminAuth.ttl.Seconds()),
	})
}

// requireAdminToken returns middleware that requires a valid admin token.
func (s *Server) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := httputil.ExtractBearerToken(r)
		if !ok {
			httputil.WriteError(w, http.StatusUnauthorized, "admin authentication required")
			return
		}
		if err := s.adminAuth.validateToken(token); err != nil {
			msg := "admin authentication required"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "admin token expired"
			}
			httputil.WriteError(w, http.StatusUnauthorized, msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}
