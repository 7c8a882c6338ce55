package endpoints

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hospitaldigital/hospital-api/pkg/audit"
	"github.com/hospitaldigital/hospital-api/pkg/identity"
	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/password"
	"github.com/hospitaldigital/hospital-api/pkg/recovery"
	"github.com/hospitaldigital/hospital-api/pkg/server"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
	"github.com/hospitaldigital/hospital-api/pkg/token"
)

// RegisterRequest is the payload for POST /auth/register
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`

	Specialty     string `json:"specialty"`
	LicenseNumber string `json:"license_number"`
	Position      string `json:"position"`
	Phone         string `json:"phone"`
}

// LoginRequest is the payload for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the payload for POST /auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordRequest is the payload for PUT /auth/change-password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// RecoverySendRequest is the payload for POST /auth/recovery/send
type RecoverySendRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// RecoveryVerifyRequest is the payload for POST /auth/recovery/verify
type RecoveryVerifyRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// TokenResponse is returned by login and refresh
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// UserResponse is the public view of a user account
type UserResponse struct {
	ID            uint       `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	FullName      string     `json:"full_name"`
	Active        bool       `json:"active"`
	Specialty     string     `json:"specialty,omitempty"`
	LicenseNumber string     `json:"license_number,omitempty"`
	Position      string     `json:"position,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	Clinician     bool       `json:"is_clinician"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func userResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		FullName:      u.FullName(),
		Active:        u.IsActive(),
		Specialty:     u.Specialty(),
		LicenseNumber: u.LicenseNumber(),
		Position:      u.Position(),
		Phone:         u.Phone(),
		Clinician:     u.IsClinician(),
		LastLogin:     u.LastLogin,
		CreatedAt:     u.CreatedAt,
	}
}

// RegisterAuthEndpoints registers the authentication endpoints
func RegisterAuthEndpoints(s *server.Server) {
	router := s.Router.PathPrefix("/api/v1/auth").Subrouter()

	router.HandleFunc("/register", handleRegister(s.UsersStore)).Methods("POST")
	router.HandleFunc("/login", handleLogin(s.UsersStore, s.Issuer)).Methods("POST")
	router.HandleFunc("/refresh", handleRefresh(s.UsersStore, s.Issuer)).Methods("POST")
	router.HandleFunc("/health", handleHealth(s.HealthStore)).Methods("GET")

	router.HandleFunc("/recovery/send", handleRecoverySend(s)).Methods("POST")
	router.HandleFunc("/recovery/verify", handleRecoveryVerify(s)).Methods("POST")

	protected := s.Router.PathPrefix("/api/v1/auth").Subrouter()
	protected.Use(s.AuthMiddleware.Middleware)
	protected.HandleFunc("/me", handleMe()).Methods("GET")
	protected.HandleFunc("/logout", handleLogout(s.UsersStore)).Methods("POST")
	protected.HandleFunc("/change-password", handleChangePassword(s.UsersStore)).Methods("PUT")
	protected.HandleFunc("/validate-clinician", handleValidateClinician()).Methods("GET")
}

func handleRegister(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		hash, err := password.Hash(req.Password)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}

		professional := model.JSONMap{}
		if req.Specialty != "" {
			professional["specialty"] = req.Specialty
		}
		if req.LicenseNumber != "" {
			professional["license_number"] = req.LicenseNumber
		}
		if req.Position != "" {
			professional["position"] = req.Position
		}
		if req.Phone != "" {
			professional["phone"] = req.Phone
		}

		user := &model.User{
			Username:              req.Username,
			Email:                 req.Email,
			PasswordHash:          hash,
			FirstName:             req.FirstName,
			LastName:              req.LastName,
			Enabled:               true,
			AccountNonExpired:     true,
			AccountNonLocked:      true,
			CredentialsNonExpired: true,
			ProfessionalData:      professional,
		}

		if err := users.Create(user); err != nil {
			if errors.Is(err, store.ErrEmailTaken) {
				respondWithError(w, http.StatusConflict, "email already registered")
				return
			}
			if errors.Is(err, store.ErrUsernameTaken) {
				respondWithError(w, http.StatusConflict, "username already registered")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		respondWithJSON(w, http.StatusCreated, userResponse(user))
	}
}

func handleLogin(users store.UsersStore, issuer *token.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		clientIP := identity.ClientIP(r).String()

		user, err := users.GetByEmail(req.Email)
		if err != nil {
			audit.Log(audit.AuthenticateEvent{
				Email: req.Email, ClientIP: clientIP, Method: "password",
				Success: false, ErrorMessage: "unknown user",
			})
			respondWithError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		if !user.IsActive() {
			audit.Log(audit.AuthenticateEvent{
				Email: req.Email, ClientIP: clientIP, Method: "password",
				Success: false, ErrorMessage: "account disabled",
			})
			respondWithError(w, http.StatusForbidden, "account is disabled")
			return
		}

		if !password.Verify(req.Password, user.PasswordHash) {
			_ = users.RecordFailedLogin(user.ID)
			audit.Log(audit.AuthenticateEvent{
				Email: req.Email, ClientIP: clientIP, Method: "password",
				Success: false, ErrorMessage: "wrong password",
			})
			respondWithError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		accessToken, err := issuer.IssueAccess(user.ID, user.Email)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to issue token")
			return
		}
		refreshToken, err := issuer.IssueRefresh(user.ID, user.Email)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to issue token")
			return
		}

		if err := users.SetRefreshToken(user.ID, &refreshToken); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		_ = users.RecordLogin(user.ID)

		audit.Log(audit.AuthenticateEvent{
			Email: user.Email, ClientIP: clientIP, Method: "password", Success: true,
		})

		respondWithJSON(w, http.StatusOK, TokenResponse{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			TokenType:    "bearer",
			ExpiresIn:    int(issuer.AccessTTL().Seconds()),
		})
	}
}

func handleRefresh(users store.UsersStore, issuer *token.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RefreshRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		clientIP := identity.ClientIP(r).String()

		claims, err := issuer.Verify(req.RefreshToken, token.TypeRefresh)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}

		user, err := users.GetByID(userID)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "invalid refresh token")
			return
		}

		// The stored token is the single source of truth. A token that no
		// longer matches was rotated out by logout or a password change.
		if user.RefreshToken == nil || *user.RefreshToken != req.RefreshToken {
			audit.Log(audit.AuthenticateEvent{
				Email: user.Email, ClientIP: clientIP, Method: "refresh",
				Success: false, ErrorMessage: "stale refresh token",
			})
			respondWithError(w, http.StatusUnauthorized, "refresh token no longer valid")
			return
		}

		if !user.IsActive() {
			respondWithError(w, http.StatusForbidden, "account is disabled")
			return
		}

		accessToken, err := issuer.IssueAccess(user.ID, user.Email)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to issue token")
			return
		}

		audit.Log(audit.AuthenticateEvent{
			Email: user.Email, ClientIP: clientIP, Method: "refresh", Success: true,
		})

		respondWithJSON(w, http.StatusOK, TokenResponse{
			AccessToken: accessToken,
			TokenType:   "bearer",
			ExpiresIn:   int(issuer.AccessTTL().Seconds()),
		})
	}
}

func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}
		respondWithJSON(w, http.StatusOK, userResponse(id.User))
	}
}

func handleLogout(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}

		if err := users.SetRefreshToken(id.UserID, nil); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
	}
}

func handleChangePassword(users store.UsersStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}

		var req ChangePasswordRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		clientIP := identity.ClientIP(r).String()

		if !password.Verify(req.CurrentPassword, id.User.PasswordHash) {
			audit.Log(audit.PasswordChangeEvent{
				Email: id.Email, ClientIP: clientIP,
				Success: false, ErrorMessage: "wrong current password",
			})
			respondWithError(w, http.StatusUnauthorized, "current password is incorrect")
			return
		}

		hash, err := password.Hash(req.NewPassword)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}

		// SetPassword also invalidates the stored refresh token.
		if err := users.SetPassword(id.UserID, hash); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.PasswordChangeEvent{Email: id.Email, ClientIP: clientIP, Success: true})
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
	}
}

func handleValidateClinician() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.Get(r.Context())
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "unable to determine identity")
			return
		}

		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"is_clinician":   id.Clinician,
			"specialty":      id.Specialty,
			"license_number": id.License,
			"permissions": map[string]bool{
				"create_prescriptions": id.Clinician,
				"create_notes":         id.Clinician,
				"create_orders":        id.Clinician,
			},
		})
	}
}

func handleRecoverySend(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Recovery == nil || s.Mailer == nil {
			respondWithError(w, http.StatusNotImplemented, "password recovery is not configured")
			return
		}

		var req RecoverySendRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		// Always answer 200 so the endpoint cannot be used to enumerate
		// registered addresses.
		user, err := s.UsersStore.GetByEmail(req.Email)
		if err == nil && user.IsActive() {
			code, err := s.Recovery.Issue(r.Context(), user.Email)
			if err == nil {
				if err := s.Mailer.SendRecoveryCode(user.Email, user.FullName(), code); err != nil && s.Logger != nil {
					s.Logger.Warn("failed to send recovery email", zap.Error(err))
				}
			}
		}

		respondWithJSON(w, http.StatusOK, map[string]string{
			"message": "if the address is registered, a recovery code has been sent",
		})
	}
}

func handleRecoveryVerify(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Recovery == nil {
			respondWithError(w, http.StatusNotImplemented, "password recovery is not configured")
			return
		}

		var req RecoveryVerifyRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		clientIP := identity.ClientIP(r).String()

		user, err := s.UsersStore.GetByEmail(req.Email)
		if err != nil {
			respondWithError(w, http.StatusUnauthorized, "invalid recovery code")
			return
		}

		if err := s.Recovery.Verify(r.Context(), req.Email, req.Code); err != nil {
			if errors.Is(err, recovery.ErrCodeMismatch) {
				audit.Log(audit.PasswordChangeEvent{
					Email: req.Email, ClientIP: clientIP, ViaRecovery: true,
					Success: false, ErrorMessage: "invalid code",
				})
				respondWithError(w, http.StatusUnauthorized, "invalid recovery code")
				return
			}
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		hash, err := password.Hash(req.NewPassword)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}
		if err := s.UsersStore.SetPassword(user.ID, hash); err != nil {
			respondWithError(w, http.StatusInternalServerError, err.Error())
			return
		}

		audit.Log(audit.PasswordChangeEvent{
			Email: req.Email, ClientIP: clientIP, ViaRecovery: true, Success: true,
		})
		respondWithJSON(w, http.StatusOK, map[string]string{"message": "password reset"})
	}
}

// contentHash computes the SHA-256 hex digest used for digital signatures.
func contentHash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func handleHealth(health store.HealthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := health.CheckConnectivity(); err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "error",
				"error":  "database connectivity check failed",
			})
			return
		}

		counts, err := health.Counts()
		if err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "error",
				"error":  "database counts unavailable",
			})
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"status": "ok",
			"counts": counts,
		})
	}
}
