package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/avery-dunn/entomosysbackend/models"
	"github.com/avery-dunn/entomosysbackend/repository"
	"github.com/golang-jwt/jwt/v5"
)

const jwtExpirationHours = 24

type AuthHandler struct {
	UserRepo  repository.UserRepositoryInterface
	JWTSecret []byte
}

func NewAuthHandler(userRepo repository.UserRepositoryInterface, jwtSecret []byte) *AuthHandler {
	return &AuthHandler{UserRepo: userRepo, JWTSecret: jwtSecret}
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload")
		return
	}

	user, err := h.UserRepo.GetByUsername(payload.Username)
	if err != nil {
		WriteAPIError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		return
	}

	if !user.CheckPassword(payload.Password) {
		WriteAPIError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		return
	}

	expirationTime := time.Now().Add(jwtExpirationHours * time.Hour)
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(user.ID),
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    "entomosysbackend",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.JWTSecret)
	if err != nil {
		log.Printf("auth: failed to sign token for user %d: %v", user.ID, err)
		WriteAPIError(w, http.StatusInternalServerError, "token_error", "Failed to generate token")
		return
	}

	userForResponse := *user
	userForResponse.PasswordHash = ""

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     tokenString,
		User:      userForResponse,
		ExpiresAt: expirationTime,
	})
}

type RegisterPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload")
		return
	}

	if payload.Username == "" || len(payload.Password) < 8 {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Username required and password must be at least 8 characters")
		return
	}

	if _, err := h.UserRepo.GetByUsername(payload.Username); err == nil {
		WriteAPIError(w, http.StatusConflict, "username_taken", "Username is already taken")
		return
	}

	user := models.User{Username: payload.Username}
	if err := user.SetPassword(payload.Password); err != nil {
		log.Printf("auth: failed to hash password for %s: %v", payload.Username, err)
		WriteAPIError(w, http.StatusInternalServerError, "hash_error", "Failed to create user")
		return
	}

	if err := h.UserRepo.Create(&user); err != nil {
		log.Printf("auth: failed to create user %s: %v", payload.Username, err)
		WriteAPIError(w, http.StatusInternalServerError, "create_error", "Failed to create user")
		return
	}

	user.PasswordHash = ""
	writeJSON(w, http.StatusCreated, user)
}
