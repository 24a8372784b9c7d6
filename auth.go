package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	accountTokenExpiry = 7 * 24 * time.Hour
	roomTokenExpiry    = time.Hour
	bcryptCost         = 12
	minPasswordLen     = 4
	maxNameLen         = 32
	loginRateWindow    = 60 * time.Second
	maxLoginAttempts   = 10

	tokenKindAccount = "account"
	tokenKindRoom    = "room"

	// PermFullAccess lets the holder read and write presence and storage
	PermFullAccess = "FULL_ACCESS"

	guestEmailDomain = "guest.grove"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("too many login attempts, try again later")
	ErrBadLogin     = errors.New("invalid email or password")
)

// AccountClaims are carried by account tokens
type AccountClaims struct {
	AccountID int64
	Identity  string
	Info      UserInfo
}

// RoomClaims are carried by room tokens
type RoomClaims struct {
	Room     string
	Identity string
	Perm     string
	Info     UserInfo
}

// Auth handles accounts and token issuance
type Auth struct {
	store     Store
	jwtSecret []byte

	// Rate limiting for login attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates a new Auth. secret overrides the persisted one when set.
func NewAuth(ctx context.Context, store Store, secret string) (*Auth, error) {
	var key []byte
	if secret != "" {
		key = []byte(secret)
	} else {
		var err error
		key, err = loadOrCreateSecret(ctx, store)
		if err != nil {
			return nil, err
		}
	}
	return &Auth{
		store:     store,
		jwtSecret: key,
		rateMap:   make(map[string]*rateEntry),
	}, nil
}

// loadOrCreateSecret loads the JWT secret from the store, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(ctx context.Context, store Store) ([]byte, error) {
	if store != nil {
		h, err := store.GetSetting(ctx, "jwt_secret")
		if err != nil {
			return nil, fmt.Errorf("load jwt secret: %w", err)
		}
		if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
			return b, nil
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	if store != nil {
		if err := store.SetSetting(ctx, "jwt_secret", hex.EncodeToString(secret)); err != nil {
			Log.WithError(err).Warn("could not persist jwt secret")
		}
	}
	return secret, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("invalid email %q", email)
	}
	return email, nil
}

func cleanName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallback
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return name
}

// Register creates a password account and returns it with an account token
func (a *Auth) Register(ctx context.Context, email, name, password string) (*Account, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, "", err
	}
	if len(password) < minPasswordLen {
		return nil, "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	acc, err := a.store.CreateAccount(ctx, email, cleanName(name, strings.Split(email, "@")[0]), string(hash))
	if err != nil {
		return nil, "", err
	}
	token, err := a.AccountToken(acc)
	if err != nil {
		return nil, "", err
	}
	return acc, token, nil
}

// Login checks a password and returns the account with an account token
func (a *Auth) Login(ctx context.Context, email, password, ip string) (*Account, string, error) {
	if !a.checkRate(ip) {
		return nil, "", ErrRateLimited
	}
	email = strings.ToLower(strings.TrimSpace(email))

	acc, err := a.store.AccountByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("lookup account: %w", err)
	}
	if acc == nil || acc.PassHash == "" {
		return nil, "", ErrBadLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PassHash), []byte(password)); err != nil {
		return nil, "", ErrBadLogin
	}

	token, err := a.AccountToken(acc)
	if err != nil {
		return nil, "", err
	}
	return acc, token, nil
}

// Guest creates a throwaway account with a generated identity
func (a *Auth) Guest(ctx context.Context, name string) (*Account, string, error) {
	id := uuid.NewString()
	email := id + "@" + guestEmailDomain
	acc, err := a.store.CreateGuest(ctx, email, cleanName(name, GenerateGuestName()))
	if err != nil {
		return nil, "", err
	}
	token, err := a.AccountToken(acc)
	if err != nil {
		return nil, "", err
	}
	return acc, token, nil
}

// AccountToken signs an account token for acc
func (a *Auth) AccountToken(acc *Account) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"knd":    tokenKindAccount,
		"aid":    acc.ID,
		"sub":    acc.Email,
		"name":   acc.Name,
		"avatar": acc.Avatar,
		"exp":    now.Add(accountTokenExpiry).Unix(),
		"iat":    now.Unix(),
	}
	return a.sign(claims)
}

// RoomToken signs a token granting full access to room for the account
func (a *Auth) RoomToken(acc AccountClaims, room string) (string, error) {
	if room == "" {
		return "", errors.New("room must not be empty")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"knd":    tokenKindRoom,
		"room":   room,
		"perm":   PermFullAccess,
		"sub":    acc.Identity,
		"name":   acc.Info.Name,
		"email":  acc.Info.Email,
		"avatar": acc.Info.Avatar,
		"exp":    now.Add(roomTokenExpiry).Unix(),
		"iat":    now.Unix(),
	}
	return a.sign(claims)
}

func (a *Auth) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

func (a *Auth) parse(tokenStr, kind string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrUnauthorized
	}
	if k, _ := claims["knd"].(string); k != kind {
		return nil, fmt.Errorf("%w: wrong token kind", ErrUnauthorized)
	}
	return claims, nil
}

// ValidateAccountToken validates an account token
func (a *Auth) ValidateAccountToken(tokenStr string) (*AccountClaims, error) {
	claims, err := a.parse(tokenStr, tokenKindAccount)
	if err != nil {
		return nil, err
	}
	aid, ok := claims["aid"].(float64)
	if !ok {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}
	name, _ := claims["name"].(string)
	avatar, _ := claims["avatar"].(string)
	return &AccountClaims{
		AccountID: int64(aid),
		Identity:  sub,
		Info:      UserInfo{Name: name, Email: sub, Avatar: avatar},
	}, nil
}

// ValidateRoomToken validates a room token
func (a *Auth) ValidateRoomToken(tokenStr string) (*RoomClaims, error) {
	claims, err := a.parse(tokenStr, tokenKindRoom)
	if err != nil {
		return nil, err
	}
	rc := &RoomClaims{}
	rc.Room, _ = claims["room"].(string)
	rc.Identity, _ = claims["sub"].(string)
	rc.Perm, _ = claims["perm"].(string)
	rc.Info.Name, _ = claims["name"].(string)
	rc.Info.Email, _ = claims["email"].(string)
	rc.Info.Avatar, _ = claims["avatar"].(string)
	if rc.Room == "" || rc.Identity == "" {
		return nil, fmt.Errorf("%w: invalid token claims", ErrUnauthorized)
	}
	return rc, nil
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(loginRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxLoginAttempts
}

// GenerateGuestName creates a guest name like "Guest_a3f2c1"
func GenerateGuestName() string {
	return "Guest_" + GenerateID(3)
}
