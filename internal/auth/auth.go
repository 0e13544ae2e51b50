// Package auth implements cookie-session authentication: bcrypt-hashed
// users and opaque server-side session tokens with a fixed lifetime.
package auth

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "session_token"

// SessionDuration is how long a session stays valid.
const SessionDuration = 7 * 24 * time.Hour

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoSession          = errors.New("no valid session")
)

// User is the public view of an account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type account struct {
	user User
	hash []byte
}

type session struct {
	userID    string
	expiresAt time.Time
}

// Service owns the account and session stores.
type Service struct {
	mu       sync.Mutex
	accounts map[string]*account // keyed by lowercase email
	sessions map[string]session  // keyed by token
	now      func() time.Time
}

// NewService creates an empty auth service.
func NewService() *Service {
	return &Service{
		accounts: make(map[string]*account),
		sessions: make(map[string]session),
		now:      time.Now,
	}
}

// Register creates an account. The email must be unused.
func (s *Service) Register(email, name, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[email]; exists {
		return nil, ErrEmailTaken
	}

	acct := &account{
		user: User{ID: uuid.New().String(), Email: email, Name: name},
		hash: hash,
	}
	s.accounts[email] = acct
	user := acct.user
	return &user, nil
}

// Login verifies the credentials and issues a session token.
func (s *Service) Login(email, password string) (string, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	acct, ok := s.accounts[email]
	s.mu.Unlock()
	if !ok {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token := uuid.New().String()
	s.mu.Lock()
	s.sessions[token] = session{
		userID:    acct.user.ID,
		expiresAt: s.now().Add(SessionDuration),
	}
	user := acct.user
	s.mu.Unlock()
	return token, &user, nil
}

// Logout revokes a session token. Unknown tokens are ignored.
func (s *Service) Logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// UserForToken resolves a session token to its user. Expired sessions are
// pruned on access.
func (s *Service) UserForToken(token string) (*User, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return nil, ErrNoSession
	}
	if s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return nil, ErrNoSession
	}

	for _, acct := range s.accounts {
		if acct.user.ID == sess.userID {
			user := acct.user
			return &user, nil
		}
	}
	delete(s.sessions, token)
	return nil, ErrNoSession
}
