package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/campushq/student-records-api/internal/models"
	appErrors "github.com/campushq/student-records-api/pkg/errors"
)

// CredentialStore verifies a username/password pair against a known-good
// store. Unknown usernames and wrong passwords produce the same failure so a
// caller cannot distinguish which one occurred.
type CredentialStore interface {
	Verify(ctx context.Context, username, password string) (*models.Principal, error)
}

type staticEntry struct {
	password string
	userID   string
}

// StaticCredentialStore verifies against a fixed in-process table.
type StaticCredentialStore struct {
	entries map[string]staticEntry
}

// NewStaticCredentialStore parses a "username:password:id" comma-separated
// seed list into a credential table.
func NewStaticCredentialStore(raw string) (*StaticCredentialStore, error) {
	entries := make(map[string]staticEntry)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid static credential entry %q", item)
		}
		entries[parts[0]] = staticEntry{password: parts[1], userID: parts[2]}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("static credential table is empty")
	}
	return &StaticCredentialStore{entries: entries}, nil
}

// Verify checks the pair against the fixed table using a constant-time compare.
func (s *StaticCredentialStore) Verify(ctx context.Context, username, password string) (*models.Principal, error) {
	entry, ok := s.entries[username]
	if !ok {
		// Burn a comparison so unknown usernames cost the same as mismatches.
		subtle.ConstantTimeCompare([]byte(password), []byte(password))
		return nil, appErrors.ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(entry.password), []byte(password)) != 1 {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.Principal{ID: entry.userID, Username: username}, nil
}

type credentialFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// DBCredentialStore verifies against the users table. Stored verifiers are
// bcrypt hashes; rows not yet rehashed carry the legacy base64(sha256(password
// + pepper)) form and are matched against that scheme instead.
type DBCredentialStore struct {
	users  credentialFinder
	pepper string
}

// NewDBCredentialStore constructs a database-backed credential store.
func NewDBCredentialStore(users credentialFinder, pepper string) *DBCredentialStore {
	return &DBCredentialStore{users: users, pepper: pepper}
}

// Verify looks up the credential row by exact username and compares verifiers.
func (s *DBCredentialStore) Verify(ctx context.Context, username, password string) (*models.Principal, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load credential")
	}

	if !s.matches(user.PasswordHash, password) {
		return nil, appErrors.ErrInvalidCredentials
	}

	fullName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	return &models.Principal{
		ID:       strconv.FormatInt(user.ID, 10),
		Username: user.Username,
		FullName: fullName,
	}, nil
}

func (s *DBCredentialStore) matches(stored, password string) bool {
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	sum := sha256.Sum256([]byte(password + s.pepper))
	candidate := base64.StdEncoding.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
