package auth

import (
	"crypto/subtle"
	"errors"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// compareHash is swapped in tests.
var compareHash = bcrypt.CompareHashAndPassword

// missingUserHash is compared against when the username is unknown, so a
// miss costs the same bcrypt work as a wrong password.
var missingUserHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("eventdesk-missing-user"), bcrypt.DefaultCost)
	if err != nil {
		panic("auth: generate missing user hash: " + err.Error())
	}
	return hash
})

// User is a configured account that may exchange credentials for a token.
// Password holds either a bcrypt hash ("$2a$...") or a plain value for local setups.
type User struct {
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	Roles    []string `yaml:"roles"`
}

// Principal is the authenticated result of a credential check.
type Principal struct {
	Username string
	Roles    []string
}

// Directory is a read-only in-memory credential store.
type Directory struct {
	users map[string]User
}

func NewDirectory(users []User) *Directory {
	index := make(map[string]User, len(users))
	for _, user := range users {
		name := strings.TrimSpace(user.Username)
		if name == "" {
			continue
		}
		user.Username = name
		user.Roles = NormalizeRoles(user.Roles)
		index[name] = user
	}
	return &Directory{users: index}
}

// Authenticate checks username and password. Unknown users and wrong
// passwords return the same error.
func (d *Directory) Authenticate(username, password string) (Principal, error) {
	if d == nil {
		return Principal{}, ErrInvalidCredentials
	}
	user, ok := d.users[strings.TrimSpace(username)]
	if !ok {
		_ = compareHash(missingUserHash(), []byte(password))
		return Principal{}, ErrInvalidCredentials
	}
	if !passwordMatches(user.Password, password) {
		return Principal{}, ErrInvalidCredentials
	}
	if len(user.Roles) == 0 {
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{Username: user.Username, Roles: append([]string(nil), user.Roles...)}, nil
}

// Lookup returns the principal for a configured user without checking a password.
func (d *Directory) Lookup(username string) (Principal, bool) {
	if d == nil {
		return Principal{}, false
	}
	user, ok := d.users[strings.TrimSpace(username)]
	if !ok {
		return Principal{}, false
	}
	return Principal{Username: user.Username, Roles: append([]string(nil), user.Roles...)}, true
}

func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.users)
}

func passwordMatches(stored, given string) bool {
	if stored == "" {
		return false
	}
	if strings.HasPrefix(stored, "$2") {
		return compareHash([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}
