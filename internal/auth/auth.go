// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package auth checks sign-in credentials against the configured user
// directory and decides which screens a role may open.
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/pdiddy/medonboard/pkg/types"
)

// Directory holds the accounts allowed to sign in.
type Directory struct {
	users map[string]types.UserConfig
}

// NewDirectory builds a directory from configured users. Usernames must be
// unique, roles known and hashes present.
func NewDirectory(users []types.UserConfig) (*Directory, error) {
	d := &Directory{users: make(map[string]types.UserConfig, len(users))}
	for i, u := range users {
		switch {
		case u.Username == "":
			return nil, fmt.Errorf("user %d: missing username", i)
		case !u.Role.Valid():
			return nil, fmt.Errorf("user %s: unknown role %q", u.Username, u.Role)
		case u.PasswordHash == "":
			return nil, fmt.Errorf("user %s: missing password hash", u.Username)
		}
		if _, dup := d.users[u.Username]; dup {
			return nil, fmt.Errorf("user %s: defined twice", u.Username)
		}
		d.users[u.Username] = u
	}
	return d, nil
}

// Len returns the number of accounts.
func (d *Directory) Len() int {
	return len(d.users)
}

// Authenticate verifies the password and that the account holds
// claimedRole. The boolean is false for any mismatch; callers report a
// single "invalid credentials or role" message.
func (d *Directory) Authenticate(username, password string, claimedRole types.Role) (types.Identity, bool) {
	u, ok := d.users[username]
	if !ok {
		return types.Identity{}, false
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return types.Identity{}, false
	}
	if u.Role != claimedRole {
		return types.Identity{}, false
	}
	return types.Identity{Username: u.Username, Role: u.Role}, true
}

// HashPassword returns a bcrypt hash suitable for a UserConfig.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// DemoUsers returns the two demonstration accounts, expert/admin123 and
// trainee/view123, used when no users are configured.
func DemoUsers() ([]types.UserConfig, error) {
	accounts := []struct {
		name, password string
		role           types.Role
	}{
		{"expert", "admin123", types.RoleExpert},
		{"trainee", "view123", types.RoleTrainee},
	}

	users := make([]types.UserConfig, 0, len(accounts))
	for _, a := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.MinCost)
		if err != nil {
			return nil, fmt.Errorf("hashing demo password: %w", err)
		}
		users = append(users, types.UserConfig{Username: a.name, PasswordHash: string(hash), Role: a.role})
	}
	return users, nil
}

var basePages = []types.Page{types.PageHome, types.PageDisease, types.PageMedicine, types.PageCaseStudy}

// Pages returns the screens role may navigate to, in menu order. Unknown
// roles get none.
func Pages(role types.Role) []types.Page {
	switch role {
	case types.RoleExpert:
		return append(append([]types.Page(nil), basePages...), types.PageAddCase)
	case types.RoleTrainee:
		return append([]types.Page(nil), basePages...)
	}
	return nil
}

// CanOpen reports whether role may open page.
func CanOpen(role types.Role, page types.Page) bool {
	for _, p := range Pages(role) {
		if p == page {
			return true
		}
	}
	return false
}

// CanIntake reports whether role may submit case notes.
func CanIntake(role types.Role) bool {
	return CanOpen(role, types.PageAddCase)
}
