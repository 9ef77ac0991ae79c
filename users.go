package ext2

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
)

// UserAccount is one row of the user registry: a login identity mapped to
// the uid/gid pair that the permission checks in CheckPermission compare
// against an inode's ownership.
type UserAccount struct {
	Username string `csv:"username"`
	Password string `csv:"password"`
	UID      uint16 `csv:"uid"`
	GID      uint16 `csv:"gid"`
}

//go:embed users.csv
var seedUsersRawCSV string

// UserRegistry is the small in-memory account table backing login/logout.
// It is seeded from an embedded CSV, the same way the teacher's disk
// geometry table is loaded, since both are static reference data that
// ships with the binary rather than living on the simulated disk itself.
type UserRegistry struct {
	byName map[string]UserAccount
}

// NewUserRegistry builds a registry from the embedded seed list.
func NewUserRegistry() *UserRegistry {
	reg := &UserRegistry{byName: make(map[string]UserAccount)}

	reader := strings.NewReader(seedUsersRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row UserAccount) error {
		if _, exists := reg.byName[row.Username]; exists {
			return fmt.Errorf("duplicate user account %q", row.Username)
		}
		reg.byName[row.Username] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
	return reg
}

// Lookup returns the account for username, if any.
func (r *UserRegistry) Lookup(username string) (UserAccount, bool) {
	acct, ok := r.byName[username]
	return acct, ok
}

// Usernames returns every registered username.
func (r *UserRegistry) Usernames() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

// Login authenticates username/password against the registry and, on
// success, makes that account the session's active identity.
func (fsys *FileSystem) Login(username, password string) error {
	acct, ok := fsys.users.Lookup(username)
	if !ok || acct.Password != password {
		return ErrBadCredentials
	}
	fsys.who = identity{loggedIn: true, uid: acct.UID, gid: acct.GID, username: acct.Username}
	return nil
}

// Logout clears the session's active identity.
func (fsys *FileSystem) Logout() error {
	if !fsys.who.loggedIn {
		return ErrNotLoggedIn
	}
	fsys.who = identity{}
	return nil
}

// Users lists every account in the registry.
func (fsys *FileSystem) Users() []string {
	return fsys.users.Usernames()
}
