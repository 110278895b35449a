package client

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/psql-wire/client/errors"
)

// AuthContext carries the credentials the connection state machine needs to
// answer an Authentication request. Username is always required by the
// startup message itself; Password is required only by the methods that
// need it (cleartext, MD5, SASL) and its absence surfaces as
// AuthMechanismRequiresPassword rather than blocking indefinitely.
type AuthContext struct {
	Username string
	Password string
	Database string
}

// md5Password implements the exact digest PostgreSQL requires:
// "md5" || hex(md5( hex(md5(password || username)) || salt )).
func md5Password(username, password string, salt [4]byte) string {
	inner := md5.Sum([]byte(password + username))
	innerHex := hex.EncodeToString(inner[:])

	outer := md5.Sum([]byte(innerHex + string(salt[:])))
	return "md5" + hex.EncodeToString(outer[:])
}

func requirePassword(ctx *AuthContext) (string, error) {
	if ctx == nil || ctx.Password == "" {
		return "", errors.Newf(errors.KindAuthMechanismRequiresPassword, "authentication method requires a password but none was configured")
	}

	return ctx.Password, nil
}
