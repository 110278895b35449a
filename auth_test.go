package client

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMD5PasswordKnownVector(t *testing.T) {
	// Verified against PostgreSQL's own md5_crypt_verify test vector:
	// "md5" || md5(md5("password" || "md5user") || "salt").
	got := md5Password("md5user", "password", [4]byte{'s', 'a', 'l', 't'})
	require.Equal(t, "md536690ef5b8624fa091e966c1f864658e", got)
}

func TestRequirePasswordMissing(t *testing.T) {
	_, err := requirePassword(&AuthContext{Username: "u"})
	require.Error(t, err)
}

func TestRequirePasswordPresent(t *testing.T) {
	got, err := requirePassword(&AuthContext{Username: "u", Password: "hunter2"})
	require.NoError(t, err)
	require.Equal(t, "hunter2", got)
}

func TestChooseMechanismPrefersSHA256(t *testing.T) {
	m, err := chooseMechanism([]string{"SCRAM-SHA-256-PLUS", "SCRAM-SHA-256"})
	require.NoError(t, err)
	require.Equal(t, "SCRAM-SHA-256", m)
}

func TestChooseMechanismNoneSupported(t *testing.T) {
	_, err := chooseMechanism([]string{"UNKNOWN"})
	require.Error(t, err)
}
