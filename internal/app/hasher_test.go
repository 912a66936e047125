package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	for _, scheme := range []string{SchemePBKDF2, SchemeScrypt, SchemeArgon2id, SchemeBcrypt} {
		t.Run(scheme, func(t *testing.T) {
			h, err := NewPasswordHasher(scheme)
			require.NoError(t, err)

			first, err := h.Hash("pw123")
			require.NoError(t, err)
			second, err := h.Hash("pw123")
			require.NoError(t, err)

			assert.NotEqual(t, first, second, "salts must differ")
			assert.NotContains(t, first, "pw123")
			assert.True(t, h.Verify("pw123", first))
			assert.True(t, h.Verify("pw123", second))
			assert.False(t, h.Verify("pw124", first))
			assert.False(t, h.Verify("", first))
		})
	}
}

func TestPasswordHasher_DefaultScheme(t *testing.T) {
	h, err := NewPasswordHasher("")
	require.NoError(t, err)
	assert.Equal(t, SchemePBKDF2, h.Scheme())

	encoded, err := h.Hash("secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "pbkdf2:sha256:600000$"), encoded)
	assert.Len(t, strings.Split(encoded, "$"), 3)
}

func TestPasswordHasher_BcryptLength(t *testing.T) {
	h, err := NewPasswordHasher(SchemeBcrypt)
	require.NoError(t, err)

	_, err = h.Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	encoded, err := h.Hash(strings.Repeat("x", 72))
	require.NoError(t, err)
	assert.True(t, h.Verify(strings.Repeat("x", 72), encoded))

	// other schemes take any length
	p, err := NewPasswordHasher(SchemePBKDF2)
	require.NoError(t, err)
	_, err = p.Hash(strings.Repeat("x", 200))
	assert.NoError(t, err)
}

func TestPasswordHasher_UnknownScheme(t *testing.T) {
	_, err := NewPasswordHasher("md5")
	assert.Error(t, err)
}

func TestVerifyPassword_Werkzeug(t *testing.T) {
	// digests computed with hashlib the way werkzeug's generate_password_hash does
	const pbkdf2Digest = "135f7a66144fcf0fb003ce048f31f024ed5cbff30525d3ba0bfb3199479362a6"
	tests := []struct {
		name    string
		encoded string
		match   bool
	}{
		{"pbkdf2", "pbkdf2:sha256:1000$saltsalt$" + pbkdf2Digest, true},
		{"pbkdf2 implied iterations", "pbkdf2:sha256$saltsalt$" + pbkdf2Digest, false},
		{"pbkdf2 wrong salt", "pbkdf2:sha256:1000$saltpepper$" + pbkdf2Digest, false},
		{"scrypt", "scrypt:16384:8:1$saltsalt$0453b3a96ea2fd0a77149bd424c52251e2e2464027afdb6579f6e3a912f4fc5ca9e155761c52861fecfdf58d79dc8d3345007203500906b2ebdbb7d2c81d2936", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.match, VerifyPassword("password", tc.encoded))
			assert.False(t, VerifyPassword("Password", tc.encoded))
		})
	}
}

func TestVerifyPassword_LegacyDatabaseRecord(t *testing.T) {
	const encoded = "pbkdf2:sha256:600000$Xk2pQ9vLm3Rt7aBc$662605e28ee8830b116b1c1b22d051d47a730b833cc7646a65f7a7b71718357c"
	assert.True(t, VerifyPassword("pw123", encoded))
	assert.False(t, VerifyPassword("pw1234", encoded))
}

func TestVerifyPassword_Malformed(t *testing.T) {
	cases := []string{
		"",
		"plaintext",
		"pbkdf2:sha256",
		"pbkdf2:sha256:abc$salt$00",
		"pbkdf2:sha256:-5$salt$00",
		"pbkdf2:md5:1000$salt$00",
		"pbkdf2:sha256:1000$salt$zz",
		"pbkdf2:sha256:1000$$00",
		"pbkdf2:sha256:99999999999$salt$00",
		"scrypt:32768:8$salt$00",
		"scrypt:3:8:1$salt$00",
		"$argon2id$v=19$m=65536,t=3,p=2$bad",
		"$argon2id$v=18$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=3,p=2$c2FsdA$aGFzaA",
		"$2a$10$short",
	}
	for _, c := range cases {
		assert.False(t, VerifyPassword("password", c), "hash %q", c)
	}
}
