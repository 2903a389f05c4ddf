package adminauth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"behaviorgate/internal/config"
)

// Cheap parameters keep the tests fast.
var testParams = Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLength: 32, SaltLength: 16}

func TestHashAndVerify(t *testing.T) {
	encoded, err := Hash("s3cret-admin", testParams)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := Verify(encoded, "s3cret-admin")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(encoded, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash_SaltsDiffer(t *testing.T) {
	a, err := Hash("same", testParams)
	require.NoError(t, err)
	b, err := Hash("same", testParams)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerify_Malformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$",
		"$argon2id$v=19$m=1024,t=1,p=0$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1024,t=0,p=1$c2FsdA$aGFzaA",
	} {
		_, err := Verify(encoded, "key")
		assert.ErrorIs(t, err, ErrMalformedHash, encoded)
	}
}

func TestHash_InvalidParams(t *testing.T) {
	for name, mutate := range map[string]func(*Params){
		"zero threads":     func(p *Params) { p.Threads = 0 },
		"zero time":        func(p *Params) { p.Time = 0 },
		"zero key length":  func(p *Params) { p.KeyLength = 0 },
		"zero salt length": func(p *Params) { p.SaltLength = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			p := testParams
			mutate(&p)
			_, err := Hash("key", p)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}
}

func TestKeyFromHeaders(t *testing.T) {
	assert.Equal(t, "abc", KeyFromHeaders("Bearer abc", ""))
	assert.Equal(t, "xyz", KeyFromHeaders("", " xyz "))
	assert.Equal(t, "xyz", KeyFromHeaders("Basic Zm9v", "xyz"))
	assert.Empty(t, KeyFromHeaders("", ""))
}

func TestParamsFromConfig(t *testing.T) {
	cfg := &config.Config{Argon2Time: 3, Argon2Memory: 65536, Argon2Threads: 2, Argon2KeyLength: 32, Argon2SaltLength: 16}
	assert.Equal(t, Params{Time: 3, Memory: 65536, Threads: 2, KeyLength: 32, SaltLength: 16}, ParamsFromConfig(cfg))
}
