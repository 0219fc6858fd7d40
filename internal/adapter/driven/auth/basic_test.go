package auth

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeUsersFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func basicHeader(user, pass string) func() string {
	token := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
	return func() string { return "Basic " + token }
}

func TestBasicValidator_AcceptsKnownUser(t *testing.T) {
	path := writeUsersFile(t, "admin:"+hashPassword(t, "hunter2")+"\n")
	v, err := NewBasicValidator(path, discardLogger())
	require.NoError(t, err)

	ok, err := v.Validate(context.Background(), basicHeader("admin", "hunter2"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBasicValidator_RejectsWrongPassword(t *testing.T) {
	path := writeUsersFile(t, "admin:"+hashPassword(t, "hunter2")+"\n")
	v, err := NewBasicValidator(path, discardLogger())
	require.NoError(t, err)

	ok, err := v.Validate(context.Background(), basicHeader("admin", "wrong"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBasicValidator_RejectsUnknownUser(t *testing.T) {
	path := writeUsersFile(t, "admin:"+hashPassword(t, "hunter2")+"\n")
	v, err := NewBasicValidator(path, discardLogger())
	require.NoError(t, err)

	ok, err := v.Validate(context.Background(), basicHeader("nobody", "hunter2"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBasicValidator_MalformedHeadersAreUnauthenticated(t *testing.T) {
	path := writeUsersFile(t, "admin:"+hashPassword(t, "hunter2")+"\n")
	v, err := NewBasicValidator(path, discardLogger())
	require.NoError(t, err)
	ctx := context.Background()

	for _, header := range []string{
		"",
		"Bearer xyz",
		"Basic",
		"Basic %%%not-base64%%%",
		// base64("nocolon")
		"Basic bm9jb2xvbg==",
	} {
		ok, err := v.Validate(ctx, func() string { return header })
		require.NoError(t, err, "header %q", header)
		assert.False(t, ok, "header %q", header)
	}
}

func TestBasicValidator_SchemeIsCaseInsensitive(t *testing.T) {
	path := writeUsersFile(t, "admin:"+hashPassword(t, "hunter2")+"\n")
	v, err := NewBasicValidator(path, discardLogger())
	require.NoError(t, err)

	token := base64.StdEncoding.EncodeToString([]byte("admin:hunter2"))
	ok, err := v.Validate(context.Background(), func() string { return "bAsIc " + token })
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBasicValidator_SkipsCommentsAndMalformedLines(t *testing.T) {
	path := writeUsersFile(t, `# operators
admin:`+hashPassword(t, "hunter2")+`

not-a-valid-line
:missing-user
missing-hash:
`)
	v, err := NewBasicValidator(path, discardLogger())
	require.NoError(t, err)

	ok, err := v.Validate(context.Background(), basicHeader("admin", "hunter2"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Validate(context.Background(), basicHeader("not-a-valid-line", ""))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBasicValidator_MissingFileIsAnError(t *testing.T) {
	_, err := NewBasicValidator(filepath.Join(t.TempDir(), "nope"), discardLogger())
	assert.Error(t, err)
}

func TestBasicValidator_CancelledContext(t *testing.T) {
	path := writeUsersFile(t, "admin:"+hashPassword(t, "hunter2")+"\n")
	v, err := NewBasicValidator(path, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = v.Validate(ctx, basicHeader("admin", "hunter2"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNoopValidator(t *testing.T) {
	v := NewNoopValidator()

	ok, err := v.Validate(context.Background(), func() string { return "" })
	require.NoError(t, err)
	assert.True(t, ok)
}
