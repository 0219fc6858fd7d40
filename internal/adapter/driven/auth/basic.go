// Package auth provides the primary-authentication validators the request
// gate delegates to.
package auth

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/avalette/credgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.AuthValidator = (*BasicValidator)(nil)

// BasicValidator validates `Authorization: Basic` headers against an
// htpasswd-style users file of `user:bcrypt-hash` lines. The file is loaded
// once at construction; changing users means restarting the service.
type BasicValidator struct {
	users  map[string]string
	logger *slog.Logger
}

// NewBasicValidator loads the users file at path. Blank lines and lines
// starting with '#' are ignored. The file should be owner-readable only; a
// looser mode is logged as a warning but not fatal.
func NewBasicValidator(path string, logger *slog.Logger) (*BasicValidator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open users file: %w", err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Mode().Perm()&0o077 != 0 {
		logger.Warn("users file is readable by group or others", "path", path, "mode", info.Mode().Perm())
	}

	users := make(map[string]string)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		user, hash, ok := strings.Cut(line, ":")
		if !ok || user == "" || hash == "" {
			logger.Warn("skipping malformed users file line", "path", path, "line", lineNo)
			continue
		}
		users[user] = hash
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read users file: %w", err)
	}

	return &BasicValidator{users: users, logger: logger}, nil
}

// Validate checks the Authorization header for a Basic credential matching a
// known user. A missing header, wrong scheme, undecodable token, unknown
// user, or wrong password all yield (false, nil): the request is simply
// unauthenticated, not an internal failure.
func (v *BasicValidator) Validate(ctx context.Context, header func() string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	raw := header()
	if raw == "" {
		return false, nil
	}

	scheme, token, ok := strings.Cut(raw, " ")
	if !ok || !strings.EqualFold(strings.TrimSpace(scheme), "basic") {
		return false, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return false, nil
	}

	user, pass, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return false, nil
	}

	hash, known := v.users[user]
	if !known {
		return false, nil
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil, nil
}
