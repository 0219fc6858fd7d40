package httphandler

import (
	"encoding/base64"
	"net/http"
	"regexp"
	"strings"

	"github.com/avalette/credgate/internal/domain/model"
)

// overrideHeaderPattern is the accepted shape of the override-authorization
// header: a scheme of word characters, whitespace, then a non-whitespace token.
var overrideHeaderPattern = regexp.MustCompile(`^(\w+)\s+(\S+)$`)

// ExtractOverrideCredentials builds the connection descriptor for targetID
// from the request's optional Proxy-Authorization header. An absent header is
// not an error: the descriptor simply carries no override and downstream
// logic falls back to resolved credentials. A present header must be
// `Basic <base64(username:password)>` exactly; anything else is a 400.
func ExtractOverrideCredentials(r *http.Request, targetID string) (model.ConnectionDescriptor, *Error) {
	raw := r.Header.Get("Proxy-Authorization")
	if raw == "" {
		return model.ConnectionDescriptor{TargetID: targetID}, nil
	}

	m := overrideHeaderPattern.FindStringSubmatch(raw)
	if m == nil {
		return model.ConnectionDescriptor{}, NewError(http.StatusBadRequest, "invalid Proxy-Authorization format")
	}

	if !strings.EqualFold(m[1], "basic") {
		return model.ConnectionDescriptor{}, NewError(http.StatusBadRequest, "unacceptable Proxy-Authorization type")
	}

	decoded, err := base64.StdEncoding.DecodeString(m[2])
	if err != nil {
		return model.ConnectionDescriptor{}, NewError(http.StatusBadRequest, "Proxy-Authorization credentials do not appear to be base64-encoded")
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 2 {
		return model.ConnectionDescriptor{}, NewError(http.StatusBadRequest, "unrecognized Proxy-Authorization credential format")
	}

	return model.ConnectionDescriptor{
		TargetID:   targetID,
		Credential: &model.Credential{Username: parts[0], Password: parts[1]},
	}, nil
}
