package presenter

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/platinummonkey/activitylens/pkg/config"
)

// ErrInvalidSubjectToken is returned when a token is neither an alias nor a valid encoded
// type tag.
var ErrInvalidSubjectToken = errors.New("invalid subject type token")

// EncodeSubjectType returns the alias configured for typeTag, or its unpadded URL-safe
// base64 form.
func EncodeSubjectType(resolution config.Resolution, typeTag string) string {
	if alias, ok := resolution.AliasFor(typeTag); ok {
		return alias
	}
	return base64.RawURLEncoding.EncodeToString([]byte(typeTag))
}

// DecodeSubjectType reverses EncodeSubjectType. Trailing padding is tolerated.
func DecodeSubjectType(resolution config.Resolution, token string) (string, error) {
	if typeTag, ok := resolution.TypeForAlias(token); ok {
		return typeTag, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidSubjectToken, token)
	}
	if !utf8.Valid(decoded) {
		return "", fmt.Errorf("%w: %q does not decode to text", ErrInvalidSubjectToken, token)
	}
	return string(decoded), nil
}
