// Package auth validates Telegram WebApp init data and resolves the
// user identity it carries.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
)

// Telegram derives the signing key as HMAC-SHA256("WebAppData", botToken).
const webAppDataKey = "WebAppData"

var (
	ErrMissingHash = errors.New("init data has no hash field")
	ErrMalformed   = errors.New("malformed init data")
)

// ParseInitData parses the raw init data query string. The hash field
// must be present; it is left in the returned values.
func ParseInitData(raw string) (url.Values, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return nil, ErrMalformed
	}
	if values.Get("hash") == "" {
		return nil, ErrMissingHash
	}
	return values, nil
}

// dataCheckString joins all fields except hash as key=value lines,
// sorted lexicographically by key, separated by \n.
func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(values.Get(k))
	}
	return b.String()
}

func hmacSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// Verify checks the init data signature against the bot token. It fails
// closed: any malformed input returns false, never an error or panic.
// The comparison is constant time.
func Verify(initData, botToken string) bool {
	values, err := ParseInitData(initData)
	if err != nil {
		return false
	}
	gotHash := values.Get("hash")

	secret := hmacSHA256([]byte(webAppDataKey), []byte(botToken))
	sum := hmacSHA256(secret, []byte(dataCheckString(values)))
	want := hex.EncodeToString(sum)

	return hmac.Equal([]byte(want), []byte(gotHash))
}
