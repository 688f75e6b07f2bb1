package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"testing"
)

// signInitData builds a signed init data string the way the platform
// does: sorted key=value lines joined by \n, double HMAC-SHA256.
func signInitData(t *testing.T, fields map[string]string, botToken string) string {
	t.Helper()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}
	dcs := strings.Join(lines, "\n")

	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	secret := mac.Sum(nil)

	mac = hmac.New(sha256.New, secret)
	mac.Write([]byte(dcs))
	hash := hex.EncodeToString(mac.Sum(nil))

	values := url.Values{}
	for k, v := range fields {
		values.Set(k, v)
	}
	values.Set("hash", hash)
	return values.Encode()
}

func validFields() map[string]string {
	return map[string]string{
		"auth_date": "1700000000",
		"query_id":  "AAH9mUEcAAAAAP2ZQRwQBmCh",
		"user":      `{"id":42,"first_name":"Alice","username":"alice"}`,
	}
}

func TestVerify(t *testing.T) {
	const botToken = "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"

	t.Run("valid", func(t *testing.T) {
		initData := signInitData(t, validFields(), botToken)
		if !Verify(initData, botToken) {
			t.Fatalf("Verify=false for correctly signed payload")
		}
	})

	t.Run("wrong bot token", func(t *testing.T) {
		initData := signInitData(t, validFields(), botToken)
		if Verify(initData, "other-token") {
			t.Fatalf("Verify=true with a different bot token")
		}
	})

	t.Run("any single mutated byte fails", func(t *testing.T) {
		initData := signInitData(t, validFields(), botToken)
		for i := 0; i < len(initData); i++ {
			mutated := []byte(initData)
			mutated[i]++
			if Verify(string(mutated), botToken) {
				t.Fatalf("Verify=true after mutating byte %d (%q)", i, initData[i])
			}
		}
	})

	t.Run("missing hash", func(t *testing.T) {
		values := url.Values{}
		for k, v := range validFields() {
			values.Set(k, v)
		}
		if Verify(values.Encode(), botToken) {
			t.Fatalf("Verify=true without hash field")
		}
	})

	t.Run("unparseable payload fails closed", func(t *testing.T) {
		for _, raw := range []string{"%zz", "a=b;c=d", ""} {
			if Verify(raw, botToken) {
				t.Fatalf("Verify=true for %q", raw)
			}
		}
	})
}

func TestParseInitData(t *testing.T) {
	if _, err := ParseInitData("user=x"); err != ErrMissingHash {
		t.Fatalf("err=%v, want %v", err, ErrMissingHash)
	}
	if _, err := ParseInitData("%zz"); err != ErrMalformed {
		t.Fatalf("err=%v, want %v", err, ErrMalformed)
	}
	values, err := ParseInitData("hash=abc&user=x")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got := values.Get("user"); got != "x" {
		t.Fatalf("user=%q, want %q", got, "x")
	}
}
