// Package appproxy is the single canonical implementation of Shopify
// signature checks. Every storefront-facing boundary goes through here;
// nothing in this package touches persisted state.
package appproxy

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrMissingSecret    = errors.New("missing_secret")
	ErrMissingSignature = errors.New("missing_signature")
	ErrInvalidSignature = errors.New("invalid_signature")
)

// Verify checks the App-Proxy signature of a request URL against the shared
// secret. All parse failures map to ErrInvalidSignature so callers can always
// answer with a well-formed error payload.
func Verify(rawURL, secret string) error {
	if secret == "" {
		return ErrMissingSecret
	}

	query, err := parseQuery(rawURL)
	if err != nil {
		return ErrInvalidSignature
	}

	signature := query.Get("signature")
	if signature == "" {
		return ErrMissingSignature
	}
	query.Del("signature")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(canonicalMessage(query)))
	expected := hex.EncodeToString(mac.Sum(nil))

	if len(expected) != len(signature) {
		return ErrInvalidSignature
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

// canonicalMessage reproduces the exact canonicalization the proxy signs:
// drop "signature", sort parameter names bytewise, join multi-values with a
// comma, and concatenate the key=value pairs with no separator between pairs.
func canonicalMessage(query url.Values) string {
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(strings.Join(query[key], ","))
	}
	return b.String()
}

// LoggedInCustomerID returns the customer identity the proxy asserted, or ""
// when absent. This is an input to equality checks at the boundary and is
// independent of signature validity.
func LoggedInCustomerID(rawURL string) string {
	query, err := parseQuery(rawURL)
	if err != nil {
		return ""
	}
	return query.Get("logged_in_customer_id")
}

// VerifyWebhook checks the X-Shopify-Hmac-Sha256 header of an Admin API
// webhook: base64 HMAC-SHA256 over the raw request body.
func VerifyWebhook(body []byte, headerSignature, secret string) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if headerSignature == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if len(expected) != len(headerSignature) {
		return ErrInvalidSignature
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(headerSignature)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}

func parseQuery(rawURL string) (url.Values, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	return url.ParseQuery(parsed.RawQuery)
}
