package appproxy

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testSecret = "hush-hush-proxy-secret"

func signProxyMessage(message string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerify_ValidSignature(t *testing.T) {
	// Canonical message: sorted keys, key=value pairs with no separator.
	sig := signProxyMessage("email=trainer@example.comshop=marketformation.myshopify.com")
	rawURL := "/apps/mf/payouts?shop=marketformation.myshopify.com&email=trainer%40example.com&signature=" + sig

	assert.NoError(t, Verify(rawURL, testSecret))
}

func TestVerify_IsPure(t *testing.T) {
	sig := signProxyMessage("courseId=42")
	rawURL := "/apps/mf/courses?courseId=42&signature=" + sig

	for i := 0; i < 5; i++ {
		assert.NoError(t, Verify(rawURL, testSecret))
	}
}

func TestVerify_QueryOrderDoesNotMatter(t *testing.T) {
	sig := signProxyMessage("a=1b=2c=3")

	assert.NoError(t, Verify("/x?c=3&a=1&b=2&signature="+sig, testSecret))
	assert.NoError(t, Verify("/x?b=2&signature="+sig+"&c=3&a=1", testSecret))
}

func TestVerify_MultiValueParamsJoinedWithComma(t *testing.T) {
	sig := signProxyMessage("ids=1,2,3shop=s.myshopify.com")

	assert.NoError(t, Verify("/x?ids=1&ids=2&ids=3&shop=s.myshopify.com&signature="+sig, testSecret))
}

func TestVerify_TamperedValue(t *testing.T) {
	sig := signProxyMessage("email=trainer@example.com")

	err := Verify("/x?email=attacker%40example.com&signature="+sig, testSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_ReplayedSignatureWithDifferentParams(t *testing.T) {
	sig := signProxyMessage("email=trainer@example.com")

	err := Verify("/x?email=trainer%40example.com&extra=1&signature="+sig, testSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_MissingSignature(t *testing.T) {
	err := Verify("/x?email=trainer%40example.com", testSecret)
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestVerify_MissingSecretIsNeverABypass(t *testing.T) {
	sig := signProxyMessage("email=trainer@example.com")

	err := Verify("/x?email=trainer%40example.com&signature="+sig, "")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestVerify_MalformedQueryDoesNotPanic(t *testing.T) {
	err := Verify("/x?a=%zz&signature=deadbeef", testSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_WrongLengthSignature(t *testing.T) {
	err := Verify("/x?email=a&signature=abc", testSecret)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestLoggedInCustomerID(t *testing.T) {
	assert.Equal(t, "7001", LoggedInCustomerID("/x?logged_in_customer_id=7001&signature=irrelevant"))
	assert.Equal(t, "", LoggedInCustomerID("/x?email=a"))
	assert.Equal(t, "", LoggedInCustomerID("/x?a=%zz"))
}

func TestVerifyWebhook(t *testing.T) {
	body := []byte(`{"id":123,"line_items":[]}`)

	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	header := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	assert.NoError(t, VerifyWebhook(body, header, testSecret))
	assert.ErrorIs(t, VerifyWebhook([]byte(`{"id":124}`), header, testSecret), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyWebhook(body, "", testSecret), ErrMissingSignature)
	assert.ErrorIs(t, VerifyWebhook(body, header, ""), ErrMissingSecret)
}
