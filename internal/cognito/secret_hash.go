package cognito

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// ComputeSecretHash returns Base64(HMAC_SHA256(clientSecret, username+clientID)),
// required when the app client has a secret.
func ComputeSecretHash(username, clientID, clientSecret string) string {
	mac := hmac.New(sha256.New, []byte(clientSecret))
	mac.Write([]byte(username))
	mac.Write([]byte(clientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
