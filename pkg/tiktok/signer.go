package tiktok

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Sign computes the API request signature: HMAC-SHA256, keyed with
// appSecret, over appSecret + endpoint + sorted key/value pairs + compact
// JSON body + appSecret. The sign and access_token parameters never take
// part. Only bodies that encode to a JSON object are included.
func Sign(endpoint string, params *Params, appSecret string, body any) (string, error) {
	input, err := signingInput(endpoint, params, appSecret, body)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(computeHMAC([]byte(input), appSecret)), nil
}

// Verify reports whether signature matches the one computed for the inputs.
// The comparison runs in constant time.
func Verify(signature, endpoint string, params *Params, appSecret string, body any) bool {
	provided, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	input, err := signingInput(endpoint, params, appSecret, body)
	if err != nil {
		return false
	}
	return hmac.Equal(provided, computeHMAC([]byte(input), appSecret))
}

// SignRequest stamps req with a timestamp when missing and sets its sign
// parameter. Params are copied before modification.
func SignRequest(req *Request, appSecret string) error {
	if req == nil {
		return fmt.Errorf("sign request: nil request")
	}
	params := req.Params.Clone()
	if !params.Has(ParamTimestamp) {
		params.Set(ParamTimestamp, Timestamp())
	}
	sig, err := Sign(req.Endpoint, params, appSecret, req.Body)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	params.Set(ParamSign, sig)
	req.Params = params
	return nil
}

func signingInput(endpoint string, params *Params, appSecret string, body any) (string, error) {
	keys := make([]string, 0, params.Len())
	for _, k := range params.Keys() {
		if k == ParamSign || k == ParamAccessToken {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(appSecret)
	b.WriteString(endpoint)
	for _, k := range keys {
		v, _ := params.Get(k)
		b.WriteString(k)
		b.WriteString(v)
	}

	if !isNilBody(body) {
		raw, err := encodeJSON(body)
		if err != nil {
			return "", fmt.Errorf("encode body for signing: %w", err)
		}
		if len(raw) > 0 && raw[0] == '{' {
			b.Write(raw)
		}
	}

	b.WriteString(appSecret)
	return b.String(), nil
}

// computeHMAC generates an HMAC SHA-256 digest of data keyed with secret.
func computeHMAC(data []byte, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return h.Sum(nil)
}
