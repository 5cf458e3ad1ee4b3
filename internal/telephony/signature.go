package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"net/url"
	"sort"
	"strings"
)

const SignatureHeader = "X-Twilio-Signature"

var ErrInvalidSignature = errors.New("telephony: invalid webhook signature")

// ComputeSignature returns base64(HMAC-SHA1(secret, url + k1v1 + k2v2 ...)) with
// keys sorted and each key's values sorted and expanded.
func ComputeSignature(secret, fullURL string, params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		vals := append([]string(nil), params[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against the expected value in constant time.
// Twilio signs the URL as it was configured, so a variant with the default
// port stripped or added is also accepted.
func VerifySignature(secret, fullURL string, params url.Values, signature string) error {
	if secret == "" || signature == "" {
		return ErrInvalidSignature
	}
	for _, u := range urlVariants(fullURL) {
		expected := ComputeSignature(secret, u, params)
		if hmac.Equal([]byte(expected), []byte(signature)) {
			return nil
		}
	}
	return ErrInvalidSignature
}

func urlVariants(raw string) []string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return []string{raw}
	}
	out := []string{raw}
	port := map[string]string{"https": "443", "http": "80"}[u.Scheme]
	if port == "" {
		return out
	}
	alt := *u
	if u.Port() == "" {
		alt.Host = u.Host + ":" + port
	} else if u.Port() == port {
		alt.Host = u.Hostname()
	} else {
		return out
	}
	return append(out, alt.String())
}
