package paymob

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// hmacFieldOrder is the gateway-documented field order for transaction
// callbacks. Values are concatenated in this exact order before signing.
var hmacFieldOrder = []string{
	"amount_cents",
	"created_at",
	"currency",
	"error_occured",
	"has_parent_transaction",
	"id",
	"integration_id",
	"is_3d_secure",
	"is_auth",
	"is_capture",
	"is_refunded",
	"is_standalone_payment",
	"is_voided",
	"order.id",
	"owner",
	"pending",
	"source_data.pan",
	"source_data.sub_type",
	"source_data.type",
	"success",
}

// VerifyCallbackHMAC checks the HMAC-SHA512 signature on a transaction
// callback object. An empty secret disables verification.
func VerifyCallbackHMAC(secret string, obj map[string]any, received string) bool {
	if secret == "" {
		return true
	}
	if received == "" {
		return false
	}

	var builder strings.Builder
	for _, field := range hmacFieldOrder {
		builder.WriteString(stringifyField(lookupPath(obj, field)))
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(builder.String()))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(received))
}

func lookupPath(obj map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var current any = obj
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

func stringifyField(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		// JSON numbers decode as float64; integers must not grow a ".0".
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
