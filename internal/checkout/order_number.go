package checkout

import (
	"crypto/rand"
	"fmt"
)

const (
	orderNumberPrefix  = "ORD-"
	orderNumberLength  = 8
	orderNumberCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewOrderNumber returns a candidate order number like ORD-7K2F9QX1.
// Callers must still handle collisions against the unique index.
func NewOrderNumber() (string, error) {
	buf := make([]byte, orderNumberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating order number: %w", err)
	}
	for i, b := range buf {
		buf[i] = orderNumberCharset[int(b)%len(orderNumberCharset)]
	}
	return orderNumberPrefix + string(buf), nil
}
