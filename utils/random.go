package utils

import (
	"crypto/rand"
)

const alphanumericCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Uni256Length is the length of the public ticket identifier.
const Uni256Length = 256

// GenerateAlphanumeric returns n random characters from [A-Za-z0-9].
func GenerateAlphanumeric(n int) (string, error) {
	// Bytes >= maxUnbiased are rejected so every character is equally likely.
	const maxUnbiased = 256 - (256 % len(alphanumericCharset))

	code := make([]byte, 0, n)
	buf := make([]byte, n+n/4+1)

	for len(code) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			code = append(code, alphanumericCharset[int(b)%len(alphanumericCharset)])
			if len(code) == n {
				break
			}
		}
	}

	return string(code), nil
}

func GenerateUni256() (string, error) {
	return GenerateAlphanumeric(Uni256Length)
}

// IsAlphanumeric reports whether s only contains [A-Za-z0-9].
func IsAlphanumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return s != ""
}
