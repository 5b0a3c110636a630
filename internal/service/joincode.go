package service

import "crypto/rand"

const (
	joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	joinCodeLength   = 6
)

// How many fresh codes Register tries before giving up on a unique one.
const joinCodeAttempts = 5

// newJoinCode returns a short shareable code teammates type in to join.
func newJoinCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(buf), nil
}
