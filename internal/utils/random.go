package utils

import "math/rand/v2"

const upperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomUpper returns n random letters from A-Z.
func RandomUpper(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = upperLetters[rand.IntN(len(upperLetters))]
	}
	return string(b)
}
