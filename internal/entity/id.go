package entity

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// PINLength is the number of digits in a generated admin PIN.
const PINLength = 4

var pinSpace = big.NewInt(10000)

// NewID returns an opaque identifier for forms and questions.
func NewID() string {
	return uuid.NewString()
}

// NewPIN returns a random string of PINLength digits ("0000" to "9999").
func NewPIN() string {
	n, err := rand.Int(rand.Reader, pinSpace)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is unavailable
		panic(fmt.Sprintf("entity: read random pin: %v", err))
	}

	return fmt.Sprintf("%0*d", PINLength, n.Int64())
}
