package utils

import (
	"net/mail"

	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt cost used by HashPassword.
const DefaultHashCost = 12

// HashPassword hashes a plain password using bcrypt with DefaultHashCost.
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, DefaultHashCost)
}

// HashPasswordWithCost hashes a plain password using bcrypt with cost.
func HashPasswordWithCost(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

// CheckPasswordHash compares a plain password with a bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsEmail returns true if the string is a bare, valid email address.
func IsEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
