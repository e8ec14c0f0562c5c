// Package passgen generates random passwords and rates their strength.
package passgen

import (
	"crypto/rand"
	"errors"
	"math/big"
	"unicode"
)

const (
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numberChars    = "0123456789"
	symbolChars    = "!@#$%^&*()_+[]{}|;:,.<>?"
)

// DefaultLength is used when a caller passes a non-positive length.
const DefaultLength = 16

var ErrBadAlphabet = errors.New("passgen: empty character set")

// Options selects which character classes the generated password draws from.
// Lowercase letters are always included.
type Options struct {
	Uppercase bool
	Numbers   bool
	Symbols   bool
}

// DefaultOptions enables every character class.
func DefaultOptions() Options {
	return Options{Uppercase: true, Numbers: true, Symbols: true}
}

// Generate returns a random password of the given length. Every enabled
// character class is guaranteed at least one occurrence as long as length
// allows for it. Randomness comes from crypto/rand.
func Generate(length int, opts Options) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	alphabet := lowercaseChars
	var required []string
	if opts.Uppercase {
		alphabet += uppercaseChars
		required = append(required, uppercaseChars)
	}
	if opts.Numbers {
		alphabet += numberChars
		required = append(required, numberChars)
	}
	if opts.Symbols {
		alphabet += symbolChars
		required = append(required, symbolChars)
	}
	if len(alphabet) == 0 {
		return "", ErrBadAlphabet
	}

	out := make([]byte, 0, length)
	for _, set := range required {
		if len(out) == length {
			break
		}
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := pick(alphabet)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	if err := shuffle(out); err != nil {
		return "", err
	}
	return string(out), nil
}

func pick(set string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		return 0, err
	}
	return set[n.Int64()], nil
}

func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return err
		}
		j := n.Int64()
		b[i], b[j] = b[j], b[i]
	}
	return nil
}

// Score rates a password from 0 (weakest) to 100 (strongest). Length counts
// for up to 25 points, character variety for up to 50 and the ratio of
// distinct characters for the remaining 25.
func Score(password string) int {
	if password == "" {
		return 0
	}

	runes := []rune(password)
	score := min(len(runes)*2, 25)

	var lower, upper, digit, special bool
	unique := make(map[rune]struct{}, len(runes))
	for _, r := range runes {
		unique[r] = struct{}{}
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			special = true
		}
	}
	if lower {
		score += 10
	}
	if upper {
		score += 10
	}
	if digit {
		score += 15
	}
	if special {
		score += 15
	}

	ratio := float64(len(unique)) / float64(len(runes))
	score += min(int(ratio*25+0.5), 25)
	return score
}

// Category maps a strength score to a human-readable label.
func Category(score int) string {
	switch {
	case score < 30:
		return "Very Weak"
	case score < 50:
		return "Weak"
	case score < 70:
		return "Moderate"
	case score < 90:
		return "Strong"
	default:
		return "Very Strong"
	}
}
