package domain

import "strings"

// NormalizeCPF strips every non-digit character
func NormalizeCPF(cpf string) string {
	var b strings.Builder
	b.Grow(len(cpf))
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidCPF validates a CPF with the two mod-11 check digits.
// Formatting characters are ignored; eleven identical digits are always invalid.
func IsValidCPF(cpf string) bool {
	digits := NormalizeCPF(cpf)
	if len(digits) != 11 {
		return false
	}

	allSame := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	return checkDigit(digits[:9], 10) == int(digits[9]-'0') &&
		checkDigit(digits[:10], 11) == int(digits[10]-'0')
}

// checkDigit computes one verifier digit; weights run from startWeight down to 2
func checkDigit(base string, startWeight int) int {
	sum := 0
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * (startWeight - i)
	}
	rem := (sum * 10) % 11
	if rem == 10 {
		return 0
	}
	return rem
}

// MaskEmail hides most of the local part, e.g. "jo***@example.com"
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "***"
	}
	local, host := email[:at], email[at:]
	switch {
	case len(local) <= 2:
		return local[:1] + "***" + host
	default:
		return local[:2] + "***" + host
	}
}
