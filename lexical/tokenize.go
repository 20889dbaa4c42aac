package lexical

import "strings"

// Tokenize lowercases s and splits it into runs of [a-z0-9].
func Tokenize(s string) []string {
	s = strings.ToLower(s)

	var (
		tokens []string
		start  = -1
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		alnum := (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')

		switch {
		case alnum && start < 0:
			start = i
		case !alnum && start >= 0:
			tokens = append(tokens, s[start:i])
			start = -1
		}
	}

	if start >= 0 {
		tokens = append(tokens, s[start:])
	}

	return tokens
}
