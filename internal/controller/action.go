package controller

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var actionSeparators = strings.NewReplacer(".", " ", "-", " ", "_", " ")

// MethodFromAction maps a route action token to the method name it
// dispatches to: "edit-patient" becomes "editPatientAction". Letters after
// a separator or whitespace are upper-cased, then spaces are removed and the
// first letter is lower-cased. Other runes keep their case.
func MethodFromAction(action string) string {
	var sb strings.Builder
	afterBlank := true
	for _, r := range actionSeparators.Replace(action) {
		if afterBlank {
			r = unicode.ToUpper(r)
		}
		afterBlank = isWordBreak(r)
		if r != ' ' {
			sb.WriteRune(r)
		}
	}
	return mapFirst(sb.String(), unicode.ToLower) + "Action"
}

func isWordBreak(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n', '\f', '\v':
		return true
	}
	return false
}

func mapFirst(s string, f func(rune) rune) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(f(r)) + s[n:]
}
