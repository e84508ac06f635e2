// Package admincli implements the operator command that resets a user's
// password directly in the stores.
package admincli

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var (
	ErrEmptyPassword    = errors.New("password must not be empty")
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// PromptPassword reads a new password from the terminal fd twice without
// echo and returns it when both entries agree.
func PromptPassword(w io.Writer, fd int) (string, error) {
	first, err := prompt(w, fd, "New password: ")
	if err != nil {
		return "", err
	}
	if len(first) == 0 {
		return "", ErrEmptyPassword
	}
	second, err := prompt(w, fd, "Repeat password: ")
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", ErrPasswordMismatch
	}
	return string(first), nil
}

func prompt(w io.Writer, fd int, label string) ([]byte, error) {
	if _, err := fmt.Fprint(w, label); err != nil {
		return nil, err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	return pw, err
}
