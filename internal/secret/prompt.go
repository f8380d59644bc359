package secret

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// PromptPassword prints prompt to w and reads a line from the terminal
// without echo. stdin must be a terminal.
func PromptPassword(w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal")
	}

	fmt.Fprint(w, prompt)
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(data), nil
}

// PromptNewPassword asks for a password twice and fails if the entries differ.
func PromptNewPassword(w io.Writer) (string, error) {
	first, err := PromptPassword(w, "Repository password: ")
	if err != nil {
		return "", err
	}
	second, err := PromptPassword(w, "Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passwords do not match")
	}
	if first == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return first, nil
}
