package utils

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ReadPassphrase prompts the user for a passphrase without echoing input.
// Returns an error if stdin is not a terminal.
func ReadPassphrase(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("cannot read passphrase: stdin is not a terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}

	return passphrase, nil
}

// ReadNewPassphrase asks for a passphrase twice and retries until both
// entries match. An empty passphrase is returned only if allowEmpty is set.
func ReadNewPassphrase(prompt, confirmPrompt string, allowEmpty bool) ([]byte, error) {
	for {
		first, err := ReadPassphrase(prompt)
		if err != nil {
			return nil, err
		}
		if len(first) == 0 {
			if allowEmpty {
				return first, nil
			}
			fmt.Fprintln(os.Stderr, "ERROR: The password cannot be empty.")
			continue
		}

		second, err := ReadPassphrase(confirmPrompt)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(first, second) {
			return first, nil
		}
		fmt.Fprintln(os.Stderr, "ERROR: Passwords do not match.")
	}
}

// IsTerminal returns true if stdin is a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
