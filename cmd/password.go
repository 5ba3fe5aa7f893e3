package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/s0up4200/missionctl/config"
)

var errNoTerminal = errors.New("password required but stdin is not a terminal")

// promptPassword reads a host password from the terminal without echo
func promptPassword(h config.HostConfig) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w (set %s or hosts[].password_env)", errNoTerminal, config.PasswordEnv)
	}

	fmt.Fprintf(os.Stderr, "Password for %s@%s: ", h.Username, h.Name)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return strings.TrimRight(string(raw), "\r\n"), nil
}

// confirm asks a yes/no question on the terminal; anything but y is no
func confirm(question string) bool {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false
	}
	fmt.Printf("%s [y/N]: ", question)
	var response string
	fmt.Scanln(&response)
	return strings.ToLower(strings.TrimSpace(response)) == "y"
}
