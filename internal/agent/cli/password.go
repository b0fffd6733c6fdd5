package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// readPassword читает пароль.
//
// Режимы:
//   - fromStdin=true: читает STDIN целиком (для скриптов/CI), обрезает перевод строки;
//   - fromStdin=false: спрашивает в терминале со скрытым вводом.
//
// Пароль не обрезается по пробелам: они его часть.
func readPassword(cmd *cobra.Command, prompt string, fromStdin bool) (string, error) {
	if fromStdin {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		pw := bytes.TrimRight(b, "\r\n")
		if len(pw) == 0 {
			return "", errors.New("empty password on stdin")
		}
		return string(pw), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; use --password-stdin")
	}

	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	pwBytes, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if len(pwBytes) == 0 {
		return "", errors.New("empty password")
	}
	return string(pwBytes), nil
}

// passwordFor берёт пароль из флага, STDIN или терминала.
// confirm=true — в терминале пароль спрашивается второй раз.
func passwordFor(cmd *cobra.Command, flagValue string, fromStdin, confirm bool) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	pw, err := ReadPassword(cmd, "Password: ", fromStdin)
	if err != nil {
		return "", err
	}
	if !confirm || fromStdin {
		return pw, nil
	}

	again, err := ReadPassword(cmd, "Repeat password: ", false)
	if err != nil {
		return "", err
	}
	if again != pw {
		return "", errors.New("passwords do not match")
	}
	return pw, nil
}
