// Package authsql produces the SQL an operator runs by hand to provision a
// fixed-code user without going through the HTTP API.
package authsql

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/stockkeeper/internal/server/auth"
	"github.com/google/uuid"
	"golang.org/x/term"
)

// readCode is a test seam for term.ReadPassword.
var readCode = term.ReadPassword

var ErrInvalidInput = errors.New("username must not be empty and code must be 6 digits")

// Credentials is a freshly salted fixed code ready to be stored.
type Credentials struct {
	ID       string
	Username string
	Salt     string
	Hash     string
}

// Generate salts and hashes code for username.
func Generate(username, code string) (*Credentials, error) {
	username = strings.TrimSpace(username)
	if username == "" || !auth.ValidCode(code) {
		return nil, ErrInvalidInput
	}

	salt, err := auth.NewSalt()
	if err != nil {
		return nil, err
	}

	return &Credentials{
		ID:       uuid.NewString(),
		Username: username,
		Salt:     salt,
		Hash:     auth.HashCode(code, salt),
	}, nil
}

// SQL renders the upsert statement that stores c and clears any lockout.
func (c *Credentials) SQL() string {
	return fmt.Sprintf(`INSERT INTO auth_users (id, username, pass_salt, pass_hash, failed_attempts, locked_until)
VALUES ('%s', '%s', '%s', '%s', 0, NULL)
ON CONFLICT (username)
DO UPDATE SET pass_salt = EXCLUDED.pass_salt,
              pass_hash = EXCLUDED.pass_hash,
              failed_attempts = 0,
              locked_until = NULL;`,
		quote(c.ID), quote(c.Username), quote(c.Salt), quote(c.Hash))
}

func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Run prompts for whatever is missing, then prints salt, hash and SQL to w.
// The code is read from the terminal without echo.
func Run(username string, reader *bufio.Reader, w io.Writer) error {
	if username == "" {
		var err error
		username, err = GetSimpleText(reader, "Username", w)
		if err != nil {
			return err
		}
	}

	code, err := GetCode(w)
	if err != nil {
		return err
	}

	c, err := Generate(username, code)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Salt:", c.Salt)
	fmt.Fprintln(w, "Hash:", c.Hash)
	fmt.Fprintln(w, "\nSQL:")
	fmt.Fprintln(w, c.SQL())
	return nil
}

// GetSimpleText prints a prompt to w and reads a single trimmed line.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetCode reads the 6-digit code from the terminal without echo.
func GetCode(w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Enter 6-digit code: "); err != nil {
		return "", err
	}
	b, err := readCode(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
