package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/2beens/workouttracker/internal/users"
	"github.com/2beens/workouttracker/pkg"
)

type HashPasswordCmd struct {
	Password string `arg:"" optional:"" help:"Password to hash. Read from stdin when omitted."`
}

func (c *HashPasswordCmd) Run(_ *Globals) error {
	password := c.Password
	if password == "" {
		var err error
		if password, err = readLine(os.Stdin); err != nil {
			return err
		}
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}

func hashPassword(password string) (string, error) {
	if err := users.ValidatePassword(password); err != nil {
		return "", err
	}
	return pkg.HashPassword(password)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("empty password")
	}
	return line, nil
}
