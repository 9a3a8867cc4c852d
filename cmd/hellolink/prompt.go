package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dropDatabas3/hellolink/internal/providers/password"
)

// stdinPrompter pide usuario y contraseña por terminal.
// Sin TTY (pipe, tests) lee dos líneas de in.
type stdinPrompter struct {
	in  io.Reader
	out io.Writer
	fd  int // -1 si in no es una terminal
}

func newStdinPrompter(in *os.File, out io.Writer) *stdinPrompter {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		fd = -1
	}
	return &stdinPrompter{in: in, out: out, fd: fd}
}

func (p *stdinPrompter) Prompt(ctx context.Context) (string, string, error) {
	r := bufio.NewReader(p.in)

	fmt.Fprint(p.out, "Username: ")
	user, err := readLine(r)
	if err != nil {
		return "", "", err
	}

	fmt.Fprint(p.out, "Password: ")
	var secret string
	if p.fd >= 0 {
		b, err := term.ReadPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return "", "", password.ErrPromptClosed
		}
		secret = string(b)
	} else {
		if secret, err = readLine(r); err != nil {
			return "", "", err
		}
	}
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	return user, secret, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", password.ErrPromptClosed
	}
	return strings.TrimRight(line, "\r\n"), nil
}
