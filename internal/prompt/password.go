package prompt

import (
	"bufio"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Password lee una contraseña sin eco cuando in es una terminal. Con pipes o en
// tests lee la siguiente línea de reader.
func Password(in io.Reader, reader *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return Line(reader)
}

// Line lee una línea sin el salto final. EOF sin datos devuelve io.EOF.
func Line(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
