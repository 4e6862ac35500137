package prompt

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestPasswordFromPipe(t *testing.T) {
	in := strings.NewReader("s3cret\nnext\n")
	reader := bufio.NewReader(in)

	got, err := Password(in, reader)
	if err != nil || got != "s3cret" {
		t.Fatalf("expected s3cret, got %q %v", got, err)
	}
	got, err = Line(reader)
	if err != nil || got != "next" {
		t.Fatalf("expected next, got %q %v", got, err)
	}
	if _, err := Line(reader); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestLineWithoutTrailingNewline(t *testing.T) {
	got, err := Line(bufio.NewReader(strings.NewReader("last\r")))
	if err != nil || got != "last" {
		t.Fatalf("expected last, got %q %v", got, err)
	}
}
