package bufioutil

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestBufferedSeeker(t *testing.T) {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"

	bs := NewBufferedSeeker(strings.NewReader(alphabet), 16)

	b := make([]byte, 4)
	if _, err := io.ReadFull(bs, b); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, []byte("abcd")) {
		t.Errorf("gelesen %q, erwartet abcd", b)
	}

	// Position muss trotz Puffer der logischen Position entsprechen
	pos, err := bs.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 4 {
		t.Errorf("Position = %d, erwartet 4", pos)
	}

	if _, err := bs.Seek(2, io.SeekCurrent); err != nil {
		t.Fatal(err)
	}
	if _, err := io.ReadFull(bs, b); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(b, []byte("ghij")) {
		t.Errorf("gelesen %q, erwartet ghij", b)
	}

	if _, err := bs.Seek(-2, io.SeekEnd); err != nil {
		t.Fatal(err)
	}
	rest, err := io.ReadAll(bs)
	if err != nil {
		t.Fatal(err)
	}
	if string(rest) != "yz" {
		t.Errorf("gelesen %q, erwartet yz", rest)
	}
}
