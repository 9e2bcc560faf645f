package executor

import (
	"bytes"
	"testing"
)

func TestPrefixWriterTagsEachLine(t *testing.T) {
	var out bytes.Buffer
	w := newPrefixWriter(&out, "[job 1/2] ")

	if _, err := w.Write([]byte("epoch 1\nepo")); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("ch 2\n")); err != nil {
		t.Fatal(err)
	}

	want := "[job 1/2] epoch 1\n[job 1/2] epoch 2\n"
	if out.String() != want {
		t.Fatalf("want %q, got %q", want, out.String())
	}
}

func TestPrefixWriterFlushesTrailingPartialLine(t *testing.T) {
	var out bytes.Buffer
	w := newPrefixWriter(&out, "> ")

	if _, err := w.Write([]byte("no newline")); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	if got := out.String(); got != "> no newline\n" {
		t.Fatalf("unexpected output: %q", got)
	}

	// Flush with nothing pending writes nothing.
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "> no newline\n" {
		t.Fatalf("unexpected output after second flush: %q", got)
	}
}
