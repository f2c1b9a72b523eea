// komandan
package main

import "testing"

func TestIsTextEmptyIsText(t *testing.T) {
	empty := []byte{}
	if !isText(&empty) {
		t.Fatal("isText(empty) = false, want true")
	}
}

func TestIsTextPlainASCII(t *testing.T) {
	data := []byte("server {\n  listen 80;\n  root /var/www;\n}\n")
	if !isText(&data) {
		t.Fatal("isText(plain config text) = false, want true")
	}
}

func TestIsTextPDFHeaderIsBinary(t *testing.T) {
	data := append([]byte("%PDF-1.4\n"), make([]byte, 50)...)
	if isText(&data) {
		t.Fatal("isText(PDF header) = true, want false")
	}
}

func TestIsTextMostlyNonPrintableIsBinary(t *testing.T) {
	data := make([]byte, 100)
	for i := range data {
		data[i] = byte(i % 256)
	}
	if isText(&data) {
		t.Fatal("isText(mostly non-printable bytes) = true, want false")
	}
}
