package main

import (
	"bytes"
	"testing"
)

func TestJoinURL(t *testing.T) {
	if got := JoinURL("https://grove.example", "room100"); got != "https://grove.example/?room=room100" {
		t.Errorf("JoinURL = %q", got)
	}
	if got := JoinURL("http://h", "a b"); got != "http://h/?room=a+b" {
		t.Errorf("room should be escaped, got %q", got)
	}
}

func TestJoinQRIsPNG(t *testing.T) {
	png, err := JoinQR("https://grove.example", "room100")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")) {
		t.Error("QR output is not a PNG")
	}
}
