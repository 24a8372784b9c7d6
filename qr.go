package main

import (
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// JoinURL is the public link that opens the given room
func JoinURL(publicURL, room string) string {
	return fmt.Sprintf("%s/?room=%s", publicURL, url.QueryEscape(room))
}

// JoinQR renders the join link of a room as a PNG
func JoinQR(publicURL, room string) ([]byte, error) {
	return qrcode.Encode(JoinURL(publicURL, room), qrcode.Medium, qrSize)
}
