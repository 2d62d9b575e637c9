package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultImageSize = 300

// Image renders a code string as a PNG of the given pixel size.
func Image(code string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultImageSize
	}
	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render qr image: %w", err)
	}
	return png, nil
}

// DataURL renders a code string as a base64 PNG data URL for inline display.
func DataURL(code string) (string, error) {
	png, err := Image(code, defaultImageSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
