package issuer

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// RenderPNG renders the transport string as a PNG image of size x size pixels.
func RenderPNG(transport string, size int) ([]byte, error) {
	code, err := newCode(transport)
	if err != nil {
		return nil, err
	}
	png, err := code.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("render png: %w", err)
	}
	return png, nil
}

// RenderTerminal renders the transport string with half-block characters for a terminal.
func RenderTerminal(transport string) (string, error) {
	code, err := newCode(transport)
	if err != nil {
		return "", err
	}
	return code.ToSmallString(false), nil
}

func newCode(transport string) (*qrcode.QRCode, error) {
	if transport == "" {
		return nil, fmt.Errorf("render: %w", ErrNotStarted)
	}
	code, err := qrcode.New(transport, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("build qr code: %w", err)
	}
	return code, nil
}
