package qr

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Generator renders small JSON-serializable payloads into PNG QR codes
// delivered as data URLs.
type Generator struct {
	size int
}

func NewGenerator() *Generator {
	return &Generator{size: 256}
}

// DataURL marshals v to JSON, encodes it as a QR PNG and returns a
// base64 data URL suitable for direct embedding.
func (g *Generator) DataURL(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal qr payload: %w", err)
	}

	png, err := qrcode.Encode(string(payload), qrcode.Medium, g.size)
	if err != nil {
		return "", fmt.Errorf("failed to encode qr code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
