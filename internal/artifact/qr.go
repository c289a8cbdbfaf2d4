package artifact

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const qrSize = 256

// QRRenderer encodes an otpauth:// key as a PNG and stores it.
type QRRenderer struct {
	Storage Storage
	Size    int
}

func NewQRRenderer(s Storage) *QRRenderer { return &QRRenderer{Storage: s, Size: qrSize} }

// Render writes the QR image for secret at name and returns the storage reference.
func (r *QRRenderer) Render(ctx context.Context, secret []byte, account, issuer, name string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Secret:      secret,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("build otpauth key: %w", err)
	}
	size := r.Size
	if size <= 0 {
		size = qrSize
	}
	img, err := key.Image(size, size)
	if err != nil {
		return "", fmt.Errorf("render qr: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return r.Storage.Put(ctx, name, buf.Bytes(), "image/png")
}
