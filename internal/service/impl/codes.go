package impl

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	otpSecretBytes    = 20
	refreshTokenBytes = 32
	emailCodeDigits   = 6
)

var otpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func encodeOtpSecret(secret []byte) string { return secretEncoding.EncodeToString(secret) }

func otpCode(secret []byte, now time.Time) (string, error) {
	return totp.GenerateCodeCustom(encodeOtpSecret(secret), now, otpOpts)
}

// otpCodeValid accepts the current step and one step either side.
func otpCodeValid(secret []byte, code string, now time.Time) bool {
	ok, err := totp.ValidateCustom(code, encodeOtpSecret(secret), now, otpOpts)
	return err == nil && ok
}

func emailCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", emailCodeDigits, n.Int64()), nil
}

func hashSecret(v string) []byte {
	sum := sha256.Sum256([]byte(v))
	return sum[:]
}

func secretMatches(v string, hash []byte) bool {
	return subtle.ConstantTimeCompare(hashSecret(v), hash) == 1
}

// newRefreshValue returns the opaque token handed to the client and the hash stored for it.
func newRefreshValue() (string, []byte, error) {
	b, err := randomBytes(refreshTokenBytes)
	if err != nil {
		return "", nil, err
	}
	v := base64.RawURLEncoding.EncodeToString(b)
	return v, hashSecret(v), nil
}
