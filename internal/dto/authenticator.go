package dto

import "time"

type EnabledOtpResponse struct {
	Code      string `json:"otp"`
	Secret    string `json:"secret"`
	QRCodeRef string `json:"otpQrCode"`
}

// EmailCodeDispatch reports a stored email code; a failed delivery is a warning only.
type EmailCodeDispatch struct {
	ExpiresAt       time.Time `json:"expiresAt"`
	DeliveryWarning string    `json:"deliveryWarning,omitempty"`
}

type VerifyCodeRequest struct {
	Code string `json:"code"`
}
