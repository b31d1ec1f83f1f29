package verification

// SendRequest is the body of POST /verification/send
type SendRequest struct {
	Phone string `json:"phone" validate:"required,phone"`
}

// CheckRequest is the body of POST /verification/check
type CheckRequest struct {
	VerificationID string `json:"verificationId" validate:"required,max=64"`
	Code           string `json:"code" validate:"required,numeric,min=4,max=8"`
}

type SendResponse struct {
	VerificationID string `json:"verificationId"`
}

type CheckResponse struct {
	Verified bool `json:"verified"`
}
