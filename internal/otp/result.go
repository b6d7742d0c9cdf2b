package otp

// StaticCode is issued whenever real sending is bypassed.
const StaticCode = "123456"

// Result messages. Clients match on these strings.
const (
	MsgStaticSent     = "OTP sent successfully"
	MsgDelegated      = "Initiating phone auth flow..."
	MsgProviderSent   = "OTP sent successfully via Twilio"
	MsgConfigMissing  = "Twilio configuration missing (SID, Token, or From number)"
	MsgRestricted     = "Network restriction: cannot call Twilio directly from this context; requires a backend relay"
	MsgProviderFailed = "Failed to send SMS via Twilio"
)

// Result is the outcome of an issuance attempt. OTP is set only when the
// caller must compare the user's input locally.
type Result struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	OTP      string `json:"otp,omitempty"`
	IsStatic *bool  `json:"isStatic,omitempty"`
}

func boolPtr(b bool) *bool { return &b }

func staticResult() Result {
	return Result{Success: true, Message: MsgStaticSent, OTP: StaticCode, IsStatic: boolPtr(true)}
}

func delegatedResult() Result {
	return Result{Success: true, Message: MsgDelegated, IsStatic: boolPtr(false)}
}

func failure(msg string) Result {
	return Result{Success: false, Message: msg}
}

// Static reports whether the result came from static mode.
func (r Result) Static() bool {
	return r.IsStatic != nil && *r.IsStatic
}

// Verify reports whether input matches expected. An empty expected code
// means none was issued and never matches. Comparison is exact.
func Verify(input, expected string) bool {
	if expected == "" {
		return false
	}
	return input == expected
}
