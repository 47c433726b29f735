package models

// Claims is the signed payload embedded in a human-proof token. Field names
// match the wire format: exp is epoch milliseconds, ip is a truncated SHA-256
// digest of the caller's network address, never the address itself.
type Claims struct {
	ExpiresAt int64  `json:"exp"`
	AddrHash  string `json:"ip"`
}

// VerifyRequest is the body of POST /api/human/verify. Token carries the
// challenge response and may be absent when the challenge mechanism is off.
type VerifyRequest struct {
	Token string `json:"token"`
}

// VerifyResponse returns a freshly issued proof token. ExpiresAt is epoch
// milliseconds; clients must re-verify once it passes.
type VerifyResponse struct {
	CaptchaEnabled bool   `json:"captchaEnabled"`
	HumanToken     string `json:"humanToken"`
	ExpiresAt      int64  `json:"expiresAt"`
}

// CaptchaConfig is the public challenge configuration exposed to frontends.
type CaptchaConfig struct {
	Provider string `json:"provider"`
	Enabled  bool   `json:"enabled"`
	SiteKey  string `json:"siteKey"`
}

// ConfigResponse is the body of GET /api/config.
type ConfigResponse struct {
	Captcha CaptchaConfig `json:"captcha"`
}
