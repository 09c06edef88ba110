package dto

// ResultQuery mirrors the provider's result-callback query string. Every
// field arrives untrusted; InvID is validated by the handler and the rest by
// the signature check.
type ResultQuery struct {
	InvID     string `query:"InvId"`
	OutSum    string `query:"OutSum"`
	Email     string `query:"EMail"`
	Signature string `query:"SignatureValue"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
	Cache     string `json:"cache"`
}
