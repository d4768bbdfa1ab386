package domain

type PolicyOperation string

const (
	PolicyOperationGenerate PolicyOperation = "generate"
	PolicyOperationSign     PolicyOperation = "sign"
)

type PolicyInput struct {
	Operation PolicyOperation `json:"operation"`
	Algorithm Algorithm       `json:"algorithm"`
	KID       string          `json:"kid,omitempty"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}
