package model

const (
	SubjectTypeUser        = "USER"
	SubjectTypeApplication = "APPLICATION"
)

// TokenSubject is the decrypted inner payload of an access token. The
// encrypted form is the only thing that ever appears inside a token; the
// signature proves integrity, the envelope cipher keeps the subject
// identifier confidential.
type TokenSubject struct {
	ID            string `json:"id,omitempty"`
	ApplicationID string `json:"applicationId,omitempty"`
	Type          string `json:"type"`
}
