package model

// Credential is a username/password pair used to authenticate to a remote
// management target.
type Credential struct {
	Username string
	Password string
}

// StoredCredential is a persisted credential record. MatchExpression is a
// boolean expression over target attributes deciding which targets this
// credential applies to. IDs are unique, non-negative, and allocated
// monotonically; records are immutable once written (replace = delete + add).
type StoredCredential struct {
	ID              int
	MatchExpression string
	Credential      Credential
}
