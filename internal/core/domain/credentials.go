package domain

// Credentials is the API key/secret pair exchanged for a bearer token.
type Credentials struct {
	Key    string
	Secret string
}

// Valid reports whether both halves of the pair are present.
func (c Credentials) Valid() bool {
	return c.Key != "" && c.Secret != ""
}

// Token authorizes calls made after the auth step. It lives for one run only
// and is never persisted.
type Token struct {
	Value string
}

// Bearer returns the Authorization header value for t.
func (t Token) Bearer() string {
	return "Bearer " + t.Value
}

// String keeps tokens out of logs and formatted errors.
func (t Token) String() string {
	if t.Value == "" {
		return ""
	}
	return "[redacted]"
}
