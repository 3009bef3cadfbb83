package auth

// Authenticator issues and verifies session credentials.
type Authenticator interface {
	IssueTokenPair(identityID string) (TokenPair, error)
	ParseAccessToken(token string) (*Claims, error)
	ParseRefreshToken(token string) (*Claims, error)
}

var _ Authenticator = (*JWTAuthenticator)(nil)
