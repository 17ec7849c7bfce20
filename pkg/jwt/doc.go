// Package jwt provides JSON Web Token utilities for the JobDeck API.
//
// The jwt package handles RS256 token signing and validation for the chat
// WebSocket gateway. Tokens are minted out of band (see cmd/admin-token)
// and presented by clients when opening a chat connection.
//
// # Token Signing
//
// Sign tokens for authenticated users:
//
//	service, err := jwt.NewService(jwt.Config{
//	    PrivateKeyPath: "keys/private.pem",
//	    Issuer:         "jobdeck-api",
//	    ExpirationMins: 60,
//	})
//
//	token, err := service.Sign(jwt.Claims{
//	    UserID: "user-123",
//	    Email:  "dev@example.com",
//	    Role:   "user",
//	})
//
// # Token Validation
//
// A service built with only a public key can validate but not sign, which
// is how the gateway runs:
//
//	claims, err := service.Validate(tokenString)
//	if err != nil {
//	    // Invalid, expired or foreign token
//	}
//	userID := claims.UserID
//
// Validation failures are never fatal to the caller's request flow; the
// gateway downgrades them to an anonymous identity.
package jwt
