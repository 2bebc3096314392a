package transport

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// defaultTokenTTL bounds how long a minted access token stays valid. Server
// API calls complete well within this window.
const defaultTokenTTL = 10 * time.Minute

// VideoGrant mirrors the LiveKit "video" JWT claim. Only the fields this
// service needs are modelled.
type VideoGrant struct {
	RoomCreate bool `json:"roomCreate,omitempty"`
	RoomList   bool `json:"roomList,omitempty"`
	RoomAdmin  bool `json:"roomAdmin,omitempty"`
}

// tokenClaims is the full LiveKit access token claim set.
type tokenClaims struct {
	jwt.RegisteredClaims

	Video *VideoGrant `json:"video,omitempty"`

	// SIPAdmin authorises SIP trunk and participant management.
	SIP *sipGrant `json:"sip,omitempty"`
}

type sipGrant struct {
	Admin bool `json:"admin,omitempty"`
}

// TokenMinter creates short-lived LiveKit access tokens signed with the
// deployment's API secret.
type TokenMinter struct {
	apiKey    string
	apiSecret string
}

// NewTokenMinter returns a TokenMinter for the given key pair.
func NewTokenMinter(apiKey, apiSecret string) (*TokenMinter, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("transport: api key and secret must not be empty")
	}
	return &TokenMinter{apiKey: apiKey, apiSecret: apiSecret}, nil
}

// AdminToken mints a token with full room and SIP administration grants, as
// used for server-side API calls.
func (m *TokenMinter) AdminToken(identity string) (string, error) {
	return m.mint(identity, &VideoGrant{RoomCreate: true, RoomList: true, RoomAdmin: true}, &sipGrant{Admin: true})
}

func (m *TokenMinter) mint(identity string, video *VideoGrant, sip *sipGrant) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.apiKey,
			Subject:   identity,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(defaultTokenTTL)),
		},
		Video: video,
		SIP:   sip,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.apiSecret))
	if err != nil {
		return "", fmt.Errorf("transport: sign token: %w", err)
	}
	return signed, nil
}
