package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"

	"github.com/muurk/gruenbeck-cloud/internal/rest"
)

// challengeCharset seeds the PKCE verifier. The cloud's token endpoint
// only ever sees base64 text, but the seed alphabet matches the vendor
// app byte for byte.
const challengeCharset = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const (
	challengeSeedLength  = 64
	maxChallengeAttempts = 1000
)

// Challenge is a PKCE pair for one authorization-code exchange. The
// challenge travels in login step 1, the verifier in step 4.
type Challenge struct {
	Verifier  string
	Challenge string
}

// NewChallenge generates a PKCE pair the B2C endpoints accept. The
// verifier is the base64 form of a random alphanumeric seed with padding
// stripped; the challenge is the base64 SHA-256 of the verifier minus
// its padding character. Standard base64 can emit '+', '/' and '=',
// which the cloud rejects when they appear unescaped in the authorize
// query, so pairs containing them are regenerated.
func NewChallenge() (*Challenge, error) {
	for attempt := 0; attempt < maxChallengeAttempts; attempt++ {
		seed, err := randomSeed(challengeSeedLength)
		if err != nil {
			return nil, rest.NewConfigurationError(fmt.Sprintf("failed to read entropy for code verifier: %v", err))
		}

		verifier := strings.TrimRight(base64.StdEncoding.EncodeToString([]byte(seed)), "=")

		sum := sha256.Sum256([]byte(verifier))
		encoded := base64.StdEncoding.EncodeToString(sum[:])
		challenge := encoded[:len(encoded)-1]

		if strings.ContainsAny(verifier, "+/") || strings.ContainsAny(challenge, "+/=") {
			continue
		}

		return &Challenge{Verifier: verifier, Challenge: challenge}, nil
	}

	return nil, rest.NewConfigurationError(fmt.Sprintf(
		"no acceptable code challenge after %d attempts", maxChallengeAttempts))
}

func randomSeed(length int) (string, error) {
	limit := big.NewInt(int64(len(challengeCharset)))
	seed := make([]byte, length)
	for i := range seed {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		seed[i] = challengeCharset[idx.Int64()]
	}
	return string(seed), nil
}
