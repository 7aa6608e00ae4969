package assertion

import (
	"context"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/golang-jwt/jwt/v4"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/rs/zerolog/log"
)

// LoadSigningKey returns a key usable with the client assertion signer: a
// jwk.Key for PEM files, or a KMS key for KMSKeyPrefix locations.
func LoadSigningKey(ctx context.Context, location string) (any, error) {
	if keyID, ok := kmsKeyID(location); ok {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config for KMS signing: %w", err)
		}

		log.Ctx(ctx).Debug().Str("key_id", keyID).Msg("using AWS KMS signing key")
		return newKMSKey(ctx, kms.NewFromConfig(awsCfg), keyID), nil
	}

	pemBytes, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("could not read private key: %w", err)
	}

	return ParsePrivateKeyPEM(pemBytes)
}

// ParsePrivateKeyPEM parses a PKCS#1 or PKCS#8 RSA private key.
func ParsePrivateKeyPEM(pemBytes []byte) (jwk.Key, error) {
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("could not parse private key: %w", err)
	}

	key, err := jwk.Import(privateKey)
	if err != nil {
		return nil, fmt.Errorf("could not import private key: %w", err)
	}

	return key, nil
}
