package assertion

import (
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

func init() {
	installAssertionSigner()

	// PDND rejects an array "aud"; client assertions carry exactly one audience.
	jwt.Settings(jwt.WithFlattenAudience(true))
}

// KMSKeyPrefix marks a privKeyPath that names an AWS KMS key instead of a PEM
// file, e.g. "aws-kms://arn:aws:kms:eu-south-1:123:key/abc". The key must be
// an RSA_2048 (or larger) SIGN_VERIFY key.
const KMSKeyPrefix = "aws-kms://"

// KMSClient is the part of the AWS KMS API used to sign assertions.
type KMSClient interface {
	Sign(ctx context.Context, in *kms.SignInput, optFns ...func(*kms.Options)) (*kms.SignOutput, error)
}

// kmsKey refers to a key held in AWS KMS. Assertions signed with it never
// expose the private key to this process.
type kmsKey struct {
	ctx    context.Context
	client KMSClient
	keyID  string
}

func newKMSKey(ctx context.Context, client KMSClient, keyID string) kmsKey {
	return kmsKey{ctx: ctx, client: client, keyID: keyID}
}

// kmsKeyID returns the key id of a KMSKeyPrefix location.
func kmsKeyID(location string) (string, bool) {
	keyID, ok := strings.CutPrefix(location, KMSKeyPrefix)
	return keyID, ok && keyID != ""
}

// sign asks KMS for a PKCS#1 v1.5 SHA-256 signature over the digest of the
// signing input.
func (k kmsKey) sign(signingInput []byte) ([]byte, error) {
	digest := sha256.Sum256(signingInput)

	out, err := k.client.Sign(k.ctx, &kms.SignInput{
		KeyId:            aws.String(k.keyID),
		Message:          digest[:],
		MessageType:      types.MessageTypeDigest,
		SigningAlgorithm: types.SigningAlgorithmSpecRsassaPkcs1V15Sha256,
	})
	if err != nil {
		return nil, fmt.Errorf("KMS key %s did not sign the client assertion: %w", k.keyID, err)
	}
	if len(out.Signature) == 0 {
		return nil, fmt.Errorf("KMS key %s returned an empty signature", k.keyID)
	}

	return out.Signature, nil
}

// assertionSigner takes the place of jwx's RS256 signer so that one jwt.Sign
// call covers PEM keys and KMS keys alike.
type assertionSigner struct {
	local jws.Signer2
}

func (assertionSigner) Algorithm() jwa.SignatureAlgorithm {
	return jwa.RS256()
}

func (s assertionSigner) Sign(key any, signingInput []byte) ([]byte, error) {
	switch k := key.(type) {
	case kmsKey:
		return k.sign(signingInput)
	case *rsa.PrivateKey, jwk.Key:
		return s.local.Sign(k, signingInput)
	default:
		return nil, fmt.Errorf("a %T cannot sign an RS256 client assertion", key)
	}
}

// installAssertionSigner registers assertionSigner for RS256, wrapping the
// signer jwx had registered before. It panics when jwx refuses, since no
// assertion could be signed.
func installAssertionSigner() {
	local, err := jws.SignerFor(jwa.RS256())
	if err != nil {
		panic(fmt.Sprintf("no built-in RS256 signer: %v", err))
	}

	if err := jws.RegisterSigner(jwa.RS256(), assertionSigner{local: local}); err != nil {
		panic(fmt.Sprintf("registering the client assertion signer: %v", err))
	}
}
