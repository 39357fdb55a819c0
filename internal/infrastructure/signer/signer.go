// Package signer firma la forma canónica de los registros fiscales con el certificado del emisor.
// Admite llaves RSA (PKCS#1 v1.5) y ECDSA (ASN.1), siempre sobre SHA-256.
package signer

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/terencio/fiscal-core/internal/application/fiscal"
)

var _ fiscal.Signer = (*RecordSigner)(nil)

// ErrInvalidSignature la firma no corresponde al payload.
var ErrInvalidSignature = errors.New("firma inválida")

// RecordSigner implementa fiscal.Signer.
type RecordSigner struct {
	key  crypto.Signer
	cert *x509.Certificate
}

// New construye el firmante a partir de un certificado con llave privada.
func New(cert tls.Certificate) (*RecordSigner, error) {
	if len(cert.Certificate) == 0 {
		return nil, errors.New("signer: certificado vacío")
	}
	leaf := cert.Leaf
	if leaf == nil {
		var err error
		leaf, err = x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("signer: parsear certificado: %w", err)
		}
	}
	switch cert.PrivateKey.(type) {
	case *rsa.PrivateKey, *ecdsa.PrivateKey:
	default:
		return nil, fmt.Errorf("signer: tipo de llave %T no soportado", cert.PrivateKey)
	}
	return &RecordSigner{key: cert.PrivateKey.(crypto.Signer), cert: leaf}, nil
}

// Load carga el certificado configurado. Sin ruta devuelve nil: los registros se encadenan sin firma.
func Load(certPath, keyPath, password string) (*RecordSigner, error) {
	if certPath == "" {
		return nil, nil
	}
	cert, err := LoadCertificate(certPath, keyPath, password)
	if err != nil {
		return nil, err
	}
	return New(cert)
}

// Certificate certificado con el que se firma.
func (s *RecordSigner) Certificate() *x509.Certificate { return s.cert }

// Sign firma SHA-256(payload) y devuelve la firma en base64.
func (s *RecordSigner) Sign(payload []byte) (string, error) {
	digest := sha256.Sum256(payload)
	sig, err := s.key.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("signer: firmar: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify comprueba la firma con la llave pública del certificado.
func (s *RecordSigner) Verify(payload []byte, signature string) error {
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: base64: %v", ErrInvalidSignature, err)
	}
	digest := sha256.Sum256(payload)
	switch pub := s.cert.PublicKey.(type) {
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(pub, digest[:], sig) {
			return ErrInvalidSignature
		}
	default:
		return fmt.Errorf("signer: llave pública %T no soportada", pub)
	}
	return nil
}
