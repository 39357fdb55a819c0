package signer_test

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terencio/fiscal-core/internal/infrastructure/signer"
)

// writeSelfSigned genera un certificado autofirmado y devuelve las rutas del PEM de certificado y llave.
func writeSelfSigned(t *testing.T, key crypto.Signer) (string, string) {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "B12345674", Organization: []string{"Bar Terencio SL"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, key.Public(), key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certPath, keyPath
}

func TestRecordSigner_RSA(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	certPath, keyPath := writeSelfSigned(t, key)

	s, err := signer.Load(certPath, keyPath, "")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "B12345674", s.Certificate().Subject.CommonName)
	assert.Len(t, signer.Fingerprint(s.Certificate()), 64)

	payload := []byte("IDEmisorFactura=B12345674&IdDispositivo=TPV-01&NumSecuencia=1")
	sig, err := s.Sign(payload)
	require.NoError(t, err)
	require.NoError(t, s.Verify(payload, sig))

	err = s.Verify([]byte("IDEmisorFactura=B12345674&IdDispositivo=TPV-01&NumSecuencia=2"), sig)
	require.ErrorIs(t, err, signer.ErrInvalidSignature)
	require.ErrorIs(t, s.Verify(payload, "%%%no-base64"), signer.ErrInvalidSignature)
}

func TestRecordSigner_ECDSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	certPath, keyPath := writeSelfSigned(t, key)

	s, err := signer.Load(certPath, keyPath, "")
	require.NoError(t, err)

	payload := []byte("ImporteTotal=35.50")
	sig, err := s.Sign(payload)
	require.NoError(t, err)
	require.NoError(t, s.Verify(payload, sig))
	require.ErrorIs(t, s.Verify([]byte("ImporteTotal=35.51"), sig), signer.ErrInvalidSignature)
}

func TestLoad_SinCertificado(t *testing.T) {
	s, err := signer.Load("", "", "")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestLoad_ArchivosInexistentes(t *testing.T) {
	_, err := signer.Load(filepath.Join(t.TempDir(), "no.pem"), "", "")
	require.Error(t, err)
	_, err = signer.Load(filepath.Join(t.TempDir(), "no.p12"), "", "secreto")
	require.Error(t, err)
}
