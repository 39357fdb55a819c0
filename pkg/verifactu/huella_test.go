package verifactu_test

import (
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terencio/fiscal-core/pkg/verifactu"
)

// ──────────────────────────────────────────────────────────────────────────────
// Vectores de huella calculados fuera de Go (sha256sum sobre la cadena canónica
// guardada en testdata/golden). Si cambia el orden de campos, el formato del
// importe o de la fecha, estos tests fallan antes de romper cadenas ya emitidas.
// ──────────────────────────────────────────────────────────────────────────────

const (
	hashAlta      = "B473F5705F9AD09FF89B4A2AA9C85272D205EB037786BB37C4B9C503B8B3FA87"
	hashAnulacion = "C4C594558E8F3C262602949550811BA2EE032A329F718E36BC87E14E6DDA5D32"
)

func altaFields() verifactu.RecordFields {
	return verifactu.RecordFields{
		IssuerTaxID:       "B12345674",
		DeviceID:          "TPV-01",
		ChainSequenceID:   1,
		EventType:         verifactu.EventAlta,
		DocumentReference: "F1-00000001",
		SaleID:            "s1",
		Amount:            decimal.RequireFromString("35.5"),
		RecordedAt:        time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC),
		PreviousHash:      verifactu.GenesisHash,
	}
}

func TestCanonical_Golden(t *testing.T) {
	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))

	c, err := verifactu.Canonical(altaFields())
	require.NoError(t, err)
	g.Assert(t, "canonical_alta", c)

	anul := altaFields()
	anul.ChainSequenceID = 2
	anul.EventType = verifactu.EventAnulacion
	anul.SaleID = "s2"
	anul.RecordedAt = time.Date(2024, 3, 1, 10, 20, 0, 0, time.UTC)
	anul.PreviousHash = hashAlta
	c, err = verifactu.Canonical(anul)
	require.NoError(t, err)
	g.Assert(t, "canonical_anulacion", c)
}

func TestComputeHash_VectorExacto(t *testing.T) {
	h, err := verifactu.ComputeHash(altaFields())
	require.NoError(t, err)
	assert.Equal(t, hashAlta, h, "la huella del primer registro no coincide con el vector")

	anul := altaFields()
	anul.ChainSequenceID = 2
	anul.EventType = verifactu.EventAnulacion
	anul.SaleID = "s2"
	anul.RecordedAt = time.Date(2024, 3, 1, 10, 20, 0, 0, time.UTC)
	anul.PreviousHash = h
	h2, err := verifactu.ComputeHash(anul)
	require.NoError(t, err)
	assert.Equal(t, hashAnulacion, h2)
}

func TestComputeHash_NormalizesInputs(t *testing.T) {
	base, err := verifactu.ComputeHash(altaFields())
	require.NoError(t, err)

	f := altaFields()
	f.IssuerTaxID = " b-12345674 "
	f.DeviceID = "  TPV-01\t"
	f.Amount = decimal.RequireFromString("35.500")
	f.RecordedAt = time.Date(2024, 3, 1, 11, 15, 30, 999, time.FixedZone("CET", 3600))
	h, err := verifactu.ComputeHash(f)
	require.NoError(t, err)
	assert.Equal(t, base, h, "misma información con distinta presentación debe producir la misma huella")
}

func TestComputeHash_NFC(t *testing.T) {
	composed := altaFields()
	composed.DeviceID = "CAJA-ESPAÑA"
	decomposed := altaFields()
	decomposed.DeviceID = "CAJA-ESPAN\u0303A"

	h1, err := verifactu.ComputeHash(composed)
	require.NoError(t, err)
	h2, err := verifactu.ComputeHash(decomposed)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestComputeHash_FieldSensitivity(t *testing.T) {
	base, err := verifactu.ComputeHash(altaFields())
	require.NoError(t, err)

	mutations := map[string]func(*verifactu.RecordFields){
		"importe":   func(f *verifactu.RecordFields) { f.Amount = decimal.RequireFromString("35.51") },
		"secuencia": func(f *verifactu.RecordFields) { f.ChainSequenceID = 2 },
		"tipo":      func(f *verifactu.RecordFields) { f.EventType = verifactu.EventAnulacion },
		"fecha":     func(f *verifactu.RecordFields) { f.RecordedAt = f.RecordedAt.Add(time.Second) },
		"anterior":  func(f *verifactu.RecordFields) { f.PreviousHash = hashAlta },
		"emisor":    func(f *verifactu.RecordFields) { f.IssuerTaxID = "12345678Z" },
		"venta":     func(f *verifactu.RecordFields) { f.SaleID = "s9" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			f := altaFields()
			mutate(&f)
			h, err := verifactu.ComputeHash(f)
			require.NoError(t, err)
			assert.NotEqual(t, base, h)
		})
	}
}

func TestCanonical_EscapesSeparators(t *testing.T) {
	f := altaFields()
	f.DocumentReference = "A&B=C"
	c, err := verifactu.Canonical(f)
	require.NoError(t, err)
	assert.Contains(t, string(c), "NumSerieFactura=A%26B%3DC&")
}

func TestCanonical_RequiredFields(t *testing.T) {
	cases := map[string]func(*verifactu.RecordFields){
		"sin emisor":         func(f *verifactu.RecordFields) { f.IssuerTaxID = "" },
		"sin dispositivo":    func(f *verifactu.RecordFields) { f.DeviceID = " " },
		"secuencia cero":     func(f *verifactu.RecordFields) { f.ChainSequenceID = 0 },
		"tipo desconocido":   func(f *verifactu.RecordFields) { f.EventType = "BAJA" },
		"sin referencia":     func(f *verifactu.RecordFields) { f.DocumentReference = "" },
		"sin venta":          func(f *verifactu.RecordFields) { f.SaleID = "" },
		"sin fecha":          func(f *verifactu.RecordFields) { f.RecordedAt = time.Time{} },
		"huella mal formada": func(f *verifactu.RecordFields) { f.PreviousHash = "abc" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := altaFields()
			mutate(&f)
			_, err := verifactu.Canonical(f)
			assert.Error(t, err)
		})
	}
}
