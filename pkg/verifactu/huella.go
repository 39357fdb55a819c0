// Package verifactu: forma canónica y huella (hash encadenado) de los registros fiscales.
// Cada registro incluye la huella del anterior del mismo dispositivo; alterar cualquier
// campo de un registro rompe su huella y el enlace del siguiente.

package verifactu

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// GenesisHash es la huella "anterior" del primer registro de cada dispositivo.
var GenesisHash = strings.Repeat("0", sha256.Size*2)

// RecordFields son exactamente los campos que entran en la huella, en este orden:
// IDEmisorFactura, IdDispositivo, NumSecuencia, TipoRegistro, NumSerieFactura,
// RefExterna, ImporteTotal, FechaHoraHusoGenRegistro, HuellaAnterior.
// RefExterna es el ID interno de la venta que originó el registro.
type RecordFields struct {
	IssuerTaxID       string
	DeviceID          string
	ChainSequenceID   int64
	EventType         string
	DocumentReference string
	SaleID            string
	Amount            decimal.Decimal
	RecordedAt        time.Time
	PreviousHash      string
}

var textEscaper = strings.NewReplacer("%", "%25", "&", "%26", "=", "%3D")

// Canonical serializa los campos a la cadena "clave=valor&..." que se hashea.
// Textos: NFC, sin espacios laterales y con '&', '=' y '%' escapados.
// Importe: punto decimal y 2 decimales. Fecha: RFC3339 en UTC truncada a segundos.
func Canonical(f RecordFields) ([]byte, error) {
	issuer := NormalizeTaxID(f.IssuerTaxID)
	if issuer == "" {
		return nil, fmt.Errorf("verifactu: IDEmisorFactura es obligatorio")
	}
	device := normalizeText(f.DeviceID)
	if device == "" {
		return nil, fmt.Errorf("verifactu: IdDispositivo es obligatorio")
	}
	if f.ChainSequenceID < 1 {
		return nil, fmt.Errorf("verifactu: NumSecuencia debe ser >= 1, recibido %d", f.ChainSequenceID)
	}
	if !ValidEventType(f.EventType) {
		return nil, fmt.Errorf("verifactu: TipoRegistro %q no reconocido", f.EventType)
	}
	ref := normalizeText(f.DocumentReference)
	if ref == "" {
		return nil, fmt.Errorf("verifactu: NumSerieFactura es obligatorio")
	}
	saleRef := normalizeText(f.SaleID)
	if saleRef == "" {
		return nil, fmt.Errorf("verifactu: RefExterna es obligatoria")
	}
	if f.RecordedAt.IsZero() {
		return nil, fmt.Errorf("verifactu: FechaHoraHusoGenRegistro es obligatoria")
	}
	if !IsValidHash(f.PreviousHash) {
		return nil, fmt.Errorf("verifactu: HuellaAnterior inválida %q", f.PreviousHash)
	}

	var b strings.Builder
	b.WriteString("IDEmisorFactura=" + textEscaper.Replace(issuer))
	b.WriteString("&IdDispositivo=" + textEscaper.Replace(device))
	b.WriteString("&NumSecuencia=" + strconv.FormatInt(f.ChainSequenceID, 10))
	b.WriteString("&TipoRegistro=" + f.EventType)
	b.WriteString("&NumSerieFactura=" + textEscaper.Replace(ref))
	b.WriteString("&RefExterna=" + textEscaper.Replace(saleRef))
	b.WriteString("&ImporteTotal=" + FormatAmount(f.Amount))
	b.WriteString("&FechaHoraHusoGenRegistro=" + FormatTimestamp(f.RecordedAt))
	b.WriteString("&HuellaAnterior=" + strings.ToUpper(f.PreviousHash))
	return []byte(b.String()), nil
}

// Hash devuelve el SHA-256 de la forma canónica en hexadecimal mayúsculas.
func Hash(canonical []byte) string {
	sum := sha256.Sum256(canonical)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// ComputeHash es Canonical + Hash.
func ComputeHash(f RecordFields) (string, error) {
	c, err := Canonical(f)
	if err != nil {
		return "", err
	}
	return Hash(c), nil
}

// IsValidHash indica si s tiene forma de huella SHA-256 en hexadecimal.
func IsValidHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// FormatAmount: sin separador de miles, punto decimal, 2 decimales.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatTimestamp: RFC3339 en UTC con precisión de segundos.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
