package xmlexport

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"

	"github.com/terencio/fiscal-core/internal/domain/entity"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]`)

// RenderBundle empaqueta en un ZIP en memoria la cadena completa y un XML por registro:
//
//	{NIF}{DISPOSITIVO}.xml              cadena completa
//	{NIF}{DISPOSITIVO}{SECUENCIA}.xml   un registro (secuencia con 8 dígitos)
func (r *Renderer) RenderBundle(deviceID string, records []*entity.FiscalRecord) ([]byte, error) {
	chainXML, err := r.RenderChain(deviceID, records)
	if err != nil {
		return nil, err
	}
	issuer := ""
	if len(records) > 0 {
		issuer = records[0].IssuerTaxID
	}
	base := BundleBaseName(issuer, deviceID)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := writeEntry(zw, base+".xml", chainXML); err != nil {
		return nil, err
	}
	for _, rec := range records {
		b, err := r.RenderRecord(rec)
		if err != nil {
			return nil, err
		}
		if err := writeEntry(zw, fmt.Sprintf("%s%08d.xml", base, rec.ChainSequenceID), b); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}

// BundleBaseName prefijo de los archivos del paquete, sin guiones ni espacios.
func BundleBaseName(issuerTaxID, deviceID string) string {
	return nonAlnum.ReplaceAllString(issuerTaxID, "") + nonAlnum.ReplaceAllString(deviceID, "")
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("zip: crear entrada %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("zip: escribir %s: %w", name, err)
	}
	return nil
}
