// Package xmlexport serializa los registros de la cadena fiscal a XML canónico (C14N)
// para el remitente que los entrega a la administración.
package xmlexport

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/terencio/fiscal-core/internal/application/fiscal"
	"github.com/terencio/fiscal-core/internal/domain/entity"
	"github.com/terencio/fiscal-core/pkg/verifactu"
)

var _ fiscal.RecordRenderer = (*Renderer)(nil)

// TipoHuella 01 = SHA-256.
const tipoHuellaSHA256 = "01"

// Renderer implementa fiscal.RecordRenderer.
type Renderer struct {
	issuerName string
}

// NewRenderer crea el renderer; issuerName va en la cabecera del documento.
func NewRenderer(issuerName string) *Renderer {
	return &Renderer{issuerName: issuerName}
}

// RenderRecord XML de un único registro.
func (r *Renderer) RenderRecord(rec *entity.FiscalRecord) ([]byte, error) {
	if rec == nil {
		return nil, fmt.Errorf("xmlexport: registro nulo")
	}
	doc := etree.NewDocument()
	root := r.newRoot(doc, rec.IssuerTaxID)
	if err := appendRecord(root, rec); err != nil {
		return nil, err
	}
	return canonicalize(doc)
}

// RenderChain XML con todos los registros del dispositivo en orden de cadena.
func (r *Renderer) RenderChain(deviceID string, records []*entity.FiscalRecord) ([]byte, error) {
	doc := etree.NewDocument()
	issuer := ""
	if len(records) > 0 {
		issuer = records[0].IssuerTaxID
	}
	root := r.newRoot(doc, issuer)
	root.CreateAttr("IdDispositivo", deviceID)
	root.CreateAttr("NumRegistros", strconv.Itoa(len(records)))
	for _, rec := range records {
		if rec.DeviceID != deviceID {
			return nil, fmt.Errorf("xmlexport: registro %s de %s en la cadena de %s", rec.ID, rec.DeviceID, deviceID)
		}
		if err := appendRecord(root, rec); err != nil {
			return nil, err
		}
	}
	return canonicalize(doc)
}

func (r *Renderer) newRoot(doc *etree.Document, issuerTaxID string) *etree.Element {
	root := doc.CreateElement(tag("RegistroFacturacion"))
	root.CreateAttr("xmlns:"+verifactu.PrefixRegistro, verifactu.NamespaceRegistro)
	head := root.CreateElement(tag("Cabecera"))
	obligado := head.CreateElement(tag("ObligadoEmision"))
	if r.issuerName != "" {
		obligado.CreateElement(tag("NombreRazon")).SetText(r.issuerName)
	}
	obligado.CreateElement(tag("NIF")).SetText(issuerTaxID)
	return root
}

func appendRecord(parent *etree.Element, rec *entity.FiscalRecord) error {
	var name string
	switch rec.EventType {
	case verifactu.EventAlta:
		name = "RegistroAlta"
	case verifactu.EventAnulacion:
		name = "RegistroAnulacion"
	default:
		return fmt.Errorf("xmlexport: tipo de registro %q", rec.EventType)
	}
	el := parent.CreateElement(tag(name))
	el.CreateAttr("Id", "R-"+rec.ID)

	id := el.CreateElement(tag("IDFactura"))
	id.CreateElement(tag("IDEmisorFactura")).SetText(rec.IssuerTaxID)
	id.CreateElement(tag("NumSerieFactura")).SetText(rec.DocumentReference)

	el.CreateElement(tag("IdDispositivo")).SetText(rec.DeviceID)
	el.CreateElement(tag("NumSecuencia")).SetText(strconv.FormatInt(rec.ChainSequenceID, 10))
	el.CreateElement(tag("RefExterna")).SetText(rec.SaleID)
	if rec.EventType == verifactu.EventAlta {
		el.CreateElement(tag("ImporteTotal")).SetText(verifactu.FormatAmount(rec.Amount))
	}

	enc := el.CreateElement(tag("Encadenamiento"))
	if rec.ChainSequenceID == 1 {
		enc.CreateElement(tag("PrimerRegistro")).SetText("S")
	} else {
		enc.CreateElement(tag("RegistroAnterior")).CreateElement(tag("Huella")).SetText(rec.PreviousHash)
	}

	el.CreateElement(tag("FechaHoraHusoGenRegistro")).SetText(verifactu.FormatTimestamp(rec.RecordedAt))
	el.CreateElement(tag("TipoHuella")).SetText(tipoHuellaSHA256)
	el.CreateElement(tag("Huella")).SetText(rec.RecordHash)
	if rec.Signature != "" {
		el.CreateElement(tag("Firma")).SetText(rec.Signature)
	}
	return nil
}

func tag(local string) string {
	return verifactu.PrefixRegistro + ":" + local
}

func canonicalize(doc *etree.Document) ([]byte, error) {
	raw, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("xmlexport: serializar: %w", err)
	}
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return nil, fmt.Errorf("xmlexport: canonicalizar: %w", err)
	}
	return out, nil
}
