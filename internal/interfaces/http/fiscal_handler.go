package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/terencio/fiscal-core/internal/application/fiscal"
)

// FiscalHandler consulta y verificación de la cadena fiscal (protegido).
type FiscalHandler struct {
	ledger *fiscal.Ledger
}

// NewFiscalHandler construye el handler.
func NewFiscalHandler(ledger *fiscal.Ledger) *FiscalHandler {
	return &FiscalHandler{ledger: ledger}
}

// Integrity godoc
// @Summary      Verificar la cadena fiscal del dispositivo
// @Description  Una cadena rota responde 200 con valid=false y deja el dispositivo bloqueado.
// @Tags         fiscal
// @Security     Bearer
// @Produce      json
// @Param        deviceId  path      string  true  "Dispositivo"
// @Success      200       {object}  chain.IntegrityReport
// @Failure      500       {object}  dto.ErrorResponse
// @Router       /api/fiscal/devices/{deviceId}/integrity [get]
func (h *FiscalHandler) Integrity(c *fiber.Ctx) error {
	report, err := h.ledger.ValidateChainIntegrity(c.UserContext(), c.Params("deviceId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

// Head godoc
// @Summary      Cabeza de la cadena fiscal
// @Tags         fiscal
// @Security     Bearer
// @Produce      json
// @Param        deviceId  path      string  true  "Dispositivo"
// @Success      200       {object}  dto.ChainHeadResponse
// @Router       /api/fiscal/devices/{deviceId}/head [get]
func (h *FiscalHandler) Head(c *fiber.Ctx) error {
	out, err := h.ledger.GetChainHead(c.UserContext(), c.Params("deviceId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// DeviceXML godoc
// @Summary      Cadena fiscal en XML canónico
// @Description  Solo admin o supervisor.
// @Tags         fiscal
// @Security     Bearer
// @Produce      application/xml
// @Param        deviceId  path      string  true  "Dispositivo"
// @Success      200       {string}  string
// @Failure      403       {object}  dto.ErrorResponse
// @Router       /api/fiscal/devices/{deviceId}/xml [get]
func (h *FiscalHandler) DeviceXML(c *fiber.Ctx) error {
	b, err := h.ledger.ExportDeviceXML(c.UserContext(), c.Params("deviceId"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	return c.Send(b)
}

// DeviceBundle godoc
// @Summary      ZIP con la cadena y un XML por registro
// @Description  Solo admin o supervisor.
// @Tags         fiscal
// @Security     Bearer
// @Produce      application/zip
// @Param        deviceId  path      string  true  "Dispositivo"
// @Success      200       {file}    binary
// @Failure      403       {object}  dto.ErrorResponse
// @Router       /api/fiscal/devices/{deviceId}/zip [get]
func (h *FiscalHandler) DeviceBundle(c *fiber.Ctx) error {
	deviceID := c.Params("deviceId")
	b, err := h.ledger.ExportDeviceBundle(c.UserContext(), deviceID)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+deviceID+`.zip"`)
	return c.Send(b)
}

// RecordXML godoc
// @Summary      Registro fiscal en XML canónico
// @Description  Solo admin o supervisor.
// @Tags         fiscal
// @Security     Bearer
// @Produce      application/xml
// @Param        id   path      string  true  "ID del registro"
// @Success      200  {string}  string
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/fiscal/records/{id}/xml [get]
func (h *FiscalHandler) RecordXML(c *fiber.Ctx) error {
	b, err := h.ledger.ExportRecordXML(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationXMLCharsetUTF8)
	return c.Send(b)
}
