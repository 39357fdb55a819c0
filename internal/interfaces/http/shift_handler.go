package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/terencio/fiscal-core/internal/application/dto"
	"github.com/terencio/fiscal-core/internal/application/shift"
	"github.com/terencio/fiscal-core/internal/domain"
)

// ShiftHandler maneja las peticiones HTTP de turnos de caja (protegido).
type ShiftHandler struct {
	svc *shift.Service
}

// NewShiftHandler construye el handler.
func NewShiftHandler(svc *shift.Service) *ShiftHandler {
	return &ShiftHandler{svc: svc}
}

// Start godoc
// @Summary      Abrir turno de caja
// @Description  Un usuario solo puede tener un turno abierto. El dispositivo sale del token si lo incluye.
// @Tags         shifts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.StartShiftRequest  true  "starting_cash, device_id"
// @Success      201   {object}  dto.ShiftResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/shifts [post]
func (h *ShiftHandler) Start(c *fiber.Ctx) error {
	var in dto.StartShiftRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	in.UserID = GetUserID(c)
	if d := GetDeviceID(c); d != "" {
		in.DeviceID = d
	}
	out, err := h.svc.Start(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Close godoc
// @Summary      Cerrar turno con arqueo
// @Description  Solo el dueño del turno, un supervisor o un admin.
// @Tags         shifts
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "ID del turno"
// @Param        body  body      dto.CloseShiftRequest  true  "counted_cash, notes"
// @Success      200   {object}  dto.ShiftResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/shifts/{id}/close [post]
func (h *ShiftHandler) Close(c *fiber.Ctx) error {
	var in dto.CloseShiftRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if err := h.authorizeShift(c, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.Close(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// AutoClose godoc
// @Summary      Cierre automático del turno
// @Description  Contado = esperado, sin descuadre. Solo el dueño del turno, un supervisor o un admin.
// @Tags         shifts
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del turno"
// @Success      200  {object}  dto.ShiftResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/shifts/{id}/auto-close [post]
func (h *ShiftHandler) AutoClose(c *fiber.Ctx) error {
	if err := h.authorizeShift(c, c.Params("id")); err != nil {
		return writeError(c, err)
	}
	out, err := h.svc.AutoClose(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetOpen godoc
// @Summary      Turno abierto del usuario
// @Tags         shifts
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ShiftResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/shifts/open [get]
func (h *ShiftHandler) GetOpen(c *fiber.Ctx) error {
	out, err := h.svc.GetOpen(c.UserContext(), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Historial de turnos del usuario
// @Tags         shifts
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.ShiftResponse
// @Router       /api/shifts [get]
func (h *ShiftHandler) List(c *fiber.Ctx) error {
	out, err := h.svc.ListByUser(c.UserContext(), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener turno
// @Tags         shifts
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del turno"
// @Success      200  {object}  dto.ShiftResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/shifts/{id} [get]
func (h *ShiftHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Report godoc
// @Summary      Informe Z del turno
// @Tags         shifts
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del turno"
// @Success      200  {object}  dto.ShiftReportResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/shifts/{id}/report [get]
func (h *ShiftHandler) Report(c *fiber.Ctx) error {
	out, err := h.svc.Report(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ReportPDF godoc
// @Summary      Informe Z del turno en PDF
// @Tags         shifts
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path      string  true  "ID del turno"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/shifts/{id}/report.pdf [get]
func (h *ShiftHandler) ReportPDF(c *fiber.Ctx) error {
	id := c.Params("id")
	b, err := h.svc.ReportPDF(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="informe-z-`+id+`.pdf"`)
	return c.Send(b)
}

// authorizeShift solo el dueño del turno, un supervisor o un admin pueden cuadrarlo.
func (h *ShiftHandler) authorizeShift(c *fiber.Ctx, shiftID string) error {
	switch GetRole(c) {
	case RoleAdmin, RoleSupervisor:
		return nil
	}
	sh, err := h.svc.Get(c.UserContext(), shiftID)
	if err != nil {
		return err
	}
	if sh.UserID != GetUserID(c) {
		return fmt.Errorf("%w: el turno %s pertenece a otro usuario", domain.ErrUnauthorized, shiftID)
	}
	return nil
}
