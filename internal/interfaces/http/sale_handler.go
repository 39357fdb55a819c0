package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/terencio/fiscal-core/internal/application/dto"
	"github.com/terencio/fiscal-core/internal/application/sales"
)

// SaleHandler maneja las peticiones HTTP de ventas (protegido).
type SaleHandler struct {
	svc *sales.Service
}

// NewSaleHandler construye el handler.
func NewSaleHandler(svc *sales.Service) *SaleHandler {
	return &SaleHandler{svc: svc}
}

// Create godoc
// @Summary      Crear venta en borrador
// @Description  Guarda líneas, totales y pagos ya calculados. No consume número fiscal.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateSaleRequest  true  "series, total_net, total_tax, total_amount, lines, payments"
// @Success      201   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	in.UserID = GetUserID(c)
	if d := GetDeviceID(c); d != "" {
		in.DeviceID = d
	}
	out, err := h.svc.CreateDraft(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Finalize godoc
// @Summary      Emitir venta
// @Description  Asigna número de serie, encadena el registro ALTA y pasa la venta a COMPLETED en una transacción.
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      423  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/finalize [post]
func (h *SaleHandler) Finalize(c *fiber.Ctx) error {
	out, err := h.svc.Finalize(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Void godoc
// @Summary      Anular o rectificar venta emitida
// @Description  Crea la venta correctora en negativo con su número y un registro ANULACION.
// @Description  Sin shift_id se usa el turno de la original o, si ya cerró, el turno abierto del usuario.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string               true  "ID de la venta original"
// @Param        body  body      dto.VoidSaleRequest  true  "reason, mode (void|rectify), shift_id"
// @Success      201   {object}  dto.VoidSaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      423   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/void [post]
func (h *SaleHandler) Void(c *fiber.Ctx) error {
	var in dto.VoidSaleRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	in.UserID = GetUserID(c)
	out, err := h.svc.VoidOrRectify(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener venta
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.svc.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Ventas emitidas por fecha
// @Description  Fechas YYYY-MM-DD (día completo, ambos incluidos) o RFC3339 (to excluido).
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        from       query     string  true   "Desde"
// @Param        to         query     string  true   "Hasta"
// @Param        device_id  query     string  false  "Filtrar por dispositivo"
// @Success      200        {array}   dto.SaleResponse
// @Failure      400        {object}  dto.ErrorResponse
// @Router       /api/sales [get]
func (h *SaleHandler) List(c *fiber.Ctx) error {
	var q dto.SaleRangeQuery
	if err := c.QueryParser(&q); err != nil {
		return badBody(c)
	}
	out, err := h.svc.ListIssued(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListByShift godoc
// @Summary      Ventas de un turno
// @Tags         shifts
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del turno"
// @Success      200  {array}   dto.SaleResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/shifts/{id}/sales [get]
func (h *SaleHandler) ListByShift(c *fiber.Ctx) error {
	out, err := h.svc.ListByShift(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
