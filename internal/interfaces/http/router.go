package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/terencio/fiscal-core/internal/application/fiscal"
	"github.com/terencio/fiscal-core/internal/application/sales"
	"github.com/terencio/fiscal-core/internal/application/shift"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Sales     *sales.Service
	Shifts    *shift.Service
	Ledger    *fiscal.Ledger
	JWTSecret string
}

// Router registra las rutas de la API. Todas requieren Bearer Token.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	// Ventas
	salesGroup := api.Group("/sales")
	saleHandler := NewSaleHandler(deps.Sales)
	salesGroup.Post("/", saleHandler.Create)
	salesGroup.Get("/", saleHandler.List)
	salesGroup.Get("/:id", saleHandler.GetByID)
	salesGroup.Post("/:id/finalize", saleHandler.Finalize)
	salesGroup.Post("/:id/void", saleHandler.Void)

	// Turnos de caja
	shifts := api.Group("/shifts")
	shiftHandler := NewShiftHandler(deps.Shifts)
	shifts.Post("/", shiftHandler.Start)
	shifts.Get("/", shiftHandler.List)
	shifts.Get("/open", shiftHandler.GetOpen)
	shifts.Get("/:id", shiftHandler.GetByID)
	shifts.Get("/:id/sales", saleHandler.ListByShift)
	shifts.Get("/:id/report", shiftHandler.Report)
	shifts.Get("/:id/report.pdf", shiftHandler.ReportPDF)
	shifts.Post("/:id/close", shiftHandler.Close)
	shifts.Post("/:id/auto-close", shiftHandler.AutoClose)

	// Cadena fiscal: consulta libre; exportación solo admin/supervisor
	fiscalGroup := api.Group("/fiscal")
	fiscalHandler := NewFiscalHandler(deps.Ledger)
	fiscalGroup.Get("/devices/:deviceId/integrity", fiscalHandler.Integrity)
	fiscalGroup.Get("/devices/:deviceId/head", fiscalHandler.Head)
	exportRoles := RequireRole(RoleAdmin, RoleSupervisor)
	fiscalGroup.Get("/devices/:deviceId/xml", exportRoles, fiscalHandler.DeviceXML)
	fiscalGroup.Get("/devices/:deviceId/zip", exportRoles, fiscalHandler.DeviceBundle)
	fiscalGroup.Get("/records/:id/xml", exportRoles, fiscalHandler.RecordXML)
}
