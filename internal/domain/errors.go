package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrEmptySale           = errors.New("la venta no tiene líneas")
	ErrTotalMismatch       = errors.New("los totales de la venta no cuadran con sus líneas y pagos")
	ErrInvalidState        = errors.New("operación no permitida en el estado actual")
	ErrShiftAlreadyOpen    = errors.New("el usuario ya tiene un turno abierto")
	ErrShiftClosed         = errors.New("el turno está cerrado")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia")
	ErrTransient           = errors.New("fallo transitorio, reintente la operación")
	ErrChainIntegrity      = errors.New("integridad de la cadena fiscal comprometida")
	ErrUnauthorized        = errors.New("no autorizado")
)
