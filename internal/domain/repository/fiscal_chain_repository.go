package repository

import (
	"context"

	"github.com/terencio/fiscal-core/internal/domain/entity"
)

// FiscalChainRepository persistencia de la cadena de registros fiscales (solo inserción).
type FiscalChainRepository interface {
	// LockDevice serializa los escritores de la cadena del dispositivo hasta el fin de la transacción.
	LockDevice(ctx context.Context, deviceID string) error
	// GetHead devuelve el registro con mayor secuencia del dispositivo o nil si la cadena está vacía.
	GetHead(ctx context.Context, deviceID string) (*entity.FiscalRecord, error)
	Create(ctx context.Context, rec *entity.FiscalRecord) error
	GetByID(ctx context.Context, id string) (*entity.FiscalRecord, error)
	// ListByDevice en orden ascendente de secuencia.
	ListByDevice(ctx context.Context, deviceID string) ([]*entity.FiscalRecord, error)
	ListBySale(ctx context.Context, saleID string) ([]*entity.FiscalRecord, error)
	// ListDevices devuelve los dispositivos que tienen al menos un registro.
	ListDevices(ctx context.Context) ([]string, error)

	GetHold(ctx context.Context, deviceID string) (*entity.DeviceHold, error)
	// CreateHold no sobrescribe un bloqueo existente.
	CreateHold(ctx context.Context, hold *entity.DeviceHold) error
}
