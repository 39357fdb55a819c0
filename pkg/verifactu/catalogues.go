package verifactu

// Tipos de registro de la cadena.
const (
	EventAlta      = "ALTA"      // emisión de una venta
	EventAnulacion = "ANULACION" // anulación o rectificación de una venta emitida
)

// ValidEventType indica si el tipo de registro es uno de los reconocidos.
func ValidEventType(t string) bool {
	return t == EventAlta || t == EventAnulacion
}

// Espacio de nombres del XML de exportación de registros.
const (
	NamespaceRegistro = "urn:fiscal-core:verifactu:registro:1.0"
	PrefixRegistro    = "rf"
)
