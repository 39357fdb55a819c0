package verifactu

import (
	"fmt"
	"strings"
	"unicode"
)

const dniLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

// NormalizeTaxID deja el NIF en mayúsculas, sin espacios, puntos ni guiones.
func NormalizeTaxID(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateNIF valida el carácter de control de un NIF español (DNI, NIE o CIF).
// taxID puede venir con guiones o espacios: "12345678-Z", "X1234567L", "B 1234567 4".
func ValidateNIF(taxID string) error {
	id := NormalizeTaxID(taxID)
	if len(id) != 9 {
		return fmt.Errorf("verifactu: NIF debe tener 9 caracteres, se recibieron %d", len(id))
	}
	switch first := id[0]; {
	case first >= '0' && first <= '9':
		return validateDNI(id[:8], id[8])
	case first == 'X' || first == 'Y' || first == 'Z':
		prefix := string(rune('0' + strings.IndexByte("XYZ", first)))
		return validateDNI(prefix+id[1:8], id[8])
	case strings.IndexByte("ABCDEFGHJNPQRSUVW", first) >= 0:
		return validateCIF(id)
	default:
		return fmt.Errorf("verifactu: NIF con letra inicial %q no reconocida", first)
	}
}

func validateDNI(digits string, control byte) error {
	n := 0
	for _, r := range digits {
		if r < '0' || r > '9' {
			return fmt.Errorf("verifactu: NIF con caracteres no numéricos en la parte central")
		}
		n = n*10 + int(r-'0')
	}
	if expected := dniLetters[n%23]; expected != control {
		return fmt.Errorf("verifactu: letra de control del NIF inválida: esperada %c, recibida %c", expected, control)
	}
	return nil
}

// validateCIF aplica el algoritmo de control de personas jurídicas; el control
// puede ser dígito o letra (J=0, A=1 ... I=9) según el tipo de entidad.
func validateCIF(id string) error {
	sum := 0
	for i := 1; i <= 7; i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return fmt.Errorf("verifactu: CIF con caracteres no numéricos en la parte central")
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 2
			d = d/10 + d%10
		}
		sum += d
	}
	control := (10 - sum%10) % 10
	got := id[8]
	if got == byte('0'+control) || got == "JABCDEFGHI"[control] {
		return nil
	}
	return fmt.Errorf("verifactu: carácter de control del CIF inválido: esperado %d, recibido %c", control, got)
}
