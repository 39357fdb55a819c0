package verifactu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateNIF(t *testing.T) {
	valid := []string{"12345678Z", "12345678-z", "B12345674", "B-1234567-4", "X0000000T"}
	for _, id := range valid {
		assert.NoError(t, ValidateNIF(id), id)
	}

	invalid := []string{"12345678A", "B12345678", "1234", "I12345674", "X000000AT"}
	for _, id := range invalid {
		assert.Error(t, ValidateNIF(id), id)
	}
}

func TestNormalizeTaxID(t *testing.T) {
	assert.Equal(t, "B12345674", NormalizeTaxID(" b-1234.5674 "))
}
