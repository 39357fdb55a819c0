package chain_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terencio/fiscal-core/internal/domain"
	"github.com/terencio/fiscal-core/internal/domain/chain"
	"github.com/terencio/fiscal-core/internal/domain/entity"
	"github.com/terencio/fiscal-core/pkg/verifactu"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func buildChain(t *testing.T, device string, n int) []*entity.FiscalRecord {
	t.Helper()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	prev := verifactu.GenesisHash
	out := make([]*entity.FiscalRecord, 0, n)
	for i := 1; i <= n; i++ {
		rec := &entity.FiscalRecord{
			ID:                fmt.Sprintf("rec-%d", i),
			SaleID:            fmt.Sprintf("venta-%d", i),
			DeviceID:          device,
			EventType:         verifactu.EventAlta,
			ChainSequenceID:   int64(i),
			DocumentReference: entity.FormatReference("F1", int64(i)),
			IssuerTaxID:       "B12345674",
			Amount:            decimal.NewFromInt(int64(10 * i)),
			RecordedAt:        base.Add(time.Duration(i) * time.Minute),
			PreviousHash:      prev,
		}
		h, err := verifactu.ComputeHash(chain.Fields(rec))
		require.NoError(t, err)
		rec.RecordHash = h
		prev = h
		out = append(out, rec)
	}
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestVerifyChain_Valid(t *testing.T) {
	recs := buildChain(t, "TPV-01", 5)
	assert.Nil(t, chain.VerifyChain("TPV-01", recs))
	assert.Nil(t, chain.VerifyChain("TPV-01", nil), "cadena vacía es válida")
}

func TestVerifyChain_TamperedAmountDetectedAtRecord(t *testing.T) {
	recs := buildChain(t, "TPV-01", 5)
	recs[2].Amount = recs[2].Amount.Add(decimal.NewFromInt(1))

	v := chain.VerifyChain("TPV-01", recs)
	require.NotNil(t, v)
	assert.Equal(t, int64(3), v.ChainSequenceID)
	assert.Equal(t, chain.ViolationHashMismatch, v.Kind)
}

func TestVerifyChain_TamperedPreviousHashDetectedAtRecord(t *testing.T) {
	recs := buildChain(t, "TPV-01", 5)
	recs[3].PreviousHash = verifactu.GenesisHash

	v := chain.VerifyChain("TPV-01", recs)
	require.NotNil(t, v)
	assert.Equal(t, int64(4), v.ChainSequenceID)
	assert.Equal(t, chain.ViolationBrokenLink, v.Kind)
}

func TestVerifyChain_SaleReferenceRepointedDetectedAtRecord(t *testing.T) {
	recs := buildChain(t, "TPV-01", 4)
	recs[1].SaleID = recs[3].SaleID

	v := chain.VerifyChain("TPV-01", recs)
	require.NotNil(t, v)
	assert.Equal(t, int64(2), v.ChainSequenceID)
	assert.Equal(t, chain.ViolationHashMismatch, v.Kind)
}

func TestVerifyChain_Gap(t *testing.T) {
	recs := buildChain(t, "TPV-01", 5)
	recs = append(recs[:2], recs[3:]...)

	v := chain.VerifyChain("TPV-01", recs)
	require.NotNil(t, v)
	assert.Equal(t, int64(3), v.ChainSequenceID)
	assert.Equal(t, chain.ViolationSequenceGap, v.Kind)
}

func TestVerifyChain_ForeignDevice(t *testing.T) {
	recs := buildChain(t, "TPV-01", 2)
	v := chain.VerifyChain("TPV-02", recs)
	require.NotNil(t, v)
	assert.Equal(t, chain.ViolationForeignDevice, v.Kind)
}

func TestVerifyRecord_RewrittenHash(t *testing.T) {
	recs := buildChain(t, "TPV-01", 1)
	recs[0].RecordHash = verifactu.GenesisHash
	v := chain.VerifyRecord(recs[0])
	require.NotNil(t, v)
	assert.Equal(t, int64(1), v.ChainSequenceID)
}

func TestIntegrityError_WrapsDomainError(t *testing.T) {
	err := fmt.Errorf("finalize: %w", &chain.IntegrityError{
		DeviceID:  "TPV-01",
		Violation: chain.Violation{ChainSequenceID: 7, Kind: chain.ViolationHashMismatch},
	})
	assert.True(t, errors.Is(err, domain.ErrChainIntegrity))

	var ie *chain.IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, int64(7), ie.Violation.ChainSequenceID)
}
