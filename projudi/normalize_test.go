package projudi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFirstCandidateWins(t *testing.T) {
	n := Normalize(map[string]any{
		"id":           "int-1",
		"intimacaoId":  "shadowed",
		"numeroProcesso": "0001234-56.2026.8.16.0001",
		"orgao":        "2ª Vara Cível",
		"assunto":      "Audiência designada",
		"status":       "pendente",
	})

	assert.Equal(t, "int-1", n.ExternalID)
	assert.Equal(t, "0001234-56.2026.8.16.0001", n.NumeroProcesso)
	assert.Equal(t, "2ª Vara Cível", n.Orgao)
	assert.Equal(t, "Audiência designada", n.Assunto)
	assert.Equal(t, "pendente", n.Status)
}

func TestNormalizeFallbackCandidates(t *testing.T) {
	n := Normalize(map[string]any{
		"codigo":          "c-42",
		"processo":        "0009999-00.2026.8.16.0001",
		"vara":            "Vara de Família",
		"descricao":       "Citação",
		"situacao":        "nova",
		"dataAtualizacao": "2026-08-29T10:00:00Z",
	})

	assert.Equal(t, "c-42", n.ExternalID)
	assert.Equal(t, "0009999-00.2026.8.16.0001", n.NumeroProcesso)
	assert.Equal(t, "Vara de Família", n.Orgao)
	assert.Equal(t, "Citação", n.Assunto)
	assert.Equal(t, "nova", n.Status)
	require.NotNil(t, n.FonteAtualizadaEm)
	assert.Equal(t, 10, n.FonteAtualizadaEm.Hour())
}

func TestNormalizeEmptyCandidateFallsThrough(t *testing.T) {
	n := Normalize(map[string]any{
		"id":     "",
		"codigo": "real-id",
	})
	assert.Equal(t, "real-id", n.ExternalID)
}

func TestNormalizeNumericID(t *testing.T) {
	n := Normalize(map[string]any{"id": float64(123456)})
	assert.Equal(t, "123456", n.ExternalID)
}

func TestNormalizeMissingID(t *testing.T) {
	n := Normalize(map[string]any{"numeroProcesso": "x"})
	assert.Empty(t, n.ExternalID)
}

func TestNormalizeTimeFormats(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"rfc3339", "2026-08-29T10:00:00Z"},
		{"no zone", "2026-08-29T10:00:00"},
		{"space separated", "2026-08-29 10:00:00"},
		{"date only", "2026-08-29"},
		{"epoch millis", float64(1787997600000)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Normalize(map[string]any{"id": "1", "prazo": tt.value})
			require.NotNil(t, n.Prazo, "prazo should parse from %v", tt.value)
		})
	}

	n := Normalize(map[string]any{"id": "1", "prazo": "not a date"})
	assert.Nil(t, n.Prazo)
}

func TestNormalizePreservesPayload(t *testing.T) {
	raw := map[string]any{"id": "1", "extra": map[string]any{"nested": true}}
	n := Normalize(raw)
	assert.Equal(t, raw, n.Payload)
}

func TestNormalizeDateOnlyPrazo(t *testing.T) {
	n := Normalize(map[string]any{"id": "1", "dataLimite": "2026-09-15"})
	require.NotNil(t, n.Prazo)
	assert.Equal(t, time.September, n.Prazo.Month())
}
