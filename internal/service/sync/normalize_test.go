package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadsync/internal/model"
)

func TestExtractExternalID(t *testing.T) {
	cases := []struct {
		name   string
		record map[string]interface{}
		want   int64
	}{
		{"json number id", map[string]interface{}{"id": float64(42)}, 42},
		{"string id", map[string]interface{}{"id": "42"}, 42},
		{"external_id alias", map[string]interface{}{"external_id": float64(7)}, 7},
		{"lead_id alias", map[string]interface{}{"lead_id": "19"}, 19},
		{"id beats aliases", map[string]interface{}{"id": float64(1), "lead_id": float64(2)}, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractExternalID(tc.record)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractExternalIDMissing(t *testing.T) {
	for _, record := range []map[string]interface{}{
		{},
		{"id": float64(0)},
		{"id": "abc"},
		{"name": "no id at all"},
	} {
		_, err := ExtractExternalID(record)
		var missing *ErrMissingExternalID
		assert.ErrorAs(t, err, &missing)
	}
}

func TestNormalizeLeadMapsAliases(t *testing.T) {
	stages := model.StageMap{301: model.StageFichaPreenchida}
	updatedAt := time.Date(2024, 1, 16, 10, 0, 0, 0, time.UTC)

	record := map[string]interface{}{
		"id":          float64(42),
		"nome":        "Maria Souza",
		"responsavel": "Carlos",
		"valor":       "1500.50",
		"status_id":   float64(301),
		"pipeline_id": float64(9),
		"confirmado":  true,
		"agendamento": "2024-02-01 09:00:00",
		"sync_source": "external_app",
	}

	lead, err := NormalizeLead(record, stages, updatedAt)
	require.NoError(t, err)

	assert.Equal(t, int64(42), lead.ExternalID)
	assert.Equal(t, "Maria Souza", lead.Name)
	assert.Equal(t, "Carlos", lead.AgentName)
	assert.Equal(t, 1500.50, lead.Value)
	assert.Equal(t, model.StageFichaPreenchida, lead.Stage)
	assert.Equal(t, int64(9), lead.PipelineID)
	assert.True(t, lead.Confirmed)
	require.NotNil(t, lead.ScheduledAt)
	assert.Equal(t, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC), *lead.ScheduledAt)
	assert.Equal(t, model.SourceExternalApp, lead.SyncSource)
	assert.Equal(t, updatedAt, lead.UpdatedAt)
	assert.Contains(t, lead.Raw, `"nome":"Maria Souza"`)
}

func TestNormalizeLeadUnknownSourceDropped(t *testing.T) {
	record := map[string]interface{}{
		"id":          float64(1),
		"sync_source": "something_else",
	}

	lead, err := NormalizeLead(record, nil, fixedNow())
	require.NoError(t, err)
	assert.Empty(t, lead.SyncSource)
}

func TestResolveStage(t *testing.T) {
	stages := model.StageMap{10: model.StageNegociosFechados}

	// Explicit canonical name wins over the remote id.
	got := resolveStage(map[string]interface{}{"stage": model.StageRecepcaoCadastro, "status_id": float64(10)}, stages)
	assert.Equal(t, model.StageRecepcaoCadastro, got)

	// Non-canonical name falls back to the id lookup.
	got = resolveStage(map[string]interface{}{"stage": "Etapa 3", "status_id": float64(10)}, stages)
	assert.Equal(t, model.StageNegociosFechados, got)

	// Unknown id resolves to the triage default.
	got = resolveStage(map[string]interface{}{"status_id": float64(999)}, stages)
	assert.Equal(t, model.StageDefault, got)

	// Nothing stage-like at all.
	got = resolveStage(map[string]interface{}{}, stages)
	assert.Equal(t, model.StageDefault, got)
}
