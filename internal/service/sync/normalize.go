/**
 * Sync: record normalization
 * @description: maps a loosely shaped upstream payload onto the lead
 *               model; upstream field naming mixes English and
 *               Portuguese, so each attribute has an alias list
 * @func: NormalizeLead, ExtractExternalID
 */
package sync

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"leadsync/internal/model"
)

// ErrMissingExternalID reports a payload without a usable lead id.
type ErrMissingExternalID struct {
	Record map[string]interface{}
}

func (e *ErrMissingExternalID) Error() string {
	return "record carries no usable external id"
}

var externalIDAliases = []string{"id", "external_id", "lead_id"}

// ExtractExternalID finds the CRM-assigned lead id in a payload.
func ExtractExternalID(record map[string]interface{}) (int64, error) {
	for _, alias := range externalIDAliases {
		value, ok := record[alias]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case float64:
			if v > 0 {
				return int64(v), nil
			}
		case int64:
			if v > 0 {
				return v, nil
			}
		case string:
			if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
				return id, nil
			}
		}
	}
	return 0, &ErrMissingExternalID{Record: record}
}

// NormalizeLead builds a lead row from an upstream payload. The payload
// is also persisted verbatim in Raw for later inspection; normalization
// never errors on individual malformed fields, only on a missing id.
func NormalizeLead(record map[string]interface{}, stages model.StageMap, updatedAt time.Time) (*model.Lead, error) {
	externalID, err := ExtractExternalID(record)
	if err != nil {
		return nil, err
	}

	lead := &model.Lead{
		ExternalID: externalID,
		Name:       stringField(record, "name", "nome"),
		AgentName:  stringField(record, "agent_name", "responsavel", "agente"),
		Value:      floatField(record, "value", "valor"),
		Stage:      resolveStage(record, stages),
		PipelineID: intField(record, "pipeline_id"),
		Confirmed:  boolField(record, "confirmed", "confirmado"),
		UpdatedAt:  updatedAt,
	}

	if raw, ok := record["scheduled_at"]; ok {
		lead.ScheduledAt = parseFlexibleTime(raw)
	} else if raw, ok := record["agendamento"]; ok {
		lead.ScheduledAt = parseFlexibleTime(raw)
	}

	if payload, err := json.Marshal(record); err == nil {
		lead.Raw = string(payload)
	}

	if source, ok := record["sync_source"].(string); ok && model.ValidSource(model.SyncSource(source)) {
		lead.SyncSource = model.SyncSource(source)
	}
	return lead, nil
}

// resolveStage prefers an explicit canonical stage name; otherwise the
// remote stage id is translated through the discovered stage map.
func resolveStage(record map[string]interface{}, stages model.StageMap) string {
	if name, ok := record["stage"].(string); ok && name != "" {
		for _, canonical := range model.CanonicalStages {
			if name == canonical {
				return name
			}
		}
		if name == model.StageDefault {
			return name
		}
	}
	if remoteID := intField(record, "status_id", "stage_id"); remoteID != 0 {
		return stages.StageFor(remoteID)
	}
	return model.StageDefault
}

func stringField(record map[string]interface{}, aliases ...string) string {
	for _, alias := range aliases {
		if v, ok := record[alias].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func floatField(record map[string]interface{}, aliases ...string) float64 {
	for _, alias := range aliases {
		switch v := record[alias].(type) {
		case float64:
			return v
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func intField(record map[string]interface{}, aliases ...string) int64 {
	for _, alias := range aliases {
		switch v := record[alias].(type) {
		case float64:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				return n
			}
		}
	}
	return 0
}

func boolField(record map[string]interface{}, aliases ...string) bool {
	for _, alias := range aliases {
		switch v := record[alias].(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
	}
	return false
}

// describeRecord renders a short identifier for log lines.
func describeRecord(record map[string]interface{}) string {
	if id, err := ExtractExternalID(record); err == nil {
		return fmt.Sprintf("lead %d", id)
	}
	return "lead <no id>"
}
