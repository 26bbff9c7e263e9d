/**
 * Model: pipeline stage mapping
 * @description: discovered mapping from remote CRM stage ids to the
 *               closed canonical stage set; rebuilt periodically, never
 *               hand-maintained
 * @func: PipelineConfig, canonical stage constants, StageMap
 */
package model

import (
	"time"
)

// Canonical pipeline stages. StageDefault is applied when a remote
// stage matches nothing in the closed set.
const (
	StageRecepcaoCadastro    = "recepcao_cadastro"
	StageFichaPreenchida     = "ficha_preenchida"
	StageAtendimentoProdutor = "atendimento_produtor"
	StageNegociosFechados    = "negocios_fechados"
	StageContratoNaoFechado  = "contrato_nao_fechado"
	StageDefault             = "analisar"
)

// CanonicalStages lists the closed stage set excluding the default.
var CanonicalStages = []string{
	StageRecepcaoCadastro,
	StageFichaPreenchida,
	StageAtendimentoProdutor,
	StageNegociosFechados,
	StageContratoNaoFechado,
}

// StageMap maps remote CRM stage ids to canonical stage names.
type StageMap map[int64]string

// StageFor resolves a remote stage id, falling back to StageDefault.
func (m StageMap) StageFor(remoteStageID int64) string {
	if m != nil {
		if stage, ok := m[remoteStageID]; ok {
			return stage
		}
	}
	return StageDefault
}

// PipelineConfig is one persisted pipeline discovery result: a remote
// pipeline and the stage mapping derived from its stage list.
type PipelineConfig struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	RemoteID  int64     `json:"remote_id" gorm:"uniqueIndex;not null;comment:CRM pipeline id"`
	Name      string    `json:"name" gorm:"size:255"`
	StageMap  string    `json:"stage_map" gorm:"type:json;comment:remote stage id to canonical stage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName names the pipeline configs table.
func (PipelineConfig) TableName() string {
	return "pipeline_configs"
}
