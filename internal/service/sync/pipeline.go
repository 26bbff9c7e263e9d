/**
 * Sync: pipeline discovery
 * @description: rebuilds the remote-stage to canonical-stage map from
 *               the CRM's pipeline listing; the in-memory map is
 *               replaced by swap so readers never observe a partial
 *               rebuild
 * @func: PipelineService, Rebuild, ClassifyStage
 */
package sync

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"leadsync/internal/model"
	"leadsync/internal/pkg/crm"
	"leadsync/internal/pkg/logger"
)

// PipelineLister enumerates remote pipelines.
type PipelineLister interface {
	ListPipelines(ctx context.Context) ([]crm.Pipeline, error)
}

// PipelineStore persists one config row per pipeline.
type PipelineStore interface {
	Upsert(ctx context.Context, cfg *model.PipelineConfig) (created bool, err error)
	All(ctx context.Context) ([]model.PipelineConfig, error)
}

// StageMapCache is the shared cache behind the in-memory map.
type StageMapCache interface {
	Save(ctx context.Context, m model.StageMap) error
	Load(ctx context.Context) (model.StageMap, error)
}

// PipelineService owns the stage map lifecycle.
type PipelineService struct {
	crm     PipelineLister
	store   PipelineStore
	cache   StageMapCache
	events  EventLog
	current atomic.Value // model.StageMap
	now     func() time.Time
}

// NewPipelineService creates the service with an empty map; call Warm
// to hydrate from the cache at startup.
func NewPipelineService(lister PipelineLister, store PipelineStore, cache StageMapCache, events EventLog) *PipelineService {
	s := &PipelineService{
		crm:    lister,
		store:  store,
		cache:  cache,
		events: events,
		now:    time.Now,
	}
	s.current.Store(model.StageMap{})
	return s
}

// Current returns the active stage map. Safe for concurrent use with
// Rebuild; readers see either the old or the new map, never a mix.
func (s *PipelineService) Current() model.StageMap {
	m, _ := s.current.Load().(model.StageMap)
	return m
}

// Warm loads the cached map from Redis, falling back to the persisted
// pipeline rows when the cache is cold. Called once at startup so the
// service does not depend on a discovery run after every restart.
func (s *PipelineService) Warm(ctx context.Context) {
	if s.cache != nil {
		m, err := s.cache.Load(ctx)
		if err != nil {
			logger.Warnf("failed to warm stage map from cache: %v", err)
		} else if len(m) > 0 {
			s.current.Store(m)
			return
		}
	}

	rows, err := s.store.All(ctx)
	if err != nil {
		logger.Warnf("failed to warm stage map from store: %v", err)
		return
	}

	merged := make(model.StageMap)
	for _, row := range rows {
		var stageMap map[string]string
		if err := json.Unmarshal([]byte(row.StageMap), &stageMap); err != nil {
			logger.Warnf("skipping malformed stage map for pipeline %d: %v", row.RemoteID, err)
			continue
		}
		for rawID, stage := range stageMap {
			id, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil {
				continue
			}
			merged[id] = stage
		}
	}
	if len(merged) > 0 {
		s.current.Store(merged)
	}
}

// Rebuild enumerates remote pipelines, upserts one config row each and
// swaps in the merged stage map. Per-pipeline persistence failures are
// counted, not fatal; an upstream listing failure aborts the rebuild.
func (s *PipelineService) Rebuild(ctx context.Context) (*model.PipelineDiscoveryResult, error) {
	start := s.now()

	pipelines, err := s.crm.ListPipelines(ctx)
	if err != nil {
		s.logRebuild(ctx, model.SyncStatusError, start, err)
		return nil, err
	}

	result := &model.PipelineDiscoveryResult{}
	merged := make(model.StageMap)

	for _, pipeline := range pipelines {
		stageMap := make(map[string]string, len(pipeline.Stages))
		for _, stage := range pipeline.Stages {
			canonical := ClassifyStage(stage.Name)
			merged[stage.ID] = canonical
			stageMap[strconv.FormatInt(stage.ID, 10)] = canonical
			result.Stages++
		}

		encoded, err := json.Marshal(stageMap)
		if err != nil {
			result.Errors++
			continue
		}

		cfg := &model.PipelineConfig{
			RemoteID:  pipeline.ID,
			Name:      pipeline.Name,
			StageMap:  string(encoded),
			UpdatedAt: s.now(),
		}
		created, err := s.store.Upsert(ctx, cfg)
		if err != nil {
			result.Errors++
			logger.Errorf("failed to persist pipeline %d (%s): %v", pipeline.ID, pipeline.Name, err)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	// Swap, never mutate in place.
	s.current.Store(merged)
	if s.cache != nil {
		if err := s.cache.Save(ctx, merged); err != nil {
			logger.Warnf("failed to cache stage map: %v", err)
		}
	}

	status := model.SyncStatusSuccess
	if result.Errors > 0 {
		status = model.SyncStatusPartial
	}
	s.logRebuild(ctx, status, start, nil)
	return result, nil
}

func (s *PipelineService) logRebuild(ctx context.Context, status model.SyncStatus, start time.Time, cause error) {
	event := &model.SyncEvent{
		Direction:  model.DirectionPipeline,
		Status:     status,
		DurationMS: s.now().Sub(start).Milliseconds(),
		CreatedAt:  s.now(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if err := s.events.Append(ctx, event); err != nil {
		logger.Errorf("failed to append pipeline discovery event: %v", err)
	}
}

// stageKeywords maps name fragments to canonical stages. Longer, more
// specific fragments are listed first: "não fechado" must win over
// "fechado".
var stageKeywords = []struct {
	fragment string
	stage    string
}{
	{"nao fechado", model.StageContratoNaoFechado},
	{"não fechado", model.StageContratoNaoFechado},
	{"perdido", model.StageContratoNaoFechado},
	{"fechado", model.StageNegociosFechados},
	{"ganho", model.StageNegociosFechados},
	{"cadastro", model.StageRecepcaoCadastro},
	{"recepcao", model.StageRecepcaoCadastro},
	{"recepção", model.StageRecepcaoCadastro},
	{"ficha", model.StageFichaPreenchida},
	{"produtor", model.StageAtendimentoProdutor},
	{"atendimento", model.StageAtendimentoProdutor},
}

// ClassifyStage maps a remote stage name onto the closed canonical set,
// defaulting to the triage stage when nothing matches.
func ClassifyStage(remoteName string) string {
	name := strings.ToLower(strings.TrimSpace(remoteName))
	for _, kw := range stageKeywords {
		if strings.Contains(name, kw.fragment) {
			return kw.stage
		}
	}
	return model.StageDefault
}
