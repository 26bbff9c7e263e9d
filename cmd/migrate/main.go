/**
 * Database migration tool.
 * @description: creates or updates the tables the synchronization
 *               engine persists to; optionally drops them first and
 *               seeds a handful of leads for local development
 * @usage: go run ./cmd/migrate -env=dev -seed=true
 *   -env string   environment name (dev, test, prod) (default "dev")
 *   -drop         drop tables before migrating (destructive)
 *   -seed         insert sample leads after migrating
 */
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"gorm.io/gorm"

	"leadsync/internal/config"
	"leadsync/internal/model"
	"leadsync/internal/pkg/database"
	"leadsync/internal/pkg/logger"
)

// Migration order matters only for drops; AutoMigrate handles creation.
var tables = []interface{}{
	&model.Lead{},
	&model.SyncEvent{},
	&model.SyncQueueItem{},
	&model.OutboxItem{},
	&model.LastSyncStatus{},
	&model.PaymentLedgerEntry{},
	&model.PipelineConfig{},
}

func main() {
	env := flag.String("env", "dev", "environment name (dev, test, prod)")
	drop := flag.Bool("drop", false, "drop tables before migrating")
	seed := flag.Bool("seed", false, "insert sample leads after migrating")
	flag.Parse()

	cfg, err := config.LoadConfig("", *env)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if _, err := logger.InitLogger(&cfg.Log); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	db, err := database.NewMySQLConnection(&cfg.Database.MySQL)
	if err != nil {
		log.Fatalf("Failed to connect to mysql: %v", err)
	}

	if *drop {
		if *env == "prod" {
			log.Println("Refusing to drop tables in prod")
			os.Exit(1)
		}
		// Reverse order so foreign references go first.
		for i := len(tables) - 1; i >= 0; i-- {
			if err := db.Migrator().DropTable(tables[i]); err != nil {
				log.Fatalf("Failed to drop table: %v", err)
			}
		}
		log.Println("Dropped existing tables")
	}

	if err := db.AutoMigrate(tables...); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Migrated %d tables", len(tables))

	if *seed {
		if err := seedPipeline(db); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		if err := seedLeads(db); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
		log.Println("Seeded default pipeline and sample leads")
	}
}

// seedPipeline inserts a default stage map so the engine can resolve
// stages before the first discovery run.
func seedPipeline(db *gorm.DB) error {
	cfg := model.PipelineConfig{
		RemoteID: 1,
		Name:     "Funil Scouter",
		StageMap: `{"10":"recepcao_cadastro","11":"ficha_preenchida","12":"atendimento_produtor","13":"negocios_fechados","14":"contrato_nao_fechado"}`,
	}
	return db.Create(&cfg).Error
}

// seedLeads inserts a few leads covering the common pipeline stages so
// a fresh environment has something to sweep and push.
func seedLeads(db *gorm.DB) error {
	now := time.Now()
	stale := now.Add(-48 * time.Hour)

	leads := []model.Lead{
		{
			ExternalID:   1001,
			Name:         "Fazenda Boa Vista",
			Stage:        model.StageRecepcaoCadastro,
			SyncSource:   model.SourceCRM,
			LastSyncedAt: &now,
		},
		{
			ExternalID:   1002,
			Name:         "Sitio Santa Clara",
			Stage:        model.StageFichaPreenchida,
			SyncSource:   model.SourceExternalApp,
			LastSyncedAt: &stale,
		},
		{
			ExternalID: 1003,
			Name:       "Agro Horizonte",
			Stage:      model.StageNegociosFechados,
			SyncSource: model.SourceCRM,
		},
	}

	for i := range leads {
		if err := db.Create(&leads[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
