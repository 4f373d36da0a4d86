// seed-demo seeds a demo supplier and restaurant and pushes one period of
// sample records through the ingestion pipeline, so a fresh local database has
// units in auto_matched and manual_review to click around.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"bitbucket.org/mmdatafocus/recon_backend/workflow"
)

const demoPeriod = "2026-08"

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	config.LoadEngineSettings()
	models.MigrateTable()

	ctx := utils.SetIsSystemInContext(context.Background(), true)

	supplier, err := models.CreateEntity(ctx, &models.NewEntity{
		Kind: models.EntityKindSupplier,
		Name: "Golden Valley Produce",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create supplier: %v\n", err)
		os.Exit(1)
	}
	restaurant, err := models.CreateEntity(ctx, &models.NewEntity{
		Kind: models.EntityKindRestaurant,
		Name: "Shan Noodle House",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create restaurant: %v\n", err)
		os.Exit(1)
	}

	// Supplier period agrees on both sides: auto_matched.
	submit(ctx, supplier.ID, models.RecordSourcePlatform, []workflow.RawRecord{
		record("ORD-1001", "RICE-25KG", "4", "32000.00"),
		record("ORD-1002", "OIL-5L", "10", "18500.00"),
	})
	submit(ctx, supplier.ID, models.RecordSourceEntity, []workflow.RawRecord{
		record("ORD-1001", "RICE-25KG", "4", "32000.00"),
		record("ORD-1002", "OIL-5L", "10", "18500.00"),
	})

	// Restaurant period diverges on one line: manual_review.
	submit(ctx, restaurant.ID, models.RecordSourcePlatform, []workflow.RawRecord{
		record("ORD-2001", "CHICKEN-KG", "12", "9800.00"),
		record("ORD-2002", "NOODLE-BOX", "30", "2500.00"),
	})
	submit(ctx, restaurant.ID, models.RecordSourceEntity, []workflow.RawRecord{
		record("ORD-2001", "CHICKEN-KG", "12", "9800.00"),
		record("ORD-2002", "NOODLE-BOX", "28", "2500.00"),
	})

	fmt.Printf("Seeded entities %d (supplier) and %d (restaurant) for period %s\n",
		supplier.ID, restaurant.ID, demoPeriod)

	if token, err := utils.JwtGenerate(1, "Demo Operator", "Operator"); err == nil {
		fmt.Printf("Operator token for the API: %s\n", token)
	}
}

func submit(ctx context.Context, entityId int, source models.RecordSource, records []workflow.RawRecord) {
	result, err := workflow.ProcessSubmission(ctx, config.GetLogger(), workflow.SubmissionInput{
		EntityId: entityId,
		Period:   demoPeriod,
		Source:   source,
		Records:  records,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "submission failed (entity %d, source %s): %v\n", entityId, source, err)
		os.Exit(1)
	}
	fmt.Printf("entity %d %s -> unit %d status %s\n", entityId, source, result.Unit.ID, result.Unit.Status)
}

func record(orderNumber, sku, quantity, unitPrice string) workflow.RawRecord {
	return workflow.RawRecord{
		Kind:           models.RecordKindOrder,
		SourceRecordId: orderNumber + "-" + sku,
		OrderNumber:    orderNumber,
		Sku:            sku,
		Quantity:       quantity,
		UnitPrice:      unitPrice,
		Currency:       "MMK",
	}
}
