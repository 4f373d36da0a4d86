package models

import (
	"log"

	"bitbucket.org/mmdatafocus/recon_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Entity{},
		&ReconciliationUnit{}, &LineItem{}, &MatchResult{},
		&Dispute{},
		&AuditEvent{}, &ReconEventRecord{},
		&SubmissionFingerprint{}, &IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
