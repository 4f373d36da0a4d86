package main

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/recon_backend/config"
	"bitbucket.org/mmdatafocus/recon_backend/models"
	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"bitbucket.org/mmdatafocus/recon_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// httpStatusForCode maps engine error codes to HTTP statuses. Validation
// problems are 422, lost races and illegal lifecycle moves are 409.
func httpStatusForCode(code string) int {
	switch code {
	case "MALFORMED_RECORD", "CURRENCY_MISMATCH", "UNKNOWN_SOURCE":
		return http.StatusUnprocessableEntity
	case "CONCURRENT_MODIFICATION", "INVALID_TRANSITION", "DISPUTE_ALREADY_OPEN",
		"UNIT_TERMINAL", "DIFFERENCE_NOT_ACCEPTED":
		return http.StatusConflict
	case "NOT_FOUND":
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := utils.ErrorCode(err)
	cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
	body := gin.H{"code": code, "error": err.Error(), "correlation_id": cid}
	if code == "INTERNAL" {
		// Internal details stay in the logs.
		body["error"] = "internal error"
	}
	c.JSON(httpStatusForCode(code), body)
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func submitRecordsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := config.GetLogger()

		var input workflow.SubmissionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		result, err := workflow.ProcessSubmission(c.Request.Context(), logger, input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func getUnitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		unit, err := models.GetUnitFull(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, unit)
	}
}

func listUnitsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.UnitFilter
		if v := c.Query("type"); v != "" {
			t, err := models.ParseUnitType(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid type"})
				return
			}
			filter.Type = &t
		}
		if v := c.Query("status"); v != "" {
			s, err := models.ParseUnitStatus(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
				return
			}
			filter.Status = &s
		}
		if v := c.Query("entity_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity_id"})
				return
			}
			filter.EntityId = &id
		}
		if v := c.Query("period"); v != "" {
			filter.Period = &v
		}

		limit := 20
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
				limit = n
			}
		}
		var after *string
		if v := c.Query("after"); v != "" {
			after = &v
		}

		conn, err := models.PaginateUnits(c.Request.Context(), filter, limit, after)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, conn)
	}
}

type completeUnitRequest struct {
	AcceptDifference bool `json:"accept_difference"`
}

func completeUnitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req completeUnitRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
				return
			}
		}
		unit, err := workflow.MarkComplete(c.Request.Context(), config.GetLogger(), id, req.AcceptDifference)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, unit)
	}
}

type openDisputeRequest struct {
	Reason       string   `json:"reason" binding:"required"`
	EvidenceRefs []string `json:"evidence_refs"`
}

func openDisputeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req openDisputeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
			return
		}
		dispute, err := workflow.OpenDispute(c.Request.Context(), config.GetLogger(), id, req.Reason, req.EvidenceRefs)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dispute)
	}
}

type resolveDisputeRequest struct {
	Resolution          string           `json:"resolution" binding:"required"`
	RevisedEntityAmount *decimal.Decimal `json:"revised_entity_amount"`
}

func resolveDisputeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		var req resolveDisputeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "resolution is required"})
			return
		}
		unit, err := workflow.ResolveDispute(c.Request.Context(), config.GetLogger(), id, req.Resolution, req.RevisedEntityAmount)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, unit)
	}
}

func auditEventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		if _, err := models.GetUnit(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		events, err := models.GetAuditEventsByUnit(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		total, err := models.CountAuditEventsByUnit(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"unit_id": id, "total": total, "events": events})
	}
}

func rollupsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		period := c.Query("period")
		if period == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period is required"})
			return
		}
		var entityId *int
		if v := c.Query("entity_id"); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity_id"})
				return
			}
			if err := models.ValidateEntityId(c.Request.Context(), id); err != nil {
				respondError(c, err)
				return
			}
			entityId = &id
		}
		rollup, err := workflow.GetPeriodRollup(c.Request.Context(), config.GetLogger(), entityId, period)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rollup)
	}
}

type outboxReplayRequest struct {
	RecordId int `json:"record_id"`
}

// outboxReplayHandler is ops tooling: requeue a DEAD/FAILED outbox row for
// another publish attempt.
func outboxReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outboxReplayRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.RecordId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "record_id is required"})
			return
		}

		db := config.GetDB()
		now := time.Now().UTC()
		res := db.WithContext(c.Request.Context()).
			Model(&models.ReconEventRecord{}).
			Where("id = ? AND publish_status IN ?", req.RecordId,
				[]string{models.OutboxPublishStatusDead, models.OutboxPublishStatusFailed}).
			Updates(map[string]interface{}{
				"publish_status":     models.OutboxPublishStatusFailed,
				"publish_attempts":   0,
				"next_attempt_at":    &now,
				"locked_at":          nil,
				"locked_by":          nil,
				"last_publish_error": nil,
			})
		if res.Error != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": res.Error.Error()})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "no replayable record"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"record_id": req.RecordId, "publish_status": models.OutboxPublishStatusFailed})
	}
}

func createEntityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewEntity
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}
		entity, err := models.CreateEntity(c.Request.Context(), &input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, entity)
	}
}
