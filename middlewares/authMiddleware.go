package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/recon_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthMiddleware resolves the operator identity from the bearer token and
// stashes it (plus a correlation id) into the request context. Requests
// without a token pass through; mutating handlers enforce identity themselves.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		correlationId := c.Request.Header.Get("X-Correlation-Id")
		if correlationId == "" {
			correlationId = uuid.NewString()
		}
		ctx = utils.SetCorrelationIdInContext(ctx, correlationId)

		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")

		validate, err := utils.JwtValidate(token)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claim, _ := validate.Claims.(*utils.JwtCustomClaim)
		if claim != nil {
			ctx = utils.SetTokenInContext(ctx, token)
			ctx = utils.SetActorIdInContext(ctx, claim.ID)
			ctx = utils.SetActorNameInContext(ctx, claim.Name)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireActor guards operator-action routes: an authenticated actor must be present.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetActorNameFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "operator token required"})
			c.Abort()
			return
		}
		c.Next()
	}
}
