package gateway

import (
	"context"
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"
	"github.com/gin-gonic/gin"

	"comanda/internal/client"
	"comanda/internal/fault"
	"comanda/internal/floor"
	"comanda/internal/models"
	"comanda/internal/monitoring"
	"comanda/internal/reconcile"
)

// Roles allowed to merge tables: manager and head waiter
var mergeAuthorizedRoles = map[int64]bool{1: true, 2: true}

// Commander is the command side of the backend client consumed by the server
type Commander interface {
	OpenAccount(ctx context.Context, tableID int64) (*client.OpenAccountResult, error)
	FuseTables(ctx context.Context, plan *floor.FusionPlan) ([]models.Table, error)
	SubmitOrder(ctx context.Context, accountID int64, lines []models.OrderLine) ([]models.OrderItem, error)
	AdvanceTicket(ctx context.Context, itemID int64, target models.TicketState) (*client.AdvanceResult, error)
	SettleAccount(ctx context.Context, accountID int64, payments []models.Payment) (*client.SettleOutcome, error)
}

// Auditor records deliveries and settlements for the local history view
type Auditor interface {
	RecordDelivery(item models.OrderItem) error
	RecordSettlement(summary *floor.SettlementSummary) error
	Totals() (map[string]interface{}, error)
}

// Server exposes snapshots and the lifecycle commands to the terminal UI
type Server struct {
	router    *gin.Engine
	commands  Commander
	recon     *reconcile.Reconciler
	monitor   *monitoring.Monitor
	audit     Auditor
	jwtSecret []byte
}

// NewServer creates the gateway server. audit may be nil when no local
// history database is configured.
func NewServer(commands Commander, recon *reconcile.Reconciler, monitor *monitoring.Monitor, audit Auditor, jwtSecret string) *Server {
	s := &Server{
		router:    gin.Default(),
		commands:  commands,
		recon:     recon,
		monitor:   monitor,
		audit:     audit,
		jwtSecret: []byte(jwtSecret),
	}
	s.setupRoutes()
	return s
}

// Router returns the Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "degraded": s.recon.Degraded()})
	})

	v1 := s.router.Group("/api/v1")
	v1.Use(s.authMiddleware())
	{
		v1.GET("/tables", s.handleTables)
		v1.GET("/menu", s.handleMenu)
		v1.GET("/kitchen", s.handleKitchen)
		v1.GET("/accounts/:id", s.handleAccount)
		v1.GET("/stats", s.handleStats)

		v1.POST("/accounts", s.handleOpenAccount)
		v1.POST("/tables/fuse", s.handleFuseTables)
		v1.POST("/orders", s.handleSubmitOrder)
		v1.PATCH("/kitchen/:id/advance", s.handleAdvanceTicket)
		v1.POST("/accounts/:id/settle", s.handleSettle)
		v1.POST("/refresh", s.handleRefresh)
	}
}

// authMiddleware validates the terminal's bearer token and extracts its
// role. An expired or missing credential is a typed 401; session teardown
// is the UI's reaction, not a hidden redirect here.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required", "kind": fault.AuthExpired.String()})
			c.Abort()
			return
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token", "kind": fault.AuthExpired.String()})
			c.Abort()
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if role, ok := claims["rol_id"].(float64); ok {
				c.Set("role", int64(role))
			}
		}
		c.Set("token", tokenString)
		c.Next()
	}
}

// commandContext forwards the caller's token to the backend so commands run
// under the terminal user's credential
func commandContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if tok, ok := c.Get("token"); ok {
		ctx = client.WithToken(ctx, tok.(string))
	}
	return ctx
}

func roleOf(c *gin.Context) int64 {
	if role, ok := c.Get("role"); ok {
		return role.(int64)
	}
	return 0
}

// writeFault maps the fault taxonomy onto HTTP statuses
func writeFault(c *gin.Context, err error) {
	kind := fault.KindOf(err)
	status := http.StatusBadGateway
	switch kind {
	case fault.Validation:
		status = http.StatusBadRequest
	case fault.NotFound:
		status = http.StatusNotFound
	case fault.StateViolation:
		status = http.StatusConflict
	case fault.AuthExpired:
		status = http.StatusUnauthorized
	case fault.ConflictEquivalent:
		// equivalent outcome, surfaced as success by the handlers; if one
		// leaks here report it without failing the request
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind.String()})
}
