package simulator

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"comanda/internal/models"
	"comanda/internal/transport"
)

// Simulator is a self-contained stand-in for the authoritative backend: the
// same REST surface and push channel, backed by an in-memory floor. Used for
// local development and end-to-end tests; never in production.
type Simulator struct {
	router *gin.Engine
	world  *World
	hub    *hub
}

// New creates a simulator with a freshly seeded floor
func New() *Simulator {
	s := &Simulator{
		router: gin.Default(),
		world:  NewWorld(),
		hub:    newHub(),
	}
	s.setupRoutes()
	return s
}

// Router returns the Gin router
func (s *Simulator) Router() *gin.Engine {
	return s.router
}

// setupRoutes configures the API routes
func (s *Simulator) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/ws", s.hub.handleSocket)

	s.router.GET("/mesas", s.handleTables)
	s.router.GET("/pedidos/menu", s.handleMenu)
	s.router.GET("/cocina/pendientes", s.handleKitchen)
	s.router.GET("/pagos/cuenta/:id", s.handleAccount)

	s.router.POST("/pedidos/abrir-cuenta", s.handleOpenAccount)
	s.router.POST("/mesas/fusionar", s.handleFuse)
	s.router.POST("/pedidos/ordenar", s.handleOrder)
	s.router.PATCH("/cocina/pedidos/:id/estado", s.handleAdvance)
	s.router.POST("/pagos/pagar", s.handleSettle)
}

// writeError maps the world's error types onto the backend's status and
// payload conventions; conflicts carry their extra fields
func writeError(c *gin.Context, err error) {
	var conflict *conflictError
	if errors.As(err, &conflict) {
		payload := gin.H{"error": conflict.msg}
		if conflict.accountID != 0 {
			payload["cuenta_id"] = conflict.accountID
		}
		if conflict.currentState != "" {
			payload["estado_actual"] = conflict.currentState
		}
		c.JSON(http.StatusConflict, payload)
		return
	}
	var missing *notFoundError
	if errors.As(err, &missing) {
		c.JSON(http.StatusNotFound, gin.H{"error": missing.msg})
		return
	}
	var bad *badRequestError
	if errors.As(err, &bad) {
		c.JSON(http.StatusBadRequest, gin.H{"error": bad.msg})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func (s *Simulator) handleTables(c *gin.Context) {
	c.JSON(http.StatusOK, s.world.Tables())
}

func (s *Simulator) handleMenu(c *gin.Context) {
	c.JSON(http.StatusOK, s.world.Menu())
}

func (s *Simulator) handleKitchen(c *gin.Context) {
	items := s.world.KitchenQueue()
	if items == nil {
		items = []models.OrderItem{}
	}
	c.JSON(http.StatusOK, items)
}

func (s *Simulator) handleAccount(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id de cuenta inválido"})
		return
	}
	account, err := s.world.Account(id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Simulator) handleOpenAccount(c *gin.Context) {
	var req struct {
		TableID int64 `json:"mesa_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mesa_id es requerido"})
		return
	}
	id, err := s.world.OpenAccount(req.TableID)
	if err != nil {
		writeError(c, err)
		return
	}
	s.hub.broadcast(transport.EventTablesChanged)
	c.JSON(http.StatusCreated, gin.H{"cuenta": gin.H{"id": id}})
}

func (s *Simulator) handleFuse(c *gin.Context) {
	var req struct {
		PrimaryID    int64   `json:"mesa_principal_id" binding:"required"`
		SecondaryIDs []int64 `json:"mesas_a_fusionar" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mesa_principal_id y mesas_a_fusionar son requeridos"})
		return
	}
	tables, err := s.world.Fuse(req.PrimaryID, req.SecondaryIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	s.hub.broadcast(transport.EventTablesChanged)
	c.JSON(http.StatusOK, tables)
}

func (s *Simulator) handleOrder(c *gin.Context) {
	var req struct {
		AccountID int64              `json:"cuenta_id" binding:"required"`
		Lines     []models.OrderLine `json:"platillos"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cuenta_id y platillos son requeridos"})
		return
	}
	items, err := s.world.Order(req.AccountID, req.Lines)
	if err != nil {
		writeError(c, err)
		return
	}
	s.hub.broadcast(transport.EventKitchenNewOrder)
	c.JSON(http.StatusCreated, items)
}

func (s *Simulator) handleAdvance(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id de pedido inválido"})
		return
	}
	var req struct {
		Target models.TicketState `json:"nuevo_estado" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nuevo_estado es requerido"})
		return
	}
	item, err := s.world.Advance(id, req.Target)
	if err != nil {
		writeError(c, err)
		return
	}
	s.hub.broadcast(transport.EventKitchenNewOrder)
	c.JSON(http.StatusOK, item)
}

func (s *Simulator) handleSettle(c *gin.Context) {
	var req struct {
		AccountID int64            `json:"cuenta_id" binding:"required"`
		Payments  []models.Payment `json:"pagos"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cuenta_id y pagos son requeridos"})
		return
	}
	account, freed, err := s.world.Settle(req.AccountID, req.Payments)
	if err != nil {
		writeError(c, err)
		return
	}
	s.hub.broadcast(transport.EventTablesChanged)
	c.JSON(http.StatusOK, gin.H{"cuenta": account, "mesas_liberadas": freed})
}
