package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"comanda/internal/fault"
	"comanda/internal/floor"
	"comanda/internal/models"
)

// Snapshot reads. `?refresh=1` forces a refetch first; this is the manual
// refresh path, and the only one left for non-kitchen views while the push
// channel is down.

func (s *Server) handleTables(c *gin.Context) {
	if c.Query("refresh") != "" {
		s.recon.Tables.Invalidate()
	}
	tables, err := s.recon.Tables.Get(c.Request.Context())
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, tables)
}

func (s *Server) handleMenu(c *gin.Context) {
	if c.Query("refresh") != "" {
		s.recon.Menu.Invalidate()
	}
	menu, err := s.recon.Menu.Get(c.Request.Context())
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, menu)
}

func (s *Server) handleKitchen(c *gin.Context) {
	if c.Query("refresh") != "" {
		s.recon.Kitchen.Invalidate()
	}
	items, err := s.recon.Kitchen.Get(c.Request.Context())
	if err != nil {
		writeFault(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) handleAccount(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeFault(c, fault.New(fault.Validation, "invalid account id"))
		return
	}
	if c.Query("refresh") != "" {
		s.recon.InvalidateAccount(id)
	}
	account, getErr := s.recon.Account(id).Get(commandContext(c))
	if getErr != nil {
		if fault.Is(getErr, fault.NotFound) {
			s.recon.InvalidateAccount(id)
		}
		writeFault(c, getErr)
		return
	}
	c.JSON(http.StatusOK, account)
}

func (s *Server) handleStats(c *gin.Context) {
	stats := s.monitor.GetMetrics()
	stats["degraded"] = s.recon.Degraded()
	if s.audit != nil {
		if totals, err := s.audit.Totals(); err == nil {
			for k, v := range totals {
				stats[k] = v
			}
		}
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.recon.InvalidateAll()
	c.JSON(http.StatusOK, gin.H{"status": "refreshing"})
}

// Commands. Every success invalidates the affected collections and answers
// with a refreshed snapshot; the cache is never patched in place.

type openAccountRequest struct {
	TableID int64 `json:"mesa_id" binding:"required"`
}

func (s *Server) handleOpenAccount(c *gin.Context) {
	var req openAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFault(c, fault.New(fault.Validation, "mesa_id is required"))
		return
	}

	// reject merged-secondary targets locally when the snapshot knows them
	if tables, ok := s.recon.Tables.Peek(); ok {
		for i := range tables {
			if tables[i].ID == req.TableID {
				if err := floor.CanOpenAccount(&tables[i]); err != nil {
					writeFault(c, err)
					return
				}
				break
			}
		}
	}

	ctx := commandContext(c)
	result, err := s.commands.OpenAccount(ctx, req.TableID)
	if err != nil {
		writeFault(c, err)
		return
	}

	s.recon.Tables.Invalidate()
	tables, _ := s.recon.Tables.Get(ctx)
	c.JSON(http.StatusOK, gin.H{"cuenta": result, "mesas": tables})
}

type fuseRequest struct {
	TableIDs []int64 `json:"mesas" binding:"required"`
}

func (s *Server) handleFuseTables(c *gin.Context) {
	if !mergeAuthorizedRoles[roleOf(c)] {
		c.JSON(http.StatusForbidden, gin.H{"error": "role not authorized to merge tables"})
		return
	}

	var req fuseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFault(c, fault.New(fault.Validation, "mesas is required"))
		return
	}

	ctx := commandContext(c)
	tables, err := s.recon.Tables.Get(ctx)
	if err != nil {
		writeFault(c, err)
		return
	}

	plan, err := floor.PlanFusion(tables, req.TableIDs)
	if err != nil {
		writeFault(c, err)
		return
	}

	updated, err := s.commands.FuseTables(ctx, plan)
	if err != nil {
		writeFault(c, err)
		return
	}

	s.recon.Tables.Invalidate()
	c.JSON(http.StatusOK, gin.H{"mesas": updated})
}

type orderRequest struct {
	AccountID int64              `json:"cuenta_id" binding:"required"`
	Lines     []models.OrderLine `json:"platillos"`
}

func (s *Server) handleSubmitOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFault(c, fault.New(fault.Validation, "cuenta_id and platillos are required"))
		return
	}

	// fold repeated product+payer lines into one, the same accumulation the
	// cart applies, so duplicates submitted by the UI merge here too
	cart := floor.NewCart()
	for _, line := range req.Lines {
		cart.Add(line.ProductID, line.PayerName, line.Quantity)
	}
	if cart.Empty() {
		writeFault(c, fault.New(fault.Validation, "order has no items"))
		return
	}

	ctx := commandContext(c)
	items, err := s.commands.SubmitOrder(ctx, req.AccountID, cart.Order())
	if err != nil {
		if fault.Is(err, fault.NotFound) {
			s.recon.InvalidateAccount(req.AccountID)
		}
		writeFault(c, err)
		return
	}

	s.recon.Kitchen.Invalidate()
	s.recon.Tables.Invalidate()
	s.recon.InvalidateAccount(req.AccountID)
	c.JSON(http.StatusOK, gin.H{"pedidos": items})
}

type advanceRequest struct {
	Target models.TicketState `json:"nuevo_estado" binding:"required"`
}

func (s *Server) handleAdvanceTicket(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeFault(c, fault.New(fault.Validation, "invalid ticket id"))
		return
	}
	var req advanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFault(c, fault.New(fault.Validation, "nuevo_estado is required"))
		return
	}

	// pre-check against the cached queue: advancing a delivered ticket or
	// skipping states fails here without a network call
	var cached *models.OrderItem
	if items, ok := s.recon.Kitchen.Peek(); ok {
		for i := range items {
			if items[i].ID == id {
				cached = &items[i]
				break
			}
		}
	}
	if cached != nil {
		if err := floor.CheckAdvance(cached.State, req.Target); err != nil {
			if fault.Is(err, fault.ConflictEquivalent) {
				c.JSON(http.StatusOK, gin.H{"estado": cached.State, "ya_realizado": true})
				return
			}
			writeFault(c, err)
			return
		}
	}

	ctx := commandContext(c)
	result, err := s.commands.AdvanceTicket(ctx, id, req.Target)
	if err != nil {
		if fault.Is(err, fault.NotFound) {
			s.recon.Kitchen.Invalidate()
		}
		writeFault(c, err)
		return
	}

	if s.audit != nil && result.State == models.TicketDelivered && !result.AlreadyDone && cached != nil {
		delivered := *cached
		delivered.State = models.TicketDelivered
		if err := s.audit.RecordDelivery(delivered); err != nil {
			// audit is best-effort; the transition already happened upstream
			c.Error(err)
		}
	}

	s.recon.Kitchen.Invalidate()
	c.JSON(http.StatusOK, gin.H{"estado": result.State, "ya_realizado": result.AlreadyDone})
}

type settleRequest struct {
	Payments []models.Payment `json:"pagos"`
}

func (s *Server) handleSettle(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		writeFault(c, fault.New(fault.Validation, "invalid account id"))
		return
	}
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeFault(c, fault.New(fault.Validation, "pagos is required"))
		return
	}

	ctx := commandContext(c)

	// settle against a fresh account snapshot: a retried settlement on a
	// paid account must be rejected, not silently accepted
	s.recon.InvalidateAccount(id)
	account, err := s.recon.Account(id).Get(ctx)
	if err != nil {
		writeFault(c, err)
		return
	}

	summary, err := floor.PrepareSettlement(account, req.Payments)
	if err != nil {
		writeFault(c, err)
		return
	}

	outcome, err := s.commands.SettleAccount(ctx, id, summary.Lines)
	if err != nil {
		writeFault(c, err)
		return
	}

	if s.audit != nil {
		if err := s.audit.RecordSettlement(summary); err != nil {
			c.Error(err)
		}
	}

	s.recon.Tables.Invalidate()
	s.recon.InvalidateAccount(id)
	tables, _ := s.recon.Tables.Get(ctx)
	c.JSON(http.StatusOK, gin.H{
		"resumen":         summary,
		"cuenta":          outcome.Account,
		"mesas_liberadas": outcome.FreedTables,
		"mesas":           tables,
	})
}
