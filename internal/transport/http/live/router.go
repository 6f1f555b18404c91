package livehttp

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vwaptrader/internal/engine"
	"vwaptrader/internal/indicator"
	"vwaptrader/internal/logger"
	"vwaptrader/internal/position"

	"github.com/gin-gonic/gin"
)

// EngineView 是看板依赖的引擎能力，由 *engine.Engine 实现。
type EngineView interface {
	Snapshot() *engine.Snapshot
	Series(symbol string) ([]indicator.Point, error)
	RequestManualExit(symbol string) error
}

// TradeLister reads persisted trades for a past session.
type TradeLister interface {
	ListTrades(ctx context.Context, date string) ([]position.ClosedTrade, error)
}

type Router struct {
	Engine EngineView
	Trades TradeLister
}

func NewRouter(eng EngineView, trades TradeLister) *Router {
	return &Router{Engine: eng, Trades: trades}
}

func (r *Router) Register(router gin.IRouter) {
	if router == nil {
		return
	}
	api := router.Group("/api")
	api.GET("/instruments", r.handleInstruments)
	api.GET("/positions", r.handlePositions)
	api.POST("/positions/:symbol/exit", r.handleManualExit)
	api.GET("/trades", r.handleTrades)
	api.GET("/summary", r.handleSummary)
	api.GET("/series/:symbol", r.handleSeries)
	router.GET("/chart/:symbol", r.handleChart)
}

func (r *Router) handleInstruments(c *gin.Context) {
	snap := r.Engine.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"updated_at":  snap.UpdatedAt,
		"phase":       snap.Phase,
		"instruments": nonNil(snap.Instruments),
	})
}

func (r *Router) handlePositions(c *gin.Context) {
	snap := r.Engine.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"updated_at": snap.UpdatedAt,
		"positions":  nonNil(snap.Positions),
		"open_mtm":   snap.OpenMTM,
	})
}

func (r *Router) handleManualExit(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if err := r.Engine.RequestManualExit(symbol); err != nil {
		if errors.Is(err, position.ErrNoPosition) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, position.ErrExitPending) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("[api] manual exit failed ip=%s symbol=%s err=%v", c.ClientIP(), symbol, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[api] manual exit queued ip=%s symbol=%s", c.ClientIP(), symbol)
	c.JSON(http.StatusAccepted, gin.H{"symbol": symbol, "status": "queued"})
}

// handleTrades 默认返回内存中的最近成交；带 date 参数时从存储读取当日记录。
func (r *Router) handleTrades(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	date := strings.TrimSpace(c.Query("date"))
	if date == "" {
		trades := r.Engine.Snapshot().Trades
		if limit > 0 && len(trades) > limit {
			trades = trades[:limit]
		}
		c.JSON(http.StatusOK, gin.H{"trades": nonNil(trades)})
		return
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	if r.Trades == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trade store not enabled"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	trades, err := r.Trades.ListTrades(ctx, date)
	if err != nil {
		logger.Errorf("[api] list trades failed ip=%s date=%s err=%v", c.ClientIP(), date, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "trades": nonNil(trades)})
}

func (r *Router) handleSummary(c *gin.Context) {
	snap := r.Engine.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"cycle":                snap.Cycle,
		"updated_at":           snap.UpdatedAt,
		"session":              snap.Session,
		"phase":                snap.Phase,
		"risk":                 snap.Risk,
		"entries":              snap.Entries,
		"open_positions":       len(snap.Positions),
		"open_mtm":             snap.OpenMTM,
		"consecutive_failures": snap.Failures,
	})
}

func (r *Router) handleSeries(c *gin.Context) {
	points, ok := r.series(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": c.Param("symbol"), "points": nonNil(points)})
}

func (r *Router) handleChart(c *gin.Context) {
	points, ok := r.series(c)
	if !ok {
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := renderSeriesChart(c.Writer, symbol, points); err != nil {
		logger.Errorf("[api] chart render failed symbol=%s err=%v", symbol, err)
	}
}

func (r *Router) series(c *gin.Context) ([]indicator.Point, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	points, err := r.Engine.Series(symbol)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownInstrument) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return points, true
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
