// Package web Web API 服务
// 只读 JSON 接口，供外部报表拉取抽奖数据
package web

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/smysle/sakura-lottery-go/internal/config"
	"github.com/smysle/sakura-lottery-go/internal/database"
	"github.com/smysle/sakura-lottery-go/internal/database/models"
	"github.com/smysle/sakura-lottery-go/internal/database/repository"
	pkglogger "github.com/smysle/sakura-lottery-go/pkg/logger"
)

// Server Web 服务器
type Server struct {
	app       *fiber.App
	cfg       *config.APIConfig
	startTime time.Time
}

// New 创建 Web 服务器
func New(cfg *config.APIConfig) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// 中间件
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(cfg.AllowOrigins, ","),
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	server := &Server{
		app:       app,
		cfg:       cfg,
		startTime: time.Now(),
	}

	// 注册路由
	server.registerRoutes()

	return server
}

// registerRoutes 注册路由
func (s *Server) registerRoutes() {
	// 健康检查
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/", s.healthCheck)

	// 详细状态
	s.app.Get("/status", s.detailedStatus)

	// API v1
	v1 := s.app.Group("/api/v1")

	// 抽奖相关
	v1.Get("/lottery/:id", s.getLottery)
	v1.Get("/lottery/:id/winners", s.getWinners)

	// 统计
	v1.Get("/stats", s.getStats)
}

// Start 启动服务器
func (s *Server) Start() error {
	if !s.cfg.Enabled {
		pkglogger.Info().Msg("【API服务】未启用，跳过...")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	pkglogger.Info().Str("addr", addr).Msg("【API服务】启动中...")

	return s.app.Listen(addr)
}

// Stop 停止服务器
func (s *Server) Stop() error {
	return s.app.Shutdown()
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// healthCheck 健康检查
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

// StatusResponse 详细状态响应
type StatusResponse struct {
	Status   string         `json:"status"`
	Version  string         `json:"version"`
	Uptime   string         `json:"uptime"`
	System   SystemInfo     `json:"system"`
	Database DatabaseStatus `json:"database"`
}

// SystemInfo 系统信息
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     string `json:"mem_alloc"`
}

// DatabaseStatus 数据库状态
type DatabaseStatus struct {
	Connected      bool  `json:"connected"`
	ActiveLottery  int64 `json:"active_lotteries"`
	TotalLotteries int64 `json:"total_lotteries"`
}

// detailedStatus 详细状态
func (s *Server) detailedStatus(c *fiber.Ctx) error {
	// 系统信息
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// 数据库状态
	dbConnected := false
	var active, total int64
	if db := database.GetDB(); db != nil {
		sqlDB, err := db.DB()
		if err == nil && sqlDB.Ping() == nil {
			dbConnected = true
			repo := repository.NewLotteryRepository()
			active, _ = repo.CountByStatus(models.LotteryStatusActive)
			completed, _ := repo.CountByStatus(models.LotteryStatusCompleted)
			total = active + completed
		}
	}

	return c.JSON(StatusResponse{
		Status:  "ok",
		Version: "1.0.0",
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		System: SystemInfo{
			GoVersion:    runtime.Version(),
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     fmt.Sprintf("%.2f MB", float64(memStats.Alloc)/1024/1024),
		},
		Database: DatabaseStatus{
			Connected:      dbConnected,
			ActiveLottery:  active,
			TotalLotteries: total,
		},
	})
}

// LotteryResponse 抽奖活动响应
type LotteryResponse struct {
	ID              uint   `json:"id"`
	ChatID          int64  `json:"chat_id"`
	Title           string `json:"title"`
	Status          string `json:"status"`
	Mode            string `json:"mode"`
	MaxParticipants int    `json:"max_participants"`
	WinnerCount     int    `json:"winner_count"`
	Participants    int64  `json:"participants"`
	CreatedAt       string `json:"created_at"`
}

// getLottery 获取抽奖活动信息
func (s *Server) getLottery(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的活动ID",
		})
	}

	repo := repository.NewLotteryRepository()
	lottery, err := repo.GetByID(uint(id))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询失败",
		})
	}
	if lottery == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "抽奖活动不存在",
		})
	}

	count, _ := repository.NewParticipantRepository().CountByLottery(lottery.ID)

	return c.JSON(LotteryResponse{
		ID:              lottery.ID,
		ChatID:          lottery.ChatID,
		Title:           lottery.Title,
		Status:          lottery.Status,
		Mode:            lottery.Mode,
		MaxParticipants: lottery.MaxParticipants,
		WinnerCount:     lottery.WinnerCount,
		Participants:    count,
		CreatedAt:       lottery.CreatedAt.Format("2006-01-02 15:04:05"),
	})
}

// WinnerResponse 中奖记录响应
type WinnerResponse struct {
	TG         int64  `json:"tg"`
	Name       string `json:"name"`
	PrizeText  string `json:"prize_text"`
	Status     string `json:"status"`
	AssignedAt string `json:"assigned_at"`
	ClaimedAt  string `json:"claimed_at,omitempty"`
	ExpiresAt  string `json:"expires_at"`
}

// getWinners 获取抽奖的中奖名单
func (s *Server) getWinners(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的活动ID",
		})
	}

	records, err := repository.NewWinnerRepository().RecordsByLottery(uint(id))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "查询失败",
		})
	}

	out := make([]WinnerResponse, 0, len(records))
	for _, r := range records {
		w := WinnerResponse{
			TG:         r.TG,
			Name:       r.Name,
			PrizeText:  r.PrizeText,
			Status:     r.Status,
			AssignedAt: r.AssignedAt.Format("2006-01-02 15:04:05"),
			ExpiresAt:  r.ExpiresAt.Format("2006-01-02 15:04:05"),
		}
		if r.ClaimedAt != nil {
			w.ClaimedAt = r.ClaimedAt.Format("2006-01-02 15:04:05")
		}
		out = append(out, w)
	}

	return c.JSON(fiber.Map{
		"lottery_id": id,
		"winners":    out,
	})
}

// StatsResponse 统计响应
type StatsResponse struct {
	ActiveLotteries    int64            `json:"active_lotteries"`
	CompletedLotteries int64            `json:"completed_lotteries"`
	TotalParticipants  int64            `json:"total_participants"`
	PendingWinners     int64            `json:"pending_winners"`
	SentWinners        int64            `json:"sent_winners"`
	ExpiredWinners     int64            `json:"expired_winners"`
	Warehouses         []WarehouseStats `json:"warehouses"`
}

// WarehouseStats 仓库库存统计
type WarehouseStats struct {
	Warehouse string `json:"warehouse"`
	Items     int64  `json:"items"`
	Stock     int64  `json:"stock"`
}

// getStats 获取全局统计
func (s *Server) getStats(c *fiber.Ctx) error {
	lotteryRepo := repository.NewLotteryRepository()
	winnerRepo := repository.NewWinnerRepository()

	active, err := lotteryRepo.CountByStatus(models.LotteryStatusActive)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "获取统计失败",
		})
	}
	completed, _ := lotteryRepo.CountByStatus(models.LotteryStatusCompleted)
	participants, _ := repository.NewParticipantRepository().CountAll()
	pending, _ := winnerRepo.CountByStatus(models.WinnerStatusPending)
	sent, _ := winnerRepo.CountByStatus(models.WinnerStatusSent)
	expired, _ := winnerRepo.CountByStatus(models.WinnerStatusExpired)

	stats, _ := repository.NewPrizeRepository().Warehouses()
	warehouses := make([]WarehouseStats, 0, len(stats))
	for _, w := range stats {
		warehouses = append(warehouses, WarehouseStats{
			Warehouse: w.Warehouse,
			Items:     w.Items,
			Stock:     w.Stock,
		})
	}

	return c.JSON(StatsResponse{
		ActiveLotteries:    active,
		CompletedLotteries: completed,
		TotalParticipants:  participants,
		PendingWinners:     pending,
		SentWinners:        sent,
		ExpiredWinners:     expired,
		Warehouses:         warehouses,
	})
}
