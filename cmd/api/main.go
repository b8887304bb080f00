package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/ovenfresh/bakery-api/internal/config"
	"github.com/ovenfresh/bakery-api/internal/handler"
	"github.com/ovenfresh/bakery-api/internal/middleware"
	"github.com/ovenfresh/bakery-api/internal/repository"
	"github.com/ovenfresh/bakery-api/internal/service"
	"github.com/ovenfresh/bakery-api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	productRepo := repository.NewProductRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)
	inventoryRepo := repository.NewInventoryRepository(dbPool)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	productSvc := service.NewProductService(productRepo, redisClient)
	inventorySvc := service.NewInventoryService(inventoryRepo, cfg.Inventory)
	cartSvc := service.NewCartService(cartRepo, productRepo, cfg.Cart.TTL)
	orderSvc := service.NewOrderService(orderRepo, cartRepo, productRepo, userRepo,
		inventorySvc, amqpCh, cfg.Order, cfg.Inventory, log)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	productH := handler.NewProductHandler(productSvc)
	cartH := handler.NewCartHandler(cartSvc)
	orderH := handler.NewOrderHandler(orderSvc, cartSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	orderWorker := worker.NewOrderWorker(amqpCh, orderRepo, redisClient, log)

	// Router
	router := gin.Default()
	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authH.Register)
		auth.POST("/login", authH.Login)

		products := v1.Group("/products")
		products.GET("", productH.List)
		products.GET("/:id", productH.GetByID)

		// Storefront stock check; everything else under /inventory is staff-only.
		v1.GET("/inventory/:productId/availability", inventoryH.Availability)

		adminProducts := products.Group("", middleware.AuthMiddleware(cfg.JWT.Secret), middleware.AdminOnly())
		adminProducts.POST("", productH.Create)
		adminProducts.GET("/all", productH.ListAll)
		adminProducts.PUT("/:id", productH.Update)
		adminProducts.DELETE("/:id", productH.Delete)

		// Cart routes serve guests (session header) and users alike.
		cart := v1.Group("/cart", middleware.OptionalAuth(cfg.JWT.Secret))
		cart.GET("", cartH.GetCart)
		cart.POST("/items", cartH.AddItem)
		cart.PUT("/items/:id", cartH.UpdateItem)
		cart.DELETE("/items/:id", cartH.DeleteItem)
		cart.POST("/items/:id/save", cartH.SaveForLater)
		cart.DELETE("", cartH.Clear)
		cart.POST("/merge", cartH.Merge)

		orders := v1.Group("/orders")
		orders.POST("/checkout", middleware.OptionalAuth(cfg.JWT.Secret), orderH.Checkout)
		orders.GET("/number/:number", middleware.OptionalAuth(cfg.JWT.Secret), orderH.GetByNumber)
		orders.GET("", middleware.AuthMiddleware(cfg.JWT.Secret), orderH.ListMine)
		orders.GET("/:id", middleware.OptionalAuth(cfg.JWT.Secret), orderH.GetOrder)

		staff := orders.Group("", middleware.AuthMiddleware(cfg.JWT.Secret), middleware.AdminOnly())
		staff.POST("", orderH.CreateOrder)
		staff.GET("/status/:status", orderH.ListByStatus)
		staff.GET("/range", orderH.ListByDateRange)
		staff.GET("/recent", orderH.ListRecent)
		staff.POST("/:id/status", orderH.Transition)
		staff.POST("/:id/cancel", orderH.Cancel)
		staff.POST("/:id/refund", orderH.Refund)
		staff.DELETE("/:id", orderH.Delete)

		inventory := v1.Group("/inventory", middleware.AuthMiddleware(cfg.JWT.Secret), middleware.AdminOnly())
		inventory.GET("", inventoryH.List)
		inventory.GET("/:productId", inventoryH.Get)
		inventory.POST("/:productId/increase", inventoryH.Increase)
		inventory.POST("/:productId/decrease", inventoryH.Decrease)
		inventory.PUT("/:productId/thresholds", inventoryH.SetThresholds)
	}

	if err := orderWorker.Start(ctx); err != nil {
		log.Error("start order worker", "error", err)
		os.Exit(1)
	}

	// Periodic sweep of expired carts.
	go func() {
		ticker := time.NewTicker(cfg.Cart.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := cartSvc.CleanupExpired(ctx)
				if err != nil {
					log.Error("cleanup expired carts", "error", err)
					continue
				}
				if deleted > 0 {
					log.Info("cleaned up expired carts", "deleted", deleted)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	orderWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
