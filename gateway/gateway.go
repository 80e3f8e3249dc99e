package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/example/farmashop/pkg/config"
	"github.com/example/farmashop/pkg/models"
	"github.com/example/farmashop/pkg/orderflow"
	"github.com/example/farmashop/pkg/pricing"
	"github.com/example/farmashop/pkg/repository"
)

// PriceStore is the slice of the pricing repository the handlers read and
// configure directly, next to the resolver. Satisfied by
// repository.PricingRepository.
type PriceStore interface {
	PriceListBySlug(ctx context.Context, slug string) (*models.PriceList, error)
	CurrentPrice(ctx context.Context, productID, listID int64) (*decimal.Decimal, error)
	UpsertTypeMargin(ctx context.Context, typeID int64, margin decimal.Decimal) error
	UpsertCategoryMargin(ctx context.Context, categoryID int64, margin decimal.Decimal) error
}

// Gateway is the admin JSON API of the back office. Operator identity arrives
// in the X-Usuario and X-Rol headers set by the auth proxy in front.
type Gateway struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	flow     *orderflow.Engine
	resolver *pricing.Resolver
	prices   PriceStore
	statuses *repository.StatusRepository
	orders   *repository.OrderRepository
	settings *repository.SettingsRepository
	shipping *repository.ShippingRepository
}

type Deps struct {
	Flow     *orderflow.Engine
	Resolver *pricing.Resolver
	Prices   PriceStore
	Statuses *repository.StatusRepository
	Orders   *repository.OrderRepository
	Settings *repository.SettingsRepository
	Shipping *repository.ShippingRepository
}

func NewGateway(cfg *config.Config, logger *zap.Logger, deps Deps) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config:   cfg,
		logger:   logger,
		router:   router,
		flow:     deps.Flow,
		resolver: deps.Resolver,
		prices:   deps.Prices,
		statuses: deps.Statuses,
		orders:   deps.Orders,
		settings: deps.Settings,
		shipping: deps.Shipping,
	}
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := g.router.Group("/admin/api")
	{
		pedidos := api.Group("/pedidos")
		{
			pedidos.GET("/:id/siguientes-estados", g.nextStates)
			pedidos.POST("/:id/cambiar-estado", g.changeStatus)
			pedidos.GET("/:id/historial", g.orderHistory)
			pedidos.GET("/:id/notas", g.orderNotes)
			pedidos.POST("/:id/notas", g.addOrderNote)
		}

		precios := api.Group("/precios")
		{
			precios.GET("/preview", g.previewPrice)
			precios.POST("/publicar", g.publishPrice)
			precios.POST("/recalcular", g.recalculate)
		}

		envios := api.Group("/envios")
		{
			envios.GET("/tipos", g.shippingTypes)
			envios.GET("/tarifa", g.shippingQuote)
		}

		cfg := api.Group("/config")
		{
			cfg.PUT("/estados/transiciones", g.saveTransitionMatrix)
			cfg.GET("/parametros", g.listParams)
			cfg.PUT("/parametros/:clave", g.setParam)
			cfg.GET("/estado-inicial", g.initialStatus)
			cfg.PUT("/pts/margenes/tipo/:id", g.setTypeMargin)
			cfg.PUT("/pts/margenes/categoria/:id", g.setCategoryMargin)
		}
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.logger.Info("admin API starting", zap.String("address", addr))
	return g.router.Run(addr)
}

// Router exposes the configured engine for tests.
func (g *Gateway) Router() http.Handler {
	return g.router
}

func actor(c *gin.Context) (name, role string) {
	name = c.GetHeader("X-Usuario")
	if name == "" {
		name = "admin"
	}
	role = c.GetHeader("X-Rol")
	return name, role
}

// fail maps engine errors to HTTP statuses.
func (g *Gateway) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, orderflow.ErrOrderNotFound),
		errors.Is(err, orderflow.ErrStatusNotFound),
		errors.Is(err, pricing.ErrProductNotFound),
		errors.Is(err, pricing.ErrPriceListNotFound),
		errors.Is(err, repository.ErrNoShippingRate):
		status = http.StatusNotFound
	case errors.Is(err, orderflow.ErrInvalidStatusCode):
		status = http.StatusBadRequest
	case errors.Is(err, orderflow.ErrUnknownDestinationStatus):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, orderflow.ErrTransitionNotAllowed):
		status = http.StatusConflict
	case errors.Is(err, pricing.ErrNoApplicableRule):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		g.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
