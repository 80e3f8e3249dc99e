package gateway

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/example/farmashop/pkg/models"
	"github.com/example/farmashop/pkg/repository"
)

type matrixRequest struct {
	// Transiciones maps origin status id to its selected destination ids.
	Transiciones map[string][]int64 `json:"transiciones" binding:"required"`
}

func (g *Gateway) saveTransitionMatrix(c *gin.Context) {
	var req matrixRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matrix := make(map[int64][]int64, len(req.Transiciones))
	for key, dests := range req.Transiciones {
		originID, err := strconv.ParseInt(key, 10, 64)
		if err != nil || originID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid origin id " + key})
			return
		}
		matrix[originID] = dests
	}

	if err := g.statuses.SaveTransitionMatrix(c.Request.Context(), matrix); err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actualizado": len(matrix)})
}

func (g *Gateway) listParams(c *gin.Context) {
	params, err := g.settings.List(c.Request.Context())
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parametros": params})
}

type setParamRequest struct {
	Valor string `json:"valor" binding:"required"`
}

func (g *Gateway) setParam(c *gin.Context) {
	key := c.Param("clave")
	var req setParamRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// the initial-status parameter must point at a real active status
	if key == models.ParamInitialStatus {
		code := strings.ToUpper(strings.TrimSpace(req.Valor))
		st, err := g.statuses.ByCode(c.Request.Context(), code)
		if err != nil {
			g.fail(c, err)
			return
		}
		if !st.Active {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "status " + code + " is inactive"})
			return
		}
		req.Valor = code
	}

	if err := g.settings.Set(c.Request.Context(), key, req.Valor); err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clave": key, "valor": req.Valor})
}

type setMarginRequest struct {
	// Margen is a fraction: 0.08 means 8%.
	Margen string `json:"margen" binding:"required"`
}

func (g *Gateway) setTypeMargin(c *gin.Context) {
	g.setMargin(c, g.prices.UpsertTypeMargin)
}

func (g *Gateway) setCategoryMargin(c *gin.Context) {
	g.setMargin(c, g.prices.UpsertCategoryMargin)
}

func (g *Gateway) setMargin(c *gin.Context, upsert func(context.Context, int64, decimal.Decimal) error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req setMarginRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	margin, err := decimal.NewFromString(strings.TrimSpace(req.Margen))
	if err != nil || margin.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "margen must be a non-negative fraction"})
		return
	}
	if err := upsert(c.Request.Context(), id, margin); err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "margen": margin.String()})
}

// initialStatus reports the status new orders get, as currently configured.
func (g *Gateway) initialStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"estado_inicial": g.flow.InitialStatus(c.Request.Context())})
}

func (g *Gateway) shippingTypes(c *gin.Context) {
	types, err := g.shipping.ActiveTypes(c.Request.Context())
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tipos": types})
}

func (g *Gateway) shippingQuote(c *gin.Context) {
	typeID, ok := queryInt64(c, "tipo_envio")
	if !ok {
		return
	}
	in := repository.QuoteInput{ShippingTypeID: typeID}
	if v, err := strconv.ParseInt(c.Query("region"), 10, 64); err == nil {
		in.RegionID = v
	}
	if v, err := strconv.ParseInt(c.Query("comuna"), 10, 64); err == nil {
		in.ComunaID = v
	}
	if v, err := strconv.ParseInt(c.Query("total_neto"), 10, 64); err == nil {
		in.OrderNetTotal = v
	}
	if v, err := strconv.ParseInt(c.Query("peso_g"), 10, 64); err == nil {
		in.WeightG = v
	}

	quote, err := g.shipping.ResolveRate(c.Request.Context(), in)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
