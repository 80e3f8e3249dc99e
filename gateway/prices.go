package gateway

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/example/farmashop/pkg/models"
	"github.com/example/farmashop/pkg/pricing"
)

func queryInt64(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or missing " + name})
		return 0, false
	}
	return v, true
}

func channelFrom(c *gin.Context) pricing.Channel {
	switch strings.ToUpper(c.Query("canal")) {
	case "PTS":
		return pricing.ChannelPTS
	case "ERP":
		return pricing.ChannelERP
	default:
		return pricing.ChannelAny
	}
}

// previewPrice resolves a price without publishing it. For a MANUAL list the
// resolver is skipped and the price in force is echoed back, since rules never
// apply there.
func (g *Gateway) previewPrice(c *gin.Context) {
	productID, ok := queryInt64(c, "producto")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	slug := c.DefaultQuery("lista", models.PriceListPVP)
	list, err := g.prices.PriceListBySlug(ctx, slug)
	if err != nil {
		g.fail(c, err)
		return
	}
	if list.IsManual() {
		current, err := g.prices.CurrentPrice(ctx, productID, list.ID)
		if err != nil {
			g.fail(c, err)
			return
		}
		resp := gin.H{"id_lista": list.ID, "modo": list.Mode, "vigente": nil}
		if current != nil {
			resp["vigente"] = current.IntPart()
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	res, err := g.resolver.Resolve(ctx, productID, channelFrom(c))
	if err != nil && res == nil {
		g.fail(c, err)
		return
	}
	// a failed resolution still carries its diagnostic steps
	c.JSON(http.StatusOK, res)
}

type publishRequest struct {
	ProductoID  int64  `json:"id_producto" binding:"required"`
	ListaID     int64  `json:"id_lista" binding:"required"`
	PrecioBruto int64  `json:"precio_bruto" binding:"required"`
	Fuente      string `json:"fuente"`
}

func (g *Gateway) publishPrice(c *gin.Context) {
	var req publishRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name, _ := actor(c)
	source := req.Fuente
	if source == "" {
		source = "manual"
	}

	id, err := g.resolver.Publish(c.Request.Context(), req.ProductoID, req.ListaID, req.PrecioBruto, name, source)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id_precio": id})
}

type recalcRequest struct {
	Scope     pricing.Scope `json:"alcance"`
	PTS       bool          `json:"pts"`
	PVP       bool          `json:"pvp"`
	ForzarPVP bool          `json:"forzar_pvp"`
}

func (g *Gateway) recalculate(c *gin.Context) {
	var req recalcRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name, _ := actor(c)

	report, err := g.resolver.Recalculate(c.Request.Context(), pricing.RecalcOptions{
		Scope:    req.Scope,
		PTS:      req.PTS,
		PVP:      req.PVP,
		ForcePVP: req.ForzarPVP,
		Actor:    name,
	})
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
