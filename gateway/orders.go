package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/example/farmashop/pkg/models"
	"github.com/example/farmashop/pkg/orderflow"
)

func orderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return 0, false
	}
	return id, true
}

func (g *Gateway) nextStates(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	_, role := actor(c)
	if q := c.Query("rol"); q != "" {
		role = q
	}

	states, err := g.flow.NextStates(c.Request.Context(), id, role)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"siguientes": states})
}

type changeStatusRequest struct {
	NuevoEstado     string `json:"nuevo_estado" binding:"required"`
	Nota            string `json:"nota"`
	NotaAudiencia   string `json:"nota_audiencia"`
	NotaCliente     string `json:"nota_cliente"`
	NotaRol         string `json:"nota_rol"`
	RolDestinatario string `json:"rol_destinatario"`
}

func (g *Gateway) changeStatus(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name, role := actor(c)

	result, err := g.flow.ChangeStatus(c.Request.Context(), orderflow.ChangeStatusInput{
		OrderID:       id,
		NewStatusCode: req.NuevoEstado,
		ActorName:     name,
		ActorRole:     role,
		Note:          req.Nota,
		NoteAudience:  req.NotaAudiencia,
		CustomerNote:  req.NotaCliente,
		RoleNote:      req.NotaRol,
		TargetRole:    req.RolDestinatario,
	})
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (g *Gateway) orderHistory(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	rows, err := g.orders.History(c.Request.Context(), id)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"historial": rows})
}

func (g *Gateway) orderNotes(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	_, role := actor(c)
	notes, err := g.orders.Notes(c.Request.Context(), id, role)
	if err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notas": notes})
}

type addNoteRequest struct {
	Texto           string `json:"texto" binding:"required"`
	Audiencia       string `json:"audiencia"`
	RolDestinatario string `json:"rol_destinatario"`
}

func (g *Gateway) addOrderNote(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req addNoteRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name, role := actor(c)

	note := &models.OrderNote{
		OrderID:    id,
		Text:       req.Texto,
		Audience:   req.Audiencia,
		AuthorName: name,
		AuthorRole: role,
	}
	if note.Audience == "" {
		note.Audience = models.AudienceInternalAll
	}
	if req.RolDestinatario != "" {
		note.TargetRole = &req.RolDestinatario
	}
	if err := g.orders.AddNote(c.Request.Context(), note); err != nil {
		g.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}
