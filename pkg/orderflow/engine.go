package orderflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/farmashop/pkg/models"
)

// Engine drives order status transitions against the configurable graph.
type Engine struct {
	catalog StatusCatalog
	store   OrderStore
	params  Params
	notify  Notifier
	audit   AuditSink
	logger  *zap.Logger
}

func NewEngine(catalog StatusCatalog, store OrderStore, params Params, notify Notifier, audit AuditSink, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		catalog: catalog,
		store:   store,
		params:  params,
		notify:  notify,
		audit:   audit,
		logger:  logger,
	}
}

// InitialStatus resolves the status assigned to freshly created orders from
// the pedido.estado_inicial parameter, validated against the catalog. An
// unset, blank or unknown configured code falls back to NUEVO.
func (e *Engine) InitialStatus(ctx context.Context) string {
	code := DefaultInitialStatus
	if v, ok, err := e.params.Get(ctx, models.ParamInitialStatus); err == nil && ok {
		if trimmed := strings.ToUpper(strings.TrimSpace(v)); trimmed != "" {
			code = trimmed
		}
	}
	if code == DefaultInitialStatus {
		return code
	}
	if st, err := e.catalog.ByCode(ctx, code); err != nil || !st.Active {
		e.logger.Warn("configured initial status unusable, falling back",
			zap.String("codigo", code))
		return DefaultInitialStatus
	}
	return code
}

// NextStates returns the destinations the given actor role may move the order
// to. Terminal statuses, RECHAZADO_QF included, yield an empty list. When the
// graph or catalog cannot be read the full active catalog (minus the current
// status) is offered instead of failing the request.
func (e *Engine) NextStates(ctx context.Context, orderID int64, actorRole string) ([]NextState, error) {
	order, err := e.store.ByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return e.nextForCode(ctx, order.StatusCode, actorRole), nil
}

func (e *Engine) nextForCode(ctx context.Context, currentCode, actorRole string) []NextState {
	if currentCode == StatusRechazadoQF {
		return []NextState{}
	}
	current, err := e.catalog.ByCode(ctx, currentCode)
	if err != nil {
		if errors.Is(err, ErrStatusNotFound) {
			return []NextState{}
		}
		return e.fallbackAll(ctx, currentCode, err)
	}
	if current.Final {
		return []NextState{}
	}
	dests, err := e.catalog.NextActive(ctx, current.ID)
	if err != nil {
		return e.fallbackAll(ctx, currentCode, err)
	}
	out := make([]NextState, 0, len(dests))
	for _, d := range dests {
		if !roleMayTarget(actorRole, d.ResponsibleRole) {
			continue
		}
		out = append(out, NextState{Code: d.Code, Name: d.Name, ResponsibleRole: d.ResponsibleRole})
	}
	return out
}

// fallbackAll degrades to the whole active catalog when the graph is
// unreadable, so operators are never locked out by an infrastructure hiccup.
func (e *Engine) fallbackAll(ctx context.Context, currentCode string, cause error) []NextState {
	e.logger.Warn("transition graph unreadable, offering full catalog",
		zap.String("estado_actual", currentCode), zap.Error(cause))
	all, err := e.catalog.ListActive(ctx)
	if err != nil {
		e.logger.Error("status catalog unreadable", zap.Error(err))
		return []NextState{}
	}
	out := make([]NextState, 0, len(all))
	for _, st := range all {
		if st.Code == currentCode {
			continue
		}
		out = append(out, NextState{Code: st.Code, Name: st.Name, ResponsibleRole: st.ResponsibleRole})
	}
	return out
}

func roleMayTarget(actorRole, responsibleRole string) bool {
	if actorRole == "" || strings.EqualFold(actorRole, "admin") {
		return true
	}
	return responsibleRole == "" || strings.EqualFold(actorRole, responsibleRole)
}

// ChangeStatusInput carries one transition request.
type ChangeStatusInput struct {
	OrderID       int64
	NewStatusCode string
	ActorName     string
	ActorRole     string
	// Note is the free-form operator note stored on the history row.
	Note         string
	NoteAudience string
	// CustomerNote, when set, adds a customer-visible note row.
	CustomerNote string
	// RoleNote, when set together with TargetRole, adds a note addressed to
	// the role responsible for the destination status.
	RoleNote   string
	TargetRole string
}

// ChangeStatusResult reports the committed transition.
type ChangeStatusResult struct {
	OrderID    int64  `json:"id_pedido"`
	OriginCode string `json:"estado_anterior"`
	DestCode   string `json:"estado_nuevo"`
	Terminal   bool   `json:"terminal"`
	Archived   bool   `json:"archivado"`
}

// ChangeStatus validates the requested transition against the graph and the
// actor's role, applies it atomically, then runs the best-effort terminal
// tail. A destination offered by an empty next-set (graph fallback in effect)
// is accepted as long as the destination status exists.
func (e *Engine) ChangeStatus(ctx context.Context, in ChangeStatusInput) (*ChangeStatusResult, error) {
	code := strings.ToUpper(strings.TrimSpace(in.NewStatusCode))
	if code == "" || len(code) > 64 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatusCode, in.NewStatusCode)
	}

	order, err := e.store.ByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.StatusCode == code {
		return nil, fmt.Errorf("%w: order already in %s", ErrTransitionNotAllowed, code)
	}

	dest, err := e.catalog.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrStatusNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownDestinationStatus, code)
		}
		return nil, err
	}
	if !dest.Active {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDestinationStatus, code)
	}

	// The gate checks the configured edge set without role filtering: roles
	// narrow what the UI offers, never what the graph allows. Filtering here
	// would hand a role with no offered destinations an empty set, and the
	// empty set is reserved for a graph with no edges at all.
	allowed := e.nextForCode(ctx, order.StatusCode, "")
	if len(allowed) > 0 {
		found := false
		for _, n := range allowed {
			if n.Code == code {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, order.StatusCode, code)
		}
	}

	rec := e.buildRecord(ctx, order, dest, in)
	if err := e.store.ApplyTransition(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if e.audit != nil {
		origin := order.StatusCode
		go e.audit.RecordTransition(context.Background(), order.ID, origin, code, in.ActorName)
	}

	res := &ChangeStatusResult{
		OrderID:    order.ID,
		OriginCode: order.StatusCode,
		DestCode:   code,
		Terminal:   dest.Final || code == StatusRechazadoQF,
	}
	if res.Terminal {
		res.Archived = e.terminalTail(ctx, order, dest, in)
	}
	return res, nil
}

func (e *Engine) buildRecord(ctx context.Context, order *models.Order, dest *models.OrderStatus, in ChangeStatusInput) *TransitionRecord {
	originCode := order.StatusCode
	transition := fmt.Sprintf("Estado cambiado de %s a %s", originCode, dest.Code)
	rec := &TransitionRecord{
		OrderID:      order.ID,
		OriginCode:   &originCode,
		DestCode:     dest.Code,
		DestStatusID: dest.ID,
		HistoryNote:  in.Note,
		Audience:     in.NoteAudience,
		ActorName:    in.ActorName,
		ActorRole:    in.ActorRole,
	}
	if origin, err := e.catalog.ByCode(ctx, originCode); err == nil {
		rec.OriginStatusID = &origin.ID
	}
	if rec.HistoryNote == "" {
		rec.HistoryNote = transition
	}
	if rec.Audience == "" {
		rec.Audience = models.AudienceInternalAll
	}
	// every transition leaves an internal timeline note, operator input or not
	rec.Notes = append(rec.Notes, models.OrderNote{
		OrderID:    order.ID,
		Text:       transition,
		Audience:   models.AudienceInternalAll,
		AuthorName: in.ActorName,
		AuthorRole: in.ActorRole,
	})
	if in.CustomerNote != "" {
		rec.Notes = append(rec.Notes, models.OrderNote{
			OrderID:    order.ID,
			Text:       in.CustomerNote,
			Audience:   models.AudienceCustomer,
			AuthorName: in.ActorName,
			AuthorRole: in.ActorRole,
		})
	}
	if in.RoleNote != "" {
		target := in.TargetRole
		if target == "" {
			target = dest.ResponsibleRole
		}
		if target != "" {
			rec.TargetRole = &target
			rec.Notes = append(rec.Notes, models.OrderNote{
				OrderID:    order.ID,
				Text:       in.RoleNote,
				Audience:   models.AudienceNextRole,
				TargetRole: &target,
				AuthorName: in.ActorName,
				AuthorRole: in.ActorRole,
			})
		}
	}
	return rec
}

// terminalTail archives the order and tells the customer after a terminal
// transition. Every step is best-effort: a failure is logged and the next
// step still runs, since the transition itself is already committed.
func (e *Engine) terminalTail(ctx context.Context, order *models.Order, dest *models.OrderStatus, in ChangeStatusInput) bool {
	archived := false
	if err := e.store.Archive(ctx, order.ID); err != nil {
		e.logger.Error("archive after terminal transition failed",
			zap.Int64("id_pedido", order.ID), zap.Error(err))
	} else {
		archived = true
	}

	if dest.Code == StatusRechazadoQF {
		note := &models.OrderNote{
			OrderID:    order.ID,
			Text:       rejectionBody(order.Number, in.Note),
			Audience:   models.AudienceCustomer,
			AuthorName: in.ActorName,
			AuthorRole: in.ActorRole,
		}
		if err := e.store.AddNote(ctx, note); err != nil {
			e.logger.Error("rejection note failed",
				zap.Int64("id_pedido", order.ID), zap.Error(err))
		}
	}

	if e.notify != nil {
		email, err := e.store.CustomerEmail(ctx, order.ID)
		if err != nil {
			e.logger.Error("customer email lookup failed",
				zap.Int64("id_pedido", order.ID), zap.Error(err))
		} else if email != "" {
			n := CustomerNotification{
				MessageID:   uuid.NewString(),
				Email:       email,
				Subject:     fmt.Sprintf("Pedido %s: %s", order.Number, dest.Name),
				OrderNumber: order.Number,
				Body:        rejectionBody(order.Number, in.Note),
			}
			if dest.Code != StatusRechazadoQF {
				n.Body = fmt.Sprintf("Su pedido %s ha pasado al estado %s.", order.Number, dest.Name)
			}
			if err := e.notify.NotifyCustomer(ctx, n); err != nil {
				e.logger.Error("customer notification failed",
					zap.Int64("id_pedido", order.ID),
					zap.String("message_id", n.MessageID), zap.Error(err))
			}
		}
	}
	return archived
}

func rejectionBody(number, reason string) string {
	if reason == "" {
		return fmt.Sprintf("Su pedido %s fue rechazado por el quimico farmaceutico.", number)
	}
	return fmt.Sprintf("Su pedido %s fue rechazado por el quimico farmaceutico. Motivo: %s", number, reason)
}
