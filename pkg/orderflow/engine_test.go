package orderflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/farmashop/pkg/models"
)

type fakeCatalog struct {
	statuses map[string]*models.OrderStatus
	edges    map[int64][]int64
	failNext bool
	failList bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		statuses: map[string]*models.OrderStatus{},
		edges:    map[int64][]int64{},
	}
}

func (c *fakeCatalog) add(id int64, code, role string, final bool, order int64) {
	c.statuses[code] = &models.OrderStatus{
		ID: id, Code: code, Name: code, ResponsibleRole: role,
		DisplayOrder: order, Active: true, Final: final,
	}
}

func (c *fakeCatalog) ByCode(_ context.Context, code string) (*models.OrderStatus, error) {
	st, ok := c.statuses[code]
	if !ok {
		return nil, ErrStatusNotFound
	}
	return st, nil
}

func (c *fakeCatalog) ListActive(_ context.Context) ([]models.OrderStatus, error) {
	if c.failList {
		return nil, errors.New("catalog down")
	}
	var out []models.OrderStatus
	for _, st := range c.statuses {
		if st.Active {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (c *fakeCatalog) NextActive(_ context.Context, originID int64) ([]models.OrderStatus, error) {
	if c.failNext {
		return nil, errors.New("graph down")
	}
	var out []models.OrderStatus
	for _, destID := range c.edges[originID] {
		for _, st := range c.statuses {
			if st.ID == destID && st.Active {
				out = append(out, *st)
			}
		}
	}
	return out, nil
}

type fakeOrderStore struct {
	orders      map[int64]*models.Order
	emails      map[int64]string
	transitions []*TransitionRecord
	notes       []*models.OrderNote
	archived    []int64
	applyErr    error
	archiveErr  error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders: map[int64]*models.Order{},
		emails: map[int64]string{},
	}
}

func (s *fakeOrderStore) ByID(_ context.Context, id int64) (*models.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (s *fakeOrderStore) ApplyTransition(_ context.Context, rec *TransitionRecord) error {
	if s.applyErr != nil {
		return s.applyErr
	}
	s.transitions = append(s.transitions, rec)
	s.orders[rec.OrderID].StatusCode = rec.DestCode
	s.notes = append(s.notes, noteRefs(rec.Notes)...)
	return nil
}

func noteRefs(notes []models.OrderNote) []*models.OrderNote {
	out := make([]*models.OrderNote, 0, len(notes))
	for i := range notes {
		out = append(out, &notes[i])
	}
	return out
}

func (s *fakeOrderStore) Archive(_ context.Context, orderID int64) error {
	if s.archiveErr != nil {
		return s.archiveErr
	}
	s.archived = append(s.archived, orderID)
	s.orders[orderID].Archived = true
	return nil
}

func (s *fakeOrderStore) AddNote(_ context.Context, note *models.OrderNote) error {
	s.notes = append(s.notes, note)
	return nil
}

func (s *fakeOrderStore) CustomerEmail(_ context.Context, orderID int64) (string, error) {
	return s.emails[orderID], nil
}

type fakeParams map[string]string

func (p fakeParams) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := p[key]
	return v, ok, nil
}

type fakeNotifier struct {
	sent []CustomerNotification
	err  error
}

func (n *fakeNotifier) NotifyCustomer(_ context.Context, notification CustomerNotification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notification)
	return nil
}

// testGraph builds the usual flow: NUEVO -> VALIDACION_QF -> PREPARACION,
// with VALIDACION_QF also able to reject and ENTREGADO as the happy terminal.
func testGraph() *fakeCatalog {
	c := newFakeCatalog()
	c.add(1, "NUEVO", "vendedor", false, 10)
	c.add(2, "VALIDACION_QF", "quimico", false, 20)
	c.add(3, "PREPARACION", "bodega", false, 30)
	c.add(4, "ENTREGADO", "vendedor", true, 40)
	c.add(5, StatusRechazadoQF, "quimico", true, 50)
	c.edges[1] = []int64{2}
	c.edges[2] = []int64{3, 5}
	c.edges[3] = []int64{4}
	return c
}

func newTestEngine(catalog *fakeCatalog, store *fakeOrderStore, params fakeParams, notifier *fakeNotifier) *Engine {
	if params == nil {
		params = fakeParams{}
	}
	return NewEngine(catalog, store, params, notifier, nil, zap.NewNop())
}

func TestNextStatesFollowsGraph(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "VALIDACION_QF"}

	states, err := newTestEngine(catalog, store, nil, nil).NextStates(context.Background(), 1, "admin")
	require.NoError(t, err)
	require.Len(t, states, 2)
	codes := []string{states[0].Code, states[1].Code}
	require.Contains(t, codes, "PREPARACION")
	require.Contains(t, codes, StatusRechazadoQF)
}

func TestNextStatesTerminalIsEmpty(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "ENTREGADO"}
	store.orders[2] = &models.Order{ID: 2, Number: "P-2", StatusCode: StatusRechazadoQF}

	eng := newTestEngine(catalog, store, nil, nil)
	for _, id := range []int64{1, 2} {
		states, err := eng.NextStates(context.Background(), id, "admin")
		require.NoError(t, err)
		require.Empty(t, states)
	}
}

func TestNextStatesRoleGating(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "VALIDACION_QF"}

	eng := newTestEngine(catalog, store, nil, nil)

	// bodega may only move toward its own responsibility
	states, err := eng.NextStates(context.Background(), 1, "bodega")
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.Equal(t, "PREPARACION", states[0].Code)

	// admin sees everything
	states, err = eng.NextStates(context.Background(), 1, "admin")
	require.NoError(t, err)
	require.Len(t, states, 2)
}

func TestNextStatesFallbackWhenGraphUnreadable(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	catalog.failNext = true
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "NUEVO"}

	states, err := newTestEngine(catalog, store, nil, nil).NextStates(context.Background(), 1, "admin")
	require.NoError(t, err)
	// full active catalog minus the current status
	require.Len(t, states, len(catalog.statuses)-1)
	for _, st := range states {
		require.NotEqual(t, "NUEVO", st.Code)
	}
}

func TestNextStatesUnknownOrder(t *testing.T) {
	t.Parallel()

	_, err := newTestEngine(testGraph(), newFakeOrderStore(), nil, nil).
		NextStates(context.Background(), 99, "admin")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestChangeStatusHappyPath(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "NUEVO"}

	result, err := newTestEngine(catalog, store, nil, nil).ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       1,
		NewStatusCode: "validacion_qf",
		ActorName:     "maria",
		ActorRole:     "vendedor",
		Note:          "lista para revision",
	})
	require.NoError(t, err)
	require.Equal(t, "NUEVO", result.OriginCode)
	require.Equal(t, "VALIDACION_QF", result.DestCode)
	require.False(t, result.Terminal)

	require.Equal(t, "VALIDACION_QF", store.orders[1].StatusCode)
	require.Len(t, store.transitions, 1)
	rec := store.transitions[0]
	require.Equal(t, "NUEVO", *rec.OriginCode)
	require.Equal(t, int64(1), *rec.OriginStatusID)
	require.Equal(t, int64(2), rec.DestStatusID)
	require.Equal(t, "lista para revision", rec.HistoryNote)
	require.Equal(t, models.AudienceInternalAll, rec.Audience)
	require.Equal(t, "maria", rec.ActorName)
}

func TestChangeStatusRejectsSkippedState(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "NUEVO"}

	_, err := newTestEngine(catalog, store, nil, nil).ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       1,
		NewStatusCode: "ENTREGADO",
		ActorName:     "maria",
	})
	require.ErrorIs(t, err, ErrTransitionNotAllowed)
	require.Empty(t, store.transitions)
	require.Equal(t, "NUEVO", store.orders[1].StatusCode)
}

func TestChangeStatusValidation(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "NUEVO"}
	eng := newTestEngine(catalog, store, nil, nil)
	ctx := context.Background()

	_, err := eng.ChangeStatus(ctx, ChangeStatusInput{OrderID: 1, NewStatusCode: ""})
	require.ErrorIs(t, err, ErrInvalidStatusCode)

	_, err = eng.ChangeStatus(ctx, ChangeStatusInput{OrderID: 99, NewStatusCode: "VALIDACION_QF"})
	require.ErrorIs(t, err, ErrOrderNotFound)

	_, err = eng.ChangeStatus(ctx, ChangeStatusInput{OrderID: 1, NewStatusCode: "INEXISTENTE"})
	require.ErrorIs(t, err, ErrUnknownDestinationStatus)

	_, err = eng.ChangeStatus(ctx, ChangeStatusInput{OrderID: 1, NewStatusCode: "NUEVO"})
	require.ErrorIs(t, err, ErrTransitionNotAllowed)
}

func TestChangeStatusPersistenceFailureRollsBack(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "NUEVO"}
	store.applyErr = errors.New("deadlock")

	_, err := newTestEngine(catalog, store, nil, nil).ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       1,
		NewStatusCode: "VALIDACION_QF",
		ActorName:     "maria",
	})
	require.ErrorIs(t, err, ErrPersistence)
	require.Equal(t, "NUEVO", store.orders[1].StatusCode)
}

func TestChangeStatusRejectionTail(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "VALIDACION_QF"}
	store.emails[1] = "cliente@example.com"
	notifier := &fakeNotifier{}

	result, err := newTestEngine(catalog, store, nil, notifier).ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       1,
		NewStatusCode: StatusRechazadoQF,
		ActorName:     "qf.perez",
		ActorRole:     "quimico",
		Note:          "receta vencida",
	})
	require.NoError(t, err)
	require.True(t, result.Terminal)
	require.True(t, result.Archived)

	require.Equal(t, []int64{1}, store.archived)
	require.True(t, store.orders[1].Archived)

	// rejection leaves a customer-visible note with the reason
	var customerNotes []*models.OrderNote
	for _, n := range store.notes {
		if n.Audience == models.AudienceCustomer {
			customerNotes = append(customerNotes, n)
		}
	}
	require.NotEmpty(t, customerNotes)
	require.Contains(t, customerNotes[len(customerNotes)-1].Text, "receta vencida")

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	require.Equal(t, "cliente@example.com", sent.Email)
	require.Equal(t, "P-1", sent.OrderNumber)
	require.NotEmpty(t, sent.MessageID)
	require.Contains(t, sent.Body, "receta vencida")
}

func TestChangeStatusTailFailuresDoNotFailTransition(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "VALIDACION_QF"}
	store.emails[1] = "cliente@example.com"
	store.archiveErr = errors.New("archive table locked")
	notifier := &fakeNotifier{err: errors.New("broker down")}

	result, err := newTestEngine(catalog, store, nil, notifier).ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       1,
		NewStatusCode: StatusRechazadoQF,
		ActorName:     "qf.perez",
		ActorRole:     "quimico",
	})
	require.NoError(t, err)
	require.True(t, result.Terminal)
	require.False(t, result.Archived)
	require.Equal(t, StatusRechazadoQF, store.orders[1].StatusCode)
}

func TestChangeStatusTerminalWithoutRejectionNote(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "PREPARACION"}
	store.emails[1] = "cliente@example.com"
	notifier := &fakeNotifier{}

	result, err := newTestEngine(catalog, store, nil, notifier).ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       1,
		NewStatusCode: "ENTREGADO",
		ActorName:     "maria",
	})
	require.NoError(t, err)
	require.True(t, result.Terminal)
	require.True(t, result.Archived)

	for _, n := range store.notes {
		require.NotContains(t, n.Text, "rechazado")
	}
	require.Len(t, notifier.sent, 1)
	require.Contains(t, notifier.sent[0].Body, "ENTREGADO")
}

func TestChangeStatusRoleAndTransitionNotes(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "NUEVO"}

	_, err := newTestEngine(catalog, store, nil, nil).ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       1,
		NewStatusCode: "VALIDACION_QF",
		ActorName:     "maria",
		ActorRole:     "vendedor",
		CustomerNote:  "su pedido esta en revision",
		RoleNote:      "revisar receta adjunta",
	})
	require.NoError(t, err)

	require.Len(t, store.notes, 3)
	byAudience := map[string]*models.OrderNote{}
	for _, n := range store.notes {
		byAudience[n.Audience] = n
	}
	require.Contains(t, byAudience, models.AudienceInternalAll)
	require.Contains(t, byAudience, models.AudienceCustomer)
	require.Contains(t, byAudience, models.AudienceNextRole)
	// role note defaults to the destination's responsible role
	require.Equal(t, "quimico", *byAudience[models.AudienceNextRole].TargetRole)
}

// A role whose destinations are all filtered out of the display must not slip
// past the gate through an empty offer set; the gate follows the configured
// edges regardless of role.
func TestChangeStatusRoleCannotBypassGate(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "VALIDACION_QF"}

	eng := newTestEngine(catalog, store, nil, nil)

	// vendedor matches neither PREPARACION (bodega) nor RECHAZADO_QF (quimico)
	_, err := eng.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       1,
		NewStatusCode: "ENTREGADO",
		ActorName:     "maria",
		ActorRole:     "vendedor",
	})
	require.ErrorIs(t, err, ErrTransitionNotAllowed)
	require.Empty(t, store.transitions)
	require.Empty(t, store.archived)
	require.Equal(t, "VALIDACION_QF", store.orders[1].StatusCode)

	// configured edges stay reachable for any role
	result, err := eng.ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       1,
		NewStatusCode: "PREPARACION",
		ActorName:     "maria",
		ActorRole:     "vendedor",
	})
	require.NoError(t, err)
	require.Equal(t, "PREPARACION", result.DestCode)
}

func TestChangeStatusAcceptsLongCodes(t *testing.T) {
	t.Parallel()

	longCode := "ESTADO_DE_CINCUENTA_CARACTERES_DE_LARGO_XX"
	require.Greater(t, len(longCode), 40)
	require.LessOrEqual(t, len(longCode), 64)

	catalog := testGraph()
	catalog.add(6, longCode, "bodega", false, 60)
	catalog.edges[1] = append(catalog.edges[1], 6)
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "NUEVO"}

	result, err := newTestEngine(catalog, store, nil, nil).ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       1,
		NewStatusCode: longCode,
		ActorName:     "maria",
	})
	require.NoError(t, err)
	require.Equal(t, longCode, result.DestCode)

	// one past the limit is still rejected
	_, err = newTestEngine(catalog, store, nil, nil).ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       1,
		NewStatusCode: strings.Repeat("X", 65),
		ActorName:     "maria",
	})
	require.ErrorIs(t, err, ErrInvalidStatusCode)
}

// Every transition records an internal timeline note, and a missing operator
// note defaults the history text to the generated description.
func TestChangeStatusAlwaysLeavesTransitionNote(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "NUEVO"}

	_, err := newTestEngine(catalog, store, nil, nil).ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       1,
		NewStatusCode: "VALIDACION_QF",
		ActorName:     "maria",
		ActorRole:     "vendedor",
	})
	require.NoError(t, err)

	require.Len(t, store.transitions, 1)
	require.Equal(t, "Estado cambiado de NUEVO a VALIDACION_QF", store.transitions[0].HistoryNote)

	require.Len(t, store.notes, 1)
	require.Equal(t, models.AudienceInternalAll, store.notes[0].Audience)
	require.Equal(t, "Estado cambiado de NUEVO a VALIDACION_QF", store.notes[0].Text)
	require.Equal(t, "maria", store.notes[0].AuthorName)

	// an operator note keeps its own history text, the internal note stays
	store.orders[2] = &models.Order{ID: 2, Number: "P-2", StatusCode: "NUEVO"}
	_, err = newTestEngine(catalog, store, nil, nil).ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       2,
		NewStatusCode: "VALIDACION_QF",
		ActorName:     "maria",
		Note:          "receta adjunta",
	})
	require.NoError(t, err)
	require.Equal(t, "receta adjunta", store.transitions[1].HistoryNote)
	require.Equal(t, "Estado cambiado de NUEVO a VALIDACION_QF", store.notes[1].Text)
}

func TestChangeStatusAllowedWhenGraphEmpty(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	catalog.edges = map[int64][]int64{} // no edges configured at all
	store := newFakeOrderStore()
	store.orders[1] = &models.Order{ID: 1, Number: "P-1", StatusCode: "NUEVO"}

	// with no configured next-set the gate is skipped and any known active
	// destination is accepted
	result, err := newTestEngine(catalog, store, nil, nil).ChangeStatus(context.Background(), ChangeStatusInput{
		OrderID:       1,
		NewStatusCode: "PREPARACION",
		ActorName:     "maria",
	})
	require.NoError(t, err)
	require.Equal(t, "PREPARACION", result.DestCode)
}

func TestInitialStatus(t *testing.T) {
	t.Parallel()

	catalog := testGraph()
	store := newFakeOrderStore()

	// unset parameter
	require.Equal(t, DefaultInitialStatus,
		newTestEngine(catalog, store, nil, nil).InitialStatus(context.Background()))

	// configured and valid
	eng := newTestEngine(catalog, store, fakeParams{models.ParamInitialStatus: "validacion_qf"}, nil)
	require.Equal(t, "VALIDACION_QF", eng.InitialStatus(context.Background()))

	// configured but unknown falls back
	eng = newTestEngine(catalog, store, fakeParams{models.ParamInitialStatus: "NO_EXISTE"}, nil)
	require.Equal(t, DefaultInitialStatus, eng.InitialStatus(context.Background()))
}
