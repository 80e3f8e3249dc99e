package orderflow

import (
	"context"
	"errors"

	"github.com/example/farmashop/pkg/models"
)

// StatusRechazadoQF is the pharmacist-rejection status. It is a dead end no
// matter what the transition table says, and triggers the archival and
// customer-notification tail.
const StatusRechazadoQF = "RECHAZADO_QF"

// DefaultInitialStatus is used when the pedido.estado_inicial parameter is
// unset.
const DefaultInitialStatus = "NUEVO"

var (
	ErrOrderNotFound            = errors.New("order not found")
	ErrStatusNotFound           = errors.New("status not found")
	ErrInvalidStatusCode        = errors.New("invalid status code")
	ErrUnknownDestinationStatus = errors.New("unknown destination status")
	ErrTransitionNotAllowed     = errors.New("transition not allowed")
	// ErrPersistence wraps storage failures inside the atomic part of a
	// transition; the whole transition has been rolled back when it surfaces.
	ErrPersistence = errors.New("persistence failure")
)

// StatusCatalog reads the status catalog and the configured transition graph.
// Implemented by repository.StatusRepository.
type StatusCatalog interface {
	// ByCode returns ErrStatusNotFound when no row matches.
	ByCode(ctx context.Context, code string) (*models.OrderStatus, error)
	ListActive(ctx context.Context) ([]models.OrderStatus, error)
	// NextActive returns the active destination statuses reachable from the
	// origin through active edges, ordered by display order then code.
	NextActive(ctx context.Context, originID int64) ([]models.OrderStatus, error)
}

// TransitionRecord is everything the store persists atomically for one
// transition: the status column update, the history row and the note rows.
type TransitionRecord struct {
	OrderID        int64
	OriginCode     *string
	OriginStatusID *int64
	DestCode       string
	DestStatusID   int64
	HistoryNote    string
	Audience       string
	TargetRole     *string
	ActorName      string
	ActorRole      string
	Notes          []models.OrderNote
}

// OrderStore is the persistence boundary of the state engine. ApplyTransition
// must be atomic; Archive and AddNote are invoked best-effort after terminal
// transitions and commit independently.
type OrderStore interface {
	ByID(ctx context.Context, id int64) (*models.Order, error)
	ApplyTransition(ctx context.Context, rec *TransitionRecord) error
	Archive(ctx context.Context, orderID int64) error
	AddNote(ctx context.Context, note *models.OrderNote) error
	// CustomerEmail returns "" when the order has no customer or the customer
	// has no address on file.
	CustomerEmail(ctx context.Context, orderID int64) (string, error)
}

// Params reads the flat settings table. ok is false when the key is unset.
type Params interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
}

// CustomerNotification is handed to the notifier when a terminal transition
// requires telling the customer.
type CustomerNotification struct {
	MessageID   string `json:"message_id"`
	Email       string `json:"email"`
	Subject     string `json:"subject"`
	OrderNumber string `json:"numero_pedido"`
	Body        string `json:"body"`
}

// Notifier delivers customer notifications. Failures are logged and swallowed
// by the engine, never surfaced to the caller.
type Notifier interface {
	NotifyCustomer(ctx context.Context, n CustomerNotification) error
}

// AuditSink receives transition events fire-and-forget.
type AuditSink interface {
	RecordTransition(ctx context.Context, orderID int64, originCode, destCode, actor string) error
}

// NextState is one legal destination offered to the operator.
type NextState struct {
	Code            string `json:"codigo"`
	Name            string `json:"nombre"`
	ResponsibleRole string `json:"rol_destino"`
}
