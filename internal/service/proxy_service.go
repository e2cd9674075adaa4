package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"dealership/internal/logger"
	"dealership/internal/model"
	"dealership/internal/repository"
	"dealership/internal/upstream"
	ws "dealership/internal/websocket"
)

// --- DTOs ---

type MutateRequest struct {
	Resource string
	Method   string // POST, PUT or DELETE
	ID       string
	Body     json.RawMessage
}

var methodActions = map[string]string{
	http.MethodPost:   model.ActionCreate,
	http.MethodPut:    model.ActionUpdate,
	http.MethodDelete: model.ActionDelete,
}

// --- Interface ---

// ProxyService forwards CRUD on whitelisted resources. Reads pass through untouched;
// writes are audited and broadcast.
type ProxyService interface {
	List(ctx context.Context, sess upstream.Session, resource string) (json.RawMessage, error)
	Get(ctx context.Context, sess upstream.Session, resource, id string) (json.RawMessage, error)
	Mutate(ctx context.Context, sess upstream.Session, actor Actor, req MutateRequest) (json.RawMessage, error)
	Upload(ctx context.Context, sess upstream.Session, actor Actor, resource, id, filename string, content io.Reader) (json.RawMessage, error)
	UpdateExpense(ctx context.Context, sess upstream.Session, actor Actor, period string, id int64, rollup model.ExpenseRollup) (model.ExpenseRollup, error)
}

type proxyService struct {
	api    *upstream.Client
	audits repository.AuditRepository
	tm     repository.TransactionManager
	hub    *ws.Hub
}

func NewProxyService(api *upstream.Client, audits repository.AuditRepository, tm repository.TransactionManager, hub *ws.Hub) ProxyService {
	return &proxyService{api: api, audits: audits, tm: tm, hub: hub}
}

// --- Implementation ---

func (s *proxyService) List(ctx context.Context, sess upstream.Session, resource string) (json.RawMessage, error) {
	path, err := upstream.CollectionPath(resource)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := s.api.With(sess).Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *proxyService) Get(ctx context.Context, sess upstream.Session, resource, id string) (json.RawMessage, error) {
	path, err := upstream.ItemPath(resource, id)
	if err != nil {
		return nil, err
	}
	var raw json.RawMessage
	if err := s.api.With(sess).Do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *proxyService) Mutate(ctx context.Context, sess upstream.Session, actor Actor, req MutateRequest) (json.RawMessage, error) {
	action, ok := methodActions[req.Method]
	if !ok {
		return nil, fmt.Errorf("%w: method %s", ErrInvalidInput, req.Method)
	}

	var (
		path string
		err  error
	)
	if req.Method == http.MethodPost {
		path, err = upstream.CollectionPath(req.Resource)
	} else {
		path, err = upstream.ItemPath(req.Resource, req.ID)
	}
	if err != nil {
		return nil, err
	}

	var body any
	if req.Method != http.MethodDelete {
		if len(req.Body) == 0 || !json.Valid(req.Body) {
			return nil, fmt.Errorf("%w: body must be JSON", ErrInvalidInput)
		}
		body = req.Body
	}

	var raw json.RawMessage
	if err := s.api.With(sess).Do(ctx, req.Method, path, body, &raw); err != nil {
		return nil, err
	}

	entityID := req.ID
	if entityID == "" {
		entityID = entityIDFrom(raw)
	}
	s.record(ctx, actor, action, req.Resource, entityID, sanitizeDetails(req.Body))
	return raw, nil
}

func (s *proxyService) Upload(ctx context.Context, sess upstream.Session, actor Actor, resource, id, filename string, content io.Reader) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := s.api.With(sess).UploadImage(ctx, resource, id, filename, content, &raw); err != nil {
		return nil, err
	}
	details, _ := json.Marshal(map[string]string{"filename": filename})
	s.record(ctx, actor, model.ActionUploadImage, resource, id, string(details))
	return raw, nil
}

func (s *proxyService) UpdateExpense(ctx context.Context, sess upstream.Session, actor Actor, period string, id int64, rollup model.ExpenseRollup) (model.ExpenseRollup, error) {
	if !model.ValidPeriod(period) {
		return model.ExpenseRollup{}, fmt.Errorf("%w: period must be monthly or yearly", ErrInvalidInput)
	}
	if rollup.Purchases.IsNegative() || rollup.Transport.IsNegative() || rollup.Other.IsNegative() {
		return model.ExpenseRollup{}, fmt.Errorf("%w: expense components cannot be negative", ErrInvalidInput)
	}
	rollup.ID = id
	rollup.TotalAmount = rollup.ComputedTotal()

	updated, err := s.api.With(sess).UpdateExpense(ctx, period, id, rollup)
	if err != nil {
		return model.ExpenseRollup{}, err
	}

	details, _ := json.Marshal(map[string]any{"period": period, "total_amount": rollup.TotalAmount})
	s.record(ctx, actor, model.ActionUpdateRollup, SectionExpenses, strconv.FormatInt(id, 10), string(details))
	return updated, nil
}

// record writes the audit row and notifies dashboards. The upstream write already succeeded,
// so failures here are logged and swallowed.
func (s *proxyService) record(ctx context.Context, actor Actor, action, resource, entityID, details string) {
	err := s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		return s.audits.Log(txCtx, &model.AuditLog{
			Actor:      actor.ID,
			Role:       actor.Role,
			Action:     action,
			Resource:   resource,
			EntityID:   entityID,
			Details:    details,
			StatusCode: http.StatusOK,
		})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.Error().Err(err).Str("resource", resource).Str("action", action).Msg("failed to write audit log")
	}

	s.hub.Publish(ws.Event{
		Resource: resource,
		Action:   action,
		EntityID: entityID,
		Actor:    actor.ID,
	})
}
