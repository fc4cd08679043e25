// Package web provides the HTTP API: system introspection, trigger dispatch, inbound
// webhooks, execution logs and queue statistics.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/dukex/autoflow/pkg/conditions"
	"github.com/dukex/autoflow/pkg/models"
	"github.com/dukex/autoflow/pkg/persistence"
	"github.com/dukex/autoflow/pkg/registry"
	"github.com/dukex/autoflow/pkg/triggers"
	"github.com/dukex/autoflow/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// TotalCountHeader carries the total number of log entries matching a query.
const TotalCountHeader = "X-Total-Count"

var webhookTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{32,64}$`)

type Engine interface {
	Dispatch(ctx context.Context, slug string, payload map[string]any) (workflow.DispatchResult, error)
	ExecuteWorkflow(ctx context.Context, id string, payload map[string]any) (*models.ExecutionReport, error)
}

type WorkflowStore interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	FindByWebhookToken(ctx context.Context, token string) (*models.Workflow, error)
}

type TriggerCatalog interface {
	All() []triggers.Descriptor
	Has(slug string) bool
	ValidatePayload(slug string, payload map[string]any) error
}

type ActionCatalog interface {
	Descriptors() []registry.Descriptor
}

type ConditionCatalog interface {
	Descriptors() []conditions.Descriptor
}

type ExecutionLogs interface {
	Query(ctx context.Context, filter persistence.LogFilter) (persistence.LogPage, error)
	Purge(ctx context.Context, days int) (int64, error)
}

type QueueStats interface {
	Stats(ctx context.Context) (map[models.JobStatus]int64, error)
}

// Dependencies are the collaborators the handlers read from.
type Dependencies struct {
	Version    string
	Engine     Engine
	Workflows  WorkflowStore
	Triggers   TriggerCatalog
	Actions    ActionCatalog
	Conditions ConditionCatalog
	Logs       ExecutionLogs
	Queue      QueueStats
	Health     func(ctx context.Context) error
}

type APIHandlers struct {
	deps      Dependencies
	validator *validator.Validate
	logger    *slog.Logger
}

func NewAPIHandlers(deps Dependencies, validator *validator.Validate, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		deps:      deps,
		validator: validator,
		logger:    logger.With("module", "web"),
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK
	checks := fiber.Map{"persistence": "ok"}

	if h.deps.Health != nil {
		if err := h.deps.Health(c.Context()); err != nil {
			status = "unhealthy"
			httpStatus = http.StatusInternalServerError
			checks["persistence"] = err.Error()
		}
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"checkers":  checks,
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetSystemInfo(c fiber.Ctx) error {
	return c.JSON(SystemInfoResponse{
		Version:    h.deps.Version,
		Triggers:   h.deps.Triggers.All(),
		Conditions: h.deps.Conditions.Descriptors(),
		Actions:    h.deps.Actions.Descriptors(),
	})
}

func (h *APIHandlers) GetTriggers(c fiber.Ctx) error {
	return c.JSON(h.deps.Triggers.All())
}

func (h *APIHandlers) GetConditions(c fiber.Ctx) error {
	return c.JSON(h.deps.Conditions.Descriptors())
}

func (h *APIHandlers) GetActions(c fiber.Ctx) error {
	return c.JSON(h.deps.Actions.Descriptors())
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.deps.Workflows.GetAll(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	summaries := make([]WorkflowSummary, 0, len(workflows))
	for _, wf := range workflows {
		summaries = append(summaries, summarizeWorkflow(wf))
	}

	return c.JSON(summaries)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	wf, err := h.deps.Workflows.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(wf)
}

// DispatchTrigger runs the trigger against every enabled workflow bound to it. The
// payload must satisfy the trigger's payload schema.
func (h *APIHandlers) DispatchTrigger(c fiber.Ctx) error {
	slug := c.Params("slug")
	if !h.deps.Triggers.Has(slug) {
		return notFound(c, "trigger_not_found", "unknown trigger: "+slug)
	}

	payload, err := bindPayload(c)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.deps.Triggers.ValidatePayload(slug, payload); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.deps.Engine.Dispatch(c.Context(), slug, payload)
	if err != nil {
		h.logger.ErrorContext(c.Context(), "Trigger dispatch failed", "trigger", slug, "error", err)

		return internalError(c, err)
	}

	status := fiber.StatusOK
	if len(result.Enqueued) > 0 {
		status = fiber.StatusAccepted
	}

	return c.Status(status).JSON(result)
}

// ExecuteWorkflow runs one workflow synchronously, whatever the execution mode.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.deps.Workflows.GetByID(c.Context(), id); err != nil {
		return handleError(c, err)
	}

	payload, err := bindPayload(c)
	if err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	report, err := h.deps.Engine.ExecuteWorkflow(c.Context(), id, payload)
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(report)
}

// bindPayload reads an optional TriggerRequest body. A missing body or payload is an
// empty payload.
func bindPayload(c fiber.Ctx) (map[string]any, error) {
	var req TriggerRequest

	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return nil, err
		}
	}

	if req.Payload == nil {
		req.Payload = map[string]any{}
	}

	return req.Payload, nil
}

// ReceiveWebhook accepts an inbound webhook for the enabled workflow owning token and
// dispatches inbound_webhook with the token and the raw JSON body.
func (h *APIHandlers) ReceiveWebhook(c fiber.Ctx) error {
	token := c.Params("token")
	if !webhookTokenPattern.MatchString(token) {
		return notFound(c, "not_found", "no route matches the request")
	}

	wf, err := h.deps.Workflows.FindByWebhookToken(c.Context(), token)
	if err != nil && !persistence.IsWorkflowNotFound(err) {
		return internalError(c, err)
	}

	if wf == nil || !wf.Enabled {
		return forbidden(c, "Invalid webhook token.")
	}

	var body any
	if raw := c.Body(); len(raw) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	payload := map[string]any{
		"webhook_token": token,
		"payload":       body,
	}

	if _, err := h.deps.Engine.Dispatch(c.Context(), triggers.InboundWebhook, payload); err != nil {
		h.logger.ErrorContext(c.Context(), "Inbound webhook dispatch failed", "workflow_id", wf.ID, "error", err)

		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(WebhookResponse{Received: true})
}

func (h *APIHandlers) GetLogs(c fiber.Ctx) error {
	var req ListLogsRequest
	if err := c.Bind().Query(&req); err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	page, err := h.deps.Logs.Query(c.Context(), persistence.LogFilter{
		WorkflowID: req.WorkflowID,
		Level:      models.LogLevel(req.Level),
		Page:       req.Page,
		PerPage:    req.PerPage,
	})
	if err != nil {
		return internalError(c, err)
	}

	items := page.Items
	if items == nil {
		items = []*models.LogEntry{}
	}

	c.Set(TotalCountHeader, strconv.FormatInt(page.Total, 10))

	return c.JSON(items)
}

// PurgeLogs deletes every stored execution log entry.
func (h *APIHandlers) PurgeLogs(c fiber.Ctx) error {
	deleted, err := h.deps.Logs.Purge(c.Context(), 0)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(PurgeResponse{Deleted: deleted})
}

func (h *APIHandlers) GetQueueStats(c fiber.Ctx) error {
	stats, err := h.deps.Queue.Stats(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(stats)
}

// Register mounts every handler on router.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	system := router.Group("/system")
	system.Get("/info", h.GetSystemInfo)
	system.Get("/triggers", h.GetTriggers)
	system.Get("/conditions", h.GetConditions)
	system.Get("/actions", h.GetActions)

	w := router.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Get("/:id", h.GetWorkflow)
	w.Post("/:id/execute", h.ExecuteWorkflow)

	router.Post("/triggers/:slug", h.DispatchTrigger)
	router.Post("/webhook/:token", h.ReceiveWebhook)

	router.Get("/logs", h.GetLogs)
	router.Delete("/logs/purge", h.PurgeLogs)

	router.Get("/queue/stats", h.GetQueueStats)
}
