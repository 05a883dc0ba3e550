package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/randomtoy/readingd/internal/app"
	"github.com/randomtoy/readingd/internal/domain"
)

const (
	maxQuestionLen = 500
	maxMessageLen  = 2000

	// statusClientClosed is the de facto status for a client that went away.
	statusClientClosed = 499
)

type Handler struct {
	svc     *app.ReadingService
	metrics http.Handler
	logger  *slog.Logger
}

// NewHandler serves svc. metrics may be nil, in which case /metrics is not
// registered.
func NewHandler(svc *app.ReadingService, metrics http.Handler, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, metrics: metrics, logger: logger}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	if h.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.metrics))
	}
	e.POST("/v1/readings", h.CreateReading)
	e.POST("/v1/readings/:threadId/messages", h.ContinueReading)
	e.GET("/v1/tarot", h.ReadTarot)
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) CreateReading(c echo.Context) error {
	var body ReadingBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
	}
	if len(body.Question) > maxQuestionLen {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("question must be at most %d characters", maxQuestionLen)})
	}
	if len(body.Cards) > domain.MaxDrawn {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("at most %d cards are allowed", domain.MaxDrawn)})
	}

	cards := make([]domain.Card, len(body.Cards))
	for i, cb := range body.Cards {
		cards[i] = domain.Card{ID: cb.ID, Name: cb.Name, Element: cb.Element}
	}
	start := time.Now()
	req, err := domain.BuildReadingRequest(body.Profile, cards, body.Question, domain.SpreadType(body.SpreadType))
	if err != nil {
		return h.writeResult(c, domain.NewErrorResult(err, nil, nil), start)
	}

	res := h.svc.GenerateReading(c.Request().Context(), req, h.progress(c))
	return h.writeResult(c, res, start)
}

func (h *Handler) ContinueReading(c echo.Context) error {
	var body MessageBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body"})
	}
	if len(body.Message) > maxMessageLen {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("message must be at most %d characters", maxMessageLen)})
	}

	conv := domain.ConversationHandle{ThreadID: c.Param("threadId")}
	start := time.Now()
	res := h.svc.ContinueReading(c.Request().Context(), conv, body.Message, h.progress(c))
	return h.writeResult(c, res, start)
}

func (h *Handler) ReadTarot(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "q is required"})
	}
	if len(q) > maxQuestionLen {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("q must be at most %d characters", maxQuestionLen)})
	}

	n := 3
	if raw := c.QueryParam("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > domain.MaxDrawn {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("n must be an integer between 1 and %d", domain.MaxDrawn)})
		}
		n = parsed
	}

	req := app.DrawRequest{
		Profile: domain.Profile{
			Name:      c.QueryParam("name"),
			BirthDate: c.QueryParam("birthDate"),
			BirthTime: c.QueryParam("birthTime"),
		},
		Question:   q,
		NumCards:   n,
		DeckID:     c.QueryParam("deck"),
		SpreadType: c.QueryParam("spread"),
	}

	drawn, err := h.svc.DrawAndRead(c.Request().Context(), req, h.progress(c))
	if err != nil {
		return mapError(c, err)
	}

	resp := toTarotResponse(drawn, requestID(c))
	return c.JSON(statusFor(drawn.Result), resp)
}

func (h *Handler) writeResult(c echo.Context, res domain.ReadingResult, start time.Time) error {
	return c.JSON(statusFor(res), ReadingResponse{
		ReadingResult: res,
		Meta:          MetaResp{RequestID: requestID(c), LatencyMS: time.Since(start).Milliseconds()},
	})
}

// progress logs each status read of a pending run against the request id.
func (h *Handler) progress(c echo.Context) app.PollOption {
	id := requestID(c)
	ctx := c.Request().Context()
	return app.WithProgress(func(attempt int, status domain.JobStatus) {
		h.logger.DebugContext(ctx, "reading progress", "request_id", id, "attempt", attempt, "status", status.String())
	})
}

func toTarotResponse(r app.DrawnReading, requestID string) TarotResponse {
	cards := make([]CardResponse, len(r.Cards))
	for i, dc := range r.Cards {
		cards[i] = CardResponse{
			ID:          dc.ID,
			Name:        dc.Name,
			Element:     dc.Element,
			Position:    dc.Position,
			Orientation: dc.Orientation,
			Keywords:    dc.Keywords,
			Short:       dc.Short,
		}
	}
	return TarotResponse{
		Spread: string(r.SpreadType),
		Deck:   r.DeckID,
		Cards:  cards,
		Reading: ReadingResponse{
			ReadingResult: r.Result,
			Meta:          MetaResp{RequestID: requestID, LatencyMS: r.LatencyMS},
		},
	}
}

// statusFor maps a result's error code to the HTTP status it is served with.
func statusFor(res domain.ReadingResult) int {
	if res.Success {
		return http.StatusOK
	}
	switch res.Code {
	case domain.CodeInvalidInput:
		return http.StatusBadRequest
	case domain.CodeUnknownConversation:
		return http.StatusNotFound
	case domain.CodeBackendRejected, domain.CodeRunFailed, domain.CodeRequiresAction:
		return http.StatusBadGateway
	case domain.CodeBackendUnavailable:
		return http.StatusServiceUnavailable
	case domain.CodePollTimeout:
		return http.StatusGatewayTimeout
	case domain.CodeCancelled:
		return statusClientClosed
	default:
		return http.StatusInternalServerError
	}
}

// mapError handles errors raised before a reading is submitted.
func mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrDeckNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidN), errors.Is(err, domain.ErrNExceedsDeck), errors.Is(err, domain.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		slog.Error("internal error", "request_id", requestID(c), "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func requestID(c echo.Context) string {
	id, _ := c.Get(ctxKeyRequestID).(string)
	return id
}
