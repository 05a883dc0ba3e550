package http

import "github.com/randomtoy/readingd/internal/domain"

// ReadingBody is the JSON body of POST /v1/readings.
type ReadingBody struct {
	Profile    domain.Profile `json:"profile"`
	Cards      []CardBody     `json:"cards"`
	Question   string         `json:"question"`
	SpreadType string         `json:"spreadType"`
}

type CardBody struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Element string `json:"element"`
}

// MessageBody is the JSON body of POST /v1/readings/:threadId/messages.
type MessageBody struct {
	Message string `json:"message"`
}

// ReadingResponse wraps a ReadingResult with request metadata.
type ReadingResponse struct {
	domain.ReadingResult
	Meta MetaResp `json:"meta"`
}

// TarotResponse is the JSON shape returned by GET /v1/tarot.
type TarotResponse struct {
	Spread  string          `json:"spread"`
	Deck    string          `json:"deck"`
	Cards   []CardResponse  `json:"cards"`
	Reading ReadingResponse `json:"result"`
}

type CardResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Element     string             `json:"element"`
	Position    int                `json:"position"`
	Orientation domain.Orientation `json:"orientation"`
	Keywords    []string           `json:"keywords"`
	Short       string             `json:"short"`
}

type MetaResp struct {
	RequestID string `json:"request_id"`
	LatencyMS int64  `json:"latency_ms"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
