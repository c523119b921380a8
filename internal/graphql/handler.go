package graphql

import (
	"encoding/json"
	"net/http"

	"github.com/graphql-go/graphql"
	"github.com/worldclock/apiserver/internal/logger"
)

const maxRequestBytes = 1 << 20

// Request is a GraphQL-over-HTTP request body.
type Request struct {
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName string                 `json:"operationName"`
}

// Handler executes GraphQL requests. The principal, if any, must already be
// in the request context.
type Handler struct {
	schema graphql.Schema
	log    logger.Logger
}

// NewHandler builds the schema over svc and returns its HTTP handler.
func NewHandler(svc Services, log logger.Logger) (*Handler, error) {
	if log == nil {
		log = logger.Nop()
	}
	schema, err := NewSchema(svc, log)
	if err != nil {
		return nil, err
	}
	return &Handler{schema: schema, log: log}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "query is required"})
		return
	}

	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})
	if result.HasErrors() {
		h.log.Debug("graphql request returned errors", "operation", req.OperationName, "errors", len(result.Errors))
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
