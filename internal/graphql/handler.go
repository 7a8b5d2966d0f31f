package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"lif/internal/lif/fragment"
	"lif/internal/lif/identity"
	"lif/internal/lif/query"
	"lif/pkg/apperrors"
)

// QueryRunner is the slice of the query service the GraphQL surface needs.
type QueryRunner interface {
	Query(ctx context.Context, req query.Request) (query.Result, error)
}

// Handler serves GraphQL person queries against the generated schema.
type Handler struct {
	schema *ast.Schema
	sdl    string
	runner QueryRunner
	logger *slog.Logger
}

// NewHandler generates the SDL from the queryable path set and loads it.
func NewHandler(paths []fragment.Path, rootTypeName string, runner QueryRunner, logger *slog.Logger) (*Handler, error) {
	sdl := GenerateSDL(paths, rootTypeName)
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "lif.graphql", Input: sdl})
	if err != nil {
		return nil, fmt.Errorf("load generated schema: %w", err)
	}
	return &Handler{schema: schema, sdl: sdl, runner: runner, logger: logger}, nil
}

// SDL returns the generated schema document, served raw for tooling.
func (h *Handler) SDL() string {
	return h.sdl
}

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

type response struct {
	Data       any            `json:"data,omitempty"`
	Errors     gqlerror.List  `json:"errors,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.write(w, http.StatusBadRequest, response{Errors: gqlerror.List{gqlerror.Errorf("malformed request body: %v", err)}})
		return
	}

	doc, errList := gqlparser.LoadQuery(h.schema, req.Query)
	if len(errList) > 0 {
		h.write(w, http.StatusOK, response{Errors: errList})
		return
	}

	op := doc.Operations.ForName(req.OperationName)
	if op == nil {
		h.write(w, http.StatusOK, response{Errors: gqlerror.List{gqlerror.Errorf("operation %q not found", req.OperationName)}})
		return
	}
	if op.Operation != ast.Query {
		h.write(w, http.StatusOK, response{Errors: gqlerror.List{gqlerror.Errorf("only query operations are supported")}})
		return
	}

	field := personField(op.SelectionSet)
	if field == nil {
		h.write(w, http.StatusOK, response{Errors: gqlerror.List{gqlerror.Errorf("query must select the %s field", fragment.Root)}})
		return
	}

	queryReq, err := h.buildRequest(field, req.Variables)
	if err != nil {
		h.write(w, http.StatusOK, response{Errors: gqlerror.List{gqlerror.Errorf("%v", err)}})
		return
	}

	result, err := h.runner.Query(r.Context(), queryReq)
	if err != nil {
		h.write(w, http.StatusOK, response{Errors: gqlerror.List{queryError(err, result.CorrelationID)}})
		return
	}

	var person any
	if len(result.Record.Person) > 0 {
		person = result.Record.Person[0]
	}

	resp := response{Data: map[string]any{fragment.Root: person}}
	extensions := map[string]any{"correlationId": result.CorrelationID}
	if len(result.Warnings) > 0 {
		extensions["warnings"] = result.Warnings
	}
	resp.Extensions = extensions
	h.write(w, http.StatusOK, resp)
}

// buildRequest extracts the person arguments and flattens the selection set
// into requested fragment paths.
func (h *Handler) buildRequest(field *ast.Field, variables map[string]any) (query.Request, error) {
	args := make(map[string]string, len(field.Arguments))
	for _, arg := range field.Arguments {
		value, err := arg.Value.Value(variables)
		if err != nil {
			return query.Request{}, fmt.Errorf("argument %s: %w", arg.Name, err)
		}
		if s, ok := value.(string); ok {
			args[arg.Name] = s
		}
	}

	person, err := identity.NewPersonIdentifier(args["identifier"], args["identifierType"])
	if err != nil {
		return query.Request{}, err
	}

	paths := flatten(field.SelectionSet, fragment.Root)
	if len(paths) == 0 {
		return query.Request{}, fmt.Errorf("selection set is empty")
	}

	return query.Request{
		OrganizationID: args["organizationId"],
		Person:         person,
		Paths:          paths,
	}, nil
}

func personField(selections ast.SelectionSet) *ast.Field {
	for _, selection := range selections {
		if field, ok := selection.(*ast.Field); ok && field.Name == fragment.Root {
			return field
		}
	}
	return nil
}

// flatten renders the selection set as dotted fragment paths. Introspection
// fields are skipped; a branch selected without children contributes the
// branch path itself.
func flatten(selections ast.SelectionSet, prefix string) []string {
	var out []string
	for _, selection := range selections {
		field, ok := selection.(*ast.Field)
		if !ok || strings.HasPrefix(field.Name, "__") {
			continue
		}
		path := prefix + "." + field.Name
		if len(field.SelectionSet) == 0 {
			out = append(out, path)
			continue
		}
		nested := flatten(field.SelectionSet, path)
		if len(nested) == 0 {
			out = append(out, path)
			continue
		}
		out = append(out, nested...)
	}
	return out
}

// queryError renders a query-service failure in the gqlerror envelope with
// the error code and correlation ID in extensions.
func queryError(err error, correlationID string) *gqlerror.Error {
	return &gqlerror.Error{
		Message: err.Error(),
		Extensions: map[string]any{
			"code":          string(apperrors.CodeOf(err)),
			"correlationId": correlationID,
		},
	}
}

func (h *Handler) write(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("encode graphql response", "error", err)
	}
}
