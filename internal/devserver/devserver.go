// Package devserver exposes the resolved schema and the query pipeline
// over HTTP for local tooling: `GET /schema` dumps the resolved tables,
// `POST /query/check` runs a query string through parse → alias → type-check
// → fold and reports the diagnostics. It never executes a query
// against a real database — that is explicitly out of scope; this is
// introspection only. Grounded on the teacher runtime's chi + slog server
// wiring, trimmed to the parts that make sense for a stateless
// introspection tool with no accounts.
package devserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/windrift-orm/windrift/internal/alias"
	"github.com/windrift-orm/windrift/internal/ast"
	"github.com/windrift-orm/windrift/internal/check"
	"github.com/windrift-orm/windrift/internal/dbtype"
	"github.com/windrift-orm/windrift/internal/dialectcfg"
	"github.com/windrift-orm/windrift/internal/diag"
	"github.com/windrift-orm/windrift/internal/fold"
	"github.com/windrift-orm/windrift/internal/parser"
	"github.com/windrift-orm/windrift/internal/rtype"
)

// Server serves schema introspection and query-check endpoints.
type Server struct {
	schema   map[string]*dbtype.TableDefinition
	registry *rtype.Registry
	dialect  *dialectcfg.Config
	logger   *slog.Logger
	router   *chi.Mux
}

// New creates a Server over a resolved schema and the type-resolver
// registry the schema resolver populated. dialect parameterizes folding
// (e.g. spec §9(a)'s integer-division knob); a nil dialect falls back to
// dialectcfg.Default().
func New(schema map[string]*dbtype.TableDefinition, registry *rtype.Registry, dialect *dialectcfg.Config, logger *slog.Logger) *Server {
	if dialect == nil {
		dialect = dialectcfg.Default()
	}
	s := &Server{schema: schema, registry: registry, dialect: dialect, logger: logger}
	s.setupRoutes()
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.correlationID)
	r.Use(s.requestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/schema", s.handleSchema)
	r.Post("/query/check", s.handleQueryCheck)

	s.router = r
}

type correlationIDKey struct{}

// correlationID stamps every request with a uuid so log lines for one
// request can be grepped together, ahead of the request-logging
// middleware itself.
func (s *Server) correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), correlationIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(correlationIDKey{}).(string); ok {
		return id
	}
	return ""
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"request_id", requestID(r),
			"method", r.Method,
			"path", r.URL.Path,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.schema)
}

type queryCheckRequest struct {
	Query string `json:"query"`
}

type queryCheckResponse struct {
	Valid       bool              `json:"valid"`
	Formatted   string            `json:"formatted,omitempty"`
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
}

func (s *Server) handleQueryCheck(w http.ResponseWriter, r *http.Request) {
	var req queryCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	q, d := parser.ParseQuery(req.Query)

	if q != nil && !d.HasErrors() {
		alias.ResolveQuery(q, schemaLookup{s.schema}, d)
		typer := newSchemaColumnTyper(q, s.schema)
		chk := check.New(s.registry, typer, d)
		chk.CheckQuery(q)
		foldQuery(q, s.dialect, d)
	}

	resp := queryCheckResponse{Valid: !d.HasErrors(), Diagnostics: d.All()}
	if q != nil {
		resp.Formatted = q.Format()
	}
	respondJSON(w, http.StatusOK, resp)
}

func foldQuery(q ast.Query, cfg *dialectcfg.Config, d *diag.Diagnostics) {
	switch query := q.(type) {
	case *ast.SelectQuery:
		for i, item := range query.Select.Items {
			query.Select.Items[i].Expr = fold.Fold(item.Expr, cfg, d)
		}
		query.Where = fold.Fold(query.Where, cfg, d)
	case *ast.DeleteQuery:
		query.Where = fold.Fold(query.Where, cfg, d)
	case *ast.UpdateQuery:
		query.Where = fold.Fold(query.Where, cfg, d)
	case *ast.InsertQuery:
		for i, v := range query.Values {
			query.Values[i] = fold.Fold(v, cfg, d)
		}
	}
}

// schemaLookup implements alias.SchemaLookup over the resolved schema,
// letting alias rewriting qualify an unqualified column by field
// ownership instead of rejecting it as ambiguous whenever a JOIN brings
// more than one table into scope.
type schemaLookup struct {
	schema map[string]*dbtype.TableDefinition
}

func (l schemaLookup) HasColumn(table, column string) bool {
	t, ok := l.schema[table]
	if !ok {
		return false
	}
	_, ok = t.Column(column)
	return ok
}

// schemaColumnTyper implements check.ColumnTyper over a resolved schema,
// mapping the table aliases a submitted query declares back to their
// table names.
type schemaColumnTyper struct {
	aliasToTable map[string]string
	schema       map[string]*dbtype.TableDefinition
}

func newSchemaColumnTyper(q ast.Query, schema map[string]*dbtype.TableDefinition) *schemaColumnTyper {
	return &schemaColumnTyper{aliasToTable: aliasTableMap(q), schema: schema}
}

func (t *schemaColumnTyper) ColumnType(alias, column string) (string, bool, bool) {
	tableName, ok := t.aliasToTable[alias]
	if !ok {
		return "", false, false
	}
	table, ok := t.schema[tableName]
	if !ok {
		return "", false, false
	}
	col, ok := table.Column(column)
	if !ok {
		return "", false, false
	}
	name := resolverNameForColumn(col.Type)
	if name == "" {
		return "", false, false
	}
	return name, col.Nullable, true
}

// resolverNameForColumn maps a column's stored database type to the
// rtype resolver that type-checks expressions over it. Date/time/byte
// columns have no resolver registered since the grammar has no date or
// byte-string literal syntax to compare them against; an expression
// touching one of those columns reports unknown-field rather than
// silently widening to a type the grammar cannot express.
func resolverNameForColumn(t dbtype.DatabaseType) string {
	switch t {
	case dbtype.TypeBool:
		return "boolean"
	case dbtype.TypeSmallInt, dbtype.TypeInt, dbtype.TypeBigInt, dbtype.TypeFloat, dbtype.TypeDouble:
		return "numeric"
	case dbtype.TypeVarChar, dbtype.TypeText, dbtype.TypeUUID:
		return "string"
	default:
		return ""
	}
}

func aliasTableMap(q ast.Query) map[string]string {
	m := map[string]string{}
	add := func(t *ast.TableReference) {
		if t == nil {
			return
		}
		key := t.Alias
		if key == "" {
			key = t.Name
		}
		m[key] = t.Name
	}
	addFrom := func(f *ast.FromClause) {
		if f == nil {
			return
		}
		add(f.Primary)
		for _, j := range f.Joins {
			add(j.Table)
		}
	}

	switch query := q.(type) {
	case *ast.SelectQuery:
		addFrom(query.From)
	case *ast.DeleteQuery:
		add(query.From)
	case *ast.UpdateQuery:
		add(query.Table)
		addFrom(query.From)
	}
	return m
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
