// File: internal/docs/graph.go
package docs

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/procdoc-lab/cua-cli/api/schemas"
	"github.com/procdoc-lab/cua-cli/internal/config"
)

// cypherRunner abstracts query execution against the graph database so the
// source logic can be exercised against a fake in tests.
type cypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
	Close(ctx context.Context) error
}

// boltRunner is the production cypherRunner backed by the bolt driver.
type boltRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

func (r *boltRunner) Run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	res, err := neo4j.ExecuteQuery(ctx, r.driver, cypher, params,
		neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(r.database))
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(res.Records))
	for _, rec := range res.Records {
		rows = append(rows, rec.AsMap())
	}
	return rows, nil
}

func (r *boltRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// GraphSource retrieves process documentation from a bolt-addressed process
// graph of Step nodes linked by NEXT relations. The connection is opened once
// per run and, apart from the one-time import, used read-only. It also keeps
// the cursor backing the model's step-navigation tool.
type GraphSource struct {
	runner       cypherRunner
	uri          string
	scope        string
	queryTimeout time.Duration
	logger       *zap.Logger

	// cursor is the step ID the navigation tool currently points at.
	// The loop is strictly sequential, so no locking is needed.
	cursor int
}

// Navigation fallback texts returned when the cursor walks off the chain.
const (
	noPrevStepText = "There is no previous step. Go back to the last known step."
	noNextStepText = "There is no next step. Go back to the last known step."
	noCurrStepText = "The current step does not exist. Go back to the last known step."
)

// NewGraphSource connects to the process graph and verifies connectivity.
// Any failure is a GraphUnavailableError: graph mode never falls back to an
// undocumented run.
func NewGraphSource(ctx context.Context, cfg config.GraphConfig, password string, logger *zap.Logger) (*GraphSource, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, password, ""))
	if err != nil {
		return nil, &GraphUnavailableError{URI: cfg.URI, Err: err}
	}

	verifyCtx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, &GraphUnavailableError{URI: cfg.URI, Err: err}
	}

	logger.Info("Connected to process graph", zap.String("uri", cfg.URI), zap.String("scope", cfg.Scope))
	return &GraphSource{
		runner:       &boltRunner{driver: driver, database: cfg.Database},
		uri:          cfg.URI,
		scope:        cfg.Scope,
		queryTimeout: cfg.QueryTimeout,
		logger:       logger.Named("graph_source"),
		cursor:       1,
	}, nil
}

func (g *GraphSource) Mode() Mode { return ModeGraph }

// Close releases the driver connection.
func (g *GraphSource) Close(ctx context.Context) error {
	return g.runner.Close(ctx)
}

// run executes one query under the configured timeout, mapping every failure
// to GraphUnavailableError.
func (g *GraphSource) run(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	queryCtx, cancel := context.WithTimeout(ctx, g.queryTimeout)
	defer cancel()

	rows, err := g.runner.Run(queryCtx, cypher, params)
	if err != nil {
		return nil, &GraphUnavailableError{URI: g.uri, Err: err}
	}
	return rows, nil
}

// ImportSteps seeds the graph from the YAML step file: Step nodes merged by
// id, NEXT relations between consecutive steps, and a uniqueness constraint
// on the id property. This is the only write the system ever performs.
func (g *GraphSource) ImportSteps(ctx context.Context, path string) error {
	seeds, err := loadStepSeeds(path)
	if err != nil {
		return err
	}

	for _, s := range seeds {
		if _, err := g.run(ctx,
			"MERGE (s:Step {id: $id}) SET s.description = $description",
			map[string]any{"id": s.ID, "description": s.Description}); err != nil {
			return err
		}
	}
	for _, s := range seeds {
		if s.Next == nil {
			continue
		}
		if _, err := g.run(ctx,
			"MATCH (a:Step {id: $from}), (b:Step {id: $to}) MERGE (a)-[:NEXT]->(b)",
			map[string]any{"from": s.ID, "to": *s.Next}); err != nil {
			return err
		}
	}
	if _, err := g.run(ctx,
		"CREATE CONSTRAINT IF NOT EXISTS FOR (s:Step) REQUIRE s.id IS UNIQUE", nil); err != nil {
		return err
	}

	g.logger.Info("Imported process steps", zap.Int("count", len(seeds)))
	return nil
}

// Query retrieves the ordered step sequence for the configured scope.
// The result is recomputed on every call and never cached across runs.
func (g *GraphSource) Query(ctx context.Context, task string) (schemas.GraphQueryResult, error) {
	steps, err := g.fetchAll(ctx)
	if err != nil {
		return schemas.GraphQueryResult{}, err
	}
	if g.scope == config.GraphScopeMatch {
		steps = filterByTask(steps, task)
	}
	return schemas.GraphQueryResult{Steps: steps}, nil
}

// Context implements Source: query, then linearize deterministically.
func (g *GraphSource) Context(ctx context.Context, task string) (string, error) {
	result, err := g.Query(ctx, task)
	if err != nil {
		return "", err
	}
	return FormatSteps(result), nil
}

// fetchAll reads every Step node plus all NEXT relations and returns the
// steps in topological order, ties broken by ascending id (the original
// insertion order of the seed file).
func (g *GraphSource) fetchAll(ctx context.Context) ([]schemas.ProcessStep, error) {
	nodeRows, err := g.run(ctx,
		"MATCH (s:Step) RETURN s.id AS id, s.description AS description ORDER BY s.id", nil)
	if err != nil {
		return nil, err
	}
	edgeRows, err := g.run(ctx,
		"MATCH (a:Step)-[:NEXT]->(b:Step) RETURN a.id AS from, b.id AS to", nil)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]*schemas.ProcessStep, len(nodeRows))
	steps := make([]schemas.ProcessStep, 0, len(nodeRows))
	for _, row := range nodeRows {
		steps = append(steps, schemas.ProcessStep{
			ID:          asInt(row["id"]),
			Description: asString(row["description"]),
		})
	}
	for i := range steps {
		byID[steps[i].ID] = &steps[i]
	}
	for _, row := range edgeRows {
		from, to := asInt(row["from"]), asInt(row["to"])
		if a, ok := byID[from]; ok {
			a.Next = append(a.Next, to)
		}
		if b, ok := byID[to]; ok {
			b.Prev = append(b.Prev, from)
		}
	}
	for i := range steps {
		sort.Ints(steps[i].Next)
		sort.Ints(steps[i].Prev)
	}

	return TopologicalOrder(steps), nil
}

// navigate resolves one navigation query and moves the cursor to the
// returned step, mirroring the original tool semantics: walking off either
// end still moves the cursor, and the description tells the model to go back.
func (g *GraphSource) navigate(ctx context.Context, cypher string, fallbackID int, fallbackText string) (schemas.ProcessStep, error) {
	rows, err := g.run(ctx, cypher, map[string]any{"sid": g.cursor})
	if err != nil {
		return schemas.ProcessStep{}, err
	}
	if len(rows) == 0 {
		g.cursor = fallbackID
		return schemas.ProcessStep{ID: fallbackID, Description: fallbackText}, nil
	}

	step := schemas.ProcessStep{
		ID:          asInt(rows[0]["id"]),
		Description: asString(rows[0]["description"]),
	}
	g.cursor = step.ID
	return step, nil
}

// NextStep moves the cursor to the successor of the current step.
func (g *GraphSource) NextStep(ctx context.Context) (schemas.ProcessStep, error) {
	return g.navigate(ctx,
		"MATCH (c:Step {id: $sid})-[:NEXT]->(n:Step) RETURN n.id AS id, n.description AS description",
		g.cursor+1, noNextStepText)
}

// PrevStep moves the cursor to the predecessor of the current step.
func (g *GraphSource) PrevStep(ctx context.Context) (schemas.ProcessStep, error) {
	return g.navigate(ctx,
		"MATCH (p:Step)-[:NEXT]->(c:Step {id: $sid}) RETURN p.id AS id, p.description AS description",
		g.cursor-1, noPrevStepText)
}

// CurrStep re-reads the step the cursor points at.
func (g *GraphSource) CurrStep(ctx context.Context) (schemas.ProcessStep, error) {
	return g.navigate(ctx,
		"MATCH (c:Step {id: $sid}) RETURN c.id AS id, c.description AS description",
		g.cursor, noCurrStepText)
}

// filterByTask keeps steps whose description shares a significant token with
// the task text, preserving the incoming order. Tokens shorter than four
// runes are too generic to match on.
func filterByTask(steps []schemas.ProcessStep, task string) []schemas.ProcessStep {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(task)) {
		tok = strings.Trim(tok, ".,;:!?\"'()")
		if len([]rune(tok)) >= 4 {
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) == 0 {
		return steps
	}

	var matched []schemas.ProcessStep
	for _, step := range steps {
		desc := strings.ToLower(step.Description)
		for _, tok := range tokens {
			if strings.Contains(desc, tok) {
				matched = append(matched, step)
				break
			}
		}
	}
	return matched
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
