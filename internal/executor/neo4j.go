package executor

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/roach88/cypherc/internal/config"
)

// Neo4jRunner runs statements through the Neo4j driver.
type Neo4jRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

// Dial connects to the database described by cfg and verifies the
// connection.
func Dial(ctx context.Context, cfg config.Neo4jConfig) (*Neo4jRunner, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connect %s: %w", cfg.URI, err)
	}
	return &Neo4jRunner{driver: driver, database: cfg.Database}, nil
}

// Close closes the driver.
func (r *Neo4jRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

type runResult struct {
	rows     []map[string]any
	counters Counters
}

// Run executes text in a managed write transaction. The driver retries
// transient failures; guard failures are client errors and are not retried.
func (r *Neo4jRunner) Run(ctx context.Context, text string, params map[string]any) ([]map[string]any, Counters, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: r.database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, text, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			rows = append(rows, rec.AsMap())
		}
		return runResult{rows: rows, counters: counters(summary.Counters())}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	res := out.(runResult)
	return res.rows, res.counters, nil
}

func counters(c neo4j.Counters) Counters {
	return Counters{
		"nodesCreated":         int64(c.NodesCreated()),
		"nodesDeleted":         int64(c.NodesDeleted()),
		"relationshipsCreated": int64(c.RelationshipsCreated()),
		"relationshipsDeleted": int64(c.RelationshipsDeleted()),
		"propertiesSet":        int64(c.PropertiesSet()),
	}
}
