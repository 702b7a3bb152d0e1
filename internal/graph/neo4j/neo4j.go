package neo4j

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/efebarandurmaz/cppig/internal/graph"
)

// Neo4jRepository implements graph.Repository using Neo4j. Files are
// (:File {graph, path}) nodes joined by [:INCLUDES] relationships; repeated
// includes of the same pair increment the relationship's count.
type Neo4jRepository struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4j creates a Neo4j-backed repository.
func NewNeo4j(ctx context.Context, uri, username, password, database string) (*Neo4jRepository, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jRepository{driver: driver, database: database}, nil
}

func (r *Neo4jRepository) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: r.database})
}

func (r *Neo4jRepository) ResetGraph(ctx context.Context, graphName string) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			"MATCH (f:File {graph: $graph}) DETACH DELETE f",
			map[string]any{"graph": graphName})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("reset graph %s: %w", graphName, err)
	}
	return nil
}

func (r *Neo4jRepository) StoreInclude(ctx context.Context, graphName, from, to string) error {
	session := r.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx,
			"MERGE (a:File {graph: $graph, path: $from}) "+
				"MERGE (b:File {graph: $graph, path: $to}) "+
				"MERGE (a)-[i:INCLUDES]->(b) "+
				"ON CREATE SET i.count = 1 ON MATCH SET i.count = i.count + 1",
			map[string]any{"graph": graphName, "from": from, "to": to})
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("store include %s -> %s: %w", from, to, err)
	}
	return nil
}

func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

var _ graph.Repository = (*Neo4jRepository)(nil)
