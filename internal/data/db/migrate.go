package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/painlens-backend/internal/domain"
)

// findFacetClustersSQL pairs distinct facet labels whose stored embeddings (JSON float
// arrays) have cosine similarity at or above the threshold. Each pair is reported once,
// label_1 < label_2.
const findFacetClustersSQL = `
CREATE OR REPLACE FUNCTION find_facet_clusters(
	project_id_param uuid,
	kind_slug_param text,
	similarity_threshold double precision
)
RETURNS TABLE(label_1 text, label_2 text, similarity double precision)
LANGUAGE sql STABLE AS $$
	WITH vecs AS (
		SELECT DISTINCT ON (lower(btrim(f.label))) lower(btrim(f.label)) AS label, f.embedding::jsonb AS emb
		FROM evidence_facet f
		WHERE f.project_id = project_id_param
		  AND f.kind_slug = kind_slug_param
		  AND f.embedding IS NOT NULL
		ORDER BY lower(btrim(f.label)), f.created_at DESC
	), elems AS (
		SELECT v.label, e.ord, e.val::double precision AS x
		FROM vecs v, jsonb_array_elements_text(v.emb) WITH ORDINALITY AS e(val, ord)
	), norms AS (
		SELECT label, sqrt(sum(x * x)) AS n FROM elems GROUP BY label
	), dots AS (
		SELECT a.label AS l1, b.label AS l2, sum(a.x * b.x) AS dot
		FROM elems a
		JOIN elems b ON a.ord = b.ord AND a.label < b.label
		GROUP BY a.label, b.label
	)
	SELECT d.l1, d.l2, d.dot / (na.n * nb.n)
	FROM dots d
	JOIN norms na ON na.label = d.l1
	JOIN norms nb ON nb.label = d.l2
	WHERE na.n > 0 AND nb.n > 0 AND d.dot / (na.n * nb.n) >= similarity_threshold
$$;`

// AutoMigrateAll creates tables for every model, plus the similarity function on postgres.
func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(types.Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if db.Dialector != nil && db.Dialector.Name() == DriverPostgres {
		if err := db.Exec(findFacetClustersSQL).Error; err != nil {
			return fmt.Errorf("create find_facet_clusters: %w", err)
		}
	}
	return nil
}
