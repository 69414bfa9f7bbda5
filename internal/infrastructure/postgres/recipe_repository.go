package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.RecipeRepository = (*RecipeRepo)(nil)

// RecipeRepo lectura de recetas (product_materials), mantenidas por el catálogo de productos.
type RecipeRepo struct {
	q Querier
}

// NewRecipeRepository construye el adaptador de recetas.
func NewRecipeRepository(q Querier) *RecipeRepo {
	return &RecipeRepo{q: q}
}

func (r *RecipeRepo) GetRequiredMaterials(ctx context.Context, productID string) ([]repository.MaterialRequirement, error) {
	query := `
		SELECT material_id, quantity_per_unit
		FROM product_materials WHERE product_id = $1
		ORDER BY material_id`
	rows, err := r.q.Query(ctx, query, productID)
	if err != nil {
		return nil, mapError("get required materials", err)
	}
	defer rows.Close()
	var list []repository.MaterialRequirement
	for rows.Next() {
		var m repository.MaterialRequirement
		if err := rows.Scan(&m.MaterialID, &m.QuantityPerUnit); err != nil {
			return nil, fmt.Errorf("scan material requirement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}
