package repository

import "context"

// MaterialRequirement cantidad de un material consumida por una unidad de producto.
type MaterialRequirement struct {
	MaterialID      string
	QuantityPerUnit int64
}

// RecipeRepository puerto hacia el catálogo de recetas (BOM). Solo lectura.
type RecipeRepository interface {
	GetRequiredMaterials(ctx context.Context, productID string) ([]MaterialRequirement, error)
}
