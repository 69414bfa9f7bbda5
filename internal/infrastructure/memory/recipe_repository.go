package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.RecipeRepository = (*RecipeRepo)(nil)

// RecipeRepo recetas en memoria (producto -> materiales por unidad).
type RecipeRepo struct {
	mu      sync.RWMutex
	recipes map[string][]repository.MaterialRequirement
}

// NewRecipeRepository construye un repositorio de recetas vacío.
func NewRecipeRepository() *RecipeRepo {
	return &RecipeRepo{recipes: make(map[string][]repository.MaterialRequirement)}
}

// SetRecipe reemplaza la receta de un producto.
func (r *RecipeRepo) SetRecipe(productID string, reqs ...repository.MaterialRequirement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipes[productID] = append([]repository.MaterialRequirement(nil), reqs...)
}

// GetRequiredMaterials devuelve una lista vacía si el producto no tiene receta.
// La fachada trata ese caso como producto no encontrado.
func (r *RecipeRepo) GetRequiredMaterials(_ context.Context, productID string) ([]repository.MaterialRequirement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]repository.MaterialRequirement(nil), r.recipes[productID]...), nil
}
