package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// RecipeFile recetas de productos para el almacenamiento en memoria.
type RecipeFile struct {
	Recipes []Recipe `mapstructure:"recipes"`
}

// Recipe materiales que consume una unidad de producto.
type Recipe struct {
	ProductID string           `mapstructure:"product_id"`
	Materials []RecipeMaterial `mapstructure:"materials"`
}

// RecipeMaterial línea de una receta.
type RecipeMaterial struct {
	MaterialID      string `mapstructure:"material_id"`
	QuantityPerUnit int64  `mapstructure:"quantity_per_unit"`
}

// LoadRecipes lee un archivo de recetas (YAML o JSON según la extensión).
// Los IDs van como valores y no como claves porque Viper pasa las claves a minúsculas.
func LoadRecipes(path string) (*RecipeFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("leer recetas %s: %w", path, err)
	}
	var out RecipeFile
	if err := v.Unmarshal(&out); err != nil {
		return nil, fmt.Errorf("decodificar recetas %s: %w", path, err)
	}
	for i, r := range out.Recipes {
		if r.ProductID == "" || len(r.Materials) == 0 {
			return nil, fmt.Errorf("receta %d: product_id y materials son obligatorios", i)
		}
		for _, m := range r.Materials {
			if m.MaterialID == "" || m.QuantityPerUnit <= 0 {
				return nil, fmt.Errorf("receta %s: material inválido %+v", r.ProductID, m)
			}
		}
	}
	return &out, nil
}
