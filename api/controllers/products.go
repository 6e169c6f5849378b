package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type productCatalog interface {
	List() []catalog.Product
	Lookup(id string) (catalog.Product, bool)
}

type productResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       string   `json:"price"`
	ImageURL    string   `json:"image"`
	Sizes       []string `json:"sizes"`
	MaxQuantity int      `json:"max_quantity"`
}

func newProductResponse(p catalog.Product) productResponse {
	sizes := p.Sizes
	if sizes == nil {
		sizes = []string{}
	}
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		ImageURL:    p.ImageURL,
		Sizes:       sizes,
		MaxQuantity: p.MaxQuantity,
	}
}

// ProductList returns every sellable product.
func ProductList(cat productCatalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products := cat.List()
		out := make([]productResponse, 0, len(products))
		for _, p := range products {
			out = append(out, newProductResponse(p))
		}
		responses.WriteSuccess(w, out)
	}
}

func ProductDetail(cat productCatalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathParam(chi.URLParam(r, "productId"), "productId", maxFieldLen)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, ok := cat.Lookup(id)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, newProductResponse(product))
	}
}
