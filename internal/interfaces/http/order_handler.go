package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
)

// OrderHandler expone reservar/confirmar/liberar a nivel de pedido.
type OrderHandler struct {
	facade *inventory.InventoryFacade
}

// NewOrderHandler construye el handler.
func NewOrderHandler(facade *inventory.InventoryFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Reserve godoc
// @Summary      Reservar materiales de un pedido (todo o nada)
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OrderRequest  true  "order_code, items"
// @Success      200   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/reserve [post]
func (h *OrderHandler) Reserve(c *fiber.Ctx) error {
	var in dto.OrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lines, err := h.facade.Reserve(c.UserContext(), toOrder(in))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.OrderResponse{OrderCode: in.OrderCode, Materials: toMaterials(lines)})
}

// Confirm godoc
// @Summary      Confirmar reservas de un pedido pagado (todo o nada)
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OrderRequest  true  "order_code, items"
// @Success      200   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/orders/confirm [post]
func (h *OrderHandler) Confirm(c *fiber.Ctx) error {
	var in dto.OrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	lines, err := h.facade.Confirm(c.UserContext(), toOrder(in))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.OrderResponse{OrderCode: in.OrderCode, Materials: toMaterials(lines)})
}

// Release godoc
// @Summary      Liberar reservas de un pedido cancelado
// @Description  Cada material se libera por separado; las fallas se reportan en failures.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.OrderRequest  true  "order_code, items, reason"
// @Success      200   {object}  dto.ReleaseResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/orders/release [post]
func (h *OrderHandler) Release(c *fiber.Ctx) error {
	var in dto.OrderRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.facade.Release(c.UserContext(), toOrder(in), in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.ReleaseResponse{
		OrderCode: res.OrderCode,
		Released:  toMaterials(res.Released),
		Failures:  make([]dto.ReleaseFailureResponse, 0, len(res.Failures)),
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, dto.ReleaseFailureResponse{MaterialID: f.MaterialID, Quantity: f.Quantity, Error: f.Err.Error()})
	}
	return c.JSON(out)
}

func toOrder(in dto.OrderRequest) inventory.OrderRequest {
	items := make([]inventory.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, inventory.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return inventory.OrderRequest{OrderCode: in.OrderCode, Items: items}
}

func toMaterials(lines []inventory.MaterialQuantity) []dto.MaterialQuantityResponse {
	out := make([]dto.MaterialQuantityResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, dto.MaterialQuantityResponse{MaterialID: l.MaterialID, Quantity: l.Quantity})
	}
	return out
}
