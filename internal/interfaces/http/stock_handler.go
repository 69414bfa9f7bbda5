package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
)

// StockHandler expone las operaciones del libro de stock por material (protegido).
type StockHandler struct {
	svc *inventory.StockService
}

// NewStockHandler construye el handler.
func NewStockHandler(svc *inventory.StockService) *StockHandler {
	return &StockHandler{svc: svc}
}

// Initialize godoc
// @Summary      Crear registro de stock para un material
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.InitializeStockRequest  true  "material_id, reorder_level"
// @Success      201   {object}  dto.StockResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stock [post]
func (h *StockHandler) Initialize(c *fiber.Ctx) error {
	var in dto.InitializeStockRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	rec, err := h.svc.InitializeStock(c.UserContext(), in.MaterialID, in.ReorderLevel)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromStockRecord(rec))
}

// Get godoc
// @Summary      Estado de stock de un material
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        materialId  path  string  true  "ID del material"
// @Success      200  {object}  dto.StockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/{materialId} [get]
func (h *StockHandler) Get(c *fiber.Ctx) error {
	rec, err := h.svc.GetStock(c.UserContext(), c.Params("materialId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.FromStockRecord(rec))
}

// ListLow godoc
// @Summary      Materiales en o por debajo del nivel de reorden
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "máximo de filas (por defecto 20)"
// @Param        offset  query  int  false  "desplazamiento"
// @Success      200  {array}   dto.StockResponse
// @Router       /api/stock/low [get]
func (h *StockHandler) ListLow(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return badBody(c)
	}
	page.DefaultPage()
	list, err := h.svc.ListLowStock(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.StockResponse, 0, len(list))
	for _, r := range list {
		out = append(out, dto.FromStockRecord(r))
	}
	return c.JSON(out)
}

// History godoc
// @Summary      Historial del libro de un material (más reciente primero)
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        materialId  path   string  true   "ID del material"
// @Param        page        query  int     false  "página desde 1"
// @Param        size        query  int     false  "tamaño de página (máx. 100)"
// @Success      200  {object}  dto.HistoryResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/{materialId}/history [get]
func (h *StockHandler) History(c *fiber.Ctx) error {
	page, err := h.svc.History(c.UserContext(), c.Params("materialId"), c.QueryInt("page", 1), c.QueryInt("size", 0))
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.TransactionResponse, 0, len(page.Items))
	for _, t := range page.Items {
		items = append(items, dto.FromStockTransaction(t))
	}
	return c.JSON(dto.HistoryResponse{
		MaterialID: page.MaterialID,
		Page:       page.Page,
		Size:       page.Size,
		Total:      page.Total,
		Items:      items,
	})
}

// Reconcile godoc
// @Summary      Compara la cantidad actual con la suma del libro
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        materialId  path  string  true  "ID del material"
// @Success      200  {object}  dto.ReconcileResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/{materialId}/reconcile [get]
func (h *StockHandler) Reconcile(c *fiber.Ctx) error {
	rep, err := h.svc.Reconcile(c.UserContext(), c.Params("materialId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.ReconcileResponse{
		MaterialID:          rep.MaterialID,
		Quantity:            rep.Quantity,
		LedgerSum:           rep.LedgerSum,
		Records:             rep.Records,
		InconsistentRecords: rep.InconsistentRecords,
		Balanced:            rep.Balanced,
	})
}

// Import godoc
// @Summary      Entrada de mercancía (recalcula el costo promedio)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        materialId  path  string             true  "ID del material"
// @Param        body        body  dto.ImportRequest  true  "quantity, unit_price"
// @Success      201  {object}  dto.TransactionResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/stock/{materialId}/import [post]
func (h *StockHandler) Import(c *fiber.Ctx) error {
	var in dto.ImportRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	tx, err := h.svc.Import(c.UserContext(), inventory.ImportInput{
		MaterialID:    c.Params("materialId"),
		Quantity:      in.Quantity,
		UnitPrice:     in.UnitPrice,
		ReferenceCode: in.ReferenceCode,
		Note:          in.Note,
		UserID:        GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromStockTransaction(tx))
}

// Deduct godoc
// @Summary      Salida manual (USAGE, DAMAGED o SALE)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        materialId  path  string             true  "ID del material"
// @Param        body        body  dto.DeductRequest  true  "quantity, type"
// @Success      201  {object}  dto.TransactionResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/stock/{materialId}/deduct [post]
func (h *StockHandler) Deduct(c *fiber.Ctx) error {
	var in dto.DeductRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	tx, err := h.svc.ManualDeduct(c.UserContext(), inventory.DeductInput{
		MaterialID:    c.Params("materialId"),
		Quantity:      in.Quantity,
		Type:          in.Type,
		ReferenceCode: in.ReferenceCode,
		Note:          in.Note,
		UserID:        GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromStockTransaction(tx))
}

// Adjust godoc
// @Summary      Ajuste de inventario con delta firmado
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        materialId  path  string             true  "ID del material"
// @Param        body        body  dto.AdjustRequest  true  "delta distinto de cero"
// @Success      201  {object}  dto.TransactionResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/stock/{materialId}/adjust [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	tx, err := h.svc.Adjust(c.UserContext(), inventory.AdjustInput{
		MaterialID: c.Params("materialId"),
		Delta:      in.Delta,
		Note:       in.Note,
		UserID:     GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromStockTransaction(tx))
}

// Return godoc
// @Summary      Devolución de cliente (no cambia el costo promedio)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        materialId  path  string             true  "ID del material"
// @Param        body        body  dto.ReturnRequest  true  "quantity"
// @Success      201  {object}  dto.TransactionResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/stock/{materialId}/return [post]
func (h *StockHandler) Return(c *fiber.Ctx) error {
	var in dto.ReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	tx, err := h.svc.ReturnStock(c.UserContext(), inventory.ReturnInput{
		MaterialID:    c.Params("materialId"),
		Quantity:      in.Quantity,
		ReferenceCode: in.ReferenceCode,
		Note:          in.Note,
		UserID:        GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.FromStockTransaction(tx))
}

// UpdateReorderLevel godoc
// @Summary      Cambiar nivel de reorden (control optimista por versión)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        materialId  path  string                   true  "ID del material"
// @Param        body        body  dto.ReorderLevelRequest  true  "reorder_level, expected_version"
// @Success      200  {object}  dto.StockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stock/{materialId}/reorder-level [put]
func (h *StockHandler) UpdateReorderLevel(c *fiber.Ctx) error {
	var in dto.ReorderLevelRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	rec, err := h.svc.UpdateReorderLevel(c.UserContext(), c.Params("materialId"), in.ReorderLevel, in.ExpectedVersion)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderETag, strconv.FormatInt(rec.Version, 10))
	return c.JSON(dto.FromStockRecord(rec))
}
