package transaction

import (
	"bytes"
	"time"

	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/amirasaad/finboard/pkg/dto"
	"github.com/amirasaad/finboard/pkg/export"
	"github.com/amirasaad/finboard/pkg/middleware"
	authsvc "github.com/amirasaad/finboard/pkg/service/auth"
	txsvc "github.com/amirasaad/finboard/pkg/service/transaction"
	"github.com/amirasaad/finboard/webapi/common"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

func Routes(app *fiber.App, txSvc *txsvc.Service, authSvc *authsvc.Service, cfg *config.App) {
	protected := middleware.Protected(cfg.Auth.Jwt, authSvc, nil)
	app.Get("/transactions", protected, ListTransactions(txSvc))
	app.Post("/transactions", protected, CreateTransaction(txSvc))
	// Registered before /:id so "export" is not taken for an id.
	app.Get("/transactions/export", protected, ExportTransactions(txSvc, time.Now))
	app.Get("/transactions/:id", protected, GetTransaction(txSvc))
	app.Patch("/transactions/:id", protected, UpdateTransaction(txSvc))
	app.Delete("/transactions/:id", protected, DeleteTransaction(txSvc))
}

// bindQuery parses and validates the listing query. It writes a 400 and
// returns nil on bad input.
func bindQuery(c *fiber.Ctx) (*ListQuery, *domain.TransactionFilter) {
	var q ListQuery
	if err := c.QueryParser(&q); err != nil {
		_ = common.ProblemDetailsJSON(c, "Invalid query", nil, err.Error(), fiber.StatusBadRequest)
		return nil, nil
	}
	if err := validate.Struct(q); err != nil {
		_ = common.ProblemDetailsJSON(c, "Invalid query", nil, err.Error(), fiber.StatusBadRequest)
		return nil, nil
	}
	if _, ok := domain.PageOffset(q.Page, q.PageSize); !ok {
		_ = common.ProblemDetailsJSON(c, "Invalid query", nil, "page is out of range", fiber.StatusBadRequest)
		return nil, nil
	}
	f, err := q.Filter()
	if err != nil {
		_ = common.ProblemDetailsJSON(c, "Invalid query", err)
		return nil, nil
	}
	return &q, &f
}

// ListTransactions returns one page of the caller's transaction feed.
// @Summary List transactions
// @Description Newest first; filters combine with AND
// @Tags transactions
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Param start_date query string false "Inclusive lower bound, RFC 3339 or YYYY-MM-DD"
// @Param end_date query string false "Inclusive upper bound, RFC 3339 or YYYY-MM-DD"
// @Param min_amount query number false "Minimum amount"
// @Param max_amount query number false "Maximum amount"
// @Param type query string false "credit,debit"
// @Param category query string false "Comma-separated categories"
// @Param status query string false "Status"
// @Param search query string false "Description substring"
// @Param account query string false "Comma-separated account kinds"
// @Param account_id query string false "Account ID"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Router /transactions [get]
// @Security Bearer
func ListTransactions(txSvc *txsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := common.OwnerID(c)
		if !ok {
			return nil
		}
		q, filter := bindQuery(c)
		if q == nil {
			return nil
		}
		page, pageSize := domain.NormalizePage(q.Page, q.PageSize)
		result, err := txSvc.List(c.UserContext(), owner, *filter, page, pageSize)
		if err != nil {
			return common.ErrorResponse(c, err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transactions fetched", PageResponse{
			Items:      result.Items,
			TotalCount: result.TotalCount,
			Page:       page,
			PageSize:   pageSize,
		})
	}
}

// GetTransaction returns one of the caller's transactions.
// @Summary Get transaction
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /transactions/{id} [get]
// @Security Bearer
func GetTransaction(txSvc *txsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := common.OwnerID(c)
		if !ok {
			return nil
		}
		id, ok := common.ParamID(c, "transaction")
		if !ok {
			return nil
		}
		tx, err := txSvc.Get(c.UserContext(), owner, id)
		if err != nil {
			return common.ErrorResponse(c, err)
		}
		if tx == nil {
			return common.ProblemDetailsJSON(c, "Not Found", domain.ErrTransactionNotFound)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transaction fetched", tx)
	}
}

// CreateTransaction posts a transaction against one of the caller's
// accounts.
// @Summary Create transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body CreateTransactionRequest true "Transaction"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /transactions [post]
// @Security Bearer
func CreateTransaction(txSvc *txsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := common.OwnerID(c)
		if !ok {
			return nil
		}
		input, err := common.BindAndValidate[CreateTransactionRequest](c)
		if input == nil {
			return err // error response already written
		}
		tx, err := txSvc.Create(c.UserContext(), owner, dto.TransactionCreate{
			AccountID:   uuid.MustParse(input.AccountID),
			Date:        input.Date,
			Description: input.Description,
			Amount:      input.Amount,
			Direction:   domain.Direction(input.Type),
			Category:    input.Category,
			Reference:   input.Reference,
			Status:      input.Status,
			Metadata:    input.Metadata,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't create transaction", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "Transaction created", tx)
	}
}

// UpdateTransaction amends one of the caller's transactions.
// @Summary Update transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path string true "Transaction ID"
// @Param request body UpdateTransactionRequest true "Fields to change"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 404 {object} common.ProblemDetails
// @Router /transactions/{id} [patch]
// @Security Bearer
func UpdateTransaction(txSvc *txsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := common.OwnerID(c)
		if !ok {
			return nil
		}
		id, ok := common.ParamID(c, "transaction")
		if !ok {
			return nil
		}
		input, err := common.BindAndValidate[UpdateTransactionRequest](c)
		if input == nil {
			return err // error response already written
		}
		tx, err := txSvc.Update(c.UserContext(), owner, id, dto.TransactionUpdate{
			Description: input.Description,
			Amount:      input.Amount,
			Category:    input.Category,
			Reference:   input.Reference,
			Status:      input.Status,
			Metadata:    input.Metadata,
		})
		if err != nil {
			return common.ProblemDetailsJSON(c, "Couldn't update transaction", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transaction updated", tx)
	}
}

// DeleteTransaction removes one of the caller's transactions.
// @Summary Delete transaction
// @Tags transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} common.Response
// @Failure 404 {object} common.ProblemDetails
// @Router /transactions/{id} [delete]
// @Security Bearer
func DeleteTransaction(txSvc *txsvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := common.OwnerID(c)
		if !ok {
			return nil
		}
		id, ok := common.ParamID(c, "transaction")
		if !ok {
			return nil
		}
		if err := txSvc.Delete(c.UserContext(), owner, id); err != nil {
			return common.ErrorResponse(c, err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Transaction deleted", nil)
	}
}

// ExportTransactions downloads every matching transaction as CSV or JSON.
// @Summary Export transactions
// @Tags transactions
// @Produce text/csv
// @Produce application/json
// @Param format query string false "csv (default) or json"
// @Success 200 {file} file
// @Failure 400 {object} common.ProblemDetails
// @Router /transactions/export [get]
// @Security Bearer
func ExportTransactions(txSvc *txsvc.Service, now func() time.Time) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := common.OwnerID(c)
		if !ok {
			return nil
		}
		q, filter := bindQuery(c)
		if q == nil {
			return nil
		}
		format, err := export.ParseFormat(q.Format)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Invalid export format", err)
		}
		txs, err := txSvc.ListAll(c.UserContext(), owner, *filter)
		if err != nil {
			return common.ErrorResponse(c, err)
		}
		var buf bytes.Buffer
		if err := export.Write(&buf, format, txs); err != nil {
			return common.ErrorResponse(c, err)
		}
		c.Attachment(export.Filename(format, now()))
		c.Set(fiber.HeaderContentType, export.ContentType(format))
		return c.Status(fiber.StatusOK).Send(buf.Bytes())
	}
}
