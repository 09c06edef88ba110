package handlers

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"neuropay/internal/dto"
	"neuropay/internal/services"
)

// Provider contract: the success body is exactly "OK<InvId>"; anything else
// makes the provider retry the callback. Failure bodies are free-form as
// long as they never match the success pattern.
const (
	bodyError        = "ERROR"
	bodySignatureErr = "Check signature ERROR"
)

const successHTML = `<!DOCTYPE html>
<html lang="ru">
<head><meta charset="utf-8"><title>Оплата прошла</title></head>
<body>
<h1>Спасибо за оплату!</h1>
<p>Подписка активирована. Можно вернуться в бот.</p>
</body>
</html>`

const failHTML = `<!DOCTYPE html>
<html lang="ru">
<head><meta charset="utf-8"><title>Оплата не прошла</title></head>
<body>
<h1>Оплата не прошла</h1>
<p>Платёж не был завершён. Попробуйте ещё раз из бота.</p>
</body>
</html>`

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Result is the provider's server-to-server callback. Every failure path
// answers with a non-success body and HTTP 200 so the provider keeps
// retrying; the browser-facing outcome lives on /success and /fail.
func (h *PaymentHandler) Result(c *fiber.Ctx) error {
	var q dto.ResultQuery
	if err := c.QueryParser(&q); err != nil {
		slog.Warn("malformed result callback", "error", err.Error())
		return c.SendString(bodyError)
	}

	invID, err := strconv.ParseInt(q.InvID, 10, 64)
	if err != nil || invID <= 0 {
		slog.Warn("malformed invoice id in result callback", "inv_id", q.InvID)
		return c.SendString(bodyError)
	}

	ack, err := h.payments.Confirm(c.UserContext(), services.ConfirmRequest{
		InvID:     invID,
		OutSum:    q.OutSum,
		Email:     q.Email,
		Signature: q.Signature,
	})
	switch {
	case errors.Is(err, services.ErrSignatureMismatch):
		slog.Warn("result callback signature mismatch", "invoice_id", invID)
		return c.SendString(bodySignatureErr)
	case errors.Is(err, services.ErrInvoiceNotFound):
		slog.Warn("result callback for unknown invoice", "invoice_id", invID)
		return c.SendString(bodyError)
	case errors.Is(err, context.DeadlineExceeded):
		slog.Error("result callback timed out, provider will retry", "invoice_id", invID)
		return c.SendString(bodyError)
	case err != nil:
		slog.Error("result callback failed", "invoice_id", invID, "error", err.Error())
		return c.SendString(bodyError)
	}

	return c.SendString(ack)
}

// Success is the user-facing landing page after a completed payment. It
// carries no entitlement: activation happens only through Result.
func (h *PaymentHandler) Success(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.SendString(successHTML)
}

func (h *PaymentHandler) Fail(c *fiber.Ctx) error {
	c.Type("html", "utf-8")
	return c.SendString(failHTML)
}

func (h *PaymentHandler) Test(c *fiber.Ctx) error {
	return c.SendString("OK")
}
