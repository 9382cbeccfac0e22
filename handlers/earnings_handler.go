package handlers

import (
	"VoiceHub/models"
	"VoiceHub/services"
	"net/http"

	"github.com/labstack/echo/v4"
)

// EarningsHandler 月度结算与支付义务的操作面，全部挂在管理员路由，
// 除了 RequestPayouts（按调用者角色过滤）
type EarningsHandler struct {
	closingService *services.ClosingService
	payoutService  *services.PayoutService
}

func NewEarningsHandler(closingService *services.ClosingService, payoutService *services.PayoutService) *EarningsHandler {
	return &EarningsHandler{closingService: closingService, payoutService: payoutService}
}

type closeMonthRequest struct {
	MonthYear         string   `json:"month_year"`
	PointsPerCurrency *float64 `json:"points_per_currency"`
}

// CloseMonth 幂等、可重跑。部分主播失败返回 207 风格的成功清单
func (h *EarningsHandler) CloseMonth(c echo.Context) error {
	var req closeMonthRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	result, err := h.closingService.Close(req.MonthYear, req.PointsPerCurrency)
	if err != nil {
		switch err {
		case services.ErrInvalidMonth, services.ErrInvalidRateValue:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case services.ErrMonthFinalized:
			return c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
		case services.ErrNothingToClose:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to close month"})
		}
	}
	return c.JSON(http.StatusOK, result)
}

type monthRequest struct {
	MonthYear string `json:"month_year"`
}

// FinalizeMonth 一次性冻结。二次调用返回 404 的"无可冻结"，不产生重复支付行
func (h *EarningsHandler) FinalizeMonth(c echo.Context) error {
	var req monthRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	result, err := h.payoutService.Finalize(req.MonthYear)
	if err != nil {
		switch err {
		case services.ErrInvalidMonth:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case services.ErrNothingToFinalize:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to finalize month"})
		}
	}
	return c.JSON(http.StatusOK, result)
}

// RepairPayouts 给已冻结但缺支付行的收益补发，显式审计操作
func (h *EarningsHandler) RepairPayouts(c echo.Context) error {
	var req monthRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	result, err := h.payoutService.Repair(req.MonthYear)
	if err != nil {
		switch err {
		case services.ErrInvalidMonth:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		case services.ErrNothingToFinalize:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to repair payouts"})
		}
	}
	return c.JSON(http.StatusOK, result)
}

type payoutRequest struct {
	Month string `json:"month"`
}

// RequestPayouts 按角色过滤待付清单并推进到 processing
func (h *EarningsHandler) RequestPayouts(c echo.Context) error {
	user := c.Get("user").(*models.User)
	var req payoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	payouts, err := h.payoutService.ListPending(req.Month, user)
	if err != nil {
		switch err {
		case services.ErrInvalidMonth:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list payouts"})
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"payouts": payouts})
}
