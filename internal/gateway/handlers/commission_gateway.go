package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"studioflow-system/internal/commission"
	"studioflow-system/internal/database/models"
	"studioflow-system/internal/gateway/middleware"
)

type CommissionsHTTPHandler struct {
	service *commission.Service
}

func NewCommissionsHTTPHandler(service *commission.Service) *CommissionsHTTPHandler {
	return &CommissionsHTTPHandler{
		service: service,
	}
}

// organizationFromToken pulls the org claim every commission route is scoped
// by. Aborts with 403 when the token carries none.
func organizationFromToken(c *gin.Context) (string, bool) {
	organizationID := c.GetString(middleware.ContextOrganizationID)
	if organizationID == "" {
		c.JSON(http.StatusForbidden, errorResponse("Token carries no organization"))
		c.Abort()
		return "", false
	}
	return organizationID, true
}

// --- Request & Query Structs for Binding ---

type CalculateCommissionRequest struct {
	TrainerID       string     `json:"trainer_id" binding:"required"`
	Year            int        `json:"year"`
	Month           int        `json:"month"`
	PeriodStart     *time.Time `json:"period_start"`
	PeriodEnd       *time.Time `json:"period_end"`
	SaveCalculation *bool      `json:"save_calculation"`
	LocationIDs     []string   `json:"location_ids"`
}

type HistoryQuery struct {
	Limit int `form:"limit,default=12"`
}

type ReportQuery struct {
	Year        int      `form:"year" binding:"required"`
	Month       int      `form:"month" binding:"required"`
	Save        bool     `form:"save"`
	LocationIDs []string `form:"location_ids"`
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func errorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

// --- Response shaping ---

type commissionResultJSON struct {
	TotalSessions     int    `json:"total_sessions"`
	TierReached       int    `json:"tier_reached"`
	SessionCommission string `json:"session_commission"`
	SalesCommission   string `json:"sales_commission"`
	TierBonus         string `json:"tier_bonus"`
	TotalCommission   string `json:"total_commission"`
}

func resultToJSON(r commission.CommissionResult) commissionResultJSON {
	return commissionResultJSON{
		TotalSessions:     r.TotalSessions,
		TierReached:       r.TierReached,
		SessionCommission: commission.FormatAmount(r.SessionCommission),
		SalesCommission:   commission.FormatAmount(r.SalesCommission),
		TierBonus:         commission.FormatAmount(r.TierBonus),
		TotalCommission:   commission.FormatAmount(r.TotalCommission),
	}
}

type reportRowJSON struct {
	TrainerID   string                `json:"trainer_id"`
	TrainerName string                `json:"trainer_name"`
	Result      *commissionResultJSON `json:"result,omitempty"`
	Error       string                `json:"error,omitempty"`
}

type reportJSON struct {
	OrganizationID  string          `json:"organization_id"`
	Year            int             `json:"year"`
	Month           int             `json:"month"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
	Rows            []reportRowJSON `json:"rows"`
	TotalCommission string          `json:"total_commission"`
	ErrorCount      int             `json:"error_count"`
}

type historyRecordJSON struct {
	TrainerID         string    `json:"trainer_id"`
	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end"`
	TotalSessions     int       `json:"total_sessions"`
	TierReached       int       `json:"tier_reached"`
	SessionCommission string    `json:"session_commission"`
	SalesCommission   string    `json:"sales_commission"`
	TierBonus         string    `json:"tier_bonus"`
	TotalCommission   string    `json:"total_commission"`
}

func historyToJSON(records []models.TrainerCommissionCalculation) []historyRecordJSON {
	out := make([]historyRecordJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, historyRecordJSON{
			TrainerID:         rec.TrainerID,
			PeriodStart:       rec.PeriodStart,
			PeriodEnd:         rec.PeriodEnd,
			TotalSessions:     rec.TotalSessions,
			TierReached:       rec.TierReached,
			SessionCommission: rec.SessionCommission,
			SalesCommission:   rec.SalesCommission,
			TierBonus:         rec.TierBonus,
			TotalCommission:   rec.TotalCommission,
		})
	}
	return out
}

// --- Error mapping ---

func handleServiceError(c *gin.Context, err error) {
	var noProfile *commission.NoProfileAssignedError
	var cfgErr *commission.ConfigurationError

	switch {
	case errors.As(err, &noProfile):
		c.JSON(http.StatusNotFound, errorResponse(noProfile.Error()+", contact your manager"))
	case errors.As(err, &cfgErr):
		c.JSON(http.StatusUnprocessableEntity, errorResponse(cfgErr.Error()))
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, errorResponse("Record not found"))
	default:
		c.JSON(http.StatusInternalServerError, errorResponse("Service error: "+err.Error()))
	}
	c.Abort()
}

// --- Commission Calculation Handlers ---

func (h *CommissionsHTTPHandler) CalculateCommission(c *gin.Context) {
	var req CalculateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format: "+err.Error()))
		return
	}

	organizationID, ok := organizationFromToken(c)
	if !ok {
		return
	}

	calcReq := commission.CalcRequest{
		Year:        req.Year,
		Month:       req.Month,
		LocationIDs: req.LocationIDs,
	}
	switch {
	case req.PeriodStart != nil && req.PeriodEnd != nil:
		calcReq.Period = &commission.Period{Start: req.PeriodStart.UTC(), End: req.PeriodEnd.UTC()}
	case req.Year == 0 || req.Month == 0:
		c.JSON(http.StatusBadRequest, errorResponse("Either year and month or period_start and period_end are required"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	var (
		result commission.CommissionResult
		err    error
	)
	if req.SaveCalculation != nil && *req.SaveCalculation {
		result, err = h.service.CalculateAndRecord(ctx, organizationID, req.TrainerID, calcReq)
	} else {
		result, err = h.service.Preview(ctx, organizationID, req.TrainerID, calcReq)
	}
	if err != nil {
		handleServiceError(c, err)
		return
	}

	isPreview := req.SaveCalculation == nil || !*req.SaveCalculation
	c.JSON(http.StatusOK, successWithMetaResponse("Commission calculated successfully", resultToJSON(result), gin.H{
		"is_preview": isPreview,
	}))
}

func (h *CommissionsHTTPHandler) GetCalculationHistory(c *gin.Context) {
	trainerID := c.Param("trainerId")
	if trainerID == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Trainer ID is required"))
		return
	}

	var query HistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	organizationID, ok := organizationFromToken(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	records, err := h.service.History(ctx, organizationID, trainerID, query.Limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("History retrieved successfully", historyToJSON(records), gin.H{
		"count": len(records),
	}))
}

// --- Commission Reporting Handlers ---

func (h *CommissionsHTTPHandler) GetMonthlyReport(c *gin.Context) {
	var query ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid query parameters: "+err.Error()))
		return
	}

	organizationID, ok := organizationFromToken(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 60*time.Second)
	defer cancel()

	report, err := h.service.MonthlyReport(ctx, organizationID, query.Year, query.Month, query.Save, query.LocationIDs)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	rows := make([]reportRowJSON, 0, len(report.Rows))
	for _, row := range report.Rows {
		jsonRow := reportRowJSON{
			TrainerID:   row.TrainerID,
			TrainerName: row.TrainerName,
			Error:       row.Error,
		}
		if row.Result != nil {
			r := resultToJSON(*row.Result)
			jsonRow.Result = &r
		}
		rows = append(rows, jsonRow)
	}

	c.JSON(http.StatusOK, successResponse("Report retrieved successfully", reportJSON{
		OrganizationID:  report.OrganizationID,
		Year:            report.Year,
		Month:           report.Month,
		PeriodStart:     report.Period.Start,
		PeriodEnd:       report.Period.End,
		Rows:            rows,
		TotalCommission: commission.FormatAmount(report.TotalCommission),
		ErrorCount:      report.ErrorCount,
	}))
}

// --- Commission Settings Handlers ---

type tierSettingJSON struct {
	TierLevel        int     `json:"tier_level"`
	SessionThreshold *int    `json:"session_threshold,omitempty"`
	SalesThreshold   *string `json:"sales_threshold,omitempty"`
	SessionPercent   *string `json:"session_commission_percent,omitempty"`
	SessionFlatFee   *string `json:"session_flat_fee,omitempty"`
	SalesPercent     *string `json:"sales_commission_percent,omitempty"`
	SalesFlatFee     *string `json:"sales_flat_fee,omitempty"`
	TierBonus        *string `json:"tier_bonus,omitempty"`
}

func (h *CommissionsHTTPHandler) GetCommissionSettings(c *gin.Context) {
	trainerID := c.Param("id")
	if trainerID == "" {
		c.JSON(http.StatusBadRequest, errorResponse("Trainer ID is required"))
		return
	}

	organizationID, ok := organizationFromToken(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	profile, err := h.service.CommissionSettings(ctx, organizationID, trainerID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	tiers := make([]tierSettingJSON, 0, len(profile.Tiers))
	for _, t := range profile.Tiers {
		setting := tierSettingJSON{
			TierLevel:        t.Level,
			SessionThreshold: t.SessionThreshold,
		}
		if t.SalesThreshold != nil {
			v := commission.FormatAmount(*t.SalesThreshold)
			setting.SalesThreshold = &v
		}
		if t.SessionPercent != nil {
			v := t.SessionPercent.StringFixed(2)
			setting.SessionPercent = &v
		}
		if t.SessionFlatFee != nil {
			v := commission.FormatAmount(*t.SessionFlatFee)
			setting.SessionFlatFee = &v
		}
		if t.SalesPercent != nil {
			v := t.SalesPercent.StringFixed(2)
			setting.SalesPercent = &v
		}
		if t.SalesFlatFee != nil {
			v := commission.FormatAmount(*t.SalesFlatFee)
			setting.SalesFlatFee = &v
		}
		if t.Bonus != nil {
			v := commission.FormatAmount(*t.Bonus)
			setting.TierBonus = &v
		}
		tiers = append(tiers, setting)
	}

	c.JSON(http.StatusOK, successResponse("Settings retrieved successfully", gin.H{
		"profile_id":         profile.ID,
		"profile_name":       profile.Name,
		"calculation_method": profile.Method,
		"trigger_type":       profile.Trigger,
		"tiers":              tiers,
	}))
}
