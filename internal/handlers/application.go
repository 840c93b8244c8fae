// internal/handlers/application.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/healthbridge/enroll-backend/internal/services"
	"github.com/healthbridge/enroll-backend/internal/utils"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
}

func NewApplicationHandler(applicationService *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService}
}

// GET /applications
func (h *ApplicationHandler) GetApplications(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.ApplicationSearchParams{
		PaginationParams: params,
	}

	if agentIDStr := c.Query("agent_id"); agentIDStr != "" {
		if agentID, err := uuid.Parse(agentIDStr); err == nil {
			searchParams.AgentID = &agentID
		}
	}
	if carrierRef := c.Query("carrier_ref"); carrierRef != "" {
		searchParams.CarrierRef = carrierRef
	}

	applications, total, err := h.applicationService.SearchApplications(searchParams)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(applications, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /applications/:id
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	application, err := h.applicationService.GetApplication(id)
	if err != nil {
		if errors.Is(err, services.ErrApplicationNotFound) {
			utils.NotFoundResponse(c, "Application")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, application)
}

// GET /applications/:id/payment
func (h *ApplicationHandler) GetPaymentSummary(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	record, err := h.applicationService.GetPaymentSummary(id)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}
	if record == nil {
		utils.NotFoundResponse(c, "Payment instrument")
		return
	}

	utils.SuccessResponse(c, record)
}

// GET /applications/:id/submissions
func (h *ApplicationHandler) GetSubmissionHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	results, err := h.applicationService.GetSubmissionHistory(id)
	if err != nil {
		if errors.Is(err, services.ErrApplicationNotFound) {
			utils.NotFoundResponse(c, "Application")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, results)
}
