// internal/handlers/submission.go
package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/healthbridge/enroll-backend/internal/carrier"
	"github.com/healthbridge/enroll-backend/internal/services"
	"github.com/healthbridge/enroll-backend/internal/utils"
)

// Submitter is the pipeline capability this handler needs.
type Submitter interface {
	Submit(ctx context.Context, applicationID uuid.UUID) (*carrier.Result, error)
}

type SubmissionHandler struct {
	submitter Submitter
}

func NewSubmissionHandler(submitter Submitter) *SubmissionHandler {
	return &SubmissionHandler{submitter: submitter}
}

// POST /applications/:id/submit
func (h *SubmissionHandler) SubmitApplication(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid application ID", nil)
		return
	}

	result, err := h.submitter.Submit(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrApplicationNotFound) {
			utils.NotFoundResponse(c, "Application")
			return
		}
		if subErr, ok := services.AsSubmissionError(err); ok {
			// Carrier rejections surface the carrier's own status and body;
			// everything else uses the taxonomy's mapped status.
			utils.ErrorResponse(c, subErr.Status, string(subErr.Code), subErr.Message, subErr.Details)
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, result)
}
