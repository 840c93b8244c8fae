// internal/handlers/submission_test.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/healthbridge/enroll-backend/internal/carrier"
	"github.com/healthbridge/enroll-backend/internal/services"
)

type fakeSubmitter struct {
	result *carrier.Result
	err    error
	lastID uuid.UUID
}

func (f *fakeSubmitter) Submit(ctx context.Context, applicationID uuid.UUID) (*carrier.Result, error) {
	f.lastID = applicationID
	return f.result, f.err
}

type SubmissionHandlerTestSuite struct {
	suite.Suite
	submitter *fakeSubmitter
	router    *gin.Engine
}

func (suite *SubmissionHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.submitter = &fakeSubmitter{}
	handler := NewSubmissionHandler(suite.submitter)

	suite.router = gin.New()
	suite.router.POST("/v1/applications/:id/submit", handler.SubmitApplication)
}

func (suite *SubmissionHandlerTestSuite) submit(id string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/v1/applications/"+id+"/submit", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *SubmissionHandlerTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return response
}

func (suite *SubmissionHandlerTestSuite) TestSubmitSuccess() {
	suite.submitter.result = &carrier.Result{
		PolicyNumbers: map[string]string{"dental-plus": "POL-9001"},
		TotalRate:     312.50,
	}

	id := uuid.New()
	w := suite.submit(id.String())

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), id, suite.submitter.lastID)

	response := suite.decode(w)
	assert.True(suite.T(), response["success"].(bool))
	data := response["data"].(map[string]interface{})
	policies := data["policy_numbers"].(map[string]interface{})
	assert.Equal(suite.T(), "POL-9001", policies["dental-plus"])
}

func (suite *SubmissionHandlerTestSuite) TestSubmitInvalidID() {
	w := suite.submit("not-a-uuid")
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *SubmissionHandlerTestSuite) TestSubmitApplicationNotFound() {
	suite.submitter.err = services.ErrApplicationNotFound

	w := suite.submit(uuid.New().String())

	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	response := suite.decode(w)
	assert.False(suite.T(), response["success"].(bool))
}

func (suite *SubmissionHandlerTestSuite) TestSubmitCarrierRejectionPassesThroughStatusAndBody() {
	suite.submitter.err = services.NewCarrierRejectedError(400, map[string]interface{}{
		"error":   "INVALID_SSN",
		"message": "SSN failed checksum",
	})

	w := suite.submit(uuid.New().String())

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	response := suite.decode(w)
	errBlock := response["error"].(map[string]interface{})
	assert.Equal(suite.T(), "CARRIER_REJECTED", errBlock["code"])
	details := errBlock["details"].(map[string]interface{})
	assert.Equal(suite.T(), "INVALID_SSN", details["error"])
}

func (suite *SubmissionHandlerTestSuite) TestSubmitConflict() {
	suite.submitter.err = services.NewSubmissionInProgressError()

	w := suite.submit(uuid.New().String())

	assert.Equal(suite.T(), http.StatusConflict, w.Code)
	response := suite.decode(w)
	errBlock := response["error"].(map[string]interface{})
	assert.Equal(suite.T(), "SUBMISSION_IN_PROGRESS", errBlock["code"])
}

func (suite *SubmissionHandlerTestSuite) TestSubmitValidationError() {
	suite.submitter.err = services.NewValidationError("effective date 2026-01-01 must be strictly after the current date")

	w := suite.submit(uuid.New().String())

	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)
}

func (suite *SubmissionHandlerTestSuite) TestSubmitCarrierUnavailable() {
	suite.submitter.err = services.NewCarrierUnavailableError(errors.New("connection timed out"))

	w := suite.submit(uuid.New().String())

	assert.Equal(suite.T(), http.StatusInternalServerError, w.Code)
	response := suite.decode(w)
	errBlock := response["error"].(map[string]interface{})
	assert.Equal(suite.T(), "CARRIER_UNAVAILABLE", errBlock["code"])
}

func TestSubmissionHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(SubmissionHandlerTestSuite))
}
