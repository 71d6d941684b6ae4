package acceptance

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/line-rescue/line-rescue-api/controllers"
	"github.com/line-rescue/line-rescue-api/middleware"
	"github.com/line-rescue/line-rescue-api/models"
	"github.com/line-rescue/line-rescue-api/services"
	"github.com/line-rescue/line-rescue-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// FaultAcceptanceTestSuite walks the full fault lifecycle through a running
// HTTP server: report, list, accept, resolve, photo evidence
type FaultAcceptanceTestSuite struct {
	suite.Suite
	server       *httptest.Server
	imageService *services.MockImageService
	token        string
}

// SetupSuite runs once before all tests
func (suite *FaultAcceptanceTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	testutil.MustSetTestEnvironment(suite.T())

	suite.server = httptest.NewServer(suite.createRouter())
}

// TearDownSuite runs once after all tests
func (suite *FaultAcceptanceTestSuite) TearDownSuite() {
	suite.server.Close()
}

// SetupTest runs before each test with a fresh database and session
func (suite *FaultAcceptanceTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)
	suite.Require().NoError(db.AutoMigrate(&models.Fault{}, &models.User{}))
	services.SetFaultService(services.NewFaultService(db))

	suite.imageService = services.NewMockImageService()
	suite.imageService.SetAsMockForTesting()

	sessionFile := filepath.Join(suite.T().TempDir(), "session.json")
	services.SetSessionService(services.NewSessionService(sessionFile))

	session, err := services.GetSessionService().Login("dana@powergrid.example", "secret")
	suite.Require().NoError(err)
	suite.token = session.Token
}

// createRouter mirrors the fault routes the server mounts
func (suite *FaultAcceptanceTestSuite) createRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		faults := v1.Group("/faults")
		{
			faults.POST("", controllers.CreateFault)
			faults.GET("", middleware.RequireSession(), controllers.ListFaults)
			faults.GET("/:id", middleware.RequireSession(), controllers.GetFault)
			faults.PATCH("/:id/status", middleware.RequireSession(), controllers.UpdateFaultStatus)
			faults.POST("/:id/accept", middleware.RequireSession(), middleware.RequireRole(models.RoleLineman), controllers.AcceptFault)
			faults.POST("/:id/photo", middleware.RequireSession(), controllers.UploadFaultPhoto)
		}
	}

	return router
}

// makeRequest is a helper function to make HTTP requests
func (suite *FaultAcceptanceTestSuite) makeRequest(method, path string, body interface{}, authHeader string) *http.Response {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		suite.NoError(err)
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, suite.server.URL+path, reader)
	suite.NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	suite.NoError(err)

	return resp
}

func (suite *FaultAcceptanceTestSuite) decodeBody(resp *http.Response) map[string]interface{} {
	body, err := io.ReadAll(resp.Body)
	suite.NoError(err)

	var response map[string]interface{}
	suite.NoError(json.Unmarshal(body, &response))
	return response
}

// reportFault creates a fault through the API and returns its response data
func (suite *FaultAcceptanceTestSuite) reportFault(address, city, severity, description string) map[string]interface{} {
	resp := suite.makeRequest("POST", "/api/v1/faults", map[string]interface{}{
		"location": map[string]interface{}{
			"address": address,
			"city":    city,
			"coordinates": map[string]interface{}{
				"lat": 40.71,
				"lng": -74.0,
			},
		},
		"severity":    severity,
		"description": description,
	}, "")
	defer resp.Body.Close()
	suite.Require().Equal(http.StatusCreated, resp.StatusCode)

	response := suite.decodeBody(resp)
	return response["data"].(map[string]interface{})
}

// TestReportFaultWorkflow tests the reporter-side lifecycle
func (suite *FaultAcceptanceTestSuite) TestReportFaultWorkflow() {
	var faultID string

	// Step 1: Anyone can report a fault, no session required
	suite.T().Run("Report Without Session", func(t *testing.T) {
		data := suite.reportFault("14 Ridge Rd", "Hillsboro", "high", "Transformer sparking")
		faultID = data["id"].(string)

		assert.Equal(t, "pending", data["status"])
		assert.Regexp(t, `^\d{6}$`, data["otp"], "Reporter should receive the 6-digit OTP")
	})

	// Step 2: Listing requires a session
	suite.T().Run("List Without Session", func(t *testing.T) {
		resp := suite.makeRequest("GET", "/api/v1/faults", nil, "")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	// Step 3: A logged-in lineman sees the pending fault, OTP included
	suite.T().Run("List With Session", func(t *testing.T) {
		resp := suite.makeRequest("GET", "/api/v1/faults", nil, "Bearer "+suite.token)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		response := suite.decodeBody(resp)
		faults := response["data"].([]interface{})
		assert.Len(t, faults, 1)

		fault := faults[0].(map[string]interface{})
		assert.Equal(t, faultID, fault["id"])
		assert.Regexp(t, `^\d{6}$`, fault["otp"], "Pending faults keep their OTP visible")
	})
}

// TestAcceptJobWorkflow tests the lineman-side lifecycle
func (suite *FaultAcceptanceTestSuite) TestAcceptJobWorkflow() {
	data := suite.reportFault("2 Bay St", "Norfolk", "medium", "Pole leaning")
	faultID := data["id"].(string)
	otp := data["otp"].(string)

	// Step 1: Accepting assigns the fault and reveals the OTP once
	suite.T().Run("Accept", func(t *testing.T) {
		resp := suite.makeRequest("POST", "/api/v1/faults/"+faultID+"/accept", nil, "Bearer "+suite.token)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		response := suite.decodeBody(resp)
		fault := response["data"].(map[string]interface{})
		assert.Equal(t, "in-progress", fault["status"])
		assert.Equal(t, otp, fault["otp"], "Accept response should carry the OTP for field verification")
		assert.NotEmpty(t, fault["assignedTo"])
	})

	// Step 2: A second accept is rejected
	suite.T().Run("Accept Twice", func(t *testing.T) {
		resp := suite.makeRequest("POST", "/api/v1/faults/"+faultID+"/accept", nil, "Bearer "+suite.token)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		response := suite.decodeBody(resp)
		errBody := response["error"].(map[string]interface{})
		assert.Equal(t, "FAULT_NOT_PENDING", errBody["code"])
	})

	// Step 3: Resolving keeps the assignment and still hides the OTP
	suite.T().Run("Resolve", func(t *testing.T) {
		resp := suite.makeRequest("PATCH", "/api/v1/faults/"+faultID+"/status", map[string]interface{}{
			"status": "resolved",
		}, "Bearer "+suite.token)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		response := suite.decodeBody(resp)
		fault := response["data"].(map[string]interface{})
		assert.Equal(t, "resolved", fault["status"])
		assert.NotEmpty(t, fault["assignedTo"])
		assert.NotContains(t, fault, "otp")
	})
}

// TestPhotoEvidenceWorkflow tests attaching photo evidence to a fault
func (suite *FaultAcceptanceTestSuite) TestPhotoEvidenceWorkflow() {
	data := suite.reportFault("9 Elm St", "Dover", "low", "Frayed service drop")
	faultID := data["id"].(string)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("photo", "evidence.jpg")
	suite.Require().NoError(err)
	_, err = part.Write([]byte("fake image bytes"))
	suite.Require().NoError(err)
	suite.Require().NoError(writer.Close())

	req, err := http.NewRequest("POST", suite.server.URL+"/api/v1/faults/"+faultID+"/photo", &buf)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+suite.token)

	resp, err := (&http.Client{}).Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	response := suite.decodeBody(resp)
	fault := response["data"].(map[string]interface{})
	assert.NotEmpty(suite.T(), fault["photo_url"])
	assert.Len(suite.T(), suite.imageService.GetUploadedImages(), 1)

	// The stored key survives a fresh read
	resp = suite.makeRequest("GET", "/api/v1/faults/"+faultID, nil, "Bearer "+suite.token)
	defer resp.Body.Close()
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	response = suite.decodeBody(resp)
	fault = response["data"].(map[string]interface{})
	assert.NotEmpty(suite.T(), fault["photo_s3_key"])
}

// TestFaultAcceptanceTestSuite runs the acceptance test suite
func TestFaultAcceptanceTestSuite(t *testing.T) {
	suite.Run(t, new(FaultAcceptanceTestSuite))
}
