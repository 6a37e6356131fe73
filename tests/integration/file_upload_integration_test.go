package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bitecraft/storefront-api/config"
	"github.com/bitecraft/storefront-api/controllers"
	"github.com/bitecraft/storefront-api/models"
	"github.com/bitecraft/storefront-api/services"
	"github.com/bitecraft/storefront-api/tests/testutil"
	"github.com/bitecraft/storefront-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// FileUploadIntegrationTestSuite uploads food images to local disk and serves them back
type FileUploadIntegrationTestSuite struct {
	suite.Suite
	db        *gorm.DB
	router    *gin.Engine
	uploadDir string
	food      *models.Food
}

// SetupTest runs before each test
func (suite *FileUploadIntegrationTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.db = testutil.NewTestDB(suite.T())
	config.SetDB(suite.db)

	// Override the global upload directory for testing
	suite.uploadDir = suite.T().TempDir()
	utils.UploadDir = suite.uploadDir
	services.InitLocalImageService(suite.uploadDir)

	suite.food = testutil.CreateFood(suite.T(), suite.db, "Waakye", "20.00", "5.00")

	suite.router = gin.New()
	suite.router.Use(gin.Recovery())
	controllers.RegisterRoutes(suite.router, testutil.MockAdminAuth())
}

// createMultipartRequest creates a multipart form request with file upload
func (suite *FileUploadIntegrationTestSuite) createMultipartRequest(foodID, filename string, fileContent []byte) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if filename != "" && fileContent != nil {
		part, err := writer.CreateFormFile("image", filename)
		suite.Require().NoError(err)
		part.Write(fileContent)
	}
	suite.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/foods/"+foodID+"/image", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func (suite *FileUploadIntegrationTestSuite) upload(filename string, content []byte) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, suite.createMultipartRequest(suite.food.ID, filename, content))

	var response map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response))
	return w, response
}

// TestUploadFoodImage_PNG stores the file and links it to the food
func (suite *FileUploadIntegrationTestSuite) TestUploadFoodImage_PNG() {
	w, response := suite.upload("waakye.png", []byte("fake PNG file content"))

	assert.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	assert.True(suite.T(), response["success"].(bool))

	data := response["data"].(map[string]interface{})
	key := data["image_key"].(string)
	assert.True(suite.T(), strings.HasSuffix(key, ".png"))
	assert.Equal(suite.T(), "/api/v1/uploads/"+key, data["image_url"])
	assert.FileExists(suite.T(), filepath.Join(suite.uploadDir, key))

	var food models.Food
	suite.NoError(suite.db.First(&food, "id = ?", suite.food.ID).Error)
	suite.Require().NotNil(food.ImageKey)
	assert.Equal(suite.T(), key, *food.ImageKey)
}

// TestUploadFoodImage_ReplacesPrevious removes the old file from disk
func (suite *FileUploadIntegrationTestSuite) TestUploadFoodImage_ReplacesPrevious() {
	_, first := suite.upload("first.png", []byte("first"))
	firstKey := first["data"].(map[string]interface{})["image_key"].(string)

	w, second := suite.upload("second.jpg", []byte("second"))
	suite.Require().Equal(http.StatusOK, w.Code)
	secondKey := second["data"].(map[string]interface{})["image_key"].(string)

	assert.NotEqual(suite.T(), firstKey, secondKey)
	assert.NoFileExists(suite.T(), filepath.Join(suite.uploadDir, firstKey))
	assert.FileExists(suite.T(), filepath.Join(suite.uploadDir, secondKey))
}

// TestUploadFoodImage_InvalidFileFormat rejects anything but PNG and JPEG
func (suite *FileUploadIntegrationTestSuite) TestUploadFoodImage_InvalidFileFormat() {
	w, response := suite.upload("menu.pdf", []byte("%PDF-1.4"))

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.False(suite.T(), response["success"].(bool))

	errorData := response["error"].(map[string]interface{})
	assert.Equal(suite.T(), "INVALID_FILE_FORMAT", errorData["code"])
	assert.Contains(suite.T(), errorData["message"], "Only PNG and JPEG images are allowed")

	var food models.Food
	suite.NoError(suite.db.First(&food, "id = ?", suite.food.ID).Error)
	assert.Nil(suite.T(), food.ImageKey)
}

// TestUploadFoodImage_FileTooLarge enforces the size limit
func (suite *FileUploadIntegrationTestSuite) TestUploadFoodImage_FileTooLarge() {
	largeContent := make([]byte, utils.MaxFileSize+1)
	w, response := suite.upload("huge.png", largeContent)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	errorData := response["error"].(map[string]interface{})
	assert.Equal(suite.T(), "FILE_TOO_LARGE", errorData["code"])
	assert.Contains(suite.T(), errorData["message"], "File size exceeds")

	entries, err := filepath.Glob(filepath.Join(suite.uploadDir, "*"))
	suite.NoError(err)
	assert.Empty(suite.T(), entries)
}

// TestServeUploadedFile serves an uploaded image through the public route
func (suite *FileUploadIntegrationTestSuite) TestServeUploadedFile() {
	testContent := []byte("jpeg bytes")
	_, response := suite.upload("waakye.jpeg", testContent)
	url := response["data"].(map[string]interface{})["image_url"].(string)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "image/jpeg", w.Header().Get("Content-Type"))

	body, err := io.ReadAll(w.Body)
	suite.NoError(err)
	assert.Equal(suite.T(), testContent, body)
}

// TestPublicMenuShowsImageURL resolves the stored key to a URL for shoppers
func (suite *FileUploadIntegrationTestSuite) TestPublicMenuShowsImageURL() {
	_, response := suite.upload("waakye.png", []byte("png"))
	url := response["data"].(map[string]interface{})["image_url"].(string)

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/menu/foods", nil))
	suite.Require().Equal(http.StatusOK, w.Code)

	var menu map[string]interface{}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &menu))
	foods := menu["data"].([]interface{})
	suite.Require().Len(foods, 1)
	assert.Equal(suite.T(), url, foods[0].(map[string]interface{})["image_url"])
}

func TestFileUploadIntegrationSuite(t *testing.T) {
	suite.Run(t, new(FileUploadIntegrationTestSuite))
}
