package docstore

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

type HandlerTestSuite struct {
	suite.Suite
	store  *SQLiteStore
	router *gin.Engine
}

func (suite *HandlerTestSuite) SetupTest() {
	var err error
	suite.store, err = NewSQLiteStore(":memory:")
	suite.Require().NoError(err)

	gin.SetMode(gin.TestMode)
	suite.router = NewHandler(suite.store, "").Router()
}

func (suite *HandlerTestSuite) TearDownTest() {
	suite.store.Close()
}

func (suite *HandlerTestSuite) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlerTestSuite) TestGetMissingReturnsNull() {
	w := suite.request(http.MethodGet, "/guest/tasks.json", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("null", w.Body.String())
}

func (suite *HandlerTestSuite) TestPathWithoutSuffixIsNotFound() {
	w := suite.request(http.MethodGet, "/guest/tasks", nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestPostReturnsName() {
	w := suite.request(http.MethodPost, "/guest/contacts.json", map[string]string{"name": "Alice"})
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp struct {
		Name string `json:"name"`
	}
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.NotEmpty(resp.Name)

	w = suite.request(http.MethodGet, "/guest/contacts/"+resp.Name+".json", nil)
	suite.JSONEq(`{"name":"Alice"}`, w.Body.String())
}

func (suite *HandlerTestSuite) TestPatchMergesNestedKeys() {
	task := map[string]interface{}{
		"title":         "Ship",
		"boardCategory": "todo",
		"subtasks":      []map[string]interface{}{{"name": "a", "done": false}},
	}
	suite.Require().Equal(http.StatusOK, suite.request(http.MethodPut, "/guest/tasks/t1.json", task).Code)

	w := suite.request(http.MethodPatch, "/guest/tasks/t1.json", map[string]interface{}{"subtasks/0/done": true})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/guest/tasks/t1.json", nil)
	suite.JSONEq(`{"title":"Ship","boardCategory":"todo","subtasks":[{"name":"a","done":true}]}`, w.Body.String())
}

func (suite *HandlerTestSuite) TestPatchRejectsNonObject() {
	w := suite.request(http.MethodPatch, "/guest/tasks/t1.json", []string{"x"})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestDeleteReturnsNull() {
	suite.request(http.MethodPut, "/guest/tasks/t1.json", map[string]string{"title": "x"})

	w := suite.request(http.MethodDelete, "/guest/tasks/t1.json", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("null", w.Body.String())

	w = suite.request(http.MethodGet, "/guest/tasks/t1.json", nil)
	suite.Equal("null", w.Body.String())
}

func (suite *HandlerTestSuite) TestAuthToken() {
	suite.router = NewHandler(suite.store, "s3cr3t").Router()

	w := suite.request(http.MethodGet, "/guest.json", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)

	w = suite.request(http.MethodGet, "/guest.json?auth=s3cr3t", nil)
	suite.Equal(http.StatusOK, w.Code)
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
