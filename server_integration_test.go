package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// helper to perform requests with auth token
func performRequest(r http.Handler, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewBuffer(b)
}

func setupTestServer(t *testing.T) *gin.Engine {
	// integration tests are opt-in. Set DB_DSN_TEST=1 and DB_DSN to run them.
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("test-secret")
	initDB()
	initServices()
	r := gin.Default()
	setupRoutes(r)
	return r
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	username := fmt.Sprintf("user%d", time.Now().UnixNano())

	// 1. Register user
	resp := performRequest(r, http.MethodPost, "/register",
		jsonBody(t, map[string]string{"username": username, "password": "pass123", "email": username + "@example.com"}), "")
	if resp.Code != 200 {
		t.Fatalf("register failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 2. Login
	resp = performRequest(r, http.MethodPost, "/login",
		jsonBody(t, map[string]string{"username": username, "password": "pass123"}), "")
	if resp.Code != 200 {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var loginResp map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &loginResp)
	token, _ := loginResp["token"].(string)
	if token == "" {
		t.Fatalf("empty token in login response: %+v", loginResp)
	}

	// 3. Create two accounts; the first must become the default
	resp = performRequest(r, http.MethodPost, "/accounts",
		jsonBody(t, map[string]any{"name": "Everyday", "type": "CURRENT", "balance": "0"}), token)
	if resp.Code != 200 {
		t.Fatalf("create account failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var acctA struct {
		ID        uint `json:"ID"`
		IsDefault bool `json:"IsDefault"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &acctA)
	if !acctA.IsDefault {
		t.Fatalf("first account should be default: %s", resp.Body.String())
	}

	resp = performRequest(r, http.MethodPost, "/accounts",
		jsonBody(t, map[string]any{"name": "Savings", "type": "SAVINGS", "balance": "0"}), token)
	if resp.Code != 200 {
		t.Fatalf("create second account failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var acctB struct {
		ID uint `json:"ID"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &acctB)

	// 4. Create transactions and verify the balance follows
	resp = performRequest(r, http.MethodPost, "/transactions",
		jsonBody(t, map[string]any{"account_id": acctA.ID, "type": "INCOME", "amount": "100.50"}), token)
	if resp.Code != 200 {
		t.Fatalf("create income failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodPost, "/transactions",
		jsonBody(t, map[string]any{"account_id": acctA.ID, "type": "EXPENSE", "amount": "40.25"}), token)
	if resp.Code != 200 {
		t.Fatalf("create expense failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var created struct {
		ID uint `json:"ID"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &created)

	balance := accountBalance(t, r, token, acctA.ID)
	if balance != "60.25" {
		t.Fatalf("expected balance 60.25 got %s", balance)
	}

	// 5. Move the expense to the second account
	resp = performRequest(r, http.MethodPut, fmt.Sprintf("/transactions/%d", created.ID),
		jsonBody(t, map[string]any{"account_id": acctB.ID, "type": "EXPENSE", "amount": "40.25"}), token)
	if resp.Code != 200 {
		t.Fatalf("update transaction failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	if b := accountBalance(t, r, token, acctA.ID); b != "100.5" {
		t.Fatalf("expected source balance 100.5 got %s", b)
	}
	if b := accountBalance(t, r, token, acctB.ID); b != "-40.25" {
		t.Fatalf("expected target balance -40.25 got %s", b)
	}

	// 6. Budget round trip
	resp = performRequest(r, http.MethodPut, "/budget",
		jsonBody(t, map[string]any{"amount": "1000"}), token)
	if resp.Code != 200 {
		t.Fatalf("update budget failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	resp = performRequest(r, http.MethodGet, "/budget", nil, token)
	if resp.Code != 200 {
		t.Fatalf("get budget failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 7. Dashboard
	resp = performRequest(r, http.MethodGet, "/dashboard", nil, token)
	if resp.Code != 200 {
		t.Fatalf("dashboard failed status=%d body=%s", resp.Code, resp.Body.String())
	}

	// 8. Bulk delete the remaining transactions
	var dash struct {
		Recent []struct {
			ID uint `json:"ID"`
		} `json:"recent_transactions"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &dash)
	ids := make([]uint, 0, len(dash.Recent))
	for _, tx := range dash.Recent {
		ids = append(ids, tx.ID)
	}
	resp = performRequest(r, http.MethodDelete, "/transactions",
		jsonBody(t, map[string]any{"ids": ids}), token)
	if resp.Code != 200 {
		t.Fatalf("bulk delete failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	if b := accountBalance(t, r, token, acctA.ID); b != "0" {
		t.Fatalf("expected balance 0 after bulk delete got %s", b)
	}

	// 9. Unauthorized access to protected endpoint should be 401
	unauth := performRequest(r, http.MethodGet, "/dashboard", nil, "")
	if unauth.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthorized dashboard got %d", unauth.Code)
	}
}

// accountBalance reads the account list and returns the named account's
// balance as the API serialized it.
func accountBalance(t *testing.T, r http.Handler, token string, accountID uint) string {
	t.Helper()
	resp := performRequest(r, http.MethodGet, "/accounts", nil, token)
	if resp.Code != 200 {
		t.Fatalf("list accounts failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	var accounts []struct {
		ID      uint            `json:"ID"`
		Balance json.RawMessage `json:"Balance"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &accounts); err != nil {
		t.Fatalf("decode accounts: %v", err)
	}
	for _, a := range accounts {
		if a.ID == accountID {
			var s string
			if err := json.Unmarshal(a.Balance, &s); err == nil {
				return s
			}
			return string(a.Balance)
		}
	}
	t.Fatalf("account %d not in list response", accountID)
	return ""
}

func TestMigrateCommand(t *testing.T) {
	if os.Getenv("DB_DSN_TEST") != "1" {
		t.Skip("integration tests are disabled; set DB_DSN_TEST=1 to enable")
	}
	initDB()
}
