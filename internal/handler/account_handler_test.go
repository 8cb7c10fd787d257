package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eaglebank/accounts/internal/repository"
	"github.com/eaglebank/accounts/shared/cqrs"
	"github.com/eaglebank/accounts/shared/models"
	"github.com/gin-gonic/gin"
)

// ---- mock implementations ----

type mockAccountCommander struct {
	createFn func(cqrs.CreateAccountCommand) (*models.AccountView, error)
	updateFn func(cqrs.UpdateAccountCommand) (*models.AccountView, error)
	deleteFn func(cqrs.DeleteAccountCommand) error
}

func (m *mockAccountCommander) CreateAccount(_ context.Context, cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
	if m.createFn != nil {
		return m.createFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountCommander) UpdateAccount(_ context.Context, cmd cqrs.UpdateAccountCommand) (*models.AccountView, error) {
	if m.updateFn != nil {
		return m.updateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountCommander) DeleteAccount(_ context.Context, cmd cqrs.DeleteAccountCommand) error {
	if m.deleteFn != nil {
		return m.deleteFn(cmd)
	}
	return fmt.Errorf("not configured")
}

type mockAccountQuerier struct {
	getFn     func(cqrs.GetAccountQuery) (*models.AccountView, error)
	byEmailFn func(cqrs.GetAccountByEmailQuery) (*models.AccountView, error)
	listFn    func(cqrs.ListAccountsQuery) ([]models.AccountView, error)
}

func (m *mockAccountQuerier) GetAccount(_ context.Context, q cqrs.GetAccountQuery) (*models.AccountView, error) {
	if m.getFn != nil {
		return m.getFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountQuerier) GetAccountByEmail(_ context.Context, q cqrs.GetAccountByEmailQuery) (*models.AccountView, error) {
	if m.byEmailFn != nil {
		return m.byEmailFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountQuerier) ListAccounts(_ context.Context, q cqrs.ListAccountsQuery) ([]models.AccountView, error) {
	if m.listFn != nil {
		return m.listFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newAccountTestRouter(cmds AccountCommander, qrys AccountQuerier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoRoute(NoRoute)
	r.NoMethod(NoMethod)
	RegisterRoutes(r, NewAccountHandler(cmds, qrys))
	return r
}

func acctDoRequest(router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		var raw string
		if s, ok := body.(string); ok {
			raw = s
		} else {
			b, _ := json.Marshal(body)
			raw = string(b)
		}
		req, _ = http.NewRequest(method, url, strings.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not a JSON message: %s", w.Body.String())
	}
	return resp.Message
}

func strPtr(s string) *string { return &s }

// ---- test data ----

var joined = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

var aTestAccountView = &models.AccountView{
	ID:          7,
	Name:        "John Doe",
	Email:       "john@doe.com",
	Address:     strPtr("123 Main St."),
	PhoneNumber: strPtr("555-1212"),
	DateJoined:  &joined,
}

func aValidBody() map[string]interface{} {
	return map[string]interface{}{
		"name":         "John Doe",
		"email":        "john@doe.com",
		"address":      "123 Main St.",
		"phone_number": "555-1212",
	}
}

func existingAccount(q cqrs.GetAccountQuery) (*models.AccountView, error) {
	return aTestAccountView, nil
}

func missingAccount(q cqrs.GetAccountQuery) (*models.AccountView, error) {
	return nil, repository.ErrNotFound
}

// ---- tests ----

func TestCreateAccount(t *testing.T) {
	tests := []struct {
		name            string
		body            interface{}
		createFn        func(cqrs.CreateAccountCommand) (*models.AccountView, error)
		expectedStatus  int
		expectedMessage string
	}{
		{
			name: "success - create account",
			body: aValidBody(),
			createFn: func(cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
				if cmd.Name != "John Doe" || cmd.Email != "john@doe.com" || *cmd.PhoneNumber != "555-1212" {
					return nil, fmt.Errorf("unexpected command %+v", cmd)
				}
				return aTestAccountView, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "success - optional fields absent and unknown keys ignored",
			body: map[string]interface{}{"name": "Jane", "email": "jane@doe.com", "id": 99, "date_joined": "x"},
			createFn: func(cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
				if cmd.Address != nil || cmd.PhoneNumber != nil {
					return nil, fmt.Errorf("optional fields should be nil")
				}
				return &models.AccountView{ID: 1, Name: cmd.Name, Email: cmd.Email, DateJoined: &joined}, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:            "bad request - missing name",
			body:            map[string]interface{}{"email": "john@doe.com"},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid account: missing name",
		},
		{
			name:            "bad request - missing email",
			body:            map[string]interface{}{"name": "John Doe"},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid account: missing email",
		},
		{
			name:            "bad request - no body",
			body:            nil,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: badBodyMessage,
		},
		{
			name:            "bad request - body is an array",
			body:            `[{"name":"John Doe"}]`,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: badBodyMessage,
		},
		{
			name:            "bad request - malformed json",
			body:            `{"name":`,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: badBodyMessage,
		},
		{
			name: "conflict - duplicate email",
			body: aValidBody(),
			createFn: func(cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
				return nil, fmt.Errorf("email %q: %w", cmd.Email, repository.ErrConflict)
			},
			expectedStatus:  http.StatusConflict,
			expectedMessage: "Account with email 'john@doe.com' already exists.",
		},
		{
			name: "bad request - store rejects an over-long name",
			body: aValidBody(),
			createFn: func(cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
				return nil, fmt.Errorf("failed to create account: %w", repository.Invalidf("name too long"))
			},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid account: name too long",
		},
		{
			name: "internal error - store failure is not leaked",
			body: aValidBody(),
			createFn: func(cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
				return nil, fmt.Errorf("disk I/O error")
			},
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "Failed to create account",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockAccountCommander{createFn: tt.createFn}
			router := newAccountTestRouter(cmds, &mockAccountQuerier{})
			w := acctDoRequest(router, http.MethodPost, "/accounts", tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedMessage != "" {
				if got := decodeMessage(t, w); got != tt.expectedMessage {
					t.Errorf("[%s] expected message %q got %q", tt.name, tt.expectedMessage, got)
				}
			}
		})
	}
}

func TestCreateAccountResponseShape(t *testing.T) {
	cmds := &mockAccountCommander{createFn: func(cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
		return &models.AccountView{ID: 3, Name: cmd.Name, Email: cmd.Email, DateJoined: &joined}, nil
	}}
	router := newAccountTestRouter(cmds, &mockAccountQuerier{})
	w := acctDoRequest(router, http.MethodPost, "/accounts", map[string]string{"name": "Jane", "email": "jane@doe.com"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d; body: %s", w.Code, w.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	for _, key := range []string{"id", "name", "email", "address", "phone_number", "date_joined"} {
		if _, ok := body[key]; !ok {
			t.Errorf("expected key %q in %s", key, w.Body.String())
		}
	}
	if body["address"] != nil || body["phone_number"] != nil {
		t.Errorf("expected null optional fields, got %s", w.Body.String())
	}
	if body["date_joined"] != "2024-03-01T12:00:00Z" {
		t.Errorf("unexpected date_joined %v", body["date_joined"])
	}
}

func TestListAccounts(t *testing.T) {
	tests := []struct {
		name           string
		listFn         func(cqrs.ListAccountsQuery) ([]models.AccountView, error)
		expectedStatus int
		expectedBody   string
		expectedCount  int
	}{
		{
			name: "success - list accounts",
			listFn: func(q cqrs.ListAccountsQuery) ([]models.AccountView, error) {
				return []models.AccountView{*aTestAccountView, *aTestAccountView}, nil
			},
			expectedStatus: http.StatusOK,
			expectedCount:  2,
		},
		{
			name:           "success - empty list is an empty array",
			listFn:         func(q cqrs.ListAccountsQuery) ([]models.AccountView, error) { return nil, nil },
			expectedStatus: http.StatusOK,
			expectedBody:   "[]",
		},
		{
			name:           "internal error",
			listFn:         func(q cqrs.ListAccountsQuery) ([]models.AccountView, error) { return nil, fmt.Errorf("boom") },
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountCommander{}, &mockAccountQuerier{listFn: tt.listFn})
			w := acctDoRequest(router, http.MethodGet, "/accounts", nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedBody != "" && w.Body.String() != tt.expectedBody {
				t.Errorf("[%s] expected body %s got %s", tt.name, tt.expectedBody, w.Body.String())
			}
			if tt.expectedCount > 0 {
				var views []models.AccountView
				if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
					t.Fatalf("invalid JSON: %v", err)
				}
				if len(views) != tt.expectedCount {
					t.Errorf("[%s] expected %d accounts got %d", tt.name, tt.expectedCount, len(views))
				}
			}
		})
	}
}

func TestListAccountsByEmail(t *testing.T) {
	qrys := &mockAccountQuerier{byEmailFn: func(q cqrs.GetAccountByEmailQuery) (*models.AccountView, error) {
		if q.Email == "john@doe.com" {
			return aTestAccountView, nil
		}
		return nil, repository.ErrNotFound
	}}
	router := newAccountTestRouter(&mockAccountCommander{}, qrys)

	w := acctDoRequest(router, http.MethodGet, "/accounts?email=john@doe.com", nil)
	var views []models.AccountView
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil || len(views) != 1 || views[0].ID != 7 {
		t.Fatalf("expected the matching account, got %d %s", w.Code, w.Body.String())
	}

	w = acctDoRequest(router, http.MethodGet, "/accounts?email=nobody@doe.com", nil)
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Fatalf("expected empty array, got %d %s", w.Code, w.Body.String())
	}
}

func TestGetAccount(t *testing.T) {
	tests := []struct {
		name            string
		id              string
		getFn           func(cqrs.GetAccountQuery) (*models.AccountView, error)
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:           "success - fetch account",
			id:             "7",
			getFn:          existingAccount,
			expectedStatus: http.StatusOK,
		},
		{
			name:            "not found - account does not exist",
			id:              "999",
			getFn:           missingAccount,
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "Account with id '999' was not found.",
		},
		{
			name:            "not found - leading zeros name the numeric id",
			id:              "007",
			getFn:           missingAccount,
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "Account with id '7' was not found.",
		},
		{
			name:            "not found - id is not an integer",
			id:              "abc",
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "Account with id 'abc' was not found.",
		},
		{
			name:            "not found - id zero is never issued",
			id:              "0",
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "Account with id '0' was not found.",
		},
		{
			name:           "internal error",
			id:             "7",
			getFn:          func(q cqrs.GetAccountQuery) (*models.AccountView, error) { return nil, fmt.Errorf("boom") },
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountCommander{}, &mockAccountQuerier{getFn: tt.getFn})
			w := acctDoRequest(router, http.MethodGet, "/accounts/"+tt.id, nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedMessage != "" {
				if got := decodeMessage(t, w); got != tt.expectedMessage {
					t.Errorf("[%s] expected message %q got %q", tt.name, tt.expectedMessage, got)
				}
			}
		})
	}
}

func TestUpdateAccount(t *testing.T) {
	tests := []struct {
		name            string
		id              string
		body            interface{}
		getFn           func(cqrs.GetAccountQuery) (*models.AccountView, error)
		updateFn        func(cqrs.UpdateAccountCommand) (*models.AccountView, error)
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:  "success - update account",
			id:    "7",
			body:  map[string]interface{}{"name": "Updated Name", "email": "updated@example.com"},
			getFn: existingAccount,
			updateFn: func(cmd cqrs.UpdateAccountCommand) (*models.AccountView, error) {
				return &models.AccountView{ID: 42, Name: cmd.Name, Email: cmd.Email, DateJoined: &joined}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:            "not found - account does not exist",
			id:              "999",
			body:            aValidBody(),
			getFn:           missingAccount,
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "Account with id '999' was not found.",
		},
		{
			name:            "not found - checked before the body",
			id:              "999",
			body:            nil,
			getFn:           missingAccount,
			expectedStatus:  http.StatusNotFound,
			expectedMessage: "Account with id '999' was not found.",
		},
		{
			name: "not found - deleted between lookup and write",
			id:   "7",
			body: aValidBody(),
			getFn: existingAccount,
			updateFn: func(cmd cqrs.UpdateAccountCommand) (*models.AccountView, error) {
				return nil, repository.ErrNotFound
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:            "bad request - missing email",
			id:              "7",
			body:            map[string]interface{}{"name": "Updated Name"},
			getFn:           existingAccount,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid account: missing email",
		},
		{
			name: "conflict - email taken by another account",
			id:   "7",
			body: aValidBody(),
			getFn: existingAccount,
			updateFn: func(cmd cqrs.UpdateAccountCommand) (*models.AccountView, error) {
				return nil, repository.ErrConflict
			},
			expectedStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockAccountCommander{updateFn: tt.updateFn}
			router := newAccountTestRouter(cmds, &mockAccountQuerier{getFn: tt.getFn})
			w := acctDoRequest(router, http.MethodPut, "/accounts/"+tt.id, tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedMessage != "" {
				if got := decodeMessage(t, w); got != tt.expectedMessage {
					t.Errorf("[%s] expected message %q got %q", tt.name, tt.expectedMessage, got)
				}
			}
		})
	}
}

func TestUpdateAccountForcesPathID(t *testing.T) {
	cmds := &mockAccountCommander{updateFn: func(cmd cqrs.UpdateAccountCommand) (*models.AccountView, error) {
		if cmd.ID != 7 {
			return nil, fmt.Errorf("expected id 7, got %d", cmd.ID)
		}
		return &models.AccountView{ID: 1234, Name: cmd.Name, Email: cmd.Email}, nil
	}}
	router := newAccountTestRouter(cmds, &mockAccountQuerier{getFn: existingAccount})
	w := acctDoRequest(router, http.MethodPut, "/accounts/7", aValidBody())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body: %s", w.Code, w.Body.String())
	}
	var view models.AccountView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if view.ID != 7 {
		t.Errorf("expected id 7 in response, got %d", view.ID)
	}
}

func TestDeleteAccount(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		deleteFn       func(cqrs.DeleteAccountCommand) error
		expectedStatus int
	}{
		{
			name:           "success - delete account",
			id:             "7",
			deleteFn:       func(cmd cqrs.DeleteAccountCommand) error { return nil },
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "success - unparsable id is silently ignored",
			id:             "abc",
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "internal error",
			id:             "7",
			deleteFn:       func(cmd cqrs.DeleteAccountCommand) error { return fmt.Errorf("boom") },
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockAccountCommander{deleteFn: tt.deleteFn}
			router := newAccountTestRouter(cmds, &mockAccountQuerier{})
			w := acctDoRequest(router, http.MethodDelete, "/accounts/"+tt.id, nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus == http.StatusNoContent && w.Body.Len() != 0 {
				t.Errorf("[%s] expected empty body, got %q", tt.name, w.Body.String())
			}
		})
	}
}

func TestUtilityRoutes(t *testing.T) {
	router := newAccountTestRouter(&mockAccountCommander{}, &mockAccountQuerier{})

	w := acctDoRequest(router, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK || decodeMessage(t, w) != "Account Service" {
		t.Errorf("unexpected index response %d %s", w.Code, w.Body.String())
	}

	w = acctDoRequest(router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"status":"healthy"}` {
		t.Errorf("unexpected health response %d %s", w.Code, w.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := newAccountTestRouter(&mockAccountCommander{}, &mockAccountQuerier{})
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/accounts"},
		{http.MethodPut, "/accounts"},
		{http.MethodPost, "/accounts/7"},
		{http.MethodPost, "/health"},
	}
	for _, tt := range tests {
		w := acctDoRequest(router, tt.method, tt.path, nil)
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: expected 405 got %d", tt.method, tt.path, w.Code)
		}
	}

	w := acctDoRequest(router, http.MethodGet, "/nowhere", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown path, got %d", w.Code)
	}
}
