package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrishnan/libraryops/internal/api"
	"github.com/mkrishnan/libraryops/internal/auth"
	"github.com/mkrishnan/libraryops/internal/domain"
	"github.com/mkrishnan/libraryops/internal/service"
	"github.com/mkrishnan/libraryops/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := store.NewMemory()
	authSvc := auth.New(st)

	ctx := context.Background()
	_, err := authSvc.Register(ctx, "admin", "adminpw", domain.RoleAdmin)
	require.NoError(t, err)
	_, err = authSvc.Register(ctx, "patron", "patronpw", domain.RoleUser)
	require.NoError(t, err)

	h := api.NewHandler(
		service.NewCatalog(st),
		service.NewMemberships(st),
		service.NewLoans(st),
		authSvc,
	)
	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, user, pass string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req, err := http.NewRequest(method, srv.URL+path, &body)
	require.NoError(t, err)
	if user != "" {
		req.SetBasicAuth(user, pass)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	decoded := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func Test_Authentication_And_Capabilities(t *testing.T) {
	srv := newTestServer(t)

	item := map[string]string{"kind": "book", "title": "Dune", "author": "Herbert"}

	t.Run("missing_credentials", func(t *testing.T) {
		resp, _ := doRequest(t, srv, "POST", "/api/v1/items", "", "", item)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("bad_password", func(t *testing.T) {
		resp, _ := doRequest(t, srv, "POST", "/api/v1/items", "admin", "wrong", item)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("user_cannot_manage_catalog", func(t *testing.T) {
		resp, _ := doRequest(t, srv, "POST", "/api/v1/items", "patron", "patronpw", item)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("user_can_search_and_circulate", func(t *testing.T) {
		resp, _ := doRequest(t, srv, "GET", "/api/v1/items?title=dune", "patron", "patronpw", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = doRequest(t, srv, "GET", "/api/v1/reports/overdue", "patron", "patronpw", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("admin_can_manage_catalog", func(t *testing.T) {
		resp, body := doRequest(t, srv, "POST", "/api/v1/items", "admin", "adminpw", item)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.NotZero(t, body["id"])
	})
}

func Test_CirculationFlow_OverHTTP(t *testing.T) {
	srv := newTestServer(t)

	// Admin sets up catalog and membership.
	resp, body := doRequest(t, srv, "POST", "/api/v1/items", "admin", "adminpw",
		map[string]string{"kind": "book", "title": "Dune", "author": "Herbert"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	itemID := int64(body["id"].(float64))

	resp, body = doRequest(t, srv, "POST", "/api/v1/memberships", "admin", "adminpw",
		map[string]string{"name": "Asha Rao", "duration": "1y"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	membershipNo := int64(body["membership_no"].(float64))

	t.Run("sixteen_day_due_date_rejected", func(t *testing.T) {
		resp, body := doRequest(t, srv, "POST", "/api/v1/loans", "patron", "patronpw", map[string]any{
			"item_id":       itemID,
			"membership_no": membershipNo,
			"issue_date":    "2024-01-01",
			"due_date":      "2024-01-17",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "return date cannot exceed 15 days", body["error"])
	})

	var loanID int64
	t.Run("issue_defaults_due_date", func(t *testing.T) {
		resp, body := doRequest(t, srv, "POST", "/api/v1/loans", "patron", "patronpw", map[string]any{
			"item_id":       itemID,
			"membership_no": membershipNo,
			"issue_date":    "2024-01-01",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "2024-01-16", body["due_date"])
		loanID = int64(body["loan_id"].(float64))
	})

	t.Run("second_issue_conflicts", func(t *testing.T) {
		resp, _ := doRequest(t, srv, "POST", "/api/v1/loans", "patron", "patronpw", map[string]any{
			"item_id":       itemID,
			"membership_no": membershipNo,
			"issue_date":    "2024-01-02",
		})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("issued_item_leaves_search_results", func(t *testing.T) {
		resp, _ := doRequest(t, srv, "GET", "/api/v1/items?title=dune", "patron", "patronpw", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("late_return_without_payment", func(t *testing.T) {
		resp, body := doRequest(t, srv, "POST", fmt.Sprintf("/api/v1/loans/%d/return", loanID),
			"patron", "patronpw", map[string]any{"return_date": "2024-01-20", "fine_paid": false})
		assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
		assert.Equal(t, float64(20), body["fine"])
	})

	t.Run("late_return_with_payment", func(t *testing.T) {
		resp, body := doRequest(t, srv, "POST", fmt.Sprintf("/api/v1/loans/%d/return", loanID),
			"patron", "patronpw", map[string]any{"return_date": "2024-01-20", "fine_paid": true})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(20), body["fine"])
	})

	t.Run("double_return_not_found", func(t *testing.T) {
		resp, _ := doRequest(t, srv, "POST", fmt.Sprintf("/api/v1/loans/%d/return", loanID),
			"patron", "patronpw", map[string]any{"return_date": "2024-01-21", "fine_paid": true})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func Test_MembershipEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doRequest(t, srv, "POST", "/api/v1/memberships", "admin", "adminpw",
		map[string]string{"name": "Asha Rao"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := int64(body["membership_no"].(float64))

	t.Run("extend", func(t *testing.T) {
		resp, body := doRequest(t, srv, "POST", fmt.Sprintf("/api/v1/memberships/%d/extend", id),
			"admin", "adminpw", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, body["end_date"])
	})

	t.Run("active_check", func(t *testing.T) {
		resp, body := doRequest(t, srv, "GET",
			fmt.Sprintf("/api/v1/memberships/%d/active", id), "patron", "patronpw", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, body["active"])
	})

	t.Run("cancel_then_inactive", func(t *testing.T) {
		resp, _ := doRequest(t, srv, "POST", fmt.Sprintf("/api/v1/memberships/%d/cancel", id),
			"admin", "adminpw", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := doRequest(t, srv, "GET",
			fmt.Sprintf("/api/v1/memberships/%d/active", id), "patron", "patronpw", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, false, body["active"])
	})

	t.Run("unknown_membership", func(t *testing.T) {
		resp, _ := doRequest(t, srv, "POST", "/api/v1/memberships/999/extend", "admin", "adminpw", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("blank_name_rejected", func(t *testing.T) {
		resp, _ := doRequest(t, srv, "POST", "/api/v1/memberships", "admin", "adminpw",
			map[string]string{"name": "  "})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func Test_UserManagementEndpoints(t *testing.T) {
	srv := newTestServer(t)

	t.Run("admin_creates_user", func(t *testing.T) {
		resp, _ := doRequest(t, srv, "POST", "/api/v1/users", "admin", "adminpw",
			map[string]string{"name": "ravi", "password": "pw", "role": "user"})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, _ = doRequest(t, srv, "GET", "/api/v1/reports/overdue", "ravi", "pw", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("password_change_rotates_credential", func(t *testing.T) {
		resp, _ := doRequest(t, srv, "PUT", "/api/v1/users/ravi/password", "admin", "adminpw",
			map[string]string{"password": "rotated"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = doRequest(t, srv, "GET", "/api/v1/reports/overdue", "ravi", "pw", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp, _ = doRequest(t, srv, "GET", "/api/v1/reports/overdue", "ravi", "rotated", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("user_cannot_manage_users", func(t *testing.T) {
		resp, _ := doRequest(t, srv, "POST", "/api/v1/users", "ravi", "rotated",
			map[string]string{"name": "eve", "password": "pw", "role": "admin"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}

func Test_HealthEndpoint_IsOpen(t *testing.T) {
	srv := newTestServer(t)
	resp, body := doRequest(t, srv, "GET", "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
