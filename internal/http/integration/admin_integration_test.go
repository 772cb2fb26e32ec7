package integration_test

import (
	"net/http"
	"strings"
	"testing"
)

type userListResponse struct {
	Items []userResponse `json:"items"`
	Total int            `json:"total"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
}

func TestAdminIntegration_AccessControl(t *testing.T) {
	router := setupTestRouter(t)

	registerUser(t, router, "pleb@example.com", "pleb", "password123")
	userToken := loginUser(t, router, "pleb", "password123")

	adminPaths := []string{
		"/api/v1/users",
		"/api/v1/admin/dashboard",
		"/api/v1/admin/users/stats",
		"/api/v1/admin/posts/stats",
	}

	for _, path := range adminPaths {
		// anonymous callers are asked to authenticate first
		if w := doRequest(router, http.MethodGet, path, ""); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s anonymous got status %d, want %d", path, w.Code, http.StatusUnauthorized)
		}

		// authenticated regular users are refused
		w := doAuthed(router, http.MethodGet, path, "", userToken)

		if w.Code != http.StatusForbidden {
			t.Fatalf("%s as user got status %d, want %d, body=%s", path, w.Code, http.StatusForbidden, w.Body.String())
		}

		var resp apiErrorResponse
		mustReadJSON(t, w, &resp)

		if resp.Error.Code != "forbidden" {
			t.Fatalf("%s expected forbidden, got %s", path, resp.Error.Code)
		}
	}
}

func TestAdminIntegration_UserManagement(t *testing.T) {
	router := setupTestRouter(t)

	target := registerUser(t, router, "target@example.com", "target_user", "password123")
	targetToken := loginUser(t, router, "target_user", "password123")
	adminToken := loginUser(t, router, "admin", "adminpassword123")

	// the target owns a post so we can watch the cascade later
	p := createPost(t, router, targetToken, "Doomed post", true)

	// 1. admin sees everyone
	w := doAuthed(router, http.MethodGet, "/api/v1/users", "", adminToken)

	if w.Code != http.StatusOK {
		t.Fatalf("list users got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var list userListResponse
	mustReadJSON(t, w, &list)

	if list.Total < 2 {
		t.Fatalf("expected at least admin and target, got total %d", list.Total)
	}

	// 2. fetch one account by id
	w = doAuthed(router, http.MethodGet, "/api/v1/users/"+target.ID, "", adminToken)

	if w.Code != http.StatusOK {
		t.Fatalf("get user got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var fetched userResponse
	mustReadJSON(t, w, &fetched)

	if fetched.Username != "target_user" {
		t.Fatalf("fetched the wrong user: %+v", fetched)
	}

	// 3. promote the target, then the target can read admin endpoints
	w = doAuthed(router, http.MethodPut, "/api/v1/users/"+target.ID, `{"role":"admin"}`, adminToken)

	if w.Code != http.StatusOK {
		t.Fatalf("promote got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var promoted userResponse
	mustReadJSON(t, w, &promoted)

	if promoted.Role != "admin" {
		t.Fatalf("promotion did not stick: %+v", promoted)
	}

	// role changes take effect on the next issued token
	promotedToken := loginUser(t, router, "target_user", "password123")

	if w := doAuthed(router, http.MethodGet, "/api/v1/admin/dashboard", "", promotedToken); w.Code != http.StatusOK {
		t.Fatalf("promoted dashboard got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	// 4. bogus role is rejected
	w = doAuthed(router, http.MethodPut, "/api/v1/users/"+target.ID, `{"role":"superuser"}`, adminToken)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("bogus role got status %d, want %d, body=%s", w.Code, http.StatusBadRequest, w.Body.String())
	}

	// 5. deleting the account removes their posts too
	w = doAuthed(router, http.MethodDelete, "/api/v1/users/"+target.ID, "", adminToken)

	if w.Code != http.StatusOK {
		t.Fatalf("delete user got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var deleted struct {
		Message string `json:"message"`
	}
	mustReadJSON(t, w, &deleted)

	if deleted.Message != "User deleted successfully" {
		t.Fatalf("unexpected delete message: %s", deleted.Message)
	}

	if w := doRequest(router, http.MethodGet, "/api/v1/posts/"+p.ID, ""); w.Code != http.StatusNotFound {
		t.Fatalf("orphan post survived the cascade, got status %d, want %d", w.Code, http.StatusNotFound)
	}
	if w := doAuthed(router, http.MethodGet, "/api/v1/users/"+target.ID, "", adminToken); w.Code != http.StatusNotFound {
		t.Fatalf("deleted user still readable, got status %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestAdminIntegration_Stats(t *testing.T) {
	router := setupTestRouter(t)

	registerUser(t, router, "author@example.com", "the_author", "password123")
	authorToken := loginUser(t, router, "the_author", "password123")

	createPost(t, router, authorToken, "Published piece", true)
	createPost(t, router, authorToken, "Draft piece", false)

	adminToken := loginUser(t, router, "admin", "adminpassword123")

	// dashboard
	w := doAuthed(router, http.MethodGet, "/api/v1/admin/dashboard", "", adminToken)

	if w.Code != http.StatusOK {
		t.Fatalf("dashboard got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var dash struct {
		Users struct {
			Total  int `json:"total"`
			Admins int `json:"admins"`
		} `json:"users"`
		Posts struct {
			Total     int `json:"total"`
			Published int `json:"published"`
			Drafts    int `json:"drafts"`
		} `json:"posts"`
		RecentUsers []userResponse `json:"recentUsers"`
	}
	mustReadJSON(t, w, &dash)

	if dash.Users.Total != 2 || dash.Users.Admins != 1 {
		t.Fatalf("user counts off: %+v", dash.Users)
	}
	if dash.Posts.Total != 2 || dash.Posts.Published != 1 || dash.Posts.Drafts != 1 {
		t.Fatalf("post counts off: %+v", dash.Posts)
	}
	if len(dash.RecentUsers) == 0 {
		t.Fatalf("expected recent users in dashboard, body=%s", w.Body.String())
	}

	// user stats
	w = doAuthed(router, http.MethodGet, "/api/v1/admin/users/stats", "", adminToken)

	if w.Code != http.StatusOK {
		t.Fatalf("user stats got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var us struct {
		Counts struct {
			Total int `json:"total"`
		} `json:"counts"`
		Registrations []struct {
			Date  string `json:"date"`
			Count int    `json:"count"`
		} `json:"registrationsLast30Days"`
		AveragePerDay float64 `json:"averagePerDay"`
	}
	mustReadJSON(t, w, &us)

	if us.Counts.Total != 2 || us.AveragePerDay <= 0 {
		t.Fatalf("user stats off: %+v", us)
	}

	// post stats
	w = doAuthed(router, http.MethodGet, "/api/v1/admin/posts/stats", "", adminToken)

	if w.Code != http.StatusOK {
		t.Fatalf("post stats got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var ps struct {
		Counts struct {
			Total int `json:"total"`
		} `json:"counts"`
		PublicationRate float64 `json:"publicationRate"`
		TopAuthors      []struct {
			Username  string `json:"username"`
			PostCount int    `json:"postCount"`
		} `json:"topAuthors"`
	}
	mustReadJSON(t, w, &ps)

	if ps.Counts.Total != 2 || ps.PublicationRate != 0.5 {
		t.Fatalf("post stats off: %+v", ps)
	}
	if len(ps.TopAuthors) != 1 || ps.TopAuthors[0].Username != "the_author" || ps.TopAuthors[0].PostCount != 2 {
		t.Fatalf("top authors off: %+v", ps.TopAuthors)
	}
}

func TestUsersIntegration_UpdateMe(t *testing.T) {
	router := setupTestRouter(t)

	registerUser(t, router, "sam@example.com", "sam_doe", "password123")
	token := loginUser(t, router, "sam_doe", "password123")

	// profile edit
	w := doAuthed(router, http.MethodPut, "/api/v1/users/me", `{"fullName":"Sam Doe"}`, token)

	if w.Code != http.StatusOK {
		t.Fatalf("update me got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var updated userResponse
	mustReadJSON(t, w, &updated)

	if updated.FullName != "Sam Doe" {
		t.Fatalf("full name not updated: %+v", updated)
	}

	// the role field is not accepted on the self endpoint
	w = doAuthed(router, http.MethodPut, "/api/v1/users/me", `{"role":"admin"}`, token)

	if w.Code == http.StatusOK {
		var sneaky userResponse
		mustReadJSON(t, w, &sneaky)

		if sneaky.Role == "admin" {
			t.Fatalf("self update escalated privileges: %+v", sneaky)
		}
	}

	// password rotation
	w = doAuthed(router, http.MethodPut, "/api/v1/users/me", `{"password":"newpassword456"}`, token)

	if w.Code != http.StatusOK {
		t.Fatalf("password change got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	old := doRequest(router, http.MethodPost, "/api/v1/auth/login/json",
		`{"username":"sam_doe","password":"password123"}`)

	if old.Code != http.StatusUnauthorized {
		t.Fatalf("old password still works, got status %d, want %d", old.Code, http.StatusUnauthorized)
	}

	_ = loginUser(t, router, "sam_doe", "newpassword456")
}

func TestInfrastructureEndpoints(t *testing.T) {
	router := setupTestRouter(t)

	// landing page
	w := doRequest(router, http.MethodGet, "/", "")

	if w.Code != http.StatusOK {
		t.Fatalf("root got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	var root struct {
		Message string `json:"message"`
		Version string `json:"version"`
		Docs    string `json:"docs"`
	}
	mustReadJSON(t, w, &root)

	if root.Version == "" || root.Docs != "/docs" {
		t.Fatalf("unexpected root payload: %s", w.Body.String())
	}

	// probes
	for _, path := range []string{"/healthz", "/livez", "/readyz"} {
		if w := doRequest(router, http.MethodGet, path, ""); w.Code != http.StatusOK {
			t.Fatalf("%s got status %d, want %d, body=%s", path, w.Code, http.StatusOK, w.Body.String())
		}
	}

	// detailed health names the store backend
	w = doRequest(router, http.MethodGet, "/health/detailed", "")

	if w.Code != http.StatusOK {
		t.Fatalf("detailed health got status %d, want %d, body=%s", w.Code, http.StatusOK, w.Body.String())
	}

	// docs
	w = doRequest(router, http.MethodGet, "/docs", "")

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<html") {
		t.Fatalf("docs got status %d, body=%s", w.Code, w.Body.String())
	}

	w = doRequest(router, http.MethodGet, "/docs/openapi.yaml", "")

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "openapi:") {
		t.Fatalf("openapi spec got status %d", w.Code)
	}

	// unknown routes fall through to a plain 404
	if w := doRequest(router, http.MethodGet, "/api/v1/unknown", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown route got status %d, want %d", w.Code, http.StatusNotFound)
	}

	// every response carries the request id header
	w = doRequest(router, http.MethodGet, "/healthz", "")

	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id header on responses")
	}
}
