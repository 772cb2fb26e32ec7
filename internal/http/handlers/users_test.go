package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rloughlin/posthub/internal/domain/user"
	"github.com/rloughlin/posthub/internal/http/handlers"
	"github.com/rloughlin/posthub/internal/security"
)

func TestListUsersHandler(t *testing.T) {
	account := activeUser(t, "dev_user", "password123")

	tests := []struct {
		name           string
		url            string
		storeSetup     func(*fakeUsersStore)
		wantStatusCode int
		wantTotal      int
	}{
		{
			name: "success_default_page",
			url:  "/users",
			storeSetup: func(f *fakeUsersStore) {
				f.listFn = func(ctx context.Context, filter user.ListFilter) ([]user.User, int, error) {
					if filter.Limit != 100 || filter.Offset != 0 {
						return nil, 0, errors.New("default page not applied")
					}
					return []user.User{account}, 1, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantTotal:      1,
		},
		{
			name: "success_explicit_page",
			url:  "/users?skip=5&limit=2",
			storeSetup: func(f *fakeUsersStore) {
				f.listFn = func(ctx context.Context, filter user.ListFilter) ([]user.User, int, error) {
					if filter.Limit != 2 || filter.Offset != 5 {
						return nil, 0, errors.New("page params not passed through")
					}
					return []user.User{}, 42, nil
				}
			},
			wantStatusCode: http.StatusOK,
			wantTotal:      42,
		},
		{
			// oversized limits are clamped, not rejected
			name: "limit_capped",
			url:  "/users?limit=99999",
			storeSetup: func(f *fakeUsersStore) {
				f.listFn = func(ctx context.Context, filter user.ListFilter) ([]user.User, int, error) {
					if filter.Limit != 1000 {
						return nil, 0, errors.New("limit not capped")
					}
					return []user.User{}, 0, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "repo_error",
			url:  "/users",
			storeSetup: func(f *fakeUsersStore) {
				f.listFn = func(ctx context.Context, filter user.ListFilter) ([]user.User, int, error) {
					return nil, 0, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUsersStore{}

			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := handlers.NewUsersHandler(store)
			r := setupRouter(http.MethodGet, "/users", h.List)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK && tt.wantTotal > 0 {
				var resp struct {
					Total int `json:"total"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.Total != tt.wantTotal {
					t.Fatalf("got total %d, want %d", resp.Total, tt.wantTotal)
				}
			}
		})
	}
}

func TestGetUserByIDHandler(t *testing.T) {
	account := activeUser(t, "dev_user", "password123")

	tests := []struct {
		name           string
		url            string
		storeSetup     func(*fakeUsersStore)
		wantStatusCode int
	}{
		{
			name: "success",
			url:  "/users/" + account.ID,
			storeSetup: func(f *fakeUsersStore) {
				f.getByIDFn = func(ctx context.Context, id string) (user.User, error) {
					return account, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "not_found",
			url:            "/users/" + newUUID(),
			wantStatusCode: http.StatusNotFound,
		},
		{
			// a malformed id is a 404, never a store round trip
			name: "malformed_id",
			url:  "/users/not-a-uuid",
			storeSetup: func(f *fakeUsersStore) {
				f.getByIDFn = func(ctx context.Context, id string) (user.User, error) {
					return user.User{}, errors.New("store should not be called")
				}
			},
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "repo_error",
			url:  "/users/" + account.ID,
			storeSetup: func(f *fakeUsersStore) {
				f.getByIDFn = func(ctx context.Context, id string) (user.User, error) {
					return user.User{}, errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUsersStore{}

			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := handlers.NewUsersHandler(store)
			r := setupRouter(http.MethodGet, "/users/:id", h.GetByID)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestUpdateMeHandler(t *testing.T) {
	account := activeUser(t, "dev_user", "password123")

	tests := []struct {
		name           string
		body           string
		updateFn       func(t *testing.T, id string, params user.UpdateParams) (user.User, error)
		wantStatusCode int
	}{
		{
			name: "success",
			body: `{"fullName": "Renamed User"}`,
			updateFn: func(t *testing.T, id string, params user.UpdateParams) (user.User, error) {
				if id != account.ID {
					t.Fatalf("update targeted %q, want own id %q", id, account.ID)
				}
				if params.FullName == nil || *params.FullName != "Renamed User" {
					t.Fatalf("fullName not passed through: %+v", params)
				}
				if params.Role != nil {
					t.Fatalf("self-update must never carry a role change")
				}

				updated := account
				updated.FullName = "Renamed User"
				return updated, nil
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "password_is_hashed",
			body: `{"password": "newpassword456"}`,
			updateFn: func(t *testing.T, id string, params user.UpdateParams) (user.User, error) {
				if params.PasswordHash == nil {
					t.Fatalf("expected a password hash in params")
				}
				if *params.PasswordHash == "newpassword456" {
					t.Fatalf("plaintext password reached the store")
				}
				if err := security.CheckPassword(*params.PasswordHash, "newpassword456"); err != nil {
					t.Fatalf("stored hash does not match the new password: %v", err)
				}
				return account, nil
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "email_taken",
			body: `{"email": "taken@example.com"}`,
			updateFn: func(t *testing.T, id string, params user.UpdateParams) (user.User, error) {
				return user.User{}, user.ErrEmailTaken
			},
			wantStatusCode: http.StatusConflict,
		},
		{
			name:           "invalid_email",
			body:           `{"email": "not-an-email"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := resolverFor(account)

			if tt.updateFn != nil {
				store.updateFn = func(ctx context.Context, id string, params user.UpdateParams) (user.User, error) {
					return tt.updateFn(t, id, params)
				}
			}

			h := handlers.NewUsersHandler(store)
			r := setupProtectedRouter(http.MethodPut, "/users/me", store, h.UpdateMe)

			req := httptest.NewRequest(http.MethodPut, "/users/me", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", bearerFor(t, account))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestAdminUpdateUserHandler(t *testing.T) {
	target := activeUser(t, "plain_user", "password123")

	tests := []struct {
		name           string
		url            string
		body           string
		storeSetup     func(*fakeUsersStore)
		wantStatusCode int
	}{
		{
			name: "role_change",
			url:  "/users/" + target.ID,
			body: `{"role": "admin"}`,
			storeSetup: func(f *fakeUsersStore) {
				f.updateFn = func(ctx context.Context, id string, params user.UpdateParams) (user.User, error) {
					if params.Role == nil || *params.Role != user.RoleAdmin {
						return user.User{}, errors.New("role change not passed through")
					}
					promoted := target
					promoted.Role = user.RoleAdmin
					return promoted, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name: "deactivate",
			url:  "/users/" + target.ID,
			body: `{"isActive": false}`,
			storeSetup: func(f *fakeUsersStore) {
				f.updateFn = func(ctx context.Context, id string, params user.UpdateParams) (user.User, error) {
					if params.IsActive == nil || *params.IsActive {
						return user.User{}, errors.New("isActive change not passed through")
					}
					disabled := target
					disabled.IsActive = false
					return disabled, nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "unknown_role",
			url:            "/users/" + target.ID,
			body:           `{"role": "superuser"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "not_found",
			url:            "/users/" + newUUID(),
			body:           `{"fullName": "Whoever"}`,
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "malformed_id",
			url:            "/users/42",
			body:           `{"fullName": "Whoever"}`,
			wantStatusCode: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUsersStore{}

			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := handlers.NewUsersHandler(store)
			r := setupRouter(http.MethodPut, "/users/:id", h.UpdateByID)

			req := httptest.NewRequest(http.MethodPut, tt.url, bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestDeleteUserHandler(t *testing.T) {
	validID := newUUID()

	tests := []struct {
		name           string
		url            string
		storeSetup     func(*fakeUsersStore)
		wantStatusCode int
	}{
		{
			name: "success",
			url:  "/users/" + validID,
			storeSetup: func(f *fakeUsersStore) {
				f.deleteFn = func(ctx context.Context, id string) error {
					return nil
				}
			},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "not_found",
			url:            "/users/" + newUUID(),
			wantStatusCode: http.StatusNotFound,
		},
		{
			name:           "malformed_id",
			url:            "/users/nope",
			wantStatusCode: http.StatusNotFound,
		},
		{
			name: "repo_error",
			url:  "/users/" + validID,
			storeSetup: func(f *fakeUsersStore) {
				f.deleteFn = func(ctx context.Context, id string) error {
					return errors.New("db error")
				}
			},
			wantStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			store := &fakeUsersStore{}

			if tt.storeSetup != nil {
				tt.storeSetup(store)
			}

			h := handlers.NewUsersHandler(store)
			r := setupRouter(http.MethodDelete, "/users/:id", h.DeleteByID)

			req := httptest.NewRequest(http.MethodDelete, tt.url, nil)
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantStatusCode == http.StatusOK {
				var resp struct {
					Message string `json:"message"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to unmarshal response: %v", err)
				}
				if resp.Message != "User deleted successfully" {
					t.Fatalf("unexpected delete message: %q", resp.Message)
				}
			}
		})
	}
}
