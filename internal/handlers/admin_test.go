package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/estatehub/internal/handlers/testutil"
)

func TestAuditRequiresPermission(t *testing.T) {
	env := testutil.NewEnv(t)
	root := env.CreateRootUser("R00tPassword!")
	agent := env.Register("agent")

	createProperty(t, env, agent.AccessToken, map[string]any{"title": "Audited listing"})

	w := env.Request(http.MethodGet, "/api/audit", nil, agent.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodGet, "/api/audit?action=property.create", nil, root.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	var logs []struct {
		Action string  `json:"action"`
		UserID *string `json:"user_id"`
	}
	testutil.DecodeInto(t, resp.Data, &logs)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].UserID)
	require.Equal(t, agent.User.ID, *logs[0].UserID)

	w = env.Request(http.MethodGet, "/api/audit?since=yesterday", nil, root.AccessToken)
	testutil.RequireError(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestUserAdministration(t *testing.T) {
	env := testutil.NewEnv(t)
	root := env.CreateRootUser("R00tPassword!")
	agent := env.Register("agent")

	w := env.Request(http.MethodGet, "/api/users", nil, agent.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodGet, "/api/users/"+root.User.ID, nil, agent.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodGet, "/api/users?q=agent", nil, root.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var users []testutil.UserPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &users)
	require.Len(t, users, 1)
	require.Equal(t, agent.User.ID, users[0].ID)

	w = env.Request(http.MethodPost, "/api/users/"+agent.User.ID+"/deactivate", nil, root.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"identifier": agent.User.Username,
		"password":   "Sup3rSecret!",
	}, "")
	testutil.RequireError(t, w, http.StatusUnauthorized, "INVALID_CREDENTIALS")

	w = env.Request(http.MethodPost, "/api/users/"+agent.User.ID+"/activate", nil, root.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env.Login(agent.User.Username, "Sup3rSecret!")

	w = env.Request(http.MethodDelete, "/api/users/"+agent.User.ID, nil, root.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/users/"+agent.User.ID, nil, root.AccessToken)
	testutil.RequireError(t, w, http.StatusNotFound, "USER_NOT_FOUND")
}

func TestCatalogAndArticles(t *testing.T) {
	env := testutil.NewEnv(t)
	root := env.CreateRootUser("R00tPassword!")
	author := env.Register("author")

	w := env.Request(http.MethodPost, "/api/amenities", map[string]any{"name": "Gym"}, author.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodPost, "/api/amenities", map[string]any{"name": "Gym"}, root.AccessToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/amenities", map[string]any{"name": "Gym"}, root.AccessToken)
	testutil.RequireError(t, w, http.StatusConflict, "CONFLICT")

	w = env.Request(http.MethodGet, "/api/amenities", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/developers", map[string]any{"name": "Northwind Builders"}, author.AccessToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var developer struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &developer)

	w = env.Request(http.MethodGet, "/api/developers/"+developer.Slug, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPatch, "/api/developers/"+developer.ID, map[string]any{"name": "Hijacked"}, root.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodPost, "/api/articles", map[string]any{
		"title": "Buying your first home",
		"body":  "<p>Start with a budget.</p>",
	}, author.AccessToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var article struct {
		Slug   string `json:"slug"`
		Status string `json:"status"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &article)
	require.Equal(t, "buying-your-first-home", article.Slug)

	w = env.Request(http.MethodGet, "/api/articles/"+article.Slug, nil, "")
	testutil.RequireError(t, w, http.StatusNotFound, "NOT_FOUND")

	w = env.Request(http.MethodGet, "/api/articles/"+article.Slug, nil, author.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/articles/"+article.Slug+"/publish", nil, author.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/articles/"+article.Slug, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/articles", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var articles []struct {
		Slug string `json:"slug"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &articles)
	require.Len(t, articles, 1)
}

func TestSecurityPosture(t *testing.T) {
	env := testutil.NewEnv(t)
	root := env.CreateRootUser("R00tPassword!")
	agent := env.Register("agent")

	w := env.Request(http.MethodGet, "/api/security/posture", nil, agent.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodGet, "/api/security/posture", nil, root.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report struct {
		Checks []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"checks"`
		Summary map[string]int `json:"summary"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &report)
	require.Len(t, report.Checks, 6)

	statuses := make(map[string]string, len(report.Checks))
	for _, check := range report.Checks {
		statuses[check.ID] = check.Status
	}
	require.Equal(t, "pass", statuses["root_user_present"])
	// The suite allows 1000 login attempts per window.
	require.Equal(t, "warn", statuses["login_throttle"])
}

func TestUnknownRouteAndHealth(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/api/nowhere", nil, "")
	testutil.RequireError(t, w, http.StatusNotFound, "NOT_FOUND")

	w = env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestDisabledAccountsLoseAccess(t *testing.T) {
	env := testutil.NewEnv(t)
	root := env.CreateRootUser("R00tPassword!")
	agent := env.Register("agent")
	temp := env.Register("temp")

	property := createProperty(t, env, agent.AccessToken, map[string]any{"title": "Agent listing"})

	w := env.Request(http.MethodPost, "/api/users/"+agent.User.ID+"/deactivate", nil, root.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPatch, "/api/properties/"+property.ID, map[string]any{"title": "Still mine"}, agent.AccessToken)
	testutil.RequireError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
	w = env.Request(http.MethodPost, "/api/properties", map[string]any{"title": "New listing"}, agent.AccessToken)
	testutil.RequireError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")

	w = env.Request(http.MethodPost, "/api/users/"+agent.User.ID+"/activate", nil, root.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.Request(http.MethodPatch, "/api/properties/"+property.ID, map[string]any{"title": "Back again"}, agent.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodDelete, "/api/users/"+temp.User.ID, nil, root.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = env.Request(http.MethodPost, "/api/properties", map[string]any{"title": "Ghost listing"}, temp.AccessToken)
	testutil.RequireError(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}

func TestPlatformAdminsAndOrphanedOrganizations(t *testing.T) {
	env := testutil.NewEnv(t)
	root := env.CreateRootUser("R00tPassword!")
	owner := env.Register("owner")
	agent := env.Register("agent")

	org := createOrganization(t, env, owner.AccessToken, "Smith & Sons")
	require.Equal(t, "Smith & Sons", org.Name)

	w := env.Request(http.MethodDelete, "/api/users/"+owner.User.ID, nil, root.AccessToken)
	testutil.RequireError(t, w, http.StatusConflict, "CONFLICT")

	w = env.Request(http.MethodGet, "/api/admin/orgs", nil, agent.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodGet, "/api/admin/orgs?q=smith", nil, root.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.DecodeResponse(t, w)
	var listed []organizationPayload
	testutil.DecodeInto(t, resp.Data, &listed)
	require.Len(t, listed, 1)
	require.Equal(t, "Smith & Sons", listed[0].Name)

	w = env.Request(http.MethodGet, "/api/orgs/"+org.ID+"/members", nil, root.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/orgs/"+org.ID+"/members", nil, agent.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodDelete, "/api/orgs/"+org.ID, nil, root.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodDelete, "/api/users/"+owner.User.ID, nil, root.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
