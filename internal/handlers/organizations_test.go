package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/estatehub/internal/handlers/testutil"
)

type organizationPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type issuedInvitation struct {
	Invitation struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"invitation"`
	Token     string `json:"token"`
	AcceptURL string `json:"accept_url"`
}

func createOrganization(t *testing.T, env *testutil.Env, token, name string) organizationPayload {
	t.Helper()
	w := env.Request(http.MethodPost, "/api/orgs", map[string]any{"name": name}, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var org organizationPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &org)
	require.NotEmpty(t, org.ID)
	return org
}

func invite(t *testing.T, env *testutil.Env, inviter testutil.Session, orgID, email, role string) issuedInvitation {
	t.Helper()
	w := env.Request(http.MethodPost, "/api/orgs/"+orgID+"/invitations", map[string]any{
		"email": email,
		"role":  role,
	}, inviter.AccessToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var issued issuedInvitation
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &issued)
	require.NotEmpty(t, issued.Token)
	return issued
}

// addMember invites member into the organization and accepts on their behalf.
func addMember(t *testing.T, env *testutil.Env, inviter, member testutil.Session, orgID, role string) {
	t.Helper()
	issued := invite(t, env, inviter, orgID, member.User.Email, role)
	w := env.Request(http.MethodPost, "/api/invitations/accept", map[string]any{"token": issued.Token}, member.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestOrganizationCRUD(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Register("owner")
	stranger := env.Register("stranger")

	org := createOrganization(t, env, owner.AccessToken, "Harbour Homes")
	require.Equal(t, "harbour-homes", org.Slug)

	w := env.Request(http.MethodPost, "/api/orgs", map[string]any{"name": "Harbour Homes"}, stranger.AccessToken)
	testutil.RequireError(t, w, http.StatusConflict, "CONFLICT")

	w = env.Request(http.MethodGet, "/api/orgs/"+org.ID, nil, owner.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/orgs/"+org.ID, nil, stranger.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodPatch, "/api/orgs/"+org.ID, map[string]any{"description": "Waterfront specialists"}, owner.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/orgs", nil, owner.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var memberships []struct {
		Organization organizationPayload `json:"organization"`
		Role         string              `json:"role"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &memberships)
	require.Len(t, memberships, 1)
	require.Equal(t, "owner", memberships[0].Role)

	w = env.Request(http.MethodDelete, "/api/orgs/"+org.ID, nil, stranger.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodDelete, "/api/orgs/"+org.ID, nil, owner.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/orgs/"+org.ID, nil, owner.AccessToken)
	require.Contains(t, []int{http.StatusForbidden, http.StatusNotFound}, w.Code)
}

func TestInvitationFlow(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Register("owner")
	agent := env.Register("agent")
	other := env.Register("other")

	org := createOrganization(t, env, owner.AccessToken, "Summit Estates")

	issued := invite(t, env, owner, org.ID, agent.User.Email, "member")
	require.Equal(t, strings.ToLower(agent.User.Email), issued.Invitation.Email)
	require.Contains(t, issued.AcceptURL, "https://homes.test")

	messages := env.Mailer.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, []string{issued.Invitation.Email}, messages[0].To)
	require.Contains(t, messages[0].Body, issued.AcceptURL)

	w := env.Request(http.MethodGet, "/api/orgs/"+org.ID+"/invitations", nil, owner.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/invitations/accept", map[string]any{"token": issued.Token}, other.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodPost, "/api/invitations/accept", map[string]any{"token": "unknown"}, agent.AccessToken)
	testutil.RequireError(t, w, http.StatusNotFound, "NOT_FOUND")

	w = env.Request(http.MethodPost, "/api/invitations/accept", map[string]any{"token": issued.Token}, agent.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/invitations/accept", map[string]any{"token": issued.Token}, agent.AccessToken)
	testutil.RequireError(t, w, http.StatusConflict, "CONFLICT")

	w = env.Request(http.MethodGet, "/api/orgs/"+org.ID+"/members", nil, agent.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var members []struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &members)
	require.Len(t, members, 2)

	// Members cannot invite; only owners may invite owners.
	w = env.Request(http.MethodPost, "/api/orgs/"+org.ID+"/invitations", map[string]any{
		"email": "new@example.com",
		"role":  "viewer",
	}, agent.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	revoked := invite(t, env, owner, org.ID, "later@example.com", "viewer")
	w = env.Request(http.MethodDelete, "/api/orgs/"+org.ID+"/invitations/"+revoked.Invitation.ID, nil, owner.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestMembershipManagement(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Register("owner")
	admin := env.Register("admin")
	member := env.Register("member")

	org := createOrganization(t, env, owner.AccessToken, "Valley Living")
	addMember(t, env, owner, admin, org.ID, "admin")
	addMember(t, env, owner, member, org.ID, "member")

	w := env.Request(http.MethodPost, "/api/orgs/"+org.ID+"/invitations", map[string]any{
		"email": "partner@example.com",
		"role":  "owner",
	}, admin.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodPatch, "/api/orgs/"+org.ID+"/members/"+member.User.ID, map[string]any{"role": "owner"}, admin.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodPatch, "/api/orgs/"+org.ID+"/members/"+member.User.ID, map[string]any{"role": "viewer"}, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPatch, "/api/orgs/"+org.ID+"/members/"+member.User.ID, map[string]any{"role": "superuser"}, owner.AccessToken)
	testutil.RequireError(t, w, http.StatusBadRequest, "VALIDATION_ERROR")

	w = env.Request(http.MethodDelete, "/api/orgs/"+org.ID+"/members/"+owner.User.ID, nil, admin.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")

	w = env.Request(http.MethodPost, "/api/orgs/"+org.ID+"/leave", nil, owner.AccessToken)
	testutil.RequireError(t, w, http.StatusConflict, "CONFLICT")

	w = env.Request(http.MethodDelete, "/api/orgs/"+org.ID+"/members/"+member.User.ID, nil, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodPost, "/api/orgs/"+org.ID+"/leave", nil, admin.AccessToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.Request(http.MethodGet, "/api/orgs/"+org.ID+"/members", nil, admin.AccessToken)
	testutil.RequireError(t, w, http.StatusForbidden, "FORBIDDEN")
}
