package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pankaj-raikar/taskhive/internal/access"
	adminrepository "github.com/pankaj-raikar/taskhive/internal/admin/repository"
	adminservice "github.com/pankaj-raikar/taskhive/internal/admin/service"
	authdomain "github.com/pankaj-raikar/taskhive/internal/auth/domain"
	authrepository "github.com/pankaj-raikar/taskhive/internal/auth/repository"
	authservice "github.com/pankaj-raikar/taskhive/internal/auth/service"
	"github.com/pankaj-raikar/taskhive/internal/auth/session"
	"github.com/pankaj-raikar/taskhive/internal/config"
	"github.com/pankaj-raikar/taskhive/internal/observability/metrics"
	orgdomain "github.com/pankaj-raikar/taskhive/internal/organization/domain"
	orgrepository "github.com/pankaj-raikar/taskhive/internal/organization/repository"
	orgservice "github.com/pankaj-raikar/taskhive/internal/organization/service"
	projectdomain "github.com/pankaj-raikar/taskhive/internal/project/domain"
	projectrepository "github.com/pankaj-raikar/taskhive/internal/project/repository"
	projectservice "github.com/pankaj-raikar/taskhive/internal/project/service"
	"github.com/pankaj-raikar/taskhive/internal/signup"
	tagdomain "github.com/pankaj-raikar/taskhive/internal/tag/domain"
	tagrepository "github.com/pankaj-raikar/taskhive/internal/tag/repository"
	tagservice "github.com/pankaj-raikar/taskhive/internal/tag/service"
	tododomain "github.com/pankaj-raikar/taskhive/internal/todo/domain"
	todorepository "github.com/pankaj-raikar/taskhive/internal/todo/repository"
	todoservice "github.com/pankaj-raikar/taskhive/internal/todo/service"
	userdomain "github.com/pankaj-raikar/taskhive/internal/user/domain"
	userrepository "github.com/pankaj-raikar/taskhive/internal/user/repository"
	userservice "github.com/pankaj-raikar/taskhive/internal/user/service"
	"github.com/pankaj-raikar/taskhive/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&authdomain.AuthUser{},
		&authdomain.Session{},
		&userdomain.User{},
		&orgdomain.Organization{},
		&orgdomain.Member{},
		&orgdomain.Invitation{},
		&projectdomain.Project{},
		&projectdomain.Member{},
		&tododomain.Todo{},
		&tagdomain.Tag{},
		&tagdomain.TodoTag{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{Environment: config.EnvDevelopment}
	logger := zap.NewNop()

	users := userrepository.New(conn)
	orgs := orgservice.New(logger, conn, orgrepository.New(conn), users, node)
	sink := signup.NewProvisioner(logger, users, orgs, node)
	authRepo, sessionRepo := authrepository.New(conn)
	auth := authservice.New(logger, cfg, authRepo, sessionRepo, sink, node)

	m, err := metrics.New(metrics.Config{}, noop.NewMeterProvider())
	require.NoError(t, err)
	resolver := access.NewResolver(logger, auth, users, orgs, m)
	builder := access.NewBuilder(logger, cfg, resolver, nil, m)

	projects := projectservice.New(logger, projectrepository.New(conn), node)
	todos := todorepository.New(conn)
	todosvc := todoservice.New(logger, todos, projects, node)
	tagsvc := tagservice.New(logger, tagrepository.New(conn), todos, node)
	adminsvc := adminservice.New(logger, adminrepository.New(conn), auth)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	return NewServer(ServerParams{
		Gin:        engine,
		Log:        logger,
		Cfg:        cfg,
		Sessions:   session.NewManager(cfg),
		Builder:    builder,
		GenID:      node,
		Authsvc:    auth,
		Usersvc:    userservice.New(logger, users),
		Orgsvc:     orgs,
		Adminsvc:   adminsvc,
		Projectsvc: projects,
		Todosvc:    todosvc,
		Tagsvc:     tagsvc,
	})
}

func doJSON(t *testing.T, s *Server, method, path, cookie string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.Header.Set("Cookie", session.DefaultCookieName+"="+cookie)
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func signupSession(t *testing.T, s *Server, email string) string {
	t.Helper()

	w := doJSON(t, s, http.MethodPost, "/v1/auth/signup", "", gin.H{
		"email":    email,
		"name":     "Test User",
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	for _, c := range w.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			return c.Value
		}
	}
	t.Fatal("signup did not set a session cookie")
	return ""
}

func TestSignupSetsCookieAndProvisionsWorkspace(t *testing.T) {
	s := newTestServer(t)
	token := signupSession(t, s, "jane@example.com")

	w := doJSON(t, s, http.MethodGet, "/v1/auth/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
		Organization *struct {
			IsPersonal bool   `json:"isPersonal"`
			Role       string `json:"role"`
		} `json:"organization"`
		IsAdmin bool `json:"isAdmin"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "jane@example.com", res.User.Email)
	require.NotNil(t, res.Organization)
	assert.True(t, res.Organization.IsPersonal)
	assert.Equal(t, orgdomain.RoleOwner, res.Organization.Role)
	assert.False(t, res.IsAdmin)
}

func TestSessionEndpointAnonymousWithoutCookie(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/v1/auth/session", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Nil(t, res["user"])
}

func TestTodosRequireAuthentication(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/v1/todos", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var res struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "UNAUTHENTICATED", res.Error.Code)
}

func TestTodoLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := signupSession(t, s, "jane@example.com")

	w := doJSON(t, s, http.MethodPost, "/v1/todos", token, gin.H{
		"title":    "Write release notes",
		"priority": "high",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID snowflake.ID `json:"ID"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	w = doJSON(t, s, http.MethodPost, "/v1/todos/"+created.ID.String()+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodGet, "/v1/todos?completed=true", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Todos []json.RawMessage `json:"todos"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Todos, 1)

	w = doJSON(t, s, http.MethodDelete, "/v1/todos/"+created.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, s, http.MethodGet, "/v1/todos/"+created.ID.String(), token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestOtherUsersTodoIsHidden(t *testing.T) {
	s := newTestServer(t)
	owner := signupSession(t, s, "owner@example.com")
	other := signupSession(t, s, "other@example.com")

	w := doJSON(t, s, http.MethodPost, "/v1/todos", owner, gin.H{"title": "Private note"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID snowflake.ID `json:"ID"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, s, http.MethodGet, "/v1/todos/"+created.ID.String(), other, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutesRejectRegularUsers(t *testing.T) {
	s := newTestServer(t)
	token := signupSession(t, s, "jane@example.com")

	w := doJSON(t, s, http.MethodGet, "/v1/admin/users", token, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, s, http.MethodGet, "/v1/admin/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		IsAdmin bool `json:"isAdmin"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.False(t, status.IsAdmin)
}

func TestOrganizationListExcludesActiveAndFlagsPersonal(t *testing.T) {
	s := newTestServer(t)
	token := signupSession(t, s, "jane@example.com")

	// Fresh signup: the personal organization is active, so the switcher
	// list starts out empty.
	w := doJSON(t, s, http.MethodGet, "/v1/organizations", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var list []struct {
		ID         snowflake.ID `json:"id"`
		IsPersonal bool         `json:"is_personal"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list)

	w = doJSON(t, s, http.MethodPost, "/v1/organizations", token, gin.H{"name": "Acme"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID snowflake.ID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, s, http.MethodGet, "/v1/organizations", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.False(t, list[0].IsPersonal)

	// Switching to the new organization moves the personal one into the
	// list with its flag set.
	w = doJSON(t, s, http.MethodPost, "/v1/users/me/active-organization", token, gin.H{
		"organizationId": created.ID.String(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodGet, "/v1/organizations", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.NotEqual(t, created.ID, list[0].ID)
	assert.True(t, list[0].IsPersonal)
}

func TestLeaveResetsActiveOrganizationToPersonal(t *testing.T) {
	s := newTestServer(t)
	owner := signupSession(t, s, "owner@example.com")
	member := signupSession(t, s, "member@example.com")

	w := doJSON(t, s, http.MethodPost, "/v1/organizations", owner, gin.H{"name": "Acme"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var org struct {
		ID snowflake.ID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &org))

	w = doJSON(t, s, http.MethodPost, "/v1/organizations/"+org.ID.String()+"/invitations", owner, gin.H{
		"email": "member@example.com",
		"role":  orgdomain.RoleMember,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var invitation struct {
		ID snowflake.ID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &invitation))

	w = doJSON(t, s, http.MethodPost, "/v1/invitations/"+invitation.ID.String()+"/accept", member, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodPost, "/v1/users/me/active-organization", member, gin.H{
		"organizationId": org.ID.String(),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, s, http.MethodPost, "/v1/organizations/"+org.ID.String()+"/leave", member, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Both the session and the sticky preference land back on personal.
	w = doJSON(t, s, http.MethodGet, "/v1/users/me", member, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var me struct {
		PersonalOrganizationID   *snowflake.ID
		LastActiveOrganizationID *snowflake.ID
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	require.NotNil(t, me.PersonalOrganizationID)
	require.NotNil(t, me.LastActiveOrganizationID)
	assert.Equal(t, *me.PersonalOrganizationID, *me.LastActiveOrganizationID)

	w = doJSON(t, s, http.MethodGet, "/v1/auth/session", member, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sess struct {
		Organization *struct {
			ID         snowflake.ID `json:"id"`
			IsPersonal bool         `json:"isPersonal"`
		} `json:"organization"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	require.NotNil(t, sess.Organization)
	assert.True(t, sess.Organization.IsPersonal)
	assert.Equal(t, *me.PersonalOrganizationID, sess.Organization.ID)
}

func TestLoginWithWrongPassword(t *testing.T) {
	s := newTestServer(t)
	signupSession(t, s, "jane@example.com")

	w := doJSON(t, s, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email":    "jane@example.com",
		"password": "wrong",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var res struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "invalid email or password", res.Error.Message)
}
