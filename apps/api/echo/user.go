package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexora/backend/core"
	"github.com/nexora/backend/core/policy"
	"github.com/nexora/backend/core/user"
)

const leaderboardSize = 10

type userApi struct {
	svc *user.Service
}

func registerAuthAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service) {
	api := userApi{svc: svc}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)

	// authed endpoints
	ag.GET("/me", api.me, jwt)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service) {
	api := userApi{svc: svc}

	ug := g.Group("/users", jwt)

	ug.GET("", api.query, adminMiddleware())
	ug.GET("/students", api.students, staffMiddleware())
	ug.GET("/leaderboard", api.leaderboard)
	ug.PUT("/:id/role", api.changeRole, adminMiddleware())
	ug.PUT("/:id/deactivate", api.deactivate, adminMiddleware())
	ug.PUT("/:id/points", api.setPoints, staffMiddleware())
}

// Handlers

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering user")
	}

	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return respond(ctx, http.StatusCreated, AuthResponse{Token: token, User: userDetail(usr)})
}

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, usr, err := authenticate(ctx.Request().Context(), data.Email, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return respond(ctx, http.StatusOK, AuthResponse{Token: token, User: userDetail(usr)})
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return respond(ctx, http.StatusOK, userDetail(usr))
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return respond(ctx, http.StatusOK, echo.Map{"token": token})
}

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return respondList(ctx, http.StatusOK, []user.User{}, 0)
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	users, err := api.svc.Query(ctx.Request().Context(), *filter, ordering.Orderings...)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return respondList(ctx, http.StatusOK, users, len(users))
}

func (api *userApi) students(ctx echo.Context) error {
	students, err := api.svc.Students(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []user.User{}
	}
	return respondList(ctx, http.StatusOK, students, len(students))
}

func (api *userApi) leaderboard(ctx echo.Context) error {
	students, err := api.svc.Leaderboard(ctx.Request().Context(), leaderboardSize)
	if err != nil {
		return errors.Wrap(err, "querying leaderboard")
	}
	board := make([]LeaderboardEntry, len(students))
	for i, usr := range students {
		board[i] = LeaderboardEntry{
			Rank:      i + 1,
			ID:        usr.ID,
			Name:      usr.Name,
			Points:    usr.Points,
			Level:     usr.Level,
			LevelInfo: usr.LevelInfo(),
		}
	}
	return respondList(ctx, http.StatusOK, board, len(board))
}

func (api *userApi) changeRole(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = policy.CanChangeRole(ctxUsr, ctx.Param("id")); err != nil {
		return err
	}

	var data ChangeRoleRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeRoleRequest")
	}
	if err = data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.ChangeRole(ctx.Request().Context(), ctx.Param("id"), data.Role)
	if err != nil {
		return errors.Wrap(err, "changing role")
	}
	return respondMessage(ctx, http.StatusOK, "role updated", userDetail(usr))
}

func (api *userApi) deactivate(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if err = policy.CanDeactivate(ctxUsr, ctx.Param("id")); err != nil {
		return err
	}

	usr, err := api.svc.Deactivate(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "deactivating user")
	}
	return respondMessage(ctx, http.StatusOK, "user deactivated", userDetail(usr))
}

func (api *userApi) setPoints(ctx echo.Context) error {
	var data SetPointsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetPointsRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.SetPoints(ctx.Request().Context(), ctx.Param("id"), data.Points)
	if err != nil {
		return errors.Wrap(err, "setting points")
	}
	return respondMessage(ctx, http.StatusOK, "points updated", userDetail(usr))
}

// Requests / responses

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	AuthResponse struct {
		Token string     `json:"token"`
		User  UserDetail `json:"user"`
	}

	// UserDetail is a user plus their computed level progression.
	UserDetail struct {
		user.User
		LevelInfo user.Level `json:"levelInfo"`
	}

	LeaderboardEntry struct {
		Rank      int        `json:"rank"`
		ID        string     `json:"id"`
		Name      string     `json:"name"`
		Points    int        `json:"points"`
		Level     int        `json:"level"`
		LevelInfo user.Level `json:"levelInfo"`
	}

	ChangeRoleRequest struct {
		Role string `json:"role" validate:"required,oneof=admin teacher student"`
	}

	SetPointsRequest struct {
		Points int `json:"points" validate:"min=0"`
	}
)

func userDetail(usr user.User) UserDetail {
	return UserDetail{User: usr, LevelInfo: usr.LevelInfo()}
}

func (lr *LoginRequest) Validate() error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return core.Validate.Struct(lr)
}

func (cr *ChangeRoleRequest) Validate() error {
	cr.Role = core.CleanString(cr.Role, true /* lower */)
	return core.Validate.Struct(cr)
}

func (sp *SetPointsRequest) Validate() error {
	return core.Validate.Struct(sp)
}
