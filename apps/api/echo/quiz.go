package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nexora/backend/core/quiz"
	"github.com/nexora/backend/core/user"
)

type quizApi struct {
	svc     *quiz.Service
	userSvc *user.Service
}

func registerQuizAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *quiz.Service, userSvc *user.Service) {
	api := quizApi{svc: svc, userSvc: userSvc}

	qg := g.Group("/quizzes", jwt)

	qg.GET("", api.query)
	qg.GET("/mine", api.mine, staffMiddleware())
	qg.POST("", api.create, staffMiddleware())
	qg.GET("/:id", api.retrieve)
	qg.PUT("/:id", api.update)
	qg.DELETE("/:id", api.destroy)
	qg.POST("/:id/attempt", api.attempt, studentMiddleware())
	qg.GET("/:id/results", api.results)
}

// Handlers

func (api *quizApi) query(ctx echo.Context) error {
	filter := new(quiz.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return respondList(ctx, http.StatusOK, []quiz.Quiz{}, 0)
	}
	filter.Clean()

	quizzes, err := api.svc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying quizzes")
	}
	if quizzes == nil {
		quizzes = []quiz.Quiz{}
	}
	return respondList(ctx, http.StatusOK, quizzes, len(quizzes))
}

func (api *quizApi) mine(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	quizzes, err := api.svc.Mine(ctx.Request().Context(), ctxUsr)
	if err != nil {
		return errors.Wrap(err, "querying own quizzes")
	}
	if quizzes == nil {
		quizzes = []quiz.Quiz{}
	}
	return respondList(ctx, http.StatusOK, quizzes, len(quizzes))
}

func (api *quizApi) create(ctx echo.Context) error {
	var data quiz.NewQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewQuiz")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	q, err := api.svc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return errors.Wrap(err, "creating quiz")
	}
	return respond(ctx, http.StatusCreated, q)
}

func (api *quizApi) retrieve(ctx echo.Context) error {
	q, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting quiz")
	}
	return respond(ctx, http.StatusOK, q)
}

func (api *quizApi) update(ctx echo.Context) error {
	var data quiz.UpdateQuiz
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateQuiz")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	q, err := api.svc.Update(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating quiz")
	}
	return respondMessage(ctx, http.StatusOK, "quiz updated", q)
}

func (api *quizApi) destroy(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err = api.svc.Delete(ctx.Request().Context(), ctxUsr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting quiz")
	}
	return respondMessage(ctx, http.StatusOK, "quiz deleted", nil)
}

func (api *quizApi) attempt(ctx echo.Context) error {
	var data AttemptRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AttemptRequest")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Attempt(ctx.Request().Context(), ctxUsr, ctx.Param("id"), data.Answers)
	if err != nil {
		return errors.Wrap(err, "attempting quiz")
	}
	return respond(ctx, http.StatusOK, res)
}

func (api *quizApi) results(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Results(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting quiz results")
	}
	return respond(ctx, http.StatusOK, res)
}

type AttemptRequest struct {
	Answers []int `json:"answers"`
}
