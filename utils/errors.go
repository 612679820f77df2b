package utils

import (
	"room-auction-server/services"

	"github.com/go-playground/validator/v10"
	"github.com/kataras/iris/v12"
)

func CreateError(statusCode int, code string, detail string, ctx iris.Context) {
	ctx.StopWithJSON(statusCode, iris.Map{"error": code, "message": detail})
}

func CreateInternalServerError(ctx iris.Context) {
	CreateError(iris.StatusInternalServerError, "internal_error", "an internal server error occurred", ctx)
}

func CreateNotFound(ctx iris.Context) {
	CreateError(iris.StatusNotFound, "not_found", "resource not found", ctx)
}

func CreateEmailAlreadyRegistered(ctx iris.Context) {
	CreateError(iris.StatusConflict, "email_registered", "email already registered", ctx)
}

// HandleServiceError maps a typed service failure onto the wire. Anything
// that is not a services.Error is an unexpected fault and comes back opaque.
func HandleServiceError(err error, ctx iris.Context) {
	if serviceErr, ok := services.AsServiceError(err); ok {
		if serviceErr.Status >= iris.StatusInternalServerError {
			CreateError(serviceErr.Status, serviceErr.Code, "an internal server error occurred", ctx)
			return
		}
		CreateError(serviceErr.Status, serviceErr.Code, serviceErr.Message, ctx)
		return
	}
	CreateInternalServerError(ctx)
}

func HandleValidationErrors(err error, ctx iris.Context) {
	if errs, ok := err.(validator.ValidationErrors); ok {
		validationErrors := make([]iris.Map, 0, len(errs))
		for _, validationErr := range errs {
			validationErrors = append(validationErrors, iris.Map{
				"field": validationErr.Field(),
				"tag":   validationErr.Tag(),
				"value": validationErr.Param(),
			})
		}
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{
			"error":   "validation_error",
			"message": "one or more fields failed validation",
			"fields":  validationErrors,
		})
		return
	}
	CreateError(iris.StatusBadRequest, "bad_request", "malformed request body", ctx)
}
