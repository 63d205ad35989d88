package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/duskwallet/duskwallet-api/internal/models"
)

var registerOnce sync.Once

// RegisterValidators installs the custom tags and JSON field naming on gin's validator.
func RegisterValidators() {
	registerOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		engine.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = engine.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return models.Category(fl.Field().String()).Valid()
		})
	})
}

// normalizer lets request bodies clean themselves before validation.
type normalizer interface {
	normalize()
}

// bindJSON decodes the body into obj, normalizes it and runs validation.
// On failure it writes the error response and returns false.
func bindJSON(c *gin.Context, obj normalizer) bool {
	if c.Request.Body == nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"body": "request body is required"}})
		return false
	}
	decoder := json.NewDecoder(c.Request.Body)
	if errDecode := decoder.Decode(obj); errDecode != nil {
		var maxBytesErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(errDecode, &maxBytesErr):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		case errors.Is(errDecode, io.EOF):
			c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"body": "request body is required"}})
		case errors.As(errDecode, &typeErr) && typeErr.Field != "":
			c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{typeErr.Field: typeErr.Field + " has the wrong type"}})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"errors": gin.H{"body": "invalid json"}})
		}
		return false
	}
	obj.normalize()
	if errValidate := binding.Validator.ValidateStruct(obj); errValidate != nil {
		c.JSON(http.StatusBadRequest, formatValidationErrors(errValidate))
		return false
	}
	return true
}

func formatValidationErrors(err error) gin.H {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return gin.H{"errors": gin.H{"body": "invalid request"}}
	}
	out := gin.H{}
	for _, fe := range verrs {
		out[fe.Field()] = validationMessage(fe)
	}
	return gin.H{"errors": out}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "invalid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "category":
		return "invalid category"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
