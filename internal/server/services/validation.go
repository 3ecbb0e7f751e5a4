package services

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/bountyboard/internal/common"
	"github.com/dmitrijs2005/bountyboard/internal/server/models"
	"github.com/go-playground/validator/v10"
)

const maxImageSize = 5 << 20

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/jpg":  {},
	"image/webp": {},
}

var (
	usernameRe   = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	bountyTextRe = regexp.MustCompile(`^[a-zA-Z0-9_,.! ]+$`)

	socialRes = map[string]*regexp.Regexp{
		"facebook": regexp.MustCompile(`^(https?://)?(www\.)?facebook\.com/[a-zA-Z0-9.]+/?$`),
		"telegram": regexp.MustCompile(`^(https?://)?(www\.)?t\.me/[a-zA-Z0-9_-]+/?$`),
		"reddit":   regexp.MustCompile(`^(https?://)?(www\.)?reddit\.com/u/[a-zA-Z0-9_-]+/?$`),
		"linkedin": regexp.MustCompile(`^(https?://)?(www\.)?linkedin\.com/in/[a-zA-Z0-9_-]+/?$`),
		"github":   regexp.MustCompile(`^(https?://)?(www\.)?github\.com/[a-zA-Z0-9_-]+/?$`),
	}
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernameRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "bountytext", func(fl validator.FieldLevel) bool {
		return bountyTextRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "targeturl", func(fl validator.FieldLevel) bool {
		return validTargetURL(fl.Field().String())
	})
	mustRegister(v, "method", func(fl validator.FieldLevel) bool {
		return models.Method(fl.Field().String()).Valid()
	})
	mustRegister(v, "social", func(fl validator.FieldLevel) bool {
		re, ok := socialRes[fl.Param()]
		return ok && re.MatchString(fl.Field().String())
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// validTargetURL accepts absolute http(s) URLs without query or fragment.
func validTargetURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && u.RawQuery == "" && !u.ForceQuery && u.Fragment == "" && !strings.Contains(raw, "#")
}

// validateStruct runs the struct tags and converts failures into a
// *common.ValidationError keyed by JSON field name.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &common.ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		field := fe.Field()
		if fe.Tag() == "method" || fe.Tag() == "unique" {
			field = "methods"
		}
		if _, seen := out.Fields[field]; !seen {
			out.Fields[field] = validationMessage(fe)
		}
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "is not a valid email"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "at least one hacking method must be selected"
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "username":
		return "may only contain letters, digits and underscores"
	case "bountytext":
		return "must not contain special characters"
	case "targeturl":
		return "must be an http(s) URL without query parameters or fragments"
	case "method":
		return "contains an unknown hacking method"
	case "unique":
		return "must not contain duplicates"
	case "social":
		return fmt.Sprintf("is not a valid %s link", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed on the '%s' rule", fe.Tag())
	}
}

// Upload is an image received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

func validateImage(field string, u *Upload) error {
	if u == nil || u.Body == nil || u.Size <= 0 {
		return common.NewValidationError(field, "is required")
	}
	if _, ok := allowedImageTypes[strings.ToLower(u.ContentType)]; !ok {
		return common.NewValidationError(field, "must be a JPEG, PNG or WEBP image")
	}
	if u.Size > maxImageSize {
		return common.NewValidationError(field, "must be under 5MB")
	}
	return nil
}
