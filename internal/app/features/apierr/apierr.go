// internal/app/features/apierr/apierr.go

// Package apierr renders engine results as JSON: status mapping for the
// error taxonomy, request decoding and struct-tag validation.
package apierr

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"go.uber.org/zap"
)

// maxBody caps request bodies read by Decode.
const maxBody = 1 << 20

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON names, not Go field names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterTranslation("notblank", translator,
		func(ut ut.Translator) error { return ut.Add("notblank", "{0} must not be blank", true) },
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("notblank", fe.Field())
			return t
		})
}

// Body is the JSON shape of every error response.
type Body struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// statusOf maps an error kind to its HTTP status.
func statusOf(k errs.Kind) int {
	switch k {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindPhaseLocked:
		return http.StatusLocked
	case errs.KindCapacityExceeded, errs.KindExclusionViolation, errs.KindNoPanelAssigned,
		errs.KindConcurrentModification, errs.KindAlreadyInTeam, errs.KindInvalidState:
		return http.StatusConflict
	case errs.KindPermissionDenied:
		return http.StatusForbidden
	case errs.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Status returns the HTTP status Write would use for err.
func Status(err error) int {
	return statusOf(errs.KindOf(err))
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Write renders err. Domain errors get their mapped status and message;
// anything unclassified is logged and reported as a bare 500.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	kind := errs.KindOf(err)
	status := statusOf(kind)

	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		JSON(w, status, Body{Error: "internal"})
		return
	}

	log.Warn("request rejected",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("kind", string(kind)),
		zap.String("reason", err.Error()))

	body := Body{Error: string(kind), Message: err.Error()}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body.Message = "invalid request body"
		body.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			body.Fields[fe.Field()] = fe.Translate(translator)
		}
	}
	if errs.Retryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	JSON(w, status, body)
}

// WriteConcealed is Write for reads by callers who may not own the
// resource: PermissionDenied and NotFound produce the same 404 body.
func WriteConcealed(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	if errors.Is(err, errs.ErrPermissionDenied) || errors.Is(err, errs.ErrNotFound) {
		log.Debug("resource concealed", zap.String("path", r.URL.Path), zap.Error(err))
		JSON(w, http.StatusNotFound, Body{Error: string(errs.KindNotFound), Message: "not found"})
		return
	}
	Write(w, r, log, err)
}

// Decode reads a JSON body into dst and validates its struct tags. Every
// failure is a Validation error.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.Validation("request body is empty")
		}
		return errs.Wrap(errs.KindValidation, err, "malformed request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return errs.Wrap(errs.KindValidation, verrs, "invalid request body")
		}
		return errs.Wrap(errs.KindValidation, err, "invalid request body")
	}
	return nil
}

// Unauthorized is the response for requests without an identity.
func Unauthorized(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, Body{Error: "unauthorized"})
}

// Actor returns the caller, writing 401 when the request carries none.
func Actor(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	a, ok := authz.FromContext(r.Context())
	if !ok {
		Unauthorized(w)
	}
	return a, ok
}

// PathError reports a malformed path parameter as a Validation error.
func PathError(name, value string) error {
	return errs.Validation("invalid %s %q", name, value)
}
