// internal/handlers/respond.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// decimals are validated in their string form
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "money", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative() && domain.HasMoneyScale(d)
	})
	mustRegister(v, "payment_type", func(fl validator.FieldLevel) bool {
		return domain.PaymentType(fl.Field().String()).Valid()
	})
	mustRegister(v, "item_condition", func(fl validator.FieldLevel) bool {
		return domain.ItemCondition(fl.Field().String()).Valid()
	})
	mustRegister(v, "item_status", func(fl validator.FieldLevel) bool {
		return domain.ItemStatus(fl.Field().String()).Valid()
	})
	mustRegister(v, "repair_status", func(fl validator.FieldLevel) bool {
		return domain.RepairStatus(fl.Field().String()).Valid()
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %s: %v", tag, err))
	}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "min":
		return "must have at least " + fe.Param() + " entries"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "money":
		return "must be a non-negative amount with at most 2 decimal places"
	case "payment_type":
		return "must be one of PAID_NOW, PAY_LATER"
	case "item_condition":
		return "must be one of GOOD, USED, BROKEN"
	case "item_status":
		return "must be one of IN_STOCK, IN_REPAIR, READY_FOR_SALE, SOLD, RETURNED"
	case "repair_status":
		return "must be one of PENDING, DONE"
	case "e164", "numeric", "len":
		return "is not valid"
	default:
		return "is not valid"
	}
}

// requestError is a 400 raised before the request reaches a service.
type requestError struct {
	message string
	details map[string]string
}

func (e *requestError) Error() string { return e.message }

func badRequest(format string, args ...interface{}) error {
	return &requestError{message: fmt.Sprintf(format, args...)}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return badRequest("Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return badRequest("Invalid request body")
		}
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			field := strings.SplitN(fe.Namespace(), ".", 2)
			name := fe.Field()
			if len(field) == 2 {
				name = field[1]
			}
			details[name] = validationMessage(fe)
		}
		return &requestError{message: "validation failed", details: details}
	}
	return nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, badRequest("Invalid %s format", name)
	}
	return id, nil
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, badRequest("Invalid %s format", name)
	}
	return &id, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, badRequest("Invalid %s: expected RFC 3339 timestamp or YYYY-MM-DD", name)
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, badRequest("Invalid %s: expected true or false", name)
	}
	return &b, nil
}

// parsePage reads page and page_size (limit is accepted as an alias).
func parsePage(r *http.Request) ports.Page {
	q := r.URL.Query()
	page := ports.Page{}
	if p, err := strconv.Atoi(q.Get("page")); err == nil {
		page.Page = p
	}
	size := q.Get("page_size")
	if size == "" {
		size = q.Get("limit")
	}
	if s, err := strconv.Atoi(size); err == nil {
		page.PageSize = s
	}
	page.Normalize()
	return page
}

// cachedRead serves key from the ledger cache, loading and storing on a miss.
func cachedRead[T any](ctx context.Context, cache ports.LedgerCache, key string, load func(context.Context) (T, error)) (T, error) {
	var out T
	if cache != nil && cache.Lookup(ctx, key, &out) {
		return out, nil
	}
	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	if cache != nil {
		cache.Store(ctx, key, out)
	}
	return out, nil
}

func invalidate(ctx context.Context, cache ports.LedgerCache) {
	if cache != nil {
		cache.Invalidate(ctx)
	}
}

func respondJSON(w http.ResponseWriter, logger *slog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func respondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	respondJSON(w, logger, status, map[string]string{"error": message})
}

// statusFor maps ledger error kinds onto HTTP statuses.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes err as a JSON error body. Unclassified errors are
// logged and reported as 500 without their text.
func handleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, action string, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		body := map[string]interface{}{"error": reqErr.message}
		if len(reqErr.details) > 0 {
			body["details"] = reqErr.details
		}
		respondJSON(w, logger, http.StatusBadRequest, body)
		return
	}

	kind := domain.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "failed to "+action,
			slog.String("error", err.Error()))
		respondError(w, logger, status, "Failed to "+action)
		return
	}

	logger.WarnContext(r.Context(), "request rejected",
		slog.String("action", action),
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()))

	message := domain.MessageOf(err)
	if message == "" {
		message = http.StatusText(status)
	}
	respondError(w, logger, status, message)
}
