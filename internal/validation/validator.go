// Package validation turns raw query parameters into validated requests.
//
// Field rules are declared as go-playground/validator tags. Coercion of
// numeric strings happens first so that every problem with a request,
// including unparseable numbers, is reported in one ValidationError.
package validation

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"go-neows/internal/domain"

	"github.com/go-playground/validator/v10"
)

// Query parameter names
const (
	ParamStartDate  = "start_date"
	ParamEndDate    = "end_date"
	ParamPage       = "page"
	ParamLimit      = "limit"
	ParamHazard     = "hazard"
	ParamDistance   = "distance"
	ParamSize       = "size"
	ParamVelocity   = "velocity"
	ParamAsteroidID = "asteroid_id"
)

const (
	dateLayout   = "2006-01-02"
	maxRangeDays = 7
	defaultPage  = 1
	defaultLimit = 9
)

// feedParams mirrors the feed query string after numeric coercion
type feedParams struct {
	StartDate string `param:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `param:"end_date" validate:"required,datetime=2006-01-02"`
	Page      int    `param:"page" validate:"min=1"`
	Limit     int    `param:"limit" validate:"min=1,max=100"`
	Hazard    string `param:"hazard" validate:"oneof=all hazardous safe"`
	Distance  string `param:"distance" validate:"oneof=all close medium far"`
	Size      string `param:"size" validate:"oneof=all small medium large"`
	Velocity  string `param:"velocity" validate:"oneof=all slow medium fast"`
}

type asteroidParams struct {
	AsteroidID string `param:"asteroid_id" validate:"required"`
}

// QueryValidator validates feed and lookup requests
type QueryValidator struct {
	v *validator.Validate
}

// New builds a QueryValidator
func New() *QueryValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("param"); name != "" {
			return name
		}
		return f.Name
	})
	v.RegisterStructValidation(validateDateRange, feedParams{})
	return &QueryValidator{v: v}
}

// Feed validates raw feed parameters. Absent keys take their defaults.
func (q *QueryValidator) Feed(raw map[string]string) (domain.FeedQuery, error) {
	var fields []domain.FieldError

	p := feedParams{
		StartDate: strings.TrimSpace(raw[ParamStartDate]),
		EndDate:   strings.TrimSpace(raw[ParamEndDate]),
		Hazard:    enumOrAll(raw[ParamHazard]),
		Distance:  enumOrAll(raw[ParamDistance]),
		Size:      enumOrAll(raw[ParamSize]),
		Velocity:  enumOrAll(raw[ParamVelocity]),
	}

	var ok bool
	if p.Page, ok = coerceInt(raw[ParamPage], defaultPage); !ok {
		fields = append(fields, domain.FieldError{Field: ParamPage, Message: "Expected an integer"})
		p.Page = defaultPage
	}
	if p.Limit, ok = coerceInt(raw[ParamLimit], defaultLimit); !ok {
		fields = append(fields, domain.FieldError{Field: ParamLimit, Message: "Expected an integer"})
		p.Limit = defaultLimit
	}

	fields = append(fields, q.check(p)...)
	if len(fields) > 0 {
		return domain.FeedQuery{}, &domain.ValidationError{Fields: fields}
	}

	return domain.FeedQuery{
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		Page:      p.Page,
		Limit:     p.Limit,
		Filters: domain.FeedFilters{
			Hazard:   p.Hazard,
			Distance: p.Distance,
			Size:     p.Size,
			Velocity: p.Velocity,
		},
	}, nil
}

// AsteroidID validates a lookup id
func (q *QueryValidator) AsteroidID(id string) (string, error) {
	p := asteroidParams{AsteroidID: strings.TrimSpace(id)}
	if fields := q.check(p); len(fields) > 0 {
		return "", &domain.ValidationError{Fields: fields}
	}
	return p.AsteroidID, nil
}

func (q *QueryValidator) check(s any) []domain.FieldError {
	err := q.v.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []domain.FieldError{{Field: "request", Message: err.Error()}}
	}
	out := make([]domain.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, domain.FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "datetime":
		return "Date must be in YYYY-MM-DD format"
	case "min":
		return "Must be greater than or equal to " + fe.Param()
	case "max":
		return "Must be less than or equal to " + fe.Param()
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "daterange":
		return fmt.Sprintf("Date range cannot exceed %s days", fe.Param())
	case "dateorder":
		return "Start date must be before or equal to end date"
	default:
		return fmt.Sprintf("Failed %s validation", fe.Tag())
	}
}

// validateDateRange attaches range violations to end_date. It only runs
// its checks when both dates parse; format errors are reported per field.
func validateDateRange(sl validator.StructLevel) {
	p := sl.Current().Interface().(feedParams)
	start, err1 := time.Parse(dateLayout, p.StartDate)
	end, err2 := time.Parse(dateLayout, p.EndDate)
	if err1 != nil || err2 != nil {
		return
	}

	days := RangeDays(start, end)
	switch {
	case days < 0:
		sl.ReportError(p.EndDate, ParamEndDate, "EndDate", "dateorder", "")
	case days > maxRangeDays:
		sl.ReportError(p.EndDate, ParamEndDate, "EndDate", "daterange", strconv.Itoa(maxRangeDays))
	}
}

// RangeDays returns ceil((end - start) / 24h)
func RangeDays(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours() / 24))
}

func coerceInt(s string, def int) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func enumOrAll(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return domain.FilterAll
	}
	return s
}
