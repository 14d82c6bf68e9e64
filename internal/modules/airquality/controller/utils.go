package controller

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/analysis"
	"github.com/svemuri1602/air-quality-dashboard/internal/modules/airquality/types"
	"github.com/svemuri1602/air-quality-dashboard/internal/utils"
)

const (
	defaultReadingsLimit = 1000
	maxReadingsLimit     = 10000
)

var validate = validator.New()

// filterQuery mirrors the dashboard query string before conversion.
type filterQuery struct {
	From      string `validate:"omitempty,datetime=2006-01-02"`
	To        string `validate:"omitempty,datetime=2006-01-02"`
	HourFrom  string `validate:"omitempty,number"`
	HourTo    string `validate:"omitempty,number"`
	Parameter string `validate:"omitempty,max=128"`
	Cooking   string `validate:"omitempty,oneof=1 0 true false on off"`
}

var queryNames = map[string]string{
	"From":      "from",
	"To":        "to",
	"HourFrom":  "hour_from",
	"HourTo":    "hour_to",
	"Parameter": "parameter",
	"Cooking":   "cooking",
}

// parseFilter reads the filter query params of r. Params that are absent
// keep the value of analysis.DefaultFilter(ds).
func parseFilter(r *http.Request, ds *types.Dataset) (types.Filter, error) {
	q := r.URL.Query()
	fq := filterQuery{
		From:      strings.TrimSpace(q.Get("from")),
		To:        strings.TrimSpace(q.Get("to")),
		HourFrom:  strings.TrimSpace(q.Get("hour_from")),
		HourTo:    strings.TrimSpace(q.Get("hour_to")),
		Parameter: q.Get("parameter"),
		Cooking:   strings.ToLower(strings.TrimSpace(q.Get("cooking"))),
	}
	if err := validate.Struct(fq); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return types.Filter{}, fmt.Errorf("%w: invalid '%s'", types.ErrInvalidFilter, queryNames[verrs[0].Field()])
		}
		return types.Filter{}, err
	}

	f := analysis.DefaultFilter(ds)
	if fq.From != "" {
		f.From, _ = time.Parse(time.DateOnly, fq.From)
	}
	if fq.To != "" {
		f.To, _ = time.Parse(time.DateOnly, fq.To)
	}
	var err error
	if fq.HourFrom != "" {
		if f.HourFrom, err = parseHour("hour_from", fq.HourFrom); err != nil {
			return types.Filter{}, err
		}
	}
	if fq.HourTo != "" {
		if f.HourTo, err = parseHour("hour_to", fq.HourTo); err != nil {
			return types.Filter{}, err
		}
	}
	if fq.Parameter != "" {
		f.Parameter = fq.Parameter
	}
	f.CookingOnly = fq.Cooking == "1" || fq.Cooking == "true" || fq.Cooking == "on"
	return f, nil
}

func parseHour(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 23 {
		return 0, fmt.Errorf("%w: '%s' must be between 0 and 23", types.ErrInvalidFilter, name)
	}
	return n, nil
}

// filterValues is the inverse of parseFilter, used for chart and export links.
func filterValues(f types.Filter) url.Values {
	v := url.Values{}
	if !f.From.IsZero() {
		v.Set("from", f.From.Format(time.DateOnly))
	}
	if !f.To.IsZero() {
		v.Set("to", f.To.Format(time.DateOnly))
	}
	v.Set("hour_from", strconv.Itoa(f.HourFrom))
	v.Set("hour_to", strconv.Itoa(f.HourTo))
	if f.Parameter != "" {
		v.Set("parameter", f.Parameter)
	}
	if f.CookingOnly {
		v.Set("cooking", "1")
	}
	return v
}

func parseLimit(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return defaultReadingsLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid 'limit' (expected integer)")
	}
	if n <= 0 {
		return 0, errors.New("'limit' must be > 0")
	}
	if n > maxReadingsLimit {
		return 0, fmt.Errorf("'limit' must be <= %d", maxReadingsLimit)
	}
	return n, nil
}

// serviceErrors maps service and analysis errors to HTTP statuses.
var serviceErrors = []utils.ErrorStatus{
	{Err: types.ErrDatasetNotFound, Status: http.StatusNotFound},
	{Err: types.ErrNoData, Status: http.StatusNotFound},
	{Err: types.ErrInvalidFilter, Status: http.StatusBadRequest},
	{Err: types.ErrUnknownParameter, Status: http.StatusBadRequest},
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	utils.WriteServiceError(w, r, err, serviceErrors)
}

func isFilterError(err error) bool {
	return errors.Is(err, types.ErrInvalidFilter) || errors.Is(err, types.ErrUnknownParameter)
}

func dateString(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
