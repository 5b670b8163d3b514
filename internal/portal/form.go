package portal

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-playground/validator/v10"
	apperrors "github.com/umstimetable/timetable-api/pkg/errors"
)

const (
	// AnalyticsCookie is the long-lived cookie the portal expects on captcha requests
	AnalyticsCookie = "_ga_B0Z6G6GCD8"

	captchaID = "c_loginnew_examplecaptcha"

	fieldVCID           = "BDC_VCID_" + captchaID
	fieldBackWorkaround = "BDC_BackWorkaround_" + captchaID
	fieldHash           = "BDC_Hs_" + captchaID
	fieldSeed           = "BDC_SP_" + captchaID
)

// LoginFormState is the hidden state of one login page render
type LoginFormState struct {
	ViewState          string `form:"__VIEWSTATE" validate:"required"`
	ViewStateGenerator string `form:"__VIEWSTATEGENERATOR" validate:"required"`
	EventValidation    string `form:"__EVENTVALIDATION" validate:"required"`
	CaptchaVCID        string `form:"BDC_VCID_c_loginnew_examplecaptcha" validate:"required"`

	// Optional, defaulted when absent
	ScrollPositionX string `form:"__SCROLLPOSITIONX"`
	ScrollPositionY string `form:"__SCROLLPOSITIONY"`
	BackWorkaround  string `form:"BDC_BackWorkaround_c_loginnew_examplecaptcha"`
	CaptchaHash     string `form:"BDC_Hs_c_loginnew_examplecaptcha"`
	CaptchaSeed     string `form:"BDC_SP_c_loginnew_examplecaptcha"`
}

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New()
	// report portal field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
	return v
}

// ParseLoginForm extracts the hidden fields from the login page
func ParseLoginForm(page []byte) (*LoginFormState, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindPageScrape, "failed to parse login page", err)
	}

	value := func(id string) string {
		return doc.Find("#" + id).AttrOr("value", "")
	}

	form := &LoginFormState{
		ViewState:          value("__VIEWSTATE"),
		ViewStateGenerator: value("__VIEWSTATEGENERATOR"),
		EventValidation:    value("__EVENTVALIDATION"),
		CaptchaVCID:        value(fieldVCID),
		ScrollPositionX:    valueOr(value("__SCROLLPOSITIONX"), "0"),
		ScrollPositionY:    valueOr(value("__SCROLLPOSITIONY"), "0"),
		BackWorkaround:     valueOr(value(fieldBackWorkaround), "1"),
		CaptchaHash:        value(fieldHash),
		CaptchaSeed:        value(fieldSeed),
	}

	if err := formValidator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return nil, apperrors.PageScrapeError(fieldErrs[0].Field())
		}
		return nil, apperrors.Wrap(apperrors.KindPageScrape, "invalid login form", err)
	}

	return form, nil
}

// LoginValues builds the POST body of the login form
func (f *LoginFormState) LoginValues(username, password, captchaText string) map[string]string {
	return map[string]string{
		"__LASTFOCUS":          "",
		"__EVENTTARGET":        "",
		"__EVENTARGUMENT":      "",
		"__VIEWSTATE":          f.ViewState,
		"__VIEWSTATEGENERATOR": f.ViewStateGenerator,
		"__SCROLLPOSITIONX":    f.ScrollPositionX,
		"__SCROLLPOSITIONY":    f.ScrollPositionY,
		"__EVENTVALIDATION":    f.EventValidation,
		"DropDownList1":        "1",
		"txtU":                 username,
		"TxtpwdAutoId_8767":    password,
		"CaptchaCodeTextBox":   captchaText,
		fieldVCID:              f.CaptchaVCID,
		fieldBackWorkaround:    f.BackWorkaround,
		fieldHash:              f.CaptchaHash,
		fieldSeed:              f.CaptchaSeed,
		"iBtnLogins150203125":  "Login",
	}
}

// CaptchaChallenge is one captcha instance with its case puzzle
type CaptchaChallenge struct {
	VCID     string
	Seed     int64
	Hash     string
	IssuedAt int64 // epoch milliseconds
	Image    []byte
}

// captchaParams is the JSON of the captcha parameter endpoint. sp arrives
// as a number or a numeric string depending on the portal build.
type captchaParams struct {
	SP any    `json:"sp"`
	HS string `json:"hs"`
}

func (p captchaParams) seed() (int64, bool) {
	switch v := p.SP.(type) {
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
