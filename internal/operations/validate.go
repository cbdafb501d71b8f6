package operations

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"husholdning/internal/money"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

var (
	finnCodePattern   = regexp.MustCompile(`^\d{8,10}$`)
	postalCodePattern = regexp.MustCompile(`^\d{4}$`)
	personKeyPattern  = regexp.MustCompile(`^person_(\d+)$`)
)

// DefaultTermsPerYear is used when the form leaves terminer_per_ar empty
const DefaultTermsPerYear = 12

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("age_bracket", isAgeBracket)
	v.RegisterValidation("finn_code", matches(finnCodePattern))
	v.RegisterValidation("postal_code", matches(postalCodePattern))

	// Use form names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func isAgeBracket(fl validator.FieldLevel) bool {
	_, ok := domain.AgeBrackets[fl.Field().String()]
	return ok
}

func matches(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// invalid converts validator output into an invalid_input workflow error
// naming the first offending field.
func invalid(step, field string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return workflow.NewInvalidInputError(step, field, err.Error())
	}
	fe := verrs[0]
	if ns := fe.Namespace(); ns != "" {
		if _, rest, ok := strings.Cut(ns, "."); ok {
			field = rest
		} else {
			field = ns
		}
	}
	e := workflow.NewInvalidInputError(step, field, fieldMessage(fe, field))
	if len(verrs) > 1 {
		e.Context = map[string]any{"violations": len(verrs)}
	}
	return e
}

func fieldMessage(fe validator.FieldError, field string) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, param)
	case "max":
		return fmt.Sprintf("%s must have at most %s entries", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "age_bracket":
		return fmt.Sprintf("%s %q is not a known age bracket", field, fe.Value())
	case "finn_code":
		return fmt.Sprintf("%q is not a valid Finn code", fe.Value())
	case "postal_code":
		return fmt.Sprintf("%q is not a valid postal code", fe.Value())
	case "number", "numeric":
		return fmt.Sprintf("%s must be a whole number", field)
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted as %s", field, param)
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// str reads a form value as trimmed text; nil is empty
func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return decimal.NewFromFloat(t).String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// flag reads a checkbox value
func flag(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "ja", "j", "true", "1", "x", "yes":
			return true
		}
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

func integer(step, field, s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, workflow.NewInvalidInputError(step, field, fmt.Sprintf("%s must be a whole number", field))
	}
	return n, nil
}

func amount(step, field, s string, required bool) (decimal.Decimal, error) {
	if s == "" {
		if required {
			return decimal.Zero, workflow.NewInvalidInputError(step, field, fmt.Sprintf("%s is required", field))
		}
		return decimal.Zero, nil
	}
	d, err := money.Parse(s)
	if err != nil {
		return decimal.Zero, &workflow.Error{
			Type:    workflow.ErrorTypeInvalidInput,
			Step:    step,
			Field:   field,
			Message: fmt.Sprintf("%s is not a valid amount", field),
			Cause:   err,
		}
	}
	if d.IsNegative() {
		return decimal.Zero, workflow.NewInvalidInputError(step, field, fmt.Sprintf("%s cannot be negative", field))
	}
	return d, nil
}

func formOf(step string, form any) (workflow.Mapping, error) {
	m, ok := workflow.AsMapping(form)
	if !ok {
		return nil, workflow.NewInvalidInputError(step, "form", fmt.Sprintf("expected a form mapping, got %T", form))
	}
	return m, nil
}

// ValidateFamily turns household form fields into a domain.Family. Members
// are read from person_1, person_2, ... in numeric order.
type ValidateFamily struct {
	workflow.BaseOperation
	form any
}

// NewValidateFamily creates a ValidateFamily over form
func NewValidateFamily(description string, form any) *ValidateFamily {
	return &ValidateFamily{
		BaseOperation: workflow.NewBaseOperation("ValidateFamily", description),
		form:          form,
	}
}

func (v *ValidateFamily) Run(context.Context) (any, error) {
	m, err := formOf(v.Name(), v.form)
	if err != nil {
		return nil, err
	}
	return familyFromForm(v.Name(), m)
}

func familyFromForm(step string, m workflow.Mapping) (domain.Family, error) {
	type member struct {
		key   string
		index int
	}
	var members []member
	for k := range m {
		if match := personKeyPattern.FindStringSubmatch(k); match != nil {
			n, _ := strconv.Atoi(match[1])
			members = append(members, member{key: k, index: n})
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].index < members[j].index })

	family := domain.Family{Persons: make([]domain.Person, 0, len(members))}
	for _, mem := range members {
		fields, ok := workflow.AsMapping(m[mem.key])
		if !ok {
			return domain.Family{}, workflow.NewInvalidInputError(step, mem.key, fmt.Sprintf("expected person fields, got %T", m[mem.key]))
		}
		family.Persons = append(family.Persons, domain.Person{
			Key:          mem.key,
			AgeBracket:   str(fields["alder"]),
			Gender:       str(fields["kjonn"]),
			Kindergarten: flag(fields["barnehage"]),
			SFO:          flag(fields["sfo"]),
			Pregnant:     flag(fields["gravid"]),
			Student:      flag(fields["student"]),
		})
	}

	cars, err := integer(step, "antall_biler", str(m["antall_biler"]), 0)
	if err != nil {
		return domain.Family{}, err
	}
	family.Cars = cars

	income, err := amount(step, "brutto_arsinntekt", str(m["brutto_arsinntekt"]), false)
	if err != nil {
		return domain.Family{}, err
	}
	family.GrossIncome = income

	if err := validate.Struct(family); err != nil {
		return domain.Family{}, invalid(step, "personer", err)
	}
	return family, nil
}

type mortgageFields struct {
	Lanebelop        string `json:"lanebelop" validate:"required"`
	Lopetid          string `json:"lopetid" validate:"required,number"`
	TerminerPerAr    string `json:"terminer_per_ar" validate:"omitempty,oneof=1 2 3 4 6 12"`
	Type             string `json:"type" validate:"omitempty,oneof=annuitet serie"`
	Startdato        string `json:"startdato" validate:"omitempty,datetime=2006-01-02"`
	Boligverdi       string `json:"boligverdi" validate:"required"`
	BruttoArsinntekt string `json:"brutto_arsinntekt" validate:"required"`
}

// ValidateMortgage turns mortgage form fields into a domain.Mortgage. An
// empty rente leaves the rate at zero so the workflow can look it up.
type ValidateMortgage struct {
	workflow.BaseOperation
	form any
}

// NewValidateMortgage creates a ValidateMortgage over form
func NewValidateMortgage(description string, form any) *ValidateMortgage {
	return &ValidateMortgage{
		BaseOperation: workflow.NewBaseOperation("ValidateMortgage", description),
		form:          form,
	}
}

func (v *ValidateMortgage) Run(context.Context) (any, error) {
	step := v.Name()
	m, err := formOf(step, v.form)
	if err != nil {
		return nil, err
	}

	fields := mortgageFields{
		Lanebelop:        str(m["lanebelop"]),
		Lopetid:          str(m["lopetid"]),
		TerminerPerAr:    str(m["terminer_per_ar"]),
		Type:             str(m["type"]),
		Startdato:        str(m["startdato"]),
		Boligverdi:       str(m["boligverdi"]),
		BruttoArsinntekt: str(m["brutto_arsinntekt"]),
	}
	if err := validate.Struct(fields); err != nil {
		return nil, invalid(step, "", err)
	}

	loan, err := loanFromFields(step, loanFields{
		principal:    fields.Lanebelop,
		rate:         str(m["rente"]),
		years:        fields.Lopetid,
		termsPerYear: fields.TerminerPerAr,
		fee:          str(m["termingebyr"]),
		kind:         fields.Type,
	}, "")
	if err != nil {
		return nil, err
	}
	if fields.Startdato != "" {
		loan.Start, _ = time.Parse("2006-01-02", fields.Startdato)
	}

	mortgage := domain.Mortgage{Loan: loan}
	if mortgage.PropertyValue, err = amount(step, "boligverdi", fields.Boligverdi, true); err != nil {
		return nil, err
	}
	if mortgage.GrossIncome, err = amount(step, "brutto_arsinntekt", fields.BruttoArsinntekt, true); err != nil {
		return nil, err
	}
	if mortgage.OtherDebt, err = amount(step, "annen_gjeld", str(m["annen_gjeld"]), false); err != nil {
		return nil, err
	}

	if raw, ok := m["husholdning"]; ok && raw != nil {
		household, ok := workflow.AsMapping(raw)
		if !ok {
			return nil, workflow.NewInvalidInputError(step, "husholdning", fmt.Sprintf("expected household fields, got %T", raw))
		}
		if len(household) > 0 {
			family, err := familyFromForm(step, household)
			if err != nil {
				return nil, err
			}
			mortgage.Household = &family
		}
	}
	return mortgage, nil
}

type loanFields struct {
	principal    string
	rate         string
	years        string
	termsPerYear string
	fee          string
	kind         string
}

// loanFromFields parses the shared loan fields; prefix is prepended to the
// field names used in errors.
func loanFromFields(step string, f loanFields, prefix string) (domain.Loan, error) {
	var (
		loan domain.Loan
		err  error
	)
	if loan.Principal, err = amount(step, "lanebelop", f.principal, true); err != nil {
		return loan, err
	}
	if !loan.Principal.IsPositive() {
		return loan, workflow.NewInvalidInputError(step, "lanebelop", "lanebelop must be positive")
	}
	if loan.AnnualRate, err = amount(step, prefix+"rente", f.rate, false); err != nil {
		return loan, err
	}
	if loan.Years, err = integer(step, prefix+"lopetid", f.years, 0); err != nil {
		return loan, err
	}
	if loan.Years < 1 || loan.Years > 50 {
		return loan, workflow.NewInvalidInputError(step, prefix+"lopetid", "loan period must be between 1 and 50 years")
	}
	if loan.TermsPerYear, err = integer(step, "terminer_per_ar", f.termsPerYear, DefaultTermsPerYear); err != nil {
		return loan, err
	}
	if loan.Fee, err = amount(step, prefix+"termingebyr", f.fee, false); err != nil {
		return loan, err
	}
	loan.Type = domain.LoanType(f.kind)
	if loan.Type == "" {
		loan.Type = domain.LoanTypeAnnuity
	}
	return loan, nil
}

type restructureFields struct {
	Lanebelop           string `json:"lanebelop" validate:"required"`
	Rente               string `json:"rente" validate:"required"`
	GjenvaerendeLopetid string `json:"gjenvaerende_lopetid" validate:"required,number"`
	NyRente             string `json:"ny_rente" validate:"required"`
	NyLopetid           string `json:"ny_lopetid" validate:"required,number"`
	Type                string `json:"type" validate:"omitempty,oneof=annuitet serie"`
}

// ValidateRestructure turns refinancing form fields into a domain.Restructure
type ValidateRestructure struct {
	workflow.BaseOperation
	form any
}

// NewValidateRestructure creates a ValidateRestructure over form
func NewValidateRestructure(description string, form any) *ValidateRestructure {
	return &ValidateRestructure{
		BaseOperation: workflow.NewBaseOperation("ValidateRestructure", description),
		form:          form,
	}
}

func (v *ValidateRestructure) Run(context.Context) (any, error) {
	step := v.Name()
	m, err := formOf(step, v.form)
	if err != nil {
		return nil, err
	}

	fields := restructureFields{
		Lanebelop:           str(m["lanebelop"]),
		Rente:               str(m["rente"]),
		GjenvaerendeLopetid: str(m["gjenvaerende_lopetid"]),
		NyRente:             str(m["ny_rente"]),
		NyLopetid:           str(m["ny_lopetid"]),
		Type:                str(m["type"]),
	}
	if err := validate.Struct(fields); err != nil {
		return nil, invalid(step, "", err)
	}

	current, err := loanFromFields(step, loanFields{
		principal: fields.Lanebelop,
		rate:      fields.Rente,
		years:     fields.GjenvaerendeLopetid,
		fee:       str(m["termingebyr"]),
		kind:      fields.Type,
	}, "")
	if err != nil {
		return nil, err
	}
	proposed, err := loanFromFields(step, loanFields{
		principal: fields.Lanebelop,
		rate:      fields.NyRente,
		years:     fields.NyLopetid,
		fee:       str(m["ny_termingebyr"]),
		kind:      fields.Type,
	}, "ny_")
	if err != nil {
		return nil, err
	}

	cost, err := amount(step, "etableringskostnad", str(m["etableringskostnad"]), false)
	if err != nil {
		return nil, err
	}
	proposed.Principal = proposed.Principal.Add(cost)

	return domain.Restructure{Current: current, Proposed: proposed, EstablishmentCost: cost}, nil
}

type taxFields struct {
	Inntektsar       string `json:"inntektsar" validate:"required,number,len=4"`
	Alder            string `json:"alder" validate:"required,number"`
	Kommune          string `json:"kommune" validate:"omitempty,postal_code"`
	BruttoArsinntekt string `json:"brutto_arsinntekt" validate:"required"`
}

// ValidateTaxForm turns tax form fields into a domain.TaxForm
type ValidateTaxForm struct {
	workflow.BaseOperation
	form any
}

// NewValidateTaxForm creates a ValidateTaxForm over form
func NewValidateTaxForm(description string, form any) *ValidateTaxForm {
	return &ValidateTaxForm{
		BaseOperation: workflow.NewBaseOperation("ValidateTaxForm", description),
		form:          form,
	}
}

func (v *ValidateTaxForm) Run(context.Context) (any, error) {
	step := v.Name()
	m, err := formOf(step, v.form)
	if err != nil {
		return nil, err
	}

	fields := taxFields{
		Inntektsar:       str(m["inntektsar"]),
		Alder:            str(m["alder"]),
		Kommune:          str(m["kommune"]),
		BruttoArsinntekt: str(m["brutto_arsinntekt"]),
	}
	if err := validate.Struct(fields); err != nil {
		return nil, invalid(step, "", err)
	}

	tax := domain.TaxForm{Municipality: fields.Kommune}
	if tax.IncomeYear, err = integer(step, "inntektsar", fields.Inntektsar, 0); err != nil {
		return nil, err
	}
	if tax.Age, err = integer(step, "alder", fields.Alder, 0); err != nil {
		return nil, err
	}
	if tax.GrossIncome, err = amount(step, "brutto_arsinntekt", fields.BruttoArsinntekt, true); err != nil {
		return nil, err
	}
	if tax.Wealth, err = amount(step, "formue", str(m["formue"]), false); err != nil {
		return nil, err
	}
	if tax.InterestPaid, err = amount(step, "gjeldsrenter", str(m["gjeldsrenter"]), false); err != nil {
		return nil, err
	}
	if tax.Deductions, err = amount(step, "fradrag", str(m["fradrag"]), false); err != nil {
		return nil, err
	}

	if err := validate.Struct(tax); err != nil {
		return nil, invalid(step, "", err)
	}
	return tax, nil
}

// ValidateFinnCode checks a Finn listing code and returns it trimmed
type ValidateFinnCode struct {
	workflow.BaseOperation
	code any
}

// NewValidateFinnCode creates a ValidateFinnCode
func NewValidateFinnCode(description string, code any) *ValidateFinnCode {
	return &ValidateFinnCode{
		BaseOperation: workflow.NewBaseOperation("ValidateFinnCode", description),
		code:          code,
	}
}

func (v *ValidateFinnCode) Run(context.Context) (any, error) {
	code := str(v.code)
	if err := validate.Var(code, "required,finn_code"); err != nil {
		return nil, invalid(v.Name(), "finnkode", err)
	}
	return code, nil
}

// ValidatePostalCode checks a four digit Norwegian postal code
type ValidatePostalCode struct {
	workflow.BaseOperation
	code any
}

// NewValidatePostalCode creates a ValidatePostalCode
func NewValidatePostalCode(description string, code any) *ValidatePostalCode {
	return &ValidatePostalCode{
		BaseOperation: workflow.NewBaseOperation("ValidatePostalCode", description),
		code:          code,
	}
}

func (v *ValidatePostalCode) Run(context.Context) (any, error) {
	code := str(v.code)
	if err := validate.Var(code, "required,postal_code"); err != nil {
		return nil, invalid(v.Name(), "postnummer", err)
	}
	return code, nil
}
