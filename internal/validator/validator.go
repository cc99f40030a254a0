// Package validator runs deterministic post-extraction checks on OCR
// results. Synchronous, no model calls. Rules either pin a field's
// confidence (CF checksum passes to 1.0) or knock it down (range and
// format violations), then thresholds classify every field into
// confirmation or admin-review buckets.
package validator

import (
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"quintos/internal/decoder"
	"quintos/internal/domain"
)

// Confidence thresholds. Admin review takes precedence over confirmation.
const (
	AdminReviewThreshold  = 0.50
	ConfirmationThreshold = 0.70
)

// Salary and pension sanity bounds, monthly EUR.
var (
	minSalary = decimal.NewFromInt(200)
	maxSalary = decimal.NewFromInt(50000)

	minInstallment = decimal.NewFromInt(1)
	maxInstallment = decimal.NewFromInt(10000)
)

var (
	partitaIVARe = regexp.MustCompile(`^\d{11}$`)
	atecoRe      = regexp.MustCompile(`^\d{2}\.\d{2}(\.\d{1,2})?$`)
	periodRe     = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{4}$`)
)

// Result carries confidence overrides and the threshold classification.
// Overrides win over the extractor's self-reported confidence when the
// pipeline merges the two maps.
type Result struct {
	ConfidenceOverrides       map[string]float64
	Warnings                  []string
	FieldsNeedingConfirmation []string
	FieldsNeedingAdminReview  []string
}

func newResult() *Result {
	return &Result{
		ConfidenceOverrides:       make(map[string]float64),
		Warnings:                  []string{},
		FieldsNeedingConfirmation: []string{},
		FieldsNeedingAdminReview:  []string{},
	}
}

// Validate runs every applicable rule for the document type and applies
// the confidence thresholds over the merged confidence map. Same input,
// same output: field lists are sorted.
func Validate(extraction domain.ExtractionResult, docType domain.DocumentType) *Result {
	return validateAt(extraction, docType, time.Now())
}

func validateAt(extraction domain.ExtractionResult, docType domain.DocumentType, now time.Time) *Result {
	vr := newResult()

	switch r := extraction.(type) {
	case *domain.BustaPagaResult:
		validateBustaPaga(r, vr, now)
	case *domain.CedolinoPensioneResult:
		validateCedolino(r, vr)
	case *domain.DichiarazioneRedditiResult:
		validateDichiarazione(r, vr)
	case *domain.ConteggioEstintivoResult:
		validateConteggio(r, vr, now)
	}

	merged := make(map[string]float64, len(extraction.ConfidenceMap())+len(vr.ConfidenceOverrides))
	for k, v := range extraction.ConfidenceMap() {
		merged[k] = v
	}
	for k, v := range vr.ConfidenceOverrides {
		merged[k] = v
	}
	applyThresholds(merged, vr)

	return vr
}

func validateBustaPaga(r *domain.BustaPagaResult, vr *Result, now time.Time) {
	validateCF(r.CodiceFiscale, vr)
	validateSalaryRange(r.GrossSalary, "gross_salary", vr)
	validateSalaryRange(r.NetSalary, "net_salary", vr)

	if r.GrossSalary != nil && r.NetSalary != nil && r.NetSalary.GreaterThan(*r.GrossSalary) {
		vr.warn("Net salary exceeds gross salary")
		vr.ConfidenceOverrides["net_salary"] = 0.30
		vr.ConfidenceOverrides["gross_salary"] = 0.30
	}

	validateDateField(r.HiringDate, "hiring_date", vr, now, dateRules{minYear: 1950})
	validatePeriod(r.PayPeriod, "pay_period", vr)
	validateDeductions(r.Deductions, r.NetSalary, "net salary", vr)
}

func validateCedolino(r *domain.CedolinoPensioneResult, vr *Result) {
	validateCF(r.CodiceFiscale, vr)
	validateSalaryRange(r.GrossPension, "gross_pension", vr)
	validateSalaryRange(r.NetPension, "net_pension", vr)

	if r.GrossPension != nil && r.NetPension != nil && r.NetPension.GreaterThan(*r.GrossPension) {
		vr.warn("Net pension exceeds gross pension")
		vr.ConfidenceOverrides["net_pension"] = 0.30
		vr.ConfidenceOverrides["gross_pension"] = 0.30
	}

	validatePeriod(r.PayPeriod, "pay_period", vr)
	validateDeductions(r.Deductions, r.NetPension, "net pension", vr)
}

func validateDichiarazione(r *domain.DichiarazioneRedditiResult, vr *Result) {
	validateCF(r.CodiceFiscale, vr)

	if r.PartitaIVA != nil && !partitaIVARe.MatchString(*r.PartitaIVA) {
		vr.warn("P.IVA format invalid: %s", *r.PartitaIVA)
		vr.ConfidenceOverrides["partita_iva"] = 0.30
	}

	if r.AtecoCode != nil && !atecoRe.MatchString(*r.AtecoCode) {
		vr.warn("ATECO format invalid: %s", *r.AtecoCode)
		vr.ConfidenceOverrides["ateco_code"] = 0.30
	}
}

func validateConteggio(r *domain.ConteggioEstintivoResult, vr *Result, now time.Time) {
	validateCF(r.CodiceFiscale, vr)

	if r.MonthlyInstallment != nil &&
		(r.MonthlyInstallment.LessThan(minInstallment) || r.MonthlyInstallment.GreaterThan(maxInstallment)) {
		vr.warn("Monthly installment out of range: %s", r.MonthlyInstallment)
		vr.ConfidenceOverrides["monthly_installment"] = 0.30
	}

	// paid + remaining must land within 1 of total (prorated final
	// installments show up as off-by-one on real statements)
	if r.TotalInstallments != nil && r.PaidInstallments != nil && r.RemainingInstallments != nil {
		computed := *r.PaidInstallments + *r.RemainingInstallments
		diff := computed - *r.TotalInstallments
		if diff < -1 || diff > 1 {
			vr.warn("Installment count mismatch: paid(%d) + remaining(%d) != total(%d)",
				*r.PaidInstallments, *r.RemainingInstallments, *r.TotalInstallments)
			vr.ConfidenceOverrides["total_installments"] = 0.40
			vr.ConfidenceOverrides["paid_installments"] = 0.40
			vr.ConfidenceOverrides["remaining_installments"] = 0.40
		}
	}

	validateDateField(r.MaturityDate, "maturity_date", vr, now, dateRules{minYear: 1950, allowFuture: true, requireFuture: true})
}

func validateCF(cf *string, vr *Result) {
	if cf == nil {
		return
	}
	if decoder.ValidateChecksum(*cf) {
		vr.ConfidenceOverrides["codice_fiscale"] = 1.0
	} else {
		vr.warn("CF checksum invalid: %s", *cf)
		vr.ConfidenceOverrides["codice_fiscale"] = 0.30
	}
}

func validateSalaryRange(amount *decimal.Decimal, fieldName string, vr *Result) {
	if amount == nil {
		return
	}
	if amount.LessThan(minSalary) || amount.GreaterThan(maxSalary) {
		vr.warn("%s out of range: %s", fieldName, amount)
		vr.ConfidenceOverrides[fieldName] = 0.30
	}
}

type dateRules struct {
	minYear       int
	allowFuture   bool
	requireFuture bool
}

func validateDateField(dateStr *string, fieldName string, vr *Result, now time.Time, rules dateRules) {
	if dateStr == nil {
		return
	}
	parsed, err := time.ParseInLocation("02/01/2006", *dateStr, time.UTC)
	if err != nil {
		vr.warn("%s is not a valid DD/MM/YYYY date: %s", fieldName, *dateStr)
		vr.ConfidenceOverrides[fieldName] = 0.30
		return
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case parsed.Year() < rules.minYear:
		vr.warn("%s year too old: %d", fieldName, parsed.Year())
		vr.ConfidenceOverrides[fieldName] = 0.30
	case !rules.allowFuture && parsed.After(today):
		vr.warn("%s is in the future: %s", fieldName, *dateStr)
		vr.ConfidenceOverrides[fieldName] = 0.30
	case rules.requireFuture && !parsed.After(today):
		vr.warn("%s should be in the future: %s", fieldName, *dateStr)
		vr.ConfidenceOverrides[fieldName] = 0.40
	}
}

func validatePeriod(period *string, fieldName string, vr *Result) {
	if period == nil {
		return
	}
	if !periodRe.MatchString(*period) {
		vr.warn("%s is not a valid MM/YYYY period: %s", fieldName, *period)
		vr.ConfidenceOverrides[fieldName] = 0.30
	}
}

// validateDeductions checks the named deduction amounts are positive and
// do not exceed the net amount they are withheld from.
func validateDeductions(d *domain.DeductionSet, net *decimal.Decimal, netLabel string, vr *Result) {
	if d == nil || net == nil {
		return
	}
	for _, entry := range []struct {
		name   string
		amount *decimal.Decimal
	}{
		{"cessione_del_quinto", d.CessioneDelQuinto},
		{"delegazione", d.Delegazione},
		{"pignoramento", d.Pignoramento},
	} {
		if entry.amount == nil {
			continue
		}
		if !entry.amount.IsPositive() {
			vr.warn("Deduction %s is not positive: %s", entry.name, entry.amount)
			vr.ConfidenceOverrides["deductions."+entry.name] = 0.30
		} else if entry.amount.GreaterThan(*net) {
			vr.warn("Deduction %s exceeds %s", entry.name, netLabel)
			vr.ConfidenceOverrides["deductions."+entry.name] = 0.40
		}
	}
}

func applyThresholds(confidence map[string]float64, vr *Result) {
	for fieldName, score := range confidence {
		if score < AdminReviewThreshold {
			vr.FieldsNeedingAdminReview = append(vr.FieldsNeedingAdminReview, fieldName)
		} else if score < ConfirmationThreshold {
			vr.FieldsNeedingConfirmation = append(vr.FieldsNeedingConfirmation, fieldName)
		}
	}
	sort.Strings(vr.FieldsNeedingAdminReview)
	sort.Strings(vr.FieldsNeedingConfirmation)
}

func (vr *Result) warn(format string, args ...any) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}
