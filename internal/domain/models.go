package domain

import (
	"github.com/shopspring/decimal"
)

// ClassificationResult is the document-type label the vision model assigned
// to an image, with its self-reported confidence in [0,1].
type ClassificationResult struct {
	DocType    DocumentType `json:"doc_type"`
	Confidence float64      `json:"confidence"`
}

// ExtractionResult is the sealed union of per-document-type extraction
// payloads. Every variant carries a per-field confidence map whose keys are
// a subset of the variant's field names; an absent key means the model had
// no opinion on that field.
type ExtractionResult interface {
	DocType() DocumentType
	ConfidenceMap() map[string]float64

	extractionResult()
}

// NamedDeduction is a single free-form deduction line from a payslip or
// pension slip.
type NamedDeduction struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// DeductionSet holds the salary/pension deductions relevant for
// salary-backed loan underwriting.
type DeductionSet struct {
	CessioneDelQuinto *decimal.Decimal `json:"cessione_del_quinto"`
	Delegazione       *decimal.Decimal `json:"delegazione"`
	Pignoramento      *decimal.Decimal `json:"pignoramento"`
	Other             []NamedDeduction `json:"other"`
}

// BustaPagaResult holds the fields extracted from an Italian payslip.
// Date fields are DD/MM/YYYY strings, pay periods MM/YYYY; the validator
// checks both formats.
type BustaPagaResult struct {
	EmployeeName     *string           `json:"employee_name"`
	CodiceFiscale    *string           `json:"codice_fiscale"`
	EmployerName     *string           `json:"employer_name"`
	EmployerCategory *EmployerCategory `json:"employer_category"`
	ContractType     *ContractType     `json:"contract_type"`
	CCNL             *string           `json:"ccnl"`
	HiringDate       *string           `json:"hiring_date"`
	PayPeriod        *string           `json:"pay_period"`
	RAL              *decimal.Decimal  `json:"ral"`
	GrossSalary      *decimal.Decimal  `json:"gross_salary"`
	NetSalary        *decimal.Decimal  `json:"net_salary"`
	TFRAccrued       *decimal.Decimal  `json:"tfr_accrued"`
	SeniorityMonths  *int              `json:"seniority_months"`
	Deductions       *DeductionSet     `json:"deductions"`

	Confidence map[string]float64 `json:"confidence"`
}

func (r *BustaPagaResult) DocType() DocumentType            { return DocTypeBustaPaga }
func (r *BustaPagaResult) ConfidenceMap() map[string]float64 { return r.Confidence }
func (r *BustaPagaResult) extractionResult()                {}

// CedolinoPensioneResult holds the fields extracted from an Italian pension
// slip.
type CedolinoPensioneResult struct {
	PensionerName        *string          `json:"pensioner_name"`
	CodiceFiscale        *string          `json:"codice_fiscale"`
	PensionSource        *PensionSource   `json:"pension_source"`
	PensionType          *PensionType     `json:"pension_type"`
	PayPeriod            *string          `json:"pay_period"`
	GrossPension         *decimal.Decimal `json:"gross_pension"`
	NetPension           *decimal.Decimal `json:"net_pension"`
	NetPensionBeforeCDQ  *decimal.Decimal `json:"net_pension_before_cdq"`
	IrpefWithheld        *decimal.Decimal `json:"irpef_withheld"`
	AddizionaleRegionale *decimal.Decimal `json:"addizionale_regionale"`
	Deductions           *DeductionSet    `json:"deductions"`

	Confidence map[string]float64 `json:"confidence"`
}

func (r *CedolinoPensioneResult) DocType() DocumentType            { return DocTypeCedolinoPensione }
func (r *CedolinoPensioneResult) ConfidenceMap() map[string]float64 { return r.Confidence }
func (r *CedolinoPensioneResult) extractionResult()                {}

// DichiarazioneRedditiResult holds the fields extracted from an Italian tax
// return (modello Redditi PF, 730, Unico).
type DichiarazioneRedditiResult struct {
	TaxpayerName      *string          `json:"taxpayer_name"`
	CodiceFiscale     *string          `json:"codice_fiscale"`
	PartitaIVA        *string          `json:"partita_iva"`
	AtecoCode         *string          `json:"ateco_code"`
	TaxRegime         *TaxRegime       `json:"tax_regime"`
	TaxYear           *int             `json:"tax_year"`
	RedditoImponibile *decimal.Decimal `json:"reddito_imponibile"`
	RedditoLordo      *decimal.Decimal `json:"reddito_lordo"`
	ImpostaNetta      *decimal.Decimal `json:"imposta_netta"`
	VolumeAffari      *decimal.Decimal `json:"volume_affari"`

	Confidence map[string]float64 `json:"confidence"`
}

func (r *DichiarazioneRedditiResult) DocType() DocumentType            { return DocTypeDichiarazioneRedditi }
func (r *DichiarazioneRedditiResult) ConfidenceMap() map[string]float64 { return r.Confidence }
func (r *DichiarazioneRedditiResult) extractionResult()                {}

// ConteggioEstintivoResult holds the fields extracted from a loan payoff
// statement or amortization plan.
type ConteggioEstintivoResult struct {
	BorrowerName          *string          `json:"borrower_name"`
	CodiceFiscale         *string          `json:"codice_fiscale"`
	LenderName            *string          `json:"lender_name"`
	LoanType              *LiabilityType   `json:"loan_type"`
	OriginalAmount        *decimal.Decimal `json:"original_amount"`
	ResidualDebt          *decimal.Decimal `json:"residual_debt"`
	MonthlyInstallment    *decimal.Decimal `json:"monthly_installment"`
	TotalInstallments     *int             `json:"total_installments"`
	PaidInstallments      *int             `json:"paid_installments"`
	RemainingInstallments *int             `json:"remaining_installments"`
	StartDate             *string          `json:"start_date"`
	MaturityDate          *string          `json:"maturity_date"`

	Confidence map[string]float64 `json:"confidence"`
}

func (r *ConteggioEstintivoResult) DocType() DocumentType            { return DocTypeConteggioEstintivo }
func (r *ConteggioEstintivoResult) ConfidenceMap() map[string]float64 { return r.Confidence }
func (r *ConteggioEstintivoResult) extractionResult()                {}

// OcrResult is the pipeline's only externally visible output. Exactly one
// of Extraction or Error is the success signal for callers, though both may
// be absent (unsupported type carries DocType plus Error).
type OcrResult struct {
	DocType                   *DocumentType    `json:"doc_type,omitempty"`
	Extraction                ExtractionResult `json:"extraction_result,omitempty"`
	OverallConfidence         float64          `json:"overall_confidence"`
	FieldsNeedingConfirmation []string         `json:"fields_needing_confirmation"`
	FieldsNeedingAdminReview  []string         `json:"fields_needing_admin_review"`
	ProcessingTimeMS          int64            `json:"processing_time_ms"`
	Error                     string           `json:"error,omitempty"`
}
