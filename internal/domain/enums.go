package domain

// DocumentType classifies the financial documents the pipeline understands.
// Not every type has a registered extractor: cud, f24, and documento_identita
// are recognized by the classifier but handled as unsupported downstream.
type DocumentType string

const (
	DocTypeBustaPaga            DocumentType = "busta_paga"
	DocTypeCedolinoPensione     DocumentType = "cedolino_pensione"
	DocTypeCUD                  DocumentType = "cud"
	DocTypeDichiarazioneRedditi DocumentType = "dichiarazione_redditi"
	DocTypeConteggioEstintivo   DocumentType = "conteggio_estintivo"
	DocTypeF24                  DocumentType = "f24"
	DocTypeDocumentoIdentita    DocumentType = "documento_identita"
	DocTypeAltro                DocumentType = "altro"
)

// ValidDocumentTypes is the set of labels accepted from callers and the model.
var ValidDocumentTypes = map[DocumentType]bool{
	DocTypeBustaPaga:            true,
	DocTypeCedolinoPensione:     true,
	DocTypeCUD:                  true,
	DocTypeDichiarazioneRedditi: true,
	DocTypeConteggioEstintivo:   true,
	DocTypeF24:                  true,
	DocTypeDocumentoIdentita:    true,
	DocTypeAltro:                true,
}

// ParseDocumentType converts a string label into a DocumentType.
// Returns false when the label is not a known type.
func ParseDocumentType(s string) (DocumentType, bool) {
	dt := DocumentType(s)
	return dt, ValidDocumentTypes[dt]
}

// EmployerCategory distinguishes public-sector tiers relevant for
// salary-backed loan eligibility.
type EmployerCategory string

const (
	EmployerStatale      EmployerCategory = "statale"
	EmployerPubblico     EmployerCategory = "pubblico"
	EmployerPrivato      EmployerCategory = "privato"
	EmployerParapubblico EmployerCategory = "parapubblico"
)

// ContractType is the employment contract kind read off a payslip.
type ContractType string

const (
	ContractIndeterminato ContractType = "indeterminato"
	ContractDeterminato   ContractType = "determinato"
	ContractApprendistato ContractType = "apprendistato"
)

// PensionSource is the institution paying the pension.
type PensionSource string

const (
	PensionSourceINPS   PensionSource = "inps"
	PensionSourceINPDAP PensionSource = "inpdap"
	PensionSourceAltro  PensionSource = "altro"
)

// PensionType is the pension category on a cedolino.
type PensionType string

const (
	PensionVecchiaia  PensionType = "vecchiaia"
	PensionAnticipata PensionType = "anticipata"
	PensionInvalidita PensionType = "invalidita"
	PensionSuperstiti PensionType = "superstiti"
	PensionSociale    PensionType = "sociale"
)

// TaxRegime is the declared fiscal regime on a tax return.
type TaxRegime string

const (
	RegimeForfettario  TaxRegime = "forfettario"
	RegimeOrdinario    TaxRegime = "ordinario"
	RegimeSemplificato TaxRegime = "semplificato"
)

// LiabilityType is the kind of financing on a loan payoff statement.
type LiabilityType string

const (
	LiabilityCDQ          LiabilityType = "cessione_quinto"
	LiabilityDelega       LiabilityType = "delegazione"
	LiabilityMutuo        LiabilityType = "mutuo"
	LiabilityPrestito     LiabilityType = "prestito_personale"
	LiabilityAuto         LiabilityType = "finanziamento_auto"
	LiabilityConsumer     LiabilityType = "finanziamento_rateale"
	LiabilityRevolving    LiabilityType = "carta_revolving"
	LiabilityPignoramento LiabilityType = "pignoramento"
	LiabilityAltro        LiabilityType = "altro"
)
