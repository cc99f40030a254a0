package extractor

import (
	"quintos/internal/domain"
	"quintos/internal/ocr/modeljson"
	"quintos/internal/port"
)

const bustaPagaSystemPrompt = "Sei uno specialista OCR per documenti finanziari italiani. " +
	"Estrai con precisione i dati dalla busta paga."

const bustaPagaPrompt = "Estrai i seguenti campi dalla busta paga. Rispondi SOLO con un oggetto JSON.\n" +
	"Se un campo non è visibile, usa null.\n\n" +
	"Campi richiesti:\n" +
	`- "employee_name": nome e cognome del dipendente` + "\n" +
	`- "codice_fiscale": codice fiscale (16 caratteri)` + "\n" +
	`- "employer_name": nome del datore di lavoro` + "\n" +
	`- "employer_category": "statale", "pubblico", "privato" o "parapubblico"` + "\n" +
	`- "contract_type": "indeterminato", "determinato" o "apprendistato"` + "\n" +
	`- "ccnl": contratto collettivo applicato` + "\n" +
	`- "hiring_date": data di assunzione (DD/MM/YYYY con anno a 4 cifre, es. 01/03/2015). NON confondere con la data di nascita.` + "\n" +
	`- "pay_period": periodo retributivo (MM/YYYY)` + "\n" +
	`- "ral": retribuzione annua lorda (numero)` + "\n" +
	`- "gross_salary": retribuzione lorda mensile (numero)` + "\n" +
	`- "net_salary": retribuzione netta mensile (numero)` + "\n" +
	`- "tfr_accrued": TFR maturato (numero)` + "\n" +
	`- "seniority_months": anzianità in mesi (numero intero)` + "\n" +
	`- "deductions": oggetto con le trattenute:` + "\n" +
	`    - "cessione_del_quinto": importo cessione del quinto (numero o null)` + "\n" +
	`    - "delegazione": importo delegazione di pagamento (numero o null)` + "\n" +
	`    - "pignoramento": importo pignoramento (numero o null)` + "\n" +
	`    - "other": lista di {"description": "...", "amount": numero}` + "\n" +
	`- "confidence": oggetto con confidenza per campo (0.0-1.0)` + "\n\n" +
	"JSON:"

const bustaPagaRetryPrompt = "La tua risposta precedente non era JSON valido. " +
	"Rispondi SOLO con un oggetto JSON con i campi della busta paga. " +
	"Usa null per i campi non visibili.\n" +
	"JSON:"

// NewBustaPaga builds the payslip extractor.
func NewBustaPaga(llm port.LLMClient) Extractor {
	return &vlmExtractor{
		docType:      domain.DocTypeBustaPaga,
		systemPrompt: bustaPagaSystemPrompt,
		prompt:       bustaPagaPrompt,
		retryPrompt:  bustaPagaRetryPrompt,
		llm:          llm,
		decode: func(raw string) (domain.ExtractionResult, error) {
			out, err := modeljson.Decode[domain.BustaPagaResult](raw)
			if err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}
