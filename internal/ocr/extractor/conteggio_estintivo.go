package extractor

import (
	"quintos/internal/domain"
	"quintos/internal/ocr/modeljson"
	"quintos/internal/port"
)

const conteggioSystemPrompt = "Sei uno specialista OCR per documenti finanziari italiani. " +
	"Estrai con precisione i dati dal conteggio estintivo o piano di ammortamento."

const conteggioPrompt = "Estrai i seguenti campi dal conteggio estintivo. Rispondi SOLO con un oggetto JSON.\n" +
	"Se un campo non è visibile, usa null.\n\n" +
	"Campi richiesti:\n" +
	`- "borrower_name": nome e cognome del debitore` + "\n" +
	`- "codice_fiscale": codice fiscale (16 caratteri)` + "\n" +
	`- "lender_name": nome dell'istituto finanziario / cessionario` + "\n" +
	`- "loan_type": tipo di finanziamento tra:` + "\n" +
	`    "cessione_quinto", "delegazione", "mutuo", "prestito_personale",` + "\n" +
	`    "finanziamento_auto", "finanziamento_rateale", "carta_revolving", "altro"` + "\n" +
	`- "original_amount": importo originale finanziato (numero)` + "\n" +
	`- "residual_debt": debito residuo / montante residuo (numero)` + "\n" +
	`- "monthly_installment": rata mensile (numero)` + "\n" +
	`- "total_installments": numero totale rate (numero intero)` + "\n" +
	`- "paid_installments": rate già pagate (numero intero)` + "\n" +
	`- "remaining_installments": rate residue (numero intero)` + "\n" +
	`- "start_date": data inizio finanziamento (DD/MM/YYYY)` + "\n" +
	`- "maturity_date": data scadenza / fine ammortamento (DD/MM/YYYY)` + "\n" +
	`- "confidence": oggetto con confidenza per campo (0.0-1.0)` + "\n\n" +
	"JSON:"

const conteggioRetryPrompt = "La tua risposta precedente non era JSON valido. " +
	"Rispondi SOLO con un oggetto JSON con i campi del conteggio estintivo. " +
	"Usa null per i campi non visibili.\n" +
	"JSON:"

// NewConteggioEstintivo builds the loan payoff statement extractor.
func NewConteggioEstintivo(llm port.LLMClient) Extractor {
	return &vlmExtractor{
		docType:      domain.DocTypeConteggioEstintivo,
		systemPrompt: conteggioSystemPrompt,
		prompt:       conteggioPrompt,
		retryPrompt:  conteggioRetryPrompt,
		llm:          llm,
		decode: func(raw string) (domain.ExtractionResult, error) {
			out, err := modeljson.Decode[domain.ConteggioEstintivoResult](raw)
			if err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}
