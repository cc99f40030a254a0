package extractor

import (
	"quintos/internal/domain"
	"quintos/internal/ocr/modeljson"
	"quintos/internal/port"
)

const redditiSystemPrompt = "Sei uno specialista OCR per documenti finanziari italiani. " +
	"Estrai con precisione i dati dalla dichiarazione dei redditi."

const redditiPrompt = "Estrai i seguenti campi dalla dichiarazione dei redditi. Rispondi SOLO con un oggetto JSON.\n" +
	"Se un campo non è visibile, usa null.\n\n" +
	"Campi richiesti:\n" +
	`- "taxpayer_name": nome e cognome del contribuente` + "\n" +
	`- "codice_fiscale": codice fiscale (16 caratteri)` + "\n" +
	`- "partita_iva": partita IVA (11 cifre)` + "\n" +
	`- "ateco_code": codice ATECO (formato XX.XX.XX)` + "\n" +
	`- "tax_regime": "forfettario", "ordinario" o "semplificato"` + "\n" +
	`- "tax_year": anno d'imposta (numero intero, es. 2024)` + "\n" +
	`- "reddito_imponibile": reddito imponibile (numero)` + "\n" +
	`- "reddito_lordo": reddito lordo complessivo (numero)` + "\n" +
	`- "imposta_netta": imposta netta dovuta (numero)` + "\n" +
	`- "volume_affari": volume d'affari IVA (numero)` + "\n" +
	`- "confidence": oggetto con confidenza per campo (0.0-1.0)` + "\n\n" +
	"JSON:"

const redditiRetryPrompt = "La tua risposta precedente non era JSON valido. " +
	"Rispondi SOLO con un oggetto JSON con i campi della dichiarazione redditi. " +
	"Usa null per i campi non visibili.\n" +
	"JSON:"

// NewDichiarazioneRedditi builds the tax return extractor.
func NewDichiarazioneRedditi(llm port.LLMClient) Extractor {
	return &vlmExtractor{
		docType:      domain.DocTypeDichiarazioneRedditi,
		systemPrompt: redditiSystemPrompt,
		prompt:       redditiPrompt,
		retryPrompt:  redditiRetryPrompt,
		llm:          llm,
		decode: func(raw string) (domain.ExtractionResult, error) {
			out, err := modeljson.Decode[domain.DichiarazioneRedditiResult](raw)
			if err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}
